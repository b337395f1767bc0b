// Copyright 2025 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/ShiftWorker/pkg/service/shiftreg"
	"github.com/binkynet/ShiftWorker/pkg/service/status"
	"github.com/binkynet/ShiftWorker/pkg/service/util"
)

const (
	appID             = "shiftworker"
	qosDefault        = byte(1)
	defaultTimeout    = time.Second * 5
	disconnectQuiesce = 250 // ms
)

var maskAny = errors.WithStack

// Config of the MQTT publisher.
type Config struct {
	// Host of the MQTT broker. Publishing is disabled when empty.
	Host string
	// Port of the MQTT broker
	Port int
	// Prefix of all published topics
	TopicPrefix string
	// Client ID used to connect. Derived from the machine ID when empty.
	ClientID string
	// Timeout of connect and publish operations
	Timeout time.Duration
}

// Enabled returns true when a broker is configured.
func (c Config) Enabled() bool {
	return c.Host != ""
}

// StateTopic is the topic that receives retained state messages.
func (c Config) StateTopic() string {
	return c.TopicPrefix + "/state"
}

// OnlineTopic is the topic that carries the retained online flag.
func (c Config) OnlineTopic() string {
	return c.TopicPrefix + "/online"
}

// LogTopic is the topic that receives log lines.
func (c Config) LogTopic() string {
	return c.TopicPrefix + "/logs"
}

func (c Config) brokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port)
}

// Dependencies of the MQTT publisher.
type Dependencies struct {
	Log zerolog.Logger
	Hub *status.Hub
}

// client is the subset of paho.Client used by the publisher.
type client interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher publishes loopback state changes to an MQTT broker.
type Publisher struct {
	Config
	Dependencies

	newClient func(*paho.ClientOptions) client
	mutex     sync.Mutex
	client    client
	lastSent  *stateKey
}

// StateMessage is the retained payload on the state topic.
type StateMessage struct {
	Input      byte      `json:"input"`
	InputBits  string    `json:"input_bits"`
	Output     byte      `json:"output"`
	OutputBits string    `json:"output_bits"`
	Sequence   uint64    `json:"sequence"`
	Fault      string    `json:"fault,omitempty"`
	Time       time.Time `json:"time"`
}

type stateKey struct {
	input  byte
	output byte
	fault  string
}

// NewPublisher creates a new publisher.
func NewPublisher(conf Config, deps Dependencies) (*Publisher, error) {
	if !conf.Enabled() {
		return nil, maskAny(fmt.Errorf("MQTT host is not set"))
	}
	if conf.TopicPrefix == "" {
		return nil, maskAny(fmt.Errorf("MQTT topic prefix is not set"))
	}
	if deps.Hub == nil {
		return nil, maskAny(fmt.Errorf("status hub is not set"))
	}
	if conf.ClientID == "" {
		conf.ClientID = DefaultClientID()
	}
	if conf.Timeout == 0 {
		conf.Timeout = defaultTimeout
	}
	deps.Log = deps.Log.With().Str("component", "mqtt").Logger()
	return &Publisher{
		Config:       conf,
		Dependencies: deps,
		newClient: func(opts *paho.ClientOptions) client {
			return paho.NewClient(opts)
		},
	}, nil
}

// DefaultClientID returns a client ID that is stable for this machine.
func DefaultClientID() string {
	if id, err := machineid.ProtectedID(appID); err == nil && len(id) >= 12 {
		return appID + "-" + id[:12]
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return appID + "-" + host
	}
	return appID
}

// Run publishes state changes until the given context is canceled.
func (p *Publisher) Run(ctx context.Context) error {
	notify, err := p.Hub.Notify()
	if err != nil {
		return maskAny(err)
	}
	defer p.disconnect()

	p.Log.Info().
		Str("broker", p.brokerURL()).
		Str("client-id", p.ClientID).
		Str("topic", p.StateTopic()).
		Msg("Publishing state to MQTT")
	return util.UntilCanceled(ctx, p.Log, "MQTT state publisher", func() error {
		if err := p.connect(); err != nil {
			return err
		}
		if err := p.publishState(p.Hub.Snapshot()); err != nil {
			return err
		}
		select {
		case <-notify:
		case <-ctx.Done():
		}
		return nil
	})
}

// Publish sends the JSON encoding of the given payload to the given topic.
func (p *Publisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return maskAny(err)
	}
	return p.publish(ctx, topic, false, data)
}

// connect creates a client and connects it when there is no connection yet.
func (p *Publisher) connect() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil && p.client.IsConnected() {
		return nil
	}
	if p.client == nil {
		opts := paho.NewClientOptions()
		opts.AddBroker(p.brokerURL())
		opts.SetClientID(p.ClientID)
		opts.SetKeepAlive(time.Second * 30)
		opts.SetConnectTimeout(p.Timeout)
		opts.SetAutoReconnect(true)
		opts.SetWill(p.OnlineTopic(), "false", qosDefault, true)
		opts.SetOnConnectHandler(func(c paho.Client) {
			c.Publish(p.OnlineTopic(), qosDefault, true, "true")
		})
		opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.Log.Warn().Err(err).Msg("MQTT connection lost")
		})
		p.client = p.newClient(opts)
	}
	token := p.client.Connect()
	if !token.WaitTimeout(p.Timeout) {
		return maskAny(fmt.Errorf("timeout connecting to %s", p.brokerURL()))
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "connecting to %s", p.brokerURL())
	}
	p.lastSent = nil
	p.Log.Info().Msg("Connected to MQTT broker")
	return nil
}

// publishState publishes the given snapshot when it differs from the last
// published state.
func (p *Publisher) publishState(s status.Snapshot) error {
	if s.Sequence == 0 {
		// Loop has not produced a cycle yet
		return nil
	}
	key := stateKey{input: s.Input, output: s.Output, fault: s.Fault}
	p.mutex.Lock()
	unchanged := p.lastSent != nil && *p.lastSent == key
	p.mutex.Unlock()
	if unchanged {
		return nil
	}

	msg := StateMessage{
		Input:      s.Input,
		InputBits:  shiftreg.FormatBits(s.Input),
		Output:     s.Output,
		OutputBits: shiftreg.FormatBits(s.Output),
		Sequence:   s.Sequence,
		Fault:      s.Fault,
		Time:       time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return maskAny(err)
	}
	if err := p.publish(context.Background(), p.StateTopic(), true, data); err != nil {
		return err
	}
	p.mutex.Lock()
	p.lastSent = &key
	p.mutex.Unlock()
	p.Log.Debug().
		Str("input", msg.InputBits).
		Str("output", msg.OutputBits).
		Msg("Published state")
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, retained bool, data []byte) error {
	p.mutex.Lock()
	c := p.client
	p.mutex.Unlock()
	if c == nil || !c.IsConnected() {
		return maskAny(fmt.Errorf("not connected to MQTT broker"))
	}
	token := c.Publish(topic, qosDefault, retained, data)
	timeout := p.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return maskAny(fmt.Errorf("timeout publishing to %s", topic))
	}
	return maskAny(token.Error())
}

func (p *Publisher) disconnect() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil && p.client.IsConnected() {
		p.client.Publish(p.OnlineTopic(), qosDefault, true, "false").WaitTimeout(p.Timeout)
		p.client.Disconnect(disconnectQuiesce)
	}
}
