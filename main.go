//    Copyright 2017 Ewout Prangsma
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/binkynet/ShiftWorker/model"
	"github.com/binkynet/ShiftWorker/pkg/environment"
	"github.com/binkynet/ShiftWorker/pkg/logging"
	"github.com/binkynet/ShiftWorker/pkg/mqtt"
	"github.com/binkynet/ShiftWorker/pkg/server"
	"github.com/binkynet/ShiftWorker/pkg/service"
	"github.com/binkynet/ShiftWorker/pkg/service/bridge"
	"github.com/binkynet/ShiftWorker/pkg/service/status"
	"github.com/binkynet/ShiftWorker/pkg/ui"
)

const (
	projectName       = "ShiftWorker"
	defaultHTTPPort   = 7129
	defaultGRPCPort   = 7130
	defaultSSHPort    = 7122
	defaultMQTTPort   = 1883
	defaultMQTTPrefix = "shiftworker"
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

func main() {
	var levelFlag string
	var bridgeType string
	var virtualInputs uint8
	var serverConf server.Config
	var mqttConf mqtt.Config
	conf := model.DefaultLocalConfiguration()

	pflag.StringVarP(&levelFlag, "level", "l", "info", "Set log level")
	pflag.StringVarP(&bridgeType, "bridge", "b", environment.BridgeTypeAuto, "Type of bridge to use (auto|sysfs|periph|virtual)")
	pflag.IntVar(&conf.Pins.ClockOut, "clock-out", conf.Pins.ClockOut, "GPIO pin of the output register shift clock")
	pflag.IntVar(&conf.Pins.LatchOut, "latch-out", conf.Pins.LatchOut, "GPIO pin of the output register latch")
	pflag.IntVar(&conf.Pins.DataOut, "data-out", conf.Pins.DataOut, "GPIO pin of the output register serial data")
	pflag.IntVar(&conf.Pins.EnableOut, "enable-out", conf.Pins.EnableOut, "GPIO pin of the output register enable (active low)")
	pflag.IntVar(&conf.Pins.LoadIn, "load-in", conf.Pins.LoadIn, "GPIO pin of the input register parallel load")
	pflag.IntVar(&conf.Pins.ClockIn, "clock-in", conf.Pins.ClockIn, "GPIO pin of the input register shift clock")
	pflag.IntVar(&conf.Pins.DataIn, "data-in", conf.Pins.DataIn, "GPIO pin of the input register serial data")
	pflag.DurationVar(&conf.DebounceWindow, "debounce", conf.DebounceWindow, "Time between the two reads of a sample")
	pflag.Uint8Var(&virtualInputs, "virtual-inputs", 0xff, "Initial switch line levels of the virtual bridge")
	pflag.StringVar(&serverConf.Host, "host", "0.0.0.0", "Host address the servers will listen on")
	pflag.IntVar(&serverConf.HTTPPort, "http-port", defaultHTTPPort, "Port the HTTP server will listen on")
	pflag.IntVar(&serverConf.GRPCPort, "grpc-port", defaultGRPCPort, "Port the GRPC server will listen on")
	pflag.IntVar(&serverConf.SSHPort, "ssh-port", defaultSSHPort, "Port the SSH server will listen on (0 disables)")
	pflag.StringVar(&mqttConf.Host, "mqtt-host", "", "Host of the MQTT broker (empty disables MQTT)")
	pflag.IntVar(&mqttConf.Port, "mqtt-port", defaultMQTTPort, "Port of the MQTT broker")
	pflag.StringVar(&mqttConf.TopicPrefix, "mqtt-topic", defaultMQTTPrefix, "Prefix of all MQTT topics")
	pflag.Parse()

	// Prepare to shutdown in a controlled manor
	ctx, cancel := context.WithCancel(context.Background())

	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	zerolog.SetGlobalLevel(level)
	mqttLogWriter := logging.NewMQTTWriter(ctx, zerolog.InfoLevel)
	logOutput := logging.NewMultiWriter(zerolog.ConsoleWriter{Out: os.Stderr}, mqttLogWriter)
	logger := zerolog.New(logOutput).With().Timestamp().Logger()

	if bridgeType == environment.BridgeTypeAuto {
		bridgeType = environment.AutoDetectBridgeType(logger)
	}
	var br bridge.API
	var switches ui.Switches
	switch bridgeType {
	case environment.BridgeTypeSysfs:
		br, err = bridge.NewSysfsBridge()
		if err != nil {
			Exitf("Failed to initialize sysfs bridge: %v\n", err)
		}
	case environment.BridgeTypePeriph:
		br, err = bridge.NewPeriphBridge()
		if err != nil {
			Exitf("Failed to initialize periph bridge: %v\n", err)
		}
	case environment.BridgeTypeVirtual:
		vb, err := bridge.NewVirtualBridge(conf.Pins)
		if err != nil {
			Exitf("Failed to initialize virtual bridge: %v\n", err)
		}
		vb.SetInputLevels(virtualInputs)
		br, switches = vb, vb
	default:
		Exitf("Unknown bridge type '%s' (auto|sysfs|periph|virtual)\n", bridgeType)
	}

	hub := status.NewHub()
	defer hub.Close()

	svc, err := service.NewService(service.Config{
		LocalConfiguration: conf,
	}, service.Dependencies{
		Logger: logger,
		Bridge: br,
		Hub:    hub,
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	srv, err := server.New(serverConf, logger, hub, ui.UI{Hub: hub, Switches: switches})
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	var publisher *mqtt.Publisher
	if mqttConf.Enabled() {
		publisher, err = mqtt.NewPublisher(mqttConf, mqtt.Dependencies{
			Log: logger,
			Hub: hub,
		})
		if err != nil {
			Exitf("Failed to initialize MQTT publisher: %v\n", err)
		}
		mqttLogWriter.SetDestination(publisher.LogTopic(), publisher)
		mqttLogWriter.Enable(true)
	}

	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	if publisher != nil {
		g.Go(func() error { return publisher.Run(ctx) })
	}
	runErr := g.Wait()
	if err := svc.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close service")
	}
	if runErr != nil {
		Exitf("Service run failed: %v\n", maskAny(runErr))
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
