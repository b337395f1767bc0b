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

package loopback

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/ShiftWorker/pkg/service/debounce"
	"github.com/binkynet/ShiftWorker/pkg/service/shiftreg"
	"github.com/binkynet/ShiftWorker/pkg/service/status"
)

// Sampler produces debounced input values.
type Sampler interface {
	Sample() (debounce.Result, error)
}

// Sender commits a value to the output register.
type Sender interface {
	Send(value byte) error
	Value() byte
}

// Publisher receives a snapshot after every cycle.
type Publisher interface {
	Publish(status.Snapshot)
}

// Controller echoes the debounced input register onto the output register.
type Controller struct {
	log       zerolog.Logger
	sampler   Sampler
	sender    Sender
	publisher Publisher
	now       func() time.Time

	sequence       uint64
	rejected       uint64
	lastInput      byte
	lastAcceptedAt time.Time
	lastChangeAt   time.Time
}

// NewController creates a controller for the given sampler and sender.
func NewController(log zerolog.Logger, sampler Sampler, sender Sender, publisher Publisher) *Controller {
	return &Controller{
		log:       log.With().Str("component", "loopback").Logger(),
		sampler:   sampler,
		sender:    sender,
		publisher: publisher,
		now:       time.Now,
	}
}

// Step runs a single cycle: sample the inputs, then send the last
// accepted value to the outputs.
func (c *Controller) Step() error {
	start := c.now()
	result, err := c.sampler.Sample()
	if err != nil {
		return c.failed(errors.Wrap(err, "Sample failed"))
	}
	if err := c.sender.Send(result.Value); err != nil {
		return c.failed(errors.Wrap(err, "Send failed"))
	}
	c.sequence++
	now := c.now()
	if result.Accepted {
		c.lastAcceptedAt = now
	} else {
		c.rejected++
	}
	changed := result.Value != c.lastInput
	if changed {
		c.log.Info().
			Str("from", shiftreg.FormatBits(c.lastInput)).
			Str("to", shiftreg.FormatBits(result.Value)).
			Msg("input changed")
	}
	if changed || c.sequence == 1 {
		c.lastInput = result.Value
		c.lastChangeAt = now
	}
	cyclesTotal.Inc()
	cycleDuration.Observe(now.Sub(start).Seconds())
	c.publisher.Publish(c.snapshot(result.Accepted, ""))
	return nil
}

// Run repeats Step until the given context is canceled or a step fails.
// A failing step is returned; the caller is expected to stop the process.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info().Msg("Starting loopback")
	for {
		if ctx.Err() != nil {
			// Context canceled
			c.log.Info().Uint64("cycles", c.sequence).Msg("Stopping loopback; context canceled")
			return nil
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
}

// Cycles returns the number of completed cycles.
func (c *Controller) Cycles() uint64 {
	return c.sequence
}

func (c *Controller) failed(err error) error {
	faultsTotal.Inc()
	c.log.Error().Err(err).Msg("Loopback cycle failed")
	c.publisher.Publish(c.snapshot(false, err.Error()))
	return err
}

func (c *Controller) snapshot(accepted bool, fault string) status.Snapshot {
	return status.Snapshot{
		Sequence:       c.sequence,
		Input:          c.lastInput,
		Output:         c.sender.Value(),
		Accepted:       accepted,
		Rejected:       c.rejected,
		LastAcceptedAt: c.lastAcceptedAt,
		LastChangeAt:   c.lastChangeAt,
		Fault:          fault,
	}
}
