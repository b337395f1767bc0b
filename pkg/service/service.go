//    Copyright 2017-2022 Ewout Prangsma
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

package service

import (
	"context"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/binkynet/ShiftWorker/model"
	"github.com/binkynet/ShiftWorker/pkg/service/bridge"
	"github.com/binkynet/ShiftWorker/pkg/service/debounce"
	"github.com/binkynet/ShiftWorker/pkg/service/loopback"
	"github.com/binkynet/ShiftWorker/pkg/service/shiftreg"
	"github.com/binkynet/ShiftWorker/pkg/service/status"
)

type Service interface {
	// Run the worker until the given context is cancelled or the
	// hardware fails.
	Run(ctx context.Context) error
	// Close brings the outputs back to a safe state and releases all pins.
	Close() error
}

type Config struct {
	model.LocalConfiguration
}

type Dependencies struct {
	Logger zerolog.Logger
	Bridge bridge.API
	Hub    *status.Hub
	// Clock used for the debounce window. Defaults to the system clock.
	Clock debounce.Clock
}

type service struct {
	Config
	Dependencies

	output     *shiftreg.OutputDriver
	input      *shiftreg.InputDriver
	controller *loopback.Controller
}

// NewService configures all pins of both shift registers on the bridge and
// builds the loopback on top of them.
func NewService(conf Config, deps Dependencies) (Service, error) {
	if err := conf.Validate(); err != nil {
		return nil, maskAny(err)
	}
	deps.Logger = deps.Logger.With().Str("component", "service").Logger()
	if deps.Clock == nil {
		deps.Clock = debounce.SystemClock{}
	}
	s := &service{
		Config:       conf,
		Dependencies: deps,
	}
	if err := s.configurePins(); err != nil {
		var ae aerr.AggregateError
		ae.Add(err)
		if err := deps.Bridge.Close(); err != nil {
			ae.Add(err)
		}
		return nil, ae.AsError()
	}
	return s, nil
}

// configurePins opens all lines with their idle levels:
// output clock, latch and data low with the outputs disabled,
// input load and clock high.
func (s *service) configurePins() error {
	pins := s.Pins
	br := s.Bridge
	const activeLow = false
	output := func(role string, pin int, initial bool) (bridge.OutputPin, error) {
		p, err := br.Output(pin, activeLow, initial)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to configure %s (pin %d)", role, pin)
		}
		return p, nil
	}
	clockOut, err := output("clock_out", pins.ClockOut, false)
	if err != nil {
		return err
	}
	latchOut, err := output("latch_out", pins.LatchOut, false)
	if err != nil {
		return err
	}
	dataOut, err := output("data_out", pins.DataOut, false)
	if err != nil {
		return err
	}
	enableOut, err := output("enable_out", pins.EnableOut, true)
	if err != nil {
		return err
	}
	loadIn, err := output("load_in", pins.LoadIn, true)
	if err != nil {
		return err
	}
	clockIn, err := output("clock_in", pins.ClockIn, true)
	if err != nil {
		return err
	}
	dataIn, err := br.Input(pins.DataIn, activeLow)
	if err != nil {
		return errors.Wrapf(err, "Failed to configure data_in (pin %d)", pins.DataIn)
	}

	log := s.Logger
	s.output = shiftreg.NewOutputDriver(log, clockOut, latchOut, dataOut, enableOut)
	s.input = shiftreg.NewInputDriver(log, loadIn, clockIn, dataIn)
	sampler := debounce.NewSampler(log, s.input, s.Clock, s.DebounceWindow)
	s.controller = loopback.NewController(log, sampler, s.output, s.Hub)
	log.Info().
		Str("bridge", br.Name()).
		Str("pins", pins.String()).
		Dur("debounce", s.DebounceWindow).
		Msg("Configured shift register pins")
	return nil
}

// Run the worker until the given context is cancelled or the
// hardware fails.
func (s *service) Run(ctx context.Context) error {
	log := s.Logger
	if err := s.output.Reset(); err != nil {
		log.Error().Err(err).Msg("Failed to reset output register")
		return maskAny(err)
	}
	log.Info().Msg("Output register cleared and enabled")
	serviceUpGauge.Set(1)
	defer serviceUpGauge.Set(0)

	if err := s.controller.Run(ctx); err != nil {
		return maskAny(err)
	}
	return nil
}

// Close brings the outputs back to a safe state and releases all pins.
func (s *service) Close() error {
	var ae aerr.AggregateError
	if err := s.output.SetEnabled(false); err != nil {
		ae.Add(err)
	}
	if err := s.Bridge.Close(); err != nil {
		ae.Add(err)
	}
	return ae.AsError()
}
