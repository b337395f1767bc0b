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

package bridge

import (
	"strconv"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type periphBridge struct {
	pins pinSet
}

// NewPeriphBridge implements the bridge on top of the periph.io host
// drivers (memory mapped GPIO where available).
func NewPeriphBridge() (API, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host.Init failed")
	}
	return &periphBridge{}, nil
}

// Name returns the type of bridge.
func (p *periphBridge) Name() string {
	return "periph"
}

func (p *periphBridge) lookup(pinNumber int) (gpio.PinIO, error) {
	pin := gpioreg.ByName(strconv.Itoa(pinNumber))
	if pin == nil {
		pinErrorsTotal.WithLabelValues(p.Name()).Inc()
		return nil, errors.Errorf("GPIO %d not found", pinNumber)
	}
	return pin, nil
}

// Input initializes a GPIO input pin with the given pin number.
func (p *periphBridge) Input(pinNumber int, activeLow bool) (InputPin, error) {
	pin, err := p.lookup(pinNumber)
	if err != nil {
		return nil, err
	}
	if err := pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		pinErrorsTotal.WithLabelValues(p.Name()).Inc()
		return nil, errors.Wrapf(err, "In[%d] failed", pinNumber)
	}
	result := &periphPin{pin: pin, activeLow: activeLow}
	p.pins.add(result)
	return result, nil
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (p *periphBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	pin, err := p.lookup(pinNumber)
	if err != nil {
		return nil, err
	}
	result := &periphPin{pin: pin, activeLow: activeLow}
	if err := result.Write(initialValue); err != nil {
		pinErrorsTotal.WithLabelValues(p.Name()).Inc()
		return nil, errors.Wrapf(err, "Out[%d] failed", pinNumber)
	}
	p.pins.add(result)
	return result, nil
}

func (p *periphBridge) Close() error {
	if err := p.pins.closeAll(); err != nil {
		return errors.Wrap(err, "Close failed")
	}
	return nil
}

// periphPin adapts a periph.io pin to logical levels.
type periphPin struct {
	pin       gpio.PinIO
	activeLow bool
}

func (p *periphPin) Read() (bool, error) {
	return (p.pin.Read() == gpio.High) != p.activeLow, nil
}

func (p *periphPin) Write(value bool) error {
	return p.pin.Out(gpio.Level(value != p.activeLow))
}

func (p *periphPin) Halt() error {
	return p.pin.Halt()
}
