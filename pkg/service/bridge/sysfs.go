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
	"github.com/ecc1/gpio"
	"github.com/pkg/errors"
)

type sysfsBridge struct {
	pins pinSet
}

// NewSysfsBridge implements the bridge for boards that expose their GPIO
// pins through the Linux sysfs interface.
func NewSysfsBridge() (API, error) {
	return &sysfsBridge{}, nil
}

// Name returns the type of bridge.
func (p *sysfsBridge) Name() string {
	return "sysfs"
}

// Input initializes a GPIO input pin with the given pin number.
func (p *sysfsBridge) Input(pinNumber int, activeLow bool) (InputPin, error) {
	pin, err := gpio.Input(pinNumber, activeLow)
	if err != nil {
		pinErrorsTotal.WithLabelValues(p.Name()).Inc()
		return nil, errors.Wrapf(err, "Input[%d] failed", pinNumber)
	}
	p.pins.add(pin)
	return pin, nil
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (p *sysfsBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	pin, err := gpio.Output(pinNumber, activeLow, initialValue)
	if err != nil {
		pinErrorsTotal.WithLabelValues(p.Name()).Inc()
		return nil, errors.Wrapf(err, "Output[%d] failed", pinNumber)
	}
	p.pins.add(pin)
	return pin, nil
}

func (p *sysfsBridge) Close() error {
	if err := p.pins.closeAll(); err != nil {
		return errors.Wrap(err, "Close failed")
	}
	return nil
}
