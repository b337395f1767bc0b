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
	"io"
	"sync"

	aerr "github.com/ewoutp/go-aggregate-error"
)

// API of the bridge, the hardware that exposes the local GPIO pins the
// shift registers are wired to.
type API interface {
	// Name returns the type of bridge.
	Name() string
	// Input initializes a GPIO input pin with the given pin number.
	Input(pinNumber int, activeLow bool) (InputPin, error)
	// Output initializes a GPIO output pin with the given pin number
	// and initial logical value.
	Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error)
	// Close releases all pins.
	Close() error
}

// InputPin is the interface satisfied by GPIO input pins.
type InputPin interface {
	Read() (bool, error)
}

// OutputPin is the interface satisfied by GPIO output pins.
type OutputPin interface {
	Write(bool) error
}

// pinSet keeps track of opened pins, so they can be released on close.
type pinSet struct {
	mutex sync.Mutex
	pins  []interface{}
}

func (s *pinSet) add(pin interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.pins = append(s.pins, pin)
	pinsOpenGauge.Inc()
}

// closeAll closes all pins that implement io.Closer or have a Halt method.
func (s *pinSet) closeAll() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var ae aerr.AggregateError
	for _, p := range s.pins {
		switch p := p.(type) {
		case io.Closer:
			if err := p.Close(); err != nil {
				ae.Add(err)
			}
		case interface{ Halt() error }:
			if err := p.Halt(); err != nil {
				ae.Add(err)
			}
		}
		pinsOpenGauge.Dec()
	}
	s.pins = nil
	return ae.AsError()
}
