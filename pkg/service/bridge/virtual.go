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
	"fmt"
	"sync"

	"github.com/binkynet/ShiftWorker/model"
)

// VirtualBridge simulates a 74HC595 output register and a 74HC165 input
// register wired to the given pin assignment. The parallel inputs of the
// input register can be changed at any time.
type VirtualBridge struct {
	mutex    sync.Mutex
	pins     model.PinAssignment
	levels   map[int]bool
	opened   map[int]bool
	failures map[int]error

	// Physical levels of the parallel inputs (bit 7 = input H, shifted out first)
	inputLevels byte
	inputShift  byte

	outputShift   byte
	outputLatched byte
}

var _ API = &VirtualBridge{}

// NewVirtualBridge implements the bridge for a virtual worker.
// All parallel inputs start high (all switches open).
func NewVirtualBridge(pins model.PinAssignment) (*VirtualBridge, error) {
	if err := pins.Validate(); err != nil {
		return nil, err
	}
	return &VirtualBridge{
		pins:        pins,
		levels:      make(map[int]bool),
		opened:      make(map[int]bool),
		failures:    make(map[int]error),
		inputLevels: 0xff,
	}, nil
}

// Name returns the type of bridge.
func (b *VirtualBridge) Name() string {
	return "virtual"
}

// Input initializes a GPIO input pin with the given pin number.
func (b *VirtualBridge) Input(pinNumber int, activeLow bool) (InputPin, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if pinNumber != b.pins.DataIn {
		return nil, fmt.Errorf("Invalid input pin %d", pinNumber)
	}
	if err := b.open(pinNumber); err != nil {
		return nil, err
	}
	return &virtualPin{bridge: b, pin: pinNumber, activeLow: activeLow}, nil
}

// Output initializes a GPIO output pin with the given pin number
// and initial logical value.
func (b *VirtualBridge) Output(pinNumber int, activeLow bool, initialValue bool) (OutputPin, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if pinNumber == b.pins.DataIn {
		return nil, fmt.Errorf("Invalid output pin %d", pinNumber)
	}
	if err := b.open(pinNumber); err != nil {
		return nil, err
	}
	b.levels[pinNumber] = initialValue != activeLow
	return &virtualPin{bridge: b, pin: pinNumber, activeLow: activeLow}, nil
}

func (b *VirtualBridge) open(pinNumber int) error {
	if b.opened[pinNumber] {
		return fmt.Errorf("Pin %d already in use", pinNumber)
	}
	b.opened[pinNumber] = true
	pinsOpenGauge.Inc()
	return nil
}

// Close releases all pins.
func (b *VirtualBridge) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	pinsOpenGauge.Sub(float64(len(b.opened)))
	b.opened = make(map[int]bool)
	return nil
}

// SetInputLevels sets the physical levels of the 8 parallel inputs of the
// input register. A closed switch pulls its input low.
func (b *VirtualBridge) SetInputLevels(levels byte) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.inputLevels = levels
}

// InputLevels returns the physical levels of the parallel inputs.
func (b *VirtualBridge) InputLevels() byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.inputLevels
}

// Latched returns the content of the storage stage of the output register.
func (b *VirtualBridge) Latched() byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.outputLatched
}

// OutputsEnabled returns true when the (active low) output enable is low.
func (b *VirtualBridge) OutputsEnabled() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return !b.levels[b.pins.EnableOut]
}

// Level returns the physical level of the given output pin.
func (b *VirtualBridge) Level(pinNumber int) bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return b.levels[pinNumber]
}

// FailPin makes every following access of the given pin fail with the given
// error. Pass nil to restore the pin.
func (b *VirtualBridge) FailPin(pinNumber int, err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err == nil {
		delete(b.failures, pinNumber)
	} else {
		b.failures[pinNumber] = err
	}
}

// write sets the physical level of an output pin and runs the register
// logic on the resulting edge.
func (b *VirtualBridge) write(pinNumber int, level bool) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := b.failures[pinNumber]; err != nil {
		return err
	}
	prev := b.levels[pinNumber]
	b.levels[pinNumber] = level
	rising := !prev && level

	switch pinNumber {
	case b.pins.ClockOut:
		if rising {
			b.outputShift <<= 1
			if b.levels[b.pins.DataOut] {
				b.outputShift |= 0x01
			}
		}
	case b.pins.LatchOut:
		if rising {
			b.outputLatched = b.outputShift
		}
	case b.pins.LoadIn:
		if !level {
			// Parallel load is asynchronous while PL is low
			b.inputShift = b.inputLevels
		}
	case b.pins.ClockIn:
		if rising && b.levels[b.pins.LoadIn] {
			b.inputShift <<= 1
		}
	}
	return nil
}

// read returns the physical level of an input pin.
func (b *VirtualBridge) read(pinNumber int) (bool, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := b.failures[pinNumber]; err != nil {
		return false, err
	}
	return b.inputShift&0x80 != 0, nil
}

type virtualPin struct {
	bridge    *VirtualBridge
	pin       int
	activeLow bool
}

func (p *virtualPin) Read() (bool, error) {
	level, err := p.bridge.read(p.pin)
	if err != nil {
		return false, err
	}
	return level != p.activeLow, nil
}

func (p *virtualPin) Write(value bool) error {
	return p.bridge.write(p.pin, value != p.activeLow)
}
