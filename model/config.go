package model

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultDebounceWindow is the settling time between the two reads
	// of a debounced sample.
	DefaultDebounceWindow = time.Millisecond * 20
)

// LocalConfiguration holds the hardware related settings of the worker.
type LocalConfiguration struct {
	// Wiring of both shift registers
	Pins PinAssignment `json:"pins"`
	// Settling time between two reads of the input register
	DebounceWindow time.Duration `json:"debounce_window"`
}

// DefaultLocalConfiguration returns the configuration of the reference board.
func DefaultLocalConfiguration() LocalConfiguration {
	return LocalConfiguration{
		Pins:           DefaultPinAssignment(),
		DebounceWindow: DefaultDebounceWindow,
	}
}

func (c LocalConfiguration) Validate() error {
	if err := c.Pins.Validate(); err != nil {
		return maskAny(err)
	}
	if c.DebounceWindow < 0 {
		return errors.Wrapf(ValidationError, "debounce window must be >= 0, got %s", c.DebounceWindow)
	}
	return nil
}
