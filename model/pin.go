package model

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// PinAssignment maps the logical lines of both shift registers onto
// physical GPIO pin numbers.
type PinAssignment struct {
	// Shift clock of the output register (SHCP)
	ClockOut int `json:"clock_out"`
	// Storage/latch clock of the output register (STCP)
	LatchOut int `json:"latch_out"`
	// Serial data into the output register (DS)
	DataOut int `json:"data_out"`
	// Output enable of the output register (OE, active low)
	EnableOut int `json:"enable_out"`
	// Parallel load strobe of the input register (PL, active low)
	LoadIn int `json:"load_in"`
	// Shift clock of the input register (CP)
	ClockIn int `json:"clock_in"`
	// Serial data out of the input register (Q7)
	DataIn int `json:"data_in"`
}

// DefaultPinAssignment returns the wiring of the reference board.
func DefaultPinAssignment() PinAssignment {
	return PinAssignment{
		ClockOut:  22,
		LatchOut:  23,
		DataOut:   12,
		EnableOut: 13,
		LoadIn:    0,
		ClockIn:   2,
		DataIn:    15,
	}
}

// OutputPins returns the pins used by the output register, keyed by role.
func (p PinAssignment) OutputPins() map[string]int {
	return map[string]int{
		"clock_out":  p.ClockOut,
		"latch_out":  p.LatchOut,
		"data_out":   p.DataOut,
		"enable_out": p.EnableOut,
	}
}

// InputPins returns the pins used by the input register, keyed by role.
func (p PinAssignment) InputPins() map[string]int {
	return map[string]int{
		"load_in":  p.LoadIn,
		"clock_in": p.ClockIn,
		"data_in":  p.DataIn,
	}
}

// Validate checks that every role has a pin and that no pin is used twice.
// The output and input pin sets must be disjoint.
func (p PinAssignment) Validate() error {
	used := make(map[int]string)
	check := func(roles map[string]int) error {
		for _, role := range sortedRoles(roles) {
			pin := roles[role]
			if pin < 0 {
				return errors.Wrapf(ValidationError, "pin of '%s' must be >= 0, got %d", role, pin)
			}
			if other, found := used[pin]; found {
				return errors.Wrapf(ValidationError, "pin %d is used by both '%s' and '%s'", pin, other, role)
			}
			used[pin] = role
		}
		return nil
	}
	if err := check(p.OutputPins()); err != nil {
		return err
	}
	if err := check(p.InputPins()); err != nil {
		return err
	}
	return nil
}

func (p PinAssignment) String() string {
	return fmt.Sprintf("out(clock=%d latch=%d data=%d enable=%d) in(load=%d clock=%d data=%d)",
		p.ClockOut, p.LatchOut, p.DataOut, p.EnableOut, p.LoadIn, p.ClockIn, p.DataIn)
}

// sortedRoles returns the role names in a stable order, so validation
// errors are reproducible.
func sortedRoles(roles map[string]int) []string {
	result := make([]string, 0, len(roles))
	for role := range roles {
		result = append(result, role)
	}
	sort.Strings(result)
	return result
}
