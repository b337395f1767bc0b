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

package shiftreg

import (
	"github.com/rs/zerolog"
)

// OutputDriver shifts bytes into a serial-in/parallel-out register and
// latches them onto its outputs.
//
// Protocol: for every bit (MSB first) the data line is set while the clock
// line is low, the register shifts on the rising clock edge. After 8 bits
// a rising edge on the latch line copies the shift stage to the outputs.
type OutputDriver struct {
	log    zerolog.Logger
	clock  OutputLine
	latch  OutputLine
	data   OutputLine
	enable OutputLine
	value  byte
}

// NewOutputDriver creates a driver for the output register wired to the
// given lines. The enable line is the active-low output enable.
func NewOutputDriver(log zerolog.Logger, clock, latch, data, enable OutputLine) *OutputDriver {
	return &OutputDriver{
		log:    log.With().Str("register", registerOutput).Logger(),
		clock:  clock,
		latch:  latch,
		data:   data,
		enable: enable,
	}
}

// Send shifts the given value into the register and latches it.
// The committed value is only updated when the whole transfer succeeded.
func (d *OutputDriver) Send(value byte) error {
	for i := 0; i < BitCount; i++ {
		if err := d.data.Write(value&wireMask(i) != 0); err != nil {
			return d.fault(lineFault("data_out", err))
		}
		if err := d.clock.Write(false); err != nil {
			return d.fault(lineFault("clock_out", err))
		}
		if err := d.clock.Write(true); err != nil {
			return d.fault(lineFault("clock_out", err))
		}
	}
	if err := d.latch.Write(false); err != nil {
		return d.fault(lineFault("latch_out", err))
	}
	if err := d.latch.Write(true); err != nil {
		return d.fault(lineFault("latch_out", err))
	}
	d.value = value
	transfersTotal.WithLabelValues(registerOutput).Inc()
	outputValueGauge.Set(float64(value))
	d.log.Debug().Str("bits", FormatBits(value)).Msg("latched")
	return nil
}

// Value returns the last value committed by Send.
func (d *OutputDriver) Value() byte {
	return d.value
}

// SetEnabled drives the active-low output enable line.
func (d *OutputDriver) SetEnabled(on bool) error {
	if err := d.enable.Write(!on); err != nil {
		return d.fault(lineFault("enable_out", err))
	}
	return nil
}

// Reset clears the register while its outputs are disabled and enables
// the outputs afterwards, so no stale pattern is ever visible.
func (d *OutputDriver) Reset() error {
	if err := d.SetEnabled(false); err != nil {
		return err
	}
	if err := d.Send(0); err != nil {
		return err
	}
	if err := d.SetEnabled(true); err != nil {
		return err
	}
	return nil
}

func (d *OutputDriver) fault(err error) error {
	faultsTotal.WithLabelValues(registerOutput).Inc()
	d.log.Debug().Err(err).Msg("transfer aborted")
	return err
}
