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

// InputDriver captures the parallel inputs of a parallel-in/serial-out
// register and shifts them in as a single byte.
type InputDriver struct {
	log   zerolog.Logger
	load  OutputLine
	clock OutputLine
	data  InputLine
}

// NewInputDriver creates a driver for the input register wired to the
// given lines. The load line is the active-low parallel load strobe.
func NewInputDriver(log zerolog.Logger, load, clock OutputLine, data InputLine) *InputDriver {
	return &InputDriver{
		log:   log.With().Str("register", registerInput).Logger(),
		load:  load,
		clock: clock,
		data:  data,
	}
}

// Read strobes the load line and shifts in 8 bits.
// A line sampled low yields a set bit.
func (d *InputDriver) Read() (byte, error) {
	if err := d.load.Write(false); err != nil {
		return 0, d.fault(lineFault("load_in", err))
	}
	if err := d.load.Write(true); err != nil {
		return 0, d.fault(lineFault("load_in", err))
	}
	var result byte
	for i := 0; i < BitCount; i++ {
		if err := d.clock.Write(false); err != nil {
			return 0, d.fault(lineFault("clock_in", err))
		}
		level, err := d.data.Read()
		if err != nil {
			return 0, d.fault(lineFault("data_in", err))
		}
		if levelToBit(level) {
			result |= wireMask(i)
		}
		if err := d.clock.Write(true); err != nil {
			return 0, d.fault(lineFault("clock_in", err))
		}
	}
	transfersTotal.WithLabelValues(registerInput).Inc()
	d.log.Debug().Str("bits", FormatBits(result)).Msg("captured")
	return result, nil
}

func (d *InputDriver) fault(err error) error {
	faultsTotal.WithLabelValues(registerInput).Inc()
	d.log.Debug().Err(err).Msg("transfer aborted")
	return err
}
