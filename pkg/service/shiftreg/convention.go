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

// Package shiftreg implements bit-banged transfers to a 74HC595 style
// output shift register and from a 74HC165 style input shift register.
package shiftreg

const (
	// BitCount is the number of bits shifted per transfer.
	BitCount = 8

	// MSBFirst is true when the most significant bit travels first on
	// the serial data line, in both directions.
	MSBFirst = true

	// ActiveLowInput is true when a low level on the serial input line
	// denotes a set bit (closed switch).
	ActiveLowInput = true
)

// OutputLine is a GPIO line driven by the controller.
type OutputLine interface {
	Write(bool) error
}

// InputLine is a GPIO line sampled by the controller.
type InputLine interface {
	Read() (bool, error)
}

// wireMask returns the mask of the bit that is transferred in slot i (0..7)
// of a transfer.
func wireMask(i int) byte {
	if MSBFirst {
		return 0x80 >> uint(i)
	}
	return 0x01 << uint(i)
}

// levelToBit converts a sampled line level into a bit value.
func levelToBit(level bool) bool {
	if ActiveLowInput {
		return !level
	}
	return level
}

// FormatBits renders a byte as a string of 0/1 digits, most significant
// bit first.
func FormatBits(v byte) string {
	var out [BitCount]byte
	mask := byte(0x80)
	for i := range out {
		if v&mask == 0 {
			out[i] = '0'
		} else {
			out[i] = '1'
		}
		mask >>= 1
	}
	return string(out[:])
}
