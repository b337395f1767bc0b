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

package debounce

import (
	"time"

	"github.com/rs/zerolog"
)

// Reader produces raw snapshots of the input register.
type Reader interface {
	Read() (byte, error)
}

// Clock provides the blocking wait between two reads.
type Clock interface {
	Sleep(d time.Duration)
}

// SystemClock blocks the calling goroutine using time.Sleep.
type SystemClock struct{}

// Sleep blocks for the given duration.
func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// Result of a single sample.
type Result struct {
	// Value is the last accepted value. It is retained unchanged when
	// the two raw reads disagree.
	Value byte
	// Accepted is set when both raw reads agreed in this sample,
	// i.e. Value is a fresh reading.
	Accepted bool
	// First and Second are the raw reads of this sample.
	First  byte
	Second byte
}

// Sampler accepts an input value only when two reads, separated by the
// debounce window, agree.
type Sampler struct {
	log    zerolog.Logger
	reader Reader
	clock  Clock
	window time.Duration
	last   byte
}

// NewSampler creates a sampler on top of the given reader.
// The initial accepted value is 0.
func NewSampler(log zerolog.Logger, reader Reader, clock Clock, window time.Duration) *Sampler {
	return &Sampler{
		log:    log.With().Str("component", "debounce").Logger(),
		reader: reader,
		clock:  clock,
		window: window,
	}
}

// Sample reads the input twice with the debounce window in between.
// On agreement the reading becomes the new accepted value, otherwise the
// previous accepted value is kept.
func (s *Sampler) Sample() (Result, error) {
	first, err := s.reader.Read()
	if err != nil {
		return Result{Value: s.last}, maskAny(err)
	}
	s.clock.Sleep(s.window)
	second, err := s.reader.Read()
	if err != nil {
		return Result{Value: s.last, First: first}, maskAny(err)
	}
	result := Result{
		First:  first,
		Second: second,
	}
	if first == second {
		if s.last != first {
			acceptedChangesTotal.Inc()
		}
		s.last = first
		result.Accepted = true
		acceptedTotal.Inc()
	} else {
		rejectedTotal.Inc()
		s.log.Debug().
			Uint8("first", first).
			Uint8("second", second).
			Uint8("kept", s.last).
			Msg("reads disagree")
	}
	result.Value = s.last
	acceptedValueGauge.Set(float64(s.last))
	return result, nil
}

// Last returns the last accepted value.
func (s *Sampler) Last() byte {
	return s.last
}

// Window returns the settling time between the two reads.
func (s *Sampler) Window() time.Duration {
	return s.window
}
