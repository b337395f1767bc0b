// Copyright 2018 Ewout Prangsma
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

package logging

import (
	"io"

	"github.com/rs/zerolog"
)

type multiWriter struct {
	writers []io.Writer
}

// NewMultiWriter creates a new output for logs that writes to all
// given outputs. Outputs that implement zerolog.LevelWriter receive
// the level of every line.
func NewMultiWriter(writers ...io.Writer) zerolog.LevelWriter {
	l := &multiWriter{
		writers: writers,
	}
	return l
}

func (l *multiWriter) Write(p []byte) (n int, err error) {
	for _, w := range l.writers {
		if _, werr := w.Write(p); werr != nil && err == nil {
			err = werr
		}
	}
	return len(p), err
}

func (l *multiWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	for _, w := range l.writers {
		var werr error
		if lw, ok := w.(zerolog.LevelWriter); ok {
			_, werr = lw.WriteLevel(level, p)
		} else {
			_, werr = w.Write(p)
		}
		if werr != nil && err == nil {
			err = werr
		}
	}
	return len(p), err
}
