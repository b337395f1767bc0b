package shiftreg

import (
	"fmt"
)

type lineEvent struct {
	line  string
	level bool
	read  bool
}

func (e lineEvent) String() string {
	op := "W"
	if e.read {
		op = "R"
	}
	return fmt.Sprintf("%s %s=%v", op, e.line, e.level)
}

type lineTrace struct {
	events []lineEvent
}

func (t *lineTrace) strings() []string {
	result := make([]string, 0, len(t.events))
	for _, e := range t.events {
		result = append(result, e.String())
	}
	return result
}

type fakeOutput struct {
	name    string
	trace   *lineTrace
	level   bool
	fail    error
	onWrite func(prev, next bool)
}

func (l *fakeOutput) Write(v bool) error {
	if l.fail != nil {
		return l.fail
	}
	prev := l.level
	l.level = v
	l.trace.events = append(l.trace.events, lineEvent{line: l.name, level: v})
	if l.onWrite != nil {
		l.onWrite(prev, v)
	}
	return nil
}

type fakeInput struct {
	name  string
	trace *lineTrace
	fail  error
	level func() bool
}

func (l *fakeInput) Read() (bool, error) {
	if l.fail != nil {
		return false, l.fail
	}
	v := l.level()
	l.trace.events = append(l.trace.events, lineEvent{line: l.name, level: v, read: true})
	return v, nil
}

// sim595 emulates the shift and storage stages of a 74HC595.
type sim595 struct {
	trace   lineTrace
	clock   *fakeOutput
	latch   *fakeOutput
	data    *fakeOutput
	enable  *fakeOutput
	shift   byte
	latched byte
}

func newSim595() *sim595 {
	s := &sim595{}
	s.data = &fakeOutput{name: "data", trace: &s.trace}
	s.clock = &fakeOutput{name: "clock", trace: &s.trace, onWrite: func(prev, next bool) {
		if !prev && next {
			s.shift <<= 1
			if s.data.level {
				s.shift |= 0x01
			}
		}
	}}
	s.latch = &fakeOutput{name: "latch", trace: &s.trace, onWrite: func(prev, next bool) {
		if !prev && next {
			s.latched = s.shift
		}
	}}
	s.enable = &fakeOutput{name: "enable", trace: &s.trace, level: true}
	return s
}

// sim165 emulates a 74HC165 whose parallel inputs carry the given physical levels
// (bit 7 = input H, shifted out first).
type sim165 struct {
	trace    lineTrace
	load     *fakeOutput
	clock    *fakeOutput
	data     *fakeInput
	parallel byte
	shift    byte
}

func newSim165(parallel byte) *sim165 {
	s := &sim165{parallel: parallel}
	s.load = &fakeOutput{name: "load", trace: &s.trace, level: true, onWrite: func(prev, next bool) {
		if !next {
			s.shift = s.parallel
		}
	}}
	s.clock = &fakeOutput{name: "clock", trace: &s.trace, level: true, onWrite: func(prev, next bool) {
		if !prev && next && s.load.level {
			s.shift <<= 1
		}
	}}
	s.data = &fakeInput{name: "data", trace: &s.trace, level: func() bool {
		return s.shift&0x80 != 0
	}}
	return s
}
