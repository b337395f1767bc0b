package shiftreg

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestInputDriver(s *sim165) *InputDriver {
	return NewInputDriver(zerolog.Nop(), s.load, s.clock, s.data)
}

func TestReadInvertsLineLevels(t *testing.T) {
	for p := 0; p <= 0xff; p++ {
		s := newSim165(byte(p))
		d := newTestInputDriver(s)
		v, err := d.Read()
		require.NoError(t, err)
		require.Equal(t, ^byte(p), v, "parallel levels %08b", p)
	}
}

func TestReadBoundaries(t *testing.T) {
	// All lines low (all switches closed)
	v, err := newTestInputDriver(newSim165(0x00)).Read()
	require.NoError(t, err)
	require.Equal(t, byte(0xff), v)

	// All lines high (all switches open)
	v, err = newTestInputDriver(newSim165(0xff)).Read()
	require.NoError(t, err)
	require.Equal(t, byte(0x00), v)
}

func TestReadLineSequence(t *testing.T) {
	s := newSim165(0x4f)
	_, err := newTestInputDriver(s).Read()
	require.NoError(t, err)

	events := s.trace.events
	require.Len(t, events, 2+3*BitCount)
	require.Equal(t, lineEvent{line: "load", level: false}, events[0])
	require.Equal(t, lineEvent{line: "load", level: true}, events[1])
	for i := 0; i < BitCount; i++ {
		step := events[2+3*i : 5+3*i]
		require.Equal(t, "clock", step[0].line)
		require.False(t, step[0].level)
		require.Equal(t, "data", step[1].line)
		require.True(t, step[1].read)
		require.Equal(t, "clock", step[2].line)
		require.True(t, step[2].level)
	}
}

func TestReadSnapshotIgnoresLaterChanges(t *testing.T) {
	s := newSim165(0xf0)
	d := newTestInputDriver(s)
	// Inputs change right after the load strobe
	s.load.onWrite = func(prev, next bool) {
		if !next {
			s.shift = s.parallel
		} else {
			s.parallel = 0x0f
		}
	}
	v, err := d.Read()
	require.NoError(t, err)
	require.Equal(t, byte(0x0f), v)
}

func TestReadFaults(t *testing.T) {
	s := newSim165(0)
	s.data.fail = errors.New("EIO")
	v, err := newTestInputDriver(s).Read()
	require.True(t, IsHardwareFault(err))
	require.Contains(t, err.Error(), "data_in")
	require.Equal(t, byte(0), v)

	s = newSim165(0)
	s.load.fail = errors.New("EIO")
	_, err = newTestInputDriver(s).Read()
	require.True(t, IsHardwareFault(err))
	require.Contains(t, err.Error(), "load_in")
}
