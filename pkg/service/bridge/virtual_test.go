package bridge_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/ShiftWorker/model"
	"github.com/binkynet/ShiftWorker/pkg/service/bridge"
	"github.com/binkynet/ShiftWorker/pkg/service/shiftreg"
)

func newDrivers(t *testing.T) (*bridge.VirtualBridge, *shiftreg.OutputDriver, *shiftreg.InputDriver) {
	pins := model.DefaultPinAssignment()
	b, err := bridge.NewVirtualBridge(pins)
	require.NoError(t, err)
	out := func(pin int, initial bool) bridge.OutputPin {
		p, err := b.Output(pin, false, initial)
		require.NoError(t, err)
		return p
	}
	data, err := b.Input(pins.DataIn, false)
	require.NoError(t, err)
	o := shiftreg.NewOutputDriver(zerolog.Nop(),
		out(pins.ClockOut, false), out(pins.LatchOut, false), out(pins.DataOut, false), out(pins.EnableOut, true))
	i := shiftreg.NewInputDriver(zerolog.Nop(), out(pins.LoadIn, true), out(pins.ClockIn, true), data)
	return b, o, i
}

func TestVirtualOutputRoundTrip(t *testing.T) {
	b, o, _ := newDrivers(t)
	require.False(t, b.OutputsEnabled())
	require.NoError(t, o.Reset())
	require.True(t, b.OutputsEnabled())
	for v := 0; v <= 0xff; v++ {
		require.NoError(t, o.Send(byte(v)))
		require.Equal(t, byte(v), b.Latched())
	}
}

func TestVirtualInputIsActiveLow(t *testing.T) {
	b, _, i := newDrivers(t)
	// All inputs start high, nothing pressed
	v, err := i.Read()
	require.NoError(t, err)
	require.Equal(t, byte(0), v)

	for levels := 0; levels <= 0xff; levels++ {
		b.SetInputLevels(byte(levels))
		v, err := i.Read()
		require.NoError(t, err)
		require.Equal(t, ^byte(levels), v)
	}
}

func TestVirtualPinValidation(t *testing.T) {
	pins := model.DefaultPinAssignment()
	b, err := bridge.NewVirtualBridge(pins)
	require.NoError(t, err)
	_, err = b.Input(pins.ClockOut, false)
	require.Error(t, err)
	_, err = b.Output(pins.DataIn, false, false)
	require.Error(t, err)
	_, err = b.Output(pins.ClockOut, false, false)
	require.NoError(t, err)
	_, err = b.Output(pins.ClockOut, false, false)
	require.Error(t, err)
	require.NoError(t, b.Close())
	_, err = b.Output(pins.ClockOut, false, false)
	require.NoError(t, err)

	pins.DataIn = pins.DataOut
	_, err = bridge.NewVirtualBridge(pins)
	require.True(t, model.IsValidationError(err))
}

func TestVirtualFailPin(t *testing.T) {
	pins := model.DefaultPinAssignment()
	b, o, _ := newDrivers(t)
	b.FailPin(pins.DataOut, errors.New("EIO"))
	err := o.Send(0x01)
	require.True(t, shiftreg.IsHardwareFault(err))
	b.FailPin(pins.DataOut, nil)
	require.NoError(t, o.Send(0x01))
	require.Equal(t, byte(0x01), b.Latched())
}
