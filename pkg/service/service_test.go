package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/ShiftWorker/model"
	"github.com/binkynet/ShiftWorker/pkg/service/bridge"
	"github.com/binkynet/ShiftWorker/pkg/service/shiftreg"
	"github.com/binkynet/ShiftWorker/pkg/service/status"
)

func newTestService(t *testing.T) (Service, *bridge.VirtualBridge, *status.Hub) {
	conf := Config{LocalConfiguration: model.DefaultLocalConfiguration()}
	conf.DebounceWindow = time.Millisecond
	br, err := bridge.NewVirtualBridge(conf.Pins)
	require.NoError(t, err)
	hub := status.NewHub()
	t.Cleanup(hub.Close)
	svc, err := NewService(conf, Dependencies{
		Logger: zerolog.Nop(),
		Bridge: br,
		Hub:    hub,
	})
	require.NoError(t, err)
	return svc, br, hub
}

func TestNewServiceConfiguresIdleLevels(t *testing.T) {
	_, br, _ := newTestService(t)
	pins := model.DefaultPinAssignment()
	require.False(t, br.OutputsEnabled())
	require.False(t, br.Level(pins.ClockOut))
	require.False(t, br.Level(pins.LatchOut))
	require.True(t, br.Level(pins.LoadIn))
	require.True(t, br.Level(pins.ClockIn))
}

func TestServiceEchoesInputs(t *testing.T) {
	svc, br, hub := newTestService(t)
	br.SetInputLevels(^byte(0x81))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		s := hub.Snapshot()
		return s.Input == 0x81 && s.Output == 0x81
	}, time.Second*5, time.Millisecond*5)
	require.True(t, br.OutputsEnabled())
	require.Equal(t, byte(0x81), br.Latched())

	br.SetInputLevels(0xff)
	require.Eventually(t, func() bool {
		return br.Latched() == 0
	}, time.Second*5, time.Millisecond*5)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, svc.Close())
	require.False(t, br.OutputsEnabled())
}

func TestServiceStopsOnHardwareFault(t *testing.T) {
	svc, br, hub := newTestService(t)
	pins := model.DefaultPinAssignment()

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()
	require.Eventually(t, func() bool {
		return hub.Snapshot().Running()
	}, time.Second*5, time.Millisecond*5)

	br.FailPin(pins.ClockIn, errors.New("EIO"))
	select {
	case err := <-done:
		require.True(t, shiftreg.IsHardwareFault(err))
	case <-time.After(time.Second * 5):
		t.Fatal("service did not stop")
	}
	require.NotEmpty(t, hub.Snapshot().Fault)
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	conf := Config{LocalConfiguration: model.DefaultLocalConfiguration()}
	br, err := bridge.NewVirtualBridge(conf.Pins)
	require.NoError(t, err)
	conf.Pins.DataIn = conf.Pins.ClockOut
	_, err = NewService(conf, Dependencies{Logger: zerolog.Nop(), Bridge: br, Hub: status.NewHub()})
	require.True(t, model.IsValidationError(err))
}

func TestNewServiceReportsPinFailures(t *testing.T) {
	conf := Config{LocalConfiguration: model.DefaultLocalConfiguration()}
	other := conf.Pins
	other.DataIn = 40
	// Bridge wired differently than the configuration
	br, err := bridge.NewVirtualBridge(other)
	require.NoError(t, err)
	_, err = NewService(conf, Dependencies{Logger: zerolog.Nop(), Bridge: br, Hub: status.NewHub()})
	require.Error(t, err)
	require.Contains(t, err.Error(), "data_in")
}
