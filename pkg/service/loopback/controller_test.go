package loopback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/binkynet/ShiftWorker/model"
	"github.com/binkynet/ShiftWorker/pkg/service/bridge"
	"github.com/binkynet/ShiftWorker/pkg/service/debounce"
	"github.com/binkynet/ShiftWorker/pkg/service/shiftreg"
	"github.com/binkynet/ShiftWorker/pkg/service/status"
)

type recordingSender struct {
	sent  []byte
	value byte
	fail  error
}

func (s *recordingSender) Send(value byte) error {
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, value)
	s.value = value
	return nil
}

func (s *recordingSender) Value() byte {
	return s.value
}

type recordingPublisher struct {
	mutex     sync.Mutex
	snapshots []status.Snapshot
}

func (p *recordingPublisher) Publish(s status.Snapshot) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.snapshots = append(p.snapshots, s)
}

func (p *recordingPublisher) last() status.Snapshot {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.snapshots[len(p.snapshots)-1]
}

// clockFunc runs a callback during the debounce window.
type clockFunc func(d time.Duration)

func (f clockFunc) Sleep(d time.Duration) { f(d) }

type rig struct {
	bridge    *bridge.VirtualBridge
	sender    *shiftreg.OutputDriver
	publisher *recordingPublisher
	ctrl      *Controller
	duringGap func()
}

// newRig wires a controller to a virtual bridge through the real drivers.
func newRig(t *testing.T) *rig {
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
	log := zerolog.Nop()
	r := &rig{bridge: b, publisher: &recordingPublisher{}}
	r.sender = shiftreg.NewOutputDriver(log,
		out(pins.ClockOut, false), out(pins.LatchOut, false), out(pins.DataOut, false), out(pins.EnableOut, true))
	input := shiftreg.NewInputDriver(log, out(pins.LoadIn, true), out(pins.ClockIn, true), data)
	clock := clockFunc(func(time.Duration) {
		if r.duringGap != nil {
			r.duringGap()
		}
	})
	sampler := debounce.NewSampler(log, input, clock, model.DefaultDebounceWindow)
	r.ctrl = NewController(log, sampler, r.sender, r.publisher)
	require.NoError(t, r.sender.Reset())
	return r
}

func TestStepEchoesStableInput(t *testing.T) {
	r := newRig(t)
	// Switches 7, 5 and 4 closed
	r.bridge.SetInputLevels(^byte(0xb0))
	require.NoError(t, r.ctrl.Step())
	require.Equal(t, byte(0xb0), r.bridge.Latched())

	s := r.publisher.last()
	require.Equal(t, uint64(1), s.Sequence)
	require.Equal(t, byte(0xb0), s.Input)
	require.Equal(t, byte(0xb0), s.Output)
	require.True(t, s.Accepted)
	require.True(t, s.Running())
}

func TestStepSendsExactlyOnce(t *testing.T) {
	sampler := debounce.NewSampler(zerolog.Nop(), fixedReader(0x5a), clockFunc(func(time.Duration) {}), 0)
	sender := &recordingSender{}
	c := NewController(zerolog.Nop(), sampler, sender, &recordingPublisher{})
	require.NoError(t, c.Step())
	require.Equal(t, []byte{0x5a}, sender.sent)
}

func TestStepKeepsOutputOnGlitch(t *testing.T) {
	r := newRig(t)
	r.bridge.SetInputLevels(^byte(0x0f))
	require.NoError(t, r.ctrl.Step())
	require.Equal(t, byte(0x0f), r.bridge.Latched())

	// Input bounces between the two reads
	r.duringGap = func() { r.bridge.SetInputLevels(^byte(0x1f)) }
	r.bridge.SetInputLevels(^byte(0xff))
	require.NoError(t, r.ctrl.Step())
	require.Equal(t, byte(0x0f), r.bridge.Latched())
	s := r.publisher.last()
	require.False(t, s.Accepted)
	require.Equal(t, uint64(1), s.Rejected)

	// Settled
	r.duringGap = nil
	require.NoError(t, r.ctrl.Step())
	require.Equal(t, byte(0x1f), r.bridge.Latched())
}

func TestStepBoundaryPatterns(t *testing.T) {
	r := newRig(t)
	r.bridge.SetInputLevels(0x00)
	require.NoError(t, r.ctrl.Step())
	require.Equal(t, byte(0xff), r.bridge.Latched())

	r.bridge.SetInputLevels(0xff)
	require.NoError(t, r.ctrl.Step())
	require.Equal(t, byte(0x00), r.bridge.Latched())
}

func TestStepFaultIsReported(t *testing.T) {
	r := newRig(t)
	pins := model.DefaultPinAssignment()
	r.bridge.FailPin(pins.DataIn, errors.New("EIO"))
	err := r.ctrl.Step()
	require.Error(t, err)
	require.True(t, shiftreg.IsHardwareFault(err))
	s := r.publisher.last()
	require.NotEmpty(t, s.Fault)
	require.False(t, s.Running())
}

func TestStepSendFault(t *testing.T) {
	sampler := debounce.NewSampler(zerolog.Nop(), fixedReader(0x01), clockFunc(func(time.Duration) {}), 0)
	sender := &recordingSender{fail: errors.New("EIO")}
	c := NewController(zerolog.Nop(), sampler, sender, &recordingPublisher{})
	require.Error(t, c.Step())
	require.Equal(t, uint64(0), c.Cycles())
}

func TestRunStopsOnCancel(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	r.duringGap = func() {
		if r.ctrl.Cycles() >= 3 {
			cancel()
		}
	}
	require.NoError(t, r.ctrl.Run(ctx))
	require.Equal(t, uint64(4), r.ctrl.Cycles())
}

func TestRunReturnsFault(t *testing.T) {
	r := newRig(t)
	pins := model.DefaultPinAssignment()
	r.duringGap = func() {
		if r.ctrl.Cycles() == 2 {
			r.bridge.FailPin(pins.LatchOut, errors.New("EIO"))
		}
	}
	err := r.ctrl.Run(context.Background())
	require.True(t, shiftreg.IsHardwareFault(err))
	require.Equal(t, uint64(2), r.ctrl.Cycles())
}

type fixedReader byte

func (r fixedReader) Read() (byte, error) { return byte(r), nil }
