package status

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHubKeepsLatestSnapshot(t *testing.T) {
	h := NewHub()
	defer h.Close()

	require.False(t, h.Snapshot().Running())
	h.Publish(Snapshot{Sequence: 1, Input: 0x12, Output: 0x12})
	h.Publish(Snapshot{Sequence: 2, Input: 0x34, Output: 0x34})
	s := h.Snapshot()
	require.Equal(t, uint64(2), s.Sequence)
	require.Equal(t, byte(0x34), s.Input)
	require.True(t, s.Running())
}

func TestHubDeliversToSubscribers(t *testing.T) {
	h := NewHub()
	defer h.Close()

	var received uint64
	require.NoError(t, h.Subscribe(func(s Snapshot) {
		atomic.StoreUint64(&received, s.Sequence)
	}))
	h.Publish(Snapshot{Sequence: 7})
	require.Eventually(t, func() bool {
		return atomic.LoadUint64(&received) == 7
	}, time.Second, time.Millisecond*5)
}

func TestHubNotify(t *testing.T) {
	h := NewHub()
	defer h.Close()

	ch, err := h.Notify()
	require.NoError(t, err)
	h.Publish(Snapshot{Sequence: 1})
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}
}

func TestSnapshotRunning(t *testing.T) {
	require.False(t, Snapshot{}.Running())
	require.True(t, Snapshot{Sequence: 1}.Running())
	require.False(t, Snapshot{Sequence: 1, Fault: "hardware fault"}.Running())
}
