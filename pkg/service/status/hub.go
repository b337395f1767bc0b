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

package status

import (
	"sync"
	"time"

	pubsub "github.com/mattn/go-pubsub"
)

// Snapshot describes the state of the loopback after a polling cycle.
type Snapshot struct {
	// Sequence number of the cycle, starting at 1
	Sequence uint64 `json:"sequence"`
	// Last accepted (debounced) input value
	Input byte `json:"input"`
	// Last value latched onto the output register
	Output byte `json:"output"`
	// Set when the last sample produced a fresh reading
	Accepted bool `json:"accepted"`
	// Number of samples rejected because the reads disagreed
	Rejected uint64 `json:"rejected"`
	// Time of the last sample that produced a fresh reading
	LastAcceptedAt time.Time `json:"last_accepted_at,omitempty"`
	// Time the value of Input last changed
	LastChangeAt time.Time `json:"last_change_at,omitempty"`
	// Hardware fault that stopped the loop, if any
	Fault string `json:"fault,omitempty"`
}

// Running returns true when the loop has produced at least one cycle
// and has not stopped on a fault.
func (s Snapshot) Running() bool {
	return s.Sequence > 0 && s.Fault == ""
}

// Hub keeps the latest snapshot and fans out updates to subscribers.
type Hub struct {
	mutex  sync.Mutex
	last   Snapshot
	events *pubsub.PubSub
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		events: pubsub.New(),
	}
}

// Publish stores the given snapshot and notifies all subscribers.
func (h *Hub) Publish(s Snapshot) {
	h.mutex.Lock()
	h.last = s
	h.mutex.Unlock()
	h.events.Pub(s)
}

// Snapshot returns the latest published snapshot.
func (h *Hub) Snapshot() Snapshot {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.last
}

// Subscribe registers a callback that is invoked asynchronously for every
// published snapshot. Delivery order is not guaranteed; use Snapshot for
// the authoritative state.
func (h *Hub) Subscribe(cb func(Snapshot)) error {
	return h.events.Sub(cb)
}

// Notify returns a channel that receives a signal after every publish.
// Signals are coalesced when the receiver is slow.
func (h *Hub) Notify() (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	if err := h.Subscribe(func(Snapshot) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}); err != nil {
		return nil, err
	}
	return ch, nil
}

// Close stops delivery to subscribers.
func (h *Hub) Close() {
	h.events.Close()
}
