package lane

import (
	"sync"

	"github.com/nymtech/nym-client-outqueue/mixmsg"
)

// QueueLengths is a concurrently readable snapshot of per-lane queue
// sizes. The engine is the sole writer (once per tick, inside
// Buffer.PopNextMessageAtRandom and the explicit mutators below);
// producers are many concurrent readers deciding whether to keep
// enqueueing. A reader may observe a value up to one scheduler tick
// stale, which spec.md's invariants explicitly permit.
type QueueLengths struct {
	mu      sync.RWMutex
	lengths map[mixmsg.TransmissionLane]int
}

// NewQueueLengths constructs an empty, ready-to-use QueueLengths.
func NewQueueLengths() *QueueLengths {
	return &QueueLengths{lengths: make(map[mixmsg.TransmissionLane]int)}
}

// Get returns the published length for lane, or 0 if the lane is unknown
// (including lanes that were never populated, or have since been removed).
func (q *QueueLengths) Get(lane mixmsg.TransmissionLane) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.lengths[lane]
}

// Snapshot returns a copy of the full lane->length map, for the status
// reporter.
func (q *QueueLengths) Snapshot() map[mixmsg.TransmissionLane]int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make(map[mixmsg.TransmissionLane]int, len(q.lengths))
	for k, v := range q.lengths {
		out[k] = v
	}
	return out
}

// set publishes length as the current size of lane. A length of 0 removes
// the lane from the map entirely, so Snapshot/Get never report stale
// zero-entries for lanes that no longer exist.
func (q *QueueLengths) set(lane mixmsg.TransmissionLane, length int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if length <= 0 {
		delete(q.lengths, lane)
		return
	}
	q.lengths[lane] = length
}
