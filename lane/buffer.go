// Package lane implements the multi-lane transmission buffer and its
// published queue-length snapshot: spec.md §4.2 and §4.3.
package lane

import (
	"time"

	"github.com/nymtech/nym-client-outqueue/internal/xrand"
	"github.com/nymtech/nym-client-outqueue/mixmsg"
)

type laneQueue struct {
	fifo         *ring[mixmsg.RealMessage]
	lastInserted time.Time
	bytes        int
}

// Buffer maps a TransmissionLane to an ordered FIFO of ready-to-send real
// messages, alongside a wall-clock timestamp of each lane's last
// insertion (used for staleness pruning, spec.md §4.2). Buffer is
// single-owner: only the engine holding it may call its methods, per
// spec.md's ownership model — it is not safe for concurrent use.
type Buffer struct {
	lanes   map[mixmsg.TransmissionLane]*laneQueue
	lengths *QueueLengths

	// timeNow is overridable for deterministic staleness tests.
	timeNow func() time.Time
}

// NewBuffer constructs an empty Buffer publishing lane lengths into
// lengths. lengths may be shared read-only with producers.
func NewBuffer(lengths *QueueLengths) *Buffer {
	return &Buffer{
		lanes:   make(map[mixmsg.TransmissionLane]*laneQueue),
		lengths: lengths,
		timeNow: time.Now,
	}
}

// Store appends messages to lane's FIFO, refreshing the lane's
// last-insertion timestamp, and publishes the lane's new length.
func (b *Buffer) Store(lane mixmsg.TransmissionLane, messages []mixmsg.RealMessage) {
	if len(messages) == 0 {
		return
	}
	lq := b.lanes[lane]
	if lq == nil {
		lq = &laneQueue{fifo: newRing[mixmsg.RealMessage]()}
		b.lanes[lane] = lq
	}
	for _, m := range messages {
		lq.fifo.PushBack(m)
		lq.bytes += m.Packet.Size()
	}
	lq.lastInserted = b.timeNow()
	b.lengths.set(lane, lq.fifo.Len())
}

// PopNextMessageAtRandom draws uniformly at random among the currently
// non-empty lanes, using rng, and pops that lane's head message. It
// returns ok=false if the buffer holds no real messages at all, in which
// case the scheduler should synthesize a cover packet instead.
//
// This is the lane selection policy central to the engine's anonymity
// guarantees (spec.md §4.2): every non-empty lane, including retransmission
// and control lanes, participates in the same draw with equal weight, so
// no lane can be starved by another.
func (b *Buffer) PopNextMessageAtRandom(rng *xrand.Rand) (lane mixmsg.TransmissionLane, msg mixmsg.RealMessage, ok bool) {
	var nonEmpty []mixmsg.TransmissionLane
	for l, lq := range b.lanes {
		if lq.fifo.Len() > 0 {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) == 0 {
		return lane, msg, false
	}

	lane = nonEmpty[rng.IntN(len(nonEmpty))]
	lq := b.lanes[lane]
	msg, ok = lq.fifo.PopFront()
	if ok {
		lq.bytes -= msg.Packet.Size()
	}
	b.lengths.set(lane, lq.fifo.Len())
	if lq.fifo.Len() == 0 && !lane.IsConnection() {
		// non-connection lanes that drain to empty are dropped outright;
		// connection lanes are kept (possibly empty) until explicitly
		// closed or pruned as stale, since a SOCKS stream may still send
		// more fragments later.
		delete(b.lanes, lane)
	}
	return lane, msg, true
}

// LaneLength returns the current FIFO length of lane.
func (b *Buffer) LaneLength(lane mixmsg.TransmissionLane) int {
	if lq := b.lanes[lane]; lq != nil {
		return lq.fifo.Len()
	}
	return 0
}

// Remove drops lane entirely, discarding any queued messages, and
// publishes its length as absent. Used on an explicit Close(connection
// id) control message (spec.md §4.5.1 step 1).
func (b *Buffer) Remove(lane mixmsg.TransmissionLane) {
	delete(b.lanes, lane)
	b.lengths.set(lane, 0)
}

// PruneStaleConnections drops LaneConnection lanes whose last insertion is
// older than ttl, run once per tick after forwarding (spec.md §4.5.1 step
// 4). Non-connection lanes are never pruned: they are already dropped as
// soon as they empty out, in PopNextMessageAtRandom.
func (b *Buffer) PruneStaleConnections(ttl time.Duration) {
	now := b.timeNow()
	for l, lq := range b.lanes {
		if l.IsConnection() && now.Sub(lq.lastInserted) > ttl {
			delete(b.lanes, l)
			b.lengths.set(l, 0)
		}
	}
}

// TotalSize returns the number of queued real messages across all lanes.
func (b *Buffer) TotalSize() int {
	total := 0
	for _, lq := range b.lanes {
		total += lq.fifo.Len()
	}
	return total
}

// TotalSizeBytes returns the total payload byte size of all queued
// messages across all lanes, for the status reporter's backlog-in-bytes
// figure.
func (b *Buffer) TotalSizeBytes() int {
	total := 0
	for _, lq := range b.lanes {
		total += lq.bytes
	}
	return total
}

// NumLanes returns the number of currently tracked lanes (empty-but-stale
// connection lanes included), for the status reporter.
func (b *Buffer) NumLanes() int {
	return len(b.lanes)
}
