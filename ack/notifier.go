// Package ack provides the minimal acknowledgement-notification
// collaborator the outbound queue depends on (spec.md §6): a
// single-producer channel carrying FragmentId, notified once per real
// message after it is accepted by mix_tx. The channel is buffered with a
// fixed capacity, not unbounded: once it is full, further notifications
// are dropped from the channel (they are still counted by Sent). Retransmission control itself
// is out of scope (spec.md §1); this package only exercises the boundary.
package ack

import "github.com/nymtech/nym-client-outqueue/mixmsg"

// Notifier receives "sent" notifications for fragments that have left the
// engine. A real retransmission ledger would consume Notifications to
// start its timers; this minimal collaborator just counts them, enough to
// assert the "no duplicate fragment delivery" testable property.
type Notifier struct {
	ch   chan mixmsg.FragmentId
	sent int
}

// NewNotifier constructs a Notifier with an unbounded-in-practice buffer;
// the channel is sized generously rather than truly unbounded, since Go
// channels cannot be unbounded, but the engine never blocks on it: Notify
// is called from the same goroutine that owns the channel's only reader
// in tests, or draining happens via Notifications in production use.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan mixmsg.FragmentId, 4096)}
}

// Notify records that id has been handed to transport. It must be called
// after, not before, mix_tx has accepted the packet (spec.md §4.5.2), so
// that retransmission timers anchored on this notification cannot fire
// for a fragment still sitting in a local buffer.
func (n *Notifier) Notify(id mixmsg.FragmentId) {
	n.sent++
	select {
	case n.ch <- id:
	default:
		// a full notification channel means nothing downstream is
		// draining it; dropping here rather than blocking keeps the
		// engine's hot path non-blocking on this boundary.
	}
}

// Notifications exposes the receive side for a consumer collaborator.
func (n *Notifier) Notifications() <-chan mixmsg.FragmentId {
	return n.ch
}

// Sent returns the total count of fragments notified, for test
// assertions (spec.md §8, property 2: "no duplicate fragment delivery").
func (n *Notifier) Sent() int {
	return n.sent
}
