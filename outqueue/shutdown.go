package outqueue

import (
	"context"
	"sync"
	"time"
)

// Escalation is a rate-governor health signal published by the status
// reporter (spec.md §4.5.5): advisory, never a failure.
type Escalation int

const (
	// EscalationNone indicates the multiplier is at its minimum: no
	// escalation.
	EscalationNone Escalation = iota
	// EscalationGatewaySlow indicates the multiplier is above its minimum.
	EscalationGatewaySlow
	// EscalationGatewayVerySlow indicates the multiplier is saturated at
	// its maximum.
	EscalationGatewayVerySlow
)

func (e Escalation) String() string {
	switch e {
	case EscalationGatewaySlow:
		return "gateway_is_slow"
	case EscalationGatewayVerySlow:
		return "gateway_is_very_slow"
	default:
		return "none"
	}
}

// BacklogReport is the periodic queue-backlog snapshot from spec.md
// §4.5.5: "(lanes, bytes, packets, multiplier, current_avg_delay)".
type BacklogReport struct {
	Lanes           int
	Bytes           int
	Packets         int
	Multiplier      int
	CurrentAvgDelay time.Duration
}

// StatusMsg is the payload carried on a Handle's status channel: either a
// periodic backlog report, an escalation signal, or (once, at most) the
// engine's own exit notice. Exactly one of these is meaningful per
// message, mirroring the loosely-typed "send_status_msg(msg)" contract
// from spec.md §6, which leaves the payload schema to the implementer.
type StatusMsg struct {
	Backlog    *BacklogReport
	Escalation Escalation
	Exited     bool
}

type shutdownState struct {
	mu       sync.Mutex
	done     chan struct{}
	doneOnce sync.Once
	ack      chan struct{}
	ackOnce  sync.Once
	statusCh chan StatusMsg
}

// Handle is the shutdown/status contract an OutQueueControl exposes and
// consumes (spec.md §6): a value cheaply copyable between goroutines,
// since every field is a pointer into shared state — copies observe the
// same shutdown and acknowledge the same terminal handshake.
type Handle struct {
	state *shutdownState
}

// NewHandle constructs a Handle in the not-yet-shutdown state.
func NewHandle() Handle {
	return Handle{state: &shutdownState{
		done:     make(chan struct{}),
		ack:      make(chan struct{}),
		statusCh: make(chan StatusMsg, 64),
	}}
}

// Trigger requests shutdown; idempotent. Called by whatever coordinator
// owns the engine's lifecycle, never by the engine itself.
func (h Handle) Trigger() {
	h.state.doneOnce.Do(func() { close(h.state.done) })
}

// Done returns a channel closed once Trigger has been called, suitable
// for use directly in a select, as the engine's shutdown-biased fair
// select does (spec.md §4.5.4).
func (h Handle) Done() <-chan struct{} {
	return h.state.done
}

// AwaitShutdown blocks until shutdown is triggered or ctx is done.
func (h Handle) AwaitShutdown(ctx context.Context) error {
	select {
	case <-h.state.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown performs a non-blocking check of whether shutdown has been
// triggered.
func (h Handle) IsShutdown() bool {
	select {
	case <-h.state.done:
		return true
	default:
		return false
	}
}

// IsShutdownPoll is equivalent to IsShutdown. The two are kept distinct,
// matching spec.md §6's four-method contract, for callers that want to
// name the non-blocking check explicitly rather than relying on IsShutdown
// alone.
func (h Handle) IsShutdownPoll() bool {
	return h.IsShutdown()
}

// SendStatusMsg publishes msg on the status channel, dropping it rather
// than blocking if no consumer is currently draining the channel.
func (h Handle) SendStatusMsg(msg StatusMsg) {
	select {
	case h.state.statusCh <- msg:
	default:
	}
}

// StatusMessages exposes the receive side for a monitoring collaborator.
func (h Handle) StatusMessages() <-chan StatusMsg {
	return h.state.statusCh
}

// NotifyTerminalAck is called by the shutdown coordinator once it has
// finished whatever cross-task synchronization it needed to perform,
// unblocking the engine's bounded wait in Control.Run (spec.md §4.5.4:
// "awaits a terminal acknowledgement from the shutdown coordinator with a
// bounded timeout"). Idempotent.
func (h Handle) NotifyTerminalAck() {
	h.state.ackOnce.Do(func() { close(h.state.ack) })
}

// AwaitTerminalAck blocks until NotifyTerminalAck has been called or ctx
// is done, whichever comes first.
func (h Handle) AwaitTerminalAck(ctx context.Context) error {
	select {
	case <-h.state.ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
