package outqueue

import "errors"

// Sentinel errors surfaced by Control.Run, corresponding to the error
// taxonomy in spec.md §7. Most conditions in that taxonomy are recovered
// locally (logged and the loop continues). Besides the sentinels below,
// Run returns ctx.Err() when ctx is done, and nil when shutdown is
// observed at the top of a loop iteration rather than during a mix_tx send.
var (
	// ErrUpstreamClosed is returned when real_receiver has closed and all
	// buffered bursts have been drained: terminal, graceful exit.
	ErrUpstreamClosed = errors.New("outqueue: upstream real_receiver closed")

	// ErrShutdown is returned when shutdown was signaled while the engine
	// was blocked handing a packet to mix_tx.
	ErrShutdown = errors.New("outqueue: shutdown signaled")
)
