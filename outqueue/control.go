// Package outqueue implements OutQueueControl (spec.md §4.5): the
// shutdown-aware event loop that ties together the transmission buffer,
// the sending-rate governor, cover-packet synthesis, and the ack/control
// boundaries into a single cooperative scheduler.
package outqueue

import (
	"context"
	"errors"
	"io"
	"runtime"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-longpoll"

	"github.com/nymtech/nym-client-outqueue/ack"
	"github.com/nymtech/nym-client-outqueue/config"
	"github.com/nymtech/nym-client-outqueue/cover"
	"github.com/nymtech/nym-client-outqueue/delay"
	"github.com/nymtech/nym-client-outqueue/internal/xrand"
	"github.com/nymtech/nym-client-outqueue/lane"
	"github.com/nymtech/nym-client-outqueue/logging"
	"github.com/nymtech/nym-client-outqueue/mixmsg"
	"github.com/nymtech/nym-client-outqueue/topology"
)

// nonBlockingDrain is the longpoll.ChannelConfig that makes
// longpoll.Channel behave as a pure, zero-wait "drain what's ready"
// receive: MinSize < 0 disables the minimum-size wait entirely, and
// PartialTimeout must be set to a negative value (not left at its
// zero-value default of 50ms) or longpoll starts an implicit grace-period
// timer the moment MinSize is negative. MaxSize bounds how many values a
// single call returns; -1 means unbounded.
func nonBlockingDrain(maxSize int) *longpoll.ChannelConfig {
	return &longpoll.ChannelConfig{MinSize: -1, MaxSize: maxSize, PartialTimeout: -1}
}

// Control is OutQueueControl: the single-owner engine that drains
// producer bursts and lane-close events, multiplexes them against a
// Poisson-timed (or immediate) schedule, and forwards exactly one
// StreamMessage per resolved tick to mix_tx.
//
// Control is not safe for concurrent use by multiple goroutines beyond
// the one running Run; Shutdown() returns a Handle that is safe to share.
type Control struct {
	cfg config.Config
	opt options

	buffer   *lane.Buffer
	lengths  *lane.QueueLengths
	delayCtl *delay.Controller
	coverSrc *cover.Source
	notifier *ack.Notifier
	rng      *xrand.Rand
	logger   logging.Logger

	// escalationLog rate-limits the warning-level log line emitted for a
	// sustained escalation, so a gateway stuck at the maximum multiplier
	// doesn't flood the log with one line per status tick.
	escalationLog *catrate.Limiter

	bursts <-chan mixmsg.Burst
	closes <-chan uint64
	mixTx  chan mixmsg.MixPacket

	shutdown Handle
}

// New constructs a Control. bursts is the real_receiver endpoint, closes
// is the lane-close control endpoint, mixTx is the bounded egress channel
// to transport, notifier is the acknowledgement collaborator, and top is
// the shared topology reader consulted for cover-packet synthesis.
func New(
	cfg config.Config,
	bursts <-chan mixmsg.Burst,
	closes <-chan uint64,
	mixTx chan mixmsg.MixPacket,
	notifier *ack.Notifier,
	top *topology.Source,
	opts ...Option,
) *Control {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	lengths := lane.NewQueueLengths()
	return &Control{
		cfg:      cfg,
		opt:      o,
		buffer:   lane.NewBuffer(lengths),
		lengths:  lengths,
		delayCtl: delay.New(o.delayOpts...),
		coverSrc: cover.New(top, cfg.OwnFullDestination, cfg.AverageAckDelay, cfg.AveragePacketDelay, cfg.CoverPacketSize),
		notifier: notifier,
		rng:      o.rng,
		logger:   o.logger,
		escalationLog: catrate.NewLimiter(map[time.Duration]int{
			o.statusSlowInterval: 1,
		}),
		bursts:   bursts,
		closes:   closes,
		mixTx:    mixTx,
		shutdown: NewHandle(),
	}
}

// Shutdown returns the engine's shutdown/status Handle.
func (c *Control) Shutdown() Handle {
	return c.shutdown
}

// QueueLengths returns the engine's published per-lane queue length
// snapshot (spec.md §4.3), for producers deciding whether to keep
// enqueueing.
func (c *Control) QueueLengths() *lane.QueueLengths {
	return c.lengths
}

// Run drives the engine until real_receiver closes, ctx is done, or
// shutdown is signaled, selecting the scheduling mode from
// cfg.DisableMainPoissonPacketDistribution (spec.md §4.5.1).
func (c *Control) Run(ctx context.Context) error {
	if c.cfg.DisableMainPoissonPacketDistribution {
		return c.runImmediate(ctx)
	}
	return c.runPoisson(ctx)
}

func (c *Control) meanDelay() time.Duration {
	return time.Duration(float64(c.cfg.AverageMessageSendingDelay) * float64(c.delayCtl.CurrentMultiplier()))
}

func (c *Control) sampleDelay() time.Duration {
	mean := c.meanDelay()
	if mean <= 0 {
		return 0
	}
	return time.Duration(c.rng.ExpFloat64() * float64(mean))
}

func (c *Control) runPoisson(ctx context.Context) error {
	deadline := time.Now().Add(c.sampleDelay())
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	fastTicker := time.NewTicker(c.opt.statusFastInterval)
	defer fastTicker.Stop()
	slowTicker := time.NewTicker(c.opt.statusSlowInterval)
	defer slowTicker.Stop()

	for {
		c.drainCloses()

		// non-blocking priority check ahead of the blocking wait below,
		// mirroring eventloop.Loop.run's "select checked before every
		// blocking wait" idiom, so a concurrently-fired shutdown can never
		// lose a uniform select race against a ready timer/ticker tick
		// (spec.md:168, spec.md:236).
		select {
		case <-c.shutdown.Done():
			return c.terminal(nil)
		case <-ctx.Done():
			return c.terminal(ctx.Err())
		default:
		}

		select {
		case <-c.shutdown.Done():
			return c.terminal(nil)
		case <-ctx.Done():
			return c.terminal(ctx.Err())
		case <-fastTicker.C:
			c.reportStatus()
			continue
		case <-slowTicker.C:
			c.reportStatus()
			continue
		case <-timer.C:
			// spec.md §4.5.3: consult mix_tx capacity before sampling the
			// next delay, so this tick's saturation observation governs
			// the next inter-send interval.
			c.adjustRate()

			// anchor the next deadline to the previous one, not to now, so
			// scheduling jitter from this select does not accumulate drift
			// (spec.md §4.5.1 step 3a).
			deadline = deadline.Add(c.sampleDelay())
			timer.Reset(time.Until(deadline))

			if closed := c.ingestOneBurst(); closed {
				return c.terminal(ErrUpstreamClosed)
			}

			sm, err := c.selectOrCover()
			if err != nil {
				// bad topology: skip emission, still advance the deadline
				// (already done above), per spec.md §4.4 and the
				// TopologyInvalid policy in §7.
				c.logger.Warning().Log("outqueue: skipping tick, topology invalid")
				c.buffer2()
				continue
			}

			if err := c.forward(sm); err != nil {
				return c.terminal(err)
			}

			c.buffer2()
		}
	}
}

func (c *Control) runImmediate(ctx context.Context) error {
	fastTicker := time.NewTicker(c.opt.statusFastInterval)
	defer fastTicker.Stop()
	slowTicker := time.NewTicker(c.opt.statusSlowInterval)
	defer slowTicker.Stop()

	for {
		c.drainCloses()

		// non-blocking priority check ahead of the blocking waits below, same
		// as runPoisson's pre-check.
		select {
		case <-c.shutdown.Done():
			return c.terminal(nil)
		case <-ctx.Done():
			return c.terminal(ctx.Err())
		default:
		}

		if c.buffer.TotalSize() == 0 {
			select {
			case <-c.shutdown.Done():
				return c.terminal(nil)
			case <-ctx.Done():
				return c.terminal(ctx.Err())
			case <-fastTicker.C:
				c.reportStatus()
				continue
			case <-slowTicker.C:
				c.reportStatus()
				continue
			case burst, ok := <-c.bursts:
				if !ok {
					return c.terminal(ErrUpstreamClosed)
				}
				c.buffer.Store(burst.Lane, burst.Messages)
			}
			continue
		}

		select {
		case <-c.shutdown.Done():
			return c.terminal(nil)
		case <-ctx.Done():
			return c.terminal(ctx.Err())
		default:
		}

		if closed := c.ingestAllReadyBursts(); closed {
			return c.terminal(ErrUpstreamClosed)
		}

		lane_, msg, ok := c.buffer.PopNextMessageAtRandom(c.rng)
		if !ok {
			continue
		}
		if err := c.forward(mixmsg.RealStreamMessage(lane_, msg)); err != nil {
			return c.terminal(err)
		}
		c.buffer2()
	}
}

// buffer2 executes the shared post-emission bookkeeping common to both
// scheduling modes: stale-lane pruning and a cooperative yield, steps (f)
// and (g) of the per-tick ordering in spec.md §5.
func (c *Control) buffer2() {
	c.buffer.PruneStaleConnections(c.opt.staleLaneTTL)
	runtime.Gosched()
}

// drainCloses pops every currently-ready Close(ConnectionId) event from
// the control channel without blocking (spec.md §4.5.1 step 1).
func (c *Control) drainCloses() {
	err := longpoll.Channel(context.Background(), nonBlockingDrain(-1), c.closes, func(id uint64) error {
		c.buffer.Remove(mixmsg.Connection(id))
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		c.logger.Warning().Err(err).Log("outqueue: error draining control channel")
	}
	// io.EOF (control channel closed) is recovered per the
	// ControlChannelClosed policy in spec.md §7: treated as "no more
	// lane-close events", engine continues.
}

// ingestOneBurst tries to receive exactly one burst from real_receiver,
// appending its messages to the buffer (spec.md §4.5.1 step 3b). It
// returns closed=true if the upstream channel has been closed and fully
// drained.
func (c *Control) ingestOneBurst() (closed bool) {
	err := longpoll.Channel(context.Background(), nonBlockingDrain(1), c.bursts, func(b mixmsg.Burst) error {
		c.buffer.Store(b.Lane, b.Messages)
		return nil
	})
	return errors.Is(err, io.EOF)
}

// ingestAllReadyBursts drains every currently-ready burst (immediate
// mode's "receive any available bursts", spec.md §4.5.1 step 2).
func (c *Control) ingestAllReadyBursts() (closed bool) {
	err := longpoll.Channel(context.Background(), nonBlockingDrain(-1), c.bursts, func(b mixmsg.Burst) error {
		c.buffer.Store(b.Lane, b.Messages)
		return nil
	})
	return errors.Is(err, io.EOF)
}

var errTopologyInvalid = errors.New("outqueue: topology invalid")

// selectOrCover performs the lane-selection step (spec.md §4.5.1 step
// 3c): a real message if the buffer is non-empty, otherwise a synthesized
// cover packet. It returns errTopologyInvalid if cover synthesis could not
// proceed because the topology snapshot is invalid.
func (c *Control) selectOrCover() (mixmsg.StreamMessage, error) {
	if lane_, msg, ok := c.buffer.PopNextMessageAtRandom(c.rng); ok {
		return mixmsg.RealStreamMessage(lane_, msg), nil
	}

	packet, ok := c.coverSrc.Next(c.rng)
	if !ok {
		return mixmsg.StreamMessage{}, errTopologyInvalid
	}
	return mixmsg.CoverMessage(packet), nil
}

// adjustRate implements the rate-governor update from spec.md §4.5.3.
func (c *Control) adjustRate() {
	used, capacity := len(c.mixTx), cap(c.mixTx)
	if used > 0 {
		c.delayCtl.RecordBackpressureDetected()
	}
	c.delayCtl.Tick()
	if used >= capacity && c.delayCtl.NotIncreasedDelayRecently() {
		c.delayCtl.IncreaseDelayMultiplier()
	}
	if c.delayCtl.IsSendingReliable() {
		c.delayCtl.DecreaseDelayMultiplier()
	}
}

// forward hands sm to mix_tx, atomically as a single send, then notifies
// the ack collaborator if sm carries a real message (spec.md §4.5.2). The
// send is itself subject to the shutdown-biased fair select (spec.md
// §4.5.4), so a blocked forward cannot prevent the engine from reacting
// to shutdown.
func (c *Control) forward(sm mixmsg.StreamMessage) error {
	shutdown, closed := c.sendMixTx(sm.Real.Packet)
	switch {
	case shutdown:
		return ErrShutdown
	case closed:
		// DownstreamChannelClosed (spec.md §7 / spec.md:149): log and
		// continue, drop the packet, same as the original's recoverable
		// Err from real_traffic_stream.rs's send path.
		c.logger.Warning().Log("outqueue: mix_tx closed, dropping packet")
		return nil
	}
	if !sm.Cover {
		c.notifier.Notify(sm.Real.FragmentId)
	}
	return nil
}

// sendMixTx races a single send to mix_tx against shutdown. mix_tx is
// owned by a caller outside this engine and may be closed concurrently;
// a send on a closed channel panics, so the send is wrapped in a
// recover() guard (the same panic-to-bool idiom used throughout
// eventloop's safeExecute) rather than trusted to stay open for the
// engine's lifetime.
func (c *Control) sendMixTx(pkt mixmsg.MixPacket) (shutdown, closed bool) {
	defer func() {
		if recover() != nil {
			closed = true
		}
	}()
	select {
	case c.mixTx <- pkt:
		return false, false
	case <-c.shutdown.Done():
		return true, false
	}
}

// reportStatus publishes a backlog report and, if warranted, an
// escalation signal. It never mutates engine state (spec.md §4.5.5).
func (c *Control) reportStatus() {
	report := BacklogReport{
		Lanes:           c.buffer.NumLanes(),
		Bytes:           c.buffer.TotalSizeBytes(),
		Packets:         c.buffer.TotalSize(),
		Multiplier:      c.delayCtl.CurrentMultiplier(),
		CurrentAvgDelay: c.meanDelay(),
	}
	c.shutdown.SendStatusMsg(StatusMsg{Backlog: &report})

	switch {
	case c.delayCtl.AtMaximum():
		c.shutdown.SendStatusMsg(StatusMsg{Escalation: EscalationGatewayVerySlow})
		c.logEscalation(EscalationGatewayVerySlow)
	case c.delayCtl.AboveMinimum():
		c.shutdown.SendStatusMsg(StatusMsg{Escalation: EscalationGatewaySlow})
		c.logEscalation(EscalationGatewaySlow)
	}
}

// logEscalation emits a warning-level log line for a sustained escalation,
// throttled per kind by escalationLog so a gateway stuck at the same
// escalation level produces at most one line per rate window instead of
// one per status tick.
func (c *Control) logEscalation(kind Escalation) {
	if _, ok := c.escalationLog.Allow(kind); ok {
		c.logger.Warning().Str("escalation", kind.String()).Log("outqueue: sustained sending-rate escalation")
	}
}

// terminal runs the engine's exit sequence: announce the exit, wait
// (bounded) for the shutdown coordinator's terminal acknowledgement, then
// return loopErr.
func (c *Control) terminal(loopErr error) error {
	c.shutdown.SendStatusMsg(StatusMsg{Exited: true})

	ctx, cancel := context.WithTimeout(context.Background(), c.opt.terminalAckTimeout)
	defer cancel()
	if err := c.shutdown.AwaitTerminalAck(ctx); err != nil {
		c.logger.Notice().Log("outqueue: terminal acknowledgement timed out, exiting anyway")
	}
	return loopErr
}
