package outqueue

import (
	"time"

	"github.com/nymtech/nym-client-outqueue/delay"
	"github.com/nymtech/nym-client-outqueue/internal/xrand"
	"github.com/nymtech/nym-client-outqueue/logging"
)

const (
	// DefaultStaleLaneTTL is how long a LaneConnection lane may sit empty
	// of new insertions before prune_stale_connections drops it.
	DefaultStaleLaneTTL = 2 * time.Minute
	// DefaultStatusFastInterval is the high-frequency status timer period
	// (spec.md §4.5.5).
	DefaultStatusFastInterval = 5 * time.Second
	// DefaultStatusSlowInterval is the low-frequency status timer period.
	DefaultStatusSlowInterval = 60 * time.Second
	// DefaultTerminalAckTimeout bounds how long the engine waits for the
	// shutdown coordinator's terminal acknowledgement before returning
	// anyway (spec.md §4.5.4).
	DefaultTerminalAckTimeout = 2 * time.Second
)

type options struct {
	staleLaneTTL        time.Duration
	statusFastInterval  time.Duration
	statusSlowInterval  time.Duration
	terminalAckTimeout  time.Duration
	delayOpts           []delay.Option
	logger              logging.Logger
	rng                 *xrand.Rand
}

func defaultOptions() options {
	return options{
		staleLaneTTL:       DefaultStaleLaneTTL,
		statusFastInterval: DefaultStatusFastInterval,
		statusSlowInterval: DefaultStatusSlowInterval,
		terminalAckTimeout: DefaultTerminalAckTimeout,
		logger:             logging.Default(),
		rng:                xrand.New(),
	}
}

// Option configures a Control at construction.
type Option func(*options)

// WithStaleLaneTTL overrides the staleness window for connection lanes.
func WithStaleLaneTTL(d time.Duration) Option {
	return func(o *options) { o.staleLaneTTL = d }
}

// WithStatusIntervals overrides the two status-reporter timer periods.
func WithStatusIntervals(fast, slow time.Duration) Option {
	return func(o *options) {
		o.statusFastInterval = fast
		o.statusSlowInterval = slow
	}
}

// WithTerminalAckTimeout overrides the bounded wait for the shutdown
// coordinator's terminal acknowledgement.
func WithTerminalAckTimeout(d time.Duration) Option {
	return func(o *options) { o.terminalAckTimeout = d }
}

// WithDelayOptions forwards options to the embedded delay.Controller.
func WithDelayOptions(opts ...delay.Option) Option {
	return func(o *options) { o.delayOpts = append(o.delayOpts, opts...) }
}

// WithLogger overrides the engine's structured logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRNG overrides the engine's CSPRNG, primarily for deterministic
// tests (spec.md §9: "Deterministic test seeding must be supported").
func WithRNG(r *xrand.Rand) Option {
	return func(o *options) { o.rng = r }
}
