// Package delay implements the sending-rate governor: an integer
// multiplier state machine that scales the mean Poisson inter-send delay
// in response to downstream backpressure (spec.md §4.1).
package delay

// Default bounds and hysteresis windows for the multiplier state machine,
// overridable via Option. Named here rather than left as magic numbers,
// following the original implementation's explicit constants (SPEC_FULL.md
// §13).
const (
	DefaultMinMultiplier = 1
	DefaultMaxMultiplier = 6
	// DefaultCooldownTicks is the minimum number of ticks between two
	// consecutive multiplier increases.
	DefaultCooldownTicks = 4
	// DefaultReliableTicks is the number of consecutive backpressure-free
	// ticks required before the multiplier is allowed to decrease.
	DefaultReliableTicks = 8
)

// Option configures a Controller at construction.
type Option func(*Controller)

// WithMinMultiplier overrides the lower bound of the multiplier.
func WithMinMultiplier(m int) Option {
	return func(c *Controller) { c.minMult = m }
}

// WithMaxMultiplier overrides the upper bound of the multiplier.
func WithMaxMultiplier(m int) Option {
	return func(c *Controller) { c.maxMult = m }
}

// WithCooldownTicks overrides the minimum tick gap between increases.
func WithCooldownTicks(n int) Option {
	return func(c *Controller) { c.cooldownTicks = n }
}

// WithReliableTicks overrides the backpressure-free streak required before
// a decrease is permitted.
func WithReliableTicks(n int) Option {
	return func(c *Controller) { c.reliableTicks = n }
}

// Controller is the SendingDelayController from spec.md §4.1: a single
// integer multiplier in [minMult, maxMult], adjusted stepwise and
// hysteretically so a single bursty tick cannot cause oscillation.
// Controller is not safe for concurrent use; it is owned exclusively by
// the OutQueueControl event loop.
type Controller struct {
	minMult, maxMult             int
	cooldownTicks, reliableTicks int

	multiplier int

	ticksSinceLastIncrease int
	backpressureHits       int
	reliableTickStreak     int
}

// New constructs a Controller at the minimum multiplier.
func New(opts ...Option) *Controller {
	c := &Controller{
		minMult:       DefaultMinMultiplier,
		maxMult:       DefaultMaxMultiplier,
		cooldownTicks: DefaultCooldownTicks,
		reliableTicks: DefaultReliableTicks,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.multiplier = c.minMult
	// the cooldown and reliable streak both start "satisfied", so the
	// controller may adapt immediately rather than waiting out a full
	// window on a freshly constructed engine.
	c.ticksSinceLastIncrease = c.cooldownTicks
	c.reliableTickStreak = c.reliableTicks
	return c
}

// CurrentMultiplier returns the active multiplier.
func (c *Controller) CurrentMultiplier() int {
	return c.multiplier
}

// Tick must be called exactly once per scheduler tick, before consulting
// NotIncreasedDelayRecently or IsSendingReliable, so their tick-counted
// windows advance.
func (c *Controller) Tick() {
	c.ticksSinceLastIncrease++
	if c.backpressureHits == 0 {
		c.reliableTickStreak++
	} else {
		c.reliableTickStreak = 0
	}
	c.backpressureHits = 0
}

// RecordBackpressureDetected registers that the current tick observed
// downstream backpressure (spec.md §4.5.3).
func (c *Controller) RecordBackpressureDetected() {
	c.backpressureHits++
}

// NotIncreasedDelayRecently reports whether at least CooldownTicks have
// elapsed since the last increase.
func (c *Controller) NotIncreasedDelayRecently() bool {
	return c.ticksSinceLastIncrease >= c.cooldownTicks
}

// IncreaseDelayMultiplier raises the multiplier by one, saturating at
// maxMult, and resets the cooldown and reliable-streak counters.
func (c *Controller) IncreaseDelayMultiplier() {
	if c.multiplier < c.maxMult {
		c.multiplier++
	}
	c.ticksSinceLastIncrease = 0
	c.reliableTickStreak = 0
}

// IsSendingReliable reports whether the current backpressure-free streak
// has reached ReliableTicks.
func (c *Controller) IsSendingReliable() bool {
	return c.reliableTickStreak >= c.reliableTicks
}

// DecreaseDelayMultiplier lowers the multiplier by one, floored at
// minMult, provided sending is currently reliable. When sending is
// reliable it resets the reliable streak, whether or not the multiplier
// was above minMult, so two decreases cannot happen back to back without
// a fresh reliable window; otherwise it changes nothing.
func (c *Controller) DecreaseDelayMultiplier() {
	if !c.IsSendingReliable() {
		return
	}
	if c.multiplier > c.minMult {
		c.multiplier--
	}
	c.reliableTickStreak = 0
}

// AtMaximum reports whether the multiplier is currently saturated at
// maxMult, the trigger for the status reporter's GatewayIsVerySlow signal.
func (c *Controller) AtMaximum() bool {
	return c.multiplier >= c.maxMult
}

// AboveMinimum reports whether the multiplier is above minMult, the
// trigger for the status reporter's GatewayIsSlow signal.
func (c *Controller) AboveMinimum() bool {
	return c.multiplier > c.minMult
}
