// Package config models the immutable configuration consumed by the
// outbound queue control engine. It follows the functional-options
// construction style used throughout the teacher stack (logiface.New,
// stumpy.L.New): a private mutable builder, applied by a slice of Option
// values, frozen into an immutable Config.
package config

import "time"

// Config is immutable after construction by New. It carries only the
// fields the core engine recognizes; all other client configuration
// (transport, topology refresh cadence, persistence, ...) belongs to its
// respective collaborator, out of scope here.
type Config struct {
	// AverageAckDelay is the mean per-hop delay inserted into cover packet
	// ack headers.
	AverageAckDelay time.Duration
	// AveragePacketDelay is the mean per-hop delay for cover packet payload
	// hops.
	AveragePacketDelay time.Duration
	// AverageMessageSendingDelay is the base mean of the inter-send Poisson
	// distribution, before the SendingMultiplier is applied.
	AverageMessageSendingDelay time.Duration
	// DisableMainPoissonPacketDistribution selects immediate mode over
	// Poisson mode when true; immediate mode never synthesizes cover
	// traffic.
	DisableMainPoissonPacketDistribution bool
	// CoverPacketSize is the fixed byte length of synthesized cover
	// packets.
	CoverPacketSize int
	// OwnFullDestination is the client's own address, the terminus of loop
	// cover traffic.
	OwnFullDestination string
	// AckKey is an opaque handle to the symmetric key cover-packet
	// synthesis uses to embed a (meaningless, but well-formed) ack.
	AckKey []byte
}

// Option mutates a Config under construction. Unknown/zero options leave
// their field at the package defaults.
type Option func(*Config)

// WithAverageAckDelay sets Config.AverageAckDelay.
func WithAverageAckDelay(d time.Duration) Option {
	return func(c *Config) { c.AverageAckDelay = d }
}

// WithAveragePacketDelay sets Config.AveragePacketDelay.
func WithAveragePacketDelay(d time.Duration) Option {
	return func(c *Config) { c.AveragePacketDelay = d }
}

// WithAverageMessageSendingDelay sets Config.AverageMessageSendingDelay.
func WithAverageMessageSendingDelay(d time.Duration) Option {
	return func(c *Config) { c.AverageMessageSendingDelay = d }
}

// WithDisablePoisson selects immediate mode when disable is true.
func WithDisablePoisson(disable bool) Option {
	return func(c *Config) { c.DisableMainPoissonPacketDistribution = disable }
}

// WithCoverPacketSize sets Config.CoverPacketSize.
func WithCoverPacketSize(size int) Option {
	return func(c *Config) { c.CoverPacketSize = size }
}

// WithOwnFullDestination sets Config.OwnFullDestination.
func WithOwnFullDestination(addr string) Option {
	return func(c *Config) { c.OwnFullDestination = addr }
}

// WithAckKey sets Config.AckKey.
func WithAckKey(key []byte) Option {
	return func(c *Config) { c.AckKey = key }
}

// defaults mirror the original implementation's constants (see
// SPEC_FULL.md §13): 20ms average ack/packet delay, 100ms average sending
// delay, 32 KiB cover packets.
func defaults() Config {
	return Config{
		AverageAckDelay:            20 * time.Millisecond,
		AveragePacketDelay:         20 * time.Millisecond,
		AverageMessageSendingDelay: 100 * time.Millisecond,
		CoverPacketSize:            32 * 1024,
	}
}

// New builds an immutable Config from the package defaults plus the given
// options, applied in order.
func New(opts ...Option) Config {
	c := defaults()
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}
