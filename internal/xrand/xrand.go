// Package xrand provides the single CSPRNG the outbound queue engine owns
// and uses for both Poisson inter-send sampling and uniform lane
// selection (spec.md §9's "RNG" design note). It wraps math/rand/v2's
// ChaCha8 source, which is cryptographically strong yet fully
// deterministic given a seed, so production code and tests share one
// implementation rather than needing a non-crypto fallback for testing.
package xrand

import (
	"crypto/rand"
	mathrand "math/rand/v2"
)

// Rand is the RNG surface the engine depends on: integer draws for lane
// selection, and exponential sampling for Poisson inter-send delays.
type Rand struct {
	r *mathrand.Rand
}

// New returns a Rand seeded from the operating system's CSPRNG, suitable
// for production use.
func New() *Rand {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// crypto/rand.Read on the standard library's Reader never returns an
		// error in practice; a panic here indicates a broken host entropy
		// source, which this engine cannot safely route around.
		panic("xrand: failed to read entropy: " + err.Error())
	}
	return NewSeeded(seed)
}

// NewSeeded returns a Rand deterministically seeded from seed, for
// reproducible tests.
func NewSeeded(seed [32]byte) *Rand {
	return &Rand{r: mathrand.New(mathrand.NewChaCha8(seed))}
}

// IntN returns a uniform random integer in [0, n). It panics if n <= 0.
func (x *Rand) IntN(n int) int {
	return x.r.IntN(n)
}

// ExpFloat64 returns an exponentially distributed float64 in (0, +Inf)
// with rate parameter 1; scale by the desired mean to sample Exp(1/mean).
func (x *Rand) ExpFloat64() float64 {
	return x.r.ExpFloat64()
}
