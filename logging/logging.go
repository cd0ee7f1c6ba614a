// Package logging wires the engine's structured logging, replacing the
// original implementation's unconditional println-style instrumentation
// (see spec.md's DESIGN NOTES) with leveled, structured events built on
// github.com/joeycumines/logiface and its github.com/joeycumines/stumpy
// backend — the same pairing exercised by the teacher's
// logiface/stumpy/factory_test.go (L.New(L.WithStumpy(...))).
package logging

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete logger type used throughout this module.
type Logger = *logiface.Logger[*stumpy.Event]

// New builds a Logger writing JSON lines to w at the given level. A nil w
// defaults to os.Stderr.
func New(w io.Writer, level logiface.Level) Logger {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	)
}

// Discard is a Logger that drops everything, for tests and for embedders
// that don't want engine output.
func Discard() Logger {
	return New(io.Discard, logiface.LevelDisabled)
}

// Default returns a Logger writing at informational level to stderr,
// suitable as the zero-configuration default passed to outqueue.New.
func Default() Logger {
	return New(os.Stderr, logiface.LevelInformational)
}
