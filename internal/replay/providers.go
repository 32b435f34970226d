// Package replay implements the determinism substrate of the simulation
// core: virtualized time and randomness providers, and a recorder that
// captures a run as an immutable session and replays it bit-exactly.
//
// Time and randomness are reached through explicit provider interfaces
// injected into the simulation loop. Recording and playback swap which
// concrete provider is active behind a Providers handle; nothing is patched
// globally, so a leaked override can affect at most the loop that owns the
// handle.
package replay

import (
	"math/rand/v2"
	"time"
)

// Clock supplies the current simulation time.
//
// Production code uses WallClock. During recording and playback the recorder
// installs a FixedStepClock, so "now" becomes start + frame*step and is
// identical across runs.
type Clock interface {
	Now() time.Time
}

// Rand supplies pseudo-random values.
//
// Production code uses SystemRand. During recording and playback the
// recorder installs a seeded LCG, which yields the identical value sequence
// for the identical seed.
type Rand interface {
	Uint64() uint64
	Float64() float64
	IntN(n int) int
}

// Providers is the indirection point between simulation code and its entropy
// sources. Every consumer of time or randomness in the simulation must go
// through the same Providers value; code that reads time.Now or package-level
// rand directly is outside the determinism guarantee (a documented caller
// obligation, not something this package can enforce).
//
// Thread-safety: Providers follows the single-writer tick discipline of the
// rest of the core; the recorder swaps fields only between ticks.
type Providers struct {
	Clock Clock
	Rand  Rand
}

// NewProviders returns Providers backed by the wall clock and a
// non-deterministic PRNG.
func NewProviders() *Providers {
	return &Providers{
		Clock: WallClock{},
		Rand:  SystemRand{},
	}
}

// Now returns the current time from the active clock.
func (p *Providers) Now() time.Time {
	return p.Clock.Now()
}

// WallClock reads the real time.
type WallClock struct{}

// Now implements Clock.
func (WallClock) Now() time.Time {
	return time.Now()
}

// SystemRand draws from the shared math/rand/v2 generator.
type SystemRand struct{}

// Uint64 implements Rand.
func (SystemRand) Uint64() uint64 { return rand.Uint64() }

// Float64 implements Rand.
func (SystemRand) Float64() float64 { return rand.Float64() }

// IntN implements Rand.
func (SystemRand) IntN(n int) int { return rand.IntN(n) }

// FixedStepClock derives time from a frame counter instead of the wall
// clock: Now() == start + frame*step. Advance moves it one frame forward.
type FixedStepClock struct {
	start time.Time
	step  time.Duration
	frame int64
}

// NewFixedStepClock creates a clock anchored at start, advancing by step per
// frame.
func NewFixedStepClock(start time.Time, step time.Duration) *FixedStepClock {
	return &FixedStepClock{start: start, step: step}
}

// Now implements Clock.
func (c *FixedStepClock) Now() time.Time {
	return c.start.Add(time.Duration(c.frame) * c.step)
}

// Advance moves the clock one frame forward.
func (c *FixedStepClock) Advance() {
	c.frame++
}

// Frame returns the current frame counter.
func (c *FixedStepClock) Frame() int64 {
	return c.frame
}
