package replay

// LCG is a 64-bit linear congruential generator (Knuth's MMIX multiplier).
//
// It is deliberately simple: the entire determinism contract rests on the
// generator producing the identical sequence for the identical seed, and an
// LCG's state is one word that advances by one multiply-add per draw. It is
// not a statistically strong PRNG and is not meant to be.
type LCG struct {
	state uint64
}

const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
)

// NewLCG creates a generator seeded with seed.
func NewLCG(seed uint64) *LCG {
	return &LCG{state: seed}
}

// Uint64 implements Rand.
func (g *LCG) Uint64() uint64 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return g.state
}

// Float64 implements Rand. Returns a value in [0, 1) with 53 bits of
// precision, derived from the top bits of the state.
func (g *LCG) Float64() float64 {
	return float64(g.Uint64()>>11) / (1 << 53)
}

// IntN implements Rand. Panics if n <= 0, matching math/rand/v2.
func (g *LCG) IntN(n int) int {
	if n <= 0 {
		panic("replay: IntN with non-positive n")
	}
	return int(g.Uint64() % uint64(n))
}
