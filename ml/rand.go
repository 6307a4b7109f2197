package ml

import "math/rand/v2"

// RandSource supplies pseudo-random scalars in [0, 1) for weight
// initialization. *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultRandSource draws from the math/rand/v2 global generator.
var DefaultRandSource RandSource = globalSource{}

// NewSeededSource returns a deterministic source, handy for reproducible runs.
func NewSeededSource(seed uint64) RandSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
