package dropper

import (
	"math/rand/v2"
)

// Bernoulli implements a simple u<p drop decision.
type Bernoulli struct {
	p   float64
	rng *rand.Rand
}

func New(p float64, rng *rand.Rand) *Bernoulli { return &Bernoulli{p: p, rng: rng} }

func (b *Bernoulli) Drop() bool {
	if b.p <= 0 {
		return false
	}
	if b.p >= 1 {
		return true
	}
	return b.rng.Float64() < b.p
}

// Erase zeroes each LLR independently with the drop probability and returns how
// many were erased. A zero LLR carries no information about its bit.
func (b *Bernoulli) Erase(llr []float64) int {
	n := 0
	for i := range llr {
		if b.Drop() {
			llr[i] = 0
			n++
		}
	}
	return n
}
