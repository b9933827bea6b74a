package dropper

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBernoulliExtremes(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	never := New(0, rng)
	always := New(1, rng)
	for i := 0; i < 100; i++ {
		assert.False(t, never.Drop())
		assert.True(t, always.Drop())
	}
}

func TestEraseRate(t *testing.T) {
	b := New(0.25, rand.New(rand.NewPCG(7, 8)))
	llr := make([]float64, 20000)
	for i := range llr {
		llr[i] = 3
	}
	n := b.Erase(llr)
	zeros := 0
	for _, v := range llr {
		if v == 0 {
			zeros++
		}
	}
	assert.Equal(t, n, zeros)
	assert.InDelta(t, 0.25, float64(n)/float64(len(llr)), 0.02)
}
