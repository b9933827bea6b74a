package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/edmondkoon97/polar-3gpp-matlab/internal/dropper"
)

// ChannelScenario describes a BPSK link over AWGN with optional random erasures.
type ChannelScenario struct {
	SNRdB       float64 // Es/N0 per coded bit
	ErasureRate float64 // probability that an LLR is lost, 0..1
}

// Validate rejects scenarios the simulator cannot represent.
func (s ChannelScenario) Validate() error {
	if math.IsNaN(s.SNRdB) || math.IsInf(s.SNRdB, 0) {
		return fmt.Errorf("sim: snr must be finite, got %v", s.SNRdB)
	}
	if s.ErasureRate < 0 || s.ErasureRate > 1 {
		return fmt.Errorf("sim: erasure rate %v outside [0,1]", s.ErasureRate)
	}
	return nil
}

// NoiseSigma is the per-dimension noise standard deviation for unit-energy BPSK.
func (s ChannelScenario) NoiseSigma() float64 {
	return math.Sqrt(0.5 * math.Pow(10, -s.SNRdB/10))
}

// Channel maps coded bits to LLRs. It is not safe for concurrent use; give each
// goroutine its own Channel.
type Channel struct {
	scenario ChannelScenario
	noise    distuv.Normal
	eraser   *dropper.Bernoulli
}

// NewChannel creates a deterministic channel for the given seed.
func NewChannel(s ChannelScenario, seed uint64) (*Channel, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Channel{
		scenario: s,
		noise:    distuv.Normal{Mu: 0, Sigma: s.NoiseSigma(), Src: src},
		eraser:   dropper.New(s.ErasureRate, rand.New(rand.NewPCG(seed+1, seed))),
	}, nil
}

// Apply modulates bits (0 -> +1, 1 -> -1), adds noise, erases and returns LLRs.
func (c *Channel) Apply(bits []bool) []float64 {
	sigma := c.noise.Sigma
	scale := 2 / (sigma * sigma)
	llr := make([]float64, len(bits))
	for i, b := range bits {
		x := 1.0
		if b {
			x = -1
		}
		llr[i] = scale * (x + c.noise.Rand())
	}
	c.eraser.Erase(llr)
	return llr
}

// Noiseless returns infinite-confidence LLRs for bits.
func Noiseless(bits []bool) []float64 {
	llr := make([]float64, len(bits))
	for i, b := range bits {
		if b {
			llr[i] = math.Inf(-1)
		} else {
			llr[i] = math.Inf(1)
		}
	}
	return llr
}

// RandomBits draws n uniform bits.
func RandomBits(rng *rand.Rand, n int) []bool {
	b := make([]bool, n)
	for i := range b {
		b[i] = rng.IntN(2) == 1
	}
	return b
}
