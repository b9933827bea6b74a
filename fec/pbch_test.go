package fec

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/edmondkoon97/polar-3gpp-matlab/internal/sim"
)

func noisyBlock(t *testing.T, A int, snr float64, seed uint64) ([]bool, []float64) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+7))
	a := sim.RandomBits(rng, A)
	e, err := EncodePBCH(a)
	require.NoError(t, err)
	ch, err := sim.NewChannel(sim.ChannelScenario{SNRdB: snr}, seed)
	require.NoError(t, err)
	return a, ch.Apply(e)
}

func TestDecodePBCHNoiseless(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		A := rapid.IntRange(1, MaxPayloadLength).Draw(t, "A")
		L := rapid.SampledFrom([]int{1, 2, 4, 8, 16}).Draw(t, "L")
		minSum := rapid.Bool().Draw(t, "minSum")
		a := rapid.SliceOfN(rapid.Bool(), A, A).Draw(t, "a")

		e, err := EncodePBCH(a)
		require.NoError(t, err)
		require.Len(t, e, PBCHBlockLength)

		got, ok, err := DecodePBCH(sim.Noiseless(e), A, L, minSum)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, a, got)
	})
}

func TestDecodeNoiselessAllModes(t *testing.T) {
	cases := []struct {
		A, E int
		mode RateMatchingMode
	}{
		{20, 200, Puncturing},
		{40, 300, Puncturing},
		{100, 200, Shortening},
		{32, 864, Repetition},
	}
	rng := rand.New(rand.NewPCG(3, 4))
	for _, c := range cases {
		code, err := NewPolarCode(c.A, c.E, 4)
		require.NoError(t, err)
		require.Equal(t, c.mode, code.Mode)
		for _, minSum := range []bool{false, true} {
			a := sim.RandomBits(rng, c.A)
			e, err := PolarEncode(code, a)
			require.NoError(t, err)
			got, ok, err := PolarDecode(code, sim.Noiseless(e), DecodeOptions{MinSum: minSum})
			require.NoError(t, err)
			assert.True(t, ok, "A=%d E=%d min-sum=%v", c.A, c.E, minSum)
			assert.Equal(t, a, got, "A=%d E=%d min-sum=%v", c.A, c.E, minSum)
		}
	}
}

func TestDecodePBCHAllZeroLLRs(t *testing.T) {
	bits, _, err := DecodePBCH(make([]float64, PBCHBlockLength), 32, 8, false)
	require.NoError(t, err)
	assert.Len(t, bits, 32)
}

func TestDecodePBCHWrongLength(t *testing.T) {
	for _, E := range []int{0, 863, 865} {
		_, _, err := DecodePBCH(make([]float64, E), 32, 8, false)
		assert.ErrorIs(t, err, ErrUnsupportedBlockLength, "E=%d", E)
	}
}

func TestDecodePBCHRejectsNaN(t *testing.T) {
	llr := make([]float64, PBCHBlockLength)
	llr[100] = math.NaN()
	_, _, err := DecodePBCH(llr, 32, 8, false)
	assert.ErrorIs(t, err, ErrInvalidLLR)
}

func TestDecodePBCHConfigErrors(t *testing.T) {
	llr := make([]float64, PBCHBlockLength)
	_, _, err := DecodePBCH(llr, 0, 8, false)
	assert.ErrorIs(t, err, ErrInvalidPayloadLength)
	_, _, err = DecodePBCH(llr, MaxPayloadLength+1, 8, false)
	assert.ErrorIs(t, err, ErrInvalidPayloadLength)
	_, _, err = DecodePBCH(llr, 32, 0, false)
	assert.ErrorIs(t, err, ErrInvalidListSize)
	_, err = EncodePBCH(nil)
	assert.ErrorIs(t, err, ErrInvalidPayloadLength)
}

func TestPolarEncodeLengthMismatch(t *testing.T) {
	c, err := NewPBCHCode(32, 8)
	require.NoError(t, err)
	_, err = PolarEncode(c, make([]bool, 31))
	assert.ErrorIs(t, err, ErrInvalidPayloadLength)
}

func TestDecodePBCHDeterministic(t *testing.T) {
	_, llr := noisyBlock(t, 32, -9, 11)
	for _, minSum := range []bool{false, true} {
		a1, ok1, err := DecodePBCH(llr, 32, 8, minSum)
		require.NoError(t, err)
		a2, ok2, err := DecodePBCH(llr, 32, 8, minSum)
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
		assert.Equal(t, ok1, ok2)
	}
}

func TestDecodeParallelMatchesSerial(t *testing.T) {
	for seed := uint64(0); seed < 6; seed++ {
		_, llr := noisyBlock(t, 40, -8, seed)
		serial, okS, err := DecodePBCHWithOptions(llr, 40, 16, DecodeOptions{})
		require.NoError(t, err)
		parallel, okP, err := DecodePBCHWithOptions(llr, 40, 16, DecodeOptions{Workers: 4})
		require.NoError(t, err)
		assert.Equal(t, serial, parallel, "seed %d", seed)
		assert.Equal(t, okS, okP, "seed %d", seed)
	}
}

func TestDecodePBCHModerateNoise(t *testing.T) {
	for seed := uint64(100); seed < 110; seed++ {
		a, llr := noisyBlock(t, 32, -2, seed)
		got, ok, err := DecodePBCH(llr, 32, 8, false)
		require.NoError(t, err)
		assert.True(t, ok, "seed %d", seed)
		assert.Equal(t, a, got, "seed %d", seed)
	}
}

func TestDecodeDoesNotModifyInput(t *testing.T) {
	_, llr := noisyBlock(t, 32, -4, 5)
	orig := append([]float64(nil), llr...)
	_, _, err := DecodePBCH(llr, 32, 4, true)
	require.NoError(t, err)
	assert.Equal(t, orig, llr)
}

func TestCachedPolarCode(t *testing.T) {
	c1, _, err := CachedPolarCode(17, PBCHBlockLength, 2)
	require.NoError(t, err)
	c2, warm, err := CachedPolarCode(17, PBCHBlockLength, 2)
	require.NoError(t, err)
	assert.True(t, warm)
	assert.Same(t, c1, c2)

	c3, _, err := CachedPolarCode(17, PBCHBlockLength, 4)
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)
	assert.Equal(t, c1.InfoBits, c3.InfoBits)

	_, _, err = CachedPolarCode(0, PBCHBlockLength, 2)
	assert.ErrorIs(t, err, ErrInvalidPayloadLength)
}

func TestDecodeStats(t *testing.T) {
	ResetPolarDecodeStats()
	llr := make([]float64, PBCHBlockLength)
	_, _, err := DecodePBCH(llr, 9, 2, false)
	require.NoError(t, err)
	_, _, err = DecodePBCH(llr, 9, 2, false)
	require.NoError(t, err)
	s := GetPolarDecodeStats()
	assert.Equal(t, 2, s.WarmCodewords+s.ColdCodewords)
	assert.GreaterOrEqual(t, s.WarmCodewords, 1)

	ResetPolarDecodeStats()
	assert.Equal(t, PolarDecodeStats{}, GetPolarDecodeStats())
}
