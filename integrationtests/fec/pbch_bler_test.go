package fec_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edmondkoon97/polar-3gpp-matlab/fec"
	"github.com/edmondkoon97/polar-3gpp-matlab/internal/sim"
)

type blerResult struct {
	errors   int
	crcFails int
	elapsed  time.Duration
}

// runBLER decodes the same trials blocks with every list size so the
// comparison sees identical channel realisations.
func runBLER(t *testing.T, A int, lists []int, s sim.ChannelScenario, trials int, seed uint64) map[int]blerResult {
	t.Helper()
	res := make(map[int]blerResult, len(lists))
	rng := rand.New(rand.NewPCG(seed, seed+1))
	for i := 0; i < trials; i++ {
		a := sim.RandomBits(rng, A)
		e, err := fec.EncodePBCH(a)
		require.NoError(t, err)
		ch, err := sim.NewChannel(s, seed+uint64(i)*7919)
		require.NoError(t, err)
		llr := ch.Apply(e)
		for _, L := range lists {
			start := time.Now()
			got, ok, err := fec.DecodePBCH(llr, A, L, false)
			require.NoError(t, err)
			r := res[L]
			r.elapsed += time.Since(start)
			if !ok {
				r.crcFails++
			}
			if !equalBits(a, got) {
				r.errors++
			}
			res[L] = r
		}
	}
	return res
}

func equalBits(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPBCHListSizeMonotonic(t *testing.T) {
	if testing.Short() {
		t.Skip("monte carlo run")
	}
	// --- Editable parameters ---
	A := 32
	trials := 40
	snr := -11.0
	// ---------------------------
	fec.ResetPolarDecodeStats()

	res := runBLER(t, A, []int{1, 8}, sim.ChannelScenario{SNRdB: snr}, trials, 2024)
	for _, L := range []int{1, 8} {
		r := res[L]
		t.Logf("A=%d L=%d snr=%.1fdB: block errors %d/%d, crc fails %d, avg decode %v",
			A, L, snr, r.errors, trials, r.crcFails, r.elapsed/time.Duration(trials))
	}
	require.LessOrEqual(t, res[8].errors, res[1].errors)

	stats := fec.GetPolarDecodeStats()
	require.Equal(t, 2*trials, stats.WarmCodewords+stats.ColdCodewords)
	t.Logf("decode stats: warm=%d avg=%v cold=%d avg=%v crc_failures=%d",
		stats.WarmCodewords, stats.AvgWarmPerCW, stats.ColdCodewords, stats.AvgColdPerCW, stats.CRCFailures)
}

func TestPBCHErasuresAtModerateSNR(t *testing.T) {
	A, L, trials := 32, 8, 20
	res := runBLER(t, A, []int{L}, sim.ChannelScenario{SNRdB: 0, ErasureRate: 0.1}, trials, 77)
	require.Zero(t, res[L].errors)
	require.Zero(t, res[L].crcFails)
}

func TestPBCHMaxPayloadNoiseless(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for _, A := range []int{1, 24, 56, fec.MaxPayloadLength} {
		a := sim.RandomBits(rng, A)
		e, err := fec.EncodePBCH(a)
		require.NoError(t, err)
		got, ok, err := fec.DecodePBCHWithOptions(sim.Noiseless(e), A, 8, fec.DecodeOptions{Workers: 2})
		require.NoError(t, err)
		require.True(t, ok, "A=%d", A)
		require.Equal(t, a, got, "A=%d", A)
	}
}
