package fec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func countTrue(b []bool) int {
	n := 0
	for _, v := range b {
		if v {
			n++
		}
	}
	return n
}

func TestInfoBitPatternPBCH(t *testing.T) {
	q, err := ReliabilitySequence(512)
	require.NoError(t, err)
	rm, mode, err := RateMatchingPattern(56, 512, 864)
	require.NoError(t, err)
	info, err := InfoBitPattern(56, q, rm, mode)
	require.NoError(t, err)
	assert.Equal(t, 56, countTrue(info))
	// With repetition every position is sent, so the K most reliable win.
	for _, pos := range q[len(q)-56:] {
		assert.True(t, info[pos], "position %d", pos)
	}
}

func TestInfoBitPatternExactlyK(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		A := rapid.IntRange(1, MaxPayloadLength).Draw(t, "A")
		K := A + CRCLength
		E := rapid.IntRange(K+8, 1500).Draw(t, "E")
		N, err := MotherCodeLength(K, E, PBCHMaxCodeOrder)
		if err != nil {
			t.Skip("no admissible N")
		}
		q, err := ReliabilitySequence(N)
		require.NoError(t, err)
		rm, mode, err := RateMatchingPattern(K, N, E)
		require.NoError(t, err)
		info, err := InfoBitPattern(K, q, rm, mode)
		if err != nil {
			require.ErrorIs(t, err, ErrInfeasiblePattern)
			return
		}
		require.Equal(t, K, countTrue(info))

		sent := make([]bool, N)
		for _, pos := range rm {
			sent[pos] = true
		}
		for pos, isInfo := range info {
			if isInfo {
				require.True(t, sent[pos], "info bit at unsent position %d (%s)", pos, mode)
			}
		}
	})
}

func TestInfoBitPatternPuncturingFreezesLowPositions(t *testing.T) {
	K, N, E := 44, 256, 200
	q, err := ReliabilitySequence(N)
	require.NoError(t, err)
	rm, mode, err := RateMatchingPattern(K, N, E)
	require.NoError(t, err)
	require.Equal(t, Puncturing, mode)
	info, err := InfoBitPattern(K, q, rm, mode)
	require.NoError(t, err)
	assert.Equal(t, K, countTrue(info))
	// 4E >= 3N, so positions below ceil(3N/4 - E/2) = 92 are frozen.
	for i := 0; i < 92; i++ {
		assert.False(t, info[i], "position %d", i)
	}
}

func TestInfoBitPatternInfeasible(t *testing.T) {
	q, err := ReliabilitySequence(32)
	require.NoError(t, err)
	rm := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	_, err = InfoBitPattern(11, q, rm, Shortening)
	assert.ErrorIs(t, err, ErrInfeasiblePattern)

	info, err := InfoBitPattern(10, q, rm, Shortening)
	require.NoError(t, err)
	assert.Equal(t, 10, countTrue(info))

	_, err = InfoBitPattern(4, q, []int{40}, Shortening)
	assert.ErrorIs(t, err, ErrInfeasiblePattern)
	_, err = InfoBitPattern(4, q[:30], rm, Shortening)
	assert.ErrorIs(t, err, ErrUnsupportedCodeLength)
}
