package fec

import "fmt"

// RateMatchingMode says how N mother-code bits are fitted into E transmitted bits.
type RateMatchingMode int

const (
	Repetition RateMatchingMode = iota
	Puncturing
	Shortening
)

func (m RateMatchingMode) String() string {
	switch m {
	case Repetition:
		return "repetition"
	case Puncturing:
		return "puncturing"
	case Shortening:
		return "shortening"
	default:
		return fmt.Sprintf("RateMatchingMode(%d)", int(m))
	}
}

// subBlockInterleaver is P(i) of TS 38.212 Table 5.4.1.1-1.
var subBlockInterleaver = [32]int{
	0, 1, 2, 4, 3, 5, 6, 7, 8, 16, 9, 17, 10, 18, 11, 19,
	12, 20, 13, 21, 14, 22, 15, 23, 24, 25, 26, 28, 27, 29, 30, 31,
}

// subBlockInterleave returns y, where y[n] is the mother-code position placed at
// interleaved position n.
func subBlockInterleave(N int) []int {
	group := N / 32
	y := make([]int, N)
	for n := 0; n < N; n++ {
		i := (32 * n) / N
		y[n] = subBlockInterleaver[i]*group + n%group
	}
	return y
}

// RateMatchingPattern maps each of the E transmitted positions to the mother-code
// position it carries and reports the mode. Repetition reuses mother positions
// cyclically; puncturing drops the first N-E interleaved positions; shortening
// drops the last N-E.
func RateMatchingPattern(K, N, E int) ([]int, RateMatchingMode, error) {
	if _, ok := log2Exact(N); !ok {
		return nil, 0, fmt.Errorf("%w: N=%d", ErrUnsupportedCodeLength, N)
	}
	if K <= 0 || K >= N || E < K {
		return nil, 0, fmt.Errorf("%w: K=%d N=%d E=%d", ErrUnsupportedCodeLength, K, N, E)
	}
	y := subBlockInterleave(N)
	pattern := make([]int, E)
	switch {
	case E >= N:
		for k := range pattern {
			pattern[k] = y[k%N]
		}
		return pattern, Repetition, nil
	case 16*K <= 7*E: // K/E <= 7/16
		for k := range pattern {
			pattern[k] = y[k+N-E]
		}
		return pattern, Puncturing, nil
	default:
		copy(pattern, y[:E])
		return pattern, Shortening, nil
	}
}
