package fec

import "fmt"

// InfoBitPattern marks the K mother-code positions that carry the CRC-interleaved
// block. q is the reliability sequence for N (least reliable first) and
// rmPattern/mode come from RateMatchingPattern. Positions that are never
// transmitted, and the low-index positions degraded by puncturing, are frozen
// whatever their rank.
func InfoBitPattern(K int, q, rmPattern []int, mode RateMatchingMode) ([]bool, error) {
	N := len(q)
	E := len(rmPattern)
	if _, ok := log2Exact(N); !ok {
		return nil, fmt.Errorf("%w: N=%d", ErrUnsupportedCodeLength, N)
	}
	if K <= 0 || K > N {
		return nil, fmt.Errorf("%w: K=%d N=%d", ErrInfeasiblePattern, K, N)
	}

	frozen := make([]bool, N)
	for i := range frozen {
		frozen[i] = true
	}
	for _, pos := range rmPattern {
		if pos < 0 || pos >= N {
			return nil, fmt.Errorf("%w: rate matching position %d outside N=%d", ErrInfeasiblePattern, pos, N)
		}
		frozen[pos] = false
	}
	if mode == Puncturing {
		var t int
		if 4*E >= 3*N {
			t = ceilDiv(3*N-2*E, 4) // ceil(3N/4 - E/2)
		} else {
			t = ceilDiv(9*N-4*E, 16) // ceil(9N/16 - E/4)
		}
		for i := 0; i < t && i < N; i++ {
			frozen[i] = true
		}
	}

	info := make([]bool, N)
	selected := 0
	for i := N - 1; i >= 0 && selected < K; i-- {
		pos := q[i]
		if pos < 0 || pos >= N {
			return nil, fmt.Errorf("%w: reliability index %d outside N=%d", ErrInfeasiblePattern, pos, N)
		}
		if !frozen[pos] && !info[pos] {
			info[pos] = true
			selected++
		}
	}
	if selected < K {
		return nil, fmt.Errorf("%w: only %d of %d positions available", ErrInfeasiblePattern, selected, K)
	}
	return info, nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
