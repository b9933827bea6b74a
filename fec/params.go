package fec

import (
	"errors"
	"fmt"
	"math/bits"
)

// Configuration errors. They are raised before any decoding work starts.
var (
	ErrInvalidPayloadLength   = errors.New("invalid payload length")
	ErrInvalidListSize        = errors.New("invalid list size")
	ErrUnsupportedCodeLength  = errors.New("unsupported code length")
	ErrInfeasiblePattern      = errors.New("infeasible information bit pattern")
	ErrUnsupportedBlockLength = errors.New("unsupported block length")
	ErrInvalidLLR             = errors.New("invalid llr")
)

const (
	// PBCHBlockLength is the number of coded bits E carried by one PBCH block.
	PBCHBlockLength = 864
	// PBCHMaxCodeOrder bounds the mother code at N = 2^9 for downlink control.
	PBCHMaxCodeOrder = 9
	// CRCLength is the degree of CRC24C.
	CRCLength = 24
	// MaxPayloadLength is the largest A for which the CRC interleaver is defined.
	MaxPayloadLength = crcInterleaverMaxLength - CRCLength
	// DefaultAuxCRCLength is the number of CRC bits checked ahead of the end of the block.
	DefaultAuxCRCLength = 3

	minCodeOrder = 5
	maxCodeOrder = 10
)

// CodeParams holds the lengths derived for one (A, E, L) configuration.
type CodeParams struct {
	A        int // payload bits
	P        int // CRC bits
	P2       int // CRC bits used for early pruning
	K        int // A + P
	N        int // mother code length
	E        int // transmitted bits
	ListSize int
}

// DeriveParams computes K, P2 and N for a payload of A bits transmitted in E bits
// and decoded with a list of L paths.
func DeriveParams(A, E, L int) (CodeParams, error) {
	if A <= 0 || A > MaxPayloadLength {
		return CodeParams{}, fmt.Errorf("%w: A=%d (want 1..%d)", ErrInvalidPayloadLength, A, MaxPayloadLength)
	}
	if L <= 0 {
		return CodeParams{}, fmt.Errorf("%w: L=%d", ErrInvalidListSize, L)
	}
	K := A + CRCLength
	N, err := MotherCodeLength(K, E, PBCHMaxCodeOrder)
	if err != nil {
		return CodeParams{}, err
	}
	return CodeParams{
		A:        A,
		P:        CRCLength,
		P2:       auxCRCLength(L),
		K:        K,
		N:        N,
		E:        E,
		ListSize: L,
	}, nil
}

// auxCRCLength caps DefaultAuxCRCLength at floor(log2 L).
func auxCRCLength(L int) int {
	p2 := bits.Len(uint(L)) - 1
	if p2 > DefaultAuxCRCLength {
		p2 = DefaultAuxCRCLength
	}
	return p2
}

// MotherCodeLength selects N = 2^n per TS 38.212 section 5.3.1.
func MotherCodeLength(K, E, nMax int) (int, error) {
	if K <= 0 || E <= 0 {
		return 0, fmt.Errorf("%w: K=%d E=%d", ErrUnsupportedCodeLength, K, E)
	}
	if nMax < minCodeOrder || nMax > maxCodeOrder {
		return 0, fmt.Errorf("%w: n_max=%d", ErrUnsupportedCodeLength, nMax)
	}
	cE := ceilLog2(E)
	n1 := cE
	// 8*E <= 9*2^(cE-1) and 16*K < 9*E, kept in integers
	if cE > 0 && 8*E <= 9*(1<<(cE-1)) && 16*K < 9*E {
		n1 = cE - 1
	}
	n2 := ceilLog2(8 * K) // R_min = 1/8
	n := min(n1, n2, nMax)
	if n < minCodeOrder {
		n = minCodeOrder
	}
	N := 1 << n
	if K >= N {
		return 0, fmt.Errorf("%w: K=%d does not fit N=%d", ErrUnsupportedCodeLength, K, N)
	}
	return N, nil
}

// ceilLog2 returns the smallest c with 2^c >= x, for x >= 1.
func ceilLog2(x int) int {
	if x <= 1 {
		return 0
	}
	return bits.Len(uint(x - 1))
}

// log2Exact returns log2(N) when N is a power of two in the supported range.
func log2Exact(N int) (int, bool) {
	if N <= 0 || N&(N-1) != 0 {
		return 0, false
	}
	n := bits.TrailingZeros(uint(N))
	return n, n >= minCodeOrder && n <= maxCodeOrder
}
