package fec

import (
	"fmt"
	"math/bits"
)

// PolarCode is the read-only construction for one (A, E, L) configuration:
// lengths plus the four TS 38.212 patterns. It is safe to share between
// concurrent decodes.
type PolarCode struct {
	CodeParams
	Mode RateMatchingMode

	Reliability    []int  // N bit-channel indices, least reliable first
	RateMatching   []int  // E entries: transmitted position -> mother-code position
	CRCInterleaver []int  // K entries: interleaved position -> CRC-attached bit index
	InfoBits       []bool // N entries, true where an interleaved bit is carried

	// Derived
	n             int
	infoPositions []int    // mother-code positions of the K carried bits, ascending
	crcRows       []uint32 // CRC register contribution of each payload bit
	earlyCheck    []bool   // by interleaved position: CRC bit checked during the search
}

// NewPolarCode builds the downlink construction (CRC24C, n_max = 9) for A payload
// bits sent in E coded bits and decoded with list size L.
func NewPolarCode(A, E, L int) (*PolarCode, error) {
	p, err := DeriveParams(A, E, L)
	if err != nil {
		return nil, err
	}
	q, err := ReliabilitySequence(p.N)
	if err != nil {
		return nil, err
	}
	rm, mode, err := RateMatchingPattern(p.K, p.N, p.E)
	if err != nil {
		return nil, err
	}
	il, err := CRCInterleaverPattern(p.K)
	if err != nil {
		return nil, err
	}
	info, err := InfoBitPattern(p.K, q, rm, mode)
	if err != nil {
		return nil, err
	}
	n, _ := log2Exact(p.N)
	c := &PolarCode{
		CodeParams:     p,
		Mode:           mode,
		Reliability:    q,
		RateMatching:   rm,
		CRCInterleaver: il,
		InfoBits:       info,
		n:              n,
		crcRows:        crcGeneratorRows(p.A),
	}
	c.infoPositions = make([]int, 0, p.K)
	for i, isInfo := range info {
		if isInfo {
			c.infoPositions = append(c.infoPositions, i)
		}
	}
	c.earlyCheck = earlyCheckPositions(il, c.crcRows, p.A, p.P2)
	return c, nil
}

// NewPBCHCode is NewPolarCode with E fixed to the PBCH block length.
func NewPBCHCode(A, L int) (*PolarCode, error) {
	return NewPolarCode(A, PBCHBlockLength, L)
}

// earlyCheckPositions selects the first p2 CRC bits, in decoding order, whose
// payload dependencies are all decoded before them.
func earlyCheckPositions(il []int, rows []uint32, A, p2 int) []bool {
	K := len(il)
	check := make([]bool, K)
	if p2 <= 0 {
		return check
	}
	pos := invertMap(il)
	picked := 0
	for k := 0; k < K && picked < p2; k++ {
		if il[k] < A {
			continue
		}
		p := il[k] - A
		ready := true
		for j := 0; j < A; j++ {
			if crcBit(rows[j], p) && pos[j] > k {
				ready = false
				break
			}
		}
		if ready {
			check[k] = true
			picked++
		}
	}
	return check
}

// EarlyCheckCount returns how many CRC bits prune paths before the end of the block.
func (c *PolarCode) EarlyCheckCount() int {
	cnt := 0
	for _, b := range c.earlyCheck {
		if b {
			cnt++
		}
	}
	return cnt
}

// deinterleave undoes the CRC interleaver on K decoded bits.
func (c *PolarCode) deinterleave(interleaved []bool) []bool {
	out := make([]bool, c.K)
	for k, src := range c.CRCInterleaver {
		out[src] = interleaved[k]
	}
	return out
}

// PolarEncode produces the E rate-matched coded bits for payload a.
func PolarEncode(c *PolarCode, a []bool) ([]bool, error) {
	if len(a) != c.A {
		return nil, fmt.Errorf("%w: got %d bits, code expects %d", ErrInvalidPayloadLength, len(a), c.A)
	}
	block := AttachCRC(a)
	u := make([]bool, c.N)
	for k, pos := range c.infoPositions {
		u[pos] = block[c.CRCInterleaver[k]]
	}
	d := polarTransform(u)
	e := make([]bool, c.E)
	for k, pos := range c.RateMatching {
		e[k] = d[pos]
	}
	return e, nil
}

// polarTransform computes x = u F^{⊗n} in place over GF(2) and returns x.
func polarTransform(x []bool) []bool {
	N := len(x)
	n := bits.TrailingZeros(uint(N))
	for i := uint(0); i < uint(n); i++ {
		blockSize := 1 << (i + 1)
		halfBlock := 1 << i
		for blockStart := 0; blockStart < N; blockStart += blockSize {
			for j := 0; j < halfBlock; j++ {
				idx1 := blockStart + j
				idx2 := idx1 + halfBlock
				x[idx1] = x[idx1] != x[idx2]
			}
		}
	}
	return x
}
