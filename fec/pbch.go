package fec

import (
	"sync"
	"time"
)

type codeKey struct {
	A, E, L int
}

// Constructions depend only on (A, E, L), so they are built once and shared.
var codeCache = struct {
	sync.Mutex
	m map[codeKey]*PolarCode
}{m: make(map[codeKey]*PolarCode)}

// CachedPolarCode returns the shared construction for (A, E, L), building it on
// first use. warm reports a cache hit.
func CachedPolarCode(A, E, L int) (c *PolarCode, warm bool, err error) {
	key := codeKey{A: A, E: E, L: L}
	codeCache.Lock()
	defer codeCache.Unlock()
	if c, ok := codeCache.m[key]; ok {
		patternCacheTotal.WithLabelValues("hit").Inc()
		return c, true, nil
	}
	patternCacheTotal.WithLabelValues("miss").Inc()
	c, err = NewPolarCode(A, E, L)
	if err != nil {
		return nil, false, err
	}
	codeCache.m[key] = c
	return c, false, nil
}

// DecodePBCH recovers the A-bit PBCH payload from 864 LLRs with list size L.
// crcOK is false when no surviving path passed CRC24C; the bits are then a best
// effort and callers should treat the block as unverified.
func DecodePBCH(llr []float64, A, L int, minSum bool) (bits []bool, crcOK bool, err error) {
	return DecodePBCHWithOptions(llr, A, L, DecodeOptions{MinSum: minSum})
}

// DecodePBCHWithOptions is DecodePBCH with explicit decode options.
func DecodePBCHWithOptions(llr []float64, A, L int, opts DecodeOptions) ([]bool, bool, error) {
	c, warm, err := CachedPolarCode(A, PBCHBlockLength, L)
	if err != nil {
		return nil, false, err
	}
	start := time.Now()
	bits, ok, err := PolarDecode(c, llr, opts)
	if err != nil {
		return nil, false, err
	}
	recordDecode(warm, ok, time.Since(start))
	return bits, ok, nil
}

// EncodePBCH is the matching encoder: A payload bits to 864 coded bits.
func EncodePBCH(a []bool) ([]bool, error) {
	c, _, err := CachedPolarCode(len(a), PBCHBlockLength, 1)
	if err != nil {
		return nil, err
	}
	return PolarEncode(c, a)
}
