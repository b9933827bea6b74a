package fec

import "fmt"

// crc24cPoly is CRC24C of TS 38.212 section 5.1 without the x^24 term:
// D^24+D^23+D^21+D^20+D^17+D^15+D^13+D^12+D^8+D^4+D^2+D+1.
const (
	crc24cPoly = 0xB2B117
	crc24cMask = 1<<CRCLength - 1
)

// crcInterleaverMax is Pi_IL^max of TS 38.212 Table 5.3.1.1-1.
var crcInterleaverMax = [...]int{
	0, 2, 4, 7, 9, 14, 19, 20, 24, 25, 26, 28, 31, 34, 42, 45, 49, 50, 51, 53, 54, 56, 58, 59, 61, 62, 65, 66,
	67, 69, 70, 71, 72, 76, 77, 81, 82, 83, 87, 88, 89, 91, 93, 95, 98, 101, 104, 106, 108, 110, 111, 113, 115,
	118, 119, 120, 122, 123, 126, 127, 129, 132, 134, 138, 139, 140, 1, 3, 5, 8, 10, 15, 21, 27, 29, 32, 35, 43,
	46, 52, 55, 57, 60, 63, 68, 73, 78, 84, 90, 92, 94, 96, 99, 102, 105, 107, 109, 112, 114, 116, 121, 124, 128,
	130, 133, 135, 141, 6, 11, 16, 22, 30, 33, 36, 44, 47, 64, 74, 79, 85, 97, 100, 103, 117, 125, 131, 136, 142,
	12, 17, 23, 37, 48, 75, 80, 86, 137, 143, 13, 18, 38, 144, 39, 145, 40, 146, 41, 147, 148, 149, 150, 151,
	152, 153, 154, 155, 156, 157, 158, 159, 160, 161, 162, 163,
}

const crcInterleaverMaxLength = len(crcInterleaverMax)

// CRC24C returns the 24-bit remainder of bits (first bit is the highest power), zero initial state.
func CRC24C(bits []bool) uint32 {
	var r uint32
	for _, b := range bits {
		fb := (r>>(CRCLength-1))&1 == 1
		r = (r << 1) & crc24cMask
		if fb != b {
			r ^= crc24cPoly
		}
	}
	return r
}

// AttachCRC returns a followed by its CRC24C, most significant CRC bit first.
func AttachCRC(a []bool) []bool {
	c := make([]bool, len(a)+CRCLength)
	copy(c, a)
	r := CRC24C(a)
	for p := 0; p < CRCLength; p++ {
		c[len(a)+p] = crcBit(r, p)
	}
	return c
}

// CheckCRC reports whether the last CRCLength bits of c are the CRC of the rest.
func CheckCRC(c []bool) bool {
	if len(c) < CRCLength {
		return false
	}
	A := len(c) - CRCLength
	r := CRC24C(c[:A])
	for p := 0; p < CRCLength; p++ {
		if crcBit(r, p) != c[A+p] {
			return false
		}
	}
	return true
}

// crcBit returns CRC bit p (p = 0 is sent first) of register r.
func crcBit(r uint32, p int) bool {
	return (r>>(CRCLength-1-p))&1 == 1
}

// crcGeneratorRows returns, for each of A payload bits, the CRC register it
// contributes when set. The CRC of a is the XOR of rows[j] over the set bits a[j].
func crcGeneratorRows(A int) []uint32 {
	rows := make([]uint32, A)
	r := uint32(crc24cPoly)
	for j := A - 1; j >= 0; j-- {
		rows[j] = r
		fb := (r>>(CRCLength-1))&1 == 1
		r = (r << 1) & crc24cMask
		if fb {
			r ^= crc24cPoly
		}
	}
	return rows
}

// CRCInterleaverPattern returns Pi of length K: interleaved position k carries
// bit Pi[k] of the CRC-attached block.
func CRCInterleaverPattern(K int) ([]int, error) {
	if K <= CRCLength || K > crcInterleaverMaxLength {
		return nil, fmt.Errorf("%w: K=%d (want %d..%d)", ErrInvalidPayloadLength, K, CRCLength+1, crcInterleaverMaxLength)
	}
	shift := crcInterleaverMaxLength - K
	pattern := make([]int, 0, K)
	for _, v := range crcInterleaverMax {
		if v >= shift {
			pattern = append(pattern, v-shift)
		}
	}
	return pattern, nil
}

// InvertPermutation returns the inverse of a permutation of 0..len(p)-1.
func InvertPermutation(p []int) []int {
	return invertMap(p)
}

// If map[new_idx] = old_idx, then invMap[old_idx] = new_idx.
func invertMap(forwardMap []int) []int {
	n := len(forwardMap)
	inverseMap := make([]int, n)
	for newIndex, oldIndex := range forwardMap {
		inverseMap[oldIndex] = newIndex
	}
	return inverseMap
}
