package fecwire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// FECScheme identifiers used on the wire.
const (
	SchemePolarPBCH uint8 = 2
)

const (
	Version   uint8 = 1
	magic0          = 'L'
	magic1          = 'R'
	FlagSoft  uint8 = 0 // float32 LLRs follow
	maxValues       = 1 << 16
)

// LLRHeader prefixes a binary LLR block:
// magic "LR", version, scheme, payload bits A, list size hint, flags, count E.
type LLRHeader struct {
	Version uint8
	Scheme  uint8
	A       uint16 // payload bits the block was encoded with, 0 if unknown
	L       uint8  // list size hint, 0 if unset
	Flags   uint8
	Count   uint32 // number of float32 LLRs that follow
}

const HeaderLen = 2 + 1 + 1 + 2 + 1 + 1 + 4

var ErrBadHeader = errors.New("fecwire: bad llr header")

func (h *LLRHeader) MarshalBinary(b []byte) []byte {
	if len(b) < HeaderLen {
		b = make([]byte, HeaderLen)
	}
	b[0] = magic0
	b[1] = magic1
	b[2] = h.Version
	b[3] = h.Scheme
	binary.LittleEndian.PutUint16(b[4:6], h.A)
	b[6] = h.L
	b[7] = h.Flags
	binary.LittleEndian.PutUint32(b[8:12], h.Count)
	return b[:HeaderLen]
}

func (h *LLRHeader) UnmarshalBinary(b []byte) bool {
	if len(b) < HeaderLen || b[0] != magic0 || b[1] != magic1 {
		return false
	}
	h.Version = b[2]
	h.Scheme = b[3]
	h.A = binary.LittleEndian.Uint16(b[4:6])
	h.L = b[6]
	h.Flags = b[7]
	h.Count = binary.LittleEndian.Uint32(b[8:12])
	return true
}

// WriteLLRs writes h (Count set from llr) followed by llr as little-endian float32.
func WriteLLRs(w io.Writer, h LLRHeader, llr []float64) error {
	h.Version = Version
	h.Count = uint32(len(llr))
	buf := make([]byte, HeaderLen+4*len(llr))
	h.MarshalBinary(buf)
	for i, v := range llr {
		binary.LittleEndian.PutUint32(buf[HeaderLen+4*i:], math.Float32bits(float32(v)))
	}
	_, err := w.Write(buf)
	return err
}

// ReadLLRs reads one block written by WriteLLRs.
func ReadLLRs(r io.Reader) (LLRHeader, []float64, error) {
	var h LLRHeader
	hb := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, hb); err != nil {
		return h, nil, err
	}
	if !h.UnmarshalBinary(hb) {
		return h, nil, ErrBadHeader
	}
	if h.Version != Version {
		return h, nil, fmt.Errorf("%w: version %d", ErrBadHeader, h.Version)
	}
	if h.Count > maxValues {
		return h, nil, fmt.Errorf("%w: count %d", ErrBadHeader, h.Count)
	}
	body := make([]byte, 4*int(h.Count))
	if _, err := io.ReadFull(r, body); err != nil {
		return h, nil, err
	}
	llr := make([]float64, h.Count)
	for i := range llr {
		llr[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:])))
	}
	return h, llr, nil
}

// ReadTextLLRs parses whitespace- or comma-separated LLRs; "inf" and "-inf" are
// accepted. Lines starting with '#' are ignored.
func ReadTextLLRs(r io.Reader) ([]float64, error) {
	var llr []float64
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		for _, f := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("fecwire: line %d: %w", line, err)
			}
			llr = append(llr, v)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return llr, nil
}

// WriteTextLLRs writes one LLR per line.
func WriteTextLLRs(w io.Writer, llr []float64) error {
	bw := bufio.NewWriter(w)
	for _, v := range llr {
		if _, err := bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
