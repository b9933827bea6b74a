package fec

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

//go:embed polar_table_5.3.1.2-1.txt
var polarTable3GPP string

var (
	reliabilityOnce sync.Once
	reliabilityMax  []int // least to most reliable, length 1024
	reliabilityErr  error
)

// Load3GPPTable loads a 3GPP frozen set reliability table from a text file with two columns: index, rank.
// Returns indices ordered by DESCENDING rank (larger = more reliable). Lines starting with '#' are ignored.
func Load3GPPTable(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse3GPPTable(f)
}

// Parse3GPPTable is Load3GPPTable over an arbitrary reader.
func Parse3GPPTable(r io.Reader) ([]int, error) {
	type row struct {
		idx int
		val int
	}
	rows := make([]row, 0, 1<<maxCodeOrder)
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		i, err1 := strconv.Atoi(parts[0])
		v, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue
		}
		rows = append(rows, row{idx: i, val: v})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	// Larger rank means more reliable, so sort descending by val
	sort.Slice(rows, func(i, j int) bool { return rows[i].val > rows[j].val })
	ordered := make([]int, len(rows))
	for i := range rows {
		ordered[i] = rows[i].idx
	}
	return ordered, nil
}

// loadReliability parses the embedded table once and checks it covers 0..1023 exactly.
func loadReliability() ([]int, error) {
	reliabilityOnce.Do(func() {
		desc, err := Parse3GPPTable(strings.NewReader(polarTable3GPP))
		if err != nil {
			reliabilityErr = err
			return
		}
		nMax := 1 << maxCodeOrder
		if len(desc) != nMax || !isPermutation(desc) {
			reliabilityErr = fmt.Errorf("embedded reliability table is not a permutation of 0..%d", nMax-1)
			return
		}
		asc := make([]int, nMax)
		for i, idx := range desc {
			asc[nMax-1-i] = idx
		}
		reliabilityMax = asc
	})
	return reliabilityMax, reliabilityErr
}

// ReliabilitySequence returns the bit-channel indices of an N-bit mother code,
// ordered from least to most reliable.
func ReliabilitySequence(N int) ([]int, error) {
	if _, ok := log2Exact(N); !ok {
		return nil, fmt.Errorf("%w: N=%d", ErrUnsupportedCodeLength, N)
	}
	q, err := loadReliability()
	if err != nil {
		return nil, err
	}
	// keep indices < N, preserving order
	seq := make([]int, 0, N)
	for _, idx := range q {
		if idx < N {
			seq = append(seq, idx)
		}
	}
	return seq, nil
}

func isPermutation(p []int) bool {
	seen := make([]bool, len(p))
	for _, v := range p {
		if v < 0 || v >= len(p) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
