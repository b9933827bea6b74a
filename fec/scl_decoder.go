package fec

import (
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// parallelMinWidth is the smallest stage width fanned out over goroutines;
// narrower stages are cheaper than the goroutine handoff.
const parallelMinWidth = 64

// DecodeOptions tune a single decode. The zero value is the exact
// log-domain decoder running on the calling goroutine.
type DecodeOptions struct {
	MinSum  bool // min-sum check-node update instead of log-sum-product
	Workers int  // >1 spreads per-path stage updates over this many goroutines
}

// sclPath is one hypothesis of the list search.
type sclPath struct {
	alpha  [][]float64 // alpha[l] has 2^l LLRs, l = 0..n-1; level n is the channel
	beta   [][]bool    // beta[l] has 2^l partial sums, l = 0..n
	bits   []bool      // decoded interleaved bits, K entries
	metric float64
	crc    uint32 // running CRC register over the decoded payload bits
}

func newSCLPath(n, K int) *sclPath {
	p := &sclPath{
		alpha: make([][]float64, n),
		beta:  make([][]bool, n+1),
		bits:  make([]bool, K),
	}
	for l := 0; l < n; l++ {
		p.alpha[l] = make([]float64, 1<<l)
	}
	for l := 0; l <= n; l++ {
		p.beta[l] = make([]bool, 1<<l)
	}
	return p
}

func (p *sclPath) copyFrom(src *sclPath) {
	for l := range p.alpha {
		copy(p.alpha[l], src.alpha[l])
	}
	for l := range p.beta {
		copy(p.beta[l], src.beta[l])
	}
	copy(p.bits, src.bits)
	p.metric = src.metric
	p.crc = src.crc
}

type sclCandidate struct {
	metric float64
	parent int
	bit    bool
}

// sclDecoder is the per-call state. It is never shared between calls.
type sclDecoder struct {
	code    *PolarCode
	minSum  bool
	workers int
	channel []float64 // N mother-code LLRs

	paths    []*sclPath
	next     []*sclPath
	spare    []*sclPath
	cands    []sclCandidate // capacity 2L
	children []int

	leaf    int
	dataIdx int
	pruned  int // paths eliminated by early CRC checks
}

// PolarDecode runs distributed-CRC-aided SCL decoding of llr (E values,
// LLR = ln P(0)/P(1)). It returns the A payload bits of the best path and
// whether that path passed the full CRC. A failed CRC is not an error: the
// lowest-metric path is returned as a best effort.
func PolarDecode(c *PolarCode, llr []float64, opts DecodeOptions) ([]bool, bool, error) {
	if len(llr) != c.E {
		return nil, false, fmt.Errorf("%w: got %d LLRs, want %d", ErrUnsupportedBlockLength, len(llr), c.E)
	}
	for i, v := range llr {
		if math.IsNaN(v) {
			return nil, false, fmt.Errorf("%w: NaN at position %d", ErrInvalidLLR, i)
		}
	}
	start := time.Now()
	d := &sclDecoder{
		code:     c,
		minSum:   opts.MinSum,
		workers:  opts.Workers,
		channel:  c.channelLLRs(llr),
		paths:    make([]*sclPath, 0, c.ListSize),
		next:     make([]*sclPath, 0, c.ListSize),
		cands:    make([]sclCandidate, 0, 2*c.ListSize),
		children: make([]int, c.ListSize),
	}
	d.paths = append(d.paths, newSCLPath(c.n, c.K))
	d.decodeNode(c.n)
	bits, ok := d.selectPath()
	observeDecode(ok, d.pruned, time.Since(start))
	return bits, ok, nil
}

// channelLLRs undoes rate matching: repeated copies are summed, punctured
// positions stay at 0 and shortened positions are known zeros (+Inf).
func (c *PolarCode) channelLLRs(llr []float64) []float64 {
	ch := make([]float64, c.N)
	if c.Mode == Shortening {
		for i := range ch {
			ch[i] = math.Inf(1)
		}
	}
	for k, pos := range c.RateMatching {
		if c.Mode == Repetition {
			ch[pos] = addLLR(ch[pos], llr[k])
		} else {
			ch[pos] = llr[k]
		}
	}
	return ch
}

func (d *sclDecoder) alphaAt(p *sclPath, level int) []float64 {
	if level == d.code.n {
		return d.channel
	}
	return p.alpha[level]
}

// decodeNode walks the subtree at the given level: left child, right child,
// then the partial-sum combine.
func (d *sclDecoder) decodeNode(level int) {
	if level == 0 {
		d.decodeLeaf()
		return
	}
	half := 1 << (level - 1)
	d.forEachPath(half, func(p *sclPath) {
		up := d.alphaAt(p, level)
		dn := p.alpha[level-1]
		for i := 0; i < half; i++ {
			dn[i] = d.checkNode(up[i], up[i+half])
		}
	})
	d.decodeNode(level - 1)

	d.forEachPath(half, func(p *sclPath) {
		left := p.beta[level]
		copy(left[:half], p.beta[level-1])
		up := d.alphaAt(p, level)
		dn := p.alpha[level-1]
		for i := 0; i < half; i++ {
			dn[i] = variableNode(up[i], up[i+half], left[i])
		}
	})
	d.decodeNode(level - 1)

	d.forEachPath(half, func(p *sclPath) {
		x := p.beta[level]
		right := p.beta[level-1]
		for i := 0; i < half; i++ {
			x[i] = x[i] != right[i]
			x[i+half] = right[i]
		}
	})
}

// forEachPath applies fn to every active path. Paths own disjoint buffers, so
// wide stages run concurrently; Wait is the barrier before the next leaf prunes.
func (d *sclDecoder) forEachPath(width int, fn func(p *sclPath)) {
	if d.workers <= 1 || len(d.paths) < 2 || width < parallelMinWidth {
		for _, p := range d.paths {
			fn(p)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(d.workers)
	for _, p := range d.paths {
		g.Go(func() error {
			fn(p)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *sclDecoder) decodeLeaf() {
	i := d.leaf
	d.leaf++
	if !d.code.InfoBits[i] {
		for _, p := range d.paths {
			p.metric += pathPenalty(p.alpha[0][0], false, d.minSum)
			p.beta[0][0] = false
		}
		return
	}
	k := d.dataIdx
	d.dataIdx++
	src := d.code.CRCInterleaver[k]
	if d.code.earlyCheck[k] {
		// The CRC bit is implied by the path's payload so far.
		for _, p := range d.paths {
			b := crcBit(p.crc, src-d.code.A)
			before := p.metric
			p.metric += pathPenalty(p.alpha[0][0], b, d.minSum)
			if !math.IsInf(before, 1) && math.IsInf(p.metric, 1) {
				d.pruned++
			}
			p.beta[0][0] = b
			p.bits[k] = b
		}
		return
	}
	d.fork(k, src)
}

// fork extends every path with both bit values and keeps the ListSize best.
// Ties keep enumeration order (parent index, then 0 before 1).
func (d *sclDecoder) fork(k, src int) {
	d.cands = d.cands[:0]
	for idx, p := range d.paths {
		llr := p.alpha[0][0]
		d.cands = append(d.cands,
			sclCandidate{metric: p.metric + pathPenalty(llr, false, d.minSum), parent: idx, bit: false},
			sclCandidate{metric: p.metric + pathPenalty(llr, true, d.minSum), parent: idx, bit: true},
		)
	}
	sort.SliceStable(d.cands, func(a, b int) bool { return d.cands[a].metric < d.cands[b].metric })
	keep := d.cands
	if len(keep) > d.code.ListSize {
		keep = keep[:d.code.ListSize]
	}

	children := d.children[:len(d.paths)]
	for i := range children {
		children[i] = 0
	}
	for _, c := range keep {
		children[c.parent]++
	}
	for idx, p := range d.paths {
		if children[idx] == 0 {
			d.spare = append(d.spare, p)
		}
	}

	// Copies are taken before any parent is modified in place.
	next := d.next[:0]
	claimed := children // reused: >0 means the parent record is still free to claim
	for _, c := range keep {
		parent := d.paths[c.parent]
		if claimed[c.parent] > 0 {
			claimed[c.parent] = -1
			next = append(next, parent)
			continue
		}
		rec := d.takeSpare()
		rec.copyFrom(parent)
		next = append(next, rec)
	}
	for i, c := range keep {
		rec := next[i]
		rec.metric = c.metric
		rec.beta[0][0] = c.bit
		rec.bits[k] = c.bit
		if c.bit && src < d.code.A {
			rec.crc ^= d.code.crcRows[src]
		}
	}
	d.next = d.paths[:0]
	d.paths = next
}

func (d *sclDecoder) takeSpare() *sclPath {
	if n := len(d.spare); n > 0 {
		p := d.spare[n-1]
		d.spare = d.spare[:n-1]
		return p
	}
	return newSCLPath(d.code.n, d.code.K)
}

// selectPath returns the payload of the lowest-metric path passing the CRC,
// or of the lowest-metric path when none does.
func (d *sclDecoder) selectPath() ([]bool, bool) {
	var best, bestAny []bool
	bestMetric, bestAnyMetric := math.Inf(1), math.Inf(1)
	for _, p := range d.paths {
		block := d.code.deinterleave(p.bits)
		if bestAny == nil || p.metric < bestAnyMetric {
			bestAny, bestAnyMetric = block, p.metric
		}
		if CheckCRC(block) && (best == nil || p.metric < bestMetric) {
			best, bestMetric = block, p.metric
		}
	}
	if best != nil {
		return best[:d.code.A], true
	}
	return bestAny[:d.code.A], false
}

func (d *sclDecoder) checkNode(a, b float64) float64 {
	if d.minSum {
		return checkNodeMinSum(a, b)
	}
	return checkNodeExact(a, b)
}

// checkNodeMinSum is sign(a) sign(b) min(|a|, |b|).
func checkNodeMinSum(a, b float64) float64 {
	m := math.Min(math.Abs(a), math.Abs(b))
	if (a < 0) != (b < 0) {
		return -m
	}
	return m
}

// checkNodeExact is 2 atanh(tanh(a/2) tanh(b/2)) in its Jacobian-log form.
func checkNodeExact(a, b float64) float64 {
	if math.IsInf(a, 0) {
		return math.Copysign(1, a) * b
	}
	if math.IsInf(b, 0) {
		return math.Copysign(1, b) * a
	}
	return checkNodeMinSum(a, b) +
		math.Log1p(math.Exp(-math.Abs(a+b))) -
		math.Log1p(math.Exp(-math.Abs(a-b)))
}

// variableNode combines the two halves once the left partial sum u is known.
func variableNode(a, b float64, u bool) float64 {
	if u {
		return addLLR(b, -a)
	}
	return addLLR(b, a)
}

// addLLR sums two LLRs; opposing infinities cancel to an erasure.
func addLLR(a, b float64) float64 {
	s := a + b
	if math.IsNaN(s) {
		return 0
	}
	return s
}

// pathPenalty is the metric increment for deciding bit against llr:
// ln(1 + e^{-(1-2u) llr}), or |llr| on a sign mismatch for min-sum.
func pathPenalty(llr float64, bit, minSum bool) float64 {
	a := math.Abs(llr)
	mismatch := (llr < 0) != bit && a != 0
	if minSum || math.IsInf(a, 1) {
		if mismatch {
			return a
		}
		return 0
	}
	p := math.Log1p(math.Exp(-a))
	if mismatch {
		p += a
	}
	return p
}
