package fec

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polar",
		Name:      "decodes_total",
		Help:      "SCL decodes by final CRC outcome.",
	}, []string{"crc"})
	decodeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "polar",
		Name:      "decode_duration_seconds",
		Help:      "Wall time of one SCL decode.",
		Buckets:   prometheus.ExponentialBuckets(50e-6, 2, 14),
	})
	earlyPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "polar",
		Name:      "early_pruned_paths_total",
		Help:      "Paths eliminated by distributed CRC checks before the end of the block.",
	})
	patternCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polar",
		Name:      "pattern_cache_lookups_total",
		Help:      "Code construction cache lookups by result.",
	}, []string{"result"})
)

func observeDecode(crcOK bool, pruned int, elapsed time.Duration) {
	label := "fail"
	if crcOK {
		label = "pass"
	}
	decodesTotal.WithLabelValues(label).Inc()
	decodeSeconds.Observe(elapsed.Seconds())
	if pruned > 0 {
		earlyPrunedTotal.Add(float64(pruned))
	}
}

// --- Decode metrics (warm vs cold) ---
// A "warm" decode found its code construction in the cache.
// A "cold" decode built and cached a new one.
var polarDecodeMetrics struct {
	sync.Mutex
	warmTotal time.Duration
	coldTotal time.Duration
	warmCWs   int
	coldCWs   int
	crcFails  int
}

// PolarDecodeStats is an exported snapshot of decode metrics.
type PolarDecodeStats struct {
	WarmTotal     time.Duration
	ColdTotal     time.Duration
	WarmCodewords int
	ColdCodewords int
	CRCFailures   int
	AvgWarmPerCW  time.Duration
	AvgColdPerCW  time.Duration
}

func recordDecode(warm, crcOK bool, elapsed time.Duration) {
	m := &polarDecodeMetrics
	m.Lock()
	defer m.Unlock()
	if warm {
		m.warmTotal += elapsed
		m.warmCWs++
	} else {
		m.coldTotal += elapsed
		m.coldCWs++
	}
	if !crcOK {
		m.crcFails++
	}
}

// GetPolarDecodeStats returns a snapshot of current warm/cold decode metrics.
func GetPolarDecodeStats() PolarDecodeStats {
	m := &polarDecodeMetrics
	m.Lock()
	defer m.Unlock()
	avgCold := time.Duration(0)
	avgWarm := time.Duration(0)
	if m.coldCWs > 0 {
		avgCold = time.Duration(int64(m.coldTotal) / int64(m.coldCWs))
	}
	if m.warmCWs > 0 {
		avgWarm = time.Duration(int64(m.warmTotal) / int64(m.warmCWs))
	}
	return PolarDecodeStats{
		WarmTotal:     m.warmTotal,
		ColdTotal:     m.coldTotal,
		WarmCodewords: m.warmCWs,
		ColdCodewords: m.coldCWs,
		CRCFailures:   m.crcFails,
		AvgWarmPerCW:  avgWarm,
		AvgColdPerCW:  avgCold,
	}
}

// ResetPolarDecodeStats clears accumulated decode metrics.
func ResetPolarDecodeStats() {
	m := &polarDecodeMetrics
	m.Lock()
	defer m.Unlock()
	m.warmTotal, m.coldTotal = 0, 0
	m.warmCWs, m.coldCWs, m.crcFails = 0, 0, 0
}
