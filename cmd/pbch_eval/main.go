package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/edmondkoon97/polar-3gpp-matlab/fec"
	"github.com/edmondkoon97/polar-3gpp-matlab/internal/config"
	"github.com/edmondkoon97/polar-3gpp-matlab/internal/sim"
)

func main() {
	var (
		cfgPath  = pflag.StringP("config", "c", "", "YAML config file")
		A        = pflag.IntP("payload", "A", 0, "payload bits (overrides config)")
		L        = pflag.IntP("list", "L", 0, "list size (overrides config)")
		minSum   = pflag.Bool("min-sum", false, "use the min-sum check-node update")
		snrList  = pflag.Float64Slice("snr", nil, "Es/N0 points in dB (overrides config)")
		trials   = pflag.IntP("trials", "n", 0, "blocks per SNR point (overrides config)")
		seed     = pflag.Uint64("seed", 0, "random seed (overrides config)")
		erasure  = pflag.Float64("erasure", -1, "LLR erasure probability (overrides config)")
		out      = pflag.StringP("out", "o", "", "markdown report path (overrides config)")
		metrics  = pflag.String("metrics-listen", "", "serve Prometheus /metrics on this address")
		logLevel = pflag.String("log-level", "", "debug, info, warn or error")
	)
	pflag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal("load config", "err", err)
	}
	applyFlags(cfg, *A, *L, *minSum, *snrList, *trials, *seed, *erasure, *out, *metrics, *logLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "err", err)
	}

	runID := uuid.New()
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "pbch_eval"}).
		With("run", runID.String()[:8])
	lvl, _ := log.ParseLevel(cfg.Logging.Level)
	logger.SetLevel(lvl)

	if cfg.Metrics.Listen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("serving metrics", "addr", cfg.Metrics.Listen)
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				logger.Error("metrics server", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, err := fec.NewPBCHCode(cfg.Decoder.PayloadBits, cfg.Decoder.ListSize)
	if err != nil {
		logger.Fatal("build code", "err", err)
	}
	logger.Info("code", "A", code.A, "K", code.K, "N", code.N, "E", code.E, "mode", code.Mode,
		"L", code.ListSize, "early_crc_bits", code.EarlyCheckCount())

	points := make([]point, 0, len(cfg.Eval.SNRdB))
	for i, snr := range cfg.Eval.SNRdB {
		p, err := runPoint(ctx, code, cfg, snr, cfg.Eval.Seed+uint64(i)*1_000_003)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("interrupted", "snr_db", snr)
				break
			}
			logger.Fatal("evaluation failed", "snr_db", snr, "err", err)
		}
		logger.Info("point", "snr_db", snr, "bler", p.bler(), "crc_fail", p.crcFail, "undetected", p.undetected, "avg_decode", p.avgDecode())
		points = append(points, p)
	}

	report := renderReport(runID, cfg, code, points)
	fmt.Print(report)
	if cfg.Eval.Report != "" {
		if err := writeReport(cfg.Eval.Report, report); err != nil {
			logger.Fatal("write report", "path", cfg.Eval.Report, "err", err)
		}
		logger.Info("report written", "path", cfg.Eval.Report)
	}
}

func applyFlags(cfg *config.Config, A, L int, minSum bool, snr []float64, trials int, seed uint64, erasure float64, out, metrics, level string) {
	if A > 0 {
		cfg.Decoder.PayloadBits = A
	}
	if L > 0 {
		cfg.Decoder.ListSize = L
	}
	if minSum {
		cfg.Decoder.MinSum = true
	}
	if len(snr) > 0 {
		cfg.Eval.SNRdB = snr
	}
	if trials > 0 {
		cfg.Eval.Trials = trials
	}
	if seed != 0 {
		cfg.Eval.Seed = seed
	}
	if erasure >= 0 {
		cfg.Eval.ErasureRate = erasure
	}
	if out != "" {
		cfg.Eval.Report = out
	}
	if metrics != "" {
		cfg.Metrics.Listen = metrics
	}
	if level != "" {
		cfg.Logging.Level = level
	}
}

type point struct {
	snrDB      float64
	trials     int
	errors     int // payload differs from what was sent
	crcFail    int // decoder reported no CRC-passing path
	undetected int // CRC passed on a wrong payload
	decode     time.Duration
}

func (p point) bler() float64 {
	if p.trials == 0 {
		return 0
	}
	return float64(p.errors) / float64(p.trials)
}

func (p point) avgDecode() time.Duration {
	if p.trials == 0 {
		return 0
	}
	return p.decode / time.Duration(p.trials)
}

// runPoint decodes cfg.Eval.Trials random blocks at one SNR. Each trial has its
// own seed, so the result does not depend on scheduling.
func runPoint(ctx context.Context, code *fec.PolarCode, cfg *config.Config, snr float64, seed uint64) (point, error) {
	scenario := sim.ChannelScenario{SNRdB: snr, ErasureRate: cfg.Eval.ErasureRate}
	opts := fec.DecodeOptions{MinSum: cfg.Decoder.MinSum, Workers: cfg.Decoder.Workers}
	var errs, crcFail, undetected, nanos atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Eval.Parallel)
	for t := 0; t < cfg.Eval.Trials; t++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s := seed + uint64(t)
			ch, err := sim.NewChannel(scenario, s)
			if err != nil {
				return err
			}
			payload := sim.RandomBits(rand.New(rand.NewPCG(s, ^s)), code.A)
			coded, err := fec.PolarEncode(code, payload)
			if err != nil {
				return err
			}
			llr := ch.Apply(coded)
			start := time.Now()
			got, ok, err := fec.PolarDecode(code, llr, opts)
			nanos.Add(int64(time.Since(start)))
			if err != nil {
				return err
			}
			wrong := !slices.Equal(got, payload)
			if wrong {
				errs.Add(1)
			}
			if !ok {
				crcFail.Add(1)
			} else if wrong {
				undetected.Add(1)
			}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return point{}, err
	}
	return point{
		snrDB:      snr,
		trials:     cfg.Eval.Trials,
		errors:     int(errs.Load()),
		crcFail:    int(crcFail.Load()),
		undetected: int(undetected.Load()),
		decode:     time.Duration(nanos.Load()),
	}, nil
}

func renderReport(runID uuid.UUID, cfg *config.Config, code *fec.PolarCode, points []point) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# PBCH Polar SCL BLER Evaluation\n\n")
	fmt.Fprintf(&b, "Run: %s (%s)\n\n", runID, time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Params: A=%d K=%d N=%d E=%d mode=%s L=%d min-sum=%v early-crc-bits=%d erasure=%.3f trials=%d seed=%d\n\n",
		code.A, code.K, code.N, code.E, code.Mode, code.ListSize, cfg.Decoder.MinSum, code.EarlyCheckCount(),
		cfg.Eval.ErasureRate, cfg.Eval.Trials, cfg.Eval.Seed)
	fmt.Fprintf(&b, "| Es/N0 (dB) | BLER | CRC fail | Undetected | Avg decode |\n")
	fmt.Fprintf(&b, "|---:|---:|---:|---:|---:|\n")
	for _, p := range points {
		fmt.Fprintf(&b, "| %.2f | %.4f | %d | %d | %v |\n", p.snrDB, p.bler(), p.crcFail, p.undetected, p.avgDecode())
	}
	return b.String()
}

func writeReport(path, s string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}
