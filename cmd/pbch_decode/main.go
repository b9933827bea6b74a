package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/edmondkoon97/polar-3gpp-matlab/fec"
	"github.com/edmondkoon97/polar-3gpp-matlab/internal/config"
	"github.com/edmondkoon97/polar-3gpp-matlab/internal/fecwire"
)

func main() {
	var (
		cfgPath  = pflag.StringP("config", "c", "", "YAML config file")
		input    = pflag.StringP("input", "i", "-", "LLR file, '-' for stdin")
		format   = pflag.StringP("format", "f", "text", "input format: text or bin")
		A        = pflag.IntP("payload", "A", 0, "payload bits (overrides config and the bin header)")
		L        = pflag.IntP("list", "L", 0, "list size (overrides config)")
		minSum   = pflag.Bool("min-sum", false, "use the min-sum check-node update")
		workers  = pflag.IntP("workers", "w", 0, "goroutines per decode (overrides config)")
		logLevel = pflag.String("log-level", "", "debug, info, warn or error")
		help     = pflag.BoolP("help", "h", false, "Display help text.")
	)
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pbch_decode [options]\n\n")
		fmt.Fprintf(os.Stderr, "Decodes one PBCH block of %d LLRs (LLR = ln P(0)/P(1)) and prints the payload bits.\n\n", fec.PBCHBlockLength)
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal("load config", "err", err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "pbch_decode"})
	if lvl, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(lvl)
	}

	r, closeInput, err := openInput(*input)
	if err != nil {
		logger.Fatal("open input", "path", *input, "err", err)
	}
	defer closeInput()

	var llr []float64
	switch *format {
	case "text":
		llr, err = fecwire.ReadTextLLRs(r)
	case "bin":
		var h fecwire.LLRHeader
		h, llr, err = fecwire.ReadLLRs(r)
		if err == nil && h.A != 0 && *A == 0 {
			cfg.Decoder.PayloadBits = int(h.A)
		}
		if err == nil && h.L != 0 && *L == 0 {
			cfg.Decoder.ListSize = int(h.L)
		}
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		logger.Fatal("read llrs", "err", err)
	}

	if *A > 0 {
		cfg.Decoder.PayloadBits = *A
	}
	if *L > 0 {
		cfg.Decoder.ListSize = *L
	}
	if *minSum {
		cfg.Decoder.MinSum = true
	}
	if *workers > 0 {
		cfg.Decoder.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}
	logger.Debug("decoding", "llrs", len(llr), "A", cfg.Decoder.PayloadBits, "L", cfg.Decoder.ListSize, "min_sum", cfg.Decoder.MinSum)

	bits, ok, err := fec.DecodePBCHWithOptions(llr, cfg.Decoder.PayloadBits, cfg.Decoder.ListSize,
		fec.DecodeOptions{MinSum: cfg.Decoder.MinSum, Workers: cfg.Decoder.Workers})
	if err != nil {
		if errors.Is(err, fec.ErrUnsupportedBlockLength) {
			logger.Fatal("wrong block length", "got", len(llr), "want", fec.PBCHBlockLength)
		}
		logger.Fatal("decode", "err", err)
	}
	if !ok {
		logger.Warn("no candidate passed CRC24C, payload is a best effort")
	}
	fmt.Println(formatBits(bits))
	if !ok {
		os.Exit(2)
	}
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func formatBits(bits []bool) string {
	var b strings.Builder
	for _, v := range bits {
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
