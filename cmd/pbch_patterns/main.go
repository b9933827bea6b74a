package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/edmondkoon97/polar-3gpp-matlab/fec"
)

// patternDump is the YAML view of one code construction.
type patternDump struct {
	A              int    `yaml:"A"`
	P              int    `yaml:"P"`
	P2             int    `yaml:"P2"`
	K              int    `yaml:"K"`
	N              int    `yaml:"N"`
	E              int    `yaml:"E"`
	L              int    `yaml:"L"`
	Mode           string `yaml:"mode"`
	EarlyCRCBits   int    `yaml:"early_crc_bits"`
	InfoPositions  []int  `yaml:"info_positions"`
	CRCInterleaver []int  `yaml:"crc_interleaver"`
	Reliability    []int  `yaml:"reliability,omitempty"`
	RateMatching   []int  `yaml:"rate_matching,omitempty"`
}

func main() {
	var (
		A    = pflag.IntP("payload", "A", 32, "payload bits")
		E    = pflag.IntP("coded", "E", fec.PBCHBlockLength, "transmitted bits")
		L    = pflag.IntP("list", "L", 8, "list size")
		full = pflag.Bool("full", false, "also print the reliability sequence and rate-matching pattern")
	)
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "pbch_patterns"})
	code, err := fec.NewPolarCode(*A, *E, *L)
	if err != nil {
		logger.Fatal("build code", "A", *A, "E", *E, "L", *L, "err", err)
	}
	d := patternDump{
		A: code.A, P: code.P, P2: code.P2, K: code.K, N: code.N, E: code.E, L: code.ListSize,
		Mode:           code.Mode.String(),
		EarlyCRCBits:   code.EarlyCheckCount(),
		CRCInterleaver: code.CRCInterleaver,
	}
	for i, info := range code.InfoBits {
		if info {
			d.InfoPositions = append(d.InfoPositions, i)
		}
	}
	if *full {
		d.Reliability = code.Reliability
		d.RateMatching = code.RateMatching
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		logger.Fatal("encode yaml", "err", err)
	}
	_ = enc.Close()
}
