package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edmondkoon97/polar-3gpp-matlab/fec"
)

// Config is shared by the pbch_* commands. Flags override file values.
type Config struct {
	Decoder DecoderConfig `yaml:"decoder"`
	Eval    EvalConfig    `yaml:"eval"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type DecoderConfig struct {
	PayloadBits int  `yaml:"payload_bits"` // A
	ListSize    int  `yaml:"list_size"`    // L
	MinSum      bool `yaml:"min_sum"`
	Workers     int  `yaml:"workers"` // goroutines per decode, 0 or 1 = serial
}

type EvalConfig struct {
	SNRdB       []float64 `yaml:"snr_db"`
	Trials      int       `yaml:"trials"` // blocks per SNR point
	Seed        uint64    `yaml:"seed"`
	ErasureRate float64   `yaml:"erasure_rate"`
	Parallel    int       `yaml:"parallel"` // concurrent trials
	Report      string    `yaml:"report"`   // markdown output path, empty = stdout only
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // e.g. ":9100", empty disables /metrics
}

// Default returns the PBCH operating point used when no file is given.
func Default() *Config {
	return &Config{
		Decoder: DecoderConfig{PayloadBits: 32, ListSize: 8, Workers: 1},
		Eval: EvalConfig{
			SNRdB:    []float64{-6, -4, -2, 0},
			Trials:   200,
			Seed:     42,
			Parallel: 4,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML file on top of Default.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges before any decoder is built.
func (c *Config) Validate() error {
	d := c.Decoder
	if d.PayloadBits <= 0 || d.PayloadBits > fec.MaxPayloadLength {
		return fmt.Errorf("decoder.payload_bits must be in 1..%d, got %d", fec.MaxPayloadLength, d.PayloadBits)
	}
	if d.ListSize <= 0 {
		return fmt.Errorf("decoder.list_size must be positive, got %d", d.ListSize)
	}
	if d.Workers < 0 {
		return fmt.Errorf("decoder.workers must not be negative, got %d", d.Workers)
	}
	e := c.Eval
	if e.Trials <= 0 {
		return fmt.Errorf("eval.trials must be positive, got %d", e.Trials)
	}
	if e.ErasureRate < 0 || e.ErasureRate > 1 {
		return fmt.Errorf("eval.erasure_rate must be in [0,1], got %v", e.ErasureRate)
	}
	if e.Parallel <= 0 {
		return fmt.Errorf("eval.parallel must be positive, got %d", e.Parallel)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
