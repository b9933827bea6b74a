package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 32, cfg.Decoder.PayloadBits)
	assert.Equal(t, 8, cfg.Decoder.ListSize)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pbch.yaml")
	data := `
decoder:
  list_size: 16
  min_sum: true
eval:
  snr_db: [-8, -7.5]
  trials: 50
  erasure_rate: 0.05
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Decoder.PayloadBits)
	assert.Equal(t, 16, cfg.Decoder.ListSize)
	assert.True(t, cfg.Decoder.MinSum)
	assert.Equal(t, []float64{-8, -7.5}, cfg.Eval.SNRdB)
	assert.Equal(t, 50, cfg.Eval.Trials)
	assert.Equal(t, uint64(42), cfg.Eval.Seed)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("decoder: [1, 2"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "failed to parse config file")

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("decoder:\n  list_size: 0\n"), 0o644))
	_, err = Load(invalid)
	assert.ErrorContains(t, err, "list_size")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"payload zero":  func(c *Config) { c.Decoder.PayloadBits = 0 },
		"payload large": func(c *Config) { c.Decoder.PayloadBits = 141 },
		"workers":       func(c *Config) { c.Decoder.Workers = -1 },
		"trials":        func(c *Config) { c.Eval.Trials = 0 },
		"erasure":       func(c *Config) { c.Eval.ErasureRate = 1.2 },
		"parallel":      func(c *Config) { c.Eval.Parallel = 0 },
		"level":         func(c *Config) { c.Logging.Level = "trace" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
