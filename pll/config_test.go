package pll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, PI, cfg.Algorithm)
	assert.Equal(t, 2000.0, cfg.NominalBitcellNs)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"zero bitcell":     func(c *Config) { c.NominalBitcellNs = 0 },
		"negative bitcell": func(c *Config) { c.NominalBitcellNs = -2000 },
		"zero window":      func(c *Config) { c.WindowTolerance = 0 },
		"window over one":  func(c *Config) { c.WindowTolerance = 1.5 },
		"negative history": func(c *Config) { c.MaxHistory = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.validate())
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}

func TestPresetLookup(t *testing.T) {
	for _, name := range PresetNames() {
		cfg, ok := PresetByName(name)
		require.True(t, ok, "preset %q missing", name)
		assert.NoError(t, cfg.validate(), "preset %q invalid", name)
	}

	_, ok := PresetByName("no-such-preset")
	assert.False(t, ok)

	_, err := NewPreset("no-such-preset")
	assert.Error(t, err)
}

func TestPresetAlgorithms(t *testing.T) {
	for name, want := range map[string]Algorithm{
		PresetDD:         PI,
		PresetHD:         PI,
		PresetC64GCR:     Adaptive,
		PresetFMSD:       Simple,
		PresetProtection: Kalman,
		PresetDamaged:    Kalman,
	} {
		cfg, ok := PresetByName(name)
		require.True(t, ok)
		assert.Equal(t, want, cfg.Algorithm, "preset %q", name)
	}
}

func TestAlgorithmString(t *testing.T) {
	assert.Equal(t, "Simple", Simple.String())
	assert.Equal(t, "PI", PI.String())
	assert.Equal(t, "Adaptive", Adaptive.String())
	assert.Equal(t, "Kalman", Kalman.String())
	assert.Equal(t, "DPLL", DPLL.String())
}
