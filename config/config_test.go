package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxdec/fluxdec/flux"
	"github.com/fluxdec/fluxdec/pll"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fluxdec.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestEmbeddedDefaultIsValid(t *testing.T) {
	var conf Config
	require.NoError(t, toml.Unmarshal(defaultConfigData, &conf))
	require.NoError(t, conf.validate())

	tc, err := conf.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, flux.EncodingMFM, tc.Encoding)
	assert.Equal(t, 2000.0, tc.PLL.NominalBitcellNs)
}

func TestLoadFileResolvesProfiles(t *testing.T) {
	path := writeConfig(t, `
default = "dd"

[[profile]]
name = "dd"
preset = "dd"
encoding = "mfm"

[[profile]]
name = "tuned"
preset = "hd"
encoding = "auto"
bitcell_ns = 950
phase_gain = 0.2
window = 0.5
lock_threshold = 25
max_sectors = 20
`)
	conf, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"dd", "tuned"}, conf.ProfileNames())

	tc, err := conf.Resolve("tuned")
	require.NoError(t, err)
	assert.Equal(t, flux.EncodingUnknown, tc.Encoding)
	assert.Equal(t, 950.0, tc.PLL.NominalBitcellNs)
	assert.Equal(t, 0.2, tc.PLL.PhaseGain)
	assert.Equal(t, 0.5, tc.PLL.WindowTolerance)
	assert.Equal(t, 25, tc.PLL.LockThreshold)
	assert.Equal(t, 20, tc.MaxSectors)

	// Unset overrides keep the preset values.
	hd, _ := pll.PresetByName(pll.PresetHD)
	assert.Equal(t, hd.FreqGain, tc.PLL.FreqGain)

	_, err = conf.Resolve("missing")
	assert.Error(t, err)
}

func TestLoadFileRejectsBadConfigs(t *testing.T) {
	cases := map[string]string{
		"missing default": `
[[profile]]
name = "dd"
preset = "dd"
`,
		"default not found": `
default = "nope"

[[profile]]
name = "dd"
preset = "dd"
`,
		"unknown preset": `
default = "dd"

[[profile]]
name = "dd"
preset = "turbo"
`,
		"unknown encoding": `
default = "dd"

[[profile]]
name = "dd"
preset = "dd"
encoding = "pnm"
`,
		"unnamed profile": `
default = "dd"

[[profile]]
name = "dd"
preset = "dd"

[[profile]]
preset = "hd"
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]flux.Encoding{
		"fm":   flux.EncodingFM,
		"MFM":  flux.EncodingMFM,
		"gcr":  flux.EncodingGCR,
		"auto": flux.EncodingUnknown,
	} {
		got, err := parseEncoding(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := parseEncoding("bogus")
	assert.Error(t, err)
}
