// Package config loads decode profiles from a TOML file. A profile names a
// PLL preset plus optional overrides, so a difficult disk can be retried
// with adjusted tuning without rebuilding anything.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/fluxdec/fluxdec/flux"
	"github.com/fluxdec/fluxdec/pll"
	"github.com/fluxdec/fluxdec/track"
)

//go:embed fluxdec.toml
var defaultConfigData []byte

// Config represents the entire TOML configuration structure.
type Config struct {
	Default string    `toml:"default"`
	Profile []Profile `toml:"profile"`
}

// Profile is one named decode tuning. Zero-valued override fields keep the
// preset's value.
type Profile struct {
	Name          string  `toml:"name"`
	Preset        string  `toml:"preset"`
	Encoding      string  `toml:"encoding"`
	BitcellNs     float64 `toml:"bitcell_ns"`
	PhaseGain     float64 `toml:"phase_gain"`
	FreqGain      float64 `toml:"freq_gain"`
	Window        float64 `toml:"window"`
	LockThreshold int     `toml:"lock_threshold"`
	MaxSectors    int     `toml:"max_sectors"`
}

// configPath determines the config file path based on the operating system.
func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "fluxdec")
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".fluxdec"), nil
}

// Initialize loads the configuration file, creating it from the embedded
// default if it does not exist, and returns the parsed configuration.
func Initialize() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory %s: %w", dir, err)
		}
		if err := os.WriteFile(path, defaultConfigData, 0644); err != nil {
			return nil, fmt.Errorf("failed to create default config file at %s: %w", path, err)
		}
	}

	return LoadFile(path)
}

// LoadFile parses and validates a configuration file.
func LoadFile(path string) (*Config, error) {
	var conf Config
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config at %s: %w", path, err)
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &conf, nil
}

func (c *Config) validate() error {
	if c.Default == "" {
		return errors.New("`default` key is missing or empty in config")
	}
	if c.lookup(c.Default) == nil {
		return fmt.Errorf("default profile %q not found in profile array", c.Default)
	}
	for i := range c.Profile {
		p := &c.Profile[i]
		if p.Name == "" {
			return fmt.Errorf("profile %d has no name", i)
		}
		if _, ok := pll.PresetByName(p.Preset); !ok {
			return fmt.Errorf("profile %q names unknown preset %q", p.Name, p.Preset)
		}
		if p.Encoding != "" {
			if _, err := parseEncoding(p.Encoding); err != nil {
				return fmt.Errorf("profile %q: %w", p.Name, err)
			}
		}
	}
	return nil
}

func (c *Config) lookup(name string) *Profile {
	for i := range c.Profile {
		if c.Profile[i].Name == name {
			return &c.Profile[i]
		}
	}
	return nil
}

// Resolve builds the decoder configuration for the named profile. An empty
// name resolves the default profile.
func (c *Config) Resolve(name string) (track.Config, error) {
	if name == "" {
		name = c.Default
	}
	p := c.lookup(name)
	if p == nil {
		return track.Config{}, fmt.Errorf("profile %q not found in configuration", name)
	}

	pc, ok := pll.PresetByName(p.Preset)
	if !ok {
		return track.Config{}, fmt.Errorf("profile %q names unknown preset %q", p.Name, p.Preset)
	}
	if p.BitcellNs > 0 {
		pc.NominalBitcellNs = p.BitcellNs
	}
	if p.PhaseGain > 0 {
		pc.PhaseGain = p.PhaseGain
	}
	if p.FreqGain > 0 {
		pc.FreqGain = p.FreqGain
	}
	if p.Window > 0 {
		pc.WindowTolerance = p.Window
	}
	if p.LockThreshold > 0 {
		pc.LockThreshold = p.LockThreshold
	}

	enc := flux.EncodingUnknown
	if p.Encoding != "" {
		var err error
		if enc, err = parseEncoding(p.Encoding); err != nil {
			return track.Config{}, err
		}
	}

	return track.Config{PLL: pc, Encoding: enc, MaxSectors: p.MaxSectors}, nil
}

// ProfileNames lists the configured profiles.
func (c *Config) ProfileNames() []string {
	names := make([]string, len(c.Profile))
	for i := range c.Profile {
		names[i] = c.Profile[i].Name
	}
	return names
}

func parseEncoding(s string) (flux.Encoding, error) {
	switch strings.ToLower(s) {
	case "fm":
		return flux.EncodingFM, nil
	case "mfm":
		return flux.EncodingMFM, nil
	case "gcr":
		return flux.EncodingGCR, nil
	case "auto", "":
		return flux.EncodingUnknown, nil
	default:
		return flux.EncodingUnknown, fmt.Errorf("unknown encoding %q", s)
	}
}
