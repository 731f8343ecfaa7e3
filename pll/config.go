package pll

import (
	"fmt"
)

// Algorithm selects the correction strategy applied per transition.
type Algorithm int

const (
	// Simple is open-loop: the bit cell estimate never moves. Diagnostics
	// and reference decodes only.
	Simple Algorithm = iota
	// PI applies a proportional-integral correction to the bit cell.
	PI
	// Adaptive is PI with gains scheduled on the lock state: quiet while
	// locked, aggressive while searching.
	Adaptive
	// Kalman runs a one-dimensional Kalman filter over the cell estimate.
	// Slow and patient; meant for damaged media.
	Kalman
	// DPLL mirrors a hardware floppy controller's digital PLL with a phase
	// accumulator. More stable on short, bursty protection tracks.
	DPLL
)

func (a Algorithm) String() string {
	switch a {
	case Simple:
		return "Simple"
	case PI:
		return "PI"
	case Adaptive:
		return "Adaptive"
	case Kalman:
		return "Kalman"
	case DPLL:
		return "DPLL"
	default:
		return "Unknown"
	}
}

// Config is the full tuning surface of the PLL. It is plain data: presets
// are just named Config values and go through the same code path as a
// hand-built one.
type Config struct {
	NominalBitcellNs  float64   // expected bit cell width
	ClockRateHz       float64   // sample clock of the capture hardware
	PhaseGain         float64   // proportional gain
	FreqGain          float64   // integral gain
	WindowTolerance   float64   // timing window as a fraction of a bit cell
	BitErrorTolerance float64   // acceptable bit error rate for this media class
	AdaptiveEnabled   bool      // allow gain scheduling (Adaptive algorithm)
	AdaptiveMinGain   float64   // phase gain while locked
	AdaptiveMaxGain   float64   // phase gain while searching
	LockThreshold     int       // consecutive clean transitions before lock
	ProcessNoise      float64   // Kalman process noise
	MeasurementNoise  float64   // Kalman measurement noise
	Algorithm         Algorithm // correction strategy
	RecordHistory     bool      // keep per-transition history
	MaxHistory        int       // history capacity, entries
}

// DefaultConfig is the general-purpose MFM DD tuning.
func DefaultConfig() Config {
	return Config{
		NominalBitcellNs:  2000,
		ClockRateHz:       24e6,
		PhaseGain:         0.10,
		FreqGain:          0.05,
		WindowTolerance:   0.40,
		BitErrorTolerance: 0.05,
		AdaptiveEnabled:   true,
		AdaptiveMinGain:   0.02,
		AdaptiveMaxGain:   0.30,
		LockThreshold:     50,
		ProcessNoise:      0.01,
		MeasurementNoise:  1.0,
		Algorithm:         PI,
		MaxHistory:        10000,
	}
}

func (c *Config) validate() error {
	if c.NominalBitcellNs <= 0 {
		return fmt.Errorf("nominal bit cell must be positive, got %g", c.NominalBitcellNs)
	}
	if c.WindowTolerance <= 0 || c.WindowTolerance > 1 {
		return fmt.Errorf("window tolerance %g outside (0,1]", c.WindowTolerance)
	}
	if c.MaxHistory < 0 {
		return fmt.Errorf("negative history capacity %d", c.MaxHistory)
	}
	return nil
}

// Preset names, one per supported format/media class.
const (
	PresetDD         = "dd"         // IBM/Atari double density MFM
	PresetHD         = "hd"         // IBM high density MFM
	PresetED         = "ed"         // IBM extended density MFM
	PresetAmigaDD    = "amiga-dd"   // Amiga double density MFM
	PresetC64GCR     = "c64-gcr"    // Commodore 1541/1571 GCR
	PresetAppleGCR   = "apple-gcr"  // Apple II GCR
	PresetFMSD       = "fm-sd"      // single density FM
	PresetFMDD       = "fm-dd"      // double density FM
	PresetProtection = "protection" // copy-protected tracks
	PresetDamaged    = "damaged"    // damaged media, patient averaging
)

var presetNames = []string{
	PresetDD, PresetHD, PresetED, PresetAmigaDD, PresetC64GCR,
	PresetAppleGCR, PresetFMSD, PresetFMDD, PresetProtection, PresetDamaged,
}

var presets = map[string]Config{
	PresetDD: {
		NominalBitcellNs: 2000, ClockRateHz: 24e6,
		PhaseGain: 0.12, FreqGain: 0.06, WindowTolerance: 0.40,
		BitErrorTolerance: 0.03, AdaptiveEnabled: true,
		AdaptiveMinGain: 0.03, AdaptiveMaxGain: 0.30,
		LockThreshold: 40, ProcessNoise: 0.01, MeasurementNoise: 1.0,
		Algorithm: PI, MaxHistory: 10000,
	},
	PresetHD: {
		NominalBitcellNs: 1000, ClockRateHz: 24e6,
		PhaseGain: 0.10, FreqGain: 0.05, WindowTolerance: 0.40,
		BitErrorTolerance: 0.03, AdaptiveEnabled: true,
		AdaptiveMinGain: 0.02, AdaptiveMaxGain: 0.25,
		LockThreshold: 80, ProcessNoise: 0.01, MeasurementNoise: 1.0,
		Algorithm: PI, MaxHistory: 10000,
	},
	PresetED: {
		NominalBitcellNs: 500, ClockRateHz: 48e6,
		PhaseGain: 0.08, FreqGain: 0.04, WindowTolerance: 0.35,
		BitErrorTolerance: 0.02, AdaptiveEnabled: true,
		AdaptiveMinGain: 0.01, AdaptiveMaxGain: 0.20,
		LockThreshold: 150, ProcessNoise: 0.01, MeasurementNoise: 1.0,
		Algorithm: PI, MaxHistory: 10000,
	},
	PresetAmigaDD: {
		NominalBitcellNs: 2000, ClockRateHz: 24e6,
		PhaseGain: 0.10, FreqGain: 0.05, WindowTolerance: 0.40,
		BitErrorTolerance: 0.05, AdaptiveEnabled: true,
		AdaptiveMinGain: 0.02, AdaptiveMaxGain: 0.25,
		LockThreshold: 50, ProcessNoise: 0.01, MeasurementNoise: 1.0,
		Algorithm: PI, MaxHistory: 10000,
	},
	PresetC64GCR: {
		NominalBitcellNs: 3200, ClockRateHz: 16e6,
		PhaseGain: 0.15, FreqGain: 0.08, WindowTolerance: 0.50,
		BitErrorTolerance: 0.10, AdaptiveEnabled: true,
		AdaptiveMinGain: 0.05, AdaptiveMaxGain: 0.40,
		LockThreshold: 30, ProcessNoise: 0.01, MeasurementNoise: 1.0,
		Algorithm: Adaptive, MaxHistory: 10000,
	},
	PresetAppleGCR: {
		NominalBitcellNs: 4000, ClockRateHz: 8e6,
		PhaseGain: 0.20, FreqGain: 0.10, WindowTolerance: 0.50,
		BitErrorTolerance: 0.08, AdaptiveEnabled: true,
		AdaptiveMinGain: 0.05, AdaptiveMaxGain: 0.50,
		LockThreshold: 20, ProcessNoise: 0.01, MeasurementNoise: 1.0,
		Algorithm: Adaptive, MaxHistory: 10000,
	},
	PresetFMSD: {
		NominalBitcellNs: 4000, ClockRateHz: 8e6,
		PhaseGain: 0.15, FreqGain: 0.08, WindowTolerance: 0.45,
		BitErrorTolerance: 0.06,
		AdaptiveMinGain: 0.05, AdaptiveMaxGain: 0.30,
		LockThreshold: 30, ProcessNoise: 0.01, MeasurementNoise: 1.0,
		Algorithm: Simple, MaxHistory: 10000,
	},
	PresetFMDD: {
		NominalBitcellNs: 4000, ClockRateHz: 8e6,
		PhaseGain: 0.12, FreqGain: 0.06, WindowTolerance: 0.40,
		BitErrorTolerance: 0.05,
		AdaptiveMinGain: 0.03, AdaptiveMaxGain: 0.25,
		LockThreshold: 40, ProcessNoise: 0.01, MeasurementNoise: 1.0,
		Algorithm: Simple, MaxHistory: 10000,
	},
	PresetProtection: {
		NominalBitcellNs: 2000, ClockRateHz: 24e6,
		PhaseGain: 0.05, FreqGain: 0.02, WindowTolerance: 0.60,
		BitErrorTolerance: 0.20, AdaptiveEnabled: true,
		AdaptiveMinGain: 0.01, AdaptiveMaxGain: 0.15,
		LockThreshold: 100, ProcessNoise: 0.01, MeasurementNoise: 1.0,
		Algorithm: Kalman, MaxHistory: 10000,
	},
	PresetDamaged: {
		NominalBitcellNs: 2000, ClockRateHz: 24e6,
		PhaseGain: 0.03, FreqGain: 0.01, WindowTolerance: 0.70,
		BitErrorTolerance: 0.30, AdaptiveEnabled: true,
		AdaptiveMinGain: 0.01, AdaptiveMaxGain: 0.10,
		LockThreshold: 200, ProcessNoise: 0.005, MeasurementNoise: 2.0,
		Algorithm: Kalman, MaxHistory: 10000,
	},
}

// PresetByName looks up a named preset configuration.
func PresetByName(name string) (Config, bool) {
	c, ok := presets[name]
	return c, ok
}

// PresetNames lists the available presets in a stable order.
func PresetNames() []string {
	names := make([]string, len(presetNames))
	copy(names, presetNames)
	return names
}
