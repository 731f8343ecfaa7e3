// Package pll recovers a self-clocking bitstream from flux-transition
// intervals. One engine, five correction strategies: the shared skeleton
// measures each interval in bit cells and runs the lock state machine, while
// the selected algorithm decides how the bit cell estimate is corrected.
package pll

import (
	"fmt"
	"math"
)

// State is the live tracking state. It is mutated only by Process and reset
// to config defaults by Resync/Reset.
type State struct {
	CurrentBitcellNs float64 // current bit cell estimate
	PhaseError       float64 // phase error of the last transition
	FreqError        float64 // integrated frequency error (PI/Adaptive)
	KalmanState      float64 // Kalman cell estimate
	KalmanCovariance float64 // Kalman estimate covariance
	Locked           bool
	BitsSinceError   int     // consecutive transitions inside the window
	BitsSinceLock    int     // transitions processed while locked
	AccumulatedPhase float64 // DPLL phase accumulator
	TotalTransitions uint64
}

// Result describes one processed transition. Ephemeral: produced and
// consumed per call.
type Result struct {
	BitValid      bool    // a bit (or bits) was produced
	BitValue      int     // always 1: a transition marks a one
	BitCount      int     // elapsed bit cells, 1..4
	PhaseError    float64 // fraction of a bit cell
	Confidence    float64 // 0..1
	PlausibleSync bool    // long clean run, typical of sync marks
	TimingError   bool    // phase error outside the window
}

// Stats are running decode statistics. BitErrorRate and LockPercentage are
// derived when the snapshot is taken.
type Stats struct {
	TotalBits        uint64
	TotalTransitions uint64
	TimingErrors     uint64
	AvgPhaseError    float64
	MaxPhaseError    float64
	MinBitcellNs     float64
	AvgBitcellNs     float64
	MaxBitcellNs     float64
	BitErrorRate     float64
	LockPercentage   float64
}

// PLL is a phase-locked loop over one flux stream. Not safe for concurrent
// use: each logical stream owns a private instance.
type PLL struct {
	config  Config
	state   State
	stats   Stats
	history History
}

// New builds a PLL from a configuration.
func New(cfg Config) (*PLL, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := &PLL{config: cfg}
	if cfg.RecordHistory && cfg.MaxHistory > 0 {
		p.history.capacity = cfg.MaxHistory
	}
	p.Reset()
	return p, nil
}

// NewPreset builds a PLL from a named preset.
func NewPreset(name string) (*PLL, error) {
	cfg, ok := PresetByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown PLL preset %q", name)
	}
	return New(cfg)
}

// Process converts one flux interval into elapsed bit cells. Transitions
// must arrive in chronological order; to restart mid-stream, call Resync
// first. It never fails: degraded input shows up as timing errors and a
// dropped lock, not as an error.
func (p *PLL) Process(intervalNs float64) Result {
	var count int
	var phaseErr float64

	switch p.config.Algorithm {
	case Simple:
		count, phaseErr = p.stepSimple(intervalNs)
	case Adaptive:
		count, phaseErr = p.stepAdaptive(intervalNs)
	case Kalman:
		count, phaseErr = p.stepKalman(intervalNs)
	case DPLL:
		count, phaseErr = p.stepDPLL(intervalNs)
	default:
		count, phaseErr = p.stepPI(intervalNs, p.config.PhaseGain, p.config.FreqGain)
	}

	p.state.PhaseError = phaseErr
	p.state.TotalTransitions++

	timingError := math.Abs(phaseErr) > p.config.WindowTolerance
	if timingError {
		p.state.BitsSinceError = 0
		p.state.BitsSinceLock = 0
		p.state.Locked = false
	} else {
		p.state.BitsSinceError++
		if p.state.BitsSinceError > p.config.LockThreshold {
			p.state.Locked = true
		}
		if p.state.Locked {
			p.state.BitsSinceLock++
		}
	}

	confidence := 1 - math.Abs(phaseErr)
	if confidence < 0 {
		confidence = 0
	}

	p.updateStats(intervalNs, count, phaseErr, timingError)

	return Result{
		BitValid:      count > 0,
		BitValue:      1,
		BitCount:      count,
		PhaseError:    phaseErr,
		Confidence:    confidence,
		PlausibleSync: count >= 3 && !timingError,
		TimingError:   timingError,
	}
}

func (p *PLL) updateStats(intervalNs float64, bits int, phaseErr float64, timingError bool) {
	s := &p.stats
	s.TotalBits += uint64(bits)
	s.TotalTransitions++
	if timingError {
		s.TimingErrors++
	}

	n := float64(s.TotalTransitions)
	abs := math.Abs(phaseErr)
	s.AvgPhaseError = (s.AvgPhaseError*(n-1) + abs) / n
	if abs > s.MaxPhaseError {
		s.MaxPhaseError = abs
	}

	bc := p.state.CurrentBitcellNs
	if s.MinBitcellNs == 0 || bc < s.MinBitcellNs {
		s.MinBitcellNs = bc
	}
	if bc > s.MaxBitcellNs {
		s.MaxBitcellNs = bc
	}
	s.AvgBitcellNs = (s.AvgBitcellNs*(n-1) + bc) / n

	p.history.record(intervalNs, bc, phaseErr)
}

// Reset restores the configured defaults, clearing statistics and history.
func (p *PLL) Reset() {
	p.state = State{
		CurrentBitcellNs: p.config.NominalBitcellNs,
		KalmanState:      p.config.NominalBitcellNs,
		KalmanCovariance: kalmanInitialCovariance,
	}
	p.stats = Stats{}
	p.history.entries = p.history.entries[:0]
}

// Resync restarts phase/frequency tracking without touching statistics.
// Required before feeding transitions out of chronological order.
func (p *PLL) Resync() {
	p.state.CurrentBitcellNs = p.config.NominalBitcellNs
	p.state.PhaseError = 0
	p.state.FreqError = 0
	p.state.KalmanState = p.config.NominalBitcellNs
	p.state.KalmanCovariance = kalmanInitialCovariance
	p.state.Locked = false
	p.state.BitsSinceError = 0
	p.state.BitsSinceLock = 0
	p.state.AccumulatedPhase = 0
}

// Locked reports whether the loop currently agrees with the signal.
func (p *PLL) Locked() bool {
	return p.state.Locked
}

// State returns a snapshot of the tracking state.
func (p *PLL) State() State {
	return p.state
}

// Stats returns a snapshot of the running statistics with the derived
// rates filled in.
func (p *PLL) Stats() Stats {
	s := p.stats
	if s.TotalTransitions > 0 {
		s.BitErrorRate = float64(s.TimingErrors) / float64(s.TotalTransitions)
	}
	if s.TotalBits > 0 {
		s.LockPercentage = float64(p.state.BitsSinceLock) * 100 / float64(s.TotalBits)
	}
	return s
}

// Config returns the active configuration.
func (p *PLL) Config() Config {
	return p.config
}

// History returns the recorded per-transition history.
func (p *PLL) History() *History {
	return &p.history
}

// SetPhaseGain adjusts the proportional gain for live tuning.
// Out-of-range values are ignored.
func (p *PLL) SetPhaseGain(gain float64) {
	if gain >= 0 && gain <= 1 {
		p.config.PhaseGain = gain
	}
}

// SetFreqGain adjusts the integral gain for live tuning.
func (p *PLL) SetFreqGain(gain float64) {
	if gain >= 0 && gain <= 1 {
		p.config.FreqGain = gain
	}
}

// SetWindow adjusts the timing window tolerance for live tuning.
func (p *PLL) SetWindow(tolerance float64) {
	if tolerance >= 0.1 && tolerance <= 0.9 {
		p.config.WindowTolerance = tolerance
	}
}
