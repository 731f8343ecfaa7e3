package pll

import "math"

const (
	// Initial covariance for the Kalman estimator: effectively "no prior",
	// so the first measurements dominate.
	kalmanInitialCovariance = 100.0

	// Bit cell clamp bands relative to the nominal cell.
	piClampFraction   = 0.30
	dpllClampFraction = 0.20

	// A single interval spans at most four bit cells on any supported
	// encoding; anything longer is a dropout.
	maxCellsPerInterval = 4
)

// cellCount measures an interval against the current bit cell estimate.
// The count is clamped to 1..4 and the phase error is the leftover,
// expressed as a fraction of a cell.
func cellCount(intervalNs, bitcellNs float64) (int, float64) {
	count := int(math.Round(intervalNs / bitcellNs))
	if count < 1 {
		count = 1
	} else if count > maxCellsPerInterval {
		count = maxCellsPerInterval
	}
	phaseErr := (intervalNs - float64(count)*bitcellNs) / bitcellNs
	return count, phaseErr
}

// stepSimple runs the loop open: the bit cell stays at its nominal value
// and the phase error is only observed. A useful baseline and the right
// choice for pristine FM media.
func (p *PLL) stepSimple(intervalNs float64) (int, float64) {
	return cellCount(intervalNs, p.state.CurrentBitcellNs)
}

// stepPI applies a proportional-integral correction. The proportional term
// tracks phase, the integral term absorbs sustained drive speed error. The
// corrected cell is clamped to ±30% of nominal so a burst of noise cannot
// walk the estimate away from the signal.
func (p *PLL) stepPI(intervalNs, phaseGain, freqGain float64) (int, float64) {
	count, phaseErr := cellCount(intervalNs, p.state.CurrentBitcellNs)

	p.state.FreqError += phaseErr * freqGain
	p.state.CurrentBitcellNs *= 1 + phaseErr*phaseGain + p.state.FreqError

	nominal := p.config.NominalBitcellNs
	lo := nominal * (1 - piClampFraction)
	hi := nominal * (1 + piClampFraction)
	if p.state.CurrentBitcellNs < lo {
		p.state.CurrentBitcellNs = lo
	} else if p.state.CurrentBitcellNs > hi {
		p.state.CurrentBitcellNs = hi
	}
	return count, phaseErr
}

// stepAdaptive is the PI loop with lock-scheduled gains: aggressive while
// acquiring, gentle once locked. With adaptation disabled it degrades to
// plain PI.
func (p *PLL) stepAdaptive(intervalNs float64) (int, float64) {
	if !p.config.AdaptiveEnabled {
		return p.stepPI(intervalNs, p.config.PhaseGain, p.config.FreqGain)
	}
	phaseGain := p.config.AdaptiveMaxGain
	if p.state.Locked {
		phaseGain = p.config.AdaptiveMinGain
	}
	freqGain := p.config.FreqGain
	if p.config.PhaseGain > 0 {
		freqGain = p.config.FreqGain * phaseGain / p.config.PhaseGain
	}
	return p.stepPI(intervalNs, phaseGain, freqGain)
}

// stepKalman treats the bit cell as the hidden state of a 1-D Kalman
// filter and each interval, divided by its cell count, as a noisy
// measurement of it. The estimate is deliberately unclamped: on damaged
// media the optimal estimate may sit well outside the PI band.
func (p *PLL) stepKalman(intervalNs float64) (int, float64) {
	count, phaseErr := cellCount(intervalNs, p.state.CurrentBitcellNs)
	measurement := intervalNs / float64(count)

	predCov := p.state.KalmanCovariance + p.config.ProcessNoise
	gain := predCov / (predCov + p.config.MeasurementNoise)
	p.state.KalmanState += gain * (measurement - p.state.KalmanState)
	p.state.KalmanCovariance = (1 - gain) * predCov

	p.state.CurrentBitcellNs = p.state.KalmanState
	return count, phaseErr
}

// stepDPLL accumulates phase across intervals the way a hardware digital
// PLL does, consuming whole cells from the accumulator once half a cell of
// phase is pending. Fractional cell positions survive between transitions,
// which the divide-and-round loops throw away.
func (p *PLL) stepDPLL(intervalNs float64) (int, float64) {
	p.state.AccumulatedPhase += intervalNs

	count := 0
	for p.state.AccumulatedPhase >= 0.5*p.state.CurrentBitcellNs {
		p.state.AccumulatedPhase -= p.state.CurrentBitcellNs
		count++
	}
	phaseErr := p.state.AccumulatedPhase / p.state.CurrentBitcellNs

	p.state.CurrentBitcellNs *= 1 + phaseErr*p.config.PhaseGain
	nominal := p.config.NominalBitcellNs
	lo := nominal * (1 - dpllClampFraction)
	hi := nominal * (1 + dpllClampFraction)
	if p.state.CurrentBitcellNs < lo {
		p.state.CurrentBitcellNs = lo
	} else if p.state.CurrentBitcellNs > hi {
		p.state.CurrentBitcellNs = hi
	}

	if count < 1 {
		count = 1
	} else if count > maxCellsPerInterval {
		count = maxCellsPerInterval
	}
	return count, phaseErr
}
