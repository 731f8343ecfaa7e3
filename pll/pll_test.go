package pll

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanIntervals builds a stream of exact 2-, 3- and 4-cell intervals at the
// given bit cell length.
func cleanIntervals(bitcellNs float64, n int) []float64 {
	cells := []int{2, 3, 2, 4, 2, 3, 4, 2}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(cells[i%len(cells)]) * bitcellNs
	}
	return out
}

// jitterIntervals adds reproducible jitter to a clean stream, as a fraction
// of the bit cell.
func jitterIntervals(bitcellNs float64, n int, fraction float64) []float64 {
	rng := rand.New(rand.NewSource(42))
	out := cleanIntervals(bitcellNs, n)
	for i := range out {
		out[i] += (rng.Float64()*2 - 1) * fraction * bitcellNs
	}
	return out
}

func TestProcessCleanSignalAllAlgorithms(t *testing.T) {
	algorithms := []Algorithm{Simple, PI, Adaptive, Kalman, DPLL}
	for _, alg := range algorithms {
		alg := alg
		t.Run(alg.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Algorithm = alg
			cfg.AdaptiveEnabled = alg == Adaptive
			p, err := New(cfg)
			require.NoError(t, err)

			for _, iv := range cleanIntervals(cfg.NominalBitcellNs, 200) {
				r := p.Process(iv)
				assert.True(t, r.BitValid)
				assert.False(t, r.TimingError, "clean interval flagged as timing error")
			}

			stats := p.Stats()
			assert.Equal(t, uint64(0), stats.TimingErrors)
			assert.True(t, p.Locked(), "should lock on a clean signal")
			assert.Greater(t, stats.LockPercentage, 0.0)
		})
	}
}

func TestProcessBitCounts(t *testing.T) {
	cfg := DefaultConfig()
	p, err := New(cfg)
	require.NoError(t, err)

	bc := cfg.NominalBitcellNs
	for _, tc := range []struct {
		interval float64
		count    int
	}{
		{2 * bc, 2},
		{3 * bc, 3},
		{4 * bc, 4},
		{0.4 * bc, 1}, // clamped low
		{10 * bc, 4},  // clamped high
	} {
		r := p.Process(tc.interval)
		assert.Equal(t, tc.count, r.BitCount, "interval %.0f ns", tc.interval)
		p.Resync()
	}
}

func TestLockThresholdIsStrict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LockThreshold = 10
	p, err := New(cfg)
	require.NoError(t, err)

	bc := cfg.NominalBitcellNs
	for i := 0; i < cfg.LockThreshold; i++ {
		p.Process(2 * bc)
	}
	assert.False(t, p.Locked(), "locked at exactly the threshold")
	p.Process(2 * bc)
	assert.True(t, p.Locked(), "not locked one transition past the threshold")
}

func TestTimingErrorDropsLock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = Simple
	p, err := New(cfg)
	require.NoError(t, err)

	bc := cfg.NominalBitcellNs
	for i := 0; i < cfg.LockThreshold+5; i++ {
		p.Process(2 * bc)
	}
	require.True(t, p.Locked())

	// Half a cell off: far outside any window.
	r := p.Process(2.5 * bc)
	assert.True(t, r.TimingError)
	assert.False(t, p.Locked())
	assert.Equal(t, 0, p.State().BitsSinceError)
	assert.Equal(t, uint64(1), p.Stats().TimingErrors)
}

func TestPIClampBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PhaseGain = 1.0
	cfg.FreqGain = 0.5
	p, err := New(cfg)
	require.NoError(t, err)

	// Hammer the loop with consistently long intervals; the estimate must
	// stay within 30% of nominal.
	for i := 0; i < 500; i++ {
		p.Process(2.45 * cfg.NominalBitcellNs)
	}
	bc := p.State().CurrentBitcellNs
	assert.LessOrEqual(t, bc, cfg.NominalBitcellNs*1.3+1e-9)
	assert.GreaterOrEqual(t, bc, cfg.NominalBitcellNs*0.7-1e-9)
}

func TestDPLLClampBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = DPLL
	cfg.PhaseGain = 1.0
	p, err := New(cfg)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		p.Process(2.4 * cfg.NominalBitcellNs)
	}
	bc := p.State().CurrentBitcellNs
	assert.LessOrEqual(t, bc, cfg.NominalBitcellNs*1.2+1e-9)
	assert.GreaterOrEqual(t, bc, cfg.NominalBitcellNs*0.8-1e-9)
}

func TestKalmanConvergesToActualBitcell(t *testing.T) {
	cfg, ok := PresetByName(PresetDamaged)
	require.True(t, ok)
	p, err := New(cfg)
	require.NoError(t, err)

	// Drive running 5% fast: the unclamped estimator should settle near the
	// true cell length.
	actual := cfg.NominalBitcellNs * 0.95
	for _, iv := range cleanIntervals(actual, 2000) {
		p.Process(iv)
	}
	assert.InDelta(t, actual, p.State().CurrentBitcellNs, actual*0.02)
}

func TestSimpleNeverCorrects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Algorithm = Simple
	p, err := New(cfg)
	require.NoError(t, err)

	for _, iv := range jitterIntervals(cfg.NominalBitcellNs, 300, 0.1) {
		p.Process(iv)
	}
	assert.Equal(t, cfg.NominalBitcellNs, p.State().CurrentBitcellNs)
}

func TestAdaptiveGainSchedule(t *testing.T) {
	cfg, ok := PresetByName(PresetC64GCR)
	require.True(t, ok)
	require.True(t, cfg.AdaptiveEnabled)
	p, err := New(cfg)
	require.NoError(t, err)

	for _, iv := range jitterIntervals(cfg.NominalBitcellNs, 500, 0.05) {
		r := p.Process(iv)
		assert.False(t, r.TimingError)
	}
	assert.True(t, p.Locked())
}

func TestPlausibleSync(t *testing.T) {
	cfg := DefaultConfig()
	p, err := New(cfg)
	require.NoError(t, err)

	bc := cfg.NominalBitcellNs
	assert.False(t, p.Process(2*bc).PlausibleSync)
	assert.True(t, p.Process(3*bc).PlausibleSync)
	assert.True(t, p.Process(4*bc).PlausibleSync)
}

func TestResyncKeepsStats(t *testing.T) {
	cfg := DefaultConfig()
	p, err := New(cfg)
	require.NoError(t, err)

	for _, iv := range cleanIntervals(cfg.NominalBitcellNs, 100) {
		p.Process(iv)
	}
	before := p.Stats()
	require.Equal(t, uint64(100), before.TotalTransitions)

	p.Resync()
	assert.False(t, p.Locked())
	assert.Equal(t, cfg.NominalBitcellNs, p.State().CurrentBitcellNs)
	assert.Equal(t, before.TotalTransitions, p.Stats().TotalTransitions)
}

func TestResetClearsEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordHistory = true
	cfg.MaxHistory = 100
	p, err := New(cfg)
	require.NoError(t, err)

	for _, iv := range cleanIntervals(cfg.NominalBitcellNs, 50) {
		p.Process(iv)
	}
	require.NotZero(t, p.Stats().TotalTransitions)
	require.NotZero(t, p.History().Len())

	p.Reset()
	assert.Zero(t, p.Stats().TotalTransitions)
	assert.Zero(t, p.History().Len())
	assert.Equal(t, kalmanInitialCovariance, p.State().KalmanCovariance)
}

func TestStatsTrackBitcellRange(t *testing.T) {
	cfg := DefaultConfig()
	p, err := New(cfg)
	require.NoError(t, err)

	for _, iv := range jitterIntervals(cfg.NominalBitcellNs, 500, 0.08) {
		p.Process(iv)
	}
	s := p.Stats()
	assert.Greater(t, s.MinBitcellNs, 0.0)
	assert.GreaterOrEqual(t, s.MaxBitcellNs, s.MinBitcellNs)
	assert.GreaterOrEqual(t, s.AvgBitcellNs, s.MinBitcellNs)
	assert.LessOrEqual(t, s.AvgBitcellNs, s.MaxBitcellNs)
	assert.Greater(t, s.AvgPhaseError, 0.0)
	assert.GreaterOrEqual(t, s.MaxPhaseError, s.AvgPhaseError)
}

func TestHistoryCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordHistory = true
	cfg.MaxHistory = 10
	p, err := New(cfg)
	require.NoError(t, err)

	for _, iv := range cleanIntervals(cfg.NominalBitcellNs, 50) {
		p.Process(iv)
	}
	assert.Equal(t, 10, p.History().Len())
}

func TestHistoryDisabledByDefault(t *testing.T) {
	p, err := New(DefaultConfig())
	require.NoError(t, err)

	for _, iv := range cleanIntervals(p.Config().NominalBitcellNs, 50) {
		p.Process(iv)
	}
	assert.Zero(t, p.History().Len())
}

func TestHistoryWriteCSV(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordHistory = true
	cfg.MaxHistory = 5
	p, err := New(cfg)
	require.NoError(t, err)

	for _, iv := range cleanIntervals(cfg.NominalBitcellNs, 5) {
		p.Process(iv)
	}

	var buf bytes.Buffer
	require.NoError(t, p.History().WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "interval_ns,bitcell_ns,phase_error", lines[0])
}

func TestLiveTuningGuards(t *testing.T) {
	p, err := New(DefaultConfig())
	require.NoError(t, err)

	p.SetPhaseGain(0.2)
	assert.Equal(t, 0.2, p.Config().PhaseGain)
	p.SetPhaseGain(1.5)
	assert.Equal(t, 0.2, p.Config().PhaseGain)

	p.SetFreqGain(0.07)
	assert.Equal(t, 0.07, p.Config().FreqGain)
	p.SetFreqGain(-0.1)
	assert.Equal(t, 0.07, p.Config().FreqGain)

	p.SetWindow(0.5)
	assert.Equal(t, 0.5, p.Config().WindowTolerance)
	p.SetWindow(0.05)
	assert.Equal(t, 0.5, p.Config().WindowTolerance)
	p.SetWindow(0.95)
	assert.Equal(t, 0.5, p.Config().WindowTolerance)
}
