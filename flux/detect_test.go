package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// intervalBuffer builds a capture from a repeating interval pattern,
// bounded by index pulses so density can be estimated.
func intervalBuffer(t *testing.T, pattern []uint64, n int) *Buffer {
	t.Helper()
	b := NewBuffer(0)
	require.NoError(t, b.MarkIndex(0))
	tm := uint64(0)
	for i := 0; i < n; i++ {
		tm += pattern[i%len(pattern)]
		require.NoError(t, b.AddTransition(tm))
	}
	require.NoError(t, b.MarkIndex(tm + pattern[0]))
	return b
}

func TestDetectEncodingMFM(t *testing.T) {
	// DD MFM interval populations: 4µs, 6µs, 8µs.
	b := intervalBuffer(t, []uint64{4000, 6000, 4000, 8000, 6000, 4000}, 3000)
	assert.Equal(t, EncodingMFM, b.DetectEncoding())
}

func TestDetectEncodingMFMTwoPeaks(t *testing.T) {
	// A track with no 4T gaps still reads as MFM from the 1:1.5 ratio.
	b := intervalBuffer(t, []uint64{4000, 6000}, 2000)
	assert.Equal(t, EncodingMFM, b.DetectEncoding())
}

func TestDetectEncodingFM(t *testing.T) {
	b := intervalBuffer(t, []uint64{8000, 16000, 8000, 8000}, 2000)
	assert.Equal(t, EncodingFM, b.DetectEncoding())
}

func TestDetectEncodingTooFewTransitions(t *testing.T) {
	b := intervalBuffer(t, []uint64{4000, 6000, 8000}, 50)
	assert.Equal(t, EncodingUnknown, b.DetectEncoding())
}

func TestDetectEncodingNoShape(t *testing.T) {
	// A flat spread of intervals matches neither ratio signature.
	pattern := []uint64{3000, 9000, 5000, 12000, 7000, 14000, 4000, 10000}
	b := intervalBuffer(t, pattern, 2000)
	assert.Equal(t, EncodingUnknown, b.DetectEncoding())
}

func TestDetectDensityBuckets(t *testing.T) {
	// Average interval picks the transition rate, which maps to a bucket:
	// DD MFM averages ~6µs per transition, HD ~3µs.
	for name, tc := range map[string]struct {
		pattern []uint64
		want    Density
	}{
		"sd": {[]uint64{8000, 16000}, DensitySD},
		"dd": {[]uint64{4000, 6000, 8000}, DensityDD},
		"hd": {[]uint64{2000, 3000, 4000}, DensityHD},
		"ed": {[]uint64{1000, 1500, 2000}, DensityED},
	} {
		t.Run(name, func(t *testing.T) {
			b := intervalBuffer(t, tc.pattern, 5000)
			assert.Equal(t, tc.want, b.DetectDensity())
		})
	}
}

func TestDetectDensityNeedsIndexPulses(t *testing.T) {
	b := NewBuffer(0)
	tm := uint64(0)
	for i := 0; i < 1000; i++ {
		tm += 4000
		require.NoError(t, b.AddTransition(tm))
	}
	assert.Equal(t, DensityUnknown, b.DetectDensity())
}

func TestHistogram(t *testing.T) {
	b := intervalBuffer(t, []uint64{4000, 6000, 8000}, 300)
	bins := b.Histogram(1000, 16)
	require.Len(t, bins, 16)
	// The first transition carries no interval, costing the 4µs bin one.
	assert.Equal(t, uint32(99), bins[4])
	assert.Equal(t, uint32(100), bins[6])
	assert.Equal(t, uint32(100), bins[8])
	assert.Zero(t, bins[5])
}
