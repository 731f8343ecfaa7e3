// Package flux holds raw flux-transition captures and the timing analysis
// that runs directly on them: revolution slicing, interval histograms and
// encoding/density detection.
package flux

import (
	"fmt"
)

// Encoding of a track, as recorded on the media.
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingFM
	EncodingMFM
	EncodingGCR
)

func (e Encoding) String() string {
	switch e {
	case EncodingFM:
		return "FM"
	case EncodingMFM:
		return "MFM"
	case EncodingGCR:
		return "GCR"
	default:
		return "Unknown"
	}
}

// Density of the media, by nominal bit rate.
type Density int

const (
	DensityUnknown Density = iota
	DensitySD              // 125 kbps
	DensityDD              // 250 kbps
	DensityHD              // 500 kbps
	DensityED              // 1 Mbps
)

func (d Density) String() string {
	switch d {
	case DensitySD:
		return "SD (125kbps)"
	case DensityDD:
		return "DD (250kbps)"
	case DensityHD:
		return "HD (500kbps)"
	case DensityED:
		return "ED (1Mbps)"
	default:
		return "Unknown"
	}
}

// Buffer holds one track capture: flux transition times and index pulse
// times, both in nanoseconds relative to capture start and monotonically
// increasing. A buffer is assembled once by its owner and treated as
// read-only by every decode call.
type Buffer struct {
	times       []uint64
	indexTimes  []uint64
	sampleClock uint32 // sampling period of the capture hardware, ns
	encoding    Encoding
	density     Density
}

// NewBuffer creates an empty flux buffer. sampleClockNs records the capture
// hardware's sampling period and is informational only: transition times are
// already in nanoseconds.
func NewBuffer(sampleClockNs uint32) *Buffer {
	return &Buffer{sampleClock: sampleClockNs}
}

// AddTransition appends a flux transition. Times must arrive in
// chronological order.
func (b *Buffer) AddTransition(timeNs uint64) error {
	if n := len(b.times); n > 0 && timeNs < b.times[n-1] {
		return fmt.Errorf("flux transition at %dns is before previous at %dns", timeNs, b.times[n-1])
	}
	b.times = append(b.times, timeNs)
	return nil
}

// MarkIndex records an index pulse.
func (b *Buffer) MarkIndex(timeNs uint64) error {
	if n := len(b.indexTimes); n > 0 && timeNs < b.indexTimes[n-1] {
		return fmt.Errorf("index pulse at %dns is before previous at %dns", timeNs, b.indexTimes[n-1])
	}
	b.indexTimes = append(b.indexTimes, timeNs)
	return nil
}

// Count returns the number of flux transitions.
func (b *Buffer) Count() int {
	return len(b.times)
}

// Times returns the transition times. The slice is shared with the buffer
// and must not be modified.
func (b *Buffer) Times() []uint64 {
	return b.times
}

// IndexTimes returns the index pulse times. Shared slice, read-only.
func (b *Buffer) IndexTimes() []uint64 {
	return b.indexTimes
}

// SampleClock returns the capture sampling period in nanoseconds.
func (b *Buffer) SampleClock() uint32 {
	return b.sampleClock
}

// Revolutions returns the number of complete index-to-index revolutions.
func (b *Buffer) Revolutions() int {
	if len(b.indexTimes) < 2 {
		return 0
	}
	return len(b.indexTimes) - 1
}

// TotalTime returns the time of the last transition, or 0 for an empty buffer.
func (b *Buffer) TotalTime() uint64 {
	if len(b.times) == 0 {
		return 0
	}
	return b.times[len(b.times)-1]
}

// RevolutionTime returns the duration of revolution rev, bounded by index
// pulses rev and rev+1.
func (b *Buffer) RevolutionTime(rev int) (uint64, error) {
	if rev < 0 || rev+1 >= len(b.indexTimes) {
		return 0, fmt.Errorf("revolution %d not captured (%d index pulses)", rev, len(b.indexTimes))
	}
	return b.indexTimes[rev+1] - b.indexTimes[rev], nil
}

// Revolution returns a view of one index-bounded revolution as its own
// buffer: transitions within [index[rev], index[rev+1]) and the two bounding
// index pulses. The view shares backing storage with the parent.
func (b *Buffer) Revolution(rev int) (*Buffer, error) {
	if rev < 0 || rev+1 >= len(b.indexTimes) {
		return nil, fmt.Errorf("revolution %d not captured (%d index pulses)", rev, len(b.indexTimes))
	}
	start, end := b.indexTimes[rev], b.indexTimes[rev+1]

	lo := 0
	for lo < len(b.times) && b.times[lo] < start {
		lo++
	}
	hi := lo
	for hi < len(b.times) && b.times[hi] < end {
		hi++
	}

	return &Buffer{
		times:       b.times[lo:hi],
		indexTimes:  []uint64{start, end},
		sampleClock: b.sampleClock,
		encoding:    b.encoding,
		density:     b.density,
	}, nil
}

// SetDetected stores detection results on the buffer for later consumers.
func (b *Buffer) SetDetected(enc Encoding, den Density) {
	b.encoding = enc
	b.density = den
}

// DetectedEncoding returns the stored encoding, if any.
func (b *Buffer) DetectedEncoding() Encoding {
	return b.encoding
}

// DetectedDensity returns the stored density, if any.
func (b *Buffer) DetectedDensity() Density {
	return b.density
}
