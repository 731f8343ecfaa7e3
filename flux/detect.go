package flux

// Detection thresholds. Detection is advisory: callers must tolerate an
// Unknown verdict on short or noisy captures.
const (
	detectMinTransitions = 100
	detectBinWidthNs     = 1000 // 1µs histogram bins
	detectBinCount       = 32
	detectRatioTolerance = 0.15
)

// Histogram bins the deltas between successive flux transitions. Bin i
// counts intervals in [i*binWidthNs, (i+1)*binWidthNs); intervals beyond the
// last bin are dropped.
func (b *Buffer) Histogram(binWidthNs uint64, binCount int) []uint32 {
	bins := make([]uint32, binCount)
	if binWidthNs == 0 {
		return bins
	}
	var prev uint64
	for i, t := range b.times {
		if i > 0 {
			bin := (t - prev) / binWidthNs
			if int(bin) < binCount {
				bins[bin]++
			}
		}
		prev = t
	}
	return bins
}

// peak is one populated histogram bin, carrying the measured mean interval
// of its members rather than the bin center.
type peak struct {
	count  uint32
	meanNs float64
}

// intervalPeaks returns the dominant interval populations, sorted by
// interval: the up-to-three tallest bins that rise above the noise floor.
func (b *Buffer) intervalPeaks() []peak {
	counts := make([]uint32, detectBinCount)
	sums := make([]uint64, detectBinCount)

	var prev uint64
	var maxCount uint32
	for i, t := range b.times {
		if i > 0 {
			delta := t - prev
			bin := delta / detectBinWidthNs
			if int(bin) < detectBinCount {
				counts[bin]++
				sums[bin] += delta
				if counts[bin] > maxCount {
					maxCount = counts[bin]
				}
			}
		}
		prev = t
	}
	if maxCount == 0 {
		return nil
	}

	// Bins below a tenth of the tallest bin are noise.
	floor := maxCount / 10
	var candidates []int
	for i := 0; i < detectBinCount; i++ {
		if counts[i] > floor {
			candidates = append(candidates, i)
		}
	}

	// Keep the three tallest, preserving interval order.
	for len(candidates) > 3 {
		lowest := 0
		for i, bin := range candidates {
			if counts[bin] < counts[candidates[lowest]] {
				lowest = i
			}
		}
		candidates = append(candidates[:lowest], candidates[lowest+1:]...)
	}

	peaks := make([]peak, 0, len(candidates))
	for _, bin := range candidates {
		peaks = append(peaks, peak{
			count:  counts[bin],
			meanNs: float64(sums[bin]) / float64(counts[bin]),
		})
	}
	return peaks
}

func ratioNear(ratio, want float64) bool {
	return ratio > want*(1-detectRatioTolerance) && ratio < want*(1+detectRatioTolerance)
}

// DetectEncoding guesses the track encoding from the shape of the interval
// histogram. MFM shows three peaks at 1T : 1.5T : 2T, FM two peaks at
// 1T : 2T. Too few transitions, or a shape matching neither, yields
// EncodingUnknown.
func (b *Buffer) DetectEncoding() Encoding {
	if len(b.times) < detectMinTransitions {
		return EncodingUnknown
	}
	peaks := b.intervalPeaks()
	switch len(peaks) {
	case 3:
		r2 := peaks[1].meanNs / peaks[0].meanNs
		r3 := peaks[2].meanNs / peaks[0].meanNs
		if ratioNear(r2, 1.5) && ratioNear(r3, 2.0) {
			return EncodingMFM
		}
	case 2:
		r := peaks[1].meanNs / peaks[0].meanNs
		if ratioNear(r, 2.0) {
			return EncodingFM
		}
		// Two peaks at 1T:1.5T is MFM with no 4T gaps in range.
		if ratioNear(r, 1.5) {
			return EncodingMFM
		}
	}
	return EncodingUnknown
}

// DetectDensity estimates the bit rate from the transition count within one
// index-bounded revolution (MFM carries roughly 1.5 bits per transition) and
// buckets it. Without two index pulses or enough transitions the density
// cannot be estimated.
func (b *Buffer) DetectDensity() Density {
	if len(b.times) < detectMinTransitions || len(b.indexTimes) < 2 {
		return DensityUnknown
	}
	start, end := b.indexTimes[0], b.indexTimes[1]
	revTime := end - start
	if revTime == 0 {
		return DensityUnknown
	}

	var count uint64
	for _, t := range b.times {
		if t >= start && t < end {
			count++
		}
	}

	bits := count * 3 / 2
	bitRate := bits * 1e9 / revTime
	switch {
	case bitRate < 150_000:
		return DensitySD
	case bitRate < 350_000:
		return DensityDD
	case bitRate < 700_000:
		return DensityHD
	default:
		return DensityED
	}
}
