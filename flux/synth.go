package flux

import (
	"fmt"
)

// Synthesize converts a bitcell stream (MSB-first bytes, one bit per cell,
// a 1 marking a flux transition) into a flux buffer with transitions at
// multiples of bitcellNs. Index pulses are placed at time zero and at the
// end of the stream, so the whole stream reads back as one revolution.
func Synthesize(bitcells []byte, bitcellNs uint64) (*Buffer, error) {
	if len(bitcells) == 0 {
		return nil, fmt.Errorf("empty bitcell stream")
	}
	if bitcellNs == 0 {
		return nil, fmt.Errorf("zero bit cell width")
	}

	buf := NewBuffer(0)
	if err := buf.MarkIndex(0); err != nil {
		return nil, err
	}

	currentTime := uint64(0)
	bitCount := len(bitcells) * 8
	for i := 0; i < bitCount; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8) // MSB-first
		currentTime += bitcellNs
		if bitcells[byteIdx]&(1<<bitIdx) != 0 {
			if err := buf.AddTransition(currentTime); err != nil {
				return nil, err
			}
		}
	}

	if err := buf.MarkIndex(currentTime + bitcellNs); err != nil {
		return nil, err
	}
	return buf, nil
}

// CoverRotation extends a transition list to span a full rotation at the
// given speed, appending filler transitions at 2-cell intervals. Used when a
// synthesized track is shorter than the physical revolution.
func CoverRotation(transitions []uint64, bitcellNs uint64, rpm int) []uint64 {
	if bitcellNs == 0 || rpm <= 0 {
		return transitions
	}
	rotationNs := uint64(60e9 / float64(rpm))
	step := 2 * bitcellNs

	currentTime := uint64(0)
	if len(transitions) > 0 {
		currentTime = transitions[len(transitions)-1]
	}
	for currentTime+step <= rotationNs {
		currentTime += step
		transitions = append(transitions, currentTime)
	}
	return transitions
}
