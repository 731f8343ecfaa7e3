// Package fluxlog reads and writes flux captures as CSV, the interchange
// format used between acquisition hardware tooling and the decoder. Each
// row is "kind,time_ns" where kind is "flux" for a transition and "index"
// for an index pulse, times in nanoseconds from capture start.
package fluxlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fluxdec/fluxdec/flux"
)

const (
	kindFlux  = "flux"
	kindIndex = "index"
)

// Read parses a capture stream into a flux buffer. A header row is
// optional. Rows must be in chronological order per kind.
func Read(r io.Reader) (*flux.Buffer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	buf := flux.NewBuffer(0)
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && rec[0] == "kind" {
			continue
		}

		tm, err := strconv.ParseUint(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time %q: %w", line, rec[1], err)
		}
		switch rec[0] {
		case kindFlux:
			err = buf.AddTransition(tm)
		case kindIndex:
			err = buf.MarkIndex(tm)
		default:
			err = fmt.Errorf("unknown row kind %q", rec[0])
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if buf.Count() == 0 {
		return nil, fmt.Errorf("capture holds no flux transitions")
	}
	return buf, nil
}

// Load reads a capture file.
func Load(path string) (*flux.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// Write emits a capture as CSV with a header row. Transitions and index
// pulses are interleaved in time order so the output streams cleanly.
func Write(w io.Writer, buf *flux.Buffer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"kind", "time_ns"}); err != nil {
		return err
	}

	times := buf.Times()
	indexes := buf.IndexTimes()
	ti, ii := 0, 0
	for ti < len(times) || ii < len(indexes) {
		if ii >= len(indexes) || (ti < len(times) && times[ti] < indexes[ii]) {
			if err := cw.Write([]string{kindFlux, strconv.FormatUint(times[ti], 10)}); err != nil {
				return err
			}
			ti++
		} else {
			if err := cw.Write([]string{kindIndex, strconv.FormatUint(indexes[ii], 10)}); err != nil {
				return err
			}
			ii++
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes a capture file.
func Save(path string, buf *flux.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, buf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
