package pll

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Entry is one recorded transition.
type Entry struct {
	IntervalNs float64
	BitcellNs  float64
	PhaseError float64
}

// History is a bounded record of processed transitions, useful for offline
// analysis of a difficult track. Recording stops once the capacity is
// reached; the earliest transitions are the interesting ones.
type History struct {
	entries  []Entry
	capacity int
}

func (h *History) record(intervalNs, bitcellNs, phaseErr float64) {
	if h.capacity == 0 || len(h.entries) >= h.capacity {
		return
	}
	h.entries = append(h.entries, Entry{
		IntervalNs: intervalNs,
		BitcellNs:  bitcellNs,
		PhaseError: phaseErr,
	})
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns the recorded entries.
func (h *History) Entries() []Entry {
	return h.entries
}

// WriteCSV dumps the history as CSV with a header row, one transition per
// line, for plotting.
func (h *History) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"interval_ns", "bitcell_ns", "phase_error"}); err != nil {
		return err
	}
	for _, e := range h.entries {
		rec := []string{
			strconv.FormatFloat(e.IntervalNs, 'f', -1, 64),
			strconv.FormatFloat(e.BitcellNs, 'f', -1, 64),
			strconv.FormatFloat(e.PhaseError, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
