package track

import "errors"

// Merge combines sector copies decoded from multiple revolutions of the
// same track. For each CHRN identity the copy with the highest confidence
// wins; a later copy must be strictly better to replace an earlier one, so
// among equals the first seen is kept. Sector order and the track geometry
// follow the first input; the merged copy remembers which input it came
// from through Sector.Revolution.
func Merge(tracks []*Track) (*Track, error) {
	if len(tracks) == 0 {
		return nil, errors.New("no tracks to merge")
	}
	if len(tracks) > MaxRevolutions {
		tracks = tracks[:MaxRevolutions]
	}

	first := tracks[0]
	merged := &Track{
		Cylinder:        first.Cylinder,
		Head:            first.Head,
		Encoding:        first.Encoding,
		Density:         first.Density,
		BitLength:       first.BitLength,
		BitRate:         first.BitRate,
		IndexTime:       first.IndexTime,
		RevolutionCount: len(tracks),
		PLLStats:        first.PLLStats,
	}

	index := make(map[SectorID]int)
	for ti, t := range tracks {
		if t == nil {
			continue
		}
		for si := range t.Sectors {
			sec := t.Sectors[si]
			sec.Revolution = ti
			at, seen := index[sec.ID]
			if !seen {
				index[sec.ID] = len(merged.Sectors)
				merged.Sectors = append(merged.Sectors, sec)
				continue
			}
			if sec.Confidence > merged.Sectors[at].Confidence {
				merged.Sectors[at] = sec
			}
		}
	}

	merged.recount()
	return merged, nil
}
