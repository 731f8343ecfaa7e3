package track

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/fluxdec/fluxdec/flux"
	"github.com/fluxdec/fluxdec/pll"
)

// Config selects the clock recovery tuning and track format for a decode.
type Config struct {
	PLL        pll.Config
	Encoding   flux.Encoding // Unknown means detect from the flux
	MaxSectors int           // 0 means the MaxSectors geometry bound (64)
}

// DefaultConfig decodes MFM double density media.
func DefaultConfig() Config {
	return Config{
		PLL:      pll.DefaultConfig(),
		Encoding: flux.EncodingMFM,
	}
}

var errEmptyBuffer = errors.New("flux buffer is empty")

// Decode converts one flux capture into a Track. When the buffer carries at
// least two index pulses only the first full revolution is decoded;
// otherwise the whole capture is treated as one revolution. Decoding is
// best effort: noise yields a track with no sectors, not an error. Only an
// empty buffer fails.
func Decode(buf *flux.Buffer, cfg Config) (*Track, error) {
	if buf == nil || buf.Count() == 0 {
		return nil, errEmptyBuffer
	}

	window := buf
	t := &Track{}
	if buf.Revolutions() >= 1 {
		rev, err := buf.Revolution(0)
		if err != nil {
			return nil, err
		}
		window = rev
		t.IndexTime, _ = buf.RevolutionTime(0)
		t.RevolutionCount = 1
	}

	enc := cfg.Encoding
	if enc == flux.EncodingUnknown {
		enc = buf.DetectEncoding()
		if enc == flux.EncodingUnknown {
			enc = flux.EncodingMFM
		}
	}
	t.Encoding = enc
	t.Density = buf.DetectDensity()

	p, err := pll.New(cfg.PLL)
	if err != nil {
		return nil, err
	}

	bits := demodulate(window, p)
	t.PLLStats = p.Stats()
	t.BitLength = len(bits)
	if t.IndexTime > 0 {
		t.BitRate = float64(t.BitLength) * 1e9 / float64(t.IndexTime)
	}

	maxSectors := cfg.MaxSectors
	if maxSectors <= 0 || maxSectors > MaxSectors {
		maxSectors = MaxSectors
	}

	r := &bitReader{bits: bits}
	switch enc {
	case flux.EncodingFM:
		decodeFM(r, t, maxSectors, 0)
	default:
		decodeMFM(r, t, maxSectors, 0)
	}

	t.recount()
	return t, nil
}

// DecodeRevolutions decodes every index-bounded revolution of the capture
// in parallel, one PLL per revolution. Requires at least one full
// revolution.
func DecodeRevolutions(buf *flux.Buffer, cfg Config) ([]*Track, error) {
	if buf == nil || buf.Count() == 0 {
		return nil, errEmptyBuffer
	}
	revs := buf.Revolutions()
	if revs < 1 {
		return nil, errors.New("no index-bounded revolution in capture")
	}
	if revs > MaxRevolutions {
		revs = MaxRevolutions
	}

	tracks := make([]*Track, revs)
	var g errgroup.Group
	for i := 0; i < revs; i++ {
		i := i
		g.Go(func() error {
			rev, err := buf.Revolution(i)
			if err != nil {
				return fmt.Errorf("revolution %d: %w", i, err)
			}
			tr, err := Decode(rev, cfg)
			if err != nil {
				return fmt.Errorf("revolution %d: %w", i, err)
			}
			for j := range tr.Sectors {
				tr.Sectors[j].Revolution = i
			}
			tr.IndexTime, _ = buf.RevolutionTime(i)
			tracks[i] = tr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tracks, nil
}

// demodulate runs clock recovery over the capture and produces the raw
// cell bitstream. Each transition contributes count-1 zero cells and a
// one cell.
func demodulate(buf *flux.Buffer, p *pll.PLL) []byte {
	times := buf.Times()
	bits := make([]byte, 0, len(times)*4)
	for i := 1; i < len(times); i++ {
		r := p.Process(float64(times[i] - times[i-1]))
		if !r.BitValid {
			continue
		}
		for z := 1; z < r.BitCount; z++ {
			bits = append(bits, 0)
		}
		bits = append(bits, 1)
	}
	return bits
}

// Bound on the gap-2 scan between an ID field and its data field, in
// decoded bytes.
const dataGapBytes = 50

// decodeMFM scans the bitstream for A1 sync runs and parses IBM MFM
// sectors. A failed parse discards the in-progress sector and resumes
// scanning so one corrupt sector cannot take down the track.
func decodeMFM(r *bitReader, t *Track, maxSectors, revolution int) {
	for len(t.Sectors) < maxSectors {
		if !r.findSync16(syncA1, 0) {
			return
		}
		// Address marks are written as three sync words in a row; eat the rest.
		for r.peekSync16(syncA1) {
		}

		mark, ok := r.readByte()
		if !ok {
			return
		}
		if mark != markIDAM {
			continue
		}
		if sec, ok := parseSectorMFM(r); ok {
			sec.Revolution = revolution
			t.Sectors = append(t.Sectors, sec)
		}
	}
}

// parseSectorMFM decodes the ID field past an IDAM, finds the data field
// within the gap bound, and decodes it. The ID mark byte has already been
// consumed.
func parseSectorMFM(r *bitReader) (Sector, bool) {
	var sec Sector

	var id [6]byte
	for i := range id {
		b, ok := r.readByte()
		if !ok {
			return sec, false
		}
		id[i] = b
	}
	sec.ID = SectorID{Cylinder: id[0], Head: id[1], Sector: id[2], SizeCode: id[3]}
	sec.HeaderCRC = uint16(id[4])<<8 | uint16(id[5])
	sec.HeaderCRCOK = CRC16([]byte{markIDAM, id[0], id[1], id[2], id[3]}) == sec.HeaderCRC
	if !sec.HeaderCRCOK {
		sec.FDC.ST1 |= ST1DataError
	}

	if !r.findSync16(syncA1, dataGapBytes*16) {
		sec.FDC.ST2 |= ST2MissingDataMark
		return sec, false
	}
	for r.peekSync16(syncA1) {
	}

	mark, ok := r.readByte()
	if !ok {
		return sec, false
	}
	if mark != markDAM && mark != markDDAM {
		return sec, false
	}
	sec.DataMark = mark
	sec.Deleted = mark == markDDAM
	if sec.Deleted {
		sec.FDC.ST2 |= ST2DeletedMark
	}

	if !readDataField(r, &sec) {
		return sec, false
	}
	sec.Confidence = sec.confidence()
	return sec, true
}

// readDataField decodes the payload and its CRC and verifies it. The CRC
// covers the data mark byte followed by the payload.
func readDataField(r *bitReader, sec *Sector) bool {
	size := sec.ID.Size()
	data := make([]byte, size)
	for i := range data {
		b, ok := r.readByte()
		if !ok {
			return false
		}
		data[i] = b
	}
	hi, ok := r.readByte()
	if !ok {
		return false
	}
	lo, ok := r.readByte()
	if !ok {
		return false
	}
	sec.Data = data
	sec.DataCRC = uint16(hi)<<8 | uint16(lo)

	crc := crc16Byte(0xFFFF, sec.DataMark)
	for _, b := range data {
		crc = crc16Byte(crc, b)
	}
	sec.DataCRCOK = crc == sec.DataCRC
	if !sec.DataCRCOK {
		sec.FDC.ST2 |= ST2CRCError
	}
	return true
}

// decodeFM scans for FM clocked ID marks. FM carries no separate sync
// train: the 16-cell pattern is the mark byte with its missing clock
// bits, so matching the pattern identifies the mark directly.
func decodeFM(r *bitReader, t *Track, maxSectors, revolution int) {
	for len(t.Sectors) < maxSectors {
		if !r.findSync16(fmSyncIDAM, 0) {
			return
		}
		if sec, ok := parseSectorFM(r); ok {
			sec.Revolution = revolution
			t.Sectors = append(t.Sectors, sec)
		}
	}
}

func parseSectorFM(r *bitReader) (Sector, bool) {
	var sec Sector

	var id [6]byte
	for i := range id {
		b, ok := r.readByte()
		if !ok {
			return sec, false
		}
		id[i] = b
	}
	sec.ID = SectorID{Cylinder: id[0], Head: id[1], Sector: id[2], SizeCode: id[3]}
	sec.HeaderCRC = uint16(id[4])<<8 | uint16(id[5])
	sec.HeaderCRCOK = CRC16([]byte{markIDAM, id[0], id[1], id[2], id[3]}) == sec.HeaderCRC
	if !sec.HeaderCRCOK {
		sec.FDC.ST1 |= ST1DataError
	}

	pattern, ok := r.findSyncAny16([]uint16{fmSyncDAM, fmSyncDDAM}, dataGapBytes*16)
	if !ok {
		sec.FDC.ST2 |= ST2MissingDataMark
		return sec, false
	}
	sec.DataMark = markDAM
	if pattern == fmSyncDDAM {
		sec.DataMark = markDDAM
		sec.Deleted = true
		sec.FDC.ST2 |= ST2DeletedMark
	}

	if !readDataField(r, &sec) {
		return sec, false
	}
	sec.Confidence = sec.confidence()
	return sec, true
}
