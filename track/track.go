// Package track decodes flux transition streams into sectors. It layers a
// sync mark scanner and IBM System/34 style sector parser on top of the
// clock recovery in the pll package, merges multiple revolutions of the
// same track, and can synthesize track images for testing.
package track

import (
	"fmt"
	"strings"

	"github.com/fluxdec/fluxdec/flux"
	"github.com/fluxdec/fluxdec/pll"
)

// Address and data marks of the IBM track format.
const (
	markIAM  = 0xFC // index address mark
	markIDAM = 0xFE // ID address mark
	markDAM  = 0xFB // data address mark
	markDDAM = 0xF8 // deleted data address mark
)

// MFM sync words with missing clock bits. 0x4489 is the A1 data byte with
// the clock bit between bits 5 and 4 suppressed; 0x5224 is C2 with a
// suppressed clock. Neither can occur in legally encoded data.
const (
	syncA1 uint16 = 0x4489
	syncC2 uint16 = 0x5224
)

// FM clocked mark patterns. FM has no separate sync byte: the mark itself
// carries missing clock bits, so the 16-cell pattern identifies the mark.
const (
	fmSyncIDAM = 0xF57E // FE with clock C7
	fmSyncDAM  = 0xF56F // FB with clock C7
	fmSyncDDAM = 0xF56A // F8 with clock C7
)

// Floppy disk controller status bits, reported per sector the way a real
// NEC uPD765 would.
const (
	ST1NoAddressMark   = 0x01
	ST1DataError       = 0x20
	ST2MissingDataMark = 0x01
	ST2CRCError        = 0x20
	ST2DeletedMark     = 0x40
)

// MaxSectors bounds the number of sectors kept per track. 64 covers every
// standard geometry with room for oddball formats.
const MaxSectors = 64

// MaxRevolutions bounds how many revolutions a merge considers.
const MaxRevolutions = 8

// FDCStatus mirrors the ST1/ST2 registers of a floppy disk controller.
type FDCStatus struct {
	ST1 byte
	ST2 byte
}

// SectorID is the CHRN address from a sector's ID field.
type SectorID struct {
	Cylinder uint8
	Head     uint8
	Sector   uint8
	SizeCode uint8
}

// Size returns the payload size in bytes encoded by the size code.
// Codes above 7 are clamped: they only occur on corrupt ID fields.
func (id SectorID) Size() int {
	code := id.SizeCode
	if code > 7 {
		code = 7
	}
	return 128 << code
}

func (id SectorID) String() string {
	return fmt.Sprintf("C%d H%d S%d N%d", id.Cylinder, id.Head, id.Sector, id.SizeCode)
}

// Sector is one decoded sector with its integrity evidence.
type Sector struct {
	ID          SectorID
	HeaderCRC   uint16 // CRC stored in the ID field
	HeaderCRCOK bool
	Deleted     bool   // found under a deleted data mark
	DataMark    byte   // the mark byte that introduced the data field
	Data        []byte
	DataCRC     uint16 // CRC stored after the data field
	DataCRCOK   bool
	Revolution  int     // revolution this copy was decoded from
	Confidence  float64 // 0..1
	FDC         FDCStatus
}

// Healthy reports whether both CRCs verified.
func (s *Sector) Healthy() bool {
	return s.HeaderCRCOK && s.DataCRCOK
}

// confidence scores a decoded sector: full marks need both CRCs, a valid
// header alone is worth half, anything else a quarter.
func (s *Sector) confidence() float64 {
	switch {
	case s.HeaderCRCOK && s.DataCRCOK:
		return 1.0
	case s.HeaderCRCOK:
		return 0.5
	default:
		return 0.25
	}
}

// Summary is a one-line description of the sector.
func (s *Sector) Summary() string {
	health := "bad"
	if s.Healthy() {
		health = "ok"
	} else if s.HeaderCRCOK {
		health = "data-crc"
	} else {
		health = "hdr-crc"
	}
	if s.Deleted {
		health += " deleted"
	}
	return fmt.Sprintf("%s len=%d crc=%04X/%04X %s",
		s.ID, len(s.Data), s.HeaderCRC, s.DataCRC, health)
}

// Track is the decoded contents of one track surface.
type Track struct {
	Cylinder        int
	Head            int
	Encoding        flux.Encoding
	Density         flux.Density
	Sectors         []Sector
	HealthySectors  int
	BadSectors      int
	BitLength       int     // decoded bits in the revolution
	BitRate         float64 // bits per second
	IndexTime       uint64  // revolution time, ns
	RevolutionCount int
	Consistent      bool      // no bad sectors remain
	PLLStats        pll.Stats // clock recovery quality for this decode
}

// recount refreshes the healthy/bad tallies and the consistency flag from
// the sector list.
func (t *Track) recount() {
	t.HealthySectors = 0
	t.BadSectors = 0
	for i := range t.Sectors {
		if t.Sectors[i].Healthy() {
			t.HealthySectors++
		} else {
			t.BadSectors++
		}
	}
	t.Consistent = t.BadSectors == 0
}

// FindSector returns the sector with the given CHRN address, or nil.
func (t *Track) FindSector(id SectorID) *Sector {
	for i := range t.Sectors {
		if t.Sectors[i].ID == id {
			return &t.Sectors[i]
		}
	}
	return nil
}

// Status is a one-line health summary of the track.
func (t *Track) Status() string {
	state := "consistent"
	if !t.Consistent {
		state = fmt.Sprintf("%d bad", t.BadSectors)
	}
	return fmt.Sprintf("track %d.%d: %s, %d sectors (%d healthy), %s",
		t.Cylinder, t.Head, t.Encoding, len(t.Sectors), t.HealthySectors, state)
}

// Summary is a multi-line report: the status line plus one line per sector.
func (t *Track) Summary() string {
	var b strings.Builder
	b.WriteString(t.Status())
	for i := range t.Sectors {
		b.WriteString("\n  ")
		b.WriteString(t.Sectors[i].Summary())
	}
	return b.String()
}
