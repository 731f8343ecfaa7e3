package track

import "fmt"

// IBM System/34 style gap lengths, in bytes.
const (
	mfmGap4aLen = 80 // pre-index gap, 0x4E
	mfmGap1Len  = 50 // post-index gap, 0x4E
	mfmGap2Len  = 22 // ID to data gap, 0x4E
	mfmGap3Len  = 54 // inter-sector gap, 0x4E
	mfmSyncLen  = 12 // 0x00 run before each address mark

	fmGap1Len  = 26 // 0xFF
	fmGap2Len  = 11 // ID to data gap, 0xFF
	fmGap3Len  = 27 // inter-sector gap, 0xFF
	fmSyncLen  = 6  // 0x00 run before each address mark
	fmGap4aLen = 40
)

// EncodeTrackMFM builds the cell stream of an IBM MFM track holding the
// given sector payloads, numbered sequentially from firstSector. All
// payloads must be exactly 128<<sizeCode bytes. The result feeds
// flux.Synthesize, and decodes back with Decode; the round trip is the
// backbone of the decoder tests and of media verification.
func EncodeTrackMFM(cylinder, head, firstSector, sizeCode uint8, payloads [][]byte) ([]byte, error) {
	size := 128 << sizeCode
	for i, p := range payloads {
		if len(p) != size {
			return nil, fmt.Errorf("sector %d payload is %d bytes, size code %d needs %d",
				i, len(p), sizeCode, size)
		}
	}

	var w bitWriter
	prev := byte(0)

	writeRun := func(value byte, n int) {
		for i := 0; i < n; i++ {
			prev = w.writeByteMFM(value, prev)
		}
	}
	writeSyncA1 := func() {
		// Three A1 bytes with the missing clock bit. Last data bit is 1.
		for i := 0; i < 3; i++ {
			for bit := 15; bit >= 0; bit-- {
				w.writeBit(byte(syncA1 >> bit & 1))
			}
		}
		prev = 1
	}

	writeRun(0x4E, mfmGap4aLen)

	// Index address mark under C2 sync words.
	writeRun(0x00, mfmSyncLen)
	for i := 0; i < 3; i++ {
		for bit := 15; bit >= 0; bit-- {
			w.writeBit(byte(syncC2 >> bit & 1))
		}
	}
	prev = 0 // C2 ends in a zero data bit
	writeRun(markIAM, 1)
	writeRun(0x4E, mfmGap1Len)

	for i, payload := range payloads {
		id := []byte{markIDAM, cylinder, head, firstSector + uint8(i), sizeCode}
		idCRC := CRC16(id)

		writeRun(0x00, mfmSyncLen)
		writeSyncA1()
		for _, b := range id {
			writeRun(b, 1)
		}
		writeRun(byte(idCRC>>8), 1)
		writeRun(byte(idCRC), 1)
		writeRun(0x4E, mfmGap2Len)

		crc := crc16Byte(0xFFFF, markDAM)
		writeRun(0x00, mfmSyncLen)
		writeSyncA1()
		writeRun(markDAM, 1)
		for _, b := range payload {
			writeRun(b, 1)
			crc = crc16Byte(crc, b)
		}
		writeRun(byte(crc>>8), 1)
		writeRun(byte(crc), 1)
		writeRun(0x4E, mfmGap3Len)
	}

	writeRun(0x4E, mfmGap4aLen)
	return packCells(w.bits), nil
}

// EncodeTrackFM builds the cell stream of an FM track. Address marks are
// written as clocked patterns with missing clock bits; there is no
// separate sync word.
func EncodeTrackFM(cylinder, head, firstSector, sizeCode uint8, payloads [][]byte) ([]byte, error) {
	size := 128 << sizeCode
	for i, p := range payloads {
		if len(p) != size {
			return nil, fmt.Errorf("sector %d payload is %d bytes, size code %d needs %d",
				i, len(p), sizeCode, size)
		}
	}

	var w bitWriter
	writeRun := func(value byte, n int) {
		for i := 0; i < n; i++ {
			w.writeByteFM(value)
		}
	}
	writeMark := func(pattern uint16) {
		for bit := 15; bit >= 0; bit-- {
			w.writeBit(byte(pattern >> bit & 1))
		}
	}

	writeRun(0xFF, fmGap4aLen)
	writeRun(0xFF, fmGap1Len)

	for i, payload := range payloads {
		id := []byte{markIDAM, cylinder, head, firstSector + uint8(i), sizeCode}
		idCRC := CRC16(id)

		writeRun(0x00, fmSyncLen)
		writeMark(fmSyncIDAM)
		for _, b := range id[1:] {
			writeRun(b, 1)
		}
		writeRun(byte(idCRC>>8), 1)
		writeRun(byte(idCRC), 1)
		writeRun(0xFF, fmGap2Len)

		crc := crc16Byte(0xFFFF, markDAM)
		writeRun(0x00, fmSyncLen)
		writeMark(fmSyncDAM)
		for _, b := range payload {
			writeRun(b, 1)
			crc = crc16Byte(crc, b)
		}
		writeRun(byte(crc>>8), 1)
		writeRun(byte(crc), 1)
		writeRun(0xFF, fmGap3Len)
	}

	writeRun(0xFF, fmGap4aLen)
	return packCells(w.bits), nil
}

// packCells packs a one-cell-per-byte stream into MSB-first bytes for
// flux synthesis. Trailing cells of a partial byte are zero filled.
func packCells(cells []byte) []byte {
	out := make([]byte, (len(cells)+7)/8)
	for i, c := range cells {
		if c != 0 {
			out[i/8] |= 1 << (7 - i%8)
		}
	}
	return out
}
