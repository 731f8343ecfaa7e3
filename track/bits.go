package track

// bitWriter assembles an MSB-first bitstream.
type bitWriter struct {
	bits []byte
}

func (w *bitWriter) writeBit(b byte) {
	w.bits = append(w.bits, b&1)
}

// writeByteMFM emits one data byte as MFM clock/data bit pairs. The clock
// bit is one only between two zero data bits.
func (w *bitWriter) writeByteMFM(value byte, prevDataBit byte) byte {
	prev := prevDataBit
	for i := 7; i >= 0; i-- {
		data := value >> i & 1
		clock := byte(0)
		if prev == 0 && data == 0 {
			clock = 1
		}
		w.writeBit(clock)
		w.writeBit(data)
		prev = data
	}
	return prev
}

// writeByteFM emits one data byte as FM cells: every clock bit is one.
func (w *bitWriter) writeByteFM(value byte) {
	for i := 7; i >= 0; i-- {
		w.writeBit(1)
		w.writeBit(value >> i & 1)
	}
}

// bitReader walks a decoded bitstream. All reads are bounds checked:
// running off the end reports failure instead of wrapping.
type bitReader struct {
	bits []byte
	pos  int
}

func (r *bitReader) remaining() int {
	return len(r.bits) - r.pos
}

func (r *bitReader) readBit() (byte, bool) {
	if r.pos >= len(r.bits) {
		return 0, false
	}
	b := r.bits[r.pos]
	r.pos++
	return b, true
}

// readPairBit consumes one clock/data cell pair and returns the data bit.
func (r *bitReader) readPairBit() (byte, bool) {
	if _, ok := r.readBit(); !ok {
		return 0, false
	}
	return r.readBit()
}

// readByte consumes eight cell pairs and assembles the data byte.
func (r *bitReader) readByte() (byte, bool) {
	var v byte
	for i := 0; i < 8; i++ {
		b, ok := r.readPairBit()
		if !ok {
			return 0, false
		}
		v = v<<1 | b
	}
	return v, true
}

// findSync16 scans bit by bit for a 16-cell sync word, looking at most
// limit bit positions ahead. On a match the reader is positioned just
// past the pattern.
func (r *bitReader) findSync16(pattern uint16, limit int) bool {
	var window uint16
	seen := 0
	for scanned := 0; limit <= 0 || scanned < limit; scanned++ {
		b, ok := r.readBit()
		if !ok {
			return false
		}
		window = window<<1 | uint16(b)
		seen++
		if seen >= 16 && window == pattern {
			return true
		}
	}
	return false
}

// findSyncAny16 scans for whichever of the given 16-cell patterns occurs
// first, within the limit. Returns the matched pattern.
func (r *bitReader) findSyncAny16(patterns []uint16, limit int) (uint16, bool) {
	var window uint16
	seen := 0
	for scanned := 0; limit <= 0 || scanned < limit; scanned++ {
		b, ok := r.readBit()
		if !ok {
			return 0, false
		}
		window = window<<1 | uint16(b)
		seen++
		if seen < 16 {
			continue
		}
		for _, p := range patterns {
			if window == p {
				return p, true
			}
		}
	}
	return 0, false
}

// peekSync16 reports whether the next 16 cells match the pattern without
// consuming them unless they do.
func (r *bitReader) peekSync16(pattern uint16) bool {
	if r.remaining() < 16 {
		return false
	}
	var window uint16
	for i := 0; i < 16; i++ {
		window = window<<1 | uint16(r.bits[r.pos+i])
	}
	if window != pattern {
		return false
	}
	r.pos += 16
	return true
}
