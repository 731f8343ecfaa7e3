package track

// CRC-16/CCITT as used by floppy disk controllers: polynomial 0x1021,
// initial value 0xFFFF, most significant bit first, no final XOR.

const crcPoly = 0x1021

var crcTable [256]uint16

func init() {
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPoly
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

func crc16Byte(crc uint16, b byte) uint16 {
	return crc<<8 ^ crcTable[byte(crc>>8)^b]
}

// CRC16 computes the CRC-16/CCITT checksum of data starting from 0xFFFF.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc = crc16Byte(crc, b)
	}
	return crc
}
