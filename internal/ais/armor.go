package ais

// Payload armoring maps each 6-bit value to a printable character:
// values 0-39 become '0'-'W' and values 40-63 become '`'-'w'.

// MaxFillBits is the largest fill-bit count a sentence can declare.
const MaxFillBits = 5

// sextet converts one armored character to its 6-bit value.
func sextet(c byte) (uint8, bool) {
	if !(c >= '0' && c <= 'W') && !(c >= '`' && c <= 'w') {
		return 0, false
	}
	v := c - 48
	if v > 40 {
		v -= 8
	}
	return v, true
}

// armorChar converts a 6-bit value to its armored character.
func armorChar(v uint8) byte {
	if v < 40 {
		return '0' + v
	}
	return '`' + v - 40
}

// Dearmor converts an armored payload into a BitStream, dropping the trailing
// fillBits bits.
func Dearmor(payload string, fillBits int) (*BitStream, error) {
	total := len(payload) * 6
	if fillBits < 0 || fillBits > MaxFillBits || fillBits > total {
		return nil, &ArmorError{Pos: -1, Fill: fillBits}
	}

	bs := &BitStream{
		data:  make([]byte, (total+7)/8),
		nbits: total - fillBits,
	}
	pos := 0
	for i := 0; i < len(payload); i++ {
		v, ok := sextet(payload[i])
		if !ok {
			return nil, &ArmorError{Pos: i, Char: payload[i]}
		}
		for k := 5; k >= 0; k-- {
			if v>>k&1 == 1 {
				bs.data[pos/8] |= 0x80 >> (pos % 8)
			}
			pos++
		}
	}
	return bs, nil
}

// Armor is the inverse of Dearmor: it encodes the stream as armored text,
// padding the final character with zero bits and reporting how many were
// added.
func Armor(bs *BitStream) (string, int) {
	n := (bs.nbits + 5) / 6
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		var v uint8
		for k := 0; k < 6; k++ {
			pos := i*6 + k
			v <<= 1
			if pos < bs.nbits {
				v |= uint8(bs.bit(pos))
			}
		}
		out[i] = armorChar(v)
	}
	return string(out), n*6 - bs.nbits
}
