// Package ais implements the AIS payload codec primitives: payload armoring,
// the read-only BitStream, sixbit text and the sentinel-aware unit helpers.
package ais

import "strings"

// BitStream is an immutable, indexable sequence of bits. Bits are packed
// MSB-first into bytes; only the first nbits are meaningful.
type BitStream struct {
	data  []byte
	nbits int
}

// NewBitStream builds a BitStream from a slice holding one bit per byte
// (any non-zero byte is a 1).
func NewBitStream(bits []byte) *BitStream {
	bs := &BitStream{
		data:  make([]byte, (len(bits)+7)/8),
		nbits: len(bits),
	}
	for i, b := range bits {
		if b != 0 {
			bs.data[i/8] |= 0x80 >> (i % 8)
		}
	}
	return bs
}

// Len returns the number of bits in the stream.
func (bs *BitStream) Len() int {
	return bs.nbits
}

// bit returns the bit at pos without bounds checking against the declared
// length. Callers must validate pos first.
func (bs *BitStream) bit(pos int) uint64 {
	return uint64(bs.data[pos/8]>>(7-pos%8)) & 1
}

func (bs *BitStream) check(start, end int) error {
	if start < 0 || end < start || end > bs.nbits {
		return &TruncatedError{Start: start, End: end, Len: bs.nbits}
	}
	return nil
}

// Uint reads bits [start,end) as an unsigned big-endian integer. Ranges wider
// than 64 bits keep only the low 64 bits.
func (bs *BitStream) Uint(start, end int) (uint64, error) {
	if err := bs.check(start, end); err != nil {
		return 0, err
	}
	var v uint64
	for i := start; i < end; i++ {
		v = v<<1 | bs.bit(i)
	}
	return v, nil
}

// Int reads bits [start,end) as a two's-complement signed integer.
func (bs *BitStream) Int(start, end int) (int64, error) {
	v, err := bs.Uint(start, end)
	if err != nil {
		return 0, err
	}
	width := end - start
	if width == 0 || width >= 64 {
		return int64(v), nil
	}
	// Sign extend.
	shift := 64 - width
	return int64(v<<shift) >> shift, nil
}

// Bool reads the single bit at pos.
func (bs *BitStream) Bool(pos int) (bool, error) {
	v, err := bs.Uint(pos, pos+1)
	return v == 1, err
}

// Text decodes bits [start,end) as sixbit text. The range length must be a
// multiple of six; a trailing partial group is ignored.
func (bs *BitStream) Text(start, end int) (string, error) {
	if err := bs.check(start, end); err != nil {
		return "", err
	}
	var sb strings.Builder
	for i := start; i+6 <= end; i += 6 {
		code, _ := bs.Uint(i, i+6)
		if r, ok := SixbitChar(uint8(code)); ok {
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Bits returns a copy of the stream as one bit per byte.
func (bs *BitStream) Bits() []byte {
	out := make([]byte, bs.nbits)
	for i := range out {
		out[i] = byte(bs.bit(i))
	}
	return out
}

// String renders the stream as a string of '0' and '1' characters.
func (bs *BitStream) String() string {
	var sb strings.Builder
	sb.Grow(bs.nbits)
	for i := 0; i < bs.nbits; i++ {
		sb.WriteByte('0' + byte(bs.bit(i)))
	}
	return sb.String()
}
