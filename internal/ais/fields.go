package ais

// FieldReader reads absolute bit ranges from a BitStream and remembers the
// first error, so an extractor can read its whole field table and check once.
type FieldReader struct {
	bs  *BitStream
	err error
}

// NewFieldReader wraps bs.
func NewFieldReader(bs *BitStream) *FieldReader {
	return &FieldReader{bs: bs}
}

// Err returns the first error encountered, if any.
func (r *FieldReader) Err() error {
	return r.err
}

// Uint reads an unsigned field.
func (r *FieldReader) Uint(start, end int) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.bs.Uint(start, end)
	r.err = err
	return v
}

// Int reads a two's-complement field.
func (r *FieldReader) Int(start, end int) int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.bs.Int(start, end)
	r.err = err
	return v
}

// Flag reads a one-bit field.
func (r *FieldReader) Flag(pos int) bool {
	return r.Uint(pos, pos+1) == 1
}

// Text reads a sixbit text field.
func (r *FieldReader) Text(start, end int) string {
	if r.err != nil {
		return ""
	}
	v, err := r.bs.Text(start, end)
	r.err = err
	return v
}

// Scaled reads an unsigned field divided by div.
func (r *FieldReader) Scaled(start, end int, div float64) float64 {
	return float64(r.Uint(start, end)) / div
}

// RateOfTurn reads an 8-bit signed rate-of-turn field.
func (r *FieldReader) RateOfTurn(start int) *float64 {
	raw := r.Int(start, start+8)
	if r.err != nil {
		return nil
	}
	return RateOfTurn(int8(raw))
}

// Position reads a standard-precision longitude at lonStart (28 bits)
// followed by a latitude at latStart (27 bits).
func (r *FieldReader) Position(lonStart, latStart int) (lon, lat *float64) {
	rawLon := r.Int(lonStart, lonStart+28)
	rawLat := r.Int(latStart, latStart+27)
	if r.err != nil {
		return nil, nil
	}
	return LongitudeStandard(int32(rawLon)), LatitudeStandard(int32(rawLat))
}

// Dimensions reads the 30-bit hull dimension block starting at start.
func (r *FieldReader) Dimensions(start int) Dimensions {
	return Dimensions{
		ToBow:       uint16(r.Uint(start, start+9)),
		ToStern:     uint16(r.Uint(start+9, start+18)),
		ToPort:      uint8(r.Uint(start+18, start+24)),
		ToStarboard: uint8(r.Uint(start+24, start+30)),
	}
}

// Dimensions are distances in metres from the position reference point.
type Dimensions struct {
	ToBow       uint16 `json:"to_bow"`
	ToStern     uint16 `json:"to_stern"`
	ToPort      uint8  `json:"to_port"`
	ToStarboard uint8  `json:"to_starboard"`
}

// Length returns the overall length in metres.
func (d Dimensions) Length() int { return int(d.ToBow) + int(d.ToStern) }

// Beam returns the overall beam in metres.
func (d Dimensions) Beam() int { return int(d.ToPort) + int(d.ToStarboard) }
