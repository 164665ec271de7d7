package ais

import "math"

// Raw "not available" encodings. Comparisons against these are exact and
// happen before any scaling.
const (
	RateOfTurnNotAvailable    = -128
	LongitudeNotAvailable     = 0x6791AC0 // 181 degrees in 1/10000 minute.
	LatitudeNotAvailable      = 0x3412140 // 91 degrees in 1/10000 minute.
	LongitudeLRNotAvailable   = 0x181
	LatitudeLRNotAvailable    = 0x91
	rateOfTurnScale           = 4.733
	standardPositionPerDegree = 600000.0
	longRangePositionPerUnit  = 10.0
)

func ptr(v float64) *float64 { return &v }

// RateOfTurn decodes the non-linear rate-of-turn field to degrees per minute.
// The magnitude grows with the square of the encoded value.
func RateOfTurn(raw int8) *float64 {
	switch raw {
	case RateOfTurnNotAvailable:
		return nil
	case 0:
		return ptr(0)
	}
	v := math.Pow(math.Abs(float64(raw))/rateOfTurnScale, 2)
	if raw < 0 {
		v = -v
	}
	return ptr(v)
}

// LongitudeStandard decodes a 28-bit longitude in 1/10000 minute.
func LongitudeStandard(raw int32) *float64 {
	if raw == LongitudeNotAvailable {
		return nil
	}
	return ptr(float64(raw) / standardPositionPerDegree)
}

// LatitudeStandard decodes a 27-bit latitude in 1/10000 minute.
func LatitudeStandard(raw int32) *float64 {
	if raw == LatitudeNotAvailable {
		return nil
	}
	return ptr(float64(raw) / standardPositionPerDegree)
}

// LongitudeLongRange decodes the 18-bit longitude of a type 27 report.
func LongitudeLongRange(raw int32) *float64 {
	if raw == LongitudeLRNotAvailable {
		return nil
	}
	return ptr(float64(raw) / longRangePositionPerUnit)
}

// LatitudeLongRange decodes the 17-bit latitude of a type 27 report.
func LatitudeLongRange(raw int32) *float64 {
	if raw == LatitudeLRNotAvailable {
		return nil
	}
	return ptr(float64(raw) / longRangePositionPerUnit)
}
