// Package basestation decodes base station reports (type 4).
package basestation

import (
	"time"

	"ais_parser/internal/ais"
	"ais_parser/internal/registry"
)

// Result is a base station report. Date fields are zero when the station
// does not know the time.
type Result struct {
	registry.Header
	Year             uint16   `json:"year"`
	Month            uint8    `json:"month"`
	Day              uint8    `json:"day"`
	Hour             uint8    `json:"hour"`
	Minute           uint8    `json:"minute"`
	Second           uint8    `json:"second"`
	PositionAccuracy bool     `json:"position_accuracy"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	EPFDType         uint8    `json:"epfd_type"`
	RAIM             bool     `json:"raim"`
}

func (r *Result) Kind() string { return "base_station_report" }

// Time returns the reported UTC time, or false if any component is out of
// range or marked not available.
func (r *Result) Time() (time.Time, bool) {
	if r.Year == 0 || r.Month == 0 || r.Month > 12 || r.Day == 0 || r.Day > 31 ||
		r.Hour > 23 || r.Minute > 59 || r.Second > 59 {
		return time.Time{}, false
	}
	return time.Date(int(r.Year), time.Month(r.Month), int(r.Day),
		int(r.Hour), int(r.Minute), int(r.Second), 0, time.UTC), true
}

// Extractor decodes type 4.
type Extractor struct{}

func init() {
	registry.Register(&Extractor{})
}

func (e *Extractor) Name() string   { return "basestation" }
func (e *Extractor) Types() []uint8 { return []uint8{4} }
func (e *Extractor) MinBits() int   { return 149 }

func (e *Extractor) Extract(bs *ais.BitStream) (registry.Message, error) {
	r := ais.NewFieldReader(bs)

	res := &Result{
		Header:           registry.ReadHeader(r),
		Year:             uint16(r.Uint(38, 52)),
		Month:            uint8(r.Uint(52, 56)),
		Day:              uint8(r.Uint(56, 61)),
		Hour:             uint8(r.Uint(61, 66)),
		Minute:           uint8(r.Uint(66, 72)),
		Second:           uint8(r.Uint(72, 78)),
		PositionAccuracy: r.Flag(78),
		EPFDType:         uint8(r.Uint(134, 138)),
		RAIM:             r.Flag(148),
	}
	res.Longitude, res.Latitude = r.Position(79, 107)

	if err := r.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
