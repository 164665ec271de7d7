// Package longrange decodes long-range position reports (type 27), the
// compact report meant for satellite reception.
package longrange

import (
	"ais_parser/internal/ais"
	"ais_parser/internal/registry"
)

// Result is a long-range position report. Speed and course are whole knots
// and degrees; 63 and 511 mean not available.
type Result struct {
	registry.Header
	PositionAccuracy bool     `json:"position_accuracy"`
	RAIM             bool     `json:"raim"`
	NavStatus        uint8    `json:"nav_status"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	SpeedOverGround  uint8    `json:"speed_over_ground"`
	CourseOverGround uint16   `json:"course_over_ground"`
}

func (r *Result) Kind() string { return "long_range_position" }

type Extractor struct{}

func init() {
	registry.Register(&Extractor{})
}

func (e *Extractor) Name() string   { return "longrange" }
func (e *Extractor) Types() []uint8 { return []uint8{27} }
func (e *Extractor) MinBits() int   { return 94 }

func (e *Extractor) Extract(bs *ais.BitStream) (registry.Message, error) {
	r := ais.NewFieldReader(bs)

	res := &Result{
		Header:           registry.ReadHeader(r),
		PositionAccuracy: r.Flag(38),
		RAIM:             r.Flag(39),
		NavStatus:        uint8(r.Uint(40, 44)),
		SpeedOverGround:  uint8(r.Uint(79, 85)),
		CourseOverGround: uint16(r.Uint(85, 94)),
	}
	rawLon := r.Int(44, 62)
	rawLat := r.Int(62, 79)

	if err := r.Err(); err != nil {
		return nil, err
	}
	res.Longitude = ais.LongitudeLongRange(int32(rawLon))
	res.Latitude = ais.LatitudeLongRange(int32(rawLat))
	return res, nil
}
