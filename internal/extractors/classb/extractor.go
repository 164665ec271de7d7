// Package classb decodes standard Class B position reports (type 18).
package classb

import (
	"ais_parser/internal/ais"
	"ais_parser/internal/registry"
)

// Result is a Class B position report.
type Result struct {
	registry.Header
	SpeedOverGround  float64  `json:"speed_over_ground"`
	PositionAccuracy bool     `json:"position_accuracy"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	CourseOverGround float64  `json:"course_over_ground"`
	TrueHeading      uint16   `json:"true_heading"`
	UTCSecond        uint8    `json:"utc_second"`
}

func (r *Result) Kind() string { return "class_b_position" }

type Extractor struct{}

func init() {
	registry.Register(&Extractor{})
}

func (e *Extractor) Name() string   { return "classb" }
func (e *Extractor) Types() []uint8 { return []uint8{18} }
func (e *Extractor) MinBits() int   { return 139 }

func (e *Extractor) Extract(bs *ais.BitStream) (registry.Message, error) {
	r := ais.NewFieldReader(bs)

	res := &Result{
		Header:           registry.ReadHeader(r),
		SpeedOverGround:  r.Scaled(46, 56, 10),
		PositionAccuracy: r.Flag(56),
		CourseOverGround: r.Scaled(112, 124, 10),
		TrueHeading:      uint16(r.Uint(124, 133)),
		UTCSecond:        uint8(r.Uint(133, 139)),
	}
	res.Longitude, res.Latitude = r.Position(57, 85)

	if err := r.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
