// Package position decodes Class A position reports, message types 1, 2
// and 3. The three types share one layout and differ only in the
// transmitting station's scheduling.
package position

import (
	"ais_parser/internal/ais"
	"ais_parser/internal/registry"
)

// Result is a Class A position report.
type Result struct {
	registry.Header
	NavStatus        uint8    `json:"nav_status"`
	RateOfTurn       *float64 `json:"rate_of_turn,omitempty"` // Degrees per minute.
	SpeedOverGround  float64  `json:"speed_over_ground"`      // Knots. 102.3 means not available.
	PositionAccuracy bool     `json:"position_accuracy"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	CourseOverGround float64  `json:"course_over_ground"` // Degrees. 360.0 means not available.
	TrueHeading      uint16   `json:"true_heading"`       // Degrees. 511 means not available.
	UTCSecond        uint8    `json:"utc_second"`
	SpecialManeuver  uint8    `json:"special_maneuver"`
	RAIM             bool     `json:"raim"`
}

func (r *Result) Kind() string { return "position_report" }

// Extractor decodes types 1, 2 and 3.
type Extractor struct{}

func init() {
	registry.Register(&Extractor{})
}

func (e *Extractor) Name() string   { return "position" }
func (e *Extractor) Types() []uint8 { return []uint8{1, 2, 3} }
func (e *Extractor) MinBits() int   { return 149 }

func (e *Extractor) Extract(bs *ais.BitStream) (registry.Message, error) {
	r := ais.NewFieldReader(bs)

	res := &Result{
		Header:           registry.ReadHeader(r),
		NavStatus:        uint8(r.Uint(38, 42)),
		RateOfTurn:       r.RateOfTurn(42),
		SpeedOverGround:  r.Scaled(50, 60, 10),
		PositionAccuracy: r.Flag(60),
		CourseOverGround: r.Scaled(116, 128, 10),
		TrueHeading:      uint16(r.Uint(128, 137)),
		UTCSecond:        uint8(r.Uint(137, 143)),
		SpecialManeuver:  uint8(r.Uint(143, 145)),
		RAIM:             r.Flag(148),
	}
	res.Longitude, res.Latitude = r.Position(61, 89)

	if err := r.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
