// Package voyage decodes static and voyage related data (type 5). The
// message is 424 bits long and always arrives as two fragments.
package voyage

import (
	"ais_parser/internal/ais"
	"ais_parser/internal/registry"
)

// ETA is the estimated time of arrival. Zero month, day and hours 24,
// minute 60 mean not available.
type ETA struct {
	Month  uint8 `json:"month"`
	Day    uint8 `json:"day"`
	Hour   uint8 `json:"hour"`
	Minute uint8 `json:"minute"`
}

// Result is a static and voyage data message.
type Result struct {
	registry.Header
	AISVersion  uint8          `json:"ais_version"`
	IMO         uint32         `json:"imo_number"`
	CallSign    string         `json:"call_sign"`
	VesselName  string         `json:"vessel_name"`
	ShipType    uint8          `json:"ship_type"`
	Dimensions  ais.Dimensions `json:"dimensions"`
	EPFDType    uint8          `json:"epfd_type"`
	ETA         ETA            `json:"eta"`
	Draught     float64        `json:"draught"` // Metres.
	Destination string         `json:"destination"`
}

func (r *Result) Kind() string { return "static_voyage" }

type Extractor struct{}

func init() {
	registry.Register(&Extractor{})
}

func (e *Extractor) Name() string   { return "voyage" }
func (e *Extractor) Types() []uint8 { return []uint8{5} }

// MinBits covers everything up to the destination. Some transponders omit
// the trailing DTE and spare bits.
func (e *Extractor) MinBits() int { return 422 }

func (e *Extractor) Extract(bs *ais.BitStream) (registry.Message, error) {
	r := ais.NewFieldReader(bs)

	res := &Result{
		Header:     registry.ReadHeader(r),
		AISVersion: uint8(r.Uint(38, 40)),
		IMO:        uint32(r.Uint(40, 70)),
		CallSign:   r.Text(70, 112),
		VesselName: r.Text(112, 232),
		ShipType:   uint8(r.Uint(232, 240)),
		Dimensions: r.Dimensions(240),
		EPFDType:   uint8(r.Uint(270, 274)),
		ETA: ETA{
			Month:  uint8(r.Uint(274, 278)),
			Day:    uint8(r.Uint(278, 283)),
			Hour:   uint8(r.Uint(283, 288)),
			Minute: uint8(r.Uint(288, 294)),
		},
		Draught:     r.Scaled(294, 302, 10),
		Destination: r.Text(302, 422),
	}

	if err := r.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
