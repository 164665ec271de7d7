// Package aton decodes aid-to-navigation reports (type 21).
package aton

import (
	"ais_parser/internal/ais"
	"ais_parser/internal/registry"
)

// Result is an aid-to-navigation report.
type Result struct {
	registry.Header
	AidType          uint8          `json:"aid_type"`
	Name             string         `json:"name"`
	PositionAccuracy bool           `json:"position_accuracy"`
	Longitude        *float64       `json:"longitude,omitempty"`
	Latitude         *float64       `json:"latitude,omitempty"`
	Dimensions       ais.Dimensions `json:"dimensions"`
	EPFDType         uint8          `json:"epfd_type"`
	UTCSecond        uint8          `json:"utc_second"`
	OffPosition      bool           `json:"off_position"`
	RAIM             bool           `json:"raim"`
	VirtualAid       bool           `json:"virtual_aid"`
	NameExtension    string         `json:"name_extension,omitempty"`
}

func (r *Result) Kind() string { return "aid_to_navigation" }

// FullName joins the name and its extension.
func (r *Result) FullName() string {
	return r.Name + r.NameExtension
}

type Extractor struct{}

func init() {
	registry.Register(&Extractor{})
}

func (e *Extractor) Name() string   { return "aton" }
func (e *Extractor) Types() []uint8 { return []uint8{21} }
func (e *Extractor) MinBits() int   { return 270 }

// nameExtStart is where the optional name extension begins, after the
// assigned-mode flag and one spare bit.
const nameExtStart = 272

func (e *Extractor) Extract(bs *ais.BitStream) (registry.Message, error) {
	r := ais.NewFieldReader(bs)

	res := &Result{
		Header:           registry.ReadHeader(r),
		AidType:          uint8(r.Uint(38, 43)),
		Name:             r.Text(43, 163),
		PositionAccuracy: r.Flag(163),
		Dimensions:       r.Dimensions(219),
		EPFDType:         uint8(r.Uint(249, 253)),
		UTCSecond:        uint8(r.Uint(253, 259)),
		OffPosition:      r.Flag(259),
		RAIM:             r.Flag(268),
		VirtualAid:       r.Flag(269),
	}
	res.Longitude, res.Latitude = r.Position(164, 192)

	if n := bs.Len(); n > nameExtStart {
		// Whole characters only.
		end := nameExtStart + (n-nameExtStart)/6*6
		res.NameExtension = r.Text(nameExtStart, end)
	}

	if err := r.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
