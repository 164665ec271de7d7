// Package staticdata decodes Class B static data reports (type 24). The
// report is split in two independent messages: part A carries the name,
// part B the type, vendor, call sign and dimensions.
package staticdata

import (
	"ais_parser/internal/ais"
	"ais_parser/internal/registry"
)

// Part numbers.
const (
	PartA = 0
	PartB = 1
)

// Result holds whichever part was received. Fields of the other part are
// left zero.
type Result struct {
	registry.Header
	PartNumber uint8 `json:"part_number"`

	// Part A.
	VesselName string `json:"vessel_name,omitempty"`

	// Part B.
	ShipType   uint8           `json:"ship_type,omitempty"`
	VendorID   string          `json:"vendor_id,omitempty"`
	CallSign   string          `json:"call_sign,omitempty"`
	Dimensions *ais.Dimensions `json:"dimensions,omitempty"`
}

func (r *Result) Kind() string { return "class_b_static" }

type Extractor struct{}

func init() {
	registry.Register(&Extractor{})
}

func (e *Extractor) Name() string   { return "staticdata" }
func (e *Extractor) Types() []uint8 { return []uint8{24} }

// MinBits covers the part number. Each part's own fields are range checked
// when read.
func (e *Extractor) MinBits() int { return 40 }

func (e *Extractor) Extract(bs *ais.BitStream) (registry.Message, error) {
	r := ais.NewFieldReader(bs)

	res := &Result{
		Header:     registry.ReadHeader(r),
		PartNumber: uint8(r.Uint(38, 40)),
	}

	switch res.PartNumber {
	case PartA:
		res.VesselName = r.Text(40, 160)
	case PartB:
		res.ShipType = uint8(r.Uint(40, 48))
		res.VendorID = r.Text(48, 90)
		res.CallSign = r.Text(90, 132)
		dims := r.Dimensions(132)
		res.Dimensions = &dims
	}

	if err := r.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
