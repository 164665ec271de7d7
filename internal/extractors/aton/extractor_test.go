package aton

import (
	"math"
	"testing"

	"ais_parser/internal/ais"
)

const payload = "E>jHC=c6:W2h22R`@1:WdP00000Opa@H?KTcP00000?Uw@"

func TestExtract(t *testing.T) {
	bs, err := ais.Dearmor(payload, 2)
	if err != nil {
		t.Fatalf("Dearmor: %v", err)
	}
	if bs.Len() != 274 {
		t.Fatalf("Len = %d, want 274", bs.Len())
	}

	msg, err := (&Extractor{}).Extract(bs)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	res, ok := msg.(*Result)
	if !ok {
		t.Fatalf("expected *Result, got %T", msg)
	}

	if res.MsgType() != 21 {
		t.Errorf("MsgType = %d, want 21", res.MsgType())
	}
	if res.UserID() != 992351030 {
		t.Errorf("MMSI = %d, want 992351030", res.UserID())
	}
	if res.AidType != 22 {
		t.Errorf("AidType = %d, want 22", res.AidType)
	}
	if res.Name != "LUNE DEEP BUOY" {
		t.Errorf("Name = %q, want %q", res.Name, "LUNE DEEP BUOY")
	}
	if res.NameExtension != "" || res.FullName() != "LUNE DEEP BUOY" {
		t.Errorf("NameExtension = %q, FullName = %q", res.NameExtension, res.FullName())
	}
	if !res.PositionAccuracy {
		t.Error("PositionAccuracy = false, want true")
	}
	if res.Longitude == nil || res.Latitude == nil {
		t.Fatalf("position missing: lon=%v lat=%v", res.Longitude, res.Latitude)
	}
	if math.Abs(*res.Longitude-(-3.2136133333333334)) > 1e-9 {
		t.Errorf("Longitude = %v, want -3.2136133", *res.Longitude)
	}
	if math.Abs(*res.Latitude-53.93466) > 1e-9 {
		t.Errorf("Latitude = %v, want 53.93466", *res.Latitude)
	}
	if res.Dimensions != (ais.Dimensions{}) {
		t.Errorf("Dimensions = %+v, want zero", res.Dimensions)
	}
	if res.EPFDType != 0 {
		t.Errorf("EPFDType = %d, want 0", res.EPFDType)
	}
	if res.UTCSecond != 31 {
		t.Errorf("UTCSecond = %d, want 31", res.UTCSecond)
	}
	if res.OffPosition {
		t.Error("OffPosition = true, want false")
	}
	if !res.RAIM || !res.VirtualAid {
		t.Errorf("RAIM/VirtualAid = %v/%v, want true/true", res.RAIM, res.VirtualAid)
	}
}

func TestNameExtension(t *testing.T) {
	bs, err := ais.Dearmor(payload, 2)
	if err != nil {
		t.Fatalf("Dearmor: %v", err)
	}

	// Append "AB" after the two bits preceding the extension.
	bits := append(bs.Bits()[:272:272], 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0)
	msg, err := (&Extractor{}).Extract(ais.NewBitStream(bits))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	res := msg.(*Result)
	if res.NameExtension != "AB" {
		t.Errorf("NameExtension = %q, want %q", res.NameExtension, "AB")
	}
	if res.FullName() != "LUNE DEEP BUOYAB" {
		t.Errorf("FullName = %q, want %q", res.FullName(), "LUNE DEEP BUOYAB")
	}
}
