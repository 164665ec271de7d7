package classb

import (
	"errors"
	"math"
	"testing"

	"ais_parser/internal/ais"
)

const payload = "B52K>;h00Fc>jpUlNV@ikwpUoP06"

func TestExtract(t *testing.T) {
	bs, err := ais.Dearmor(payload, 0)
	if err != nil {
		t.Fatalf("Dearmor: %v", err)
	}

	msg, err := (&Extractor{}).Extract(bs)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	res, ok := msg.(*Result)
	if !ok {
		t.Fatalf("expected *Result, got %T", msg)
	}

	if res.MsgType() != 18 {
		t.Errorf("MsgType = %d, want 18", res.MsgType())
	}
	if res.UserID() != 338087471 {
		t.Errorf("MMSI = %d, want 338087471", res.UserID())
	}
	if math.Abs(res.SpeedOverGround-0.1) > 1e-9 {
		t.Errorf("SpeedOverGround = %v, want 0.1", res.SpeedOverGround)
	}
	if res.PositionAccuracy {
		t.Error("PositionAccuracy = true, want false")
	}
	if res.Longitude == nil || res.Latitude == nil {
		t.Fatalf("position missing: lon=%v lat=%v", res.Longitude, res.Latitude)
	}
	if math.Abs(*res.Longitude-(-74.07213166666666)) > 1e-9 {
		t.Errorf("Longitude = %v, want -74.0721317", *res.Longitude)
	}
	if math.Abs(*res.Latitude-40.68454) > 1e-9 {
		t.Errorf("Latitude = %v, want 40.68454", *res.Latitude)
	}
	if math.Abs(res.CourseOverGround-79.6) > 1e-9 {
		t.Errorf("CourseOverGround = %v, want 79.6", res.CourseOverGround)
	}
	if res.TrueHeading != 511 {
		t.Errorf("TrueHeading = %d, want 511", res.TrueHeading)
	}
	if res.UTCSecond != 49 {
		t.Errorf("UTCSecond = %d, want 49", res.UTCSecond)
	}
}

func TestMinBits(t *testing.T) {
	bs, err := ais.Dearmor(payload, 0)
	if err != nil {
		t.Fatalf("Dearmor: %v", err)
	}

	e := &Extractor{}
	if _, err := e.Extract(ais.NewBitStream(bs.Bits()[:e.MinBits()])); err != nil {
		t.Errorf("%d bits: %v", e.MinBits(), err)
	}
	_, err = e.Extract(ais.NewBitStream(bs.Bits()[:e.MinBits()-1]))
	if !errors.Is(err, ais.ErrTruncatedMessage) {
		t.Errorf("%d bits: err = %v, want ErrTruncatedMessage", e.MinBits()-1, err)
	}
}
