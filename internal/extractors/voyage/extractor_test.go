package voyage

import (
	"errors"
	"math"
	"testing"

	"ais_parser/internal/ais"
)

const payload = "55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp888888888880"

func TestExtract(t *testing.T) {
	bs, err := ais.Dearmor(payload, 2)
	if err != nil {
		t.Fatalf("Dearmor: %v", err)
	}
	if bs.Len() != 424 {
		t.Fatalf("Len = %d, want 424", bs.Len())
	}

	msg, err := (&Extractor{}).Extract(bs)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	res, ok := msg.(*Result)
	if !ok {
		t.Fatalf("expected *Result, got %T", msg)
	}

	if res.MsgType() != 5 {
		t.Errorf("MsgType = %d, want 5", res.MsgType())
	}
	if res.UserID() != 351759000 {
		t.Errorf("MMSI = %d, want 351759000", res.UserID())
	}
	if res.AISVersion != 0 {
		t.Errorf("AISVersion = %d, want 0", res.AISVersion)
	}
	if res.IMO != 9134270 {
		t.Errorf("IMO = %d, want 9134270", res.IMO)
	}
	// Digits share codes with the upper block of the text table.
	if res.CallSign != "sFOFx" {
		t.Errorf("CallSign = %q, want %q", res.CallSign, "sFOFx")
	}
	if res.VesselName != "EVER DIADEM" {
		t.Errorf("VesselName = %q, want %q", res.VesselName, "EVER DIADEM")
	}
	if res.ShipType != 70 {
		t.Errorf("ShipType = %d, want 70", res.ShipType)
	}
	wantDim := ais.Dimensions{ToBow: 225, ToStern: 70, ToPort: 1, ToStarboard: 31}
	if res.Dimensions != wantDim {
		t.Errorf("Dimensions = %+v, want %+v", res.Dimensions, wantDim)
	}
	if res.Dimensions.Length() != 295 || res.Dimensions.Beam() != 32 {
		t.Errorf("Length/Beam = %d/%d, want 295/32", res.Dimensions.Length(), res.Dimensions.Beam())
	}
	if res.EPFDType != 1 {
		t.Errorf("EPFDType = %d, want 1", res.EPFDType)
	}
	wantETA := ETA{Month: 5, Day: 15, Hour: 14, Minute: 0}
	if res.ETA != wantETA {
		t.Errorf("ETA = %+v, want %+v", res.ETA, wantETA)
	}
	if math.Abs(res.Draught-12.2) > 1e-9 {
		t.Errorf("Draught = %v, want 12.2", res.Draught)
	}
	if res.Destination != "NEW YORK" {
		t.Errorf("Destination = %q, want %q", res.Destination, "NEW YORK")
	}
}

func TestExtractWithoutTrailingBits(t *testing.T) {
	bs, err := ais.Dearmor(payload, 2)
	if err != nil {
		t.Fatalf("Dearmor: %v", err)
	}

	msg, err := (&Extractor{}).Extract(ais.NewBitStream(bs.Bits()[:422]))
	if err != nil {
		t.Fatalf("Extract 422 bits: %v", err)
	}
	if got := msg.(*Result).Destination; got != "NEW YORK" {
		t.Errorf("Destination = %q, want %q", got, "NEW YORK")
	}

	_, err = (&Extractor{}).Extract(ais.NewBitStream(bs.Bits()[:421]))
	if !errors.Is(err, ais.ErrTruncatedMessage) {
		t.Errorf("421 bits: err = %v, want ErrTruncatedMessage", err)
	}
}
