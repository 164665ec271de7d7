package basestation

import (
	"math"
	"testing"
	"time"

	"ais_parser/internal/ais"
)

func TestExtract(t *testing.T) {
	bs, err := ais.Dearmor("403OviQuMGCqWrRO9>E6fE700@GO", 0)
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

	if res.MsgType() != 4 {
		t.Errorf("MsgType = %d, want 4", res.MsgType())
	}
	if res.UserID() != 3669702 {
		t.Errorf("MMSI = %d, want 3669702", res.UserID())
	}
	if res.Kind() != "base_station_report" {
		t.Errorf("Kind = %q, want %q", res.Kind(), "base_station_report")
	}
	if !res.PositionAccuracy {
		t.Error("PositionAccuracy = false, want true")
	}
	if res.Longitude == nil || res.Latitude == nil {
		t.Fatalf("position missing: lon=%v lat=%v", res.Longitude, res.Latitude)
	}
	if math.Abs(*res.Longitude-(-76.35236166666667)) > 1e-9 {
		t.Errorf("Longitude = %v, want -76.3523617", *res.Longitude)
	}
	if math.Abs(*res.Latitude-36.883766666666666) > 1e-9 {
		t.Errorf("Latitude = %v, want 36.8837667", *res.Latitude)
	}
	if res.EPFDType != 7 {
		t.Errorf("EPFDType = %d, want 7", res.EPFDType)
	}
	if res.RAIM {
		t.Error("RAIM = true, want false")
	}

	ts, ok := res.Time()
	if !ok {
		t.Fatal("Time not available")
	}
	if want := time.Date(2007, 5, 14, 19, 57, 39, 0, time.UTC); !ts.Equal(want) {
		t.Errorf("Time = %v, want %v", ts, want)
	}
}

func TestTimeNotAvailable(t *testing.T) {
	tests := []struct {
		name string
		res  Result
	}{
		{"zero year", Result{Month: 1, Day: 1}},
		{"zero month", Result{Year: 2020, Day: 1}},
		{"hour 24", Result{Year: 2020, Month: 1, Day: 1, Hour: 24}},
		{"minute 60", Result{Year: 2020, Month: 1, Day: 1, Minute: 60}},
		{"second 60", Result{Year: 2020, Month: 1, Day: 1, Second: 60}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ts, ok := tt.res.Time(); ok {
				t.Errorf("Time = %v, want not available", ts)
			}
		})
	}
}
