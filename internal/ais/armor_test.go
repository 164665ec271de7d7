package ais

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDearmorCharacters(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "zero", payload: "0", want: "000000"},
		{name: "last of first block", payload: "W", want: "100111"},
		{name: "first of second block", payload: "`", want: "101000"},
		{name: "max", payload: "w", want: "111111"},
		{name: "two chars", payload: "1w", want: "000001111111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs, err := Dearmor(tt.payload, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, bs.String())
			assert.Equal(t, len(tt.want), bs.Len())
		})
	}
}

func TestDearmorFillBits(t *testing.T) {
	bs, err := Dearmor("w0", 2)
	require.NoError(t, err)
	assert.Equal(t, 10, bs.Len())
	assert.Equal(t, "1111110000", bs.String())
}

func TestDearmorMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		fill    int
		pos     int
	}{
		{name: "between blocks", payload: "15X", pos: 2},
		{name: "below range", payload: "/1", pos: 0},
		{name: "above range", payload: "1x", pos: 1},
		{name: "comma", payload: "1,", pos: 1},
		{name: "negative fill", payload: "11", fill: -1, pos: -1},
		{name: "fill too large", payload: "11", fill: 6, pos: -1},
		{name: "fill exceeds payload", payload: "", fill: 1, pos: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Dearmor(tt.payload, tt.fill)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedArmor)

			var ae *ArmorError
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.pos, ae.Pos)
		})
	}
}

func TestArmorRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SliceOf(rapid.IntRange(0, 1)).Draw(t, "bits")
		raw := make([]byte, len(bits))
		for i, b := range bits {
			raw[i] = byte(b)
		}

		payload, fill := Armor(NewBitStream(raw))
		if fill < 0 || fill > MaxFillBits {
			t.Fatalf("fill bits out of range: %d", fill)
		}

		bs, err := Dearmor(payload, fill)
		if err != nil {
			t.Fatalf("dearmor %q: %v", payload, err)
		}
		if got := bs.Bits(); string(got) != string(raw) {
			t.Fatalf("round trip mismatch: got %v want %v", got, raw)
		}
	})
}

func TestArmorKnownPayload(t *testing.T) {
	const payload = "15MgK45P3@G?fl0E`JbR0OwT0@MS"

	bs, err := Dearmor(payload, 0)
	require.NoError(t, err)
	assert.Equal(t, 168, bs.Len())

	got, fill := Armor(bs)
	assert.Equal(t, payload, got)
	assert.Zero(t, fill)
}
