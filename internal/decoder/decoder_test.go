package decoder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ais_parser/internal/ais"
	"ais_parser/internal/extractors/position"
	"ais_parser/internal/extractors/voyage"
	"ais_parser/internal/fragment"
	"ais_parser/internal/nmea"
	"ais_parser/internal/registry"
)

const (
	positionLine = "!AIVDM,1,1,,A,15NBBQP000ssN`R?<b0ot00<0<9,0*62"
	voyageLine1  = "!AIVDM,2,1,3,B,55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp8,0*1C"
	voyageLine2  = "!AIVDM,2,2,3,B,88888888880,2*25,2023-06-01 12:00:00"
)

func TestDecodePayloadScenario(t *testing.T) {
	d := New()

	first, err := d.DecodePayload("15NBBQP000ssN`R?<b0ot00<0<9", 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), first.MsgType())
	assert.Equal(t, uint32(367301254), first.UserID())

	second, err := d.DecodePayload("15NBBQP000ssN`R?<b0ot00<0<9", 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// DecodePayload leaves the counters alone.
	assert.Zero(t, d.Stats().Sentences)
}

func TestDecodeAllTypes(t *testing.T) {
	tests := []struct {
		payload  string
		fill     int
		wantType uint8
		wantMMSI uint32
		wantKind string
	}{
		{"15MgK45P3@G?fl0E`JbR0OwT0@MS", 0, 1, 366730000, "position_report"},
		{"403OviQuMGCqWrRO9>E6fE700@GO", 0, 4, 3669702, "base_station_report"},
		{"55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp888888888880", 2, 5, 351759000, "static_voyage"},
		{"B52K>;h00Fc>jpUlNV@ikwpUoP06", 0, 18, 338087471, "class_b_position"},
		{"C5N3SRgPEnJGEBT>NhWAwwo862PaLELTBJ:V00000000S0D:R220", 0, 19, 367059850, "class_b_extended"},
		{"E>jHC=c6:W2h22R`@1:WdP00000Opa@H?KTcP00000?Uw@", 2, 21, 992351030, "aid_to_navigation"},
		{"H42O55i18tMET00000000000000", 2, 24, 271041815, "class_b_static"},
		{"KC5E2b@U19PFdLbL", 0, 27, 206914217, "long_range_position"},
	}

	d := New()
	for _, tt := range tests {
		t.Run(tt.wantKind, func(t *testing.T) {
			msg, err := d.DecodePayload(tt.payload, tt.fill)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, msg.MsgType())
			assert.Equal(t, tt.wantMMSI, msg.UserID())
			assert.Equal(t, tt.wantKind, msg.Kind())
		})
	}
}

func TestDecodePayloadUnsupported(t *testing.T) {
	msg, err := New().DecodePayload("w0000000", 0)
	require.NoError(t, err)
	u, ok := msg.(*registry.Unsupported)
	require.True(t, ok)
	assert.Equal(t, uint8(63), u.MsgType())
	assert.Equal(t, "111111"+strings.Repeat("0", 42), u.Raw)
}

func TestDecodePayloadErrors(t *testing.T) {
	d := New()

	_, err := d.DecodePayload("15X", 0)
	assert.ErrorIs(t, err, ais.ErrMalformedArmor)

	_, err = d.DecodePayload("15MgK45P3@G?", 0)
	assert.ErrorIs(t, err, ais.ErrTruncatedMessage)

	_, err = d.DecodePayload("1", 0)
	assert.ErrorIs(t, err, ais.ErrTruncatedMessage)
}

func TestFeedFragments(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"forward", []string{voyageLine1, voyageLine2}},
		{"reverse", []string{voyageLine2, voyageLine1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()

			got, err := d.FeedLine(tt.lines[0])
			require.NoError(t, err)
			assert.Nil(t, got)
			assert.Equal(t, 1, d.Pending())

			got, err = d.FeedLine(tt.lines[1])
			require.NoError(t, err)
			require.NotNil(t, got)

			res, ok := got.Message.(*voyage.Result)
			require.True(t, ok)
			assert.Equal(t, "EVER DIADEM", res.VesselName)
			assert.Equal(t, "NEW YORK", res.Destination)
			assert.Equal(t, 2, got.Fragments)
			assert.Equal(t, "B", got.Channel)
			assert.Equal(t, "2023-06-01 12:00:00", got.Timestamp)
			assert.Zero(t, d.Pending())

			st := d.Stats()
			assert.Equal(t, 2, st.Sentences)
			assert.Equal(t, 1, st.Messages)
			assert.Equal(t, 1, st.ByType[5])
		})
	}
}

func TestFeedCountsErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	d := New(WithMetrics(m))

	lines := []string{
		positionLine,
		"garbage",
		"!AIVDM,1,1,,A,15X,0*00",
		"!AIVDM,1,1,,A,15MgK45P3@G?,0*00",
		"!AIVDM,2,1,7,A,55?MbV02,0*00",
		"!AIVDM,3,1,7,A,55?MbV02,0*00",
	}
	var errs []error
	for _, line := range lines {
		if _, err := d.FeedLine(line); err != nil {
			errs = append(errs, err)
		}
	}
	require.Len(t, errs, 4)
	assert.Equal(t, KindMalformedSentence, ErrorKind(errs[0]))
	assert.Equal(t, KindMalformedArmor, ErrorKind(errs[1]))
	assert.Equal(t, KindTruncated, ErrorKind(errs[2]))
	assert.Equal(t, KindIncomplete, ErrorKind(errs[3]))
	assert.Equal(t, KindOther, ErrorKind(errors.New("boom")))

	st := d.Stats()
	assert.Equal(t, 6, st.Sentences)
	assert.Equal(t, 1, st.Messages)
	assert.Equal(t, 4, st.ErrorCount())
	assert.Equal(t, []uint8{1}, st.Types())

	assert.Equal(t, 6.0, testutil.ToFloat64(m.sentences))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messages.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues(KindIncomplete)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pending))

	flushed := d.Flush()
	assert.Len(t, flushed, 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.pending))
	assert.Equal(t, 2, d.Stats().Errors[KindIncomplete])
}

func TestSweepUsesClock(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	d := New(
		WithClock(clock),
		WithReassembler(fragment.New(fragment.WithClock(clock), fragment.WithHorizon(10*time.Second))),
	)

	_, err := d.FeedLine(voyageLine1)
	require.NoError(t, err)
	assert.Empty(t, d.Sweep())

	now = now.Add(11 * time.Second)
	errs := d.Sweep()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ais.ErrIncompleteMessage)
	assert.Zero(t, d.Pending())
}

func TestRun(t *testing.T) {
	input := strings.Join([]string{
		positionLine,
		"",
		"not a sentence",
		voyageLine1,
		voyageLine2,
		"!AIVDM,2,1,9,A,55?MbV02,0*00",
	}, "\n")

	d := New()
	var got []registry.Message
	err := d.Run(context.Background(), strings.NewReader(input), func(m *Decoded) error {
		got = append(got, m.Message)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.IsType(t, &position.Result{}, got[0])
	assert.IsType(t, &voyage.Result{}, got[1])

	// The dangling fragment is flushed at end of input.
	assert.Zero(t, d.Pending())
	st := d.Stats()
	assert.Equal(t, 1, st.Errors[KindMalformedSentence])
	assert.Equal(t, 1, st.Errors[KindIncomplete])
}

func TestRunSkipsOversizedLine(t *testing.T) {
	input := positionLine + "\n" + strings.Repeat("A", MaxLineLength+100) + "\n" + positionLine + "\n"

	d := New()
	n := 0
	err := d.Run(context.Background(), strings.NewReader(input), func(*Decoded) error {
		n++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	st := d.Stats()
	assert.Equal(t, 3, st.Sentences)
	assert.Equal(t, 1, st.Errors[KindMalformedSentence])
}

func TestFeedLineOversizedFragmentCount(t *testing.T) {
	d := New()
	for _, line := range []string{
		"!AIVDM,4611686018427387904,1,3,A,15NBBQP000ssN`R?<b0ot00<0<9,0*00",
		"!AIVDM,100000000,1,3,A,15NBBQP000ssN`R?<b0ot00<0<9,0*00",
	} {
		require.NotPanics(t, func() {
			_, err := d.FeedLine(line)
			assert.ErrorIs(t, err, nmea.ErrMalformedSentence)
		})
	}
	assert.Zero(t, d.Pending())

	_, err := d.Feed(&nmea.RawSentence{Tag: "!AIVDM", Total: 1 << 40, Index: 1, SeqID: "3", Channel: "A", Payload: "15NBBQP"})
	assert.ErrorIs(t, err, nmea.ErrMalformedSentence)
	assert.Zero(t, d.Pending())
}

func TestRunStopsOnHandlerError(t *testing.T) {
	stop := errors.New("stop")
	err := New().Run(context.Background(), strings.NewReader(positionLine+"\n"+positionLine), func(*Decoded) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New().Run(ctx, strings.NewReader(positionLine), func(*Decoded) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTracePayload(t *testing.T) {
	d := New()

	msg, tr, err := d.TracePayload("15MgK45P3@G?fl0E`JbR0OwT0@MS", 0)
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, uint8(1), msg.MsgType())
	assert.Equal(t, uint8(1), tr.MsgType)
	assert.Equal(t, 168, tr.BitLen)
	assert.True(t, tr.Matched)
	assert.NotEmpty(t, tr.Extractor)

	_, tr, err = d.TracePayload("w0000000", 0)
	require.NoError(t, err)
	assert.True(t, tr.Unsupported)

	_, tr, err = d.TracePayload("15X", 0)
	assert.ErrorIs(t, err, ais.ErrMalformedArmor)
	assert.Nil(t, tr)
}
