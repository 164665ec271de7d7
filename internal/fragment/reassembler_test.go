package fragment

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ais_parser/internal/ais"
	"ais_parser/internal/nmea"
)

const (
	voyagePart1 = "55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp8"
	voyagePart2 = "88888888880"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func frag(total, index int, seq, channel, payload string, fill int) *nmea.RawSentence {
	return &nmea.RawSentence{
		Tag:      "!AIVDM",
		Total:    total,
		Index:    index,
		SeqID:    seq,
		Channel:  channel,
		Payload:  payload,
		FillBits: fill,
	}
}

func TestSingleFragmentPassThrough(t *testing.T) {
	r := New()
	p, err := r.Add(frag(1, 1, "", "A", "15NBBQP000ssN`R?<b0ot00<0<9", 0))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "15NBBQP000ssN`R?<b0ot00<0<9", p.Armored)
	assert.Equal(t, 1, p.Fragments)
	assert.Zero(t, r.Pending())
}

func TestTwoFragmentsEitherOrder(t *testing.T) {
	tests := []struct {
		name  string
		order []int
	}{
		{"forward", []int{1, 2}},
		{"reverse", []int{2, 1}},
	}

	parts := []*nmea.RawSentence{
		frag(2, 1, "3", "A", voyagePart1, 0),
		frag(2, 2, "3", "A", voyagePart2, 2),
	}
	parts[1].Timestamp = "2023-06-01 12:00:00"

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()

			first, err := r.Add(parts[tt.order[0]-1])
			require.NoError(t, err)
			assert.Nil(t, first)
			assert.Equal(t, 1, r.Pending())

			p, err := r.Add(parts[tt.order[1]-1])
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, voyagePart1+voyagePart2, p.Armored)
			assert.Equal(t, 2, p.FillBits)
			assert.Equal(t, "2023-06-01 12:00:00", p.Timestamp)
			assert.Equal(t, 2, p.Fragments)
			assert.Zero(t, r.Pending())
		})
	}
}

func TestKeyIncludesChannel(t *testing.T) {
	r := New()

	p, err := r.Add(frag(2, 1, "1", "A", "AAAA", 0))
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = r.Add(frag(2, 2, "1", "B", "BBBB", 0))
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 2, r.Pending())

	p, err = r.Add(frag(2, 2, "1", "A", "CCCC", 0))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "AAAACCCC", p.Armored)
	assert.Equal(t, 1, r.Pending())
}

func TestConflictStartsFreshBuffer(t *testing.T) {
	tests := []struct {
		name   string
		second *nmea.RawSentence
	}{
		{"different total", frag(3, 2, "5", "A", "XXXX", 0)},
		{"duplicate index", frag(2, 1, "5", "A", "YYYY", 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			_, err := r.Add(frag(2, 1, "5", "A", "AAAA", 0))
			require.NoError(t, err)

			p, err := r.Add(tt.second)
			assert.Nil(t, p)
			require.Error(t, err)
			assert.ErrorIs(t, err, ais.ErrIncompleteMessage)

			var ie *ais.IncompleteError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, "conflict", ie.Reason)
			assert.Equal(t, 2, ie.Total)
			assert.Equal(t, 1, ie.Received)
			assert.Equal(t, 1, r.Pending())
		})
	}
}

func TestConflictThenComplete(t *testing.T) {
	r := New()
	_, err := r.Add(frag(2, 1, "5", "A", "OLD1", 0))
	require.NoError(t, err)

	_, err = r.Add(frag(2, 1, "5", "A", "NEW1", 0))
	assert.ErrorIs(t, err, ais.ErrIncompleteMessage)

	p, err := r.Add(frag(2, 2, "5", "A", "NEW2", 4))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "NEW1NEW2", p.Armored)
	assert.Equal(t, 4, p.FillBits)
}

func TestSweepEvictsStale(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := New(WithHorizon(30*time.Second), WithClock(clock.Now))

	_, err := r.Add(frag(2, 1, "1", "A", "AAAA", 0))
	require.NoError(t, err)
	clock.Advance(20 * time.Second)
	_, err = r.Add(frag(3, 1, "2", "B", "BBBB", 0))
	require.NoError(t, err)

	assert.Empty(t, r.Sweep(clock.Now()))

	clock.Advance(15 * time.Second)
	errs := r.Sweep(clock.Now())
	require.Len(t, errs, 1)
	var ie *ais.IncompleteError
	require.True(t, errors.As(errs[0], &ie))
	assert.Equal(t, "stale", ie.Reason)
	assert.Equal(t, "1", ie.SeqID)
	assert.Equal(t, "A", ie.Channel)
	assert.Equal(t, 1, r.Pending())

	errs = r.Flush()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ais.ErrIncompleteMessage)
	assert.Zero(t, r.Pending())
}

func TestStaleBufferReplacedOnAdd(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	r := New(WithHorizon(time.Second), WithClock(clock.Now))

	_, err := r.Add(frag(2, 1, "1", "A", "AAAA", 0))
	require.NoError(t, err)
	clock.Advance(2 * time.Second)

	p, err := r.Add(frag(2, 2, "1", "A", "BBBB", 0))
	assert.Nil(t, p)
	var ie *ais.IncompleteError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "stale", ie.Reason)
	assert.Equal(t, 1, r.Pending())
}

func TestAddRejectsBadIndex(t *testing.T) {
	tests := []struct {
		name         string
		total, index int
	}{
		{"index past total", 2, 3},
		{"zero index", 2, 0},
		{"total too large", nmea.MaxFragments + 1, 1},
		{"huge total", 1 << 62, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			_, err := r.Add(frag(tt.total, tt.index, "1", "A", "AAAA", 0))
			assert.ErrorIs(t, err, nmea.ErrMalformedSentence)
			assert.Zero(t, r.Pending())
		})
	}
}

func TestReassemblyOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(2, 6).Draw(t, "total")
		chunks := make([]string, total)
		want := ""
		for i := range chunks {
			chunks[i] = rapid.StringMatching("[0-9A-W`-w]{1,10}").Draw(t, fmt.Sprintf("chunk%d", i))
			want += chunks[i]
		}
		fill := rapid.IntRange(0, 5).Draw(t, "fill")
		order := rapid.Permutation(indices(total)).Draw(t, "order")

		r := New()
		var got *Payload
		for n, idx := range order {
			f := 0
			if idx == total {
				f = fill
			}
			p, err := r.Add(frag(total, idx, "9", "B", chunks[idx-1], f))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n < total-1 && p != nil {
				t.Fatalf("payload emitted after %d of %d fragments", n+1, total)
			}
			got = p
		}
		if got == nil {
			t.Fatal("no payload after all fragments")
		}
		if got.Armored != want || got.FillBits != fill {
			t.Fatalf("got %q/%d, want %q/%d", got.Armored, got.FillBits, want, fill)
		}
		if r.Pending() != 0 {
			t.Fatalf("%d buffers left", r.Pending())
		}
	})
}

func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestConcurrentChannels(t *testing.T) {
	r := New()
	channels := []string{"A", "B", "C", "D"}

	var wg sync.WaitGroup
	results := make([][]string, len(channels))
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, ch string) {
			defer wg.Done()
			for seq := 0; seq < 100; seq++ {
				id := fmt.Sprint(seq % 10)
				if _, err := r.Add(frag(2, 2, id, ch, ch+"2", 0)); err != nil {
					t.Error(err)
					return
				}
				p, err := r.Add(frag(2, 1, id, ch, ch+"1", 0))
				if err != nil {
					t.Error(err)
					return
				}
				if p != nil {
					results[i] = append(results[i], p.Armored)
				}
			}
		}(i, ch)
	}
	wg.Wait()

	for i, ch := range channels {
		require.Len(t, results[i], 100)
		for _, got := range results[i] {
			assert.Equal(t, ch+"1"+ch+"2", got)
		}
	}
	assert.Zero(t, r.Pending())
}
