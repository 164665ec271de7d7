// Package fragment reassembles multi-sentence AIS messages.
//
// Fragments are buffered by (sequence id, channel) until every index from 1
// to the declared total has arrived, then their armored chunks are joined in
// index order. Buffers live in one shard per channel, each with its own lock,
// so feeds for different channels never contend.
package fragment

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ais_parser/internal/ais"
	"ais_parser/internal/nmea"
)

// DefaultHorizon is how long an incomplete buffer may wait for its missing
// fragments before it is considered stale.
const DefaultHorizon = time.Minute

// Payload is a complete armored message ready for decoding.
type Payload struct {
	Armored   string // Concatenated payload chunks.
	FillBits  int    // Fill bits of the final fragment.
	Timestamp string // Receiver timestamp of the final fragment.
	SeqID     string
	Channel   string
	Fragments int
}

// Option configures a Reassembler.
type Option func(*Reassembler)

// WithHorizon sets the staleness horizon.
func WithHorizon(d time.Duration) Option {
	return func(r *Reassembler) {
		if d > 0 {
			r.horizon = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reassembler) {
		if now != nil {
			r.now = now
		}
	}
}

type buffer struct {
	total     int
	received  int
	chunks    []string
	fillBits  int
	timestamp string
	started   time.Time
}

func (b *buffer) incomplete(seqID, channel, reason string) *ais.IncompleteError {
	return &ais.IncompleteError{
		SeqID:    seqID,
		Channel:  channel,
		Total:    b.total,
		Received: b.received,
		Reason:   reason,
	}
}

type shard struct {
	mu      sync.Mutex
	buffers map[string]*buffer // by sequence id
}

// Reassembler holds the fragment buffers. It is safe for concurrent use.
type Reassembler struct {
	mu      sync.RWMutex
	shards  map[string]*shard // by channel
	horizon time.Duration
	now     func() time.Time
}

// New creates an empty Reassembler.
func New(opts ...Option) *Reassembler {
	r := &Reassembler{
		shards:  make(map[string]*shard),
		horizon: DefaultHorizon,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Horizon returns the configured staleness horizon.
func (r *Reassembler) Horizon() time.Duration {
	return r.horizon
}

func (r *Reassembler) shard(channel string) *shard {
	r.mu.RLock()
	sh, ok := r.shards[channel]
	r.mu.RUnlock()
	if ok {
		return sh
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if sh, ok = r.shards[channel]; !ok {
		sh = &shard{buffers: make(map[string]*buffer)}
		r.shards[channel] = sh
	}
	return sh
}

// Add consumes one sentence. Single-fragment sentences pass straight through.
// For multi-fragment messages it returns a Payload once the last missing
// fragment arrives, and nil before that.
//
// A non-nil error reports a previous buffer for the same key that had to be
// abandoned, because it went stale or because this fragment conflicts with
// it. The fragment itself is still buffered in a fresh buffer.
func (r *Reassembler) Add(s *nmea.RawSentence) (*Payload, error) {
	if !s.Multipart() {
		return &Payload{
			Armored:   s.Payload,
			FillBits:  s.FillBits,
			Timestamp: s.Timestamp,
			SeqID:     s.SeqID,
			Channel:   s.Channel,
			Fragments: 1,
		}, nil
	}

	if s.Total > nmea.MaxFragments || s.Index < 1 || s.Index > s.Total || s.Payload == "" {
		return nil, fmt.Errorf("%w: fragment %d of %d", nmea.ErrMalformedSentence, s.Index, s.Total)
	}

	now := r.now()
	sh := r.shard(s.Channel)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var report error
	b, ok := sh.buffers[s.SeqID]
	if ok {
		switch {
		case now.Sub(b.started) > r.horizon:
			report = b.incomplete(s.SeqID, s.Channel, "stale")
			ok = false
		case b.total != s.Total || b.chunks[s.Index-1] != "":
			report = b.incomplete(s.SeqID, s.Channel, "conflict")
			ok = false
		}
	}
	if !ok {
		b = &buffer{
			total:   s.Total,
			chunks:  make([]string, s.Total),
			started: now,
		}
		sh.buffers[s.SeqID] = b
	}

	b.chunks[s.Index-1] = s.Payload
	b.received++
	if s.Index == s.Total {
		b.fillBits = s.FillBits
		b.timestamp = s.Timestamp
	}

	if b.received < b.total {
		return nil, report
	}

	delete(sh.buffers, s.SeqID)
	return &Payload{
		Armored:   strings.Join(b.chunks, ""),
		FillBits:  b.fillBits,
		Timestamp: b.timestamp,
		SeqID:     s.SeqID,
		Channel:   s.Channel,
		Fragments: b.total,
	}, report
}

// Sweep evicts every buffer older than the horizon at now and reports each
// one as an incomplete message.
func (r *Reassembler) Sweep(now time.Time) []error {
	return r.evict("stale", func(b *buffer) bool {
		return now.Sub(b.started) > r.horizon
	})
}

// Flush evicts every pending buffer, e.g. at end of input.
func (r *Reassembler) Flush() []error {
	return r.evict("flush", func(*buffer) bool { return true })
}

func (r *Reassembler) evict(reason string, match func(*buffer) bool) []error {
	r.mu.RLock()
	channels := make([]string, 0, len(r.shards))
	for ch := range r.shards {
		channels = append(channels, ch)
	}
	r.mu.RUnlock()
	sort.Strings(channels)

	var errs []error
	for _, ch := range channels {
		sh := r.shard(ch)
		sh.mu.Lock()
		ids := make([]string, 0, len(sh.buffers))
		for id, b := range sh.buffers {
			if match(b) {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			errs = append(errs, sh.buffers[id].incomplete(id, ch, reason))
			delete(sh.buffers, id)
		}
		sh.mu.Unlock()
	}
	return errs
}

// Pending returns the number of incomplete buffers.
func (r *Reassembler) Pending() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, sh := range r.shards {
		sh.mu.Lock()
		n += len(sh.buffers)
		sh.mu.Unlock()
	}
	return n
}
