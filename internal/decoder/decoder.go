// Package decoder wires the codec together: sentence, fragment reassembly,
// payload armor and message dispatch.
package decoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ais_parser/internal/ais"
	_ "ais_parser/internal/extractors" // register all extractors via init()
	"ais_parser/internal/fragment"
	"ais_parser/internal/nmea"
	"ais_parser/internal/registry"
)

// Decoded is one complete logical message.
type Decoded struct {
	Message   registry.Message
	Armored   string // Reassembled payload.
	FillBits  int
	Timestamp string // Receiver timestamp of the final fragment.
	Channel   string
	Fragments int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.log = l
		}
	}
}

// WithRegistry replaces the default extractor registry.
func WithRegistry(r *registry.Registry) Option {
	return func(d *Decoder) { d.reg = r }
}

// WithReassembler replaces the default fragment reassembler.
func WithReassembler(r *fragment.Reassembler) Option {
	return func(d *Decoder) { d.frags = r }
}

// WithMetrics enables Prometheus counters.
func WithMetrics(m *Metrics) Option {
	return func(d *Decoder) { d.metrics = m }
}

// WithClock replaces time.Now for Sweep.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) {
		if now != nil {
			d.now = now
		}
	}
}

// WithSweepInterval sets how often Run evicts stale fragments. It defaults
// to the reassembler's horizon.
func WithSweepInterval(every time.Duration) Option {
	return func(d *Decoder) { d.sweepEvery = every }
}

// Decoder turns sentences into messages. It is safe for concurrent use.
type Decoder struct {
	reg     *registry.Registry
	frags   *fragment.Reassembler
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time

	sweepEvery time.Duration

	mu    sync.Mutex
	stats Stats
}

// New creates a Decoder using the default registry.
func New(opts ...Option) *Decoder {
	d := &Decoder{
		reg:   registry.Default(),
		log:   zap.NewNop(),
		now:   time.Now,
		stats: newStats(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.frags == nil {
		d.frags = fragment.New(fragment.WithClock(d.now))
	}
	return d
}

// DecodePayload decodes a complete armored payload. It is a pure function of
// its arguments and does not touch the fragment buffers or the counters.
func (d *Decoder) DecodePayload(payload string, fillBits int) (registry.Message, error) {
	bs, err := ais.Dearmor(payload, fillBits)
	if err != nil {
		return nil, err
	}
	return d.reg.Dispatch(bs)
}

// TracePayload is DecodePayload that also reports how the registry
// dispatched the payload. The trace is nil only if the armor is invalid.
func (d *Decoder) TracePayload(payload string, fillBits int) (registry.Message, *registry.Trace, error) {
	bs, err := ais.Dearmor(payload, fillBits)
	if err != nil {
		return nil, nil, err
	}
	return d.reg.DispatchWithTrace(bs)
}

// Feed consumes one sentence. It returns nil, nil while a multi-fragment
// message is still incomplete.
func (d *Decoder) Feed(s *nmea.RawSentence) (*Decoded, error) {
	d.sentence()
	return d.feed(s)
}

func (d *Decoder) feed(s *nmea.RawSentence) (*Decoded, error) {
	p, err := d.frags.Add(s)
	d.observePending()
	if err != nil {
		d.fail(err, s.String())
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	msg, err := d.DecodePayload(p.Armored, p.FillBits)
	if err != nil {
		d.fail(err, p.Armored)
		return nil, fmt.Errorf("decode %q: %w", p.Armored, err)
	}

	d.count(func(st *Stats) {
		st.Messages++
		st.ByType[msg.MsgType()]++
	})
	if d.metrics != nil {
		d.metrics.messages.WithLabelValues(fmt.Sprint(msg.MsgType())).Inc()
	}

	return &Decoded{
		Message:   msg,
		Armored:   p.Armored,
		FillBits:  p.FillBits,
		Timestamp: p.Timestamp,
		Channel:   p.Channel,
		Fragments: p.Fragments,
	}, nil
}

// FeedLine parses and consumes one line.
func (d *Decoder) FeedLine(line string) (*Decoded, error) {
	d.sentence()
	s, err := nmea.Parse(line)
	if err != nil {
		d.fail(err, line)
		return nil, err
	}
	return d.feed(s)
}

// Sweep evicts fragment buffers that have outlived the staleness horizon.
func (d *Decoder) Sweep() []error {
	errs := d.frags.Sweep(d.now())
	d.evicted(errs)
	return errs
}

// Flush evicts all pending fragment buffers.
func (d *Decoder) Flush() []error {
	errs := d.frags.Flush()
	d.evicted(errs)
	return errs
}

func (d *Decoder) evicted(errs []error) {
	for _, err := range errs {
		d.log.Warn("dropping incomplete message", zap.Error(err))
		d.record(err)
	}
	d.observePending()
}

// Pending returns the number of incomplete multi-fragment messages.
func (d *Decoder) Pending() int {
	return d.frags.Pending()
}

// Handler receives each decoded message from Run.
type Handler func(*Decoded) error

// MaxLineLength is the longest input line Run accepts. Longer lines are
// counted as malformed sentences and skipped.
const MaxLineLength = 1 << 20

// Run feeds every line of r to the decoder, sweeping stale fragments as it
// goes and flushing at the end of input. Per-line failures are counted and
// logged; only read errors, handler errors and cancellation stop the run.
func (d *Decoder) Run(ctx context.Context, r io.Reader, handle Handler) error {
	br := bufio.NewReaderSize(r, MaxLineLength)

	lastSweep := d.now()
	every := d.sweepEvery
	if every <= 0 {
		every = d.frags.Horizon()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, readErr := br.ReadSlice('\n')
		if errors.Is(readErr, bufio.ErrBufferFull) {
			head := string(raw[:64])
			for errors.Is(readErr, bufio.ErrBufferFull) {
				_, readErr = br.ReadSlice('\n')
			}
			d.sentence()
			d.fail(fmt.Errorf("%w: line longer than %d bytes", nmea.ErrMalformedSentence, MaxLineLength), head)
		} else if line := strings.TrimSpace(string(raw)); line != "" {
			msg, err := d.FeedLine(line)
			if err == nil && msg != nil {
				if err := handle(msg); err != nil {
					return err
				}
			}
		}

		if now := d.now(); now.Sub(lastSweep) > every {
			d.Sweep()
			lastSweep = now
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read input: %w", readErr)
		}
	}
	d.Flush()
	return nil
}

func (d *Decoder) fail(err error, input string) {
	d.log.Debug("message failed", zap.String("input", input), zap.Error(err))
	d.record(err)
}

func (d *Decoder) record(err error) {
	kind := ErrorKind(err)
	d.count(func(st *Stats) { st.Errors[kind]++ })
	if d.metrics != nil {
		d.metrics.errors.WithLabelValues(kind).Inc()
	}
}

func (d *Decoder) observePending() {
	if d.metrics != nil {
		d.metrics.pending.Set(float64(d.frags.Pending()))
	}
}

func (d *Decoder) sentence() {
	d.count(func(st *Stats) { st.Sentences++ })
	if d.metrics != nil {
		d.metrics.sentences.Inc()
	}
}

func (d *Decoder) count(fn func(*Stats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

// Error kinds used for counting.
const (
	KindMalformedSentence = "malformed_sentence"
	KindMalformedArmor    = "malformed_armor"
	KindTruncated         = "truncated"
	KindIncomplete        = "incomplete"
	KindOther             = "other"
)

// ErrorKind classifies an error returned by the decoder.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, nmea.ErrMalformedSentence):
		return KindMalformedSentence
	case errors.Is(err, ais.ErrMalformedArmor):
		return KindMalformedArmor
	case errors.Is(err, ais.ErrTruncatedMessage):
		return KindTruncated
	case errors.Is(err, ais.ErrIncompleteMessage):
		return KindIncomplete
	default:
		return KindOther
	}
}
