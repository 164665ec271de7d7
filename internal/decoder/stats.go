package decoder

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats counts what a Decoder has seen.
type Stats struct {
	Sentences int            `json:"sentences"`
	Messages  int            `json:"messages"`
	ByType    map[uint8]int  `json:"by_type"`
	Errors    map[string]int `json:"errors"`
}

func newStats() Stats {
	return Stats{
		ByType: make(map[uint8]int),
		Errors: make(map[string]int),
	}
}

// ErrorCount returns the total number of errors of all kinds.
func (s Stats) ErrorCount() int {
	n := 0
	for _, c := range s.Errors {
		n += c
	}
	return n
}

// Types returns the message types seen, in ascending order.
func (s Stats) Types() []uint8 {
	types := make([]uint8, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Stats returns a snapshot of the counters.
func (d *Decoder) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := newStats()
	out.Sentences = d.stats.Sentences
	out.Messages = d.stats.Messages
	for k, v := range d.stats.ByType {
		out.ByType[k] = v
	}
	for k, v := range d.stats.Errors {
		out.Errors[k] = v
	}
	return out
}

// Metrics are the decoder's Prometheus collectors.
type Metrics struct {
	sentences prometheus.Counter
	messages  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	pending   prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sentences: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ais",
			Name:      "sentences_total",
			Help:      "Sentences fed to the decoder.",
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ais",
			Name:      "messages_total",
			Help:      "Messages decoded, by message type.",
		}, []string{"msg_type"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ais",
			Name:      "errors_total",
			Help:      "Per-message failures, by kind.",
		}, []string{"kind"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ais",
			Name:      "fragment_buffers",
			Help:      "Incomplete multi-fragment messages being buffered.",
		}),
	}
	reg.MustRegister(m.sentences, m.messages, m.errors, m.pending)
	return m
}
