// Package registry dispatches decoded AIS bitstreams to the extractor
// registered for their message type.
package registry

import (
	"sort"
	"sync"

	"ais_parser/internal/ais"
)

// TypeBits is the width of the message type field at the start of every
// message.
const TypeBits = 6

// Message is the common interface for all decoded messages.
type Message interface {
	Kind() string   // e.g., "position_report", "static_voyage"
	MsgType() uint8 // The 6-bit message type.
	UserID() uint32 // The sender's MMSI.
}

// Header holds the fields every AIS message starts with.
type Header struct {
	Type   uint8  `json:"msg_type"`
	Repeat uint8  `json:"repeat"`
	MMSI   uint32 `json:"mmsi"`
}

func (h Header) MsgType() uint8 { return h.Type }
func (h Header) UserID() uint32 { return h.MMSI }

// ReadHeader reads the type, repeat indicator and MMSI.
func ReadHeader(r *ais.FieldReader) Header {
	return Header{
		Type:   uint8(r.Uint(0, 6)),
		Repeat: uint8(r.Uint(6, 8)),
		MMSI:   uint32(r.Uint(8, 38)),
	}
}

// Unsupported carries a message whose type has no extractor. The bits are
// kept so the traffic is not lost.
type Unsupported struct {
	Type uint8          `json:"msg_type"`
	MMSI uint32         `json:"mmsi,omitempty"`
	Bits *ais.BitStream `json:"-"`
	Raw  string         `json:"raw_bits"`
}

func (u *Unsupported) Kind() string   { return "unsupported" }
func (u *Unsupported) MsgType() uint8 { return u.Type }
func (u *Unsupported) UserID() uint32 { return u.MMSI }

// Extractor is implemented by each message type decoder.
type Extractor interface {
	// Name returns the extractor's unique identifier.
	Name() string

	// Types returns the message types this extractor handles.
	Types() []uint8

	// MinBits is the shortest bitstream the extractor can decode.
	MinBits() int

	// Extract decodes the fields of bs. The length has already been
	// checked against MinBits.
	Extract(bs *ais.BitStream) (Message, error)
}

// Registry maps message types to extractors.
type Registry struct {
	mu     sync.RWMutex
	byType map[uint8]Extractor
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{
		byType: make(map[uint8]Extractor),
	}
}

// Global default registry.
var defaultRegistry = New()

// Default returns the global registry instance.
func Default() *Registry {
	return defaultRegistry
}

// Register adds an extractor to the default registry.
// Called during init() in each extractor package.
func Register(e Extractor) {
	defaultRegistry.Register(e)
}

// Register adds an extractor to the registry. A later registration for the
// same type replaces the earlier one.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range e.Types() {
		r.byType[t] = e
	}
}

// Lookup returns the extractor for a message type.
func (r *Registry) Lookup(msgType uint8) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byType[msgType]
	return e, ok
}

// Dispatch reads the message type and hands bs to the matching extractor.
// Unknown types yield an *Unsupported message, not an error.
func (r *Registry) Dispatch(bs *ais.BitStream) (Message, error) {
	msg, _, err := r.dispatch(bs, false)
	return msg, err
}

func (r *Registry) dispatch(bs *ais.BitStream, trace bool) (Message, *Trace, error) {
	var tr *Trace
	if trace {
		tr = &Trace{BitLen: bs.Len()}
	}

	t, err := bs.Uint(0, TypeBits)
	if err != nil {
		if tr != nil {
			tr.Err = err
		}
		return nil, tr, err
	}
	msgType := uint8(t)
	if tr != nil {
		tr.MsgType = msgType
	}

	e, ok := r.Lookup(msgType)
	if !ok {
		u := &Unsupported{Type: msgType, Bits: bs, Raw: bs.String()}
		if mmsi, err := bs.Uint(8, 38); err == nil {
			u.MMSI = uint32(mmsi)
		}
		if tr != nil {
			tr.Unsupported = true
		}
		return u, tr, nil
	}

	if tr != nil {
		tr.Extractor = e.Name()
		tr.MinBits = e.MinBits()
	}
	if bs.Len() < e.MinBits() {
		err := &ais.TruncatedError{Start: 0, End: e.MinBits(), Len: bs.Len()}
		if tr != nil {
			tr.Err = err
		}
		return nil, tr, err
	}

	msg, err := e.Extract(bs)
	if tr != nil {
		tr.Err = err
		tr.Matched = err == nil
	}
	return msg, tr, err
}

// RegisteredTypes returns all message types that have an extractor.
func (r *Registry) RegisteredTypes() []uint8 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]uint8, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ExtractorCount returns the number of distinct registered extractors.
// Extractors registered for several types are only counted once.
func (r *Registry) ExtractorCount() int {
	return len(r.AllExtractors())
}

// AllExtractors returns the registered extractors ordered by name.
func (r *Registry) AllExtractors() []Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var result []Extractor
	for _, e := range r.byType {
		if !seen[e.Name()] {
			seen[e.Name()] = true
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}
