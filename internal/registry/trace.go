// Package registry provides tracing for dispatch debugging.
package registry

import "ais_parser/internal/ais"

// Trace records how a bitstream was dispatched.
type Trace struct {
	MsgType     uint8  // Type read from bits [0,6).
	BitLen      int    // Length of the bitstream.
	Extractor   string // Name of the matched extractor, if any.
	MinBits     int    // The matched extractor's minimum length.
	Unsupported bool   // No extractor is registered for the type.
	Matched     bool   // The extractor decoded the message.
	Err         error  // Failure, if any.
}

// DispatchWithTrace dispatches bs and also reports what the registry did
// with it. The trace is returned even when dispatch fails.
func (r *Registry) DispatchWithTrace(bs *ais.BitStream) (Message, *Trace, error) {
	return r.dispatch(bs, true)
}
