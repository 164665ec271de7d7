package ais

import (
	"errors"
	"fmt"
)

// Error kinds reported by the codec. Every failure is scoped to one message;
// none of them is fatal to a stream of sentences.
var (
	// ErrMalformedArmor is returned when a payload contains a character
	// outside the armored alphabet or declares an impossible fill-bit count.
	ErrMalformedArmor = errors.New("malformed armored payload")

	// ErrTruncatedMessage is returned when a field range lies beyond the end
	// of the bitstream.
	ErrTruncatedMessage = errors.New("truncated message")

	// ErrIncompleteMessage is returned when a multi-fragment message is
	// abandoned, conflicts with a newer fragment set, or goes stale.
	ErrIncompleteMessage = errors.New("incomplete message")
)

// ArmorError describes the offending character of a malformed payload.
type ArmorError struct {
	Pos  int  // Byte offset in the payload, -1 for fill-bit errors.
	Char byte // The offending character.
	Fill int  // Declared fill bits (fill-bit errors only).
}

func (e *ArmorError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("%v: invalid fill bit count %d", ErrMalformedArmor, e.Fill)
	}
	return fmt.Sprintf("%v: invalid character %q at offset %d", ErrMalformedArmor, e.Char, e.Pos)
}

func (e *ArmorError) Is(target error) bool { return target == ErrMalformedArmor }

// TruncatedError records which range could not be satisfied.
type TruncatedError struct {
	Start, End int // Requested half-open bit range.
	Len        int // Actual bitstream length.
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%v: need bits [%d,%d), have %d", ErrTruncatedMessage, e.Start, e.End, e.Len)
}

func (e *TruncatedError) Is(target error) bool { return target == ErrTruncatedMessage }

// IncompleteError identifies a fragment set that never completed.
type IncompleteError struct {
	SeqID    string
	Channel  string
	Total    int
	Received int
	Reason   string // "stale", "conflict" or "flush".
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%v: seq %q channel %q has %d/%d fragments (%s)",
		ErrIncompleteMessage, e.SeqID, e.Channel, e.Received, e.Total, e.Reason)
}

func (e *IncompleteError) Is(target error) bool { return target == ErrIncompleteMessage }
