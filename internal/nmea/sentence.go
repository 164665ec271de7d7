// Package nmea splits AIS-carrying NMEA sentences into their fields.
//
// A sentence looks like
//
//	!AIVDM,2,1,3,B,55?MbV02;H;s<HtKR20EHE:0@T4@Dn2222222216L961O5Gf0NSQEp6ClRp8,0*1C,2023-06-01 12:00:00
//
// The checksum is ignored. A trailing field after the fill bits is kept as the
// receiver timestamp. Lines may also carry an NMEA 4.0 tag block
// ("\c:1685620800*5C\!AIVDM,...") or a free-form prefix before the "!";
// the tag block's "c" field, or the prefix, then stands in for the timestamp.
package nmea

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedSentence is returned when a line cannot be split into the
// fields a fragment needs.
var ErrMalformedSentence = errors.New("malformed sentence")

// MinFields is the minimum number of comma-separated fields in a sentence.
const MinFields = 6

// MaxFragments is the largest fragment count or number a sentence can carry;
// both fields are a single digit.
const MaxFragments = 9

// RawSentence is one received line.
type RawSentence struct {
	Tag       string `json:"tag"`                 // Talker and formatter, e.g. "!AIVDM".
	Total     int    `json:"total"`               // Fragments in the logical message.
	Index     int    `json:"index"`               // 1-based fragment number.
	SeqID     string `json:"seq_id,omitempty"`    // Shared by all fragments of one message.
	Channel   string `json:"channel,omitempty"`   // Radio channel, usually "A" or "B".
	Payload   string `json:"payload"`             // Armored payload chunk.
	FillBits  int    `json:"fill_bits"`           // Trailing pad bits on the last chunk.
	Timestamp string `json:"timestamp,omitempty"` // Receiver timestamp, if appended.
}

// Parse splits a single line into a RawSentence.
func Parse(line string) (*RawSentence, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty line", ErrMalformedSentence)
	}

	var prefix string
	if strings.HasPrefix(line, "\\") {
		block, rest, ok := strings.Cut(line[1:], "\\")
		if !ok {
			return nil, fmt.Errorf("%w: unterminated tag block", ErrMalformedSentence)
		}
		prefix = tagTime(block)
		line = rest
	} else if i := strings.IndexAny(line, "!$"); i > 0 {
		prefix = strings.TrimSpace(line[:i])
		line = line[i:]
	}

	s, err := FromFields(strings.Split(line, ","))
	if err != nil {
		return nil, err
	}
	if s.Timestamp == "" {
		s.Timestamp = prefix
	}
	return s, nil
}

// tagTime returns the "c" (unix time) parameter of a tag block.
func tagTime(block string) string {
	block, _, _ = strings.Cut(block, "*")
	for _, param := range strings.Split(block, ",") {
		if v, ok := strings.CutPrefix(param, "c:"); ok {
			return v
		}
	}
	return ""
}

// FromFields builds a RawSentence from fields an upstream reader has already
// split on commas.
func FromFields(fields []string) (*RawSentence, error) {
	if len(fields) < MinFields {
		return nil, fmt.Errorf("%w: %d fields, need at least %d", ErrMalformedSentence, len(fields), MinFields)
	}

	s := &RawSentence{
		Tag:     strings.TrimSpace(fields[0]),
		SeqID:   strings.TrimSpace(fields[3]),
		Channel: strings.TrimSpace(fields[4]),
		Payload: strings.TrimSpace(fields[5]),
	}
	if s.Payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedSentence)
	}

	var err error
	if s.Total, err = count(fields[1], "fragment count"); err != nil {
		return nil, err
	}
	if s.Index, err = count(fields[2], "fragment number"); err != nil {
		return nil, err
	}
	if s.Index > s.Total {
		return nil, fmt.Errorf("%w: fragment %d of %d", ErrMalformedSentence, s.Index, s.Total)
	}

	if len(fields) > 6 {
		// "0*5C": fill bits, then the checksum.
		fill, _, _ := strings.Cut(fields[6], "*")
		fill = strings.TrimSpace(fill)
		if fill != "" {
			n, err := strconv.Atoi(fill)
			if err != nil {
				return nil, fmt.Errorf("%w: fill bits %q", ErrMalformedSentence, fill)
			}
			s.FillBits = n
		}
	}
	if len(fields) > 7 {
		s.Timestamp = strings.TrimSpace(fields[len(fields)-1])
	}

	return s, nil
}

func count(field, what string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil || n < 1 || n > MaxFragments {
		return 0, fmt.Errorf("%w: %s %q", ErrMalformedSentence, what, field)
	}
	return n, nil
}

// Multipart reports whether the sentence is one fragment of a longer message.
func (s *RawSentence) Multipart() bool {
	return s.Total > 1
}

// String reassembles the sentence without a checksum.
func (s *RawSentence) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s,%d,%d,%s,%s,%s,%d", s.Tag, s.Total, s.Index, s.SeqID, s.Channel, s.Payload, s.FillBits)
	if s.Timestamp != "" {
		sb.WriteByte(',')
		sb.WriteString(s.Timestamp)
	}
	return sb.String()
}
