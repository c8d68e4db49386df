package hl7v2

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyMessage is returned when the input holds no segments at all.
	ErrEmptyMessage = errors.New("hl7v2: message is empty")

	// ErrMissingHeader is returned when the first segment is not MSH.
	ErrMissingHeader = errors.New("hl7v2: first segment must be MSH")

	// ErrMalformedSegment is returned for segment lines that cannot be split.
	ErrMalformedSegment = errors.New("hl7v2: malformed segment")
)

// Delimiters holds the separator characters declared in MSH-1 and MSH-2.
type Delimiters struct {
	Field        byte
	Component    byte
	Repetition   byte
	Escape       byte
	SubComponent byte
}

// DefaultDelimiters are the separators used by virtually every sender: |^~\&
var DefaultDelimiters = Delimiters{
	Field:        '|',
	Component:    '^',
	Repetition:   '~',
	Escape:       '\\',
	SubComponent: '&',
}

// Message represents a parsed HL7v2 message.
type Message struct {
	Type       string    // MSH-9 message type (e.g. "ADT^A01")
	ControlID  string    // MSH-10
	Version    string    // MSH-12 (e.g. "2.5.1")
	Timestamp  time.Time // MSH-7
	SendingApp string    // MSH-3
	SendingFac string    // MSH-4
	Delimiters Delimiters
	Segments   []Segment
}

// Segment represents a single HL7v2 segment.
type Segment struct {
	Name   string // e.g. "MSH", "PID", "PV1"
	Fields []Field
}

// Field represents a field which can have components, sub-components and
// repetitions. Components and Repeats hold decoded text; sub-component
// separators inside a component are kept as-is.
type Field struct {
	Value      string     // raw field text, all repetitions, escapes untouched
	Components []string   // components of the first repetition
	Repeats    [][]string // every repetition, each split into components

	raw    [][]string // undecoded components, needed to split sub-components
	delims Delimiters
}

// Parse parses raw HL7v2 message bytes into a structured Message.
// It supports \r, \n, and \r\n line endings for segment separation and
// ignores a leading UTF-8 byte-order mark. The separators are taken from the
// MSH segment itself.
func Parse(raw []byte) (*Message, error) {
	text := strings.TrimPrefix(string(raw), "\ufeff")

	text = strings.ReplaceAll(text, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")

	var lines []string
	for _, line := range strings.Split(text, "\r") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyMessage
	}

	if !strings.HasPrefix(lines[0], "MSH") || len(lines[0]) < 4 {
		return nil, fmt.Errorf("%w, got %q", ErrMissingHeader, lines[0][:min(3, len(lines[0]))])
	}

	msg := &Message{Delimiters: readDelimiters(lines[0])}
	for i, line := range lines {
		seg, err := parseSegment(line, msg.Delimiters)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		msg.Segments = append(msg.Segments, seg)
	}

	msg.extractMSHFields()
	return msg, nil
}

// readDelimiters reads MSH-1 and MSH-2. Characters missing from a short
// MSH-2 fall back to the defaults.
func readDelimiters(msh string) Delimiters {
	d := DefaultDelimiters
	d.Field = msh[3]

	enc := msh[4:]
	if i := strings.IndexByte(enc, d.Field); i >= 0 {
		enc = enc[:i]
	}
	targets := []*byte{&d.Component, &d.Repetition, &d.Escape, &d.SubComponent}
	for i := 0; i < len(enc) && i < len(targets); i++ {
		*targets[i] = enc[i]
	}
	return d
}

// parseSegment parses a single segment line into a Segment struct.
func parseSegment(line string, d Delimiters) (Segment, error) {
	sep := string(d.Field)

	if strings.HasPrefix(line, "MSH") {
		// MSH-1 is the field separator itself and MSH-2 holds the encoding
		// characters verbatim, so neither is split.
		seg := Segment{Name: "MSH"}
		parts := strings.Split(line[4:], sep)
		seg.Fields = append(seg.Fields, Field{Value: sep, Components: []string{sep}, delims: d})
		seg.Fields = append(seg.Fields, Field{Value: parts[0], Components: []string{parts[0]}, delims: d})
		for _, part := range parts[1:] {
			seg.Fields = append(seg.Fields, parseField(part, d))
		}
		return seg, nil
	}

	parts := strings.Split(line, sep)
	if !validSegmentName(parts[0]) {
		return Segment{}, fmt.Errorf("%w: invalid segment name %q", ErrMalformedSegment, truncate(parts[0], 10))
	}

	seg := Segment{Name: parts[0]}
	for _, f := range parts[1:] {
		seg.Fields = append(seg.Fields, parseField(f, d))
	}
	return seg, nil
}

// validSegmentName reports whether s is a three character segment id made of
// upper-case letters and digits, starting with a letter.
func validSegmentName(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// parseField parses a single field, handling components and repetitions.
func parseField(raw string, d Delimiters) Field {
	f := Field{Value: raw, delims: d}

	for _, rep := range strings.Split(raw, string(d.Repetition)) {
		comps := strings.Split(rep, string(d.Component))
		decoded := make([]string, len(comps))
		for i, c := range comps {
			decoded[i] = Unescape(c, d)
		}
		f.raw = append(f.raw, comps)
		f.Repeats = append(f.Repeats, decoded)
	}
	f.Components = f.Repeats[0]
	return f
}

// extractMSHFields copies commonly used MSH fields into the Message struct.
func (m *Message) extractMSHFields() {
	msh := m.GetSegment("MSH")
	if msh == nil {
		return
	}

	m.SendingApp = msh.GetField(3)
	m.SendingFac = msh.GetField(4)

	if ts := msh.GetField(7); ts != "" {
		if t, err := parseHL7Timestamp(ts); err == nil {
			m.Timestamp = t
		}
	}

	m.Type = msh.GetField(9)
	m.ControlID = msh.GetField(10)
	m.Version = msh.GetField(12)
}

// parseHL7Timestamp parses an HL7v2 timestamp string (YYYYMMDDHHmmss or YYYYMMDD).
func parseHL7Timestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case len(s) >= 14:
		return time.Parse("20060102150405", s[:14])
	case len(s) >= 12:
		return time.Parse("200601021504", s[:12])
	case len(s) >= 8:
		return time.Parse("20060102", s[:8])
	default:
		return time.Time{}, fmt.Errorf("hl7v2: unrecognized timestamp format: %q", s)
	}
}

// GetSegment returns the first segment with the given name, or nil if not found.
func (m *Message) GetSegment(name string) *Segment {
	if m == nil {
		return nil
	}
	for i := range m.Segments {
		if m.Segments[i].Name == name {
			return &m.Segments[i]
		}
	}
	return nil
}

// GetSegments returns all segments with the given name.
func (m *Message) GetSegments(name string) []Segment {
	var result []Segment
	for _, seg := range m.Segments {
		if seg.Name == name {
			result = append(result, seg)
		}
	}
	return result
}

// FieldAt returns the field at the given 1-based index, or an empty Field.
// Field 1 of MSH is the field separator, field 1 of other segments is the
// first value after the segment name.
func (s *Segment) FieldAt(index int) Field {
	idx := index - 1
	if s == nil || idx < 0 || idx >= len(s.Fields) {
		return Field{}
	}
	return s.Fields[idx]
}

// GetField returns the raw value of a field by 1-based index.
func (s *Segment) GetField(index int) string {
	return s.FieldAt(index).Value
}

// GetComponent returns a decoded component by 1-based field and component indices.
func (s *Segment) GetComponent(fieldIdx, compIdx int) string {
	f := s.FieldAt(fieldIdx)
	return f.Component(compIdx)
}

// Empty reports whether the field carries no text.
func (f Field) Empty() bool {
	return f.Value == ""
}

// Component returns the decoded 1-based component of the first repetition.
func (f Field) Component(index int) string {
	ci := index - 1
	if ci < 0 || ci >= len(f.Components) {
		return ""
	}
	return f.Components[ci]
}

// SubComponent returns the decoded 1-based sub-component of a component of
// the first repetition.
func (f Field) SubComponent(compIdx, subIdx int) string {
	ci, si := compIdx-1, subIdx-1
	if len(f.raw) == 0 || ci < 0 || ci >= len(f.raw[0]) || si < 0 {
		return ""
	}
	subs := strings.Split(f.raw[0][ci], string(f.delims.SubComponent))
	if si >= len(subs) {
		return ""
	}
	return Unescape(subs[si], f.delims)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
