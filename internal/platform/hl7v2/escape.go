package hl7v2

import "strings"

// Unescape decodes the HL7 escape sequences in s:
//
//	\F\ = field separator
//	\S\ = component separator
//	\R\ = repetition separator
//	\E\ = escape character
//	\T\ = subcomponent separator
//
// Any other sequence (formatting, hex, charset switches) is kept verbatim.
func Unescape(s string, d Delimiters) string {
	if strings.IndexByte(s, d.Escape) < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != d.Escape {
			b.WriteByte(s[i])
			continue
		}
		end := strings.IndexByte(s[i+1:], d.Escape)
		if end < 0 {
			b.WriteString(s[i:])
			break
		}
		code := s[i+1 : i+1+end]
		switch code {
		case "F":
			b.WriteByte(d.Field)
		case "S":
			b.WriteByte(d.Component)
		case "R":
			b.WriteByte(d.Repetition)
		case "E":
			b.WriteByte(d.Escape)
		case "T":
			b.WriteByte(d.SubComponent)
		default:
			b.WriteString(s[i : i+end+2])
		}
		i += end + 1
	}
	return b.String()
}

// Escape encodes the delimiter characters in s so it can be placed inside a
// single component. The escape character is handled first to avoid
// double-escaping.
func Escape(s string, d Delimiters) string {
	e := string(d.Escape)
	s = strings.ReplaceAll(s, e, e+"E"+e)
	s = strings.ReplaceAll(s, string(d.Field), e+"F"+e)
	s = strings.ReplaceAll(s, string(d.Component), e+"S"+e)
	s = strings.ReplaceAll(s, string(d.Repetition), e+"R"+e)
	s = strings.ReplaceAll(s, string(d.SubComponent), e+"T"+e)
	return s
}
