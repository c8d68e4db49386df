package hl7v2

import (
	"bytes"
	"testing"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"normal text", "normal text"},
		{"pipe|char", "pipe\\F\\char"},
		{"caret^char", "caret\\S\\char"},
		{"tilde~char", "tilde\\R\\char"},
		{"backslash\\char", "backslash\\E\\char"},
		{"amp&char", "amp\\T\\char"},
		{"all|special^chars~here\\and&there", "all\\F\\special\\S\\chars\\R\\here\\E\\and\\T\\there"},
	}

	for _, tt := range tests {
		if result := Escape(tt.input, DefaultDelimiters); result != tt.expected {
			t.Errorf("Escape(%q) = %q, want %q", tt.input, result, tt.expected)
		}
		if back := Unescape(tt.expected, DefaultDelimiters); back != tt.input {
			t.Errorf("Unescape(%q) = %q, want %q", tt.expected, back, tt.input)
		}
	}
}

func TestUnescape_UnknownAndUnterminated(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"line\\.br\\break", "line\\.br\\break"},
		{"hex \\X0D\\ kept", "hex \\X0D\\ kept"},
		{"dangling \\F", "dangling \\F"},
		{"\\\\", "\\\\"},
	}
	for _, tt := range tests {
		if got := Unescape(tt.input, DefaultDelimiters); got != tt.expected {
			t.Errorf("Unescape(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestUnframe(t *testing.T) {
	payload := []byte("MSH|^~\\&|App\rPID|1||X")

	framed := FrameMessage(payload)
	if framed[0] != MLLPStartBlock || framed[len(framed)-2] != MLLPEndBlock || framed[len(framed)-1] != MLLPCarriageReturn {
		t.Fatalf("unexpected framing bytes: %v", framed)
	}
	if got := Unframe(framed); !bytes.Equal(got, payload) {
		t.Errorf("expected payload %q, got %q", payload, got)
	}

	if got := Unframe(payload); !bytes.Equal(got, payload) {
		t.Errorf("expected unframed input unchanged, got %q", got)
	}

	noEnd := append([]byte{MLLPStartBlock}, payload...)
	if got := Unframe(noEnd); !bytes.Equal(got, payload) {
		t.Errorf("expected payload when end block missing, got %q", got)
	}
}

func TestUnframe_LeadingWhitespace(t *testing.T) {
	payload := []byte("MSH|^~\\&|App\rPID|1||X")
	data := append([]byte("\r\n  "), FrameMessage(payload)...)

	if got := Unframe(data); !bytes.Equal(got, payload) {
		t.Errorf("expected payload %q, got %q", payload, got)
	}
}

func TestUnframe_StrayStartByte(t *testing.T) {
	// A VT byte inside an unframed message is data, not a frame start.
	raw := []byte("MSH|^~\\&|App|Fac|||20240115||ADT^A01|C1|P|2.5\rPID|1||P001||Doe\x0bX^John\r")

	got := Unframe(raw)
	if !bytes.Equal(got, raw) {
		t.Fatalf("expected unframed input unchanged, got %q", got)
	}
	msg, err := Parse(got)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id := msg.GetSegment("PID").GetComponent(3, 1); id != "P001" {
		t.Errorf("expected PID-3.1 'P001', got %q", id)
	}
}
