package hl7v2

import "bytes"

const (
	// MLLPStartBlock is the MLLP start-of-message byte (VT / vertical tab).
	MLLPStartBlock = 0x0B

	// MLLPEndBlock is the MLLP end-of-message byte (FS / file separator).
	MLLPEndBlock = 0x1C

	// MLLPCarriageReturn is the trailing CR after the end block.
	MLLPCarriageReturn = 0x0D
)

// FrameMessage wraps raw HL7v2 bytes in MLLP framing:
//
//	<0x0B> + message + <0x1C><0x0D>
func FrameMessage(data []byte) []byte {
	frame := make([]byte, 0, len(data)+3)
	frame = append(frame, MLLPStartBlock)
	frame = append(frame, data...)
	frame = append(frame, MLLPEndBlock, MLLPCarriageReturn)
	return frame
}

// Unframe returns the payload of an MLLP frame at the start of data. Files
// captured from an MLLP listener often keep the framing bytes. Data is only
// treated as framed when its first non-whitespace byte is the start block;
// anything else is returned unchanged. A frame whose end block is missing is
// taken to run to the end of data.
func Unframe(data []byte) []byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != MLLPStartBlock {
		return data
	}
	payload := trimmed[1:]
	if end := bytes.IndexByte(payload, MLLPEndBlock); end >= 0 {
		payload = payload[:end]
	}
	return payload
}
