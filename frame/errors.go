package frame

import "errors"

var (
	// ErrChecksumMismatch indicates the LRC trailing a received frame did not
	// match the LRC computed over the frame's own bytes.
	ErrChecksumMismatch = errors.New("frame: LRC checksum mismatch")

	// ErrIncompletePart indicates a part ended (ETX seen) before an LRC byte
	// could be read.
	ErrIncompletePart = errors.New("frame: part truncated before checksum byte")

	// ErrEmptyPayload indicates Build was asked to wrap a zero-length payload.
	ErrEmptyPayload = errors.New("frame: payload must not be empty")

	// ErrUnexpectedByte indicates a byte was observed outside of any expected
	// framing context (not ACK, NAK, ENQ, or STX while idle).
	ErrUnexpectedByte = errors.New("frame: unexpected byte outside frame context")
)
