// Package port defines the byte-level link between the engine and a payment
// terminal, plus a concrete adapter over a real serial line.
package port

import "time"

// Port is the byte-stream link the frame codec and reader loop operate over.
// Implementations need not be safe for concurrent use by more than one
// reader and one writer at a time — the engine already serializes access
// so that only the reader loop reads and only the sender writes.
type Port interface {
	// Open establishes the underlying link. Open on an already-open Port
	// is a no-op returning nil.
	Open() error
	// Close releases the underlying link. Safe to call more than once.
	Close() error
	// ReadByte reads a single byte, blocking until one arrives or the
	// port's configured read timeout elapses.
	ReadByte() (byte, error)
	// Write writes buf in full, returning the first error encountered.
	Write(buf []byte) (int, error)
	// DiscardInput drops any bytes currently buffered for reading, so a
	// fresh send doesn't get confused by stale terminal output.
	DiscardInput() error
}

// Config configures a concrete Port. Zero values are replaced by the
// defaults documented on each field when passed to NewSerialPort.
type Config struct {
	// Name is the OS device name, e.g. "/dev/ttyUSB0" or "COM3".
	Name string
	// Baud is the link speed. Default 19200.
	Baud int
	// DataBits is the number of data bits per character. Default 8.
	DataBits byte
	// Parity is the parity mode. Default ParityNone.
	Parity Parity
	// StopBits is the number of stop bits. Default 1.
	StopBits byte
	// ReadTimeout bounds a single ReadByte call. Default 3s.
	ReadTimeout time.Duration
}

// Parity mirrors the parity settings a real serial line supports.
type Parity byte

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

const (
	DefaultBaud        = 19200
	DefaultDataBits    = 8
	DefaultStopBits    = 1
	DefaultReadTimeout = 3 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.DataBits == 0 {
		c.DataBits = DefaultDataBits
	}
	if c.StopBits == 0 {
		c.StopBits = DefaultStopBits
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	return c
}
