package port

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tarm/serial"
)

// SerialPort is the default Port implementation, backed by a real serial
// line via github.com/tarm/serial.
type SerialPort struct {
	mu     sync.Mutex
	cfg    Config
	dev    *serial.Port
	reader *bufio.Reader
}

var _ Port = (*SerialPort)(nil)

// NewSerialPort creates a SerialPort for cfg. The link is not opened until
// Open is called.
func NewSerialPort(cfg Config) *SerialPort {
	return &SerialPort{cfg: cfg.withDefaults()}
}

func (p *SerialPort) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dev != nil {
		return nil
	}

	if p.cfg.Name == "" {
		return errors.New("port: serial device name is required")
	}

	sc := &serial.Config{
		Name:        p.cfg.Name,
		Baud:        p.cfg.Baud,
		Size:        p.cfg.DataBits,
		StopBits:    serial.StopBits(p.cfg.StopBits),
		Parity:      toTarmParity(p.cfg.Parity),
		ReadTimeout: p.cfg.ReadTimeout,
	}

	dev, err := serial.OpenPort(sc)
	if err != nil {
		return fmt.Errorf("port: open %s: %w", p.cfg.Name, err)
	}

	p.dev = dev
	p.reader = bufio.NewReader(dev)

	return nil
}

func (p *SerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.dev == nil {
		return nil
	}

	err := p.dev.Close()
	p.dev = nil
	p.reader = nil

	return err
}

func (p *SerialPort) ReadByte() (byte, error) {
	p.mu.Lock()
	reader := p.reader
	p.mu.Unlock()

	if reader == nil {
		return 0, errors.New("port: not open")
	}

	return reader.ReadByte()
}

func (p *SerialPort) Write(buf []byte) (int, error) {
	p.mu.Lock()
	dev := p.dev
	p.mu.Unlock()

	if dev == nil {
		return 0, errors.New("port: not open")
	}

	written := 0
	for written < len(buf) {
		n, err := dev.Write(buf[written:])
		written += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

func (p *SerialPort) DiscardInput() error {
	p.mu.Lock()
	dev := p.dev
	reader := p.reader
	p.mu.Unlock()

	if dev == nil {
		return errors.New("port: not open")
	}

	if err := dev.Flush(); err != nil {
		return err
	}

	// Drain whatever bufio has already buffered, non-blocking best-effort:
	// a very short read timeout would require reconfiguring the device, so
	// we instead rely on Flush plus resetting the bufio.Reader state.
	for reader.Buffered() > 0 {
		if _, err := reader.ReadByte(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
	}

	return nil
}

func toTarmParity(p Parity) serial.Parity {
	switch p {
	case ParityOdd:
		return serial.ParityOdd
	case ParityEven:
		return serial.ParityEven
	default:
		return serial.ParityNone
	}
}
