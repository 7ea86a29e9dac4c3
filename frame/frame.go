package frame

// Control bytes exchanged on the wire between the ECR host and the payment
// terminal (see EXTERNAL INTERFACES: frame format).
const (
	STX byte = 0x02
	ETX byte = 0x03
	ETB byte = 0x17
	ACK byte = 0x06
	NAK byte = 0x15
	ENQ byte = 0x05
)

// Kind classifies a single byte observed outside of an in-progress frame.
type Kind int

const (
	// KindOther is any byte that isn't a recognized single-byte control
	// character and doesn't start a framed payload.
	KindOther Kind = iota
	KindACK
	KindNAK
	KindENQ
	// KindSTX marks the start of a framed payload; the caller should switch
	// to reading a part via ReadPart.
	KindSTX
)

// Classify identifies a byte read while idle (not in the middle of a frame).
func Classify(b byte) Kind {
	switch b {
	case ACK:
		return KindACK
	case NAK:
		return KindNAK
	case ENQ:
		return KindENQ
	case STX:
		return KindSTX
	default:
		return KindOther
	}
}

// LRC computes the XOR-reduce checksum over data.
func LRC(data []byte) byte {
	var lrc byte
	for _, b := range data {
		lrc ^= b
	}
	return lrc
}

// Build wraps a single-part payload as STX·payload·ETX·LRC, ready to write to
// the wire. The host side never needs to emit multi-part frames.
func Build(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	out := make([]byte, 0, len(payload)+3)
	out = append(out, STX)
	out = append(out, payload...)
	out = append(out, ETX)
	out = append(out, LRC(out[1:]))

	return out, nil
}

// ByteReader reads a single byte from the wire, blocking until one is
// available or an error (including timeout) occurs. It is satisfied by
// port.Port.ReadByte and by test doubles.
type ByteReader func() (byte, error)

// ReadPart reads one framed part after STX has already been consumed by the
// caller: body bytes up to ETX, then the trailing LRC byte, verifying the
// checksum. It returns the part's body (with any trailing ETB continuation
// marker stripped) and whether this part is the final one in the logical
// message (final == true means no ETB was present).
//
// On checksum mismatch, ErrChecksumMismatch is returned; the caller is
// expected to NAK and resynchronize by discarding bytes until the next STX.
func ReadPart(read ByteReader) (body []byte, final bool, err error) {
	// Bytes from the first byte after STX through ETX (inclusive) feed the LRC.
	var lrcInput []byte

	for {
		b, err := read()
		if err != nil {
			return nil, false, err
		}

		lrcInput = append(lrcInput, b)

		if b == ETX {
			break
		}
	}

	lrcByte, err := read()
	if err != nil {
		return nil, false, ErrIncompletePart
	}

	if computed := LRC(lrcInput); computed != lrcByte {
		return nil, false, ErrChecksumMismatch
	}

	// lrcInput is body ∥ ETX; strip the trailing ETX to get the raw body.
	body = lrcInput[:len(lrcInput)-1]

	final = true
	if n := len(body); n > 0 && body[n-1] == ETB {
		body = body[:n-1]
		final = false
	}

	return body, final, nil
}

// Reassembler accumulates the parts of a multi-part inbound message into a
// single logical payload. It holds no wire-level state; ReadPart drives the
// byte-level protocol, Reassembler only concatenates.
type Reassembler struct {
	parts [][]byte
}

// NewReassembler creates an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// AddPart appends a part body, in the order it was received.
func (r *Reassembler) AddPart(body []byte) {
	r.parts = append(r.parts, body)
}

// Payload concatenates all added parts into the logical message payload.
func (r *Reassembler) Payload() []byte {
	total := 0
	for _, p := range r.parts {
		total += len(p)
	}

	out := make([]byte, 0, total)
	for _, p := range r.parts {
		out = append(out, p...)
	}

	return out
}

// Reset discards all accumulated parts, ready for the next logical message.
func (r *Reassembler) Reset() {
	r.parts = r.parts[:0]
}
