package message

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paytermlink/ecrterm/port"
)

// textCodec converts the wire's single-byte charset (display text, free-
// text status/device-status/signature fields) to and from UTF-8.
var textCodec = port.NewTextCodec()

// padLeftZero left-pads s with '0' to exactly width bytes. Returns
// ErrFieldTooLong, without truncating, if s is already wider than width.
func padLeftZero(s string, width int) ([]byte, error) {
	if len(s) > width {
		return nil, fmt.Errorf("%w: %q wider than %d", ErrFieldTooLong, s, width)
	}

	out := make([]byte, width)
	for i := range out {
		out[i] = '0'
	}
	copy(out[width-len(s):], s)

	return out, nil
}

// padRightSpace right-pads (or truncates) b with spaces to exactly width
// bytes, truncating if b is longer.
func padRightSpace(b []byte, width int) []byte {
	out := make([]byte, width)
	for i := range out {
		out[i] = ' '
	}
	copy(out, b)

	return out
}

// encodeText converts s from UTF-8 to the wire's single-byte charset. If s
// holds a rune neither charmap can represent, the whole of s is passed
// through as raw UTF-8 bytes instead of returning an error.
func encodeText(s string) []byte {
	if s == "" {
		return nil
	}

	b, err := textCodec.Encode(s)
	if err != nil {
		return []byte(s)
	}

	return b
}

// decodeText converts wire bytes in the single-byte charset to UTF-8. Bytes
// the charmap can't represent are passed through as-is.
func decodeText(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	s, err := textCodec.Decode(b)
	if err != nil {
		return string(b)
	}

	return s
}

// digitsOnly zero-pads a non-negative integer amount, in the currency's
// minor unit, to width decimal digits.
func digitsOnly(amountMinor int64, width int) ([]byte, error) {
	if amountMinor < 0 {
		return nil, ErrInvalidAmount
	}

	return padLeftZero(strconv.FormatInt(amountMinor, 10), width)
}

// boolDigit encodes a boolean as the ASCII digit '1' or '0'.
func boolDigit(b bool) byte {
	if b {
		return '1'
	}
	return '0'
}

// encodeTimestamp formats t as yyMMddHHmmss, or 12 zero bytes for a zero
// time.Time (used when no original timestamp applies).
func encodeTimestamp(t time.Time) []byte {
	if t.IsZero() {
		return bytes12Zero()
	}
	return []byte(t.Format("060102150405"))
}

func bytes12Zero() []byte {
	out := make([]byte, 12)
	for i := range out {
		out[i] = '0'
	}
	return out
}

func decodeTimestamp(b []byte) (time.Time, error) {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "000000000000" {
		return time.Time{}, nil
	}
	return time.Parse("060102150405", s)
}

// trimTrailingSpace trims ASCII spaces from the right, the way fixed-width
// text fields on this wire are padded, then decodes the remaining bytes out
// of the wire's single-byte charset.
func trimTrailingSpace(b []byte) string {
	i := len(b)
	for i > 0 && b[i-1] == ' ' {
		i--
	}
	return decodeText(b[:i])
}

// encodeAuthCode writes code (up to 6 digits) into a 7-byte field terminated
// by 0x1C, zero-filling any remaining bytes.
func encodeAuthCode(code string) ([]byte, error) {
	if len(code) > 6 {
		return nil, fmt.Errorf("%w: auth code %q longer than 6 digits", ErrFieldTooLong, code)
	}

	out := make([]byte, 7)
	n := copy(out, code)
	out[n] = authCodeTerminator
	// remaining bytes (if any) stay zero

	return out, nil
}

func decodeAuthCode(b []byte) string {
	if i := indexByte(b, authCodeTerminator); i >= 0 {
		return string(b[:i])
	}
	return trimTrailingSpace(b)
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
