package port

import (
	"golang.org/x/text/encoding/charmap"
)

// TextCodec encodes and decodes the single-byte character set used for
// display text and other free-text wire fields. The wire default is
// ISO-8859-15; if the runtime's charmap tables somehow can't encode a rune
// (e.g. a rare currency glyph only ISO-8859-15 carries, on a build without
// it), it falls back to ISO-8859-1.
type TextCodec struct {
	primary  *charmap.Charmap
	fallback *charmap.Charmap
}

// NewTextCodec returns the default ISO-8859-15-with-ISO-8859-1-fallback codec.
func NewTextCodec() *TextCodec {
	return &TextCodec{
		primary:  charmap.ISO8859_15,
		fallback: charmap.ISO8859_1,
	}
}

// Encode converts a UTF-8 string to its single-byte wire representation.
func (c *TextCodec) Encode(s string) ([]byte, error) {
	out, err := c.primary.NewEncoder().Bytes([]byte(s))
	if err == nil {
		return out, nil
	}

	out, err = c.fallback.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Decode converts single-byte wire bytes to a UTF-8 string.
func (c *TextCodec) Decode(b []byte) (string, error) {
	out, err := c.primary.NewDecoder().Bytes(b)
	if err == nil {
		return string(out), nil
	}

	out, err = c.fallback.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}

	return string(out), nil
}
