package frame

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRC(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(byte(0), LRC(nil))
	assert.Equal(byte('A'), LRC([]byte{'A'}))
	assert.Equal(byte(0), LRC([]byte{0xFF, 0xFF}))
}

func TestBuild_RoundTrip(t *testing.T) {
	require := require.New(t)

	payload := []byte("2A0000hello")
	wire, err := Build(payload)
	require.NoError(err)
	require.Equal(STX, wire[0])
	require.Equal(ETX, wire[len(wire)-2])

	reader := sliceReader(wire[1:])
	body, final, err := ReadPart(reader)
	require.NoError(err)
	require.True(final)
	require.Equal(payload, body)
}

func TestBuild_RejectsEmptyPayload(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestReadPart_DetectsChecksumMismatch(t *testing.T) {
	payload := []byte("status")
	wire, err := Build(payload)
	require.NoError(t, err)

	// Corrupt the LRC byte.
	wire[len(wire)-1] ^= 0xFF

	reader := sliceReader(wire[1:])
	_, _, err = ReadPart(reader)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestReadPart_MultiPart(t *testing.T) {
	require := require.New(t)

	// Part 1: "AB" + ETB, part 2 (final): "CD"
	part1Body := append([]byte("AB"), ETB)
	part1 := append(append([]byte{}, part1Body...), ETX)
	part1 = append(part1, LRC(part1))

	part2Body := []byte("CD")
	part2 := append(append([]byte{}, part2Body...), ETX)
	part2 = append(part2, LRC(part2))

	reasm := NewReassembler()

	body, final, err := ReadPart(sliceReader(part1))
	require.NoError(err)
	require.False(final)
	reasm.AddPart(body)

	body, final, err = ReadPart(sliceReader(part2))
	require.NoError(err)
	require.True(final)
	reasm.AddPart(body)

	require.Equal([]byte("ABCD"), reasm.Payload())
}

func TestClassify(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(KindACK, Classify(ACK))
	assert.Equal(KindNAK, Classify(NAK))
	assert.Equal(KindENQ, Classify(ENQ))
	assert.Equal(KindSTX, Classify(STX))
	assert.Equal(KindOther, Classify('x'))
}

// sliceReader adapts a byte slice to the ByteReader function type used by
// ReadPart, returning io.EOF once exhausted.
func sliceReader(data []byte) ByteReader {
	i := 0
	return func() (byte, error) {
		if i >= len(data) {
			return 0, io.EOF
		}
		b := data[i]
		i++
		return b, nil
	}
}
