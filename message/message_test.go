package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTransactionRequest_ExactLength(t *testing.T) {
	require := require.New(t)

	req := NewTransactionRequest(TypePurchase, 1234)
	req.Serial = "SN123"
	req.EcrNumber = "1"

	wire, err := EncodeTransactionRequest(req)
	require.NoError(err)
	require.Len(wire, 80)
	require.Equal(byte('y'), wire[0])
	require.Equal(byte('1'), wire[1])
	require.Equal("000000001234", string(wire[2:14]))
	require.Equal("00000", string(wire[26:31]))
}

func TestEncodeTransactionRequest_RejectsNegativeAmount(t *testing.T) {
	req := NewTransactionRequest(TypePurchase, -1)
	_, err := EncodeTransactionRequest(req)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestEncodeDisplayText_TruncatesAndDowngradesFont(t *testing.T) {
	assert := assert.New(t)

	longLine := "this line is definitely longer than twenty one chars"
	wire := EncodeDisplayText(longLine, "short", true)

	assert.Equal(byte(IDDisplayText), wire[0])
	assert.Equal(byte(DisplaySmall), wire[1])
	assert.Len(wire[2:2+displayLineWidth], displayLineWidth)
}

func TestEncodeDisplayText_EncodesNonASCIIToWireCharset(t *testing.T) {
	require := require.New(t)

	wire := EncodeDisplayText("café €5", "", false)

	line1 := wire[2 : 2+displayLineWidth]
	decoded := trimTrailingSpace(line1)
	require.Equal("café €5", decoded)
}

func TestDecodeStatus_DecodesNonASCIIInfo(t *testing.T) {
	require := require.New(t)

	info := encodeText("Müller")
	payload := append([]byte{IDStatus, 'A'}, []byte(ResultBonusCardFound)...)
	payload = append(payload, info...)

	status, err := DecodeStatus(payload)
	require.NoError(err)
	require.Equal("Müller", status.Info)
}

func TestDecodeStatus(t *testing.T) {
	require := require.New(t)

	payload := append([]byte{IDStatus, 'A'}, []byte(ResultBonusCardFound)...)
	payload = append(payload, []byte("00042")...)

	status, err := DecodeStatus(payload)
	require.NoError(err)
	require.Equal(byte('A'), status.Phase)
	require.Equal(ResultBonusCardFound, status.ResultCode)
	require.Equal("00042", status.Info)
}

func TestDecodeTransactionResult_ShortLayout(t *testing.T) {
	require := require.New(t)

	payload := make([]byte, minResultLength+1)
	for i := range payload {
		payload[i] = ' '
	}
	payload[0] = IDResultShort
	payload[1] = '1'
	copy(payload[88:93], "00042")
	copy(payload[105:117], time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC).Format("060102150405"))
	copy(payload[117:124], "0001234")
	copy(payload[124:127], "978")
	copy(payload[127:136], "SN123")
	payload[136] = '1'
	payload[137] = '0'

	res, err := DecodeTransactionResult(payload)
	require.NoError(err)
	require.False(res.Extended)
	require.Equal("00042", res.TransactionID)
	require.Equal(int64(1234), res.AmountMinor)
	require.Equal("978", res.Currency)
	require.True(res.PrintPayeeReceipt)
}

func TestDecodeTransactionResult_TooShortIsRejected(t *testing.T) {
	_, err := DecodeTransactionResult(make([]byte, 50))
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestDecodeAbortResult(t *testing.T) {
	assert := assert.New(t)

	res, err := DecodeAbortResult([]byte{IDAbortResult, '7', '2', '1'})
	assert.NoError(err)
	assert.True(res.Aborted)

	res, err = DecodeAbortResult([]byte{IDAbortResult, '0', '0', '0'})
	assert.NoError(err)
	assert.False(res.Aborted)
}

func TestDecodeCustomerBonusResult(t *testing.T) {
	require := require.New(t)

	payload := make([]byte, 24)
	payload[0] = IDCustomerBonus
	payload[1] = '1'
	copy(payload[2:22], padRightSpace([]byte("CUST123"), 20))
	copy(payload[22:24], padRightSpace([]byte("A1"), 2))

	res, err := DecodeCustomerBonusResult(payload)
	require.NoError(err)
	require.Equal("CUST123", res.CustomerNumber)
	require.Equal("A1", res.MemberClass)
}
