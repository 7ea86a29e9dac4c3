package message

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the decoded '2' status message: a phase/result-code pair with
// optional trailing info (e.g. an assigned transaction id).
type Status struct {
	Phase      byte
	ResultCode string
	Info       string
}

// DecodeStatus decodes a '2' status payload: messageId(1) · phase(1) ·
// resultCode(4) · info(variable).
func DecodeStatus(payload []byte) (Status, error) {
	if len(payload) < 6 {
		return Status{}, ErrTooShort
	}

	return Status{
		Phase:      payload[1],
		ResultCode: string(payload[2:6]),
		Info:       trimTrailingSpace(payload[6:]),
	}, nil
}

// minResultLength is the length below which a transaction-result payload is
// rejected outright. A short-layout payload also carries its flags byte at
// offset 137, so the decoder accepts it only from 138 bytes (143 for the
// extended layout).
const minResultLength = 137

// TransactionResult is the decoded '4' (short) or '5' (extended) result.
type TransactionResult struct {
	Extended               bool
	TransactionType        byte
	PaymentMethod          byte
	CardType               byte
	TransactionUsage       byte
	SettlementID           string
	MaskedCardNumber       string
	AID                    string
	TransactionCertificate string
	TVR                    string
	TSI                    string
	TransactionID          string
	FilingCode             string
	Timestamp              time.Time
	AmountMinor            int64
	Currency               string
	ReaderSerialNumber     string
	PrintPayeeReceipt      bool
	Flags                  byte
	PayerReceipt           string
	PayeeReceipt           string
}

// receiptSeparator (RS, 0x1E) separates the payer and payee receipt text in
// a transaction result's trailing bytes.
const receiptSeparator = 0x1E

// DecodeTransactionResult decodes a '4' or '5' payload per the transaction
// result layout table. Payloads shorter than minResultLength are invalid
// and rejected without partial parsing.
func DecodeTransactionResult(payload []byte) (TransactionResult, error) {
	if len(payload) < minResultLength {
		return TransactionResult{}, ErrTooShort
	}

	extended := payload[0] == IDResultExtended
	amountWidth := 7
	if extended {
		amountWidth = 12
	}

	amountEnd := 117 + amountWidth
	currencyEnd := amountEnd + 3
	serialEnd := currencyEnd + 9

	if len(payload) < serialEnd+2 {
		return TransactionResult{}, ErrTooShort
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(string(payload[117:amountEnd])), 10, 64)
	if err != nil {
		return TransactionResult{}, fmt.Errorf("message: parse result amount: %w", err)
	}

	ts, err := decodeTimestamp(payload[105:117])
	if err != nil {
		return TransactionResult{}, fmt.Errorf("message: parse result timestamp: %w", err)
	}

	res := TransactionResult{
		Extended:               extended,
		TransactionType:        payload[1],
		PaymentMethod:          payload[2],
		CardType:               payload[3],
		TransactionUsage:       payload[4],
		SettlementID:           trimTrailingSpace(payload[5:7]),
		MaskedCardNumber:       trimTrailingSpace(payload[7:26]),
		AID:                    trimTrailingSpace(payload[26:58]),
		TransactionCertificate: trimTrailingSpace(payload[58:74]),
		TVR:                    trimTrailingSpace(payload[74:84]),
		TSI:                    trimTrailingSpace(payload[84:88]),
		TransactionID:          trimTrailingSpace(payload[88:93]),
		FilingCode:             trimTrailingSpace(payload[93:105]),
		Timestamp:              ts,
		AmountMinor:            amount,
		Currency:               trimTrailingSpace(payload[amountEnd:currencyEnd]),
		ReaderSerialNumber:     trimTrailingSpace(payload[currencyEnd:serialEnd]),
		PrintPayeeReceipt:      payload[serialEnd] != '0',
		Flags:                  payload[serialEnd+1],
	}

	if len(payload) > serialEnd+2 {
		tail := payload[serialEnd+2:]
		if i := indexByte(tail, receiptSeparator); i >= 0 {
			res.PayerReceipt = string(tail[:i])
			res.PayeeReceipt = string(tail[i+1:])
		} else {
			res.PayerReceipt = string(tail)
		}
	}

	return res, nil
}

// AbortResult is the decoded '7' abort-transaction result.
type AbortResult struct {
	Aborted    bool
	ResultCode string
}

// DecodeAbortResult decodes a '7' payload: messageId(1) · resultCode(3).
func DecodeAbortResult(payload []byte) (AbortResult, error) {
	if len(payload) < 4 {
		return AbortResult{}, ErrTooShort
	}

	code := string(payload[1:4])

	return AbortResult{
		Aborted:    code == ResultAborted,
		ResultCode: code,
	}, nil
}

// DeviceStatus is the decoded 'S' device-status message.
type DeviceStatus struct {
	ResultCode     string
	Reader         byte
	Environment    byte
	MessagePresent bool
	Data           string
}

// DecodeDeviceStatus decodes an 'S' payload: S·resultCode(4)·reader(1)·
// environment(1)·messagePresent(1)·data(variable).
func DecodeDeviceStatus(payload []byte) (DeviceStatus, error) {
	if len(payload) < 8 {
		return DeviceStatus{}, ErrTooShort
	}

	return DeviceStatus{
		ResultCode:     string(payload[1:5]),
		Reader:         payload[5],
		Environment:    payload[6],
		MessagePresent: payload[7] != '0',
		Data:           trimTrailingSpace(payload[8:]),
	}, nil
}

// CustomerBonusResult is the decoded 'D' customer-bonus result.
type CustomerBonusResult struct {
	Status         byte
	CustomerNumber string
	MemberClass    string
}

// DecodeCustomerBonusResult decodes a 'D' payload: messageId(1) · status(1)
// · customerNumber(20) · memberClass(2).
func DecodeCustomerBonusResult(payload []byte) (CustomerBonusResult, error) {
	if len(payload) < 24 {
		return CustomerBonusResult{}, ErrTooShort
	}

	return CustomerBonusResult{
		Status:         payload[1],
		CustomerNumber: trimTrailingSpace(payload[2:22]),
		MemberClass:    trimTrailingSpace(payload[22:24]),
	}, nil
}

// DecodeVerifySignatureText decodes an 'F' payload's free-text body.
func DecodeVerifySignatureText(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", ErrTooShort
	}

	return trimTrailingSpace(payload[1:]), nil
}

// IsWakeup reports whether payload is a 'W' wakeup message (no fields).
func IsWakeup(payload []byte) bool {
	return len(payload) >= 1 && payload[0] == IDWakeup
}
