package message

import "time"

// TransactionRequest is the 80-byte fixed-layout payment/refund/reversal/
// retrieval request sent to the terminal.
type TransactionRequest struct {
	Type           byte
	AmountMinor    int64
	TransactionID  string // 5 chars; placeholder "00000" until assigned
	ForceOnline    bool
	Manual         bool
	BonusHandled   bool
	AuthCode       string // up to 6 digits
	Timestamp      time.Time
	Serial         string // up to 9 chars
	Currency       string // 3-digit numeric currency code, default "978"
	AccountingDate time.Time
	EcrNumber      string // up to 3 chars
}

// NewTransactionRequest returns a TransactionRequest with the placeholder
// transaction ID and default currency already set.
func NewTransactionRequest(txType byte, amountMinor int64) TransactionRequest {
	return TransactionRequest{
		Type:          txType,
		AmountMinor:   amountMinor,
		TransactionID: PlaceholderTransactionID,
		Currency:      defaultCurrency,
	}
}

// EncodeTransactionRequest serializes req into the exact 80-byte wire
// layout (see EXTERNAL INTERFACES: transaction request layout).
func EncodeTransactionRequest(req TransactionRequest) ([]byte, error) {
	out := make([]byte, 0, requestLength)

	out = append(out, IDTransactionRequest, req.Type)

	amount, err := digitsOnly(req.AmountMinor, 12)
	if err != nil {
		return nil, err
	}
	out = append(out, amount...)

	out = append(out, bytes12Zero()...) // otherAmount, always zero

	txID, err := padLeftZero(orDefault(req.TransactionID, PlaceholderTransactionID), 5)
	if err != nil {
		return nil, err
	}
	out = append(out, txID...)

	out = append(out, boolDigit(req.ForceOnline))
	out = append(out, boolDigit(req.Manual))
	out = append(out, boolDigit(req.BonusHandled))

	authCode, err := encodeAuthCode(req.AuthCode)
	if err != nil {
		return nil, err
	}
	out = append(out, authCode...)

	out = append(out, encodeTimestamp(req.Timestamp)...)

	serial, err := padLeftZero(req.Serial, 9)
	if err != nil {
		return nil, err
	}
	out = append(out, serial...)

	out = append(out, '0') // paymentRestriction
	out = append(out, '0') // surcharge
	out = append(out, '0') // lookForDOB
	out = append(out, '0') // flags
	out = append(out, '0') // rfu

	currency, err := padLeftZero(orDefault(req.Currency, defaultCurrency), 3)
	if err != nil {
		return nil, err
	}
	out = append(out, currency...)

	accountingDate := encodeAccountingDate(req.AccountingDate)
	out = append(out, accountingDate...)

	out = append(out, '0') // accountingSeq

	ecrNumber, err := padLeftZero(req.EcrNumber, 3)
	if err != nil {
		return nil, err
	}
	out = append(out, ecrNumber...)

	if len(out) != requestLength {
		return nil, ErrFieldTooLong
	}

	return out, nil
}

func encodeAccountingDate(t time.Time) []byte {
	if t.IsZero() {
		return []byte("000000")
	}
	return []byte(t.Format("060102"))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
