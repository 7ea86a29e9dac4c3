// Package archive gives a completed transaction result somewhere real to
// land. The wire-level record file format is a plain-text external
// collaborator and out of scope here; this package instead defines a small
// storage-agnostic interface plus one concrete embedded key-value adapter.
package archive

import (
	"context"
	"time"
)

// BonusInfo mirrors the loyalty-card fields attached to an archived result,
// when the completed transaction was a bonus-card interleave.
type BonusInfo struct {
	CustomerNumber string
	MemberClass    string
	StatusCode     byte
	StatusText     string
}

// Record is a completed transaction result handed to an Archiver.
type Record struct {
	TransactionID    string
	Kind             string // Payment, Refund, Reversal, Retrieve
	AmountMinor      int64
	Currency         string
	Timestamp        time.Time
	MaskedCardNumber string
	PayerReceipt     string
	PayeeReceipt     string
	Bonus            *BonusInfo
}

// Key returns the record's storage key: a timestamp prefix (sortable
// lexicographically in chronological order) followed by the transaction id.
func (r Record) Key() string {
	return r.Timestamp.UTC().Format("20060102150405") + "-" + r.TransactionID
}

// Archiver hands a completed result to an external store keyed by
// timestamp+transactionId. Implementations must be safe for concurrent use;
// the session coordinator calls Store from its own goroutines.
type Archiver interface {
	Store(ctx context.Context, rec Record) error
	Load(ctx context.Context, key string) (Record, bool, error)
	List(ctx context.Context) ([]Record, error)
	Close() error
}
