// Package session implements the ECR-side session coordinator: it owns the
// engine, tracks at most one active transaction session at a time, decodes
// inbound wire messages into typed events, and routes terminal-driven
// prompts through an embedder-supplied policy.
package session

import (
	"sync"
	"time"

	"github.com/paytermlink/ecrterm/message"
)

// Kind identifies the wire operation a Session was opened for.
type Kind int

const (
	KindPayment Kind = iota
	KindRefund
	KindReversal
	KindRetrieve
)

func (k Kind) String() string {
	switch k {
	case KindPayment:
		return "Payment"
	case KindRefund:
		return "Refund"
	case KindReversal:
		return "Reversal"
	case KindRetrieve:
		return "Retrieve"
	default:
		return "Unknown"
	}
}

// PlaceholderTransactionID is the transaction id a Session carries until
// the terminal assigns a real one via a phase-A status.
const PlaceholderTransactionID = "00000"

// BonusInfo carries the loyalty-card fields absorbed from a bonus-card
// status or customer-bonus result while a Payment session is active.
type BonusInfo struct {
	CustomerNumber string
	MemberClass    string
	StatusCode     byte
	StatusText     string
}

// Session is one payment/refund/reversal/retrieve conversation with the
// terminal. Its State is safe to poll from any goroutine; every other
// mutable field is guarded by mu, since only the Coordinator's reader
// dispatch and public operations mutate them, while embedders may query a
// Session concurrently via the Coordinator's ledger accessors.
type Session struct {
	ID                string
	Kind              Kind
	CreatedAt         time.Time
	OriginalTimestamp time.Time // set for Reversal/Retrieve

	State AtomicState

	mu             sync.RWMutex
	amountMinor    int64
	transactionID  string
	completedAt    time.Time
	lastStatus     message.Status
	err            error
	bonus          *BonusInfo
	manualAuthCode string
}

// newSession creates a Created-state Session for kind with the given id and
// amount (amountMinor is 0 for kinds that don't carry one at creation).
func newSession(id string, kind Kind, amountMinor int64) *Session {
	return &Session{
		ID:            id,
		Kind:          kind,
		CreatedAt:     time.Now(),
		amountMinor:   amountMinor,
		transactionID: PlaceholderTransactionID,
	}
}

func (s *Session) AmountMinor() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.amountMinor
}

func (s *Session) TransactionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactionID
}

// SetTransactionID lifts a terminal-assigned transaction id onto the
// session; called once the first phase-A status is absorbed.
func (s *Session) SetTransactionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactionID = id
}

func (s *Session) CompletedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completedAt
}

func (s *Session) markCompletedNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedAt = time.Now()
}

func (s *Session) LastStatus() message.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStatus
}

func (s *Session) setLastStatus(st message.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStatus = st
}

func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Session) Bonus() *BonusInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bonus
}

func (s *Session) setBonus(b *BonusInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bonus = b
}

func (s *Session) ManualAuthCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manualAuthCode
}

func (s *Session) setManualAuthCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manualAuthCode = code
}
