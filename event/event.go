// Package event defines the typed notifications the engine publishes to an
// embedder, and a small channel-based broadcast surface for delivering them.
package event

import "time"

// Kind identifies the concrete type carried by an Event.
type Kind int

const (
	KindStatusChanged Kind = iota
	KindTransactionInitialized
	KindCommandAccepted
	KindPurchaseResult
	KindRefundResult
	KindReversalResult
	KindRetrieveResult
	KindAbortResult
	KindBonusResult
	KindDeviceStatus
	KindTerminalAbort
	KindWakeup
	KindUserPrompt
	KindCommunicationError
	KindTimeoutError
	KindSessionConflictError
	KindValidationError
)

// Event is the envelope delivered to embedders. Payload holds one of the
// typed structs below, matching Kind.
type Event struct {
	Kind      Kind
	At        time.Time
	SessionID string
	Payload   any
}

// StatusChanged mirrors every '2' status message, regardless of whether the
// session coordinator also takes action on it.
type StatusChanged struct {
	Phase      byte
	ResultCode string
	Info       string
}

// TransactionInitialized reports the transaction id the terminal assigned
// to the active session.
type TransactionInitialized struct {
	TransactionID string
}

// CommandAccepted reports that a command (test, display, abort, transaction
// request, ...) was accepted by the terminal (ACK or STX response observed).
type CommandAccepted struct {
	CommandID string
}

// BonusInfo carries the loyalty-card fields absorbed from a bonus-card
// status or customer-bonus result.
type BonusInfo struct {
	CustomerNumber string
	MemberClass    string
	StatusCode     byte
	StatusText     string
}

// TransactionResult is published for a completed Payment/Refund/Reversal/
// Retrieve session, or generically when no session was active to attribute
// the result to.
type TransactionResult struct {
	TransactionID    string
	AmountMinor      int64
	Currency         string
	Timestamp        time.Time
	MaskedCardNumber string
	Bonus            *BonusInfo
	PayerReceipt     string
	PayeeReceipt     string
}

// AbortResult reports the outcome of an abort-transaction request.
type AbortResult struct {
	Aborted    bool
	ResultCode string
}

// DeviceStatus mirrors a raw 'S' device-status message.
type DeviceStatus struct {
	ResultCode     string
	Reader         byte
	Environment    byte
	MessagePresent bool
	Data           string
}

// TerminalAbort reports a status/result code the coordinator did not
// recognize as anything but an abandonment of the active session.
type TerminalAbort struct {
	Phase      byte
	ResultCode string
	Info       string
}

// UserPromptKind distinguishes manual-entry prompts from simple
// confirmations.
type UserPromptKind int

const (
	PromptManualAuth UserPromptKind = iota
	PromptConfirm
)

// UserPrompt is published when the session policy allows presenting a
// terminal-driven prompt to the embedder.
type UserPrompt struct {
	Kind       UserPromptKind
	ResultCode string
	Info       string
}

// Wakeup mirrors a 'W' wakeup message.
type Wakeup struct{}

// CommunicationError reports an I/O failure observed by the reader loop or
// sender; the session coordinator tears down the engine on receipt.
type CommunicationError struct {
	Err error
}

// TimeoutError reports that all send attempts for a command were
// exhausted without an ACK/NAK/STX response.
type TimeoutError struct {
	CommandID string
	Attempts  int
}

// SessionConflictError reports an operation refused because another
// session already occupies the ledger's single active slot.
type SessionConflictError struct {
	ConflictingSessionID string
	Kind                 string
	State                string
	TransactionID        string
	CreatedAt            time.Time
}

// ValidationError reports a caller argument that failed validation before
// any wire traffic was generated.
type ValidationError struct {
	Field   string
	Message string
}
