package session

import (
	"context"
	"fmt"
	"time"

	"github.com/paytermlink/ecrterm/engine"
	"github.com/paytermlink/ecrterm/message"
)

// TestTerminal sends the ENQ handshake probe. A bare ACK reply publishes
// CommandAccepted("Test") from the engine's own send-with-retry contract.
func (c *Coordinator) TestTerminal() {
	c.runAsync("Test", func(eng *engine.Engine) error {
		_, err := eng.SendRaw(context.Background(), []byte{message.EncodeHandshake()}, "Test")
		return err
	})
}

// AbortTransaction sends the abort-transaction control message.
func (c *Coordinator) AbortTransaction() {
	c.abortTransaction()
}

func (c *Coordinator) abortTransaction() {
	c.runAsync("Abort", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeAbort(), "Abort")
		return err
	})
}

// RunPayment starts a purchase for amountMinor (minor currency units, so
// 12.34 is 1234). bonusHandled marks a bonus-interleave continuation.
// sessionID lets a caller supply its own correlation id; an empty string
// generates one. Returns the session id and a non-nil error only for a
// local, pre-wire refusal (validation or a conflicting active session) —
// either refusal is also published as an event.
func (c *Coordinator) RunPayment(amountMinor int64, bonusHandled bool, sessionID string) (string, error) {
	if amountMinor <= 0 {
		c.publishValidation("amount", "amount must be greater than zero")
		return "", ErrInvalidAmount
	}

	s, err := c.beginSession(KindPayment, amountMinor, sessionID)
	if err != nil {
		return "", err
	}

	c.issuePayment(s, bonusHandled, message.PlaceholderTransactionID, "")
	return s.ID, nil
}

// issuePayment sends the transaction request for an already-Running,
// already-ledgered Payment session.
func (c *Coordinator) issuePayment(s *Session, bonusHandled bool, transactionID, authCode string) {
	req := message.NewTransactionRequest(message.TypePurchase, s.AmountMinor())
	req.BonusHandled = bonusHandled
	req.Timestamp = time.Now()
	if transactionID != "" {
		req.TransactionID = transactionID
	}
	if authCode != "" {
		req.Manual = true
		req.AuthCode = authCode
	}

	c.sendTransactionRequest(s, req)
}

func (c *Coordinator) sendTransactionRequest(s *Session, req message.TransactionRequest) {
	c.runAsync("TransactionRequest", func(eng *engine.Engine) error {
		wire, err := message.EncodeTransactionRequest(req)
		if err != nil {
			s.setErr(err)
			s.State.ToError()
			return err
		}
		_, err = eng.Send(context.Background(), wire, "TransactionRequest")
		if err != nil {
			s.setErr(err)
			s.State.ToError()
			return err
		}
		return nil
	})
}

// Refund starts a refund for amountMinor.
func (c *Coordinator) Refund(amountMinor int64, sessionID string) (string, error) {
	if amountMinor <= 0 {
		c.publishValidation("amount", "amount must be greater than zero")
		return "", ErrInvalidAmount
	}

	s, err := c.beginSession(KindRefund, amountMinor, sessionID)
	if err != nil {
		return "", err
	}

	req := message.NewTransactionRequest(message.TypeRefund, amountMinor)
	req.Timestamp = time.Now()
	c.sendTransactionRequest(s, req)

	return s.ID, nil
}

// Reversal reverses the transaction identified by transactionID/timestamp,
// both taken verbatim from the original transaction.
func (c *Coordinator) Reversal(transactionID string, timestamp time.Time, sessionID string) (string, error) {
	if err := validateTransactionID(transactionID); err != nil {
		c.publishValidation("transactionId", err.Error())
		return "", err
	}

	s, err := c.beginSession(KindReversal, 0, sessionID)
	if err != nil {
		return "", err
	}
	s.OriginalTimestamp = timestamp
	s.SetTransactionID(transactionID)

	req := message.NewTransactionRequest(message.TypeReversal, 0)
	req.TransactionID = transactionID
	req.Timestamp = timestamp
	c.sendTransactionRequest(s, req)

	return s.ID, nil
}

// RetrieveTransaction re-queries a past transaction by id/timestamp.
func (c *Coordinator) RetrieveTransaction(transactionID string, timestamp time.Time) (string, error) {
	if err := validateTransactionID(transactionID); err != nil {
		c.publishValidation("transactionId", err.Error())
		return "", err
	}

	s, err := c.beginSession(KindRetrieve, 0, "")
	if err != nil {
		return "", err
	}
	s.OriginalTimestamp = timestamp
	s.SetTransactionID(transactionID)

	req := message.NewTransactionRequest(message.TypeRetrieval, 0)
	req.TransactionID = transactionID
	req.Timestamp = timestamp
	c.sendTransactionRequest(s, req)

	return s.ID, nil
}

// RetrieveLastTransaction re-queries the most recently completed
// transaction-bearing session (Payment, Refund, or Reversal).
func (c *Coordinator) RetrieveLastTransaction() (string, error) {
	var last *Session
	for _, s := range c.ledger.snapshot() {
		if s.Kind == KindRetrieve || s.State.Get() != StateCompleted {
			continue
		}
		if last == nil || s.CompletedAt().After(last.CompletedAt()) {
			last = s
		}
	}
	if last == nil {
		return "", fmt.Errorf("session: no prior transaction to retrieve")
	}
	return c.RetrieveTransaction(last.TransactionID(), last.CompletedAt())
}

// RequestTerminalStatus queries the device-control status record.
func (c *Coordinator) RequestTerminalStatus() {
	c.runAsync("DeviceStatus", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeDeviceControl(message.DeviceControlStatus), "DeviceStatus")
		return err
	})
}

// RequestTerminalVersion queries the device-control version record.
func (c *Coordinator) RequestTerminalVersion() {
	c.runAsync("DeviceVersion", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeDeviceControl(message.DeviceControlVersion), "DeviceVersion")
		return err
	})
}

// RetrieveTCSMessage queries the device-control TCS record.
func (c *Coordinator) RetrieveTCSMessage() {
	c.runAsync("DeviceTCS", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeDeviceControl(message.DeviceControlTCS), "DeviceTCS")
		return err
	})
}

// EnableBonusCardMode turns on bonus-card detection. autoReply additionally
// asks the terminal to answer customer-bonus requests on its own.
func (c *Coordinator) EnableBonusCardMode(autoReply bool) {
	activation := message.BonusCardOn
	if autoReply {
		activation = message.BonusCardAutoReply
	}
	c.runAsync("BonusCardMode", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeBonusCardMode(activation), "BonusCardMode")
		return err
	})
}

// DisableBonusCardMode turns off bonus-card detection.
func (c *Coordinator) DisableBonusCardMode() {
	c.disableBonusCardMode()
}

func (c *Coordinator) disableBonusCardMode() {
	c.runAsync("BonusCardModeOff", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeBonusCardMode(message.BonusCardOff), "BonusCardModeOff")
		return err
	})
}

// RequestBonusCardInfo asks the terminal for the current customer bonus
// card, optionally stopping card-detection after this single request.
func (c *Coordinator) RequestBonusCardInfo(stopActive bool) {
	c.runAsync("CustomerRequest", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeCustomerRequest(stopActive), "CustomerRequest")
		return err
	})
}

// DisplayText shows up to two lines of text on the terminal's customer
// display. Lines over 21 bytes are truncated and force small font.
func (c *Coordinator) DisplayText(line1, line2 string, bigFont bool) {
	c.runAsync("DisplayText", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeDisplayText(line1, line2, bigFont), "DisplayText")
		return err
	})
}

// ClearDisplayText clears the terminal's customer display.
func (c *Coordinator) ClearDisplayText() {
	c.runAsync("DisplayTextClear", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeDisplayText("", "", false), "DisplayTextClear")
		return err
	})
}

// EnableAuxiliaryMode turns on the terminal's auxiliary-accept mode.
func (c *Coordinator) EnableAuxiliaryMode() {
	c.runAsync("AuxiliaryMode", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeAuxiliaryMode(true), "AuxiliaryMode")
		return err
	})
}

// DisableAuxiliaryMode turns off the terminal's auxiliary-accept mode.
func (c *Coordinator) DisableAuxiliaryMode() {
	c.runAsync("AuxiliaryModeOff", func(eng *engine.Engine) error {
		_, err := eng.Send(context.Background(), message.EncodeAuxiliaryMode(false), "AuxiliaryModeOff")
		return err
	})
}

// AcceptTransaction accepts a transaction the terminal has paused pending
// host confirmation (result code 2022).
func (c *Coordinator) AcceptTransaction(transactionID string) error {
	return c.acceptReject(transactionID, true)
}

// RejectTransaction rejects a transaction the terminal has paused pending
// host confirmation (result code 2022).
func (c *Coordinator) RejectTransaction(transactionID string) error {
	return c.acceptReject(transactionID, false)
}

func (c *Coordinator) acceptTransaction(transactionID string) { _ = c.acceptReject(transactionID, true) }
func (c *Coordinator) rejectTransaction(transactionID string) {
	_ = c.acceptReject(transactionID, false)
}

func (c *Coordinator) acceptReject(transactionID string, accept bool) error {
	if err := validateTransactionID(transactionID); err != nil {
		c.publishValidation("transactionId", err.Error())
		return err
	}

	label := "Reject"
	if accept {
		label = "Accept"
	}
	c.runAsync(label, func(eng *engine.Engine) error {
		wire, err := message.EncodeAcceptReject(transactionID, accept)
		if err != nil {
			return err
		}
		_, err = eng.Send(context.Background(), wire, label)
		return err
	})
	return nil
}

func validateTransactionID(id string) error {
	if len(id) != 5 {
		return fmt.Errorf("session: transaction id %q: %w", id, ErrInvalidTransactionID)
	}
	for _, ch := range id {
		if ch < '0' || ch > '9' {
			return fmt.Errorf("session: transaction id %q: %w", id, ErrInvalidTransactionID)
		}
	}
	return nil
}
