package session

import (
	"strings"
	"time"

	"github.com/paytermlink/ecrterm/archive"
	"github.com/paytermlink/ecrterm/engine"
	"github.com/paytermlink/ecrterm/event"
	"github.com/paytermlink/ecrterm/message"
)

// onPayload is the engine's PayloadHandler: it decodes and dispatches every
// complete inbound payload, whether or not it also completed an in-flight
// Send's first-byte rendezvous.
func (c *Coordinator) onPayload(payload []byte) {
	if len(payload) == 0 {
		return
	}

	switch payload[0] {
	case message.IDStatus:
		c.dispatchStatus(payload)
	case message.IDResultShort, message.IDResultExtended:
		c.dispatchTransactionResult(payload)
	case message.IDAbortResult:
		c.dispatchAbortResult(payload)
	case message.IDDeviceStatus:
		c.dispatchDeviceStatus(payload)
	case message.IDCustomerBonus:
		c.dispatchCustomerBonus(payload)
	case message.IDVerifySignature:
		c.dispatchVerifySignature(payload)
	case message.IDWakeup:
		if message.IsWakeup(payload) {
			c.bus.Publish(event.Event{Kind: event.KindWakeup, Payload: event.Wakeup{}})
		}
	default:
		c.log.Debug("session: ignoring unrecognized payload", "messageId", string(payload[0]))
	}
}

func (c *Coordinator) dispatchStatus(payload []byte) {
	st, err := message.DecodeStatus(payload)
	if err != nil {
		c.log.Warn("session: decode status", "err", err)
		return
	}

	var sessionID string
	if s, ok := c.ledger.active(); ok {
		sessionID = s.ID
	}
	c.bus.Publish(event.Event{
		Kind:      event.KindStatusChanged,
		SessionID: sessionID,
		Payload:   event.StatusChanged{Phase: st.Phase, ResultCode: st.ResultCode, Info: st.Info},
	})

	if st.Phase == message.PhaseInitialized {
		if s, ok := c.ledger.active(); ok {
			s.SetTransactionID(st.Info)
			c.bus.Publish(event.Event{
				Kind:      event.KindTransactionInitialized,
				SessionID: s.ID,
				Payload:   event.TransactionInitialized{TransactionID: st.Info},
			})
		}
	}

	switch st.ResultCode {
	case message.ResultBonusCardFound:
		c.handleBonusCardFound(st.Info)
	case message.ResultBonusCardOnly:
		c.handleBonusCardOnly(st.Info)
	case message.ResultManualAuth1, message.ResultManualAuth2:
		c.routeManualAuth(st.ResultCode, st.Info)
	case message.ResultConfirm1, message.ResultConfirm2, message.ResultConfirm3, message.ResultConfirm4, message.ResultConfirmTxID:
		c.routeConfirm(st.ResultCode, st.Info)
	case message.ResultRetrySynthetic:
		c.routeConfirm(message.ResultRetrySynthetic, st.Info)
	default:
		if isAbortResultCode(st.ResultCode) {
			c.publishTerminalAbort(st.Phase, st.ResultCode, st.Info)
		}
	}
}

// isAbortResultCode reports whether code falls in the 1xxx or 9xxx ranges,
// the catch-all "abandon the session" classes not otherwise branched.
func isAbortResultCode(code string) bool {
	return len(code) == 4 && (code[0] == '1' || code[0] == '9')
}

func (c *Coordinator) publishTerminalAbort(phase byte, resultCode, info string) {
	var sessionID string
	if s, ok := c.ledger.active(); ok {
		if s.State.ToTerminalAborted() {
			c.metrics.incSessionsAborted()
		}
		sessionID = s.ID
	}
	c.bus.Publish(event.Event{
		Kind:      event.KindTerminalAbort,
		SessionID: sessionID,
		Payload:   event.TerminalAbort{Phase: phase, ResultCode: resultCode, Info: info},
	})
}

func (c *Coordinator) handleBonusCardFound(customerNumber string) {
	c.sessionMu.Lock()

	s, ok := c.ledger.active()
	if !ok || s.Kind != KindPayment {
		c.sessionMu.Unlock()
		return
	}

	s.setBonus(&BonusInfo{CustomerNumber: customerNumber})
	if !s.State.ToBonusDetectedAndHalted() {
		c.sessionMu.Unlock()
		return
	}

	cont := newSession(newSessionID(), KindPayment, s.AmountMinor())
	cont.SetTransactionID(s.TransactionID())
	c.ledger.add(cont)
	c.metrics.incSessionsStarted()
	c.metrics.incBonusInterleaves()
	cont.State.ToRunning()

	c.sessionMu.Unlock()

	c.issuePayment(cont, true, s.TransactionID(), "")
}

func (c *Coordinator) handleBonusCardOnly(customerNumber string) {
	if s, ok := c.ledger.active(); ok {
		s.setBonus(&BonusInfo{CustomerNumber: customerNumber})
		if s.State.ToAborted() {
			c.metrics.incSessionsAborted()
		}
	}

	c.bus.Publish(event.Event{Kind: event.KindBonusResult, Payload: event.BonusInfo{CustomerNumber: customerNumber}})
	c.publishTerminalAbort(0, message.ResultBonusCardOnly, customerNumber)

	c.afterDelay(engine.NewConfig(c.engineOpts...).BonusDisableDelay(), c.disableBonusCardMode)
}

func (c *Coordinator) routeManualAuth(resultCode, info string) {
	allowed := c.policy.allowManualAuthorization(resultCode)
	shown := false
	defer func() { c.policy.postProcessUserPrompt(resultCode, shown) }()

	if !allowed {
		c.abortTransaction()
		return
	}

	shown = true
	c.bus.Publish(event.Event{Kind: event.KindUserPrompt, Payload: event.UserPrompt{Kind: event.PromptManualAuth, ResultCode: resultCode, Info: info}})

	code, ok := c.policy.provideManualAuthCode(resultCode)
	if !ok || !validateManualAuthCode(resultCode, code) {
		c.abortTransaction()
		return
	}

	switch resultCode {
	case message.ResultManualAuth1:
		c.retryActivePayment(code)
	case message.ResultManualAuth2:
		c.retryActivePayment("")
	}
}

func (c *Coordinator) routeConfirm(resultCode, info string) {
	allowed := c.policy.allowUserPrompt(resultCode)
	shown := false
	defer func() { c.policy.postProcessUserPrompt(resultCode, shown) }()

	if !allowed {
		c.abortTransaction()
		return
	}

	shown = true
	c.bus.Publish(event.Event{Kind: event.KindUserPrompt, Payload: event.UserPrompt{Kind: event.PromptConfirm, ResultCode: resultCode, Info: info}})

	confirmed := c.policy.confirmPrompt(resultCode, info)

	if resultCode == message.ResultConfirmTxID {
		txID := strings.TrimSpace(info)
		if txID == "" {
			if s, ok := c.ledger.active(); ok {
				txID = s.TransactionID()
			}
		}
		if confirmed {
			c.acceptTransaction(txID)
		} else {
			c.rejectTransaction(txID)
		}
		return
	}

	if confirmed {
		c.retryActivePayment("")
	} else {
		c.abortTransaction()
	}
}

// retryActivePayment resends the active Payment session's transaction
// request unchanged, optionally carrying a manual auth code, keeping the
// same session (it does not transition state or touch the ledger).
func (c *Coordinator) retryActivePayment(authCode string) {
	s, ok := c.ledger.active()
	if !ok || s.Kind != KindPayment {
		return
	}

	req := message.NewTransactionRequest(message.TypePurchase, s.AmountMinor())
	req.Timestamp = time.Now()

	if txID := s.TransactionID(); txID != "" && txID != message.PlaceholderTransactionID {
		req.TransactionID = txID
	}
	if authCode != "" {
		req.Manual = true
		req.AuthCode = authCode
		s.setManualAuthCode(authCode)
	}

	c.sendTransactionRequest(s, req)
}

func (c *Coordinator) dispatchTransactionResult(payload []byte) {
	res, err := message.DecodeTransactionResult(payload)
	if err != nil {
		c.log.Warn("session: decode transaction result", "err", err)
		return
	}

	s, hasSession := c.ledger.active()

	var bonus *event.BonusInfo
	kind := event.KindPurchaseResult

	if hasSession {
		s.State.ToCompleted()
		s.markCompletedNow()
		c.metrics.incSessionsCompleted()
		kind = resultKindFor(s.Kind)

		if pred, ok := c.ledger.predecessor(s); ok && pred.Kind == KindPayment && pred.State.Get() == StateBonusDetectedAndHalted {
			if b := pred.Bonus(); b != nil {
				bonus = &event.BonusInfo{
					CustomerNumber: b.CustomerNumber,
					MemberClass:    b.MemberClass,
					StatusCode:     b.StatusCode,
					StatusText:     b.StatusText,
				}
			}
		}
	}

	out := event.TransactionResult{
		TransactionID:    res.TransactionID,
		AmountMinor:      res.AmountMinor,
		Currency:         res.Currency,
		Timestamp:        res.Timestamp,
		MaskedCardNumber: res.MaskedCardNumber,
		Bonus:            bonus,
		PayerReceipt:     res.PayerReceipt,
		PayeeReceipt:     res.PayeeReceipt,
	}

	var sessionID string
	if hasSession {
		sessionID = s.ID
		c.archiveResult(s.Kind, out)
	}
	c.bus.Publish(event.Event{Kind: kind, SessionID: sessionID, Payload: out})
}

// archiveResult hands a completed result to the configured Archiver, if
// any, on its own supervised goroutine so a slow or failing store never
// blocks the reader loop.
func (c *Coordinator) archiveResult(kind Kind, res event.TransactionResult) {
	if c.archiver == nil {
		return
	}

	rec := archive.Record{
		TransactionID:    res.TransactionID,
		Kind:             kind.String(),
		AmountMinor:      res.AmountMinor,
		Currency:         res.Currency,
		Timestamp:        res.Timestamp,
		MaskedCardNumber: res.MaskedCardNumber,
		PayerReceipt:     res.PayerReceipt,
		PayeeReceipt:     res.PayeeReceipt,
	}
	if res.Bonus != nil {
		rec.Bonus = &archive.BonusInfo{
			CustomerNumber: res.Bonus.CustomerNumber,
			MemberClass:    res.Bonus.MemberClass,
			StatusCode:     res.Bonus.StatusCode,
			StatusText:     res.Bonus.StatusText,
		}
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.archiver.Store(c.ctx, rec); err != nil {
			c.log.Warn("session: archive result", "err", err)
		}
	}()
}

func resultKindFor(kind Kind) event.Kind {
	switch kind {
	case KindRefund:
		return event.KindRefundResult
	case KindReversal:
		return event.KindReversalResult
	case KindRetrieve:
		return event.KindRetrieveResult
	default:
		return event.KindPurchaseResult
	}
}

func (c *Coordinator) dispatchAbortResult(payload []byte) {
	res, err := message.DecodeAbortResult(payload)
	if err != nil {
		c.log.Warn("session: decode abort result", "err", err)
		return
	}

	var sessionID string
	if s, ok := c.ledger.active(); ok {
		sessionID = s.ID
		if res.Aborted && s.State.ToAborted() {
			c.metrics.incSessionsAborted()
		}
	}

	c.bus.Publish(event.Event{
		Kind:      event.KindAbortResult,
		SessionID: sessionID,
		Payload:   event.AbortResult{Aborted: res.Aborted, ResultCode: res.ResultCode},
	})
}

func (c *Coordinator) dispatchDeviceStatus(payload []byte) {
	st, err := message.DecodeDeviceStatus(payload)
	if err != nil {
		c.log.Warn("session: decode device status", "err", err)
		return
	}

	c.bus.Publish(event.Event{
		Kind: event.KindDeviceStatus,
		Payload: event.DeviceStatus{
			ResultCode:     st.ResultCode,
			Reader:         st.Reader,
			Environment:    st.Environment,
			MessagePresent: st.MessagePresent,
			Data:           st.Data,
		},
	})
}

func (c *Coordinator) dispatchCustomerBonus(payload []byte) {
	res, err := message.DecodeCustomerBonusResult(payload)
	if err != nil {
		c.log.Warn("session: decode customer bonus result", "err", err)
		return
	}

	if s, ok := c.ledger.active(); ok && s.Kind == KindPayment {
		s.setBonus(&BonusInfo{
			CustomerNumber: res.CustomerNumber,
			MemberClass:    res.MemberClass,
			StatusCode:     res.Status,
		})
		return
	}

	c.disableBonusCardMode()
}

func (c *Coordinator) dispatchVerifySignature(payload []byte) {
	text, err := message.DecodeVerifySignatureText(payload)
	if err != nil {
		c.log.Warn("session: decode verify signature text", "err", err)
		return
	}

	c.routeConfirm(message.ResultRetrySynthetic, text)
}
