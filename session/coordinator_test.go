package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paytermlink/ecrterm/engine"
	"github.com/paytermlink/ecrterm/event"
	"github.com/paytermlink/ecrterm/frame"
	"github.com/paytermlink/ecrterm/message"
	"github.com/paytermlink/ecrterm/port"
)

// newTestCoordinator wires a Coordinator over a MockPort, forcing the engine
// open synchronously so the returned port exists before any operation is
// issued. A reply fed before the engine writes its request is dropped by the
// sender's DiscardInput; see waitForWrites.
func newTestCoordinator(t *testing.T, policy Policy) (*Coordinator, *port.MockPort, <-chan event.Event) {
	t.Helper()

	var p *port.MockPort
	c := New(Config{
		NewPort: func() port.Port {
			p = port.NewMockPort()
			return p
		},
		EngineOptions: []engine.Option{
			engine.WithSendTimeout(200 * time.Millisecond),
			engine.WithAckDelay(0),
			engine.WithRetryLimit(2),
		},
		Policy: policy,
	})
	t.Cleanup(c.Disconnect)

	sub := c.Events()

	_, err := c.ensureEngine()
	require.NoError(t, err)

	return c, p, sub
}

// waitForWrites blocks until the engine has written at least n buffers to p
// (requests, plus one ACK per received frame part), so a reply fed afterwards
// is not discarded by the sender.
func waitForWrites(t *testing.T, p *port.MockPort, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(p.Written()) >= n
	}, time.Second, 5*time.Millisecond)
}

func feedFramed(t *testing.T, p *port.MockPort, payload []byte) {
	t.Helper()
	wire, err := frame.Build(payload)
	require.NoError(t, err)
	p.Feed(wire)
}

// buildStatusPayload builds a '2' status payload: messageId · phase ·
// resultCode(4) · info.
func buildStatusPayload(phase byte, resultCode, info string) []byte {
	out := []byte{message.IDStatus, phase}
	out = append(out, []byte(resultCode)...)
	out = append(out, []byte(info)...)
	return out
}

// buildTransactionResultPayload builds a minimal, well-formed '4' (short)
// transaction-result payload carrying transactionID and amountMinor, a zero
// timestamp, and no receipts.
func buildTransactionResultPayload(transactionID string, amountMinor int64) []byte {
	buf := make([]byte, 138)
	for i := range buf {
		buf[i] = ' '
	}
	buf[0] = message.IDResultShort
	buf[1] = message.TypePurchase
	buf[2] = '0'
	buf[3] = '0'
	buf[4] = '0'
	copy(buf[88:93], fmt.Sprintf("%-5s", transactionID))
	copy(buf[105:117], "000000000000")
	copy(buf[117:124], fmt.Sprintf("%07d", amountMinor))
	copy(buf[124:127], "978")
	buf[136] = '0'
	buf[137] = '0'
	return buf
}

func waitForEvent(t *testing.T, sub <-chan event.Event, kind event.Kind) event.Event {
	t.Helper()
	for {
		select {
		case evt := <-sub:
			if evt.Kind == kind {
				return evt
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

func TestRunPayment_SimplePurchase(t *testing.T) {
	c, p, sub := newTestCoordinator(t, Policy{})

	sessionID, err := c.RunPayment(1234, false, "")
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	waitForWrites(t, p, 1)
	feedFramed(t, p, buildStatusPayload('A', "0000", "00042"))
	init := waitForEvent(t, sub, event.KindTransactionInitialized)
	assert.Equal(t, "00042", init.Payload.(event.TransactionInitialized).TransactionID)
	assert.Equal(t, sessionID, init.SessionID)

	feedFramed(t, p, buildTransactionResultPayload("00042", 1234))
	res := waitForEvent(t, sub, event.KindPurchaseResult)
	out := res.Payload.(event.TransactionResult)
	assert.Equal(t, "00042", out.TransactionID)
	assert.Equal(t, int64(1234), out.AmountMinor)
	assert.Equal(t, sessionID, res.SessionID)
	assert.Nil(t, out.Bonus)

	sessions := c.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, StateCompleted, sessions[0].State.Get())
	assert.Equal(t, uint64(1), c.Metrics().SessionsCompleted.Load())
}

func TestRunPayment_SecondCallRefusedWhileActive(t *testing.T) {
	c, _, sub := newTestCoordinator(t, Policy{})

	first, err := c.RunPayment(1000, false, "")
	require.NoError(t, err)

	_, err = c.RunPayment(2000, false, "")
	assert.Error(t, err)

	conflict := waitForEvent(t, sub, event.KindSessionConflictError)
	detail := conflict.Payload.(event.SessionConflictError)
	assert.Equal(t, first, detail.ConflictingSessionID)
	assert.Equal(t, uint64(1), c.Metrics().SessionConflicts.Load())

	sessions := c.Sessions()
	require.Len(t, sessions, 1)
}

func TestRunPayment_InvalidAmountRefusedLocally(t *testing.T) {
	c, p, sub := newTestCoordinator(t, Policy{})

	_, err := c.RunPayment(0, false, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	waitForEvent(t, sub, event.KindValidationError)
	assert.Empty(t, p.Written())
	assert.Equal(t, uint64(1), c.Metrics().ValidationErrors.Load())
}

func TestReversal_InvalidTransactionIDRefusedLocally(t *testing.T) {
	c, p, sub := newTestCoordinator(t, Policy{})

	_, err := c.Reversal("abc", time.Now(), "")
	assert.ErrorIs(t, err, ErrInvalidTransactionID)

	waitForEvent(t, sub, event.KindValidationError)
	assert.Empty(t, p.Written())
}

func TestBonusCardFound_IssuesContinuationAndAttributesBonus(t *testing.T) {
	c, p, sub := newTestCoordinator(t, Policy{})

	original, err := c.RunPayment(1234, false, "")
	require.NoError(t, err)

	waitForWrites(t, p, 1)
	feedFramed(t, p, buildStatusPayload('A', "0000", "00042"))
	waitForEvent(t, sub, event.KindTransactionInitialized)

	feedFramed(t, p, buildStatusPayload('2', message.ResultBonusCardFound, "CUST0001"))
	statusEvt := waitForEvent(t, sub, event.KindStatusChanged)
	assert.Equal(t, message.ResultBonusCardFound, statusEvt.Payload.(event.StatusChanged).ResultCode)

	// The original session is now BonusDetectedAndHalted; a continuation
	// session should have been ledgered and run in its place.
	require.Eventually(t, func() bool {
		return len(c.Sessions()) == 2
	}, time.Second, 5*time.Millisecond)
	sessions := c.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, original, sessions[0].ID)
	assert.Equal(t, StateBonusDetectedAndHalted, sessions[0].State.Get())
	assert.Equal(t, StateRunning, sessions[1].State.Get())
	assert.Equal(t, uint64(1), c.Metrics().BonusInterleaves.Load())

	// Original request, one ACK per status frame, then the continuation
	// request.
	waitForWrites(t, p, 4)
	feedFramed(t, p, buildTransactionResultPayload("00042", 1234))
	res := waitForEvent(t, sub, event.KindPurchaseResult)
	out := res.Payload.(event.TransactionResult)
	require.NotNil(t, out.Bonus)
	assert.Equal(t, "CUST0001", out.Bonus.CustomerNumber)
	assert.Equal(t, sessions[1].ID, res.SessionID)
}

func TestTerminalAbortCode_PublishesTerminalAbortAndMarksSession(t *testing.T) {
	c, p, sub := newTestCoordinator(t, Policy{})

	_, err := c.RunPayment(500, false, "")
	require.NoError(t, err)

	waitForWrites(t, p, 1)
	feedFramed(t, p, buildStatusPayload('2', "1007", ""))
	abortEvt := waitForEvent(t, sub, event.KindTerminalAbort)
	assert.Equal(t, "1007", abortEvt.Payload.(event.TerminalAbort).ResultCode)

	sessions := c.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, StateTerminalAborted, sessions[0].State.Get())
	assert.Equal(t, uint64(1), c.Metrics().SessionsAborted.Load())
}

func TestManualAuth_DeniedByPolicySendsAbort(t *testing.T) {
	var seen string
	policy := Policy{
		AllowManualAuthorization: func(resultCode string) bool {
			seen = resultCode
			return false
		},
	}
	c, p, _ := newTestCoordinator(t, policy)

	_, err := c.RunPayment(500, false, "")
	require.NoError(t, err)

	waitForWrites(t, p, 1)
	feedFramed(t, p, buildStatusPayload('2', message.ResultManualAuth1, ""))

	// Payment request, ACK for the status frame, then the abort.
	require.Eventually(t, func() bool {
		return len(p.Written()) >= 3
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, message.ResultManualAuth1, seen)
	written := p.Written()
	assert.Equal(t, message.EncodeAbort(), stripFrame(written[len(written)-1]))
}

func TestManualAuth_AllowedRetriesWithCode(t *testing.T) {
	policy := Policy{
		AllowManualAuthorization: func(string) bool { return true },
		ProvideManualAuthCode: func(resultCode string) (string, bool) {
			return "123456", true
		},
	}
	c, p, _ := newTestCoordinator(t, policy)

	_, err := c.RunPayment(500, false, "")
	require.NoError(t, err)

	waitForWrites(t, p, 1)
	feedFramed(t, p, buildStatusPayload('2', message.ResultManualAuth1, ""))

	// Payment request, ACK for the status frame, then the resend with the
	// auth code.
	require.Eventually(t, func() bool {
		return len(p.Written()) >= 3
	}, time.Second, 5*time.Millisecond)

	sessions := c.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "123456", sessions[0].ManualAuthCode())
}

func TestConfirmTxID_AcceptedSendsAcceptMessage(t *testing.T) {
	policy := Policy{
		ConfirmPrompt: func(resultCode, info string) bool { return true },
	}
	c, p, _ := newTestCoordinator(t, policy)

	_, err := c.RunPayment(500, false, "")
	require.NoError(t, err)

	waitForWrites(t, p, 1)
	feedFramed(t, p, buildStatusPayload('2', message.ResultConfirmTxID, "00042"))

	// Payment request, ACK for the status frame, then the accept message.
	require.Eventually(t, func() bool {
		return len(p.Written()) >= 3
	}, time.Second, 5*time.Millisecond)

	written := p.Written()
	wire, err := message.EncodeAcceptReject("00042", true)
	require.NoError(t, err)
	assert.Equal(t, wire, stripFrame(written[len(written)-1]))
}

func TestTestTerminal_AckPublishesCommandAccepted(t *testing.T) {
	c, p, sub := newTestCoordinator(t, Policy{})

	c.TestTerminal()

	require.Eventually(t, func() bool {
		return len(p.Written()) >= 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte{frame.ENQ}, p.Written()[0])

	p.Feed([]byte{frame.ACK})
	evt := waitForEvent(t, sub, event.KindCommandAccepted)
	assert.Equal(t, "Test", evt.Payload.(event.CommandAccepted).CommandID)
}

func TestAbortResult_MarksSessionAborted(t *testing.T) {
	c, p, sub := newTestCoordinator(t, Policy{})

	_, err := c.RunPayment(500, false, "")
	require.NoError(t, err)

	c.AbortTransaction()
	require.Eventually(t, func() bool {
		return len(p.Written()) >= 2
	}, time.Second, 5*time.Millisecond)

	feedFramed(t, p, []byte{message.IDAbortResult, '7', '2', '1'})
	evt := waitForEvent(t, sub, event.KindAbortResult)
	assert.True(t, evt.Payload.(event.AbortResult).Aborted)

	sessions := c.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, StateAborted, sessions[0].State.Get())
}

// stripFrame removes the STX/ETX/LRC framing a runAsync operation wrote,
// returning the raw payload that was sent.
func stripFrame(wire []byte) []byte {
	if len(wire) < 3 || wire[0] != frame.STX {
		return wire
	}
	return wire[1 : len(wire)-2]
}
