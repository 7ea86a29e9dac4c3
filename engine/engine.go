// Package engine drives the byte-level conversation with a payment
// terminal: it frames and sends commands with ACK/NAK retry, runs the
// single reader goroutine that classifies every inbound byte, reassembles
// multi-part replies, and hands decoded-ready payloads to an embedder
// callback for dispatch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/paytermlink/ecrterm/event"
	"github.com/paytermlink/ecrterm/frame"
	"github.com/paytermlink/ecrterm/internal/pool"
	"github.com/paytermlink/ecrterm/port"
)

// PayloadHandler is invoked by the reader loop for every complete inbound
// payload, whether or not it also completed an in-flight Send's first-byte
// rendezvous. It is the single place an embedder sees every wire reply:
// direct responses to a Send, and terminal-initiated payloads such as
// wakeups or a result the caller has already stopped waiting for.
type PayloadHandler func(payload []byte)

// sendOutcome is what the reader loop delivers to an in-flight Send once it
// classifies the first response byte.
type sendOutcome struct {
	kind    frame.Kind
	payload []byte
	err     error
}

// Engine owns the byte link to a terminal and implements the send-with-
// retry / reassemble-and-ACK protocol described in the external interface.
// One Engine serializes all sends; only one Send call is ever in flight.
type Engine struct {
	port   port.Port
	cfg    *Config
	bus    *event.Bus
	onData PayloadHandler

	tasks   *taskManager
	metrics Metrics

	sendMu    sync.Mutex
	pendingCh atomic.Pointer[chan sendOutcome]

	open atomic.Bool
}

// New creates an Engine over p, publishing events to bus and delivering
// unsolicited payloads to onData. The Engine is not yet open.
func New(p port.Port, bus *event.Bus, onData PayloadHandler, opts ...Option) *Engine {
	return &Engine{
		port:   p,
		cfg:    NewConfig(opts...),
		bus:    bus,
		onData: onData,
	}
}

// Metrics returns the Engine's atomic counters.
func (e *Engine) Metrics() *Metrics { return &e.metrics }

// Open starts the port and the reader loop.
func (e *Engine) Open(ctx context.Context) error {
	if e.open.Load() {
		return ErrAlreadyOpen
	}

	if err := e.port.Open(); err != nil {
		return fmt.Errorf("engine: open port: %w", err)
	}

	e.tasks = newTaskManager(ctx, e.cfg.Logger())
	e.open.Store(true)
	e.tasks.Start("reader", e.readerLoop)

	return nil
}

// Close stops the reader loop and releases the port. Safe to call more than
// once.
func (e *Engine) Close() error {
	if !e.open.CompareAndSwap(true, false) {
		return nil
	}

	// Close the port first so a reader goroutine blocked in ReadByte is
	// unblocked by the underlying link going away, then join it.
	err := e.port.Close()
	e.tasks.Stop()
	return err
}

// Send frames payload, writes it, and waits for the terminal's first
// response byte, retrying on NAK or timeout up to the configured retry
// limit. It returns the reassembled payload when the response began with
// STX, or nil when the terminal only ACK'd. commandID labels the attempt
// in logs, in the CommandAccepted event published on acceptance, and in the
// TimeoutError event published on exhaustion.
func (e *Engine) Send(ctx context.Context, payload []byte, commandID string) ([]byte, error) {
	framed, err := frame.Build(payload)
	if err != nil {
		return nil, err
	}
	return e.sendFramed(ctx, framed, commandID)
}

// SendRaw writes raw as-is, with no STX/ETX/LRC framing, and applies the
// same first-byte rendezvous and retry law as Send. It exists for the
// single-byte ENQ handshake, the only command this protocol sends unframed.
func (e *Engine) SendRaw(ctx context.Context, raw []byte, commandID string) ([]byte, error) {
	return e.sendFramed(ctx, raw, commandID)
}

func (e *Engine) sendFramed(ctx context.Context, framed []byte, commandID string) ([]byte, error) {
	if !e.open.Load() {
		return nil, ErrNotOpen
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	var lastErr error

	for attempt := 1; attempt <= e.cfg.RetryLimit(); attempt++ {
		ch := make(chan sendOutcome, 1)
		e.pendingCh.Store(&ch)

		if err := e.port.DiscardInput(); err != nil {
			e.pendingCh.Store(nil)
			return nil, e.commFail(err)
		}

		if _, err := e.port.Write(framed); err != nil {
			e.pendingCh.Store(nil)
			return nil, e.commFail(err)
		}

		e.cfg.Logger().Debug("engine: sent command", "command", commandID, "attempt", attempt)

		payload, outcome, err := e.awaitOutcome(ctx, ch)
		e.pendingCh.Store(nil)

		switch outcome {
		case outcomeAccepted:
			e.metrics.incSendCount()
			e.bus.Publish(event.Event{Kind: event.KindCommandAccepted, Payload: event.CommandAccepted{CommandID: commandID}})
			return payload, nil
		case outcomeCanceled:
			return nil, err
		case outcomeNak:
			lastErr = errors.New("engine: terminal replied NAK")
			e.metrics.incRetryCount()
			e.cfg.Logger().Warn("engine: NAK, retrying", "command", commandID, "attempt", attempt)
		case outcomeTimeout:
			lastErr = ErrSendTimeout
			e.metrics.incRetryCount()
			e.cfg.Logger().Warn("engine: no response, retrying", "command", commandID, "attempt", attempt)
		case outcomeError:
			lastErr = err
			e.metrics.incRetryCount()
		}
	}

	e.metrics.incSendFailCount()
	e.bus.Publish(event.Event{
		Kind: event.KindTimeoutError,
		Payload: event.TimeoutError{
			CommandID: commandID,
			Attempts:  e.cfg.RetryLimit(),
		},
	})

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrSendTimeout
}

type sendResult int

const (
	outcomeAccepted sendResult = iota
	outcomeNak
	outcomeTimeout
	outcomeCanceled
	outcomeError
)

func (e *Engine) awaitOutcome(ctx context.Context, ch chan sendOutcome) ([]byte, sendResult, error) {
	timer := pool.GetTimer(e.cfg.SendTimeout())
	defer pool.PutTimer(timer)

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, outcomeError, out.err
		}
		switch out.kind {
		case frame.KindACK, frame.KindSTX:
			return out.payload, outcomeAccepted, nil
		case frame.KindNAK:
			return nil, outcomeNak, nil
		default:
			return nil, outcomeTimeout, nil
		}
	case <-timer.C:
		return nil, outcomeTimeout, nil
	case <-ctx.Done():
		return nil, outcomeCanceled, ctx.Err()
	case <-e.tasks.Done():
		return nil, outcomeCanceled, context.Canceled
	}
}

func (e *Engine) commFail(err error) error {
	e.metrics.incCommErrorCount()
	e.bus.Publish(event.Event{Kind: event.KindCommunicationError, Payload: event.CommunicationError{Err: err}})
	return fmt.Errorf("%w: %v", ErrCommFailure, err)
}

// readerLoop is the Engine's single reader goroutine. It classifies every
// idle byte, completing an in-flight Send's rendezvous when one is waiting,
// and unconditionally hands every reassembled payload to onData.
func (e *Engine) readerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b, err := e.port.ReadByte()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			e.commFail(err)
			return
		}

		switch frame.Classify(b) {
		case frame.KindACK:
			e.deliverPending(sendOutcome{kind: frame.KindACK})
		case frame.KindNAK:
			e.deliverPending(sendOutcome{kind: frame.KindNAK})
		case frame.KindENQ:
			e.cfg.Logger().Debug("engine: received ENQ")
		case frame.KindSTX:
			payload, err := e.readPayload(ctx)
			if err != nil {
				e.deliverPending(sendOutcome{err: err})
				continue
			}
			// The reader always decodes and dispatches every completed
			// payload, whether or not a Send is currently waiting on the
			// first-byte rendezvous: the rendezvous only tells an
			// in-flight Send that its command was accepted, it is not the
			// sole consumer of the reply.
			e.deliverPending(sendOutcome{kind: frame.KindSTX, payload: payload})
			if e.onData != nil {
				e.onData(payload)
			}
		default:
			e.cfg.Logger().Debug("engine: ignoring unexpected byte", "byte", b)
		}
	}
}

// deliverPending hands out to the currently in-flight Send, if any. It
// returns true when a Send was waiting and received it.
func (e *Engine) deliverPending(out sendOutcome) bool {
	p := e.pendingCh.Load()
	if p == nil {
		return false
	}
	select {
	case *p <- out:
		return true
	default:
		return false
	}
}

// readPayload reads and reassembles a complete logical payload after the
// caller has already consumed its leading STX, ACKing each verified part
// and NAKing (then resynchronizing to the next STX) on checksum mismatch.
func (e *Engine) readPayload(ctx context.Context) ([]byte, error) {
	reasm := frame.NewReassembler()

	for {
		body, final, err := e.readVerifiedPart(ctx)
		if err != nil {
			return nil, err
		}

		reasm.AddPart(body)
		e.metrics.incPartRecvCount()

		if final {
			e.metrics.incPayloadRecvCount()
			return reasm.Payload(), nil
		}
	}
}

func (e *Engine) readVerifiedPart(ctx context.Context) (body []byte, final bool, err error) {
	for {
		body, final, err = frame.ReadPart(e.port.ReadByte)
		if err == nil {
			if ackErr := e.ackDelayed(ctx); ackErr != nil {
				return nil, false, ackErr
			}
			return body, final, nil
		}

		if errors.Is(err, frame.ErrChecksumMismatch) {
			e.metrics.incPartNakCount()
			if _, wErr := e.port.Write([]byte{frame.NAK}); wErr != nil {
				return nil, false, wErr
			}
			if sErr := e.discardUntilSTX(); sErr != nil {
				return nil, false, sErr
			}
			continue
		}

		return nil, false, err
	}
}

func (e *Engine) discardUntilSTX() error {
	for {
		b, err := e.port.ReadByte()
		if err != nil {
			return err
		}
		if b == frame.STX {
			return nil
		}
	}
}

func (e *Engine) ackDelayed(ctx context.Context) error {
	if e.cfg.AckDelay() > 0 {
		timer := pool.GetTimer(e.cfg.AckDelay())
		defer pool.PutTimer(timer)

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err := e.port.Write([]byte{frame.ACK})
	return err
}

// isTimeout reports whether err represents a read deadline expiring, which
// the reader loop treats as "nothing arrived yet" rather than a failure.
// tarm/serial surfaces an expired read timeout as io.EOF on POSIX, so that
// is treated the same as a net.Error with Timeout() true.
func isTimeout(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
