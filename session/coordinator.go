package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paytermlink/ecrterm/archive"
	"github.com/paytermlink/ecrterm/engine"
	"github.com/paytermlink/ecrterm/event"
	"github.com/paytermlink/ecrterm/internal/pool"
	"github.com/paytermlink/ecrterm/logger"
	"github.com/paytermlink/ecrterm/port"
)

// ErrInvalidAmount is returned (and published as a ValidationError event)
// when a caller passes a non-positive amount to a transaction-initiating
// operation.
var ErrInvalidAmount = errors.New("session: amount must be greater than zero")

// ErrInvalidTransactionID is returned when a caller-supplied transaction id
// does not meet the 5-digit numeric layout.
var ErrInvalidTransactionID = errors.New("session: transaction id must be 5 digits")

// Config configures a Coordinator.
type Config struct {
	// NewPort builds a fresh Port every time the engine is (re)opened. It is
	// called under the Coordinator's protocol-creation lock, never
	// concurrently with itself.
	NewPort func() port.Port

	// EngineOptions is forwarded to engine.New on every (re)open.
	EngineOptions []engine.Option

	// LedgerCapacity bounds how many sessions are retained; defaults to
	// DefaultLedgerCapacity.
	LedgerCapacity int

	Policy Policy
	Logger logger.Logger

	// Archiver, if set, receives every completed transaction result. Store
	// runs on its own supervised goroutine; a failure is logged, never
	// surfaced as an event, since archival is a best-effort side channel.
	Archiver archive.Archiver
}

// Coordinator is the module's external interface: it owns the lazily
// (re)created engine, the bounded session ledger, and the event bus, and
// exposes every terminal operation as a non-blocking call whose outcome is
// delivered as an event.
type Coordinator struct {
	newPort    func() port.Port
	engineOpts []engine.Option
	policy     Policy
	log        logger.Logger
	archiver   archive.Archiver

	bus    *event.Bus
	ledger *ledger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	protoMu sync.Mutex
	eng     *engine.Engine

	// sessionMu serializes the session-initiating guard (refuse-if-active
	// check, ledger insertion, and the Created→Running transition) so two
	// concurrent callers can never both observe no active session.
	sessionMu sync.Mutex

	metrics Metrics
}

// New creates a Coordinator. The engine is not opened until the first
// operation is issued.
func New(cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		newPort:    cfg.NewPort,
		engineOpts: cfg.EngineOptions,
		policy:     cfg.Policy,
		log:        cfg.Logger,
		archiver:   cfg.Archiver,
		bus:        event.NewBus(),
		ledger:     newLedger(cfg.LedgerCapacity),
		ctx:        ctx,
		cancel:     cancel,
	}

	c.wg.Add(1)
	go c.superviseBus()

	return c
}

// Events returns a channel of every event the Coordinator publishes.
// Subscribe before issuing operations; events published before a subscriber
// registers are not replayed.
func (c *Coordinator) Events() <-chan event.Event {
	return c.bus.Subscribe()
}

// Metrics returns the Coordinator's atomic counters.
func (c *Coordinator) Metrics() *Metrics {
	return &c.metrics
}

// Sessions returns every retained session, oldest first.
func (c *Coordinator) Sessions() []*Session {
	return c.ledger.snapshot()
}

// Disconnect tears down the engine and stops the Coordinator permanently.
// It is the sole way to halt Coordinator activity; there is no other
// cancellation token.
func (c *Coordinator) Disconnect() {
	c.cancel()
	c.teardownEngine()
	c.wg.Wait()
	c.bus.Close()
}

// superviseBus watches for communication failures published by the engine
// and releases the protocol so the next operation lazily reopens it.
func (c *Coordinator) superviseBus() {
	defer c.wg.Done()

	ch := c.bus.Subscribe()
	for {
		select {
		case <-c.ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.Kind == event.KindCommunicationError {
				c.handleCommFailure()
			}
		}
	}
}

func (c *Coordinator) handleCommFailure() {
	c.teardownEngine()
	if s, ok := c.ledger.active(); ok {
		s.setErr(errors.New("session: communication failure"))
		s.State.ToError()
		c.metrics.incSessionsErrored()
	}
}

// ensureEngine lazily (re)creates and opens the engine, serialized by
// protoMu so at most one construction/teardown happens at a time.
func (c *Coordinator) ensureEngine() (*engine.Engine, error) {
	c.protoMu.Lock()
	defer c.protoMu.Unlock()

	if c.eng != nil {
		return c.eng, nil
	}

	p := c.newPort()
	eng := engine.New(p, c.bus, c.onPayload, c.engineOpts...)
	if err := eng.Open(c.ctx); err != nil {
		return nil, err
	}

	c.eng = eng
	return eng, nil
}

func (c *Coordinator) teardownEngine() {
	c.protoMu.Lock()
	eng := c.eng
	c.eng = nil
	c.protoMu.Unlock()

	if eng != nil {
		if err := eng.Close(); err != nil {
			c.log.Warn("session: close engine", "err", err)
		}
	}
}

// runAsync spawns a Coordinator-supervised goroutine for a non-blocking
// public operation, recovering and logging any panic rather than crashing
// the process, mirroring the engine's own task-manager discipline.
func (c *Coordinator) runAsync(label string, fn func(eng *engine.Engine) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("session: recovered panic", "op", label, "panic", r)
			}
		}()

		eng, err := c.ensureEngine()
		if err != nil {
			c.log.Error("session: open engine failed", "op", label, "err", err)
			return
		}

		if err := fn(eng); err != nil {
			c.log.Warn("session: operation failed", "op", label, "err", err)
		}
	}()
}

// afterDelay runs fn once after d on a Coordinator-supervised goroutine,
// unless disconnect runs first.
func (c *Coordinator) afterDelay(d time.Duration, fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		pool.After(d, c.ctx.Done(), fn)
	}()
}

func (c *Coordinator) publishValidation(field, msg string) {
	c.metrics.incValidationErrors()
	c.bus.Publish(event.Event{Kind: event.KindValidationError, Payload: event.ValidationError{Field: field, Message: msg}})
}

func (c *Coordinator) publishConflict(s *Session) {
	c.metrics.incSessionConflicts()
	c.bus.Publish(event.Event{
		Kind:      event.KindSessionConflictError,
		SessionID: s.ID,
		Payload: event.SessionConflictError{
			ConflictingSessionID: s.ID,
			Kind:                 s.Kind.String(),
			State:                s.State.Get().String(),
			TransactionID:        s.TransactionID(),
			CreatedAt:            s.CreatedAt,
		},
	})
}

// beginSession atomically refuses a session-initiating operation if another
// session currently occupies the ledger's single active slot, publishing a
// SessionConflictError; otherwise it creates, ledgers, and runs a new
// session of kind, returning it. sessionID empty generates one.
func (c *Coordinator) beginSession(kind Kind, amountMinor int64, sessionID string) (*Session, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if s, ok := c.ledger.active(); ok {
		c.publishConflict(s)
		return nil, fmt.Errorf("session: %s session %s is active", s.Kind, s.ID)
	}

	if sessionID == "" {
		sessionID = newSessionID()
	}
	s := newSession(sessionID, kind, amountMinor)
	c.ledger.add(s)
	c.metrics.incSessionsStarted()
	s.State.ToRunning()

	return s, nil
}

func newSessionID() string {
	return uuid.NewString()
}
