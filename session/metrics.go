package session

import "sync/atomic"

// Metrics holds atomic counters describing the Coordinator's session
// activity, mirroring the engine's own wire-level Metrics type.
type Metrics struct {
	// SessionsStarted is the number of sessions created by any
	// session-initiating operation.
	SessionsStarted atomic.Uint64
	// SessionsCompleted is the number of sessions that reached Completed.
	SessionsCompleted atomic.Uint64
	// SessionsAborted is the number of sessions that reached Aborted or
	// TerminalAborted.
	SessionsAborted atomic.Uint64
	// SessionsErrored is the number of sessions torn down on a
	// communication failure.
	SessionsErrored atomic.Uint64

	// BonusInterleaves is the number of bonus-card-found continuations
	// issued.
	BonusInterleaves atomic.Uint64
	// SessionConflicts is the number of session-initiating operations
	// refused because another session was active.
	SessionConflicts atomic.Uint64
	// ValidationErrors is the number of operations refused before any
	// wire traffic due to a bad argument.
	ValidationErrors atomic.Uint64
}

func (m *Metrics) incSessionsStarted()   { m.SessionsStarted.Add(1) }
func (m *Metrics) incSessionsCompleted() { m.SessionsCompleted.Add(1) }
func (m *Metrics) incSessionsAborted()   { m.SessionsAborted.Add(1) }
func (m *Metrics) incSessionsErrored()   { m.SessionsErrored.Add(1) }

func (m *Metrics) incBonusInterleaves() { m.BonusInterleaves.Add(1) }
func (m *Metrics) incSessionConflicts() { m.SessionConflicts.Add(1) }
func (m *Metrics) incValidationErrors() { m.ValidationErrors.Add(1) }
