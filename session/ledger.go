package session

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/paytermlink/ecrterm/internal/ringbuf"
)

// DefaultLedgerCapacity bounds how many sessions the ledger retains.
const DefaultLedgerCapacity = 100

// ledger is the bounded, ordered record of sessions the Coordinator has
// created, plus an id index for O(1) correlation lookups. A single mutex
// guards the ring; the id index uses its own concurrent map since lookups
// by id (e.g. from an accept/reject caller racing the reader) shouldn't
// contend with insertion ordering.
type ledger struct {
	mu   sync.Mutex
	ring *ringbuf.Ring[*Session]
	byID *xsync.MapOf[string, *Session]
}

func newLedger(capacity int) *ledger {
	if capacity <= 0 {
		capacity = DefaultLedgerCapacity
	}
	return &ledger{
		ring: ringbuf.New[*Session](capacity),
		byID: xsync.NewMapOf[string, *Session](),
	}
}

// add inserts s, evicting and unindexing the oldest session if the ledger
// is at capacity.
func (l *ledger) add(s *Session) {
	l.mu.Lock()
	evicted, ok := l.ring.PushEvict(s)
	l.mu.Unlock()

	if ok {
		l.byID.Delete(evicted.ID)
	}
	l.byID.Store(s.ID, s)
}

// byIDLookup returns the session with the given id, if still retained.
func (l *ledger) byIDLookup(id string) (*Session, bool) {
	return l.byID.Load(id)
}

// active returns the most recently created session currently occupying the
// active slot (Running or BonusDetectedAndHalted), if any.
func (l *ledger) active() (*Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ring.Last(func(s *Session) bool { return s.State.IsActive() })
}

// lastOfKind returns the most recently created session of kind, regardless
// of state.
func (l *ledger) lastOfKind(kind Kind) (*Session, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ring.Last(func(s *Session) bool { return s.Kind == kind })
}

// predecessor returns the session immediately before s in the ledger, used
// to attribute a bonus-handled continuation's result back to the halted
// original.
func (l *ledger) predecessor(s *Session) (*Session, bool) {
	l.mu.Lock()
	items := l.ring.Items()
	l.mu.Unlock()

	for i, item := range items {
		if item.ID == s.ID && i > 0 {
			return items[i-1], true
		}
	}
	return nil, false
}

// snapshot returns every retained session, oldest first.
func (l *ledger) snapshot() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ring.Items()
}
