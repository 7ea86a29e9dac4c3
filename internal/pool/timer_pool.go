// Package pool reuses *time.Timer values across the retry, ACK-pacing, and
// scheduled-delay waits that run constantly on the engine's send path and
// the coordinator's supervised goroutines, so a busy terminal conversation
// doesn't allocate a fresh timer on every attempt.
package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer for the given duration d from the pool.
//
// Return back the timer to the pool with PutTimer.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer) // Type assertion is safe here since we only put *time.Timer into the pool
		if t.Reset(d) {
			// Timer was active, drain the channel to prevent potential leaks
			select {
			case <-t.C:
			default:
			}
		}
		return t
	}
	return time.NewTimer(d)
}

// PutTimer returns timer to the pool.
//
// t cannot be accessed after returning to the pool.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		// Drain t.C if it wasn't obtained by the caller yet.
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}

// After runs fn after d elapses, unless done closes first. It is the
// Get/select/Put shape every one-shot delayed action in this module uses
// (the engine task manager's AfterFunc, the coordinator's deferred
// bonus-mode disable), expressed once instead of inlined at each call site.
func After(d time.Duration, done <-chan struct{}, fn func()) {
	t := GetTimer(d)
	defer PutTimer(t)

	select {
	case <-t.C:
		fn()
	case <-done:
	}
}
