package engine

import (
	"context"
	"sync"
	"time"

	"github.com/paytermlink/ecrterm/internal/pool"
	"github.com/paytermlink/ecrterm/logger"
)

// taskManager supervises the engine's long-running reader goroutine, and
// any one-shot deferred action scheduled through AfterFunc, so that Stop
// deterministically cancels and joins every goroutine it has started, with
// no leak across a reopen cycle. The engine's ACK pacing waits inline in the
// reader goroutine, and the bonus-mode disable is scheduled by the session
// coordinator, so neither runs through AfterFunc.
type taskManager struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
}

func newTaskManager(parent context.Context, l logger.Logger) *taskManager {
	ctx, cancel := context.WithCancel(parent)
	return &taskManager{ctx: ctx, cancel: cancel, logger: l}
}

// Start runs fn in its own goroutine, recovering from and logging any
// panic instead of crashing the process.
func (m *taskManager) Start(name string, fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.recoverPanic(name)
		fn(m.ctx)
	}()
}

// AfterFunc schedules fn to run once after d, unless the manager is
// stopped first. The scheduled call is tracked so Stop can wait for it (or
// for its cancellation) before returning.
func (m *taskManager) AfterFunc(d time.Duration, fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.recoverPanic("deferred")

		pool.After(d, m.ctx.Done(), fn)
	}()
}

func (m *taskManager) recoverPanic(name string) {
	if r := recover(); r != nil {
		m.logger.Error("engine: task panicked", "task", name, "panic", r)
	}
}

// Stop cancels the context and waits for every started task to return.
func (m *taskManager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Done returns the manager's context Done channel, closed on Stop.
func (m *taskManager) Done() <-chan struct{} {
	return m.ctx.Done()
}
