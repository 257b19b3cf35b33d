package board

import (
	"sync"
	"time"
)

// taskGroup owns the engine's delayed reconciliation tasks. Tasks are
// fire-after-delay, but the group can flush (await) or stop them so a test
// harness and the shutdown path never leak a pending fetch.
type taskGroup struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	stop    chan struct{}
	stopped bool
}

func newTaskGroup() *taskGroup {
	return &taskGroup{stop: make(chan struct{})}
}

// After runs fn once the delay elapses, unless the group is stopped first.
// Returns false if the group is already stopped.
func (g *taskGroup) After(delay time.Duration, fn func()) bool {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return false
	}
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			fn()
		case <-g.stop:
		}
	}()
	return true
}

// Flush blocks until every scheduled task has run or been stopped.
func (g *taskGroup) Flush() {
	g.wg.Wait()
}

// Stop aborts pending tasks and waits for running ones to finish.
func (g *taskGroup) Stop() {
	g.mu.Lock()
	if !g.stopped {
		g.stopped = true
		close(g.stop)
	}
	g.mu.Unlock()
	g.wg.Wait()
}
