package board

import (
	"context"
	"sync"
	"time"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/system"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/pkg/logger"
)

var _ system.Service = (*Refresher)(nil)

// Refresher periodically re-pulls the idea collection so the dashboard stays
// converged even without user activity. This runs alongside, not instead of,
// the engine's one-shot post-mutation reconciliation fetches.
type Refresher struct {
	engine   *Engine
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewRefresher creates a lifecycle-managed board refresher.
func NewRefresher(engine *Engine, interval time.Duration, log *logger.Logger) *Refresher {
	if log == nil {
		log = logger.NewDefault("board-refresher")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{
		engine:   engine,
		log:      log,
		interval: interval,
	}
}

func (r *Refresher) Name() string { return "board-refresher" }

func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.Info("board refresher started")
	return nil
}

func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("board refresher stopped")
	return nil
}

func (r *Refresher) tick(ctx context.Context) {
	if r.engine == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := r.engine.LoadIdeas(ctx); err != nil {
		r.log.WithError(err).Warn("board refresher tick failed")
	}
}
