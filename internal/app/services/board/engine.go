// Package board holds the client-visible view of the idea workflow and keeps
// it converged with the backing store. Status changes are applied to the
// local view once the server acknowledges them, audit events are emitted
// best-effort, and a delayed re-fetch reconciles server-computed fields. A
// single-slot last-action record supports one level of undo.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/domain/audit"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/domain/idea"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/metrics"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/services/workflow"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/pkg/logger"
)

const defaultReconcileDelay = time.Second

// ErrNothingToUndo is returned by Undo when no action has been recorded.
var ErrNothingToUndo = errors.New("nothing to undo")

// ErrUnknownIdea is returned when an operation targets an idea that is not in
// the local view. Detected before any network call.
var ErrUnknownIdea = errors.New("idea not loaded")

// Operations is the slice of the workflow service the engine consumes.
type Operations interface {
	ListIdeas(ctx context.Context) ([]idea.Idea, error)
	ListAuditEvents(ctx context.Context, ideaID int) ([]audit.Event, error)
	CreateIdea(ctx context.Context, draft idea.Draft) (idea.Idea, error)
	UpdateIdeaStatus(ctx context.Context, id int, status idea.Status, extra map[string]any) error
	CreateAuditEvent(ctx context.Context, ev audit.Event) error
	CreateDiscussion(ctx context.Context, d workflow.Discussion) error
}

// Actor identifies the user the engine acts on behalf of.
type Actor struct {
	Name string
	ID   int
}

// LastAction is the single-slot undo record. It captures the status the idea
// held immediately before the most recent status-changing action; a new
// action overwrites it (last-action-wins, no history stack).
type LastAction struct {
	IdeaID     int         `json:"idea_id"`
	PrevStatus idea.Status `json:"prev_status"`
	NewStatus  idea.Status `json:"new_status"`
	At         time.Time   `json:"at"`
}

// Engine is the state reconciliation core.
type Engine struct {
	ops            Operations
	actor          Actor
	log            *logger.Logger
	reconcileDelay time.Duration

	mu          sync.Mutex
	ideas       []idea.Idea
	activity    []audit.Event
	lastUpdated time.Time
	lastAction  *LastAction

	tasks *taskGroup
}

// New constructs an engine over the given operations.
func New(ops Operations, actor Actor, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("board")
	}
	return &Engine{
		ops:            ops,
		actor:          actor,
		log:            log,
		reconcileDelay: defaultReconcileDelay,
		tasks:          newTaskGroup(),
	}
}

// WithReconcileDelay overrides the delay before a reconciliation fetch.
func (e *Engine) WithReconcileDelay(d time.Duration) *Engine {
	if d > 0 {
		e.reconcileDelay = d
	}
	return e
}

// LoadIdeas replaces the local view with the server's. Ideas and the
// activity trail are fetched in parallel.
func (e *Engine) LoadIdeas(ctx context.Context) error {
	var (
		ideas  []idea.Idea
		events []audit.Event
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ideas, err = e.ops.ListIdeas(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = e.ops.ListAuditEvents(gctx, 0)
		if err != nil {
			// The activity trail is a non-critical side channel; an empty
			// trail is the safe fallback.
			e.log.WithError(err).Warn("load activity trail failed")
			events = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load ideas: %w", err)
	}

	e.mu.Lock()
	e.ideas = ideas
	e.activity = events
	e.lastUpdated = time.Now()
	e.mu.Unlock()

	e.log.WithField("count", len(ideas)).Debug("idea collection loaded")
	return nil
}

// ApplyStatusChange moves an idea to newStatus. The last-action record is set
// synchronously before any network I/O so undo reflects the correct pre-action
// state even while the call is pending. The local view is updated only after
// the server acknowledges the change. Unless skipReconcile is set, a delayed
// re-fetch converges the local view with server-computed fields; undo passes
// skipReconcile so the fetch cannot race the revert.
func (e *Engine) ApplyStatusChange(ctx context.Context, id int, newStatus idea.Status, skipReconcile bool) error {
	e.mu.Lock()
	current, ok := e.findLocked(id)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("idea %d: %w", id, ErrUnknownIdea)
	}
	prev := current.Status
	title := current.Title
	e.lastAction = &LastAction{
		IdeaID:     id,
		PrevStatus: prev,
		NewStatus:  newStatus,
		At:         time.Now(),
	}
	e.mu.Unlock()

	extra := map[string]any{}
	if newStatus == idea.StatusApproved || newStatus == idea.StatusRejected {
		extra["DecidedBy"] = e.actor.Name
	}

	if err := e.ops.UpdateIdeaStatus(ctx, id, newStatus, extra); err != nil {
		return fmt.Errorf("update idea %d status: %w", id, err)
	}

	e.recordTransition(ctx, id, title, prev, newStatus)

	now := time.Now()
	e.mu.Lock()
	if current, ok := e.findLocked(id); ok {
		current.Status = newStatus
		current.Modified = now
	}
	e.lastUpdated = now
	e.mu.Unlock()

	if !skipReconcile {
		e.scheduleReconcile()
	}
	return nil
}

// Undo replays the recorded pre-action status with reconciliation skipped,
// then clears the record. Only the most recent action can be undone.
func (e *Engine) Undo(ctx context.Context) error {
	e.mu.Lock()
	rec := e.lastAction
	e.mu.Unlock()
	if rec == nil {
		return ErrNothingToUndo
	}

	if err := e.ApplyStatusChange(ctx, rec.IdeaID, rec.PrevStatus, true); err != nil {
		return err
	}

	e.mu.Lock()
	e.lastAction = nil
	e.mu.Unlock()
	return nil
}

// SubmitIdea creates a new idea, records a submitted event best-effort, and
// appends the server's view of the idea to the local collection.
func (e *Engine) SubmitIdea(ctx context.Context, draft idea.Draft) (idea.Idea, error) {
	if draft.AuthorName == "" {
		draft.AuthorName = e.actor.Name
		draft.AuthorID = e.actor.ID
	}

	created, err := e.ops.CreateIdea(ctx, draft)
	if err != nil {
		return idea.Idea{}, err
	}

	e.recordEvent(ctx, audit.Event{
		IdeaID:      created.ID,
		Kind:        audit.KindSubmitted,
		Title:       fmt.Sprintf("Idea %q submitted", created.Title),
		Description: fmt.Sprintf("%s submitted a new idea.", draft.AuthorName),
		NewStatus:   idea.StatusPending,
	})

	e.mu.Lock()
	e.ideas = append(e.ideas, created)
	e.lastUpdated = time.Now()
	e.mu.Unlock()

	return created, nil
}

// StartDiscussion opens a discussion thread for an idea. Failure is fatal to
// this call only; it never affects status-change operations.
func (e *Engine) StartDiscussion(ctx context.Context, ideaID int, taskTitle string, assignees []string) error {
	e.mu.Lock()
	current, ok := e.findLocked(ideaID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("idea %d: %w", ideaID, ErrUnknownIdea)
	}
	ideaTitle := current.Title
	e.mu.Unlock()

	err := e.ops.CreateDiscussion(ctx, workflow.Discussion{
		IdeaID:    ideaID,
		IdeaTitle: ideaTitle,
		TaskTitle: taskTitle,
		Assignees: assignees,
		StartedBy: e.actor.Name,
	})
	if err != nil {
		return fmt.Errorf("create discussion for idea %d: %w", ideaID, err)
	}

	e.recordEvent(ctx, audit.Event{
		IdeaID:      ideaID,
		Kind:        audit.KindCommented,
		Title:       fmt.Sprintf("Discussion opened for %q", ideaTitle),
		Description: fmt.Sprintf("%s opened a discussion thread.", e.actor.Name),
	})
	return nil
}

// recordTransition emits the audit event derived from a status transition.
// The entity mutation has already succeeded, so a failed event write is
// logged and dropped.
func (e *Engine) recordTransition(ctx context.Context, id int, title string, prev, next idea.Status) {
	kind := audit.KindForTransition(prev, next)
	e.recordEvent(ctx, audit.Event{
		IdeaID:      id,
		Kind:        kind,
		Title:       fmt.Sprintf("Idea %q %s", title, string(kind)),
		Description: fmt.Sprintf("Status changed from %s to %s by %s.", prev, next, e.actor.Name),
		PrevStatus:  prev,
		NewStatus:   next,
	})
}

func (e *Engine) recordEvent(ctx context.Context, ev audit.Event) {
	ev.ActorName = e.actor.Name
	ev.ActorID = e.actor.ID
	if err := e.ops.CreateAuditEvent(ctx, ev); err != nil {
		metrics.RecordAuditFailure()
		e.log.WithError(err).
			WithField("idea_id", ev.IdeaID).
			WithField("kind", string(ev.Kind)).
			Warn("audit trail write failed, event dropped")
	}
}

// scheduleReconcile queues one delayed full re-fetch. The fetch runs on the
// engine's own background context so a caller losing interest cannot cancel
// it; only Stop aborts pending fetches.
func (e *Engine) scheduleReconcile() {
	scheduled := e.tasks.After(e.reconcileDelay, func() {
		metrics.RecordReconcileFetch()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.LoadIdeas(ctx); err != nil {
			e.log.WithError(err).Warn("reconciliation fetch failed")
		}
	})
	if !scheduled {
		e.log.Debug("engine stopped, reconciliation fetch dropped")
	}
}

// Flush blocks until every scheduled reconciliation fetch has completed.
func (e *Engine) Flush() {
	e.tasks.Flush()
}

// Ideas returns a snapshot of the local idea collection.
func (e *Engine) Ideas() []idea.Idea {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]idea.Idea, len(e.ideas))
	copy(out, e.ideas)
	return out
}

// Activity returns a snapshot of the loaded activity trail.
func (e *Engine) Activity() []audit.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]audit.Event, len(e.activity))
	copy(out, e.activity)
	return out
}

// CountByStatus reports how many local ideas hold the given status.
func (e *Engine) CountByStatus(status idea.Status) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for i := range e.ideas {
		if e.ideas[i].Status == status {
			n++
		}
	}
	return n
}

// LastUpdated reports when the local collection last changed.
func (e *Engine) LastUpdated() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUpdated
}

// LastAction returns a copy of the current undo record, or nil.
func (e *Engine) LastAction() *LastAction {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastAction == nil {
		return nil
	}
	rec := *e.lastAction
	return &rec
}

func (e *Engine) findLocked(id int) (*idea.Idea, bool) {
	for i := range e.ideas {
		if e.ideas[i].ID == id {
			return &e.ideas[i], true
		}
	}
	return nil, false
}

// Name implements the lifecycle service interface.
func (e *Engine) Name() string { return "board-engine" }

// Start implements the lifecycle service interface.
func (e *Engine) Start(ctx context.Context) error { return nil }

// Stop aborts pending reconciliation fetches and waits for running ones.
func (e *Engine) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.tasks.Stop()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
