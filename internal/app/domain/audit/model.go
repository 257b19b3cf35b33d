// Package audit defines the append-only activity trail recorded alongside
// workflow transitions. Events are best-effort: once an entity mutation has
// succeeded, a failed event write is logged and dropped, never rolled back.
package audit

import (
	"time"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/domain/idea"
)

// Kind tags the business meaning of an event.
type Kind string

const (
	KindSubmitted     Kind = "submitted"
	KindApproved      Kind = "approved"
	KindRejected      Kind = "rejected"
	KindStatusChanged Kind = "status_changed"
	KindCommented     Kind = "commented"
	KindTaskCreated   Kind = "task_created"
	KindCompleted     Kind = "completed"
)

// Event is one immutable audit trail record.
type Event struct {
	ID          string         `json:"id"`
	IdeaID      int            `json:"idea_id"`
	Kind        Kind           `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	ActorName   string         `json:"actor_name,omitempty"`
	ActorID     int            `json:"actor_id,omitempty"`
	PrevStatus  idea.Status    `json:"prev_status,omitempty"`
	NewStatus   idea.Status    `json:"new_status,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// KindForTransition derives the event kind from a status transition.
// Approval decisions and the two task-lifecycle transitions get specific
// kinds; everything else is a generic status change.
func KindForTransition(prev, next idea.Status) Kind {
	switch {
	case next == idea.StatusApproved:
		return KindApproved
	case next == idea.StatusRejected:
		return KindRejected
	case prev == idea.StatusApproved && next == idea.StatusInProgress:
		return KindTaskCreated
	case prev == idea.StatusInProgress && next == idea.StatusCompleted:
		return KindCompleted
	default:
		return KindStatusChanged
	}
}
