package idea

import "time"

// Status is the workflow state of an idea. Transitions are the only field
// this subsystem mutates; everything else is set at creation.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is one of the known workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Idea is a workflow entity held in the backing list.
type Idea struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	AuthorName  string    `json:"author_name,omitempty"`
	AuthorID    int       `json:"author_id,omitempty"`
	DecidedBy   string    `json:"decided_by,omitempty"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

// Draft is the creation payload for a new idea.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorID    int    `json:"author_id,omitempty"`
}
