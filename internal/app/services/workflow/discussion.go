package workflow

import (
	"context"
	"fmt"
	"strings"
)

// Discussion describes a thread opened for an idea or its task. The thread
// body is templated from workflow context; the operation is an optional side
// channel whose failure is fatal to this call only, never to status changes.
type Discussion struct {
	IdeaID    int
	IdeaTitle string
	TaskTitle string
	Assignees []string
	StartedBy string
}

// CreateDiscussion opens a discussion thread on the discussions list.
func (s *Service) CreateDiscussion(ctx context.Context, d Discussion) error {
	if d.IdeaID <= 0 {
		return &ValidationError{Field: "idea_id", Reason: "must be positive"}
	}
	if err := screenText("idea_title", d.IdeaTitle); err != nil {
		return err
	}

	subject := d.TaskTitle
	if subject == "" {
		subject = d.IdeaTitle
	}

	body := map[string]any{
		"__metadata": listItemMetadata(s.lists.Discussions),
		"Title":      fmt.Sprintf("Discussion: %s", subject),
		"Body":       discussionBody(d),
		"IdeaId":     d.IdeaID,
	}

	if _, err := s.gw.Create(ctx, itemsResource(s.lists.Discussions), body); err != nil {
		return err
	}

	s.log.WithField("idea_id", d.IdeaID).Info("discussion thread created")
	return nil
}

func discussionBody(d Discussion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thread for idea #%d (%s).", d.IdeaID, d.IdeaTitle)
	if d.TaskTitle != "" {
		fmt.Fprintf(&b, "\nTask: %s.", d.TaskTitle)
	}
	if len(d.Assignees) > 0 {
		fmt.Fprintf(&b, "\nAssigned to %s.", strings.Join(d.Assignees, ", "))
	}
	if d.StartedBy != "" {
		fmt.Fprintf(&b, "\nStarted by %s.", d.StartedBy)
	}
	return b.String()
}
