// Package workflow exposes the business-level list operations the dashboard
// needs: idea CRUD, status updates, and the append-only activity trail. It is
// a thin typed facade over the gateway; retry and serialization behaviour is
// inherited from there and failures propagate unchanged.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/domain/audit"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/domain/idea"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/sharepoint"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/pkg/logger"
)

// Gateway is the slice of the secure API gateway this service consumes.
type Gateway interface {
	Get(ctx context.Context, resource string) (sharepoint.Payload, error)
	Create(ctx context.Context, resource string, body any) (sharepoint.Payload, error)
	Update(ctx context.Context, resource string, body any, etag string) (sharepoint.Payload, error)
	Remove(ctx context.Context, resource string) error
}

// Lists names the backing list titles.
type Lists struct {
	Ideas       string
	Activity    string
	Discussions string
}

// Service is the domain operation facade.
type Service struct {
	gw    Gateway
	lists Lists
	log   *logger.Logger
}

// New constructs the workflow service.
func New(gw Gateway, lists Lists, log *logger.Logger) (*Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if lists.Ideas == "" {
		lists.Ideas = "Ideas"
	}
	if lists.Activity == "" {
		lists.Activity = "IdeaActivity"
	}
	if lists.Discussions == "" {
		lists.Discussions = "IdeaDiscussions"
	}
	if log == nil {
		log = logger.NewDefault("workflow")
	}
	return &Service{gw: gw, lists: lists, log: log}, nil
}

// ListIdeas fetches the full idea collection.
func (s *Service) ListIdeas(ctx context.Context) ([]idea.Idea, error) {
	payload, err := s.gw.Get(ctx, itemsResource(s.lists.Ideas))
	if err != nil {
		return nil, err
	}

	results := payload.Results()
	ideas := make([]idea.Idea, 0, len(results))
	for _, r := range results {
		ideas = append(ideas, translateIdea(r))
	}
	return ideas, nil
}

// CreateIdea submits a new idea and returns the server's view of it.
func (s *Service) CreateIdea(ctx context.Context, draft idea.Draft) (idea.Idea, error) {
	if err := screenText("title", draft.Title); err != nil {
		return idea.Idea{}, err
	}
	if draft.Description != "" {
		if err := screenText("description", draft.Description); err != nil {
			return idea.Idea{}, err
		}
	}

	body := map[string]any{
		"__metadata":  listItemMetadata(s.lists.Ideas),
		"Title":       draft.Title,
		"Description": draft.Description,
		"Status":      string(idea.StatusPending),
		"AuthorName":  draft.AuthorName,
		"AuthorId":    draft.AuthorID,
	}

	payload, err := s.gw.Create(ctx, itemsResource(s.lists.Ideas), body)
	if err != nil {
		return idea.Idea{}, err
	}

	created := translateIdea(payload.Result())
	s.log.WithField("idea_id", created.ID).Info("idea created")
	return created, nil
}

// UpdateIdeaStatus merges a status change (plus any extra fields, e.g. the
// deciding user) into the idea item. Exactly one gateway call.
func (s *Service) UpdateIdeaStatus(ctx context.Context, id int, status idea.Status, extra map[string]any) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	body := map[string]any{
		"__metadata": listItemMetadata(s.lists.Ideas),
		"Status":     string(status),
	}
	for k, v := range extra {
		body[k] = v
	}

	_, err := s.gw.Update(ctx, itemResource(s.lists.Ideas, id), body, "")
	return err
}

// CreateAuditEvent appends one event to the activity list. The trail is
// append-only; there is no update or delete counterpart.
func (s *Service) CreateAuditEvent(ctx context.Context, ev audit.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	body := map[string]any{
		"__metadata":  listItemMetadata(s.lists.Activity),
		"Title":       ev.Title,
		"EventId":     ev.ID,
		"EventType":   string(ev.Kind),
		"Description": ev.Description,
		"ActorName":   ev.ActorName,
		"ActorId":     ev.ActorID,
		"IdeaId":      ev.IdeaID,
	}
	if ev.PrevStatus != "" {
		body["PrevStatus"] = string(ev.PrevStatus)
	}
	if ev.NewStatus != "" {
		body["NewStatus"] = string(ev.NewStatus)
	}
	if len(ev.Metadata) > 0 {
		meta, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("marshal event metadata: %w", err)
		}
		body["Metadata"] = string(meta)
	}

	_, err := s.gw.Create(ctx, itemsResource(s.lists.Activity), body)
	return err
}

// ListAuditEvents fetches the activity trail, optionally scoped to one idea.
func (s *Service) ListAuditEvents(ctx context.Context, ideaID int) ([]audit.Event, error) {
	resource := itemsResource(s.lists.Activity)
	if ideaID > 0 {
		q := url.Values{"$filter": {fmt.Sprintf("IdeaId eq %d", ideaID)}}
		resource += "?" + q.Encode()
	}

	payload, err := s.gw.Get(ctx, resource)
	if err != nil {
		return nil, err
	}

	results := payload.Results()
	events := make([]audit.Event, 0, len(results))
	for _, r := range results {
		events = append(events, translateEvent(r))
	}
	return events, nil
}

func itemsResource(list string) string {
	return fmt.Sprintf("web/lists/getbytitle('%s')/items", list)
}

func itemResource(list string, id int) string {
	return fmt.Sprintf("web/lists/getbytitle('%s')/items(%d)", list, id)
}

func listItemMetadata(list string) map[string]string {
	name := strings.ReplaceAll(list, " ", "_x0020_")
	return map[string]string{"type": "SP.Data." + name + "ListItem"}
}

func translateIdea(r gjson.Result) idea.Idea {
	return idea.Idea{
		ID:          int(r.Get("Id").Int()),
		Title:       r.Get("Title").String(),
		Description: r.Get("Description").String(),
		Status:      idea.Status(r.Get("Status").String()),
		AuthorName:  r.Get("AuthorName").String(),
		AuthorID:    int(r.Get("AuthorId").Int()),
		DecidedBy:   r.Get("DecidedBy").String(),
		Created:     parseTime(r.Get("Created").String()),
		Modified:    parseTime(r.Get("Modified").String()),
	}
}

func translateEvent(r gjson.Result) audit.Event {
	ev := audit.Event{
		ID:          r.Get("EventId").String(),
		IdeaID:      int(r.Get("IdeaId").Int()),
		Kind:        audit.Kind(r.Get("EventType").String()),
		Title:       r.Get("Title").String(),
		Description: r.Get("Description").String(),
		ActorName:   r.Get("ActorName").String(),
		ActorID:     int(r.Get("ActorId").Int()),
		PrevStatus:  idea.Status(r.Get("PrevStatus").String()),
		NewStatus:   idea.Status(r.Get("NewStatus").String()),
		CreatedAt:   parseTime(r.Get("Created").String()),
	}
	if raw := r.Get("Metadata").String(); raw != "" {
		var meta map[string]any
		if err := json.Unmarshal([]byte(raw), &meta); err == nil {
			ev.Metadata = meta
		}
	}
	return ev
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
