package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/domain/audit"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/domain/idea"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/services/board"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/services/workflow"
)

// stubOps backs the engine with fixed in-memory data for handler tests.
type stubOps struct {
	mu     sync.Mutex
	ideas  []idea.Idea
	events []audit.Event
}

func (s *stubOps) ListIdeas(ctx context.Context) ([]idea.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]idea.Idea, len(s.ideas))
	copy(out, s.ideas)
	return out, nil
}

func (s *stubOps) ListAuditEvents(ctx context.Context, ideaID int) ([]audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *stubOps) CreateIdea(ctx context.Context, draft idea.Draft) (idea.Idea, error) {
	if err := screenDraft(draft); err != nil {
		return idea.Idea{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created := idea.Idea{ID: len(s.ideas) + 100, Title: draft.Title, Status: idea.StatusPending}
	s.ideas = append(s.ideas, created)
	return created, nil
}

// screenDraft mirrors the workflow service's input screening so handler tests
// can exercise the 400 path without a backend.
func screenDraft(draft idea.Draft) error {
	if strings.TrimSpace(draft.Title) == "" {
		return &workflow.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	return nil
}

func (s *stubOps) UpdateIdeaStatus(ctx context.Context, id int, status idea.Status, extra map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ideas {
		if s.ideas[i].ID == id {
			s.ideas[i].Status = status
		}
	}
	return nil
}

func (s *stubOps) CreateAuditEvent(ctx context.Context, ev audit.Event) error { return nil }

func (s *stubOps) CreateDiscussion(ctx context.Context, d workflow.Discussion) error { return nil }

func newTestServer(t *testing.T, ops *stubOps) *httptest.Server {
	t.Helper()
	engine := board.New(ops, board.Actor{Name: "reviewer"}, nil).WithReconcileDelay(5 * time.Millisecond)
	if err := engine.LoadIdeas(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		engine.Stop(ctx)
	})

	srv := httptest.NewServer(NewHandler(engine, Config{}))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, dst any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string, dst any) int {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if dst != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestHandler_Healthz(t *testing.T) {
	srv := newTestServer(t, &stubOps{})
	var body map[string]string
	if code := getJSON(t, srv, "/healthz", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestHandler_ListIdeas(t *testing.T) {
	srv := newTestServer(t, &stubOps{ideas: []idea.Idea{
		{ID: 1, Title: "Faster builds", Status: idea.StatusPending},
		{ID: 2, Title: "Dark mode", Status: idea.StatusApproved},
	}})

	var body struct {
		Ideas       []idea.Idea `json:"ideas"`
		LastUpdated time.Time   `json:"last_updated"`
	}
	if code := getJSON(t, srv, "/api/ideas", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Ideas) != 2 || body.Ideas[0].Title != "Faster builds" {
		t.Errorf("ideas = %+v", body.Ideas)
	}
	if body.LastUpdated.IsZero() {
		t.Error("last_updated missing")
	}
}

func TestHandler_SubmitIdea(t *testing.T) {
	srv := newTestServer(t, &stubOps{})

	var created idea.Idea
	code := postJSON(t, srv, "/api/ideas", `{"title":"Dark mode","description":"Respect the OS theme."}`, &created)
	if code != http.StatusCreated {
		t.Fatalf("status = %d", code)
	}
	if created.ID == 0 || created.Status != idea.StatusPending {
		t.Errorf("created = %+v", created)
	}
}

func TestHandler_SubmitIdeaValidation(t *testing.T) {
	srv := newTestServer(t, &stubOps{})

	if code := postJSON(t, srv, "/api/ideas", `{"title":""}`, nil); code != http.StatusBadRequest {
		t.Errorf("empty title status = %d, want 400", code)
	}
	if code := postJSON(t, srv, "/api/ideas", `{"title":"x","bogus":true}`, nil); code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", code)
	}
}

func TestHandler_ChangeStatus(t *testing.T) {
	srv := newTestServer(t, &stubOps{ideas: []idea.Idea{
		{ID: 1, Title: "Faster builds", Status: idea.StatusPending},
	}})

	var body struct {
		ID         int               `json:"id"`
		Status     idea.Status       `json:"status"`
		LastAction *board.LastAction `json:"last_action"`
	}
	code := postJSON(t, srv, "/api/ideas/1/status", `{"status":"Approved","skip_reconcile":true}`, &body)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Status != idea.StatusApproved || body.LastAction == nil {
		t.Errorf("body = %+v", body)
	}
	if body.LastAction.PrevStatus != idea.StatusPending {
		t.Errorf("last action prev = %s", body.LastAction.PrevStatus)
	}
}

func TestHandler_ChangeStatusErrors(t *testing.T) {
	srv := newTestServer(t, &stubOps{ideas: []idea.Idea{
		{ID: 1, Status: idea.StatusPending},
	}})

	if code := postJSON(t, srv, "/api/ideas/abc/status", `{"status":"Approved"}`, nil); code != http.StatusBadRequest {
		t.Errorf("non-numeric id status = %d, want 400", code)
	}
	if code := postJSON(t, srv, "/api/ideas/1/status", `{"status":"Archived"}`, nil); code != http.StatusBadRequest {
		t.Errorf("unknown workflow state status = %d, want 400", code)
	}
	if code := postJSON(t, srv, "/api/ideas/99/status", `{"status":"Approved"}`, nil); code != http.StatusNotFound {
		t.Errorf("unknown idea status = %d, want 404", code)
	}
}

func TestHandler_UndoFlow(t *testing.T) {
	srv := newTestServer(t, &stubOps{ideas: []idea.Idea{
		{ID: 1, Status: idea.StatusPending},
	}})

	if code := postJSON(t, srv, "/api/undo", ``, nil); code != http.StatusConflict {
		t.Fatalf("undo with no record status = %d, want 409", code)
	}

	if code := postJSON(t, srv, "/api/ideas/1/status", `{"status":"Approved","skip_reconcile":true}`, nil); code != http.StatusOK {
		t.Fatalf("approve status = %d", code)
	}

	var body struct {
		Ideas []idea.Idea `json:"ideas"`
	}
	if code := postJSON(t, srv, "/api/undo", ``, &body); code != http.StatusOK {
		t.Fatalf("undo status = %d", code)
	}
	if len(body.Ideas) != 1 || body.Ideas[0].Status != idea.StatusPending {
		t.Errorf("ideas after undo = %+v", body.Ideas)
	}
}

func TestHandler_StartDiscussion(t *testing.T) {
	srv := newTestServer(t, &stubOps{ideas: []idea.Idea{
		{ID: 1, Title: "Faster builds", Status: idea.StatusApproved},
	}})

	code := postJSON(t, srv, "/api/ideas/1/discussion", `{"task_title":"Build cache","assignees":["dana"]}`, nil)
	if code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", code)
	}
}

func TestHandler_ListActivity(t *testing.T) {
	srv := newTestServer(t, &stubOps{events: []audit.Event{
		{ID: "e-1", IdeaID: 1, Kind: audit.KindApproved},
	}})

	var body struct {
		Events []audit.Event `json:"events"`
	}
	if code := getJSON(t, srv, "/api/activity", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Events) != 1 || body.Events[0].Kind != audit.KindApproved {
		t.Errorf("events = %+v", body.Events)
	}
}

func TestHandler_Metrics(t *testing.T) {
	srv := newTestServer(t, &stubOps{})
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
