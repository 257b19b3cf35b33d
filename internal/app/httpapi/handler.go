// Package httpapi exposes the thin REST surface the browser dashboard
// consumes. All orchestration lives in the board engine; handlers translate
// HTTP to engine calls and back.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/domain/idea"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/metrics"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/services/board"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/internal/app/services/workflow"
	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/pkg/logger"
)

// Config controls the HTTP surface.
type Config struct {
	// AllowedOrigins for CORS; empty disables cross-origin access.
	AllowedOrigins []string
	// RequestTimeout bounds handler execution.
	RequestTimeout time.Duration
	// Logger receives per-request log lines.
	Logger *logger.Logger
}

type handler struct {
	engine *board.Engine
}

// NewHandler returns the dashboard API router.
func NewHandler(engine *board.Engine, cfg Config) http.Handler {
	h := &handler{engine: engine}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault("httpapi")
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(requestLog(log))

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/ideas", h.listIdeas)
		r.Post("/ideas", h.submitIdea)
		r.Post("/ideas/{id}/status", h.changeStatus)
		r.Post("/ideas/{id}/discussion", h.startDiscussion)
		r.Post("/undo", h.undo)
		r.Get("/activity", h.listActivity)
	})

	return metrics.InstrumentHandler(r)
}

func (h *handler) listIdeas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ideas":        h.engine.Ideas(),
		"last_updated": h.engine.LastUpdated(),
	})
}

func (h *handler) submitIdea(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.engine.SubmitIdea(r.Context(), idea.Draft{
		Title:       payload.Title,
		Description: payload.Description,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid idea id"))
		return
	}

	var payload struct {
		Status        string `json:"status"`
		SkipReconcile bool   `json:"skip_reconcile"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	status := idea.Status(payload.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, errors.New("unknown status"))
		return
	}

	if err := h.engine.ApplyStatusChange(r.Context(), id, status, payload.SkipReconcile); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          id,
		"status":      status,
		"last_action": h.engine.LastAction(),
	})
}

func (h *handler) startDiscussion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid idea id"))
		return
	}

	var payload struct {
		TaskTitle string   `json:"task_title"`
		Assignees []string `json:"assignees"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.engine.StartDiscussion(r.Context(), id, payload.TaskTitle, payload.Assignees); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) undo(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Undo(r.Context()); err != nil {
		if errors.Is(err, board.ErrNothingToUndo) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ideas": h.engine.Ideas()})
}

func (h *handler) listActivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": h.engine.Activity()})
}

func statusFor(err error) int {
	var validation *workflow.ValidationError
	switch {
	case errors.Is(err, board.ErrUnknownIdea):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
