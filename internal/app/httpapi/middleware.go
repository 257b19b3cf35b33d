package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/israrulhaq-IFL/innovative-idea-development-sub002/pkg/logger"
)

// requestLog tags every request with a trace id and logs method, path,
// status, and duration once the handler returns.
func requestLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get("X-Trace-Id")
			if traceID == "" {
				traceID = uuid.NewString()
			}
			w.Header().Set("X-Trace-Id", traceID)

			rw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rw, r)

			log.WithFields(map[string]any{
				"trace_id": traceID,
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rw.status,
				"duration": time.Since(start).String(),
			}).Debug("request handled")
		})
	}
}

type loggingWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
