package server

import (
	"net/http"
	"time"

	"github.com/avfe/dlg4vtmb/pkg/observability"
)

// statusWriter wraps http.ResponseWriter to capture the status code. The
// first WriteHeader wins; an implicit Write defaults to 200.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.status = http.StatusOK
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for middleware compatibility.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// logRequests reports every request to the shared logger and the HTTP
// hooks.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		sw := newStatusWriter(w)
		start := time.Now()
		next.ServeHTTP(sw, r)
		elapsed := time.Since(start)

		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, sw.status, elapsed)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", elapsed)
	})
}
