package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"mercator-hq/cachescript/pkg/manifest"
	"mercator-hq/cachescript/pkg/telemetry/logging"
)

// OutcomeHeader carries the outcome of the session that built the served
// document.
const OutcomeHeader = "X-Load-Outcome"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// handleDocument renders the document as built so far.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	cur := s.latest()
	if cur == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "no load session"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(OutcomeHeader, cur.session.Outcome())
	if err := cur.doc.Render(w); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to render document", "error", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	cur := s.latest()
	if cur == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no load session"})
		return
	}
	writeJSON(w, http.StatusOK, cur.session.Report())
}

// handleReload starts a new session. Manifest problems are the caller's
// fault and answer 422.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Reload(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		var cfgErr *manifest.ConfigurationError
		var depErr *manifest.DependencyError
		if errors.As(err, &cfgErr) || errors.As(err, &depErr) {
			code = http.StatusUnprocessableEntity
		}
		s.logger.WarnContext(r.Context(), "reload failed", "error", err)
		writeJSON(w, code, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, sess.Report())
}

// logRequests logs each request with its status and latency.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		level := slog.LevelDebug
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", logging.GetRequestID(ctx),
		)
	})
}
