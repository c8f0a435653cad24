// Package api exposes the assessment, NewMe and admin surfaces over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/newomen/newomen-ai/internal/ai"
	"github.com/newomen/newomen-ai/internal/assessment"
	"github.com/newomen/newomen-ai/internal/newme"
	"github.com/newomen/newomen-ai/internal/usage"
)

// UsageLister reads back recorded usage for the admin export.
type UsageLister interface {
	ListRecent(ctx context.Context, limit int) ([]usage.Entry, error)
}

// HealthCheck probes one dependency for readiness.
type HealthCheck func(ctx context.Context) error

// Server holds the wired services behind the HTTP surface. Optional
// collaborators may be nil; their endpoints answer 503.
type Server struct {
	Assessments *assessment.Service
	Agent       *newme.Service
	Registry    *ai.Registry
	Usage       UsageLister
	Checks      map[string]HealthCheck
}

// NewMux builds the router over the server's services.
func (s *Server) NewMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/assessments/score", s.handleScoreAssessment)
	mux.HandleFunc("POST /api/quizzes/score", s.handleScoreQuiz)
	mux.HandleFunc("POST /api/challenges/feedback", s.handleChallengeFeedback)

	mux.HandleFunc("POST /api/assessments/{id}/attempts", s.handleCreateAttempt)
	mux.HandleFunc("POST /api/attempts/{id}/responses", s.handleSubmitResponses)
	mux.HandleFunc("POST /api/attempts/{id}/process", s.handleProcessAttempt)

	mux.HandleFunc("POST /api/newme/chat", s.handleNewMeChat)
	mux.HandleFunc("GET /api/newme/greeting", s.handleNewMeGreeting)

	mux.HandleFunc("GET /api/admin/configurations", s.handleListConfigurations)
	mux.HandleFunc("POST /api/admin/configurations", s.handleCreateConfiguration)
	mux.HandleFunc("PUT /api/admin/configurations/{id}", s.handleUpdateConfiguration)
	mux.HandleFunc("DELETE /api/admin/configurations/{id}", s.handleDeleteConfiguration)
	mux.HandleFunc("GET /api/admin/usage/export", s.handleUsageExport)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	for name, check := range s.Checks {
		if err := check(r.Context()); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":     "unavailable",
				"dependency": name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
