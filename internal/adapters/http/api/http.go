// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/boxskill/internal/domain/model"
	"github.com/okian/boxskill/pkg/logger"
)

// Invoker runs one skill invocation.
type Invoker interface {
	Invoke(ctx context.Context, inv model.Invocation) (model.Result, error)
}

// Server wires HTTP routes for the skill.
type Server struct {
	healthHandler *HealthHandler
	runHandler    *RunHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(invoker Invoker, log logger.Logger) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		runHandler:    NewRunHandler(invoker, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/init", MetricsMiddleware(s.runHandler.HandleInit, "init"))
	mux.HandleFunc("/run", MetricsMiddleware(s.runHandler.HandleRun, "run"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
