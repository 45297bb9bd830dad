// Package server exposes the Flow Store Service over HTTP: agent and
// connection CRUD, flow runs, schedules and an SSE event stream.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/rendis/flowcanvas/internal/store"
	"github.com/rendis/flowcanvas/internal/streaming"
	"github.com/rendis/flowcanvas/internal/validation"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// FlowRunner executes the current flow graph and returns the run report.
type FlowRunner interface {
	Run(ctx context.Context) (*schema.RunReport, error)
}

// Deps holds the dependencies for the Flow Store server.
type Deps struct {
	Store     store.Store
	Runner    FlowRunner
	Hub       streaming.EventHub
	Validator *validation.Validator
	Logger    *slog.Logger
}

// Server serves the Flow Store HTTP API.
type Server struct {
	deps Deps
}

// NewServer creates a Server from its dependencies.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Server{deps: deps}
}

// Handler returns the HTTP handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Agents.
	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("POST /api/agents", s.handleCreateAgent)
	mux.HandleFunc("GET /api/agents/{id}", s.handleGetAgent)
	mux.HandleFunc("PUT /api/agents/{id}", s.handleUpdateAgent)
	mux.HandleFunc("DELETE /api/agents/{id}", s.handleDeleteAgent)

	// Connections.
	mux.HandleFunc("GET /api/connections", s.handleListConnections)
	mux.HandleFunc("POST /api/connections", s.handleCreateConnection)
	mux.HandleFunc("DELETE /api/connections/{id}", s.handleDeleteConnection)

	// Flow execution.
	mux.HandleFunc("POST /api/flow/run", s.handleRunFlow)

	// Schedules.
	mux.HandleFunc("GET /api/schedules", s.handleListSchedules)
	mux.HandleFunc("POST /api/schedules", s.handleCreateSchedule)
	mux.HandleFunc("PUT /api/schedules/{id}", s.handleUpdateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", s.handleDeleteSchedule)

	// SSE stream.
	mux.HandleFunc("GET /api/events", s.handleSSE)

	return mux
}

// publish emits a store mutation event; failures are logged, never fatal.
func (s *Server) publish(ctx context.Context, eventType, entityID string, payload any) {
	if s.deps.Hub == nil {
		return
	}
	event := streaming.StreamEvent{
		EventType: eventType,
		EntityID:  entityID,
		Payload:   payload,
	}
	if err := s.deps.Hub.Publish(ctx, event); err != nil {
		s.deps.Logger.Warn("event publish failed", "event_type", eventType, "error", err)
	}
}
