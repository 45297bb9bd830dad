package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/flowcanvas/internal/geometry"
	"github.com/rendis/flowcanvas/internal/store"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// --- Agents ---

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.deps.Store.ListAgents(r.Context())
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if agents == nil {
		agents = []*schema.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agent, err := s.decodeAgent(r)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	agent.ID = uuid.New().String()
	if err := s.deps.Store.CreateAgent(ctx, agent); err != nil {
		writeFlowError(w, err)
		return
	}

	s.publish(ctx, schema.EventAgentCreated, agent.ID, agent)
	writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.deps.Store.GetAgent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	agent, err := s.decodeAgent(r)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	// The path id wins over any id in the payload.
	agent.ID = id
	if err := s.deps.Store.UpdateAgent(ctx, agent); err != nil {
		writeFlowError(w, err)
		return
	}

	s.publish(ctx, schema.EventAgentUpdated, agent.ID, agent)
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	removedConns, err := s.deps.Store.DeleteAgent(ctx, id)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	for _, connID := range removedConns {
		s.publish(ctx, schema.EventConnectionDeleted, connID, nil)
	}
	s.publish(ctx, schema.EventAgentDeleted, id, nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"id":                  id,
		"removed_connections": removedConns,
	})
}

// decodeAgent validates and unmarshals an agent payload, normalizing the
// position to non-negative coordinates and the config to a non-nil map.
func (s *Server) decodeAgent(r *http.Request) (*schema.Agent, error) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "read request body").WithCause(err)
	}
	if err := s.deps.Validator.ValidateAgent(payload); err != nil {
		return nil, err
	}

	var agent schema.Agent
	if err := json.Unmarshal(payload, &agent); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid agent payload").WithCause(err)
	}

	agent.Position = geometry.ClampPosition(agent.Position.X, agent.Position.Y)
	if agent.Config == nil {
		agent.Config = map[string]string{}
	}
	return &agent, nil
}

// --- Connections ---

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.deps.Store.ListConnections(r.Context())
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if conns == nil {
		conns = []*schema.Connection{}
	}
	writeJSON(w, http.StatusOK, conns)
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}
	if err := s.deps.Validator.ValidateConnection(payload); err != nil {
		writeFlowError(w, err)
		return
	}

	var conn schema.Connection
	if err := json.Unmarshal(payload, &conn); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid connection payload: %v", err))
		return
	}
	if conn.SourceAgentID == conn.TargetAgentID {
		writeError(w, http.StatusBadRequest, "connection cannot link an agent to itself")
		return
	}

	conn.ID = uuid.New().String()
	if err := s.deps.Store.CreateConnection(ctx, &conn); err != nil {
		writeFlowError(w, err)
		return
	}

	s.publish(ctx, schema.EventConnectionCreated, conn.ID, &conn)
	writeJSON(w, http.StatusCreated, &conn)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := s.deps.Store.DeleteConnection(ctx, id); err != nil {
		writeFlowError(w, err)
		return
	}

	s.publish(ctx, schema.EventConnectionDeleted, id, nil)
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// --- Flow execution ---

func (s *Server) handleRunFlow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := s.deps.Runner.Run(ctx)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	s.publish(ctx, schema.EventFlowRan, "", report)
	writeJSON(w, http.StatusOK, report)
}

// --- Schedules ---

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.deps.Store.ListSchedules(r.Context(), store.ScheduleFilter{})
	if err != nil {
		writeFlowError(w, err)
		return
	}
	if schedules == nil {
		schedules = []*store.Schedule{}
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body struct {
		CronExpression string `json:"cron_expression"`
		Enabled        bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if body.CronExpression == "" {
		writeError(w, http.StatusBadRequest, "cron_expression is required")
		return
	}

	sched := &store.Schedule{
		ID:             uuid.New().String(),
		CronExpression: body.CronExpression,
		Enabled:        body.Enabled,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.deps.Store.CreateSchedule(ctx, sched); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sched)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if err := s.deps.Store.UpdateSchedule(ctx, id, store.ScheduleUpdate{
		Enabled: body.Enabled,
	}); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "id": id})
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := s.deps.Store.DeleteSchedule(ctx, id); err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "id": id})
}
