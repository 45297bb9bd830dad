package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// MemoryStore is an in-memory Store implementation. It is the default for
// development and tests; state does not survive a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	agents      map[string]*schema.Agent
	connections map[string]*schema.Connection
	schedules   map[string]*Schedule
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:      make(map[string]*schema.Agent),
		connections: make(map[string]*schema.Connection),
		schedules:   make(map[string]*Schedule),
	}
}

// --- Agents ---

func (s *MemoryStore) CreateAgent(ctx context.Context, a *schema.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[a.ID]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "agent %q already exists", a.ID)
	}
	s.agents[a.ID] = a.Clone()
	return nil
}

func (s *MemoryStore) GetAgent(ctx context.Context, id string) (*schema.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "agent %q not found", id)
	}
	return a.Clone(), nil
}

func (s *MemoryStore) UpdateAgent(ctx context.Context, a *schema.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "agent %q not found", a.ID)
	}
	s.agents[a.ID] = a.Clone()
	return nil
}

func (s *MemoryStore) DeleteAgent(ctx context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "agent %q not found", id)
	}
	delete(s.agents, id)

	var removed []string
	for cid, c := range s.connections {
		if c.SourceAgentID == id || c.TargetAgentID == id {
			removed = append(removed, cid)
			delete(s.connections, cid)
		}
	}
	sort.Strings(removed)
	return removed, nil
}

func (s *MemoryStore) ListAgents(ctx context.Context) ([]*schema.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*schema.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Connections ---

func (s *MemoryStore) CreateConnection(ctx context.Context, c *schema.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[c.SourceAgentID]; !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "source agent %q not found", c.SourceAgentID)
	}
	if _, ok := s.agents[c.TargetAgentID]; !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "target agent %q not found", c.TargetAgentID)
	}
	if _, exists := s.connections[c.ID]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "connection %q already exists", c.ID)
	}
	cp := *c
	s.connections[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetConnection(ctx context.Context, id string) (*schema.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connections[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "connection %q not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) DeleteConnection(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connections[id]; !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "connection %q not found", id)
	}
	delete(s.connections, id)
	return nil
}

func (s *MemoryStore) ListConnections(ctx context.Context) ([]*schema.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*schema.Connection, 0, len(s.connections))
	for _, c := range s.connections {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Schedules ---

func (s *MemoryStore) CreateSchedule(ctx context.Context, sched *Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.schedules[sched.ID]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "schedule %q already exists", sched.ID)
	}
	cp := *sched
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.schedules[sched.ID] = &cp
	return nil
}

func (s *MemoryStore) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sched, ok := s.schedules[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "schedule %q not found", id)
	}
	cp := *sched
	return &cp, nil
}

func (s *MemoryStore) UpdateSchedule(ctx context.Context, id string, update ScheduleUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[id]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "schedule %q not found", id)
	}
	if update.Enabled != nil {
		sched.Enabled = *update.Enabled
	}
	if update.LastRunAt != nil {
		sched.LastRunAt = update.LastRunAt
	}
	if update.NextRunAt != nil {
		sched.NextRunAt = update.NextRunAt
	}
	if update.LastRunStatus != "" {
		sched.LastRunStatus = update.LastRunStatus
	}
	return nil
}

func (s *MemoryStore) ListSchedules(ctx context.Context, filter ScheduleFilter) ([]*Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Schedule, 0, len(s.schedules))
	for _, sched := range s.schedules {
		if filter.Enabled != nil && sched.Enabled != *filter.Enabled {
			continue
		}
		cp := *sched
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteSchedule(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[id]; !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "schedule %q not found", id)
	}
	delete(s.schedules, id)
	return nil
}

// Migrate is a no-op for the in-memory store.
func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
