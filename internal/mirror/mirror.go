// Package mirror holds the client-side copy of Flow Store state.
//
// The Mirror is an explicitly owned state object: the canvas controller is
// its single writer, and every mutation goes through an update method on it.
// The Flow Store Service owns the authoritative copies; the mirror is
// reconciled from service responses, never merged.
package mirror

import (
	"sort"

	"github.com/rendis/flowcanvas/pkg/schema"
)

// Mirror is the in-memory copy of agents and connections, plus the current
// selection. Not safe for concurrent use; the controller serializes access.
type Mirror struct {
	agents      map[string]*schema.Agent
	connections map[string]*schema.Connection
	selected    string
}

// New creates an empty Mirror.
func New() *Mirror {
	return &Mirror{
		agents:      make(map[string]*schema.Agent),
		connections: make(map[string]*schema.Connection),
	}
}

// Reset replaces the entire mirror contents with the given entities,
// keyed by id. Used on startup and on full reloads after a remote failure.
// Selection is preserved when the selected agent survives the reload.
func (m *Mirror) Reset(agents []*schema.Agent, connections []*schema.Connection) {
	m.agents = make(map[string]*schema.Agent, len(agents))
	for _, a := range agents {
		m.agents[a.ID] = a.Clone()
	}
	m.connections = make(map[string]*schema.Connection, len(connections))
	for _, c := range connections {
		cp := *c
		m.connections[c.ID] = &cp
	}
	if _, ok := m.agents[m.selected]; !ok {
		m.selected = ""
	}
}

// PutAgent inserts or replaces an agent. Service responses are authoritative,
// so reconciling an optimistic entry is the same operation.
func (m *Mirror) PutAgent(a *schema.Agent) {
	m.agents[a.ID] = a.Clone()
}

// Agent returns the agent with the given id, or nil.
func (m *Mirror) Agent(id string) *schema.Agent {
	return m.agents[id]
}

// HasAgent reports whether an agent with the given id exists.
func (m *Mirror) HasAgent(id string) bool {
	_, ok := m.agents[id]
	return ok
}

// Agents returns all agents sorted by id for deterministic iteration.
func (m *Mirror) Agents() []*schema.Agent {
	out := make([]*schema.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MoveAgent updates an agent's position in place. Returns false when the
// agent is not present.
func (m *Mirror) MoveAgent(id string, pos schema.Position) bool {
	a, ok := m.agents[id]
	if !ok {
		return false
	}
	a.Position = pos
	return true
}

// RemoveAgent deletes the agent and every connection referencing it as
// source or target. It returns the ids of the removed connections.
// Selection is cleared when the removed agent was selected.
func (m *Mirror) RemoveAgent(id string) (removedConnections []string) {
	delete(m.agents, id)
	for cid, c := range m.connections {
		if c.SourceAgentID == id || c.TargetAgentID == id {
			removedConnections = append(removedConnections, cid)
			delete(m.connections, cid)
		}
	}
	sort.Strings(removedConnections)
	if m.selected == id {
		m.selected = ""
	}
	return removedConnections
}

// PutConnection inserts or replaces a connection.
func (m *Mirror) PutConnection(c *schema.Connection) {
	cp := *c
	m.connections[c.ID] = &cp
}

// Connection returns the connection with the given id, or nil.
func (m *Mirror) Connection(id string) *schema.Connection {
	return m.connections[id]
}

// Connections returns all connections sorted by id.
func (m *Mirror) Connections() []*schema.Connection {
	out := make([]*schema.Connection, 0, len(m.connections))
	for _, c := range m.connections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RemoveConnection deletes a single connection. Returns false when absent.
func (m *Mirror) RemoveConnection(id string) bool {
	if _, ok := m.connections[id]; !ok {
		return false
	}
	delete(m.connections, id)
	return true
}

// HasDuplicate reports whether a connection with identical endpoints
// (source, target, source port, target port) already exists.
func (m *Mirror) HasDuplicate(c *schema.Connection) bool {
	for _, existing := range m.connections {
		if existing.SameEndpoints(c) {
			return true
		}
	}
	return false
}

// Select marks the agent as selected. Returns false when the agent is absent;
// the previous selection is kept in that case.
func (m *Mirror) Select(id string) bool {
	if _, ok := m.agents[id]; !ok {
		return false
	}
	m.selected = id
	return true
}

// Deselect clears the selection.
func (m *Mirror) Deselect() {
	m.selected = ""
}

// Selected returns the selected agent id, or "" when nothing is selected.
func (m *Mirror) Selected() string {
	return m.selected
}

// SelectedAgent returns the selected agent, or nil.
func (m *Mirror) SelectedAgent() *schema.Agent {
	if m.selected == "" {
		return nil
	}
	return m.agents[m.selected]
}

// Counts returns the number of agents and connections in the mirror.
func (m *Mirror) Counts() (agents, connections int) {
	return len(m.agents), len(m.connections)
}
