// Package sim implements the Flow Store's run simulation: an iterative
// topological ordering of the agent graph with naive message passing
// between agents.
package sim

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rendis/flowcanvas/internal/store"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// Simulate executes the flow over the given agents and connections and
// returns the run report. Ordering peels agents that are not the target of
// any remaining connection (or are of type "input", which can always start
// a flow); a stall with agents remaining means a cycle or a disconnected
// non-input component.
func Simulate(agents []*schema.Agent, connections []*schema.Connection) *schema.RunReport {
	report := &schema.RunReport{
		Message:           "Flow run simulated.",
		ExecutionOrder:    []string{},
		SimulationDetails: []string{},
		FinalOutputs:      map[string]string{},
	}

	byID := make(map[string]*schema.Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}

	order, stalled := executionOrder(agents, connections)
	report.ExecutionOrder = order
	if len(stalled) > 0 {
		report.SimulationDetails = append(report.SimulationDetails,
			fmt.Sprintf("Error: cycle detected or disconnected components in the graph. Remaining agents: %s",
				strings.Join(stalled, ", ")))
	}

	// Message passing along the computed order.
	outputs := make(map[string]string, len(order))
	for _, id := range order {
		agent := byID[id]
		if agent == nil {
			continue
		}
		incoming := gatherInputs(id, connections, outputs)
		detail, out := runAgent(agent, incoming)
		report.SimulationDetails = append(report.SimulationDetails, detail)
		outputs[id] = out
		report.FinalOutputs[id] = out
	}

	return report
}

// executionOrder computes a rough topological order by iteratively removing
// agents with no incoming connection from the remaining set. Agents of type
// "input" always qualify as starters. Returns the order plus the ids of any
// agents left stranded by a cycle.
func executionOrder(agents []*schema.Agent, connections []*schema.Connection) (order []string, stalled []string) {
	remaining := make(map[string]*schema.Agent, len(agents))
	for _, a := range agents {
		remaining[a.ID] = a
	}
	conns := make([]*schema.Connection, len(connections))
	copy(conns, connections)

	order = []string{}
	for len(remaining) > 0 {
		targeted := make(map[string]bool, len(conns))
		for _, c := range conns {
			targeted[c.TargetAgentID] = true
		}

		var starters []string
		for id, a := range remaining {
			if !targeted[id] || strings.EqualFold(a.Type, schema.AgentTypeInput) {
				starters = append(starters, id)
			}
		}
		if len(starters) == 0 {
			for id := range remaining {
				stalled = append(stalled, id)
			}
			sort.Strings(stalled)
			return order, stalled
		}

		sort.Strings(starters)
		for _, id := range starters {
			order = append(order, id)
			delete(remaining, id)
			kept := conns[:0]
			for _, c := range conns {
				if c.SourceAgentID != id {
					kept = append(kept, c)
				}
			}
			conns = kept
		}
	}
	return order, nil
}

// gatherInputs concatenates the outputs of every agent connected into the
// given one, space-separated, in connection id order for determinism.
func gatherInputs(agentID string, connections []*schema.Connection, outputs map[string]string) string {
	incoming := make([]*schema.Connection, 0)
	for _, c := range connections {
		if c.TargetAgentID == agentID {
			incoming = append(incoming, c)
		}
	}
	sort.Slice(incoming, func(i, j int) bool { return incoming[i].ID < incoming[j].ID })

	var parts []string
	for _, c := range incoming {
		if out, ok := outputs[c.SourceAgentID]; ok && out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, " ")
}

// runAgent produces one simulation detail line and the agent's output.
func runAgent(agent *schema.Agent, incoming string) (detail, output string) {
	switch strings.ToLower(agent.Type) {
	case schema.AgentTypeInput:
		output = agent.Config["message"]
		if output == "" {
			output = fmt.Sprintf("Input from %s", agent.Name)
		}
		detail = fmt.Sprintf("Agent %q (input): generates %q", agent.Name, output)

	case schema.AgentTypeProcessing:
		output = process(agent, incoming)
		detail = fmt.Sprintf("Agent %q (processing): received %q, produces %q", agent.Name, incoming, output)

	case schema.AgentTypeOutput:
		output = incoming
		detail = fmt.Sprintf("Agent %q (output): final output %q", agent.Name, incoming)

	default:
		output = incoming
		detail = fmt.Sprintf("Agent %q (%s): no specific action, passing through %q", agent.Name, agent.Type, incoming)
	}
	return detail, output
}

// process applies a processing agent's configuration to its incoming
// message: an optional expr transform first, then prepend/append.
func process(agent *schema.Agent, incoming string) string {
	msg := incoming
	if transform := agent.Config["transform"]; transform != "" {
		if out, err := evalTransform(transform, msg); err == nil {
			msg = out
		}
		// An invalid transform leaves the message untouched; the
		// expression error is not a flow failure.
	}

	prefix := agent.Config["prepend"]
	suffix := agent.Config["append"]
	return strings.TrimSpace(strings.Join([]string{prefix, msg, suffix}, " "))
}

// StoreRunner runs the simulation against a Store's current state.
// Used by the run endpoint and by the scheduler.
type StoreRunner struct {
	Store store.Store
}

// Run loads the full agent and connection sets and simulates the flow.
func (r *StoreRunner) Run(ctx context.Context) (*schema.RunReport, error) {
	agents, err := r.Store.ListAgents(ctx)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "list agents: %v", err).WithCause(err)
	}
	connections, err := r.Store.ListConnections(ctx)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeStore, "list connections: %v", err).WithCause(err)
	}
	return Simulate(agents, connections), nil
}
