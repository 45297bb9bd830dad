package schema

// Port labels used by connections. The canvas only ever wires an output
// port into an input port; NormalizeEndpoints enforces that orientation.
const (
	PortOutput = "output"
	PortInput  = "input"
)

// Well-known agent types. The set is open: unknown types are stored and
// rendered as-is, and the simulator treats them as pass-through.
const (
	AgentTypeInput      = "input"
	AgentTypeProcessing = "processing"
	AgentTypeOutput     = "output"
)

// Position is a 2D canvas coordinate in pixels, relative to the canvas origin.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Agent is a node in the flow graph: one configurable processing unit.
type Agent struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Position Position          `json:"position"`
	Config   map[string]string `json:"config"`
}

// Clone returns a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	cp := *a
	if a.Config != nil {
		cp.Config = make(map[string]string, len(a.Config))
		for k, v := range a.Config {
			cp.Config[k] = v
		}
	}
	return &cp
}

// Connection is a directed edge from one agent's output port to another
// agent's input port.
type Connection struct {
	ID            string `json:"id"`
	SourceAgentID string `json:"source_agent_id"`
	TargetAgentID string `json:"target_agent_id"`
	SourcePort    string `json:"source_port"`
	TargetPort    string `json:"target_port"`
}

// SameEndpoints reports whether two connections share source, target and ports.
func (c *Connection) SameEndpoints(other *Connection) bool {
	return c.SourceAgentID == other.SourceAgentID &&
		c.TargetAgentID == other.TargetAgentID &&
		c.SourcePort == other.SourcePort &&
		c.TargetPort == other.TargetPort
}

// RunReport is the Flow Store Service's response to a flow run.
type RunReport struct {
	Message           string            `json:"message"`
	ExecutionOrder    []string          `json:"execution_order"`
	SimulationDetails []string          `json:"simulation_details"`
	FinalOutputs      map[string]string `json:"final_outputs,omitempty"`
}

// recognizedConfigKeys maps an agent type to the config keys the properties
// panel synthesizes as empty editable fields when absent.
var recognizedConfigKeys = map[string][]string{
	AgentTypeInput:      {"message"},
	AgentTypeProcessing: {"prepend", "append", "transform"},
	AgentTypeOutput:     {},
}

// RecognizedConfigKeys returns the config keys recognized for an agent type.
// Unknown types recognize no keys.
func RecognizedConfigKeys(agentType string) []string {
	keys := recognizedConfigKeys[agentType]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// NormalizeEndpoints orders two gesture endpoints so that the output-typed
// one becomes the source and the input-typed one the target, regardless of
// which port was clicked first. It returns false when both endpoints carry
// the same port type.
func NormalizeEndpoints(agentA, portA, agentB, portB string) (conn Connection, ok bool) {
	if portA == portB {
		return Connection{}, false
	}
	if portA == PortOutput {
		return Connection{
			SourceAgentID: agentA,
			TargetAgentID: agentB,
			SourcePort:    PortOutput,
			TargetPort:    PortInput,
		}, true
	}
	return Connection{
		SourceAgentID: agentB,
		TargetAgentID: agentA,
		SourcePort:    PortOutput,
		TargetPort:    PortInput,
	}, true
}
