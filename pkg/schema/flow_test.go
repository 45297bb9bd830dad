package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpointsOutputFirst(t *testing.T) {
	conn, ok := NormalizeEndpoints("a", PortOutput, "b", PortInput)
	require.True(t, ok)
	assert.Equal(t, "a", conn.SourceAgentID)
	assert.Equal(t, "b", conn.TargetAgentID)
	assert.Equal(t, PortOutput, conn.SourcePort)
	assert.Equal(t, PortInput, conn.TargetPort)
}

func TestNormalizeEndpointsInputFirst(t *testing.T) {
	// Clicking the input port first must yield the same connection.
	conn, ok := NormalizeEndpoints("b", PortInput, "a", PortOutput)
	require.True(t, ok)
	assert.Equal(t, "a", conn.SourceAgentID)
	assert.Equal(t, "b", conn.TargetAgentID)
	assert.Equal(t, PortOutput, conn.SourcePort)
	assert.Equal(t, PortInput, conn.TargetPort)
}

func TestNormalizeEndpointsSamePortType(t *testing.T) {
	_, ok := NormalizeEndpoints("a", PortOutput, "b", PortOutput)
	assert.False(t, ok)

	_, ok = NormalizeEndpoints("a", PortInput, "b", PortInput)
	assert.False(t, ok)
}

func TestSameEndpoints(t *testing.T) {
	a := &Connection{SourceAgentID: "x", TargetAgentID: "y", SourcePort: PortOutput, TargetPort: PortInput}
	b := &Connection{ID: "other-id", SourceAgentID: "x", TargetAgentID: "y", SourcePort: PortOutput, TargetPort: PortInput}
	c := &Connection{SourceAgentID: "y", TargetAgentID: "x", SourcePort: PortOutput, TargetPort: PortInput}

	assert.True(t, a.SameEndpoints(b))
	assert.False(t, a.SameEndpoints(c))
}

func TestAgentClone(t *testing.T) {
	orig := &Agent{
		ID:     "a1",
		Name:   "Source",
		Type:   AgentTypeInput,
		Config: map[string]string{"message": "hello"},
	}

	cp := orig.Clone()
	cp.Config["message"] = "changed"
	cp.Name = "Renamed"

	assert.Equal(t, "hello", orig.Config["message"])
	assert.Equal(t, "Source", orig.Name)
}

func TestRecognizedConfigKeys(t *testing.T) {
	assert.Equal(t, []string{"message"}, RecognizedConfigKeys(AgentTypeInput))
	assert.Equal(t, []string{"prepend", "append", "transform"}, RecognizedConfigKeys(AgentTypeProcessing))
	assert.Empty(t, RecognizedConfigKeys(AgentTypeOutput))
	assert.Empty(t, RecognizedConfigKeys("custom"))

	// Callers must not be able to mutate the shared table.
	keys := RecognizedConfigKeys(AgentTypeInput)
	keys[0] = "mutated"
	assert.Equal(t, []string{"message"}, RecognizedConfigKeys(AgentTypeInput))
}
