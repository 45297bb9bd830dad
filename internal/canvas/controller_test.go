package canvas

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/internal/geometry"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// fakeStore satisfies StoreClient in memory, recording mutation calls.
type fakeStore struct {
	agents      map[string]*schema.Agent
	connections map[string]*schema.Connection
	nextID      int

	createConnCalls int
	updateCalls     int
	listCalls       int

	listAgentsErr  error
	updateAgentErr error
	createConnErr  error
	runErr         error

	report *schema.RunReport
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		agents:      make(map[string]*schema.Agent),
		connections: make(map[string]*schema.Connection),
	}
}

func (f *fakeStore) seedAgent(id string, x, y float64) *schema.Agent {
	a := &schema.Agent{
		ID:       id,
		Name:     "Agent " + id,
		Type:     schema.AgentTypeProcessing,
		Position: schema.Position{X: x, Y: y},
		Config:   map[string]string{},
	}
	f.agents[id] = a
	return a
}

func (f *fakeStore) ListAgents(_ context.Context) ([]*schema.Agent, error) {
	f.listCalls++
	if f.listAgentsErr != nil {
		return nil, f.listAgentsErr
	}
	out := make([]*schema.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (f *fakeStore) CreateAgent(_ context.Context, a *schema.Agent) (*schema.Agent, error) {
	f.nextID++
	created := a.Clone()
	created.ID = fmt.Sprintf("srv-%d", f.nextID)
	f.agents[created.ID] = created
	return created.Clone(), nil
}

func (f *fakeStore) UpdateAgent(_ context.Context, a *schema.Agent) (*schema.Agent, error) {
	f.updateCalls++
	if f.updateAgentErr != nil {
		return nil, f.updateAgentErr
	}
	f.agents[a.ID] = a.Clone()
	return a.Clone(), nil
}

func (f *fakeStore) DeleteAgent(_ context.Context, id string) error {
	delete(f.agents, id)
	for cid, c := range f.connections {
		if c.SourceAgentID == id || c.TargetAgentID == id {
			delete(f.connections, cid)
		}
	}
	return nil
}

func (f *fakeStore) ListConnections(_ context.Context) ([]*schema.Connection, error) {
	out := make([]*schema.Connection, 0, len(f.connections))
	for _, c := range f.connections {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) CreateConnection(_ context.Context, conn *schema.Connection) (*schema.Connection, error) {
	f.createConnCalls++
	if f.createConnErr != nil {
		return nil, f.createConnErr
	}
	f.nextID++
	cp := *conn
	cp.ID = fmt.Sprintf("conn-%d", f.nextID)
	f.connections[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeStore) DeleteConnection(_ context.Context, id string) error {
	delete(f.connections, id)
	return nil
}

func (f *fakeStore) RunFlow(_ context.Context) (*schema.RunReport, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.report, nil
}

func loadedController(t *testing.T, f *fakeStore) *Controller {
	t.Helper()
	c := New(f, nil)
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestLoadPopulatesMirror(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 10, 20)
	f.seedAgent("b", 300, 20)
	f.connections["c1"] = &schema.Connection{
		ID: "c1", SourceAgentID: "a", TargetAgentID: "b",
		SourcePort: schema.PortOutput, TargetPort: schema.PortInput,
	}

	c := loadedController(t, f)

	agents, conns := c.Mirror().Counts()
	assert.Equal(t, 2, agents)
	assert.Equal(t, 1, conns)
	assert.NotEmpty(t, c.View())
}

func TestLoadFailureSurfacesErrorAndLeavesMirrorEmpty(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	f.listAgentsErr = schema.NewError(schema.ErrCodeRemote, "GET /api/agents failed: 500 Internal Server Error")

	c := New(f, nil)
	err := c.Load(context.Background())
	require.Error(t, err)

	agents, _ := c.Mirror().Counts()
	assert.Zero(t, agents)
	assert.Equal(t, "GET /api/agents failed: 500 Internal Server Error", c.Output())
}

func TestDragMoveClampAndPersist(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 100, 100)
	c := loadedController(t, f)

	// Grab the node 10px right and 5px down of its origin.
	c.PointerDownNode(context.Background(), "a", geometry.Point{X: 110, Y: 105})
	require.Equal(t, DragDragging, c.DragState().Status)
	assert.Equal(t, "a", c.Mirror().Selected())

	// Drag far past the left edge: x clamps to 0, y follows the pointer.
	c.PointerMove(context.Background(), geometry.Point{X: -50, Y: 205})
	assert.Equal(t, schema.Position{X: 0, Y: 200}, c.Mirror().Agent("a").Position)

	require.NoError(t, c.PointerUp(context.Background()))
	assert.Equal(t, DragIdle, c.DragState().Status)
	assert.Equal(t, 1, f.updateCalls, "position committed once on release")
	assert.Equal(t, schema.Position{X: 0, Y: 200}, f.agents["a"].Position)
}

func TestPointerUpFailureReloads(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 100, 100)
	c := loadedController(t, f)

	c.PointerDownNode(context.Background(), "a", geometry.Point{X: 100, Y: 100})
	c.PointerMove(context.Background(), geometry.Point{X: 400, Y: 400})
	f.updateAgentErr = schema.NewError(schema.ErrCodeRemote, "PUT /api/agents/a failed: 500 Internal Server Error")

	err := c.PointerUp(context.Background())
	require.Error(t, err)

	// The mirror snapped back to the store's authoritative position.
	assert.Equal(t, schema.Position{X: 100, Y: 100}, c.Mirror().Agent("a").Position)
	assert.Equal(t, "PUT /api/agents/a failed: 500 Internal Server Error", c.Output())
}

func TestPointerMoveWhileDrawingUpdatesPreview(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	c := loadedController(t, f)

	require.NoError(t, c.ClickPort(context.Background(), "a", schema.PortOutput))
	require.Equal(t, ConnectDrawing, c.ConnectState().Status)
	require.NotNil(t, c.Preview())
	assert.True(t, c.Preview().Dashed)

	c.PointerMove(context.Background(), geometry.Point{X: 500, Y: 250})
	assert.Equal(t, geometry.Point{X: 500, Y: 250}, c.Preview().Segment.To)
}

func TestConnectTwoAgentsNormalizedRegardlessOfOrder(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	f.seedAgent("b", 300, 0)
	c := loadedController(t, f)

	// Click the target's input port first, then the source's output port.
	require.NoError(t, c.ClickPort(context.Background(), "b", schema.PortInput))
	require.NoError(t, c.ClickPort(context.Background(), "a", schema.PortOutput))

	assert.Equal(t, ConnectIdle, c.ConnectState().Status)
	assert.Nil(t, c.Preview())

	conns := c.Mirror().Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, "a", conns[0].SourceAgentID)
	assert.Equal(t, "b", conns[0].TargetAgentID)
	assert.Equal(t, schema.PortOutput, conns[0].SourcePort)
	assert.Equal(t, schema.PortInput, conns[0].TargetPort)
}

func TestSelfConnectionRejectedWithoutRequest(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	c := loadedController(t, f)

	require.NoError(t, c.ClickPort(context.Background(), "a", schema.PortOutput))
	require.NoError(t, c.ClickPort(context.Background(), "a", schema.PortInput))

	assert.Zero(t, f.createConnCalls)
	assert.Equal(t, ConnectIdle, c.ConnectState().Status)
}

func TestSamePortTypeRejectedWithoutRequest(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	f.seedAgent("b", 300, 0)
	c := loadedController(t, f)

	require.NoError(t, c.ClickPort(context.Background(), "a", schema.PortOutput))
	require.NoError(t, c.ClickPort(context.Background(), "b", schema.PortOutput))

	assert.Zero(t, f.createConnCalls)
	assert.Equal(t, ConnectIdle, c.ConnectState().Status)
}

func TestDuplicateConnectionRejectedWithoutRequest(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	f.seedAgent("b", 300, 0)
	c := loadedController(t, f)

	require.NoError(t, c.ClickPort(context.Background(), "a", schema.PortOutput))
	require.NoError(t, c.ClickPort(context.Background(), "b", schema.PortInput))
	require.Equal(t, 1, f.createConnCalls)

	// Identical endpoints a second time: rejected before any request.
	require.NoError(t, c.ClickPort(context.Background(), "a", schema.PortOutput))
	require.NoError(t, c.ClickPort(context.Background(), "b", schema.PortInput))

	assert.Equal(t, 1, f.createConnCalls)
	_, conns := c.Mirror().Counts()
	assert.Equal(t, 1, conns)
}

func TestPointerDownCancelsDrawingGesture(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	f.seedAgent("b", 300, 0)
	c := loadedController(t, f)

	require.NoError(t, c.ClickPort(context.Background(), "a", schema.PortOutput))
	require.Equal(t, ConnectDrawing, c.ConnectState().Status)

	c.PointerDownNode(context.Background(), "b", geometry.Point{X: 300, Y: 0})

	assert.Equal(t, ConnectIdle, c.ConnectState().Status)
	assert.Nil(t, c.Preview())
	assert.Equal(t, DragDragging, c.DragState().Status)
	assert.Zero(t, f.createConnCalls)
}

func TestClickBackgroundWhileDrawingCancelsKeepsSelection(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	c := loadedController(t, f)

	c.PointerDownNode(context.Background(), "a", geometry.Point{})
	require.NoError(t, c.PointerUp(context.Background()))
	require.Equal(t, "a", c.Mirror().Selected())

	require.NoError(t, c.ClickPort(context.Background(), "a", schema.PortOutput))
	c.ClickBackground(context.Background())

	assert.Equal(t, ConnectIdle, c.ConnectState().Status)
	assert.Equal(t, "a", c.Mirror().Selected(), "cancel keeps selection")

	c.ClickBackground(context.Background())
	assert.Empty(t, c.Mirror().Selected(), "idle background click deselects")
}

func TestCreateAgentDefaultsAndSelects(t *testing.T) {
	f := newFakeStore()
	c := loadedController(t, f)

	created, err := c.CreateAgent(context.Background(), "Source", schema.AgentTypeInput, -30, 50)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"message": "Default input"}, created.Config)
	assert.Equal(t, schema.Position{X: 0, Y: 50}, created.Position)
	assert.Equal(t, created.ID, c.Mirror().Selected())

	proc, err := c.CreateAgent(context.Background(), "Proc", schema.AgentTypeProcessing, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, proc.Config)
}

func TestSavePropertiesReplacesConfigCompletely(t *testing.T) {
	f := newFakeStore()
	a := f.seedAgent("a", 0, 0)
	a.Config = map[string]string{"prepend": "old", "stale": "drop-me"}
	c := loadedController(t, f)
	require.True(t, c.Mirror().Select("a"))

	err := c.SaveProperties(context.Background(), "Renamed", map[string]string{"prepend": "new"})
	require.NoError(t, err)

	got := c.Mirror().Agent("a")
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, map[string]string{"prepend": "new"}, got.Config)
	assert.Equal(t, map[string]string{"prepend": "new"}, f.agents["a"].Config)
}

func TestSavePropertiesWithoutSelection(t *testing.T) {
	f := newFakeStore()
	c := loadedController(t, f)

	err := c.SaveProperties(context.Background(), "x", nil)
	require.Error(t, err)
}

func TestDeleteAgentFlow(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	f.seedAgent("b", 300, 0)
	f.connections["c1"] = &schema.Connection{ID: "c1", SourceAgentID: "a", TargetAgentID: "b"}
	c := loadedController(t, f)
	require.True(t, c.Mirror().Select("a"))

	require.True(t, c.RequestDeleteAgent())
	require.NoError(t, c.ConfirmDelete(context.Background()))

	agents, conns := c.Mirror().Counts()
	assert.Equal(t, 1, agents)
	assert.Zero(t, conns, "connections referencing the agent are removed")
	assert.Empty(t, c.Mirror().Selected())

	// A second confirm without a new request is rejected.
	require.Error(t, c.ConfirmDelete(context.Background()))
}

func TestCancelDelete(t *testing.T) {
	f := newFakeStore()
	f.seedAgent("a", 0, 0)
	c := loadedController(t, f)
	require.True(t, c.Mirror().Select("a"))

	require.True(t, c.RequestDeleteAgent())
	c.CancelDelete()
	require.Error(t, c.ConfirmDelete(context.Background()))

	agents, _ := c.Mirror().Counts()
	assert.Equal(t, 1, agents)
}

func TestRunFormatsReport(t *testing.T) {
	f := newFakeStore()
	f.report = &schema.RunReport{
		Message:           "Flow run simulated.",
		ExecutionOrder:    []string{"a", "b"},
		SimulationDetails: []string{"a generated", "b displayed"},
	}
	c := loadedController(t, f)

	require.NoError(t, c.Run(context.Background()))
	want := "Run Result:\nFlow run simulated.\n\nExecution Order:\na -> b\n\nSimulation Details:\na generated\nb displayed\n"
	assert.Equal(t, want, c.Output())
}

func TestRunFailureShowsBareMessage(t *testing.T) {
	f := newFakeStore()
	f.runErr = schema.NewError(schema.ErrCodeRemote, "POST /api/flow/run failed: 503 Service Unavailable")
	c := loadedController(t, f)

	require.Error(t, c.Run(context.Background()))
	assert.Equal(t, "POST /api/flow/run failed: 503 Service Unavailable", c.Output())
}
