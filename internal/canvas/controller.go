// Package canvas implements the Flow Canvas Controller: the single owner of
// the in-memory mirror, the gesture state machines, and the render pipeline
// glue. All methods must be called from one goroutine; remote calls run
// inline and suspend only the calling event, never the mirror's consistency.
package canvas

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/rendis/flowcanvas/internal/geometry"
	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/internal/mirror"
	"github.com/rendis/flowcanvas/internal/render"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// StoreClient is the Flow Store Service surface the controller depends on.
// Satisfied by *client.Client.
type StoreClient interface {
	ListAgents(ctx context.Context) ([]*schema.Agent, error)
	CreateAgent(ctx context.Context, a *schema.Agent) (*schema.Agent, error)
	UpdateAgent(ctx context.Context, a *schema.Agent) (*schema.Agent, error)
	DeleteAgent(ctx context.Context, id string) error
	ListConnections(ctx context.Context) ([]*schema.Connection, error)
	CreateConnection(ctx context.Context, conn *schema.Connection) (*schema.Connection, error)
	DeleteConnection(ctx context.Context, id string) error
	RunFlow(ctx context.Context) (*schema.RunReport, error)
}

// Controller owns the mirror and translates pointer input into mirror
// mutations and Flow Store calls.
type Controller struct {
	client   StoreClient
	logger   *slog.Logger
	state    *mirror.Mirror
	nodeSize geometry.Size

	dragFSM *DragFSM
	connFSM *ConnectFSM
	drag    DragState
	connect ConnectState
	preview *render.Line

	pendingDelete string

	view   string        // last full render
	lines  []render.Line // last connection-line redraw
	output string        // output panel text
}

// New creates a Controller talking to the given store client.
func New(store StoreClient, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		client:   store,
		logger:   logger,
		state:    mirror.New(),
		nodeSize: geometry.DefaultNodeSize(),
		dragFSM:  NewDragFSM(),
		connFSM:  NewConnectFSM(),
		drag:     DragState{Status: DragIdle},
		connect:  ConnectState{Status: ConnectIdle},
	}
	return c
}

// Load fetches the full agent and connection sets with two concurrent list
// calls and renders once both complete. Any fetch failure aborts
// initialization: the error is surfaced in the output panel and the mirror
// is left untouched. No partial retry.
func (c *Controller) Load(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		agents   []*schema.Agent
		conns    []*schema.Connection
		agentErr error
		connErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		agents, agentErr = c.client.ListAgents(ctx)
	}()
	go func() {
		defer wg.Done()
		conns, connErr = c.client.ListConnections(ctx)
	}()
	wg.Wait()

	if agentErr != nil {
		c.fail(ctx, agentErr)
		return agentErr
	}
	if connErr != nil {
		c.fail(ctx, connErr)
		return connErr
	}

	c.state.Reset(agents, conns)
	c.renderAll()
	return nil
}

// PointerDownNode handles a pointer-down on a node body (port hits are
// routed to ClickPort instead). It selects the node and starts a drag.
// A connection gesture in progress is cancelled first, so the two gestures
// never overlap.
func (c *Controller) PointerDownNode(ctx context.Context, agentID string, pointer geometry.Point) {
	agent := c.state.Agent(agentID)
	if agent == nil {
		return
	}

	if c.connect.Status == ConnectDrawing {
		c.cancelConnect(ctx)
	}

	c.state.Select(agentID)

	next, err := c.dragFSM.Transition(c.drag, DragDragging, agentID,
		pointer.X-agent.Position.X, pointer.Y-agent.Position.Y)
	if err != nil {
		c.logger.WarnContext(logging.WithAgentID(ctx, agentID), "drag start rejected",
			slog.String("error", err.Error()))
		return
	}
	c.drag = next
	c.renderAll()
}

// PointerMove handles pointer movement. While dragging it moves the node,
// clamped to non-negative coordinates, and redraws only the connection
// lines for responsiveness. While drawing a connection it moves the dashed
// preview endpoint.
func (c *Controller) PointerMove(ctx context.Context, pointer geometry.Point) {
	switch {
	case c.drag.Status == DragDragging:
		pos := geometry.ClampPosition(pointer.X-c.drag.OffsetX, pointer.Y-c.drag.OffsetY)
		if !c.state.MoveAgent(c.drag.AgentID, pos) {
			return
		}
		c.lines = render.BuildConnectionLines(c.state, c.nodeSize)

	case c.connect.Status == ConnectDrawing:
		c.connect.Pointer = pointer
		start := c.state.Agent(c.connect.StartAgentID)
		if start == nil {
			return
		}
		c.preview = render.PreviewLine(start.Position, c.nodeSize, c.connect.StartPort, pointer)
	}
}

// PointerUp ends a drag. The final position is already in the mirror; it is
// sent to the Flow Store. On a remote failure the controller reloads all
// mirror state to guarantee mirror/store consistency, accepting the visible
// snap as the cost of correctness.
func (c *Controller) PointerUp(ctx context.Context) error {
	if c.drag.Status != DragDragging {
		return nil
	}

	agentID := c.drag.AgentID
	next, err := c.dragFSM.Transition(c.drag, DragIdle, "", 0, 0)
	if err != nil {
		return err
	}
	c.drag = next

	agent := c.state.Agent(agentID)
	if agent == nil {
		return nil
	}

	updated, err := c.client.UpdateAgent(ctx, agent)
	if err != nil {
		c.fail(logging.WithAgentID(ctx, agentID), err)
		if reloadErr := c.Load(ctx); reloadErr != nil {
			return reloadErr
		}
		return err
	}

	c.state.PutAgent(updated)
	c.renderAll()
	return nil
}

// ClickPort handles a click on an agent's port. The first click starts the
// connection-drawing gesture; the second completes or rejects it per the
// normalization and duplicate rules.
func (c *Controller) ClickPort(ctx context.Context, agentID, portType string) error {
	ctx = logging.WithGesture(logging.WithAgentID(ctx, agentID), "connect")

	if c.connect.Status == ConnectIdle {
		start := c.state.Agent(agentID)
		if start == nil {
			return nil
		}
		anchor := geometry.PortAnchor(start.Position, c.nodeSize, portType)
		next, err := c.connFSM.Transition(c.connect, ConnectDrawing, agentID, portType, anchor)
		if err != nil {
			return err
		}
		c.connect = next
		c.preview = render.PreviewLine(start.Position, c.nodeSize, portType, anchor)
		return nil
	}

	// Second port click: every path below returns the gesture to idle.
	startAgent := c.connect.StartAgentID
	startPort := c.connect.StartPort
	c.cancelConnect(ctx)

	if agentID == startAgent {
		c.logger.WarnContext(ctx, "connection rejected: agent cannot connect to itself")
		return nil
	}
	if portType == startPort {
		c.logger.WarnContext(ctx, "connection rejected: ports have the same type",
			slog.String("port", portType))
		return nil
	}

	conn, ok := schema.NormalizeEndpoints(startAgent, startPort, agentID, portType)
	if !ok {
		c.logger.WarnContext(ctx, "connection rejected: endpoints could not be normalized")
		return nil
	}

	if c.state.HasDuplicate(&conn) {
		c.logger.WarnContext(ctx, "connection rejected: duplicate",
			slog.String("source_agent_id", conn.SourceAgentID),
			slog.String("target_agent_id", conn.TargetAgentID))
		return nil
	}

	created, err := c.client.CreateConnection(ctx, &conn)
	if err != nil {
		c.fail(ctx, err)
		return err
	}
	c.state.PutConnection(created)
	c.renderAll()
	return nil
}

// ClickBackground handles a click on the canvas itself. While drawing it
// cancels the gesture and keeps the selection; while idle it deselects.
func (c *Controller) ClickBackground(ctx context.Context) {
	if c.connect.Status == ConnectDrawing {
		c.cancelConnect(ctx)
		c.renderAll()
		return
	}
	if c.state.Selected() != "" {
		c.state.Deselect()
		c.renderAll()
	}
}

// CreateAgent creates an agent at the given canvas position (clamped) with
// the type's default configuration, persists it, and selects the created
// node on success.
func (c *Controller) CreateAgent(ctx context.Context, name, agentType string, x, y float64) (*schema.Agent, error) {
	agent := &schema.Agent{
		Name:     name,
		Type:     agentType,
		Position: geometry.ClampPosition(x, y),
		Config:   defaultConfig(agentType),
	}

	created, err := c.client.CreateAgent(ctx, agent)
	if err != nil {
		c.fail(ctx, err)
		return nil, err
	}

	c.state.PutAgent(created)
	c.state.Select(created.ID)
	c.renderAll()
	return created, nil
}

// SaveProperties collects the panel's visible fields as the agent's new
// complete configuration map and name, and persists the full agent. Keys
// absent from fields are simply dropped; there is no separate delete-key
// operation.
func (c *Controller) SaveProperties(ctx context.Context, name string, fields map[string]string) error {
	agent := c.state.SelectedAgent()
	if agent == nil {
		return schema.NewError(schema.ErrCodeValidation, "no agent selected")
	}

	updated := agent.Clone()
	updated.Name = name
	updated.Config = make(map[string]string, len(fields))
	for k, v := range fields {
		updated.Config[k] = v
	}

	resp, err := c.client.UpdateAgent(logging.WithAgentID(ctx, agent.ID), updated)
	if err != nil {
		c.fail(ctx, err)
		return err
	}

	c.state.PutAgent(resp)
	c.renderAll()
	return nil
}

// RequestDeleteAgent stages deletion of the selected agent. The deletion
// only happens when ConfirmDelete is called.
func (c *Controller) RequestDeleteAgent() bool {
	id := c.state.Selected()
	if id == "" {
		return false
	}
	c.pendingDelete = id
	return true
}

// CancelDelete drops a staged deletion.
func (c *Controller) CancelDelete() {
	c.pendingDelete = ""
}

// ConfirmDelete deletes the staged agent from the store, then removes it
// and every connection referencing it from the mirror, clears the
// selection, and re-renders.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	id := c.pendingDelete
	if id == "" {
		return schema.NewError(schema.ErrCodeValidation, "no deletion pending")
	}
	c.pendingDelete = ""

	if err := c.client.DeleteAgent(logging.WithAgentID(ctx, id), id); err != nil {
		c.fail(ctx, err)
		return err
	}

	removed := c.state.RemoveAgent(id)
	c.state.Deselect()
	c.logger.InfoContext(logging.WithAgentID(ctx, id), "agent deleted",
		slog.Int("connections_removed", len(removed)))
	c.renderAll()
	return nil
}

// Run triggers a flow run on the service and formats the report into the
// output panel. The service executes against its own stored state, not the
// mirror.
func (c *Controller) Run(ctx context.Context) error {
	report, err := c.client.RunFlow(ctx)
	if err != nil {
		c.fail(ctx, err)
		return err
	}
	c.output = render.FormatRunReport(report)
	return nil
}

// View returns the last full render.
func (c *Controller) View() string { return c.view }

// Output returns the current output panel text.
func (c *Controller) Output() string { return c.output }

// ConnectionLines returns the most recent connection-line redraw.
func (c *Controller) ConnectionLines() []render.Line { return c.lines }

// Preview returns the in-progress dashed connection line, or nil.
func (c *Controller) Preview() *render.Line { return c.preview }

// DragState returns the current drag gesture state.
func (c *Controller) DragState() DragState { return c.drag }

// ConnectState returns the current connection gesture state.
func (c *Controller) ConnectState() ConnectState { return c.connect }

// Mirror exposes the owned state object for read-only inspection.
func (c *Controller) Mirror() *mirror.Mirror { return c.state }

// renderAll rebuilds the whole scene from the mirror: every node box, every
// connection line recomputed from port geometry, and the properties panel.
func (c *Controller) renderAll() {
	scene := render.BuildScene(c.state, c.nodeSize)
	scene.Preview = c.preview
	c.lines = scene.Lines
	c.view = render.RenderText(scene)
}

// cancelConnect returns the connection gesture to idle and discards the
// preview line.
func (c *Controller) cancelConnect(ctx context.Context) {
	next, err := c.connFSM.Transition(c.connect, ConnectIdle, "", "", geometry.Point{})
	if err != nil {
		c.logger.WarnContext(ctx, "connection gesture reset failed",
			slog.String("error", err.Error()))
		return
	}
	c.connect = next
	c.preview = nil
}

// fail surfaces a failure in the output panel and logs it. Transport
// failures and non-2xx responses are not distinguished here. The panel
// shows the bare message ("<VERB> <endpoint> failed: <status text>")
// without the structured error code.
func (c *Controller) fail(ctx context.Context, err error) {
	var fe *schema.FlowError
	if errors.As(err, &fe) {
		c.output = fe.Message
	} else {
		c.output = err.Error()
	}
	c.logger.ErrorContext(ctx, "remote call failed", slog.String("error", err.Error()))
}

// defaultConfig returns the initial configuration for a freshly dropped
// agent of the given type.
func defaultConfig(agentType string) map[string]string {
	if agentType == schema.AgentTypeInput {
		return map[string]string{"message": "Default input"}
	}
	return map[string]string{}
}
