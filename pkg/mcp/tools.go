package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/flowcanvas/internal/geometry"
	"github.com/rendis/flowcanvas/internal/mirror"
	"github.com/rendis/flowcanvas/internal/render"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// handleAddAgent places a new agent on the canvas.
func (s *CanvasServer) handleAddAgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	agentType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type is required"), nil
	}

	agent := &schema.Agent{
		ID:       uuid.New().String(),
		Name:     name,
		Type:     agentType,
		Position: geometry.ClampPosition(req.GetFloat("x", 0), req.GetFloat("y", 0)),
		Config:   stringConfig(mcp.ParseStringMap(req, "config", nil)),
	}

	if createErr := s.store.CreateAgent(ctx, agent); createErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create agent: %v", createErr)), nil
	}
	return marshalResult(agent)
}

// handleMoveAgent repositions an existing agent.
func (s *CanvasServer) handleMoveAgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := req.RequireString("agent_id")
	if err != nil {
		return mcp.NewToolResultError("agent_id is required"), nil
	}
	x, err := req.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError("x is required"), nil
	}
	y, err := req.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError("y is required"), nil
	}

	agent, getErr := s.store.GetAgent(ctx, agentID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("agent lookup failed: %v", getErr)), nil
	}

	agent.Position = geometry.ClampPosition(x, y)
	if updateErr := s.store.UpdateAgent(ctx, agent); updateErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to move agent: %v", updateErr)), nil
	}
	return marshalResult(agent)
}

// handleConfigure replaces an agent's name and config.
func (s *CanvasServer) handleConfigure(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := req.RequireString("agent_id")
	if err != nil {
		return mcp.NewToolResultError("agent_id is required"), nil
	}

	agent, getErr := s.store.GetAgent(ctx, agentID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("agent lookup failed: %v", getErr)), nil
	}

	if name := req.GetString("name", ""); name != "" {
		agent.Name = name
	}
	if config := mcp.ParseStringMap(req, "config", nil); config != nil {
		agent.Config = stringConfig(config)
	}

	if updateErr := s.store.UpdateAgent(ctx, agent); updateErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update agent: %v", updateErr)), nil
	}
	return marshalResult(agent)
}

// handleDeleteAgent removes an agent and its connections.
func (s *CanvasServer) handleDeleteAgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agentID, err := req.RequireString("agent_id")
	if err != nil {
		return mcp.NewToolResultError("agent_id is required"), nil
	}

	removed, delErr := s.store.DeleteAgent(ctx, agentID)
	if delErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete agent: %v", delErr)), nil
	}
	return marshalResult(map[string]any{
		"id":                  agentID,
		"removed_connections": removed,
	})
}

// handleConnect wires a source agent's output into a target agent's input.
func (s *CanvasServer) handleConnect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceID, err := req.RequireString("source_agent_id")
	if err != nil {
		return mcp.NewToolResultError("source_agent_id is required"), nil
	}
	targetID, err := req.RequireString("target_agent_id")
	if err != nil {
		return mcp.NewToolResultError("target_agent_id is required"), nil
	}
	if sourceID == targetID {
		return mcp.NewToolResultError("cannot connect an agent to itself"), nil
	}

	conn := &schema.Connection{
		ID:            uuid.New().String(),
		SourceAgentID: sourceID,
		TargetAgentID: targetID,
		SourcePort:    schema.PortOutput,
		TargetPort:    schema.PortInput,
	}
	if createErr := s.store.CreateConnection(ctx, conn); createErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create connection: %v", createErr)), nil
	}
	return marshalResult(conn)
}

// handleDisconnect removes one connection.
func (s *CanvasServer) handleDisconnect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	connID, err := req.RequireString("connection_id")
	if err != nil {
		return mcp.NewToolResultError("connection_id is required"), nil
	}

	if delErr := s.store.DeleteConnection(ctx, connID); delErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete connection: %v", delErr)), nil
	}
	return marshalResult(map[string]string{"id": connID})
}

// handleRun simulates the flow and returns the full report.
func (s *CanvasServer) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.runner.Run(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("flow run failed: %v", err)), nil
	}
	return marshalResult(report)
}

// handleState returns the full graph.
func (s *CanvasServer) handleState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agents, connections, err := s.loadGraph(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return marshalResult(map[string]any{
		"agents":      agents,
		"connections": connections,
	})
}

// handleRender returns the canvas as a text diagram.
func (s *CanvasServer) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agents, connections, err := s.loadGraph(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	m := mirror.New()
	m.Reset(agents, connections)
	size := geometry.Size{Width: geometry.DefaultNodeWidth, Height: geometry.DefaultNodeHeight}
	scene := render.BuildScene(m, size)

	return mcp.NewToolResultText(render.RenderText(scene)), nil
}

func (s *CanvasServer) loadGraph(ctx context.Context) ([]*schema.Agent, []*schema.Connection, error) {
	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list agents: %v", err)
	}
	connections, err := s.store.ListConnections(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list connections: %v", err)
	}
	return agents, connections, nil
}

// stringConfig flattens a parsed tool object into the string map agents carry.
func stringConfig(raw map[string]any) map[string]string {
	config := make(map[string]string, len(raw))
	for k, v := range raw {
		config[k] = fmt.Sprint(v)
	}
	return config
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
