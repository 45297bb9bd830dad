// Package mcp exposes the flow canvas over the Model Context Protocol so
// agents can build and run flows through stdio tools.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowcanvas/internal/store"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// FlowRunner executes the stored flow graph.
type FlowRunner interface {
	Run(ctx context.Context) (*schema.RunReport, error)
}

// CanvasServerDeps holds the dependencies for creating a CanvasServer.
type CanvasServerDeps struct {
	Store  store.Store
	Runner FlowRunner
	Logger *slog.Logger
}

// CanvasServer wraps an MCP server with flow canvas tool handlers.
type CanvasServer struct {
	store     store.Store
	runner    FlowRunner
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewCanvasServer creates a new CanvasServer with all tools registered.
func NewCanvasServer(deps CanvasServerDeps) *CanvasServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &CanvasServer{
		store:  deps.Store,
		runner: deps.Runner,
		logger: logger,
	}

	mcpSrv := server.NewMCPServer(
		"flowcanvas",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Flowcanvas is a flow graph editor backend. Use flow.add_agent to place agents, flow.connect to wire them, flow.configure to set properties, flow.run to simulate the flow, and flow.render to see the canvas as text."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *CanvasServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *CanvasServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *CanvasServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: addAgentTool(), Handler: s.handleAddAgent},
		{Tool: moveAgentTool(), Handler: s.handleMoveAgent},
		{Tool: configureTool(), Handler: s.handleConfigure},
		{Tool: deleteAgentTool(), Handler: s.handleDeleteAgent},
		{Tool: connectTool(), Handler: s.handleConnect},
		{Tool: disconnectTool(), Handler: s.handleDisconnect},
		{Tool: runTool(), Handler: s.handleRun},
		{Tool: stateTool(), Handler: s.handleState},
		{Tool: renderTool(), Handler: s.handleRender},
	}
}

// --- Tool definitions ---

func addAgentTool() mcp.Tool {
	return mcp.NewTool("flow.add_agent",
		mcp.WithDescription("Add an agent node to the canvas"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name of the agent")),
		mcp.WithString("type", mcp.Required(),
			mcp.Description("Agent type: input, processing, output, or a custom type")),
		mcp.WithNumber("x", mcp.Description("Canvas x coordinate (default 0)")),
		mcp.WithNumber("y", mcp.Description("Canvas y coordinate (default 0)")),
		mcp.WithObject("config", mcp.Description("Agent configuration as string key/value pairs")),
	)
}

func moveAgentTool() mcp.Tool {
	return mcp.NewTool("flow.move_agent",
		mcp.WithDescription("Move an agent to a new canvas position"),
		mcp.WithString("agent_id", mcp.Required(), mcp.Description("ID of the agent to move")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("New x coordinate")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("New y coordinate")),
	)
}

func configureTool() mcp.Tool {
	return mcp.NewTool("flow.configure",
		mcp.WithDescription("Update an agent's name and configuration"),
		mcp.WithString("agent_id", mcp.Required(), mcp.Description("ID of the agent to configure")),
		mcp.WithString("name", mcp.Description("New display name (unchanged when omitted)")),
		mcp.WithObject("config", mcp.Description("Replacement configuration as string key/value pairs")),
	)
}

func deleteAgentTool() mcp.Tool {
	return mcp.NewTool("flow.delete_agent",
		mcp.WithDescription("Delete an agent and every connection attached to it"),
		mcp.WithString("agent_id", mcp.Required(), mcp.Description("ID of the agent to delete")),
	)
}

func connectTool() mcp.Tool {
	return mcp.NewTool("flow.connect",
		mcp.WithDescription("Connect one agent's output port to another agent's input port"),
		mcp.WithString("source_agent_id", mcp.Required(), mcp.Description("Agent whose output feeds the connection")),
		mcp.WithString("target_agent_id", mcp.Required(), mcp.Description("Agent whose input receives the connection")),
	)
}

func disconnectTool() mcp.Tool {
	return mcp.NewTool("flow.disconnect",
		mcp.WithDescription("Remove a single connection"),
		mcp.WithString("connection_id", mcp.Required(), mcp.Description("ID of the connection to remove")),
	)
}

func runTool() mcp.Tool {
	return mcp.NewTool("flow.run",
		mcp.WithDescription("Run the flow simulation over the current graph and return the report"),
	)
}

func stateTool() mcp.Tool {
	return mcp.NewTool("flow.state",
		mcp.WithDescription("Return the full flow graph: all agents and connections"),
	)
}

func renderTool() mcp.Tool {
	return mcp.NewTool("flow.render",
		mcp.WithDescription("Render the current canvas as a text diagram"),
	)
}
