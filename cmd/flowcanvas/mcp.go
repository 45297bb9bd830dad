package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rendis/flowcanvas/internal/sim"
	flowmcp "github.com/rendis/flowcanvas/pkg/mcp"
)

// cmdMCP serves the canvas tools over MCP stdio.
func cmdMCP(args []string) error {
	cfg := loadConfig()

	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	dbPath := fs.String("db", cfg.DBPath, "libsql database path (\"memory\" for in-memory)")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(*logLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	srv := flowmcp.NewCanvasServer(flowmcp.CanvasServerDeps{
		Store:  st,
		Runner: &sim.StoreRunner{Store: st},
		Logger: logger,
	})
	return srv.Serve(ctx)
}
