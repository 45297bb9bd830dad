package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/internal/scheduler"
	"github.com/rendis/flowcanvas/internal/server"
	"github.com/rendis/flowcanvas/internal/sim"
	"github.com/rendis/flowcanvas/internal/store"
	"github.com/rendis/flowcanvas/internal/streaming"
	"github.com/rendis/flowcanvas/internal/validation"
)

// cmdServe starts the Flow Store Service.
func cmdServe(args []string) error {
	cfg := loadConfig()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.ListenAddr, "listen address")
	dbPath := fs.String("db", cfg.DBPath, "libsql database path (\"memory\" for in-memory)")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	noScheduler := fs.Bool("no-scheduler", !cfg.Scheduler, "disable the schedule runner")
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

	validator, err := validation.NewValidator()
	if err != nil {
		return fmt.Errorf("compile validators: %w", err)
	}

	hub := streaming.NewMemoryHub()
	runner := &sim.StoreRunner{Store: st}

	srv := server.NewServer(server.Deps{
		Store:     st,
		Runner:    runner,
		Hub:       hub,
		Validator: validator,
		Logger:    logger,
	})

	if !*noScheduler {
		sched := scheduler.NewScheduler(st, runner, logger)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("flow store service listening", slog.String("addr", *addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// openStore opens the persistent store, or an in-memory one when the path
// is the literal "memory".
func openStore(dbPath string) (store.Store, error) {
	if dbPath == "memory" {
		return store.NewMemoryStore(), nil
	}
	if err := os.MkdirAll(flowcanvasDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if !strings.Contains(dbPath, ":") {
		dbPath = "file:" + dbPath
	}
	st, err := store.NewLibSQLStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", dbPath, err)
	}
	return st, nil
}

// newLogger builds the process logger with correlation ID injection.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}
