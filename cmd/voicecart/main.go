package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/voicecart-mcp/internal/catalog"
	"github.com/dshills/voicecart-mcp/internal/config"
	"github.com/dshills/voicecart-mcp/internal/ledger"
	"github.com/dshills/voicecart-mcp/internal/mcp"
	"github.com/dshills/voicecart-mcp/internal/metrics"
	"github.com/dshills/voicecart-mcp/internal/orders"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("VoiceCart MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", ledger.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", ledger.DriverName)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// Log to stderr (stdout reserved for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	logger.Info("VoiceCart MCP Server starting",
		"version", version,
		"transport", cfg.Transport,
		"ledger", cfg.Ledger,
		"build_mode", ledger.BuildMode)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	store := catalog.Load(cfg.CatalogFile, logger)

	repo, err := ledger.Open(ledger.Config{
		Backend:    ledger.Backend(cfg.Ledger),
		FilePath:   cfg.OrdersFile,
		SQLitePath: cfg.SQLitePath,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("failed to close ledger", "error", err)
		}
	}()

	svc := orders.NewService(store, repo,
		orders.WithCurrency(cfg.Currency),
		orders.WithLogger(logger))

	var rec *metrics.Recorder
	if cfg.MetricsAddr != "" {
		rec = metrics.NewRecorder()
	}

	server, err := mcp.NewServer(store, svc, mcp.WithLogger(logger), mcp.WithMetrics(rec))
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A finished MCP session stops the metrics endpoint too
		defer cancel()
		if cfg.Transport == config.TransportHTTP {
			logger.Info("MCP server ready", "transport", "http", "addr", cfg.HTTPAddr)
			return server.ServeHTTP(ctx, cfg.HTTPAddr)
		}
		logger.Info("MCP server ready, listening on stdio")
		return server.ServeStdio(ctx)
	})
	if rec != nil {
		g.Go(func() error {
			logger.Info("metrics endpoint ready", "addr", cfg.MetricsAddr)
			return rec.Serve(ctx, cfg.MetricsAddr)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
