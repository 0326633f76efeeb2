package main

import (
	"context"
	"fmt"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/apiflow/internal/server"
)

// shutdownTimeout bounds flushing of audit entries and telemetry on exit.
const shutdownTimeout = 10 * time.Second

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiled tools over MCP stdio",
		Long: "Serve the compiled tools over MCP stdio. When metrics are enabled, an admin " +
			"listener exposes /metrics, /healthz, /readyz and /tools.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func runServe(ctx context.Context, flags *rootFlags) error {
	cfg, err := flags.load()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting apiflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	a, err := bootstrap(ctx, cfg, logger, bootstrapOptions{withMetrics: true})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(shutdownCtx)
	}()

	if cfg.Metrics.Enabled {
		admin, err := startAdmin(a)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := admin.Shutdown(shutdownCtx); err != nil {
				logger.Warn("admin server shutdown failed", zap.Error(err))
			}
		}()
	}

	logger.Info("serving tools over stdio",
		zap.String("api", a.catalog.Title()),
		zap.Int("tools", a.catalog.Len()),
	)
	if err := mcpserver.ServeStdio(newMCPServer(a.engine, logger)); err != nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	logger.Info("apiflow stopped")
	return nil
}

// startAdmin 启动 /metrics、/healthz、/readyz 与 /tools 监听
func startAdmin(a *app) (*server.Manager, error) {
	opts := server.HandlerOptions{
		Checks:  a.checks,
		Catalog: a.catalog,
	}
	if a.registry != nil {
		opts.Gatherer = a.registry
	}
	handler := server.NewHandler(opts, a.logger)

	cfg := server.DefaultConfig()
	cfg.Addr = a.cfg.Metrics.Addr
	admin := server.NewManager(handler, cfg, a.logger)
	if err := admin.Start(); err != nil {
		return nil, fmt.Errorf("failed to start admin server: %w", err)
	}

	go func() {
		for err := range admin.Errors() {
			a.logger.Error("admin server error", zap.Error(err))
		}
	}()
	return admin, nil
}
