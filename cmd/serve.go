package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Nemolo/jmap-client/internal/instrumentation"
	"github.com/Nemolo/jmap-client/internal/jmap"
	"github.com/Nemolo/jmap-client/internal/logging"
	"github.com/Nemolo/jmap-client/internal/resources"
	"github.com/Nemolo/jmap-client/internal/server"
	"github.com/Nemolo/jmap-client/internal/tools/jmap_tools"
)

const (
	defaultRPS   = 10
	defaultBurst = 20

	metricsStartTimeout = 5 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: false)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveOptions struct {
	yolo    bool
	rps     float64
	burst   int
	metrics MetricsConfig
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var serveOpts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP (Model Context Protocol) server over stdio.

The server exposes JMAP tools to AI assistants. By default only tools that
read from the server are registered; use --yolo to enable tools that change
mailboxes and emails. Tool calls are rate limited with --rps and --burst.

With --metrics a Prometheus endpoint and health probes are served on
--metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadMetricsEnv(cmd, &serveOpts.metrics)
			return runServe(cmd, opts, serveOpts)
		},
	}

	cmd.Flags().BoolVar(&serveOpts.yolo, "yolo", false, "Enable write operations (email set and import, mailbox set, upload)")
	cmd.Flags().Float64Var(&serveOpts.rps, "rps", defaultRPS, "Maximum tool calls per second, 0 disables the limit")
	cmd.Flags().IntVar(&serveOpts.burst, "burst", defaultBurst, "Number of tool calls allowed in a burst above --rps")
	cmd.Flags().BoolVar(&serveOpts.metrics.Enabled, "metrics", false, "Serve Prometheus metrics and health probes (env: METRICS_ENABLED)")
	cmd.Flags().StringVar(&serveOpts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Address of the metrics server (env: METRICS_ADDR)")

	return cmd
}

// loadMetricsEnv fills metrics settings from the environment when the
// corresponding flag was not given.
func loadMetricsEnv(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics") && strings.EqualFold(os.Getenv("METRICS_ENABLED"), "true") {
		config.Enabled = true
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions, serveOpts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	logger = logging.WithOperation(logger, "serve")

	// Initialize instrumentation provider
	instrConfig, err := instrumentation.LoadConfig()
	if err != nil {
		return err
	}
	instrConfig.ServiceVersion = version
	if u, err := url.Parse(cfg.SessionURL); err == nil {
		instrConfig.ServerAddress = u.Hostname()
	}
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var clientOpts []jmap.Option
	if m := provider.Metrics(); m != nil {
		clientOpts = append(clientOpts, jmap.WithMetrics(m))
	}
	client, err := newClient(shutdownCtx, cfg, logger, clientOpts...)
	if err != nil {
		return err
	}

	// readOnly is the inverse of yolo
	readOnly := !serveOpts.yolo

	serverContext, err := server.NewServerContext(shutdownCtx, client,
		server.WithReadOnly(readOnly),
		server.WithRateLimit(serveOpts.rps, serveOpts.burst),
		server.WithLogger(logging.NewSlogAdapter(logger)),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	if m := provider.Metrics(); m != nil {
		serverContext.SetMetrics(m)
	}
	serverContext.SetAuditLogger(provider.AuditLogger(logger))
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	if serveOpts.metrics.Enabled {
		metricsServer, err := startMetricsServer(serveOpts.metrics, provider, server.NewHealthChecker(serverContext), logger)
		if err != nil {
			return err
		}
		if metricsServer != nil {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := metricsServer.Shutdown(ctx); err != nil {
					logger.Warn("metrics server shutdown failed", logging.Err(err))
				}
			}()
		}
	}

	mcpSrv := mcpserver.NewMCPServer("jmap-client", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
		mcpserver.WithRecovery(),
	)

	if readOnly {
		logger.Info("starting MCP server in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting MCP server with write operations enabled (--yolo)")
	}

	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	return runStdioServer(shutdownCtx, mcpSrv)
}

// startMetricsServer starts the metrics server and waits until it listens.
// It returns nil when instrumentation is disabled.
func startMetricsServer(config MetricsConfig, provider *instrumentation.Provider, health *server.HealthChecker, logger *slog.Logger) (*server.MetricsServer, error) {
	if !provider.Enabled() {
		logger.Warn("metrics server not started: instrumentation is disabled")
		return nil, nil
	}

	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
		Health:                  health,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	// Wait for metrics server to be ready or fail
	select {
	case <-metricsReady:
		logger.Info("metrics server started", "addr", metricsServer.Addr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}

// registerAllTools registers all MCP tools and resources
// Shared by serve and generate-docs
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "JMAP",
			register: func() error {
				return jmap_tools.RegisterJMAPTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "resource",
			register: func() error {
				return resources.RegisterSessionResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", reg.name, err)
		}
	}

	return nil
}
