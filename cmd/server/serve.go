package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webmcp-bridge/internal/apps/catalog"
	"webmcp-bridge/internal/config"
	"webmcp-bridge/internal/logging"
	"webmcp-bridge/internal/metrics"
	"webmcp-bridge/internal/recorder"
	"webmcp-bridge/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the apps over MCP stdio, or over HTTP with SSE and live pages",
	Long: `Without an SSE port, one app (mcp.stdio_app) is served on stdin/stdout and logs go to
server.log_file only. With --sse-port every enabled app gets a page at /apps/<name>/ and an MCP
SSE endpoint at /apps/<name>/sse.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, wsDir, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("sse-port") {
			cfg.MCP.SSEPort, _ = cmd.Flags().GetInt("sse-port")
		}
		if cmd.Flags().Changed("app") {
			cfg.MCP.StdioApp, _ = cmd.Flags().GetString("app")
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		stdio := cfg.MCP.SSEPort == 0
		logger := logging.NewForMode(cfg.Server.LogLevel, cfg.Server.LogFile, cfg.Server.Development, stdio)
		defer func() { _ = logger.Sync() }()
		if wsDir != "" {
			logger.Info("workspace config loaded", zap.String("dir", wsDir))
		}

		opts := catalog.Options{
			ServerName:      cfg.Server.Name,
			Version:         cfg.Server.Version,
			ReadyTimeout:    cfg.Bridge.Ready(),
			NotificationTTL: cfg.Bridge.TTL(),
			Logger:          logger,
		}
		if cfg.Recorder.Enable {
			rec, err := startRecorder(cfg.Recorder.Dir)
			if err != nil {
				return err
			}
			defer rec.Close()
			opts.Recorder = rec
			logger.Info("flight recorder enabled", zap.String("trace", rec.Path()))
		}

		if stdio {
			return serveStdio(cmd.Context(), cfg, opts, logger)
		}
		return serveHTTP(cmd.Context(), cfg, opts, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("sse-port", 0, "Serve over HTTP on this port (overrides mcp.sse_port)")
	serveCmd.Flags().String("app", "", "App served in stdio mode (overrides mcp.stdio_app)")
}

func startRecorder(dir string) (*recorder.Recorder, error) {
	rec, err := recorder.NewRecorder(dir)
	if err != nil {
		return nil, fmt.Errorf("create recorder: %w", err)
	}
	if err := rec.Start(time.Now().Format("20060102-150405")); err != nil {
		return nil, fmt.Errorf("start recorder: %w", err)
	}
	return rec, nil
}

func serveStdio(ctx context.Context, cfg config.Config, opts catalog.Options, logger *zap.Logger) error {
	rt, err := catalog.Start(ctx, cfg.MCP.StdioApp, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting MCP stdio server", zap.String("app", rt.Name()), zap.Strings("tools", rt.App.Host().Tools()))
	stdioServer := mcpserver.NewStdioServer(rt.Dispatcher)
	stdioServer.SetErrorLogger(zap.NewStdLog(logger))
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func serveHTTP(ctx context.Context, cfg config.Config, opts catalog.Options, logger *zap.Logger) error {
	var m *metrics.Metrics
	if cfg.HTTP.EnableMetrics {
		m = metrics.New()
		opts.Metrics = m
	}

	runtimes, err := catalog.StartAll(ctx, cfg.Apps.Enabled, opts)
	if err != nil {
		return err
	}
	defer func() {
		for _, rt := range runtimes {
			rt.Close()
		}
	}()

	baseURL := cfg.HTTP.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", cfg.MCP.SSEPort)
	}
	srv := web.New(runtimes, web.Options{BaseURL: baseURL, Logger: logger, Metrics: m})

	logger.Info("starting HTTP server",
		zap.Int("port", cfg.MCP.SSEPort),
		zap.String("base_url", baseURL),
		zap.Strings("apps", cfg.Apps.Enabled),
		zap.Bool("metrics", m != nil))
	err = web.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.MCP.SSEPort), srv, cfg.HTTP.Shutdown())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
