package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"webmcp-bridge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "webmcp-bridge",
	Short: "Hosts in-page tool bridges for AI agents over MCP",
	Long: `webmcp-bridge runs the demo apps as State-Bridges: each app's tools are exposed to an
external agent over MCP (stdio or SSE) while the same state is rendered as live HTML pages.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Explicit config file layered over the workspace config")
	rootCmd.PersistentFlags().String("workspace-dir", "", "Use this directory as workspace root instead of discovering .webmcp/")
	rootCmd.PersistentFlags().Bool("no-workspace", false, "Skip .webmcp/ workspace discovery")
}

// loadConfig merges defaults, workspace, --config and environment.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	wsDir, _ := cmd.Flags().GetString("workspace-dir")
	noWs, _ := cmd.Flags().GetBool("no-workspace")

	cfg, ws, err := config.LoadWithWorkspace(path, config.WorkspaceOptions{Disable: noWs, ExplicitDir: wsDir})
	if err != nil {
		return cfg, ws, fmt.Errorf("load config: %w", err)
	}
	return cfg, ws, nil
}
