package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"webmcp-bridge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a .webmcp/ workspace with a commented config template",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		if err := config.InitWorkspace(root); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", filepath.Join(root, config.WorkspaceDirName, config.WorkspaceConfigFile))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
