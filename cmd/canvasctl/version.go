package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftmetrics/canvas/pkg/canvas"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the canvasctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "canvasctl v%s\n", canvas.Version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and local storage",
	Long:  "Create the config directory, a default config.yaml, and the local database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cleanup, err := newCanvas()
		if err != nil {
			return err
		}
		defer cleanup()
		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "initialized canvas storage in %s\n", dataDir)
		return nil
	},
}
