package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/driftmetrics/canvas/internal/paths"
	"github.com/driftmetrics/canvas/pkg/canvas"
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagCanvas    string
	flagJSON      bool
	flagVerbose   bool
)

// configDataDir and configUser hold values loaded from config.yaml. Set by
// PersistentPreRunE so all subcommands can use them. cfgViper keeps the full
// parsed config for the autosave tuning keys.
var (
	configDataDir string
	configUser    string
	cfgViper      *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:     "canvasctl",
	Short:   "canvasctl is a metrics-mapping canvas in your terminal",
	Version: canvas.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		cfgViper = cfg
		configDataDir = cfg.GetString(cfgKeyDataDir)
		configUser = cfg.GetString(cfgKeyUserID)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.canvas-db)")
	rootCmd.PersistentFlags().StringVar(&flagCanvas, "canvas", "", "canvas id to operate on")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(canvasCmd)
	rootCmd.AddCommand(cardCmd)
	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(sliceCmd)
}

// resolveDataDir returns the data directory path following the precedence:
// --data-dir flag > config.yaml data_dir > CANVAS_DATA_DIR env > default.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// resolveConfigDir returns the configuration directory following the
// precedence: --config-dir flag > CANVAS_CONFIG_DIR env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}
