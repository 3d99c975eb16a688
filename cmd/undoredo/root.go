package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/undoredo/internal/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "undoredo",
		Short: "Scriptable undo/redo history",
		Long: `undoredo records actions made of do and undo operations, merges and
bounds them, and replays them on undo and redo. Scripts drive the history
through the "history" and "objects" Lua modules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(flags),
		newConfigCmd(flags),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads the config file and applies flag overrides.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
