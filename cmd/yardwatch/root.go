package main

import (
	"github.com/spf13/cobra"

	"github.com/banshee-data/yardwatch/internal/config"
	"github.com/banshee-data/yardwatch/internal/monitoring"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string
	LogLevel   string
}

// NewRootCommand creates the yardwatch command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "yardwatch",
		Short:         "Torpedo yard monitor",
		Long:          "Tracks torpedo wagons through the yard from section sensor snapshots, raises trail-through alerts and records yard performance.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultConfigPath, "path to the JSON configuration file")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "override database_path from the configuration")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log_level from the configuration")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewLayoutCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewClearCommand())
	cmd.AddCommand(NewResetCommand())
	cmd.AddCommand(NewWatchCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// load reads the configuration and applies flag overrides.
func (o *RootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		if o.DBPath == "" {
			return nil, err
		}
		// A database path on the command line is enough for the
		// maintenance commands.
		cfg = config.Empty()
	}
	if o.DBPath != "" {
		cfg = cfg.WithDatabasePath(o.DBPath)
	}
	if o.LogLevel != "" {
		cfg.LogLevel = &o.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	monitoring.SetLevel(cfg.GetLogLevel())
	return cfg, nil
}
