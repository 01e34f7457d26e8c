package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"ampctl-go/services/config"
	"ampctl-go/types"
)

type globalFlags struct {
	configPath string
	board      string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	cmd := &cobra.Command{
		Use:           "ampd",
		Short:         "Amplifier power controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), g)
		},
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML file overlaid on the board defaults")
	cmd.PersistentFlags().StringVarP(&g.board, "board", "b", "", "board defaults to start from (host|pico)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log.level (debug|info|warn|error)")

	cmd.AddCommand(runCmd(&g), settingsCmd(&g))
	return cmd
}

func runCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the controller (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), *g)
		},
	}
}

func loadConfig(g globalFlags) (types.BootConfig, error) {
	cfg, err := config.Load(g.board, g.configPath)
	if err != nil {
		return cfg, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = strings.ToLower(g.logLevel)
		if err := config.Validate(cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func newLogger(w io.Writer, c types.LogConfig) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
