package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Versifine/rotation/internal/config"
	"github.com/Versifine/rotation/internal/logger"
)

const defaultConfigPath = "configs/config.yaml"

var version = "dev"

type globalFlags struct {
	configPath string
	traceDir   string
	telemetry  string
}

// app carries what every subcommand shares once the root pre-run has
// loaded configuration.
type app struct {
	flags   globalFlags
	cfg     *config.Config
	logFile *os.File
}

func Execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root, a := newRootCmd()
	defer a.close()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "rotsim",
		Short: "Drive the rotation engine from scenarios or an interactive console",
		Long: `rotsim resolves an actor's facing every tick from a look direction,
position, target, camera or custom source, turning at a bounded rate.

Scenarios are YAML files describing the scene and timed calls into the
rotation system; run them headless with "rotsim run" or steer one live with
"rotsim console".`,
		PersistentPreRunE: a.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
	root.PersistentFlags().StringVar(&a.flags.configPath, "config", "", "Path to config file (default: "+defaultConfigPath+" when present)")
	root.PersistentFlags().StringVar(&a.flags.traceDir, "trace", "", "Record a trace bundle under this directory")
	root.PersistentFlags().StringVar(&a.flags.telemetry, "telemetry", "", "Serve websocket telemetry on this host:port")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newConsoleCmd(a))
	root.AddCommand(newVersionCmd())
	return root, a
}

// setup loads configuration, applies flag overrides and initializes the
// logger. The version command needs none of it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	cfg, err := loadConfig(a.flags.configPath)
	if err != nil {
		return err
	}
	if a.flags.traceDir != "" {
		cfg.Trace.Enabled = true
		cfg.Trace.Dir = a.flags.traceDir
	}
	if a.flags.telemetry != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Listen = a.flags.telemetry
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	var out io.Writer = cmd.ErrOrStderr()
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		out = f
	}
	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
	})
	slog.Debug("Configuration loaded", "mode", cfg.Rotation.Mode, "turn_speed", cfg.Rotation.TurnSpeed)
	return nil
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// loadConfig reads path, or the default path when it exists, or falls back
// to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(defaultConfigPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("load config %s: %w", defaultConfigPath, err)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rotsim version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rotsim %s\n", version)
		},
	}
}
