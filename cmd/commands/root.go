package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"election-results/internal/app"
	"election-results/internal/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "election-results",
	Short:         "election-results crawls published election results and reconciles priority votes.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config (defaults to $CONFIG_PATH, then ./config.yaml).")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Overrides log.level (debug, info, warn, error).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command, override func(*config.Config)) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func newApp(cmd *cobra.Command, override func(*config.Config)) (*app.App, *slog.Logger, error) {
	cfg, err := loadConfig(cmd, override)
	if err != nil {
		return nil, nil, err
	}

	logger := app.NewLogger(cfg.Log)
	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

// closeApp flushes telemetry on a fresh context so spans survive an interrupt.
func closeApp(cmd *cobra.Command, a *app.App) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to flush telemetry", slog.Any("error", err))
	}
}
