package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/app"
	"github.com/ent0n29/aac/internal/config"
	"github.com/ent0n29/aac/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "aac",
		Short:         "Context-aware phrase suggestions for augmentative communication",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newSuggestCommand(), newChatCommand())
	return root
}

// buildFromEnv loads configuration and wires the application. quiet forces
// warn-level logging so CLI output stays readable.
func buildFromEnv(quiet bool) (*app.BuildResult, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config error: %w", err)
	}
	level := cfg.LogLevel
	if quiet {
		level = "warn"
	}
	logger, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	built, err := app.Build(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return built, logger, nil
}
