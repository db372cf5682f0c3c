// Command museum solves and edits museum staffing rosters.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"museum/config"
	"museum/roster"
)

var (
	rootCmd = &cobra.Command{
		Use:               "museum",
		Short:             "Assign museum staff to exhibition zones",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
	configPath string
	statePath  string
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "YAML config file")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "", "roster document (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(tuneCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	logger = newLogger(verbose)

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if statePath != "" {
		cfg.StatePath = statePath
	}
	logger.Debug("config loaded", "config", configPath, "state", cfg.StatePath)
	return nil
}

// newLogger writes text to a terminal and JSON otherwise.
func newLogger(verbose bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		options.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// loadRoster reads the roster at path, falling back to the built-in one
// when nothing has been saved yet.
func loadRoster(path string) (*roster.Roster, error) {
	r, err := roster.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("no saved roster, using default", "path", path)
		return roster.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	return r, nil
}
