package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"museum/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Edit and solve the roster interactively",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	r, err := loadRoster(cfg.StatePath)
	if err != nil {
		return err
	}

	s := session.New(cmd.InOrStdin(), cmd.OutOrStdout(), session.Options{
		Roster:      r,
		StatePath:   cfg.StatePath,
		Params:      cfg.Params(),
		Timeout:     cfg.SolveTimeout,
		Logger:      logger.With("command", "session"),
		ClearScreen: term.IsTerminal(int(os.Stdout.Fd())),
	})
	return s.Run(cmd.Context())
}
