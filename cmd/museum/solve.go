package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"museum/session"
	"museum/solver"
)

var (
	solveCmd = &cobra.Command{
		Use:   "solve",
		Short: "Solve the saved roster and print the assignment",
		Args:  cobra.NoArgs,
		RunE:  runSolve,
	}
	solveJSON      bool
	solveMaxStates int
)

func init() {
	solveCmd.Flags().BoolVar(&solveJSON, "json", false, "print the solution as JSON")
	solveCmd.Flags().IntVar(&solveMaxStates, "max-states", 0, "cap on search states (default from config)")
}

func runSolve(cmd *cobra.Command, args []string) error {
	r, err := loadRoster(cfg.StatePath)
	if err != nil {
		return err
	}

	params := cfg.Params()
	if cmd.Flags().Changed("max-states") {
		params.MaxStates = solveMaxStates
	}

	ctx := cmd.Context()
	if cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.SolveTimeout)
		defer cancel()
	}

	sol, err := r.Solve(ctx, params)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	logger.Debug("solved", "members", len(r.Members()), "zones", len(r.Zones()))
	return printSolution(cmd.OutOrStdout(), sol, solveJSON)
}

func printSolution(w io.Writer, sol *solver.Solution, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sol)
	}
	if sol == nil {
		_, err := fmt.Fprintln(w, "nothing to solve: need at least 3 members and 1 zone")
		return err
	}
	return session.WriteSolution(w, sol)
}
