// Package session is a line-oriented editor for a roster: members and zones
// are added, changed and removed one command at a time, and the roster can
// be solved, saved and reloaded without leaving the loop.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"museum/roster"
	"museum/solver"
)

// Outcome tells the loop what to do after a command.
type Outcome int

const (
	// Continue redraws the roster view before the next prompt.
	Continue Outcome = iota
	// ContinueQuiet prompts again without redrawing, keeping command
	// output on screen.
	ContinueQuiet
	// Terminate ends the session.
	Terminate
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case ContinueQuiet:
		return "continue-quiet"
	case Terminate:
		return "terminate"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

type Options struct {
	// Roster is edited in place. Nil starts from an empty roster.
	Roster *roster.Roster
	// StatePath is used by load and save when no path is given.
	StatePath string
	Params    solver.Params
	// Timeout bounds each solve. Zero means no deadline.
	Timeout time.Duration
	Logger  *slog.Logger
	// ClearScreen clears the terminal before each redraw.
	ClearScreen bool
}

type Session struct {
	roster  *roster.Roster
	path    string
	params  solver.Params
	timeout time.Duration
	logger  *slog.Logger
	clear   bool

	in   *bufio.Scanner
	out  io.Writer
	view *view
}

func New(in io.Reader, out io.Writer, opts Options) *Session {
	r := opts.Roster
	if r == nil {
		r = roster.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		roster:  r,
		path:    opts.StatePath,
		params:  opts.Params,
		timeout: opts.Timeout,
		logger:  logger,
		clear:   opts.ClearScreen,
		in:      bufio.NewScanner(in),
		out:     out,
		view:    newView(out),
	}
}

// Roster returns the roster being edited.
func (s *Session) Roster() *roster.Roster {
	return s.roster
}

// Run reads commands until exit or end of input. Command errors are printed
// and leave the roster unchanged; only read errors are returned.
func (s *Session) Run(ctx context.Context) error {
	s.redraw()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, "> ")
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}

		outcome, err := s.Execute(ctx, s.in.Text())
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
			if errors.Is(err, errUnknownCommand) {
				fmt.Fprintln(s.out, `type "help" for a list of commands`)
			}
			continue
		}

		switch outcome {
		case Continue:
			s.redraw()
		case ContinueQuiet:
		case Terminate:
			return nil
		}
	}
}

func (s *Session) redraw() {
	if s.clear {
		fmt.Fprint(s.out, "\x1b[H\x1b[2J")
	}
	fmt.Fprint(s.out, s.view.roster(s.roster))
}
