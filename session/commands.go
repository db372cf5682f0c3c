package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"museum/roster"
	"museum/solver"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("usage")
	errTriple         = errors.New("malformed attribute triple")
)

const helpText = `commands:
  list                                         redraw the roster
  member add <name> <time,value,popularity>    add or replace a member
  member del <name>                            remove a member
  zone add <name> <base> <sub-level> <requirement> [scaler]
                                               add or replace a zone
  zone del <name>                              remove a zone
  zone level <name> <level>                    move a zone to a level
  zone req <name> <time,value,popularity>      set a requirement (scaled)
  zone scaler <name> <percent>                 set the requirement scaler
  solve                                        assign members to zones
  load [path]                                  replace the roster from disk
  save [path]                                  write the roster to disk
  clear                                        remove all members and zones
  help                                         show this text
  exit                                         leave
`

// Execute runs one command line. A returned error is a user error: the
// roster is left as it was.
func (s *Session) Execute(ctx context.Context, line string) (Outcome, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return ContinueQuiet, nil
	}

	switch cmd, rest := strings.ToLower(args[0]), args[1:]; cmd {
	case "help", "?":
		fmt.Fprint(s.out, helpText)
		return ContinueQuiet, nil
	case "list", "ls":
		return Continue, nil
	case "member", "m":
		return s.member(rest)
	case "zone", "z":
		return s.zone(rest)
	case "solve":
		return s.solve(ctx)
	case "load":
		return s.load(rest)
	case "save":
		return s.save(rest)
	case "clear":
		s.roster.Clear()
		return Continue, nil
	case "exit", "quit", "q":
		return Terminate, nil
	default:
		return ContinueQuiet, fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}

func (s *Session) member(args []string) (Outcome, error) {
	if len(args) == 0 {
		return ContinueQuiet, usage("member add|del ...")
	}
	switch sub, args := args[0], args[1:]; sub {
	case "add", "set":
		if len(args) != 2 {
			return ContinueQuiet, usage("member add <name> <time,value,popularity>")
		}
		attr, err := parseTriple(args[1])
		if err != nil {
			return ContinueQuiet, err
		}
		if err := s.roster.PutMember(solver.Member{Name: args[0], Attribute: attr}); err != nil {
			return ContinueQuiet, err
		}
		return Continue, nil
	case "del", "rm", "delete":
		if len(args) != 1 {
			return ContinueQuiet, usage("member del <name>")
		}
		if err := s.roster.DeleteMember(args[0]); err != nil {
			return ContinueQuiet, err
		}
		return Continue, nil
	default:
		return ContinueQuiet, fmt.Errorf("%w: member %s", errUnknownCommand, sub)
	}
}

func (s *Session) zone(args []string) (Outcome, error) {
	if len(args) == 0 {
		return ContinueQuiet, usage("zone add|del|level|req|scaler ...")
	}
	switch sub, args := args[0], args[1:]; sub {
	case "add", "set":
		if len(args) != 4 && len(args) != 5 {
			return ContinueQuiet, usage("zone add <name> <base> <sub-level> <requirement> [scaler]")
		}
		var triples [3]solver.Attribute
		for i := range triples {
			t, err := parseTriple(args[i+1])
			if err != nil {
				return ContinueQuiet, err
			}
			triples[i] = t
		}
		z := solver.Zone{Name: args[0], Base: triples[0], SubLevel: triples[1], Requirement: triples[2]}
		if len(args) == 5 {
			pct, err := parseInt(args[4])
			if err != nil {
				return ContinueQuiet, err
			}
			z.Scaler = pct
		}
		if err := s.roster.PutZone(z); err != nil {
			return ContinueQuiet, err
		}
		return Continue, nil
	case "del", "rm", "delete":
		if len(args) != 1 {
			return ContinueQuiet, usage("zone del <name>")
		}
		if err := s.roster.DeleteZone(args[0]); err != nil {
			return ContinueQuiet, err
		}
		return Continue, nil
	case "level":
		if len(args) != 2 {
			return ContinueQuiet, usage("zone level <name> <level>")
		}
		level, err := parseInt(args[1])
		if err != nil {
			return ContinueQuiet, err
		}
		if err := s.roster.SetLevel(args[0], level); err != nil {
			return ContinueQuiet, err
		}
		return Continue, nil
	case "req", "requirement":
		if len(args) != 2 {
			return ContinueQuiet, usage("zone req <name> <time,value,popularity>")
		}
		req, err := parseTriple(args[1])
		if err != nil {
			return ContinueQuiet, err
		}
		if err := s.roster.SetRequirement(args[0], req); err != nil {
			return ContinueQuiet, err
		}
		return Continue, nil
	case "scaler":
		if len(args) != 2 {
			return ContinueQuiet, usage("zone scaler <name> <percent>")
		}
		pct, err := parseInt(strings.TrimSuffix(args[1], "%"))
		if err != nil {
			return ContinueQuiet, err
		}
		if err := s.roster.SetScaler(args[0], pct); err != nil {
			return ContinueQuiet, err
		}
		return Continue, nil
	default:
		return ContinueQuiet, fmt.Errorf("%w: zone %s", errUnknownCommand, sub)
	}
}

func (s *Session) solve(ctx context.Context) (Outcome, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sol, err := s.roster.Solve(ctx, s.params)
	if err != nil {
		s.logger.Warn("solve aborted", "error", err)
		return ContinueQuiet, fmt.Errorf("solve: %w", err)
	}
	if sol == nil {
		fmt.Fprintln(s.out, "nothing to solve: need at least 3 members and 1 zone")
		return ContinueQuiet, nil
	}
	s.logger.Debug("solved",
		"cost", sol.Cost.String(),
		"states", sol.Stats.States,
		"memo_hits", sol.Stats.MemoHits)
	fmt.Fprint(s.out, s.view.solution(sol))
	return ContinueQuiet, nil
}

func (s *Session) load(args []string) (Outcome, error) {
	path, err := s.pathArg("load", args)
	if err != nil {
		return ContinueQuiet, err
	}
	r, err := roster.Load(path)
	if err != nil {
		s.logger.Warn("load failed", "path", path, "error", err)
		return ContinueQuiet, err
	}
	*s.roster = *r
	s.logger.Info("roster loaded", "path", path,
		"members", len(r.Members()), "zones", len(r.Zones()))
	return Continue, nil
}

func (s *Session) save(args []string) (Outcome, error) {
	path, err := s.pathArg("save", args)
	if err != nil {
		return ContinueQuiet, err
	}
	if err := s.roster.Save(path); err != nil {
		s.logger.Error("save failed", "path", path, "error", err)
		return ContinueQuiet, err
	}
	s.logger.Info("roster saved", "path", path)
	fmt.Fprintf(s.out, "saved to %s\n", path)
	return ContinueQuiet, nil
}

func (s *Session) pathArg(cmd string, args []string) (string, error) {
	switch {
	case len(args) > 1:
		return "", usage(cmd + " [path]")
	case len(args) == 1:
		return args[0], nil
	case s.path == "":
		return "", fmt.Errorf("%s: no path given and no default state path", cmd)
	}
	return s.path, nil
}

func usage(text string) error {
	return fmt.Errorf("%w: %s", errUsage, text)
}

// parseTriple reads "time,value,popularity"; slashes may separate the
// numbers too.
func parseTriple(s string) (solver.Attribute, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '/' })
	if len(parts) != 3 {
		return solver.Attribute{}, fmt.Errorf("%w: %q", errTriple, s)
	}
	var n [3]int64
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return solver.Attribute{}, fmt.Errorf("%w: %q", errTriple, s)
		}
		n[i] = v
	}
	return solver.Attr(n[0], n[1], n[2]), nil
}

func parseInt(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, s)
	}
	return v, nil
}
