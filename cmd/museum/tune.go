package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"museum/solver"
)

var (
	tuneCmd = &cobra.Command{
		Use:   "tune",
		Short: "Benchmark the solver on random rosters",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	tuneRuns     int
	tuneMembers  string
	tuneZones    string
	tuneSeed     int64
	tuneParallel int
)

func init() {
	tuneCmd.Flags().IntVar(&tuneRuns, "runs", 20, "number of random rosters per configuration")
	tuneCmd.Flags().StringVar(&tuneMembers, "members", "9,12,15", "comma-separated member counts")
	tuneCmd.Flags().StringVar(&tuneZones, "zones", "2,3", "comma-separated zone counts")
	tuneCmd.Flags().Int64Var(&tuneSeed, "seed", 0, "added to every run's seed")
	tuneCmd.Flags().IntVar(&tuneParallel, "parallel", runtime.NumCPU(), "rosters solved at once")
}

type runResult struct {
	cost    solver.Cost
	stats   solver.Stats
	elapsed time.Duration
	// stable is false when a shuffled copy of the roster solved to a
	// different cost.
	stable bool
}

func runTune(cmd *cobra.Command, args []string) error {
	memberCounts := parseIntList(tuneMembers)
	zoneCounts := parseIntList(tuneZones)
	if len(memberCounts) == 0 || len(zoneCounts) == 0 || tuneRuns <= 0 {
		return fmt.Errorf("tune: need at least one member count, zone count and run")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Runs per config: %d, parallel: %d\n\n", tuneRuns, tuneParallel)

	for _, nm := range memberCounts {
		for _, nz := range zoneCounts {
			results, err := tuneConfig(cmd.Context(), nm, nz, cfg.Params())
			if err != nil {
				return err
			}
			printStats(out, fmt.Sprintf("members=%d zones=%d", nm, nz), results)
		}
	}
	return nil
}

func tuneConfig(ctx context.Context, members, zones int, params solver.Params) ([]runResult, error) {
	results := make([]runResult, tuneRuns)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, tuneParallel))
	for run := range tuneRuns {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(run*31337) + tuneSeed))
			ms, zs := randomRoster(rng, members, zones)

			start := time.Now()
			sol, err := solver.SolveContext(ctx, ms, zs, params)
			elapsed := time.Since(start)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}

			rng.Shuffle(len(ms), func(i, j int) { ms[i], ms[j] = ms[j], ms[i] })
			again, err := solver.SolveContext(ctx, ms, zs, params)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}

			r := runResult{elapsed: elapsed, stable: true}
			if sol != nil {
				r.cost, r.stats = sol.Cost, sol.Stats
				r.stable = again != nil && again.Cost == sol.Cost
			}
			results[run] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// randomRoster draws members and zones in the ranges seen in real rosters.
func randomRoster(rng *rand.Rand, members, zones int) ([]solver.Member, []solver.Zone) {
	ms := make([]solver.Member, members)
	for i := range ms {
		ms[i] = solver.Member{
			Name:      fmt.Sprintf("m%02d", i),
			Attribute: solver.Attr(rng.Int63n(70), rng.Int63n(70), rng.Int63n(70)),
		}
	}
	zs := make([]solver.Zone, zones)
	for i := range zs {
		zs[i] = solver.Zone{
			Name:        fmt.Sprintf("z%d", i),
			Base:        solver.Attr(rng.Int63n(80), rng.Int63n(80), rng.Int63n(80)),
			SubLevel:    solver.Attr(rng.Int63n(10), rng.Int63n(10), rng.Int63n(10)),
			Requirement: solver.Attr(150+rng.Int63n(150), 150+rng.Int63n(150), 150+rng.Int63n(150)),
		}
	}
	return ms, zs
}

func printStats(w io.Writer, label string, results []runResult) {
	runs := len(results)
	costs := map[solver.Cost]int{}
	var totalTime time.Duration
	var totalStates, totalHits, stable int

	for _, r := range results {
		totalTime += r.elapsed
		totalStates += r.stats.States
		totalHits += r.stats.MemoHits
		costs[r.cost]++
		if r.stable {
			stable++
		}
	}

	fmt.Fprintf(w, "--- %s ---\n", label)
	fmt.Fprintf(w, "  avg time: %v\n", totalTime/time.Duration(runs))
	fmt.Fprintf(w, "  avg states: %.1f, avg memo hits: %.1f\n",
		float64(totalStates)/float64(runs), float64(totalHits)/float64(runs))

	type costCount struct {
		cost  solver.Cost
		count int
	}
	var costList []costCount
	for c, n := range costs {
		costList = append(costList, costCount{c, n})
	}
	sort.Slice(costList, func(i, j int) bool { return costList[i].cost.Less(costList[j].cost) })

	fmt.Fprintf(w, "  cost distribution:\n")
	for _, cc := range costList[:min(5, len(costList))] {
		fmt.Fprintf(w, "    %s: %d/%d runs (%.0f%%)\n", cc.cost, cc.count, runs, float64(cc.count)/float64(runs)*100)
	}
	if len(costList) > 5 {
		fmt.Fprintf(w, "    ... %d more\n", len(costList)-5)
	}
	fmt.Fprintf(w, "  same cost after shuffling: %d/%d runs\n", stable, runs)
	fmt.Fprintln(w)
}

func parseIntList(s string) []int {
	parts := strings.Split(s, ",")
	var result []int
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil && v > 0 {
			result = append(result, v)
		}
	}
	return result
}
