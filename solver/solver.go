package solver

import (
	"context"
	"errors"
	"slices"
)

// ErrStateLimit is returned by SolveContext when the search needs more
// distinct states than Params.MaxStates allows.
var ErrStateLimit = errors.New("solver: state limit exceeded")

type Params struct {
	// MaxStates caps the number of distinct memoized states. Zero means no
	// limit.
	MaxStates int
}

var DefaultParams = Params{
	MaxStates: 0,
}

type Assignment struct {
	Zone    Zone      `json:"zone"`
	Members [3]Member `json:"members"`
}

type Stats struct {
	States   int `json:"states"`
	MemoHits int `json:"memo_hits"`
	Subsets  int `json:"subsets"`
}

type Solution struct {
	Cost Cost `json:"cost"`
	// Assignments follow the input zone order and may stop short of the last
	// zone when members run out.
	Assignments []Assignment `json:"assignments"`
	Stats       Stats        `json:"stats"`
}

// Mapping returns the assigned triples keyed by zone name.
func (s *Solution) Mapping() map[string][3]Member {
	m := make(map[string][3]Member, len(s.Assignments))
	for _, a := range s.Assignments {
		m[a.Zone.Name] = a.Members
	}
	return m
}

// pick is one zone assignment in a memoized result. Results share their
// tails, so picks are never mutated once built.
type pick struct {
	zone    int
	members triple
	next    *pick
}

type result struct {
	cost  Cost
	picks *pick
}

type searcher struct {
	ctx    context.Context
	params Params
	pool   []Member
	zones  []Zone
	memo   map[string]result
	stats  Stats
}

// Solve finds the assignment of member triples to a prefix of zones with the
// lowest Cost. It returns nil when fewer than three members or no zones are
// given.
func Solve(members []Member, zones []Zone) *Solution {
	sol, err := SolveContext(context.Background(), members, zones, DefaultParams)
	if err != nil {
		// Unreachable without a deadline or state limit.
		panic(err)
	}
	return sol
}

// SolveContext is Solve with cancellation and a state ceiling. A nil
// Solution with a nil error means the input had nothing to assign.
func SolveContext(ctx context.Context, members []Member, zones []Zone, params Params) (*Solution, error) {
	if len(members) < 3 || len(zones) == 0 {
		return nil, nil
	}

	pool := slices.Clone(members)
	slices.SortFunc(pool, compareMembers)

	s := &searcher{
		ctx:    ctx,
		params: params,
		pool:   pool,
		zones:  zones,
		memo:   map[string]result{},
	}

	initial := searchState{members: make([]int, len(pool)), zones: len(zones)}
	for i := range pool {
		initial.members[i] = i
	}

	res, err := s.search(initial)
	if err != nil {
		return nil, err
	}

	sol := &Solution{Cost: res.cost, Stats: s.stats}
	for p := res.picks; p != nil; p = p.next {
		sol.Assignments = append(sol.Assignments, Assignment{
			Zone:    zones[p.zone],
			Members: [3]Member{pool[p.members[0]], pool[p.members[1]], pool[p.members[2]]},
		})
	}
	return sol, nil
}

func (s *searcher) search(st searchState) (result, error) {
	key := st.key()
	if r, ok := s.memo[key]; ok {
		s.stats.MemoHits++
		return r, nil
	}
	if err := s.ctx.Err(); err != nil {
		return result{}, err
	}
	if s.params.MaxStates > 0 && len(s.memo) >= s.params.MaxStates {
		return result{}, ErrStateLimit
	}

	zone := s.zones[st.zone]
	recurse := st.canRecurse()
	best := result{cost: infiniteCost}

	m := st.members
	for i := 0; i < len(m); i++ {
		for j := i + 1; j < len(m); j++ {
			for k := j + 1; k < len(m); k++ {
				chosen := triple{m[i], m[j], m[k]}
				trio := [3]Member{s.pool[m[i]], s.pool[m[j]], s.pool[m[k]]}
				s.stats.Subsets++

				cost := zone.Cost(trio[:])
				if !cost.Less(best.cost) {
					continue
				}

				var next *pick
				if recurse {
					// canRecurse leaves at least three members, so the
					// child cost is finite.
					child, err := s.search(st.advance(chosen))
					if err != nil {
						return result{}, err
					}
					cost = cost.Add(child.cost)
					next = child.picks
				}

				if cost.Less(best.cost) {
					best = result{
						cost:  cost,
						picks: &pick{zone: st.zone, members: chosen, next: next},
					}
				}
			}
		}
	}

	s.memo[key] = best
	s.stats.States++
	return best, nil
}
