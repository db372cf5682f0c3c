package solver

import (
	"strconv"
	"strings"
)

// searchState is one sub-problem: the members still free, as ascending
// indexes into the canonically sorted pool, and the first unassigned zone.
// Zones are consumed in order, so the suffix zones[zone:] is identified by
// zone alone.
type searchState struct {
	members []int
	zone    int
	zones   int
}

type triple [3]int

func (s searchState) canRecurse() bool {
	return len(s.members) >= 6 && s.zones-s.zone >= 2
}

func (s searchState) advance(chosen triple) searchState {
	rest := make([]int, 0, len(s.members)-3)
	for _, m := range s.members {
		if m != chosen[0] && m != chosen[1] && m != chosen[2] {
			rest = append(rest, m)
		}
	}
	return searchState{members: rest, zone: s.zone + 1, zones: s.zones}
}

// key identifies the state within one solve call. members is kept sorted by
// newSearchState and advance, so equal remaining pools produce equal keys
// whatever order they were reached in.
func (s searchState) key() string {
	var buf strings.Builder
	buf.Grow(len(s.members)*3 + 4)
	for i, m := range s.members {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(m))
	}
	buf.WriteByte(';')
	buf.WriteString(strconv.Itoa(s.zone))
	return buf.String()
}
