package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museum/roster"
	"museum/solver"
)

func ptr[T any](v T) *T { return &v }

func TestRosterBuild(t *testing.T) {
	var body Roster
	require.NoError(t, json.Unmarshal([]byte(`{
		"members": [
			{"name": "a", "attribute": {"time": 10, "value": 10, "popularity": 10}},
			{"name": "b", "attribute": {"time": 10, "value": 10, "popularity": 10}},
			{"name": "c", "attribute": {"time": 10, "value": 10, "popularity": 10}}
		],
		"zones": [
			{
				"name": "hall",
				"base": {"time": 0, "value": 0, "popularity": 0},
				"sub_level": {"time": 0, "value": 0, "popularity": 0},
				"requirement": {"time": 30, "value": 30, "popularity": 30}
			}
		]
	}`), &body))

	r, err := body.Build()
	require.NoError(t, err)
	assert.Len(t, r.Members(), 3)
	z, ok := r.Zone("hall")
	require.True(t, ok)
	assert.Equal(t, int64(roster.DefaultScaler), z.Scaler)
}

func TestRosterValidate(t *testing.T) {
	tests := map[string]Roster{
		"empty member name": {Members: []Member{{Name: ""}}},
		"long zone name":    {Zones: []Zone{{Name: strings.Repeat("x", 65)}}},
		"negative scaler":   {Zones: []Zone{{Name: "hall", Scaler: -1}}},
		"huge scaler":       {Zones: []Zone{{Name: "hall", Scaler: 5000}}},
		"too many members":  {Members: make([]Member, MaxMembers+1)},
		"too many zones":    {Zones: make([]Zone, MaxZones+1)},
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := body.Build()
			assert.Error(t, err)
		})
	}

	empty := Roster{}
	assert.NoError(t, empty.Validate())
}

func TestRosterRejectsMissingComponents(t *testing.T) {
	tests := map[string]string{
		"member without attribute": `{"members": [{"name": "a"}]}`,
		"member without time":      `{"members": [{"name": "a", "attribute": {"value": 1, "popularity": 1}}]}`,
		"zone without base": `{"zones": [{"name": "hall",
			"sub_level": {"time": 1, "value": 1, "popularity": 1},
			"requirement": {"time": 1, "value": 1, "popularity": 1}}]}`,
		"zone without popularity": `{"zones": [{"name": "hall",
			"base": {"time": 1, "value": 1, "popularity": 1},
			"sub_level": {"time": 1, "value": 1, "popularity": 1},
			"requirement": {"time": 1, "value": 1}}]}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var body Roster
			require.NoError(t, json.Unmarshal([]byte(data), &body))
			_, err := body.Build()
			assert.Error(t, err)

			_, err = roster.Parse([]byte(data))
			assert.ErrorIs(t, err, roster.ErrMalformed)
		})
	}

	var zeros Roster
	require.NoError(t, json.Unmarshal([]byte(`{"members": [{"name": "a", "attribute": {"time": 0, "value": 0, "popularity": 0}}]}`), &zeros))
	r, err := zeros.Build()
	require.NoError(t, err)
	m, ok := r.Member("a")
	require.True(t, ok)
	assert.Equal(t, solver.Attr(0, 0, 0), m.Attribute)
}

func TestValidateBatches(t *testing.T) {
	a := Attr(1, 2, 3)
	assert.NoError(t, ValidateMembers([]Member{{Name: "a", Attribute: a}}))
	assert.Error(t, ValidateMembers(nil))
	assert.Error(t, ValidateMembers([]Member{{Name: "a", Attribute: a}, {Name: "", Attribute: a}}))
	assert.Error(t, ValidateMembers([]Member{{Name: "a"}}))

	hall := Zone{Name: "hall", Base: a, SubLevel: a, Requirement: a, Scaler: 120}
	assert.NoError(t, ValidateZones([]Zone{hall}))
	assert.Error(t, ValidateZones(nil))
	hall.Scaler = -5
	assert.Error(t, ValidateZones([]Zone{hall}))
	assert.Error(t, ValidateZones([]Zone{{Name: "hall"}}))
}

func TestZonePatch(t *testing.T) {
	empty := ZonePatch{}
	assert.Error(t, empty.Validate())

	bad := ZonePatch{Scaler: ptr(int64(0))}
	assert.Error(t, bad.Validate())

	r := roster.New()
	require.NoError(t, r.PutZone(solver.Zone{
		Name:     "hall",
		Base:     solver.Attr(10, 10, 10),
		SubLevel: solver.Attr(1, 2, 3),
	}))

	patch := ZonePatch{
		Level:       ptr(int64(2)),
		Requirement: ptr(Attr(200, 100, 51)),
		Scaler:      ptr(int64(150)),
	}
	require.NoError(t, patch.Validate())
	require.NoError(t, patch.Apply(r, "hall"))

	z, _ := r.Zone("hall")
	assert.Equal(t, solver.Attr(12, 14, 16), z.Base)
	assert.Equal(t, solver.Attr(300, 150, 76), z.Requirement)
	assert.Equal(t, int64(150), z.Scaler)

	assert.ErrorIs(t, patch.Apply(r, "yard"), roster.ErrUnknownZone)

	var partial ZonePatch
	require.NoError(t, json.Unmarshal([]byte(`{"requirement": {"time": 5}}`), &partial))
	assert.Error(t, partial.Validate())
}

func TestSolveRequestValidate(t *testing.T) {
	ok := SolveRequest{Zones: []string{"hall"}}
	assert.NoError(t, ok.Validate())

	none := SolveRequest{}
	assert.NoError(t, none.Validate())

	blank := SolveRequest{Zones: []string{""}}
	assert.Error(t, blank.Validate())
}

func TestNewSolution(t *testing.T) {
	members := []solver.Member{
		{Name: "a", Attribute: solver.Attr(10, 10, 10)},
		{Name: "b", Attribute: solver.Attr(10, 10, 10)},
		{Name: "c", Attribute: solver.Attr(10, 10, 10)},
	}
	zones := []solver.Zone{{Name: "hall", Requirement: solver.Attr(40, 40, 40)}}

	out := NewSolution(solver.Solve(members, zones), 1500*time.Microsecond)
	assert.Equal(t, uint64(30), out.Require)
	assert.Equal(t, uint64(0), out.Overflow)
	assert.Equal(t, int64(1), out.TimeMs)
	require.Len(t, out.Assignments, 1)
	assert.Equal(t, "hall", out.Assignments[0].Zone)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, out.Assignments[0].Members)
	assert.Equal(t, solver.Attr(30, 30, 30), out.Assignments[0].Detail)

	data, err := json.Marshal(NewSolution(nil, 0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"require":0,"overflow":0,"assignments":[],"stats":{"states":0,"memo_hits":0,"subsets":0},"timeMs":0}`, string(data))
}

func TestMuseumAndAdmin(t *testing.T) {
	assert.NoError(t, (&Museum{Name: "east wing"}).Validate())
	assert.Error(t, (&Museum{}).Validate())

	assert.NoError(t, (&Admin{Email: "curator@example.com"}).Validate())
	assert.Error(t, (&Admin{Email: "curator"}).Validate())
}
