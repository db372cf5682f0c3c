package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museum/roster"
	"museum/solver"
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	os.Exit(m.Run())
}

func TestParseIntList(t *testing.T) {
	assert.Equal(t, []int{9, 12, 15}, parseIntList("9, 12,15"))
	assert.Equal(t, []int{3}, parseIntList("x,3,-1,0"))
	assert.Empty(t, parseIntList(""))
}

func TestLoadRosterFallsBackToDefault(t *testing.T) {
	r, err := loadRoster(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, roster.Default().Document(), r.Document())
}

func TestLoadRosterRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"members": 3}`), 0o644))

	_, err := loadRoster(path)
	assert.ErrorIs(t, err, roster.ErrMalformed)
}

func TestPrintSolution(t *testing.T) {
	res, err := roster.Default().Solve(context.Background(), solver.DefaultParams)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, printSolution(&buf, res, true))
	var decoded solver.Solution
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, res.Cost, decoded.Cost)
	assert.Len(t, decoded.Assignments, 2)

	buf.Reset()
	require.NoError(t, printSolution(&buf, res, false))
	assert.Contains(t, buf.String(), "综合区-外")

	buf.Reset()
	require.NoError(t, printSolution(&buf, nil, false))
	assert.Contains(t, buf.String(), "nothing to solve")

	buf.Reset()
	require.NoError(t, printSolution(&buf, nil, true))
	assert.Equal(t, "null\n", buf.String())
}

func TestRandomRosterIsSeeded(t *testing.T) {
	m1, z1 := randomRoster(rand.New(rand.NewSource(7)), 9, 2)
	m2, z2 := randomRoster(rand.New(rand.NewSource(7)), 9, 2)
	assert.Equal(t, m1, m2)
	assert.Equal(t, z1, z2)
	assert.Len(t, m1, 9)
	assert.Len(t, z1, 2)
}

func TestTuneConfig(t *testing.T) {
	tuneRuns, tuneParallel = 4, 2

	results, err := tuneConfig(context.Background(), 9, 2, solver.DefaultParams)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.True(t, r.stable)
		assert.Positive(t, r.stats.States)
	}

	var buf bytes.Buffer
	printStats(&buf, "members=9 zones=2", results)
	assert.Contains(t, buf.String(), "--- members=9 zones=2 ---")
	assert.Contains(t, buf.String(), "same cost after shuffling: 4/4 runs")
}

func TestTuneConfigStateLimit(t *testing.T) {
	tuneRuns, tuneParallel = 2, 1

	_, err := tuneConfig(context.Background(), 12, 3, solver.Params{MaxStates: 1})
	assert.ErrorIs(t, err, solver.ErrStateLimit)
}
