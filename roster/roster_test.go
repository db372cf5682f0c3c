package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"museum/solver"
)

func TestPutMemberReplacesInPlace(t *testing.T) {
	r := New()
	require.NoError(t, r.PutMember(solver.Member{Name: "ann", Attribute: solver.Attr(1, 1, 1)}))
	require.NoError(t, r.PutMember(solver.Member{Name: "bob", Attribute: solver.Attr(2, 2, 2)}))
	require.NoError(t, r.PutMember(solver.Member{Name: "ann", Attribute: solver.Attr(9, 9, 9)}))

	members := r.Members()
	require.Len(t, members, 2)
	assert.Equal(t, "ann", members[0].Name)
	assert.Equal(t, solver.Attr(9, 9, 9), members[0].Attribute)
	assert.Equal(t, "bob", members[1].Name)
}

func TestPutRejectsEmptyName(t *testing.T) {
	r := New()
	assert.ErrorIs(t, r.PutMember(solver.Member{}), ErrEmptyName)
	assert.ErrorIs(t, r.PutZone(solver.Zone{}), ErrEmptyName)
	assert.Empty(t, r.Members())
	assert.Empty(t, r.Zones())
}

func TestDeleteUnknown(t *testing.T) {
	r := Default()
	before := r.Document()

	assert.ErrorIs(t, r.DeleteMember("nobody"), ErrUnknownMember)
	assert.ErrorIs(t, r.DeleteZone("nowhere"), ErrUnknownZone)
	assert.ErrorIs(t, r.SetLevel("nowhere", 3), ErrUnknownZone)
	assert.ErrorIs(t, r.SetRequirement("nowhere", solver.Attr(1, 1, 1)), ErrUnknownZone)
	assert.ErrorIs(t, r.SetScaler("nowhere", 50), ErrUnknownZone)
	assert.Equal(t, before, r.Document())
}

func TestDelete(t *testing.T) {
	r := Default()
	require.NoError(t, r.DeleteMember("匹克"))
	require.NoError(t, r.DeleteZone("综合区-外"))

	_, ok := r.Member("匹克")
	assert.False(t, ok)
	assert.Len(t, r.Members(), 13)

	zones := r.Zones()
	require.Len(t, zones, 1)
	assert.Equal(t, "综合区-内", zones[0].Name)
}

func TestPutZoneDefaultsScaler(t *testing.T) {
	r := New()
	require.NoError(t, r.PutZone(solver.Zone{Name: "hall"}))
	z, ok := r.Zone("hall")
	require.True(t, ok)
	assert.EqualValues(t, DefaultScaler, z.Scaler)

	assert.ErrorIs(t, r.PutZone(solver.Zone{Name: "bad", Scaler: -5}), ErrInvalidScaler)
}

func TestSetLevel(t *testing.T) {
	r := New()
	require.NoError(t, r.PutZone(solver.Zone{
		Name:     "hall",
		Base:     solver.Attr(30, 30, 30),
		SubLevel: solver.Attr(4, 8, 2),
	}))

	require.NoError(t, r.SetLevel("hall", 3))
	z, _ := r.Zone("hall")
	assert.Equal(t, solver.Attr(42, 54, 36), z.Base)
	assert.EqualValues(t, 3, z.Level)

	require.NoError(t, r.SetLevel("hall", 1))
	z, _ = r.Zone("hall")
	assert.Equal(t, solver.Attr(34, 38, 32), z.Base)
	assert.EqualValues(t, 1, z.Level)
}

func TestSetRequirementUsesScaler(t *testing.T) {
	r := New()
	require.NoError(t, r.PutZone(solver.Zone{Name: "hall", Requirement: solver.Attr(1, 1, 1)}))

	require.NoError(t, r.SetRequirement("hall", solver.Attr(200, 100, 51)))
	z, _ := r.Zone("hall")
	assert.Equal(t, solver.Attr(200, 100, 51), z.Requirement)

	require.NoError(t, r.SetScaler("hall", 150))
	z, _ = r.Zone("hall")
	assert.Equal(t, solver.Attr(200, 100, 51), z.Requirement, "changing the scaler keeps the stored requirement")

	require.NoError(t, r.SetRequirement("hall", solver.Attr(200, 100, 51)))
	z, _ = r.Zone("hall")
	assert.Equal(t, solver.Attr(300, 150, 76), z.Requirement)

	assert.ErrorIs(t, r.SetScaler("hall", 0), ErrInvalidScaler)
}

func TestClearAndClone(t *testing.T) {
	r := Default()
	c := r.Clone()
	r.Clear()

	assert.Empty(t, r.Members())
	assert.Empty(t, r.Zones())
	assert.Len(t, c.Members(), 14)
	assert.Len(t, c.Zones(), 2)
}

func TestMembersReturnsCopy(t *testing.T) {
	r := Default()
	members := r.Members()
	members[0].Name = "changed"

	m, ok := r.Member("娜塔莎")
	require.True(t, ok)
	assert.Equal(t, "娜塔莎", m.Name)
}

func TestDefaultSolve(t *testing.T) {
	r := Default()
	sol, err := r.Solve(context.Background(), solver.DefaultParams)
	require.NoError(t, err)
	require.NotNil(t, sol)
	require.Len(t, sol.Assignments, 2)

	used := map[string]bool{}
	var total solver.Cost
	for i, a := range sol.Assignments {
		assert.Equal(t, r.Zones()[i].Name, a.Zone.Name)
		for _, m := range a.Members {
			assert.False(t, used[m.Name])
			used[m.Name] = true
		}
		total = total.Add(a.Zone.Cost(a.Members[:]))
	}
	assert.Equal(t, total, sol.Cost)
}

func TestEmptySolve(t *testing.T) {
	sol, err := New().Solve(context.Background(), solver.DefaultParams)
	require.NoError(t, err)
	assert.Nil(t, sol)
}
