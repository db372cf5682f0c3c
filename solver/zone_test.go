package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trio(a Attribute) []Member {
	return []Member{
		{Name: "a", Attribute: a},
		{Name: "b", Attribute: a},
		{Name: "c", Attribute: a},
	}
}

func TestZoneCost(t *testing.T) {
	members := trio(Attr(10, 10, 10))

	tests := []struct {
		name string
		zone Zone
		want Cost
	}{
		{"exact", Zone{Name: "z", Requirement: Attr(30, 30, 30)}, Cost{0, 0}},
		{"short", Zone{Name: "z", Requirement: Attr(40, 40, 40)}, Cost{30, 0}},
		{"over", Zone{Name: "z", Requirement: Attr(20, 20, 20)}, Cost{0, 30}},
		{"mixed", Zone{Name: "z", Requirement: Attr(35, 25, 30)}, Cost{5, 5}},
		{
			"base and sub level",
			Zone{Name: "z", Base: Attr(5, 0, 0), SubLevel: Attr(1, 2, 0), Requirement: Attr(50, 50, 50)},
			Cost{Require: 5 + 0 + 20, Overflow: 0},
		},
		{
			"sub level overshoot",
			Zone{Name: "z", SubLevel: Attr(3, 0, 0), Requirement: Attr(30, 30, 30)},
			Cost{Require: 0, Overflow: 30},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.zone.Cost(members))
		})
	}
}

func TestZoneCostAcceptsFewerMembers(t *testing.T) {
	z := Zone{Name: "z", Requirement: Attr(30, 30, 30)}
	assert.Equal(t, Cost{Require: 60}, z.Cost(trio(Attr(10, 10, 10))[:1]))
	assert.Equal(t, Cost{Require: 30}, z.Cost(trio(Attr(10, 10, 10))[:2]))
}

func TestZoneCostPanicsOnBadMemberCount(t *testing.T) {
	z := Zone{Name: "z"}
	assert.Panics(t, func() { z.Cost(nil) })

	four := append(trio(Attr(1, 1, 1)), Member{Name: "d"})
	assert.Panics(t, func() { z.Cost(four) })
}

func TestZoneDetail(t *testing.T) {
	z := Zone{
		Name:        "z",
		Base:        Attr(30, 30, 30),
		SubLevel:    Attr(10, 10, 10),
		Requirement: Attr(256, 220, 255),
	}
	got := z.Detail(trio(Attr(1, 2, 3)))
	assert.Equal(t, Attr(133, 136, 139), got)
}

func TestCostOrdering(t *testing.T) {
	assert.True(t, Cost{1, 100}.Less(Cost{2, 0}))
	assert.True(t, Cost{2, 0}.Less(Cost{2, 1}))
	assert.False(t, Cost{2, 1}.Less(Cost{2, 1}))
	assert.Equal(t, 0, Cost{3, 4}.Compare(Cost{3, 4}))
	assert.True(t, Cost{0, 0}.Less(infiniteCost))
	assert.True(t, infiniteCost.IsInfinite())
}

// Dimensions are summed before comparison: a shortfall of 1 in two
// dimensions ties with a shortfall of 2 in one.
func TestCostSumsDimensions(t *testing.T) {
	z := Zone{Name: "z", Requirement: Attr(31, 31, 30)}
	spread := z.Cost(trio(Attr(10, 10, 10)))

	z2 := Zone{Name: "z", Requirement: Attr(32, 30, 30)}
	single := z2.Cost(trio(Attr(10, 10, 10)))

	require.Equal(t, spread, single)
	assert.Equal(t, Cost{Require: 2}, spread)
}

func TestAttributeArithmetic(t *testing.T) {
	a := Attr(1, -2, 3)
	b := Attr(4, 5, -6)
	assert.Equal(t, Attr(5, 3, -3), a.Add(b))
	assert.Equal(t, Attr(-3, -7, 9), a.Sub(b))
	assert.Equal(t, Attr(10, -20, 30), a.Mul(10))
	assert.True(t, Attr(4, 5, 6).Dominates(Attr(4, 1, 6)))
	assert.False(t, Attr(4, 5, 6).Dominates(Attr(5, 1, 6)))
	assert.Equal(t, "1/-2/3", a.String())
}
