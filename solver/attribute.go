package solver

import (
	"cmp"
	"fmt"
)

type Attribute struct {
	Time       int64 `json:"time"`
	Value      int64 `json:"value"`
	Popularity int64 `json:"popularity"`
}

func Attr(time, value, popularity int64) Attribute {
	return Attribute{Time: time, Value: value, Popularity: popularity}
}

func (a Attribute) Add(b Attribute) Attribute {
	return Attribute{a.Time + b.Time, a.Value + b.Value, a.Popularity + b.Popularity}
}

func (a Attribute) Sub(b Attribute) Attribute {
	return Attribute{a.Time - b.Time, a.Value - b.Value, a.Popularity - b.Popularity}
}

func (a Attribute) Mul(k int64) Attribute {
	return Attribute{a.Time * k, a.Value * k, a.Popularity * k}
}

// Dominates reports whether a is at least b in every dimension.
func (a Attribute) Dominates(b Attribute) bool {
	return a.Time >= b.Time && a.Value >= b.Value && a.Popularity >= b.Popularity
}

func (a Attribute) String() string {
	return fmt.Sprintf("%d/%d/%d", a.Time, a.Value, a.Popularity)
}

func compareAttribute(a, b Attribute) int {
	if c := cmp.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Value, b.Value); c != 0 {
		return c
	}
	return cmp.Compare(a.Popularity, b.Popularity)
}

type Member struct {
	Name      string    `json:"name"`
	Attribute Attribute `json:"attribute"`
}

func (m Member) String() string {
	return m.Name
}

// compareMembers defines the canonical member order used for search states.
func compareMembers(a, b Member) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return compareAttribute(a.Attribute, b.Attribute)
}
