package solver

import (
	"cmp"
	"fmt"
	"math"
)

// levelOffset is the number of sub levels already counted on top of Base
// when a zone is scored.
const levelOffset = 10

type Zone struct {
	Name        string    `json:"name"`
	Base        Attribute `json:"base"`
	SubLevel    Attribute `json:"sub_level"`
	Requirement Attribute `json:"requirement"`
	// Scaler is the requirement percentage applied when a requirement is
	// entered through a roster. Scoring ignores it.
	Scaler int64 `json:"base_scaler"`
	// Level is the level Base currently reflects. Scoring ignores it.
	Level int64 `json:"level,omitempty"`
}

// Cost scores members placed in z. It panics unless 1 to 3 members are given.
func (z Zone) Cost(members []Member) Cost {
	if len(members) == 0 || len(members) > 3 {
		panic(fmt.Sprintf("solver: zone %q scored with %d members", z.Name, len(members)))
	}

	residual := z.Requirement.Sub(z.Base).Sub(z.SubLevel.Mul(levelOffset))
	for _, m := range members {
		residual = residual.Sub(m.Attribute)
	}

	var c Cost
	for _, v := range [3]int64{residual.Time, residual.Value, residual.Popularity} {
		if v >= 0 {
			c.Require += uint64(v)
		} else {
			c.Overflow += uint64(-v)
		}
	}
	return c
}

// Detail returns the attribute totals z reaches with members assigned.
func (z Zone) Detail(members []Member) Attribute {
	total := z.Base.Add(z.SubLevel.Mul(levelOffset))
	for _, m := range members {
		total = total.Add(m.Attribute)
	}
	return total
}

func (z Zone) String() string {
	return z.Name
}

// Cost is the (shortfall, overflow) pair of an assignment, ordered
// lexicographically with lower being better.
type Cost struct {
	Require  uint64 `json:"require"`
	Overflow uint64 `json:"overflow"`
}

var infiniteCost = Cost{Require: math.MaxUint64, Overflow: math.MaxUint64}

func (c Cost) Add(o Cost) Cost {
	return Cost{Require: c.Require + o.Require, Overflow: c.Overflow + o.Overflow}
}

func (c Cost) Compare(o Cost) int {
	if r := cmp.Compare(c.Require, o.Require); r != 0 {
		return r
	}
	return cmp.Compare(c.Overflow, o.Overflow)
}

func (c Cost) Less(o Cost) bool {
	return c.Compare(o) < 0
}

func (c Cost) IsInfinite() bool {
	return c == infiniteCost
}

func (c Cost) String() string {
	return fmt.Sprintf("require=%d overflow=%d", c.Require, c.Overflow)
}
