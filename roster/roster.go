// Package roster holds the editable set of members and zones that feeds the
// solver, and reads and writes it as a JSON document.
package roster

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"museum/solver"
)

var (
	ErrUnknownMember = errors.New("roster: unknown member")
	ErrUnknownZone   = errors.New("roster: unknown zone")
	ErrEmptyName     = errors.New("roster: name is required")
	ErrInvalidScaler = errors.New("roster: scaler must be positive")
)

// DefaultScaler is the requirement percentage given to zones that do not
// set one.
const DefaultScaler = 100

// Roster is an ordered set of members and zones keyed by name. Putting an
// existing name replaces the entry in place. A Roster is not safe for
// concurrent use.
type Roster struct {
	members []solver.Member
	zones   []solver.Zone
}

func New() *Roster {
	return &Roster{}
}

func (r *Roster) Members() []solver.Member {
	return slices.Clone(r.members)
}

func (r *Roster) Zones() []solver.Zone {
	return slices.Clone(r.zones)
}

func (r *Roster) Member(name string) (solver.Member, bool) {
	i := r.memberIndex(name)
	if i < 0 {
		return solver.Member{}, false
	}
	return r.members[i], true
}

func (r *Roster) Zone(name string) (solver.Zone, bool) {
	i := r.zoneIndex(name)
	if i < 0 {
		return solver.Zone{}, false
	}
	return r.zones[i], true
}

func (r *Roster) PutMember(m solver.Member) error {
	if m.Name == "" {
		return ErrEmptyName
	}
	if i := r.memberIndex(m.Name); i >= 0 {
		r.members[i] = m
		return nil
	}
	r.members = append(r.members, m)
	return nil
}

func (r *Roster) DeleteMember(name string) error {
	i := r.memberIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMember, name)
	}
	r.members = slices.Delete(r.members, i, i+1)
	return nil
}

// PutZone adds z or replaces the zone of the same name. A zero Scaler is
// stored as DefaultScaler.
func (r *Roster) PutZone(z solver.Zone) error {
	if z.Name == "" {
		return ErrEmptyName
	}
	if z.Scaler == 0 {
		z.Scaler = DefaultScaler
	}
	if z.Scaler < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidScaler, z.Scaler)
	}
	if i := r.zoneIndex(z.Name); i >= 0 {
		r.zones[i] = z
		return nil
	}
	r.zones = append(r.zones, z)
	return nil
}

func (r *Roster) DeleteZone(name string) error {
	i := r.zoneIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownZone, name)
	}
	r.zones = slices.Delete(r.zones, i, i+1)
	return nil
}

// SetLevel moves a zone to level, shifting Base by one SubLevel per level
// gained or lost.
func (r *Roster) SetLevel(name string, level int64) error {
	i := r.zoneIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownZone, name)
	}
	z := &r.zones[i]
	z.Base = z.Base.Add(z.SubLevel.Mul(level - z.Level))
	z.Level = level
	return nil
}

// SetRequirement stores req scaled by the zone's Scaler percentage.
func (r *Roster) SetRequirement(name string, req solver.Attribute) error {
	i := r.zoneIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownZone, name)
	}
	z := &r.zones[i]
	z.Requirement = scale(req, z.Scaler)
	return nil
}

// SetScaler changes the percentage applied to later SetRequirement calls.
// The stored requirement is left as is.
func (r *Roster) SetScaler(name string, pct int64) error {
	if pct <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidScaler, pct)
	}
	i := r.zoneIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownZone, name)
	}
	r.zones[i].Scaler = pct
	return nil
}

func (r *Roster) Clear() {
	r.members = nil
	r.zones = nil
}

func (r *Roster) Clone() *Roster {
	return &Roster{members: r.Members(), zones: r.Zones()}
}

// Solve runs the solver over the current members and zones.
func (r *Roster) Solve(ctx context.Context, params solver.Params) (*solver.Solution, error) {
	return solver.SolveContext(ctx, r.members, r.zones, params)
}

func (r *Roster) memberIndex(name string) int {
	return slices.IndexFunc(r.members, func(m solver.Member) bool { return m.Name == name })
}

func (r *Roster) zoneIndex(name string) int {
	return slices.IndexFunc(r.zones, func(z solver.Zone) bool { return z.Name == name })
}

func scale(a solver.Attribute, pct int64) solver.Attribute {
	if pct == 0 {
		pct = DefaultScaler
	}
	return solver.Attr(a.Time*pct/100, a.Value*pct/100, a.Popularity*pct/100)
}
