// Package api defines the JSON bodies accepted and returned by the HTTP
// service and the Lambda handler.
package api

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"museum/roster"
	"museum/solver"
)

// Limits on client-supplied rosters. They match the validate tags below.
const (
	MaxMembers = 30
	MaxZones   = 8
)

var validate = validator.New()

// Attribute is a time/value/popularity triple in which every component must
// be present. An absent key fails validation instead of reading as zero.
type Attribute struct {
	Time       *int64 `json:"time" validate:"required"`
	Value      *int64 `json:"value" validate:"required"`
	Popularity *int64 `json:"popularity" validate:"required"`
}

func Attr(t, v, p int64) Attribute {
	return Attribute{Time: &t, Value: &v, Popularity: &p}
}

// Solver converts a validated attribute. Missing components read as zero.
func (a Attribute) Solver() solver.Attribute {
	return solver.Attr(deref(a.Time), deref(a.Value), deref(a.Popularity))
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

type Member struct {
	Name      string    `json:"name" validate:"required,max=64"`
	Attribute Attribute `json:"attribute"`
}

type Zone struct {
	Name        string    `json:"name" validate:"required,max=64"`
	Base        Attribute `json:"base"`
	SubLevel    Attribute `json:"sub_level"`
	Requirement Attribute `json:"requirement"`
	// Scaler of zero means roster.DefaultScaler.
	Scaler int64 `json:"base_scaler" validate:"gte=0,lte=1000"`
	Level  int64 `json:"level"`
}

// Roster is a whole roster document as sent by a client.
type Roster struct {
	Members []Member `json:"members" validate:"max=30,dive"`
	Zones   []Zone   `json:"zones" validate:"max=8,dive"`
}

func (r *Roster) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid roster: %w", err)
	}
	return nil
}

// Build validates r and turns it into a roster.Roster. Repeated names keep
// the last entry.
func (r *Roster) Build() (*roster.Roster, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var doc roster.Document
	for _, m := range r.Members {
		doc.Members = append(doc.Members, m.Solver())
	}
	for _, z := range r.Zones {
		doc.Zones = append(doc.Zones, z.Solver())
	}
	return roster.FromDocument(doc)
}

func (m Member) Solver() solver.Member {
	return solver.Member{Name: m.Name, Attribute: m.Attribute.Solver()}
}

func (z Zone) Solver() solver.Zone {
	return solver.Zone{
		Name:        z.Name,
		Base:        z.Base.Solver(),
		SubLevel:    z.SubLevel.Solver(),
		Requirement: z.Requirement.Solver(),
		Scaler:      z.Scaler,
		Level:       z.Level,
	}
}

// ValidateMembers checks a batch of members for an upsert.
func ValidateMembers(members []Member) error {
	batch := struct {
		Members []Member `validate:"min=1,max=30,dive"`
	}{members}
	if err := validate.Struct(batch); err != nil {
		return fmt.Errorf("invalid members: %w", err)
	}
	return nil
}

// ValidateZones checks a batch of zones for an upsert.
func ValidateZones(zones []Zone) error {
	batch := struct {
		Zones []Zone `validate:"min=1,max=8,dive"`
	}{zones}
	if err := validate.Struct(batch); err != nil {
		return fmt.Errorf("invalid zones: %w", err)
	}
	return nil
}

// ZonePatch changes one zone the way the roster editor does. Fields left
// nil are untouched. Scaler applies before Requirement.
type ZonePatch struct {
	Level       *int64     `json:"level"`
	Requirement *Attribute `json:"requirement"`
	Scaler      *int64     `json:"base_scaler" validate:"omitempty,gt=0,lte=1000"`
}

func (p *ZonePatch) Validate() error {
	if p.Level == nil && p.Requirement == nil && p.Scaler == nil {
		return fmt.Errorf("one of level, requirement or base_scaler is required")
	}
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid patch: %w", err)
	}
	return nil
}

// Apply updates zone name in r.
func (p *ZonePatch) Apply(r *roster.Roster, name string) error {
	if p.Scaler != nil {
		if err := r.SetScaler(name, *p.Scaler); err != nil {
			return err
		}
	}
	if p.Level != nil {
		if err := r.SetLevel(name, *p.Level); err != nil {
			return err
		}
	}
	if p.Requirement != nil {
		if err := r.SetRequirement(name, p.Requirement.Solver()); err != nil {
			return err
		}
	}
	return nil
}

// SolveRequest optionally restricts a solve to some zones. Stored zone order
// is kept whatever order Zones lists them in.
type SolveRequest struct {
	Zones []string `json:"zones" validate:"max=8,dive,required,max=64"`
}

func (r *SolveRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid solve request: %w", err)
	}
	return nil
}

type Assignment struct {
	Zone        string           `json:"zone"`
	Members     []string         `json:"members"`
	Detail      solver.Attribute `json:"detail"`
	Requirement solver.Attribute `json:"requirement"`
	Cost        solver.Cost      `json:"cost"`
}

type Solution struct {
	Require     uint64       `json:"require"`
	Overflow    uint64       `json:"overflow"`
	Assignments []Assignment `json:"assignments"`
	Stats       solver.Stats `json:"stats"`
	TimeMs      int64        `json:"timeMs"`
}

// NewSolution flattens sol for clients. A nil sol, meaning there was
// nothing to assign, gives an empty solution.
func NewSolution(sol *solver.Solution, elapsed time.Duration) Solution {
	out := Solution{Assignments: []Assignment{}, TimeMs: elapsed.Milliseconds()}
	if sol == nil {
		return out
	}
	out.Require = sol.Cost.Require
	out.Overflow = sol.Cost.Overflow
	out.Stats = sol.Stats
	for _, a := range sol.Assignments {
		members := a.Members[:]
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = m.Name
		}
		out.Assignments = append(out.Assignments, Assignment{
			Zone:        a.Zone.Name,
			Members:     names,
			Detail:      a.Zone.Detail(members),
			Requirement: a.Zone.Requirement,
			Cost:        a.Zone.Cost(members),
		})
	}
	return out
}

type Museum struct {
	Name string `json:"name" validate:"required,max=128"`
	// Seed fills a new museum with the built-in roster.
	Seed bool `json:"seed"`
}

func (m *Museum) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid museum: %w", err)
	}
	return nil
}

type Admin struct {
	Email string `json:"email" validate:"required,email"`
}

func (a *Admin) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid admin: %w", err)
	}
	return nil
}
