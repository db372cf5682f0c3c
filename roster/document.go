package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"

	"museum/solver"
)

var ErrMalformed = errors.New("roster: malformed document")

// Document is the persisted form of a Roster.
type Document struct {
	Members []solver.Member `json:"members"`
	Zones   []solver.Zone   `json:"zones"`
}

func (r *Roster) Document() Document {
	doc := Document{Members: r.Members(), Zones: r.Zones()}
	if doc.Members == nil {
		doc.Members = []solver.Member{}
	}
	if doc.Zones == nil {
		doc.Zones = []solver.Zone{}
	}
	return doc
}

// FromDocument builds a Roster from doc. Repeated names keep the last entry
// at the position of the first.
func FromDocument(doc Document) (*Roster, error) {
	r := New()
	for _, m := range doc.Members {
		if err := r.PutMember(m); err != nil {
			return nil, fmt.Errorf("member: %w", err)
		}
	}
	for _, z := range doc.Zones {
		if err := r.PutZone(z); err != nil {
			return nil, fmt.Errorf("zone %q: %w", z.Name, err)
		}
	}
	return r, nil
}

// Parse reads a roster document. Comments and trailing commas are accepted.
func Parse(data []byte) (*Roster, error) {
	stripped := jsonc.ToJSON(data)
	if !gjson.ValidBytes(stripped) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	root := gjson.ParseBytes(stripped)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformed)
	}

	var doc Document
	var err error

	members := root.Get("members")
	if members.Exists() && !members.IsArray() {
		return nil, fmt.Errorf("%w: members is not an array", ErrMalformed)
	}
	members.ForEach(func(_, v gjson.Result) bool {
		var m solver.Member
		if m, err = parseMember(v); err != nil {
			err = fmt.Errorf("members[%d]: %w", len(doc.Members), err)
			return false
		}
		doc.Members = append(doc.Members, m)
		return true
	})
	if err != nil {
		return nil, err
	}

	zones := root.Get("zones")
	if zones.Exists() && !zones.IsArray() {
		return nil, fmt.Errorf("%w: zones is not an array", ErrMalformed)
	}
	zones.ForEach(func(_, v gjson.Result) bool {
		var z solver.Zone
		if z, err = parseZone(v); err != nil {
			err = fmt.Errorf("zones[%d]: %w", len(doc.Zones), err)
			return false
		}
		doc.Zones = append(doc.Zones, z)
		return true
	})
	if err != nil {
		return nil, err
	}

	return FromDocument(doc)
}

func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Save writes r to path as indented JSON, creating parent directories. The
// file is replaced atomically.
func (r *Roster) Save(path string) error {
	data, err := json.MarshalIndent(r.Document(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding roster: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".roster-*.json")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func parseMember(v gjson.Result) (solver.Member, error) {
	if !v.IsObject() {
		return solver.Member{}, fmt.Errorf("%w: member is not an object", ErrMalformed)
	}
	name, err := parseName(v)
	if err != nil {
		return solver.Member{}, err
	}
	attr, err := parseAttribute(v, "attribute")
	if err != nil {
		return solver.Member{}, fmt.Errorf("%s: %w", name, err)
	}
	return solver.Member{Name: name, Attribute: attr}, nil
}

func parseZone(v gjson.Result) (solver.Zone, error) {
	if !v.IsObject() {
		return solver.Zone{}, fmt.Errorf("%w: zone is not an object", ErrMalformed)
	}
	name, err := parseName(v)
	if err != nil {
		return solver.Zone{}, err
	}
	z := solver.Zone{Name: name}
	for _, f := range []struct {
		field string
		dst   *solver.Attribute
	}{
		{"base", &z.Base},
		{"sub_level", &z.SubLevel},
		{"requirement", &z.Requirement},
	} {
		if *f.dst, err = parseAttribute(v, f.field); err != nil {
			return solver.Zone{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	if z.Scaler, err = parseOptionalInt(v, "base_scaler", DefaultScaler); err != nil {
		return solver.Zone{}, fmt.Errorf("%s: %w", name, err)
	}
	if z.Level, err = parseOptionalInt(v, "level", 0); err != nil {
		return solver.Zone{}, fmt.Errorf("%s: %w", name, err)
	}
	return z, nil
}

func parseName(v gjson.Result) (string, error) {
	name := v.Get("name")
	if name.Type != gjson.String || name.Str == "" {
		return "", fmt.Errorf("%w: missing name", ErrMalformed)
	}
	return name.Str, nil
}

func parseAttribute(v gjson.Result, field string) (solver.Attribute, error) {
	a := v.Get(field)
	if !a.IsObject() {
		return solver.Attribute{}, fmt.Errorf("%w: %s is not an object", ErrMalformed, field)
	}
	var out solver.Attribute
	for _, c := range []struct {
		key string
		dst *int64
	}{
		{"time", &out.Time},
		{"value", &out.Value},
		{"popularity", &out.Popularity},
	} {
		n, err := parseInt(a.Get(c.key))
		if err != nil {
			return solver.Attribute{}, fmt.Errorf("%s.%s: %w", field, c.key, err)
		}
		*c.dst = n
	}
	return out, nil
}

func parseOptionalInt(v gjson.Result, field string, def int64) (int64, error) {
	r := v.Get(field)
	if !r.Exists() || r.Type == gjson.Null {
		return def, nil
	}
	n, err := parseInt(r)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return n, nil
}

func parseInt(r gjson.Result) (int64, error) {
	if r.Type != gjson.Number {
		return 0, fmt.Errorf("%w: not a number", ErrMalformed)
	}
	n := r.Int()
	if float64(n) != r.Num {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrMalformed, r.Raw)
	}
	return n, nil
}
