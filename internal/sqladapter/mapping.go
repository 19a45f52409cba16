package sqladapter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	schema "github.com/hanpama/trellis/internal/schema"
	"gopkg.in/yaml.v3"
)

// Mapping binds vertex types to tables.
//
//	types:
//	  Person:
//	    table: people
//	    key: id
//	    columns: {name: full_name}
//	    edges:
//	      pet: {target: Pet, from: pet_id, to: id}
//	starting:
//	  people: {type: Person, parameters: {name: full_name}}
type Mapping struct {
	Types    map[string]*TypeMapping     `yaml:"types"`
	Starting map[string]*StartingMapping `yaml:"starting"`
}

// TypeMapping stores the vertices of one object type as rows of Table.
// Properties read the column of the same name unless Columns says otherwise.
type TypeMapping struct {
	Table   string                  `yaml:"table"`
	Key     string                  `yaml:"key"`
	Columns map[string]string       `yaml:"columns"`
	Edges   map[string]*EdgeMapping `yaml:"edges"`
}

// EdgeMapping joins column From of the source row to column To of rows of
// the Target type's table.
type EdgeMapping struct {
	Target string `yaml:"target"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
}

// StartingMapping lists the rows of Type, keeping those whose columns equal
// every non-null edge parameter mapped in Parameters.
type StartingMapping struct {
	Type       string            `yaml:"type"`
	Parameters map[string]string `yaml:"parameters"`
}

// LoadMapping reads a YAML mapping file.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMapping(data)
}

// ParseMapping decodes a YAML mapping, rejecting unknown keys.
func ParseMapping(data []byte) (*Mapping, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Mapping
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("sqladapter: parse mapping: %w", err)
	}
	return &m, nil
}

func (tm *TypeMapping) column(property string) string {
	if c, ok := tm.Columns[property]; ok {
		return c
	}
	return property
}

// Validate checks the mapping against s.
func (m *Mapping) Validate(s *schema.Schema) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(m.Types)) {
		tm := m.Types[name]
		t := s.Type(name)
		if t == nil || t.Kind != schema.TypeKindObject || t == s.QueryType() {
			errs = append(errs, fmt.Errorf("types.%s: not an object type of the schema", name))
			continue
		}
		if tm.Table == "" || tm.Key == "" {
			errs = append(errs, fmt.Errorf("types.%s: table and key are required", name))
		}
		for _, prop := range slices.Sorted(maps.Keys(tm.Columns)) {
			if f := t.Field(prop); f == nil || f.IsEdge() || prop == schema.TypenameField {
				errs = append(errs, fmt.Errorf("types.%s.columns.%s: not a property of %s", name, prop, name))
			}
		}
		for _, edge := range slices.Sorted(maps.Keys(tm.Edges)) {
			em := tm.Edges[edge]
			f := t.Field(edge)
			switch {
			case f == nil || !f.IsEdge():
				errs = append(errs, fmt.Errorf("types.%s.edges.%s: not an edge of %s", name, edge, name))
			case m.Types[em.Target] == nil:
				errs = append(errs, fmt.Errorf("types.%s.edges.%s: target %q is not mapped", name, edge, em.Target))
			case !s.IsSubtype(em.Target, f.Type.NamedType()):
				errs = append(errs, fmt.Errorf("types.%s.edges.%s: target %s is not a %s", name, edge, em.Target, f.Type.NamedType()))
			case em.From == "" || em.To == "":
				errs = append(errs, fmt.Errorf("types.%s.edges.%s: from and to are required", name, edge))
			}
		}
	}
	root := s.QueryType()
	for _, edge := range slices.Sorted(maps.Keys(m.Starting)) {
		sm := m.Starting[edge]
		f := root.Field(edge)
		switch {
		case f == nil || !f.IsEdge():
			errs = append(errs, fmt.Errorf("starting.%s: not a starting edge", edge))
		case m.Types[sm.Type] == nil:
			errs = append(errs, fmt.Errorf("starting.%s: type %q is not mapped", edge, sm.Type))
		case !s.IsSubtype(sm.Type, f.Type.NamedType()):
			errs = append(errs, fmt.Errorf("starting.%s: type %s is not a %s", edge, sm.Type, f.Type.NamedType()))
		default:
			for _, p := range slices.Sorted(maps.Keys(sm.Parameters)) {
				if f.Parameter(p) == nil {
					errs = append(errs, fmt.Errorf("starting.%s.parameters.%s: no such parameter", edge, p))
				}
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sqladapter: invalid mapping: %w", errors.Join(errs...))
	}
	return nil
}
