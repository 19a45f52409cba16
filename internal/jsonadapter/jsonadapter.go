// Package jsonadapter serves queries over a JSON document.
//
// The document maps starting edge names to vertices:
//
//	{
//	  "people": [
//	    {"name": "ada", "friends": [{"name": "bob"}], "pet": {"__typename": "Dog"}}
//	  ]
//	}
//
// A vertex is an object keyed by field name. Edges hold null, one object or
// an array of objects. A vertex takes the type named by its "__typename" key,
// which must be a subtype of the type the edge declares, or the declared type
// when the key is absent. The whole document is checked against the schema
// when it is loaded.
package jsonadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	executor "github.com/hanpama/trellis/internal/executor"
	ir "github.com/hanpama/trellis/internal/ir"
	schema "github.com/hanpama/trellis/internal/schema"
	value "github.com/hanpama/trellis/internal/value"
)

// Object is a vertex read from the document.
type Object struct {
	Type  string
	props map[string]value.Value
	edges map[string][]*Object
}

// Property returns the value of a property, null when the document omits it.
func (o *Object) Property(name string) value.Value {
	if name == schema.TypenameField {
		return value.String(o.Type)
	}
	return o.props[name]
}

// Neighbors returns the vertices along an edge.
func (o *Object) Neighbors(edge string) []*Object { return o.edges[edge] }

// Adapter resolves queries against a loaded document.
type Adapter struct {
	schema *schema.Schema
	roots  map[string][]*Object
}

var _ executor.Adapter = (*Adapter)(nil)

// Open loads the document at path.
func Open(s *schema.Schema, path string) (*Adapter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return New(s, f)
}

// New reads a document from r and checks it against s.
func New(s *schema.Schema, r io.Reader) (*Adapter, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("jsonadapter: decode document: %w", err)
	}

	l := &loader{schema: s}
	a := &Adapter{schema: s, roots: make(map[string][]*Object, len(doc))}
	for _, edge := range slices.Sorted(maps.Keys(doc)) {
		f := s.QueryType().Field(edge)
		if f == nil || !f.IsEdge() {
			return nil, fmt.Errorf("jsonadapter: %s is not a starting edge of %s", edge, s.QueryType().Name)
		}
		objs, err := l.objects(f.Type.NamedType(), doc[edge], edge)
		if err != nil {
			return nil, fmt.Errorf("jsonadapter: %w", err)
		}
		a.roots[edge] = objs
	}
	return a, nil
}

type loader struct {
	schema *schema.Schema
}

func (l *loader) objects(declared string, raw any, path string) ([]*Object, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		o, err := l.object(declared, t, path)
		if err != nil {
			return nil, err
		}
		return []*Object{o}, nil
	case []any:
		out := make([]*Object, 0, len(t))
		for i, e := range t {
			at := fmt.Sprintf("%s[%d]", path, i)
			m, ok := e.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: expected an object, got %T", at, e)
			}
			o, err := l.object(declared, m, at)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: expected an object or an array, got %T", path, raw)
}

func (l *loader) object(declared string, m map[string]any, path string) (*Object, error) {
	typeName := declared
	if raw, ok := m[schema.TypenameField]; ok {
		name, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s: %s must be a string", path, schema.TypenameField)
		}
		if t := l.schema.Type(name); t == nil || !t.IsVertexType() || !l.schema.IsSubtype(name, declared) {
			return nil, fmt.Errorf("%s: type %q is not a subtype of %s", path, name, declared)
		}
		typeName = name
	}
	typ := l.schema.Type(typeName)
	if typ.Kind == schema.TypeKindInterface {
		return nil, fmt.Errorf("%s: %s must name an object type implementing %s", path, schema.TypenameField, typeName)
	}

	o := &Object{
		Type:  typeName,
		props: make(map[string]value.Value),
		edges: make(map[string][]*Object),
	}
	for _, key := range slices.Sorted(maps.Keys(m)) {
		if key == schema.TypenameField {
			continue
		}
		f := typ.Field(key)
		if f == nil {
			return nil, fmt.Errorf("%s: unknown field %s.%s", path, typeName, key)
		}
		if f.IsEdge() {
			neighbors, err := l.objects(f.Type.NamedType(), m[key], path+"."+key)
			if err != nil {
				return nil, err
			}
			o.edges[key] = neighbors
			continue
		}
		v, err := value.FromGo(m[key])
		if err == nil {
			v, err = ir.Coerce(v, f.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", path, key, err)
		}
		o.props[key] = v
	}
	for _, f := range typ.Fields {
		if _, ok := o.props[f.Name]; !ok && !f.IsEdge() && f.Type.IsNonNull() {
			return nil, fmt.Errorf("%s: missing non-null property %s.%s", path, typeName, f.Name)
		}
	}
	return o, nil
}

func (a *Adapter) ResolveStartingVertices(ctx context.Context, edge string, params executor.Parameters) executor.VertexIterator {
	return executor.Vertices(a.roots[edge]...)
}

func (a *Adapter) ResolveProperty(ctx context.Context, contexts executor.ContextIterator, typeName, property string) executor.PropertyIterator {
	if f := a.schema.Field(typeName, property); f == nil || f.IsEdge() {
		executor.ReportError(ctx, fmt.Errorf("jsonadapter: unknown property %s.%s", typeName, property))
		return func(func(*executor.DataContext, value.Value) bool) {}
	}
	return executor.ResolvePropertyWith(contexts, func(v executor.Vertex) value.Value {
		return v.(*Object).Property(property)
	})
}

func (a *Adapter) ResolveNeighbors(ctx context.Context, contexts executor.ContextIterator, typeName, edge string, params executor.Parameters) executor.NeighborIterator {
	return executor.ResolveNeighborsWith(contexts, func(v executor.Vertex) executor.VertexIterator {
		return executor.Vertices(v.(*Object).Neighbors(edge)...)
	})
}

func (a *Adapter) ResolveCoercion(ctx context.Context, contexts executor.ContextIterator, typeName, coerceTo string) executor.CoercionIterator {
	return executor.ResolveCoercionWith(contexts, func(v executor.Vertex) bool {
		return a.schema.IsSubtype(v.(*Object).Type, coerceTo)
	})
}
