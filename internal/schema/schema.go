package schema

import (
	ir "github.com/hanpama/trellis/internal/ir"
	language "github.com/hanpama/trellis/internal/language"
	value "github.com/hanpama/trellis/internal/value"
)

// TypenameField is the implicit property every vertex type carries.
const TypenameField = "__typename"

// Schema is an immutable, validated vertex-type schema. It is built once by
// Build and may be shared by any number of concurrent query executions.
type Schema struct {
	name       string
	queryType  string
	types      map[string]*Type
	order      []string
	directives []*Directive

	// supertypes[T] holds every type T is a subtype of, including T.
	supertypes map[string]map[string]struct{}
}

// TypeKind represents the kind of schema type
type TypeKind string

const (
	TypeKindScalar    TypeKind = "SCALAR"
	TypeKindObject    TypeKind = "OBJECT"
	TypeKindInterface TypeKind = "INTERFACE"
)

// Type is a named schema type: a built-in scalar, an object or an interface.
type Type struct {
	Name        string
	Kind        TypeKind
	Description string
	Fields      []*Field
	Interfaces  []string // declared `implements` list
	Position    *language.Position

	fields map[string]*Field
}

// FieldKind separates value-carrying properties from traversable edges.
type FieldKind string

const (
	FieldKindProperty FieldKind = "PROPERTY"
	FieldKindEdge     FieldKind = "EDGE"
)

type Field struct {
	Name        string
	Description string
	Kind        FieldKind
	Type        *ir.TypeRef
	Parameters  []*Parameter
	Position    *language.Position
}

// IsEdge reports whether the field traverses to other vertices.
func (f *Field) IsEdge() bool { return f.Kind == FieldKindEdge }

// Parameter returns the named edge parameter or nil.
func (f *Field) Parameter(name string) *Parameter {
	for _, p := range f.Parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Parameter is an edge parameter declaration.
type Parameter struct {
	Name     string
	Type     *ir.TypeRef
	Default  *value.Value
	Position *language.Position
}

// IsRequired reports whether a query must supply the parameter.
func (p *Parameter) IsRequired() bool { return p.Type.IsNonNull() && p.Default == nil }

// Directive is a query directive declaration known to the schema.
type Directive struct {
	Name         string
	Arguments    []*Parameter
	Locations    []string
	IsRepeatable bool
}

var typenameField = &Field{
	Name: TypenameField,
	Kind: FieldKindProperty,
	Type: ir.NonNullType(ir.NamedType(ir.String)),
}

// Name is the source name the schema was built from.
func (s *Schema) Name() string { return s.name }

// QueryType returns the root query type whose fields are starting edges.
func (s *Schema) QueryType() *Type { return s.types[s.queryType] }

// Type returns the named type or nil.
func (s *Schema) Type(name string) *Type { return s.types[name] }

// Types returns all object and interface types in declaration order.
func (s *Schema) Types() []*Type {
	out := make([]*Type, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.types[name])
	}
	return out
}

// Directives returns the supported query directives.
func (s *Schema) Directives() []*Directive { return s.directives }

// Field looks up a field on a type, including the implicit __typename.
func (s *Schema) Field(typeName, fieldName string) *Field {
	t := s.types[typeName]
	if t == nil || t.Kind == TypeKindScalar {
		return nil
	}
	return t.Field(fieldName)
}

// Field looks up a declared field or the implicit __typename.
func (t *Type) Field(name string) *Field {
	if name == TypenameField {
		return typenameField
	}
	return t.fields[name]
}

// IsVertexType reports whether the type is an object or an interface.
func (t *Type) IsVertexType() bool {
	return t.Kind == TypeKindObject || t.Kind == TypeKindInterface
}

// IsSubtype reports whether sub equals super or implements it, directly or
// transitively.
func (s *Schema) IsSubtype(sub, super string) bool {
	_, ok := s.supertypes[sub][super]
	return ok
}

// Subtypes lists every type that is a subtype of name (name included), in
// declaration order.
func (s *Schema) Subtypes(name string) []string {
	var out []string
	for _, n := range s.order {
		if s.IsSubtype(n, name) {
			out = append(out, n)
		}
	}
	return out
}

// Supertypes lists every type name is a subtype of (name included), in
// declaration order.
func (s *Schema) Supertypes(name string) []string {
	var out []string
	for _, n := range s.order {
		if s.IsSubtype(name, n) {
			out = append(out, n)
		}
	}
	return out
}
