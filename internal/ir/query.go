package ir

import (
	"sort"

	language "github.com/hanpama/trellis/internal/language"
	value "github.com/hanpama/trellis/internal/value"
)

// VID identifies a vertex within one query, numbered in traversal order.
type VID int

// EID identifies an edge within one query.
type EID int

// Query is a query validated against a schema.
type Query struct {
	StartEdge  string
	Parameters map[string]*Parameter
	Root       *Vertex

	// Variables maps each referenced variable to its inferred type.
	Variables map[string]*TypeRef

	// OutputTypes maps every top-level output name to its row value type.
	// Outputs inside @fold are lists of the property type.
	OutputTypes map[string]*TypeRef
}

// OutputNames returns the sorted top-level output names.
func (q *Query) OutputNames() []string {
	names := make([]string, 0, len(q.OutputTypes))
	for name := range q.OutputTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parameter is an edge parameter value: a literal or a variable reference.
type Parameter struct {
	Name     string
	Type     *TypeRef
	Literal  value.Value
	Variable string
}

// IsVariable reports whether the parameter is bound by a query argument.
func (p *Parameter) IsVariable() bool { return p.Variable != "" }

type Vertex struct {
	VID VID

	// Type is the type properties and edges are resolved against. When
	// CoercedFrom is set the vertex was narrowed with `... on Type`.
	Type        string
	CoercedFrom string

	Tags    []*Tag
	Filters []*Filter
	Outputs []*Output
	Edges   []*Edge

	Position *language.Position
}

type Tag struct {
	Name     string
	Property string
	Type     *TypeRef
}

type Output struct {
	Name     string
	Property string
	Type     *TypeRef
}

type Filter struct {
	Property     string
	PropertyType *TypeRef
	Op           Operator
	Operand      *Operand
}

// Operand is the right-hand side of a filter: a variable or a tag.
type Operand struct {
	Variable string
	Tag      string
	Type     *TypeRef
}

type Edge struct {
	EID        EID
	Name       string
	Alias      string
	FromType   string
	Parameters map[string]*Parameter

	Optional bool
	Fold     bool
	Recurse  *Recurse

	// FoldOutputs lists the output names produced inside a folded edge.
	FoldOutputs []string

	Target *Vertex
}

// Recurse describes a @recurse(depth: N) edge.
type Recurse struct {
	Depth int

	// TargetType is the declared type of the vertices the edge produces.
	TargetType string

	// StepType is the type the edge is resolved on at every step.
	StepType string

	// CoerceTo is set when vertices must be narrowed before being expanded
	// further; vertices failing the coercion are still emitted.
	CoerceTo string
}

// Walk visits every vertex in traversal order.
func (q *Query) Walk(fn func(v *Vertex)) {
	var visit func(v *Vertex)
	visit = func(v *Vertex) {
		if v == nil {
			return
		}
		fn(v)
		for _, e := range v.Edges {
			visit(e.Target)
		}
	}
	visit(q.Root)
}
