// Package planner lowers a validated query and its argument values into an
// executable plan tree.
package planner

import (
	"regexp"
	"sort"

	ir "github.com/hanpama/trellis/internal/ir"
	value "github.com/hanpama/trellis/internal/value"
)

// Kind names the resolution performed by a plan node.
type Kind string

const (
	KindStartEdge Kind = "StartEdge"
	KindProperty  Kind = "Property"
	KindFilter    Kind = "Filter"
	KindNeighbor  Kind = "Neighbor"
	KindCoercion  Kind = "Coercion"
	KindFold      Kind = "Fold"
	KindRecurse   Kind = "Recurse"
)

// Node is one step of a plan.
type Node interface {
	Kind() Kind
}

// Parameters are bound edge parameter values, defaults included.
type Parameters map[string]value.Value

// Get returns the named parameter, or null when absent.
func (p Parameters) Get(name string) value.Value {
	return p[name]
}

// Names returns the parameter names in sorted order.
func (p Parameters) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Plan is built once per (query, arguments) pair and consumed by one
// execution.
type Plan struct {
	Start *StartEdge

	// Outputs lists every top-level output name, sorted.
	Outputs     []string
	OutputTypes map[string]*ir.TypeRef

	// Arguments holds the bound and type-checked query arguments.
	Arguments map[string]value.Value
}

type StartEdge struct {
	Edge       string
	Parameters Parameters
	Root       *Vertex
}

func (*StartEdge) Kind() Kind { return KindStartEdge }

// Vertex is the ordered list of steps run every time a context enters a
// vertex of the query.
type Vertex struct {
	VID   ir.VID
	Type  string
	Steps []Node
}

// Property resolves one property of the current vertex. The value is kept
// for later filters on the same vertex, and stored under every listed tag
// and output name.
type Property struct {
	TypeName string
	Name     string
	Type     *ir.TypeRef
	Tags     []string
	Outputs  []string
}

func (*Property) Kind() Kind { return KindProperty }

// Filter drops contexts whose property value does not satisfy the predicate.
type Filter struct {
	Property string
	Op       ir.Operator

	// Exactly one of Tag or Value is the operand when Op takes one.
	Tag   string
	Value value.Value

	// Regex is the compiled pattern of a regex filter with a bound operand.
	Regex *regexp.Regexp
}

func (*Filter) Kind() Kind { return KindFilter }

// Coercion narrows the current vertex; contexts that fail it are dropped.
type Coercion struct {
	From string
	To   string
}

func (*Coercion) Kind() Kind { return KindCoercion }

// Neighbor expands each context into one context per neighbor.
type Neighbor struct {
	EID        ir.EID
	TypeName   string
	Edge       string
	Parameters Parameters
	Optional   bool
	Target     *Vertex
}

func (*Neighbor) Kind() Kind { return KindNeighbor }

// Fold runs Target over the neighbors of each context and attaches one list
// per output in Outputs.
type Fold struct {
	EID        ir.EID
	TypeName   string
	Edge       string
	Parameters Parameters
	Outputs    []string
	Target     *Vertex
}

func (*Fold) Kind() Kind { return KindFold }

// Recurse emits the origin and every vertex reachable in 1..Depth steps.
type Recurse struct {
	EID        ir.EID
	Edge       string
	Parameters Parameters
	Depth      int

	// StepType is the type the edge is resolved on. When CoerceTo is set,
	// vertices after the origin are coerced from TargetType to it before
	// being expanded.
	StepType   string
	TargetType string
	CoerceTo   string

	Target *Vertex
}

func (*Recurse) Kind() Kind { return KindRecurse }

// Walk visits every node of the plan depth first, in execution order.
func (p *Plan) Walk(fn func(Node)) {
	var visitVertex func(v *Vertex)
	visitVertex = func(v *Vertex) {
		if v == nil {
			return
		}
		for _, step := range v.Steps {
			fn(step)
			switch n := step.(type) {
			case *Neighbor:
				visitVertex(n.Target)
			case *Fold:
				visitVertex(n.Target)
			case *Recurse:
				visitVertex(n.Target)
			}
		}
	}
	fn(p.Start)
	visitVertex(p.Start.Root)
}
