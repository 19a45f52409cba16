package planner

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	ir "github.com/hanpama/trellis/internal/ir"
	schema "github.com/hanpama/trellis/internal/schema"
	value "github.com/hanpama/trellis/internal/value"
)

type compiler struct {
	query  *ir.Query
	schema *schema.Schema
	args   map[string]value.Value
	tags   map[string]bool
}

// Compile binds args to the variables of q and lowers q into a plan. It
// never calls an adapter. Argument problems are reported together as an
// ir.QueryArgumentsError; an inconsistent query tree yields
// *ir.InvalidIRQueryError.
func Compile(q *ir.Query, s *schema.Schema, args map[string]any) (*Plan, error) {
	if q == nil || q.Root == nil {
		return nil, &ir.InvalidIRQueryError{Reason: "query has no root vertex"}
	}
	bound, err := bindArguments(q, args)
	if err != nil {
		return nil, err
	}

	c := &compiler{query: q, schema: s, args: bound, tags: make(map[string]bool)}
	q.Walk(func(v *ir.Vertex) {
		for _, t := range v.Tags {
			c.tags[t.Name] = true
		}
	})

	root := s.QueryType()
	start := root.Field(q.StartEdge)
	if start == nil || !start.IsEdge() {
		return nil, invalid("unknown starting edge %q", q.StartEdge)
	}
	params, err := c.parameters(start, q.Parameters)
	if err != nil {
		return nil, err
	}
	rootVertex, err := c.vertex(q.Root)
	if err != nil {
		return nil, err
	}
	return &Plan{
		Start:       &StartEdge{Edge: q.StartEdge, Parameters: params, Root: rootVertex},
		Outputs:     q.OutputNames(),
		OutputTypes: q.OutputTypes,
		Arguments:   bound,
	}, nil
}

func invalid(format string, args ...any) *ir.InvalidIRQueryError {
	return &ir.InvalidIRQueryError{Reason: fmt.Sprintf(format, args...)}
}

// bindArguments converts and type-checks every argument, collecting all
// problems sorted by variable name.
func bindArguments(q *ir.Query, args map[string]any) (map[string]value.Value, error) {
	var violations ir.QueryArgumentsError
	add := func(name, format string, a ...any) {
		violations = append(violations, &ir.ArgumentViolation{Variable: name, Message: fmt.Sprintf(format, a...)})
	}

	regexVars := make(map[string]bool)
	q.Walk(func(v *ir.Vertex) {
		for _, f := range v.Filters {
			if p, _ := f.Op.Positive(); p == ir.OpRegex && f.Operand != nil && f.Operand.Variable != "" {
				regexVars[f.Operand.Variable] = true
			}
		}
	})

	bound := make(map[string]value.Value, len(q.Variables))
	for name, t := range q.Variables {
		raw, ok := args[name]
		if !ok {
			add(name, "missing value for required argument of type %s", t)
			continue
		}
		v, err := value.FromGo(raw)
		if err != nil {
			var unrepresentable *value.UnrepresentableError
			switch {
			case errors.Is(err, value.ErrHeterogeneousList):
				add(name, "%v", err)
			case errors.As(err, &unrepresentable):
				add(name, "value of Go type %s is not representable", unrepresentable.Type)
			default:
				add(name, "%v", err)
			}
			continue
		}
		coerced, err := ir.Coerce(v, t)
		if err != nil {
			add(name, "value %s does not conform to type %s: %v", v, t, err)
			continue
		}
		v = coerced
		if regexVars[name] {
			if pattern, ok := v.AsString(); ok {
				if _, err := regexp.Compile(pattern); err != nil {
					add(name, "invalid regex: %v", err)
					continue
				}
			}
		}
		bound[name] = v
	}
	for name := range args {
		if _, ok := q.Variables[name]; !ok {
			add(name, "argument is not used by any variable in the query")
		}
	}

	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool {
			return violations[i].Variable < violations[j].Variable
		})
		return nil, violations
	}
	return bound, nil
}

func (c *compiler) vertex(v *ir.Vertex) (*Vertex, error) {
	if v == nil {
		return nil, invalid("edge has no target vertex")
	}
	t := c.schema.Type(v.Type)
	if t == nil || !t.IsVertexType() {
		return nil, invalid("vertex %d has unknown type %q", v.VID, v.Type)
	}
	out := &Vertex{VID: v.VID, Type: v.Type}

	if v.CoercedFrom != "" {
		if c.schema.Type(v.CoercedFrom) == nil {
			return nil, invalid("vertex %d is coerced from unknown type %q", v.VID, v.CoercedFrom)
		}
		out.Steps = append(out.Steps, &Coercion{From: v.CoercedFrom, To: v.Type})
	}

	props := make(map[string]*Property)
	property := func(name string) (*Property, error) {
		if p, ok := props[name]; ok {
			return p, nil
		}
		f := t.Field(name)
		if f == nil || f.IsEdge() {
			return nil, invalid("type %q has no property %q", v.Type, name)
		}
		p := &Property{TypeName: v.Type, Name: name, Type: f.Type}
		props[name] = p
		out.Steps = append(out.Steps, p)
		return p, nil
	}

	for _, tag := range v.Tags {
		p, err := property(tag.Property)
		if err != nil {
			return nil, err
		}
		p.Tags = append(p.Tags, tag.Name)
	}
	for _, f := range v.Filters {
		if _, err := property(f.Property); err != nil {
			return nil, err
		}
		node, err := c.filter(f)
		if err != nil {
			return nil, err
		}
		out.Steps = append(out.Steps, node)
	}
	for _, o := range v.Outputs {
		p, err := property(o.Property)
		if err != nil {
			return nil, err
		}
		p.Outputs = append(p.Outputs, o.Name)
	}

	for _, e := range v.Edges {
		node, err := c.edge(t, e)
		if err != nil {
			return nil, err
		}
		out.Steps = append(out.Steps, node)
	}
	return out, nil
}

func (c *compiler) filter(f *ir.Filter) (*Filter, error) {
	node := &Filter{Property: f.Property, Op: f.Op}
	if f.Op.Arity() == 0 {
		return node, nil
	}
	if f.Operand == nil {
		return nil, invalid("filter %q on %q has no operand", f.Op, f.Property)
	}
	switch {
	case f.Operand.Tag != "":
		if !c.tags[f.Operand.Tag] {
			return nil, invalid("filter on %q references undefined tag %q", f.Property, f.Operand.Tag)
		}
		node.Tag = f.Operand.Tag
	case f.Operand.Variable != "":
		if _, ok := c.query.Variables[f.Operand.Variable]; !ok {
			return nil, invalid("variable %q is missing from the variable table", f.Operand.Variable)
		}
		node.Value = c.args[f.Operand.Variable]
		if p, _ := f.Op.Positive(); p == ir.OpRegex {
			if pattern, ok := node.Value.AsString(); ok {
				node.Regex = regexp.MustCompile(pattern)
			}
		}
	default:
		return nil, invalid("filter %q on %q has an empty operand", f.Op, f.Property)
	}
	return node, nil
}

func (c *compiler) edge(from *schema.Type, e *ir.Edge) (Node, error) {
	def := from.Field(e.Name)
	if def == nil || !def.IsEdge() {
		return nil, invalid("type %q has no edge %q", from.Name, e.Name)
	}
	params, err := c.parameters(def, e.Parameters)
	if err != nil {
		return nil, err
	}
	target, err := c.vertex(e.Target)
	if err != nil {
		return nil, err
	}
	switch {
	case e.Fold:
		return &Fold{
			EID:        e.EID,
			TypeName:   from.Name,
			Edge:       e.Name,
			Parameters: params,
			Outputs:    append([]string(nil), e.FoldOutputs...),
			Target:     target,
		}, nil
	case e.Recurse != nil:
		if e.Recurse.Depth < 0 {
			return nil, invalid("edge %q has negative recursion depth %d", e.Name, e.Recurse.Depth)
		}
		return &Recurse{
			EID:        e.EID,
			Edge:       e.Name,
			Parameters: params,
			Depth:      e.Recurse.Depth,
			StepType:   e.Recurse.StepType,
			TargetType: e.Recurse.TargetType,
			CoerceTo:   e.Recurse.CoerceTo,
			Target:     target,
		}, nil
	}
	return &Neighbor{
		EID:        e.EID,
		TypeName:   from.Name,
		Edge:       e.Name,
		Parameters: params,
		Optional:   e.Optional,
		Target:     target,
	}, nil
}

// parameters binds edge parameters: literals as written, variables from the
// arguments, then schema defaults, then null for any remaining nullable
// parameter.
func (c *compiler) parameters(def *schema.Field, params map[string]*ir.Parameter) (Parameters, error) {
	out := make(Parameters, len(def.Parameters))
	for name, p := range params {
		if def.Parameter(name) == nil {
			return nil, invalid("edge %q has no parameter %q", def.Name, name)
		}
		if p.IsVariable() {
			v, ok := c.args[p.Variable]
			if !ok {
				if _, known := c.query.Variables[p.Variable]; !known {
					return nil, invalid("variable %q is missing from the variable table", p.Variable)
				}
				return nil, invalid("variable %q has no bound value", p.Variable)
			}
			out[name] = v
			continue
		}
		out[name] = p.Literal
	}
	for _, pd := range def.Parameters {
		if _, ok := out[pd.Name]; ok {
			continue
		}
		switch {
		case pd.Default != nil:
			out[pd.Name] = *pd.Default
		case !pd.Type.IsNonNull():
			out[pd.Name] = value.Null()
		default:
			return nil, invalid("required parameter %q of edge %q is unbound", pd.Name, def.Name)
		}
	}
	return out, nil
}
