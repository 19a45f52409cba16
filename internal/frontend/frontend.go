// Package frontend parses query text and validates it against a schema,
// producing the ir.Query tree consumed by the planner.
package frontend

import (
	ir "github.com/hanpama/trellis/internal/ir"
	language "github.com/hanpama/trellis/internal/language"
	schema "github.com/hanpama/trellis/internal/schema"
)

type parser struct {
	schema     *schema.Schema
	directives map[string]*schema.Directive
	fieldDirs  map[*language.Field]*fieldDirectives

	nextVID ir.VID
	nextEID ir.EID
	order   int

	outputs   map[string]*ir.TypeRef
	tags      map[string]*tagInfo
	variables map[string]*ir.TypeRef
	conflicts map[string]bool
	tagUses   []*tagUse

	parseErrs      []*ir.Violation
	validationErrs []*ir.Violation
	frontendErrs   []*ir.Violation
}

type tagInfo struct {
	order int
	folds []ir.EID
	typ   *ir.TypeRef
}

// tagUse is a filter operand naming a tag, resolved once the whole query has
// been walked.
type tagUse struct {
	filter *ir.Filter
	order  int
	folds  []ir.EID
	pos    *language.Position
}

// scope carries traversal state from an edge into its target vertex.
type scope struct {
	prefix    string
	optional  bool // below an @optional edge since the innermost @fold
	foldEdges []*ir.Edge
}

func (sc *scope) folds() []ir.EID {
	out := make([]ir.EID, len(sc.foldEdges))
	for i, e := range sc.foldEdges {
		out[i] = e.EID
	}
	return out
}

// Parse parses and validates a query against s. Errors are returned as
// ir.ParseError, ir.ValidationError or ir.FrontendError, in that order of
// precedence.
func Parse(s *schema.Schema, query string) (*ir.Query, error) {
	doc, err := language.ParseQuery("query", query)
	if err != nil {
		msg, pos := language.ErrorPosition(err)
		return nil, ir.ParseError{ir.ViolationAt(msg, pos)}
	}

	p := &parser{
		schema:     s,
		directives: make(map[string]*schema.Directive),
		fieldDirs:  make(map[*language.Field]*fieldDirectives),
		outputs:    make(map[string]*ir.TypeRef),
		tags:       make(map[string]*tagInfo),
		variables:  make(map[string]*ir.TypeRef),
		conflicts:  make(map[string]bool),
	}
	for _, d := range s.Directives() {
		p.directives[d.Name] = d
	}

	root := p.checkDocument(doc)
	if len(p.parseErrs) > 0 {
		return nil, ir.ParseError(p.parseErrs)
	}

	q := p.buildQuery(root)
	p.resolveTags()

	switch {
	case len(p.parseErrs) > 0:
		return nil, ir.ParseError(p.parseErrs)
	case len(p.validationErrs) > 0:
		return nil, ir.ValidationError(p.validationErrs)
	case len(p.frontendErrs) > 0:
		return nil, ir.FrontendError(p.frontendErrs)
	}
	return q, nil
}

func (p *parser) checkDocument(doc *language.QueryDocument) *language.Field {
	for _, frag := range doc.Fragments {
		p.parseErrs = append(p.parseErrs, violationFragmentsNotSupported(frag.Position))
	}
	if len(doc.Operations) != 1 {
		p.parseErrs = append(p.parseErrs, violationOperationCount(len(doc.Operations)))
		return nil
	}
	op := doc.Operations[0]
	if op.Operation != language.Query {
		p.parseErrs = append(p.parseErrs, violationNotAQuery(op.Operation, op.Position))
	}
	if len(op.VariableDefinitions) > 0 {
		p.parseErrs = append(p.parseErrs, violationVariableDeclarations(op.VariableDefinitions[0].Position))
	}
	if len(op.Directives) > 0 {
		p.parseErrs = append(p.parseErrs, violationOperationDirectives(op.Directives[0].Position))
	}
	if len(op.SelectionSet) != 1 {
		p.parseErrs = append(p.parseErrs, violationRootSelection(op.Position))
		return nil
	}
	field, ok := op.SelectionSet[0].(*language.Field)
	if !ok {
		p.parseErrs = append(p.parseErrs, violationRootSelection(op.Position))
		return nil
	}
	if len(field.Directives) > 0 {
		p.parseErrs = append(p.parseErrs, violationRootDirectives(field.Name, field.Directives[0].Position))
	}
	p.syntaxField(field)
	return field
}

func (p *parser) buildQuery(field *language.Field) *ir.Query {
	root := p.schema.QueryType()
	start := root.Field(field.Name)
	if start == nil || !start.IsEdge() {
		p.validationErrs = append(p.validationErrs, violationUnknownStartingEdge(field.Name, field.Position))
		return nil
	}
	if len(field.SelectionSet) == 0 {
		p.validationErrs = append(p.validationErrs, violationEdgeWithoutSelection(field.Name, root.Name, field.Position))
		return nil
	}
	q := &ir.Query{
		StartEdge:   start.Name,
		Parameters:  p.edgeParameters(root.Name, start, field),
		Variables:   p.variables,
		OutputTypes: p.outputs,
	}
	sc := &scope{}
	if field.Alias != field.Name {
		sc.prefix = field.Alias
	}
	q.Root = p.buildVertex(start.Type.NamedType(), field, sc)
	return q
}

func (p *parser) buildVertex(typeName string, field *language.Field, sc *scope) *ir.Vertex {
	p.nextVID++
	p.order++
	v := &ir.Vertex{VID: p.nextVID, Type: typeName, Position: field.Position}
	order := p.order

	selections := field.SelectionSet
	if len(selections) == 1 {
		if frag, ok := selections[0].(*language.InlineFragment); ok {
			t := p.schema.Type(frag.TypeCondition)
			switch {
			case t == nil || !t.IsVertexType():
				p.validationErrs = append(p.validationErrs, violationUnknownCoercionType(frag.TypeCondition, frag.Position))
				return v
			case !p.schema.IsSubtype(t.Name, typeName):
				p.validationErrs = append(p.validationErrs, violationInvalidCoercion(t.Name, typeName, frag.Position))
				return v
			}
			v.CoercedFrom, v.Type = typeName, t.Name
			selections = frag.SelectionSet
		}
	}

	for _, sel := range selections {
		f, ok := sel.(*language.Field)
		if !ok {
			continue
		}
		def := p.schema.Field(v.Type, f.Name)
		if def == nil {
			p.validationErrs = append(p.validationErrs, violationUnknownField(f.Name, v.Type, f.Position))
			continue
		}
		if def.IsEdge() {
			p.buildEdge(v, def, f, sc)
		} else {
			p.buildProperty(v, def, f, sc, order)
		}
	}
	return v
}

func (p *parser) buildProperty(v *ir.Vertex, def *schema.Field, f *language.Field, sc *scope, order int) {
	dirs := p.fieldDirs[f]
	if len(f.SelectionSet) > 0 {
		p.validationErrs = append(p.validationErrs, violationPropertySelection(f.Name, v.Type, f.Position))
	}
	for _, arg := range f.Arguments {
		p.validationErrs = append(p.validationErrs, violationUnknownParameter(arg.Name, f.Name, v.Type, arg.Position))
	}
	if dirs.optional != nil {
		p.frontendErrs = append(p.frontendErrs, violationDirectiveOnProperty("optional", f.Name, dirs.optional.Position))
	}
	if dirs.fold != nil {
		p.frontendErrs = append(p.frontendErrs, violationDirectiveOnProperty("fold", f.Name, dirs.fold.Position))
	}
	if dirs.recurse != nil {
		p.frontendErrs = append(p.frontendErrs, violationDirectiveOnProperty("recurse", f.Name, dirs.recurse.pos))
	}

	for _, t := range dirs.tags {
		name := t.name
		if name == "" {
			name = f.Alias
		}
		if _, dup := p.tags[name]; dup {
			p.frontendErrs = append(p.frontendErrs, violationDuplicateTag(name, t.pos))
			continue
		}
		p.tags[name] = &tagInfo{order: order, folds: sc.folds(), typ: def.Type}
		v.Tags = append(v.Tags, &ir.Tag{Name: name, Property: def.Name, Type: def.Type})
	}

	for _, fd := range dirs.filters {
		filter := &ir.Filter{Property: def.Name, PropertyType: def.Type, Op: fd.op}
		if fd.op.Arity() == 1 {
			operandType, ok := fd.op.OperandType(def.Type)
			if !ok {
				p.frontendErrs = append(p.frontendErrs, violationOperatorNotApplicable(fd.op, def.Name, def.Type, fd.pos))
				continue
			}
			raw := fd.operands[0]
			name := raw[1:]
			filter.Operand = &ir.Operand{Type: operandType}
			if raw[0] == '$' {
				filter.Operand.Variable = name
				p.useVariable(name, operandType, fd.pos)
			} else {
				filter.Operand.Tag = name
				p.tagUses = append(p.tagUses, &tagUse{filter: filter, order: order, folds: sc.folds(), pos: fd.pos})
			}
		}
		v.Filters = append(v.Filters, filter)
	}

	for _, o := range dirs.outputs {
		name := o.name
		if name == "" {
			name = sc.prefix + f.Alias
		}
		if _, dup := p.outputs[name]; dup {
			p.frontendErrs = append(p.frontendErrs, violationDuplicateOutput(name, o.pos))
			continue
		}
		rowType := def.Type
		if sc.optional {
			rowType = rowType.Nullable()
		}
		for i := len(sc.foldEdges) - 1; i >= 0; i-- {
			rowType = ir.NonNullType(ir.ListType(rowType))
			sc.foldEdges[i].FoldOutputs = append(sc.foldEdges[i].FoldOutputs, name)
		}
		p.outputs[name] = rowType
		v.Outputs = append(v.Outputs, &ir.Output{Name: name, Property: def.Name, Type: def.Type})
	}
}

func (p *parser) buildEdge(v *ir.Vertex, def *schema.Field, f *language.Field, sc *scope) {
	dirs := p.fieldDirs[f]
	if len(f.SelectionSet) == 0 {
		p.validationErrs = append(p.validationErrs, violationEdgeWithoutSelection(f.Name, v.Type, f.Position))
		return
	}
	for _, d := range dirs.outputs {
		p.frontendErrs = append(p.frontendErrs, violationDirectiveOnEdge("output", f.Name, d.pos))
	}
	for _, d := range dirs.tags {
		p.frontendErrs = append(p.frontendErrs, violationDirectiveOnEdge("tag", f.Name, d.pos))
	}
	for _, d := range dirs.filters {
		p.frontendErrs = append(p.frontendErrs, violationDirectiveOnEdge("filter", f.Name, d.pos))
	}
	if dirs.fold != nil && dirs.optional != nil {
		p.frontendErrs = append(p.frontendErrs, violationIncompatibleDirectives("fold", "optional", f.Name, dirs.fold.Position))
	}
	if dirs.fold != nil && dirs.recurse != nil {
		p.frontendErrs = append(p.frontendErrs, violationIncompatibleDirectives("fold", "recurse", f.Name, dirs.fold.Position))
	}
	if dirs.recurse != nil && dirs.optional != nil {
		p.frontendErrs = append(p.frontendErrs, violationIncompatibleDirectives("recurse", "optional", f.Name, dirs.recurse.pos))
	}

	p.nextEID++
	e := &ir.Edge{
		EID:        p.nextEID,
		Name:       def.Name,
		Alias:      f.Alias,
		FromType:   v.Type,
		Parameters: p.edgeParameters(v.Type, def, f),
		Optional:   dirs.optional != nil,
		Fold:       dirs.fold != nil,
	}
	target := def.Type.NamedType()
	if dirs.recurse != nil && dirs.recurse.valid {
		e.Recurse = p.recurseInfo(v.Type, def, target, e.Parameters, dirs.recurse)
	}

	child := &scope{
		prefix:    sc.prefix,
		optional:  sc.optional || e.Optional,
		foldEdges: sc.foldEdges,
	}
	if f.Alias != f.Name {
		child.prefix += f.Alias
	}
	if e.Fold {
		child.optional = false
		child.foldEdges = append(append([]*ir.Edge(nil), sc.foldEdges...), e)
	}
	e.Target = p.buildVertex(target, f, child)
	v.Edges = append(v.Edges, e)
}

func (p *parser) edgeParameters(typeName string, def *schema.Field, f *language.Field) map[string]*ir.Parameter {
	params := make(map[string]*ir.Parameter)
	for _, arg := range f.Arguments {
		pd := def.Parameter(arg.Name)
		if pd == nil {
			p.validationErrs = append(p.validationErrs, violationUnknownParameter(arg.Name, def.Name, typeName, arg.Position))
			continue
		}
		if arg.Value.Kind == language.Variable {
			params[arg.Name] = &ir.Parameter{Name: arg.Name, Type: pd.Type, Variable: arg.Value.Raw}
			p.useVariable(arg.Value.Raw, pd.Type, arg.Position)
			continue
		}
		val, err := schema.LiteralValue(arg.Value, pd.Type)
		if err != nil {
			p.validationErrs = append(p.validationErrs, violationInvalidParameterValue(arg.Name, def.Name, typeName, err, arg.Position))
			continue
		}
		params[arg.Name] = &ir.Parameter{Name: arg.Name, Type: pd.Type, Literal: val}
	}
	for _, pd := range def.Parameters {
		if _, ok := params[pd.Name]; !ok && pd.IsRequired() && f.Arguments.ForName(pd.Name) == nil {
			p.validationErrs = append(p.validationErrs, violationMissingParameter(pd.Name, def.Name, typeName, f.Position))
		}
	}
	return params
}

// recurseInfo decides how the edge is resolved at every recursion step. The
// source vertex must be usable as a target vertex, so the target type must be
// the source type or one of its supertypes.
func (p *parser) recurseInfo(from string, def *schema.Field, target string, params map[string]*ir.Parameter, d *recurseDirective) *ir.Recurse {
	r := &ir.Recurse{Depth: d.depth, TargetType: target, StepType: from}
	switch {
	case target == from:
		return r
	case p.schema.IsSubtype(from, target):
		if td := p.schema.Field(target, def.Name); td != nil && td.IsEdge() &&
			p.schema.IsSubtype(td.Type.NamedType(), target) && acceptsParameters(td, params) {
			r.StepType = target
			return r
		}
		r.CoerceTo = from
		return r
	}
	p.frontendErrs = append(p.frontendErrs, violationRecurseType(def.Name, from, target, d.pos))
	return nil
}

func acceptsParameters(def *schema.Field, params map[string]*ir.Parameter) bool {
	for name, param := range params {
		pd := def.Parameter(name)
		if pd == nil || !pd.Type.Equal(param.Type) {
			return false
		}
	}
	for _, pd := range def.Parameters {
		if _, ok := params[pd.Name]; !ok && pd.IsRequired() {
			return false
		}
	}
	return true
}

func (p *parser) useVariable(name string, t *ir.TypeRef, pos *language.Position) {
	prev, ok := p.variables[name]
	if !ok {
		p.variables[name] = t
		return
	}
	merged, ok := ir.Intersect(prev, t)
	if !ok {
		if !p.conflicts[name] {
			p.conflicts[name] = true
			p.frontendErrs = append(p.frontendErrs, violationVariableTypeConflict(name, prev, t, pos))
		}
		return
	}
	p.variables[name] = merged
}

func (p *parser) resolveTags() {
	for _, use := range p.tagUses {
		name := use.filter.Operand.Tag
		info := p.tags[name]
		switch {
		case info == nil:
			p.frontendErrs = append(p.frontendErrs, violationUndefinedTag(name, use.filter.Property, use.pos))
		case info.order > use.order || !isPrefix(info.folds, use.folds):
			p.frontendErrs = append(p.frontendErrs, violationTagNotVisible(name, use.filter.Property, use.pos))
		case !ir.EqualIgnoringNullability(info.typ, use.filter.Operand.Type):
			p.frontendErrs = append(p.frontendErrs, violationTagTypeMismatch(name, info.typ, use.filter.Op, use.filter.Property, use.filter.Operand.Type, use.pos))
		default:
			use.filter.Operand.Type = info.typ
		}
	}
}

func isPrefix(prefix, of []ir.EID) bool {
	if len(prefix) > len(of) {
		return false
	}
	for i := range prefix {
		if prefix[i] != of[i] {
			return false
		}
	}
	return true
}
