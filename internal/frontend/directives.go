package frontend

import (
	"regexp"
	"strconv"

	ir "github.com/hanpama/trellis/internal/ir"
	language "github.com/hanpama/trellis/internal/language"
	schema "github.com/hanpama/trellis/internal/schema"
)

var namePattern = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

func validName(name string) bool {
	return namePattern.MatchString(name) && (len(name) < 2 || name[:2] != "__")
}

// fieldDirectives is the structured form of the directives on one field.
type fieldDirectives struct {
	filters  []*filterDirective
	tags     []*nameDirective
	outputs  []*nameDirective
	optional *language.Directive
	fold     *language.Directive
	recurse  *recurseDirective
}

type filterDirective struct {
	op       ir.Operator
	operands []string
	pos      *language.Position
}

type nameDirective struct {
	name string // empty when the default name applies
	pos  *language.Position
}

type recurseDirective struct {
	depth int
	valid bool
	pos   *language.Position
}

// syntaxSelectionSet checks the schema-independent rules of a selection set
// and records the parsed directives of every field.
func (p *parser) syntaxSelectionSet(set language.SelectionSet, inCoercion bool) {
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			p.syntaxField(sel)
		case *language.InlineFragment:
			if len(set) > 1 {
				p.parseErrs = append(p.parseErrs, violationCoercionNotAlone(sel.Position))
			}
			if inCoercion {
				p.parseErrs = append(p.parseErrs, violationNestedCoercion(sel.Position))
			}
			if sel.TypeCondition == "" {
				p.parseErrs = append(p.parseErrs, violationCoercionWithoutType(sel.Position))
			}
			if len(sel.Directives) > 0 {
				p.parseErrs = append(p.parseErrs, violationCoercionDirectives(sel.Directives[0].Position))
			}
			p.syntaxSelectionSet(sel.SelectionSet, true)
		case *language.FragmentSpread:
			p.parseErrs = append(p.parseErrs, violationFragmentsNotSupported(sel.Position))
		}
	}
}

func (p *parser) syntaxField(f *language.Field) {
	seen := make(map[string]bool)
	for _, arg := range f.Arguments {
		if seen[arg.Name] {
			p.parseErrs = append(p.parseErrs, violationDuplicateArgument(arg.Name, arg.Position))
		}
		seen[arg.Name] = true
	}
	p.fieldDirs[f] = p.parseDirectives(f.Directives)
	p.syntaxSelectionSet(f.SelectionSet, false)
}

func (p *parser) parseDirectives(list language.DirectiveList) *fieldDirectives {
	out := &fieldDirectives{}
	seen := make(map[string]bool)
	for _, d := range list {
		def := p.directives[d.Name]
		if def == nil {
			p.parseErrs = append(p.parseErrs, violationUnknownDirective(d.Name, d.Position))
			continue
		}
		if seen[d.Name] && !def.IsRepeatable {
			p.parseErrs = append(p.parseErrs, violationRepeatedDirective(d.Name, d.Position))
			continue
		}
		seen[d.Name] = true
		args, ok := p.directiveArguments(d, def)
		if !ok {
			continue
		}
		switch d.Name {
		case "filter":
			if f := p.parseFilter(d, args); f != nil {
				out.filters = append(out.filters, f)
			}
		case "tag":
			if n, ok := p.parseName(d, args); ok {
				out.tags = append(out.tags, n)
			}
		case "output":
			if n, ok := p.parseName(d, args); ok {
				out.outputs = append(out.outputs, n)
			}
		case "optional":
			out.optional = d
		case "fold":
			out.fold = d
		case "recurse":
			out.recurse = p.parseRecurse(d, args)
		}
	}
	return out
}

func (p *parser) directiveArguments(d *language.Directive, def *schema.Directive) (map[string]*language.Value, bool) {
	ok := true
	args := make(map[string]*language.Value, len(d.Arguments))
	for _, arg := range d.Arguments {
		known := false
		for _, param := range def.Arguments {
			if param.Name == arg.Name {
				known = true
			}
		}
		switch {
		case !known:
			p.parseErrs = append(p.parseErrs, violationUnknownDirectiveArgument(d.Name, arg.Name, arg.Position))
			ok = false
		case args[arg.Name] != nil:
			p.parseErrs = append(p.parseErrs, violationDuplicateDirectiveArgument(d.Name, arg.Name, arg.Position))
			ok = false
		default:
			args[arg.Name] = arg.Value
		}
	}
	for _, param := range def.Arguments {
		if param.IsRequired() && args[param.Name] == nil {
			p.parseErrs = append(p.parseErrs, violationMissingDirectiveArgument(d.Name, param.Name, d.Position))
			ok = false
		}
	}
	return args, ok
}

func (p *parser) parseFilter(d *language.Directive, args map[string]*language.Value) *filterDirective {
	opValue := args["op"]
	if opValue.Kind != language.StringValue {
		p.parseErrs = append(p.parseErrs, violationDirectiveArgumentType("filter", "op", "a string", opValue.Position))
		return nil
	}
	op, known := ir.ParseOperator(opValue.Raw)
	if !known {
		p.parseErrs = append(p.parseErrs, violationUnknownOperator(opValue.Raw, opValue.Position))
		return nil
	}

	f := &filterDirective{op: op, pos: d.Position}
	if v := args["value"]; v != nil {
		switch v.Kind {
		case language.NullValue:
		case language.StringValue, language.BlockValue:
			p.parseErrs = append(p.parseErrs, violationFilterValueIsString(v.Position))
			return nil
		case language.ListValue:
			for _, c := range v.Children {
				if c.Value.Kind != language.StringValue {
					p.parseErrs = append(p.parseErrs, violationDirectiveArgumentType("filter", "value", "a list of strings", c.Value.Position))
					return nil
				}
				operand := c.Value.Raw
				if len(operand) < 2 || (operand[0] != '$' && operand[0] != '%') || !namePattern.MatchString(operand[1:]) {
					p.parseErrs = append(p.parseErrs, violationInvalidOperand(operand, c.Value.Position))
					return nil
				}
				f.operands = append(f.operands, operand)
			}
		default:
			p.parseErrs = append(p.parseErrs, violationDirectiveArgumentType("filter", "value", "a list of strings", v.Position))
			return nil
		}
	}
	if len(f.operands) != op.Arity() {
		p.parseErrs = append(p.parseErrs, violationOperandCount(op, op.Arity(), len(f.operands), d.Position))
		return nil
	}
	return f
}

func (p *parser) parseName(d *language.Directive, args map[string]*language.Value) (*nameDirective, bool) {
	n := &nameDirective{pos: d.Position}
	v := args["name"]
	if v == nil || v.Kind == language.NullValue {
		return n, true
	}
	if v.Kind != language.StringValue {
		p.parseErrs = append(p.parseErrs, violationDirectiveArgumentType(d.Name, "name", "a string", v.Position))
		return nil, false
	}
	if !validName(v.Raw) {
		p.parseErrs = append(p.parseErrs, violationInvalidName(d.Name, v.Raw, v.Position))
		return nil, false
	}
	n.name = v.Raw
	return n, true
}

func (p *parser) parseRecurse(d *language.Directive, args map[string]*language.Value) *recurseDirective {
	r := &recurseDirective{pos: d.Position}
	v := args["depth"]
	switch v.Kind {
	case language.IntValue:
		depth, err := strconv.Atoi(v.Raw)
		if err != nil || depth < 0 {
			p.frontendErrs = append(p.frontendErrs, violationRecurseDepth(v.Raw, v.Position))
			return r
		}
		r.depth, r.valid = depth, true
	case language.Variable:
		p.frontendErrs = append(p.frontendErrs, violationRecurseDepth("$"+v.Raw, v.Position))
	default:
		p.parseErrs = append(p.parseErrs, violationDirectiveArgumentType("recurse", "depth", "an integer", v.Position))
	}
	return r
}
