package executor

import (
	"regexp"
	"strings"

	ir "github.com/hanpama/trellis/internal/ir"
	planner "github.com/hanpama/trellis/internal/planner"
	value "github.com/hanpama/trellis/internal/value"
)

// passes evaluates a filter against the context. Filters inside a missing
// optional scope, and filters against a tag recorded in one, always pass.
func (r *run) passes(ctx *DataContext, f *planner.Filter) bool {
	if ctx.active == nil {
		return true
	}
	left := ctx.values[f.Property]
	right, re := f.Value, f.Regex
	if f.Tag != "" {
		tag := ctx.tags[f.Tag]
		if tag.missing {
			return true
		}
		right = tag.value
		re = nil
	}

	op, negated := f.Op.Positive()
	var ok bool
	switch op {
	case ir.OpIsNull:
		return left.IsNull()
	case ir.OpIsNotNull:
		return !left.IsNull()
	case ir.OpRegex:
		if re == nil {
			re = r.regex(right)
		}
		ok = matchRegex(left, re)
	default:
		ok = evaluate(op, left, right)
	}
	return ok != negated
}

func evaluate(op ir.Operator, left, right value.Value) bool {
	switch op {
	case ir.OpEquals:
		return left.Equal(right)
	case ir.OpLessThan, ir.OpLessOrEqual, ir.OpGreaterThan, ir.OpGreaterOrEqual:
		c, ok := value.Compare(left, right)
		if !ok {
			return false
		}
		switch op {
		case ir.OpLessThan:
			return c < 0
		case ir.OpLessOrEqual:
			return c <= 0
		case ir.OpGreaterThan:
			return c > 0
		}
		return c >= 0
	case ir.OpContains:
		return listContains(left, right)
	case ir.OpOneOf:
		return listContains(right, left)
	case ir.OpHasPrefix, ir.OpHasSuffix, ir.OpHasSubstring:
		s, ok1 := left.AsString()
		t, ok2 := right.AsString()
		if !ok1 || !ok2 {
			return false
		}
		switch op {
		case ir.OpHasPrefix:
			return strings.HasPrefix(s, t)
		case ir.OpHasSuffix:
			return strings.HasSuffix(s, t)
		}
		return strings.Contains(s, t)
	}
	return false
}

func listContains(list, elem value.Value) bool {
	if !list.IsList() {
		return false
	}
	for i := 0; i < list.Len(); i++ {
		if list.Index(i).Equal(elem) {
			return true
		}
	}
	return false
}

func matchRegex(left value.Value, re *regexp.Regexp) bool {
	s, ok := left.AsString()
	if !ok || re == nil {
		return false
	}
	return re.MatchString(s)
}

// regex compiles a pattern taken from a tag. Patterns that do not compile
// match nothing.
func (r *run) regex(pattern value.Value) *regexp.Regexp {
	s, ok := pattern.AsString()
	if !ok {
		return nil
	}
	if re, ok := r.regexes[s]; ok {
		return re
	}
	re, err := regexp.Compile(s)
	if err != nil {
		re = nil
	}
	if r.regexes == nil {
		r.regexes = make(map[string]*regexp.Regexp)
	}
	r.regexes[s] = re
	return re
}
