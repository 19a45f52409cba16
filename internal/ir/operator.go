package ir

// Operator is a @filter operation.
type Operator string

const (
	OpIsNull          Operator = "is_null"
	OpIsNotNull       Operator = "is_not_null"
	OpEquals          Operator = "="
	OpNotEquals       Operator = "!="
	OpLessThan        Operator = "<"
	OpLessOrEqual     Operator = "<="
	OpGreaterThan     Operator = ">"
	OpGreaterOrEqual  Operator = ">="
	OpContains        Operator = "contains"
	OpNotContains     Operator = "not_contains"
	OpOneOf           Operator = "one_of"
	OpNotOneOf        Operator = "not_one_of"
	OpHasPrefix       Operator = "has_prefix"
	OpNotHasPrefix    Operator = "not_has_prefix"
	OpHasSuffix       Operator = "has_suffix"
	OpNotHasSuffix    Operator = "not_has_suffix"
	OpHasSubstring    Operator = "has_substring"
	OpNotHasSubstring Operator = "not_has_substring"
	OpRegex           Operator = "regex"
	OpNotRegex        Operator = "not_regex"
)

var operators = map[Operator]struct{}{
	OpIsNull: {}, OpIsNotNull: {}, OpEquals: {}, OpNotEquals: {},
	OpLessThan: {}, OpLessOrEqual: {}, OpGreaterThan: {}, OpGreaterOrEqual: {},
	OpContains: {}, OpNotContains: {}, OpOneOf: {}, OpNotOneOf: {},
	OpHasPrefix: {}, OpNotHasPrefix: {}, OpHasSuffix: {}, OpNotHasSuffix: {},
	OpHasSubstring: {}, OpNotHasSubstring: {}, OpRegex: {}, OpNotRegex: {},
}

// ParseOperator looks up an operator by its query-text spelling.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(s)
	_, ok := operators[op]
	return op, ok
}

// Arity is the number of operands the operator takes.
func (op Operator) Arity() int {
	if op == OpIsNull || op == OpIsNotNull {
		return 0
	}
	return 1
}

// Positive returns the non-negated form and whether op was negated.
func (op Operator) Positive() (Operator, bool) {
	switch op {
	case OpNotEquals:
		return OpEquals, true
	case OpNotContains:
		return OpContains, true
	case OpNotOneOf:
		return OpOneOf, true
	case OpNotHasPrefix:
		return OpHasPrefix, true
	case OpNotHasSuffix:
		return OpHasSuffix, true
	case OpNotHasSubstring:
		return OpHasSubstring, true
	case OpNotRegex:
		return OpRegex, true
	}
	return op, false
}

// IsOrdering reports whether op is one of <, <=, >, >=.
func (op Operator) IsOrdering() bool {
	switch op {
	case OpLessThan, OpLessOrEqual, OpGreaterThan, OpGreaterOrEqual:
		return true
	}
	return false
}

// IsStringMatch reports whether op only applies to strings.
func (op Operator) IsStringMatch() bool {
	switch p, _ := op.Positive(); p {
	case OpHasPrefix, OpHasSuffix, OpHasSubstring, OpRegex:
		return true
	}
	return false
}

// OperandType infers the type an operand of op must have when applied to a
// property of type field. ok is false when op cannot apply to field.
func (op Operator) OperandType(field *TypeRef) (t *TypeRef, ok bool) {
	p, _ := op.Positive()
	switch {
	case op.Arity() == 0:
		return nil, true
	case p == OpEquals:
		return field, true
	case op.IsOrdering():
		if !IsOrderable(field) {
			return nil, false
		}
		return NonNullType(field.Nullable()), true
	case p == OpContains:
		if !field.IsList() {
			return nil, false
		}
		return field.Elem(), true
	case p == OpOneOf:
		return NonNullType(ListType(field)), true
	case op.IsStringMatch():
		if field.IsList() || (field.NamedType() != String && field.NamedType() != ID) {
			return nil, false
		}
		return NonNullType(NamedType(String)), true
	}
	return nil, false
}
