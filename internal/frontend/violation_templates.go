package frontend

import (
	"fmt"

	ir "github.com/hanpama/trellis/internal/ir"
	language "github.com/hanpama/trellis/internal/language"
)

// ----- ParseError -----

func violationFragmentsNotSupported(pos *language.Position) *ir.Violation {
	return ir.ViolationAt("Fragments are not supported; use inline type coercions instead", pos)
}

func violationOperationCount(n int) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Expected exactly one query operation, found %d", n), nil)
}

func violationNotAQuery(op language.Operation, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Unsupported operation %q: only queries are supported", op), pos)
}

func violationVariableDeclarations(pos *language.Position) *ir.Violation {
	return ir.ViolationAt("Variable declarations are not supported; variable types are inferred from use", pos)
}

func violationOperationDirectives(pos *language.Position) *ir.Violation {
	return ir.ViolationAt("Directives are not supported on the query operation", pos)
}

func violationRootSelection(pos *language.Position) *ir.Violation {
	return ir.ViolationAt("A query must select exactly one starting edge", pos)
}

func violationRootDirectives(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Directives are not supported on the starting edge %q", name), pos)
}

func violationCoercionDirectives(pos *language.Position) *ir.Violation {
	return ir.ViolationAt("Directives are not supported on type coercions", pos)
}

func violationCoercionWithoutType(pos *language.Position) *ir.Violation {
	return ir.ViolationAt("Inline fragments must declare a type condition", pos)
}

func violationNestedCoercion(pos *language.Position) *ir.Violation {
	return ir.ViolationAt("Nested type coercions are not supported", pos)
}

func violationCoercionNotAlone(pos *language.Position) *ir.Violation {
	return ir.ViolationAt("A type coercion must be the only selection in its scope", pos)
}

func violationDuplicateArgument(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Duplicate argument %q", name), pos)
}

func violationUnknownDirective(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Unknown directive @%s", name), pos)
}

func violationRepeatedDirective(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Directive @%s may not be applied more than once", name), pos)
}

func violationUnknownDirectiveArgument(directive, arg string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Unknown argument %q in @%s directive", arg, directive), pos)
}

func violationDuplicateDirectiveArgument(directive, arg string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Duplicate argument %q in @%s directive", arg, directive), pos)
}

func violationMissingDirectiveArgument(directive, arg string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Missing required argument %q in @%s directive", arg, directive), pos)
}

func violationDirectiveArgumentType(directive, arg, want string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Argument %q in @%s directive must be %s", arg, directive, want), pos)
}

func violationFilterValueIsString(pos *language.Position) *ir.Violation {
	return ir.ViolationAt(`Argument "value" in @filter directive expects a list, not a string`, pos)
}

func violationUnknownOperator(op string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Unknown filter operator %q", op), pos)
}

func violationInvalidOperand(operand string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Invalid filter operand %q: expected $variable or %%tag", operand),
		pos,
	)
}

func violationOperandCount(op ir.Operator, want, got int, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Filter operator %q expects %d operand(s), got %d", op, want, got),
		pos,
	)
}

func violationInvalidName(directive, name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Invalid @%s name %q: names must match [_A-Za-z][_0-9A-Za-z]* and not start with '__'", directive, name),
		pos,
	)
}

// ----- ValidationError -----

func violationUnknownStartingEdge(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Unknown starting edge %q", name), pos)
}

func violationUnknownField(field, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Type %q has no field %q", typeName, field), pos)
}

func violationUnknownCoercionType(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Unknown type %q in type coercion", name), pos)
}

func violationInvalidCoercion(to, from string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Cannot coerce %q to %q: it is not a subtype", from, to), pos)
}

func violationPropertySelection(field, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Property %s.%s is a scalar and cannot have a selection set", typeName, field),
		pos,
	)
}

func violationEdgeWithoutSelection(field, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Edge %s.%s requires a selection set", typeName, field), pos)
}

func violationUnknownParameter(param, field, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Unknown parameter %q on %s.%s", param, typeName, field), pos)
}

func violationMissingParameter(param, field, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Missing required edge parameter %q on %s.%s", param, typeName, field),
		pos,
	)
}

func violationInvalidParameterValue(param, field, typeName string, err error, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Invalid value for parameter %q on %s.%s: %v", param, typeName, field, err),
		pos,
	)
}

// ----- FrontendError -----

func violationDuplicateOutput(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Multiple fields are being output under the same name %q", name), pos)
}

func violationDuplicateTag(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Multiple fields have @tag directives with the same name %q", name), pos)
}

func violationOperatorNotApplicable(op ir.Operator, field string, t *ir.TypeRef, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Filter operator %q cannot be applied to property %q of type %s", op, field, t),
		pos,
	)
}

func violationTagTypeMismatch(tag string, tagType *ir.TypeRef, op ir.Operator, field string, want *ir.TypeRef, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Tag %%%s of type %s cannot be used with %q on property %q, which expects %s", tag, tagType, op, field, want),
		pos,
	)
}

func violationUndefinedTag(tag, field string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Filter on property %q uses undefined tag %%%s", field, tag), pos)
}

func violationTagNotVisible(tag, field string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Filter on property %q uses tag %%%s before it is defined or outside the @fold that defines it", field, tag),
		pos,
	)
}

func violationDirectiveOnEdge(directive, field string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Found an edge %q with an unsupported @%s directive", field, directive), pos)
}

func violationDirectiveOnProperty(directive, field string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Found a property %q with an unsupported @%s directive", field, directive), pos)
}

func violationIncompatibleDirectives(a, b, field string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Edge %q cannot combine @%s with @%s", field, a, b), pos)
}

func violationRecurseDepth(raw string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("@recurse depth must be a literal non-negative integer, got %s", raw), pos)
}

func violationRecurseType(field, from, to string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Cannot recurse edge %q from type %q: target type %q is not the same type or a supertype", field, from, to),
		pos,
	)
}

func violationVariableTypeConflict(name string, a, b *ir.TypeRef, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Variable $%s is used with incompatible types %s and %s", name, a, b),
		pos,
	)
}
