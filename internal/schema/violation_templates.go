package schema

import (
	"fmt"

	ir "github.com/hanpama/trellis/internal/ir"
	language "github.com/hanpama/trellis/internal/language"
)

// Messages are matched by tests; keep them stable.

func violationReservedName(kind, name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("%s name %q cannot start with '__' (reserved prefix)", kind, name),
		pos,
	)
}

func violationDuplicateType(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Duplicate type %q", name), pos)
}

func violationBuiltinRedefined(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Type %q is built in and cannot be redefined", name), pos)
}

func violationDuplicateField(fieldName, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Duplicate field %q found in type %q", fieldName, typeName),
		pos,
	)
}

func violationDuplicateParameter(param, fieldName, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Duplicate parameter %q on field %s.%s", param, typeName, fieldName),
		pos,
	)
}

func violationUnsupportedDefinition(kind language.DefinitionKind, name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Unsupported %s definition %q: only object and interface types are allowed", kind, name),
		pos,
	)
}

func violationExtensionNotSupported(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Extension of %q is not supported", name), pos)
}

func violationDirectiveNotPermitted(directive, where string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Directive @%s is not permitted on %s", directive, where),
		pos,
	)
}

func violationUnsupportedDirectiveDefinition(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Directive definition @%s is not supported", name),
		pos,
	)
}

func violationDuplicateDirectiveDefinition(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Duplicate directive definition @%s", name), pos)
}

func violationDirectiveDefinitionMismatch(name, detail string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Directive definition @%s does not match the built-in directive: %s", name, detail),
		pos,
	)
}

func violationUnsupportedOperation(op language.Operation, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Unsupported root operation %q: only query is allowed", op),
		pos,
	)
}

func violationDuplicateRootOperation(op language.Operation, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Root operation %q declared more than once", op), pos)
}

func violationMissingRootType() *ir.Violation {
	return ir.ViolationAt("Schema has no root query type: declare `schema { query: ... }` or a type named Query", nil)
}

func violationRootTypeNotFound(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Root query type %q is not defined", name), pos)
}

func violationRootNotObject(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Root query type %q must be an object type", name), pos)
}

func violationTypeMustHaveField(name string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Type %q must define at least one field", name), pos)
}

func violationUnknownType(typeName, where string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Unknown type %q referenced by %s", typeName, where), pos)
}

func violationPropertyWithParameters(fieldName, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Property %s.%s cannot declare parameters", typeName, fieldName),
		pos,
	)
}

func violationNestedListProperty(fieldName, typeName string, t *ir.TypeRef, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Property %s.%s has unsupported nested list type %s", typeName, fieldName, t),
		pos,
	)
}

func violationNestedListEdge(fieldName, typeName string, t *ir.TypeRef, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Edge %s.%s has unsupported nested list type %s", typeName, fieldName, t),
		pos,
	)
}

func violationEdgeToRoot(fieldName, typeName, root string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Edge %s.%s cannot point to the root query type %q", typeName, fieldName, root),
		pos,
	)
}

func violationPropertyOnRoot(fieldName, root string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Root query type %q cannot declare property %q: root fields must be edges", root, fieldName),
		pos,
	)
}

func violationParameterNotScalar(param, fieldName, typeName string, t *ir.TypeRef, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Parameter %q on %s.%s must be a scalar or a list of scalars, got %s", param, typeName, fieldName, t),
		pos,
	)
}

func violationInvalidDefault(param, fieldName, typeName string, err error, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Invalid default value for parameter %q on %s.%s: %v", param, typeName, fieldName, err),
		pos,
	)
}

func violationDuplicateInterface(iface, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Type %q lists interface %q more than once", typeName, iface),
		pos,
	)
}

func violationNotAnInterface(name, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Type %q cannot implement %q: it is not an interface", typeName, name),
		pos,
	)
}

func violationSelfImplementation(typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(fmt.Sprintf("Interface %q cannot implement itself", typeName), pos)
}

func violationInterfaceCycle(typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Interface %q is part of an implementation cycle", typeName),
		pos,
	)
}

func violationMissingInterfaceField(fieldName, iface, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Type %q implements %q but does not declare field %q", typeName, iface, fieldName),
		pos,
	)
}

func violationFieldKindMismatch(fieldName, iface, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Field %s.%s must be a property or an edge exactly as on interface %q", typeName, fieldName, iface),
		pos,
	)
}

func violationFieldWidened(fieldName, iface, typeName string, want, got *ir.TypeRef, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Field %s.%s has type %s which is not compatible with %s declared by interface %q", typeName, fieldName, got, want, iface),
		pos,
	)
}

func violationMissingInterfaceParameter(param, fieldName, iface, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Field %s.%s is missing parameter %q declared by interface %q", typeName, fieldName, param, iface),
		pos,
	)
}

func violationParameterTypeMismatch(param, fieldName, iface, typeName string, want, got *ir.TypeRef, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Parameter %q on %s.%s has type %s but interface %q declares %s", param, typeName, fieldName, got, iface, want),
		pos,
	)
}

func violationExtraRequiredParameter(param, fieldName, iface, typeName string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Field %s.%s adds required parameter %q not declared by interface %q", typeName, fieldName, param, iface),
		pos,
	)
}

func violationMissingTransitiveInterface(typeName, iface, transitive string, pos *language.Position) *ir.Violation {
	return ir.ViolationAt(
		fmt.Sprintf("Type %q implements %q and must also implement %q", typeName, iface, transitive),
		pos,
	)
}
