package schema

import (
	ir "github.com/hanpama/trellis/internal/ir"
)

var stringType = &Type{
	Name:        ir.String,
	Kind:        TypeKindScalar,
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
}

var intType = &Type{
	Name:        ir.Int,
	Kind:        TypeKindScalar,
	Description: "The `Int` scalar type represents signed 64-bit whole numeric values.",
}

var floatType = &Type{
	Name:        ir.Float,
	Kind:        TypeKindScalar,
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
}

var booleanType = &Type{
	Name:        ir.Boolean,
	Kind:        TypeKindScalar,
	Description: "The `Boolean` scalar type represents `true` or `false`.",
}

var idType = &Type{
	Name:        ir.ID,
	Kind:        TypeKindScalar,
	Description: "The `ID` scalar type represents a unique identifier carried as a string.",
}

var builtinScalars = []*Type{stringType, intType, floatType, booleanType, idType}

func nonNull(name string) *ir.TypeRef { return ir.NonNullType(ir.NamedType(name)) }

var filterDirective = &Directive{
	Name: "filter",
	Arguments: []*Parameter{
		{Name: "op", Type: nonNull(ir.String)},
		{Name: "value", Type: ir.ListType(nonNull(ir.String))},
	},
	Locations:    []string{"FIELD", "INLINE_FRAGMENT"},
	IsRepeatable: true,
}

var tagDirective = &Directive{
	Name:         "tag",
	Arguments:    []*Parameter{{Name: "name", Type: ir.NamedType(ir.String)}},
	Locations:    []string{"FIELD"},
	IsRepeatable: true,
}

var outputDirective = &Directive{
	Name:         "output",
	Arguments:    []*Parameter{{Name: "name", Type: ir.NamedType(ir.String)}},
	Locations:    []string{"FIELD"},
	IsRepeatable: true,
}

var optionalDirective = &Directive{
	Name:      "optional",
	Locations: []string{"FIELD"},
}

var recurseDirective = &Directive{
	Name:      "recurse",
	Arguments: []*Parameter{{Name: "depth", Type: nonNull(ir.Int)}},
	Locations: []string{"FIELD"},
}

var foldDirective = &Directive{
	Name:      "fold",
	Locations: []string{"FIELD"},
}

// builtinDirectives is the fixed set of query directives, in render order.
var builtinDirectives = []*Directive{
	filterDirective,
	tagDirective,
	outputDirective,
	optionalDirective,
	recurseDirective,
	foldDirective,
}

func lookupDirective(name string) *Directive {
	for _, d := range builtinDirectives {
		if d.Name == name {
			return d
		}
	}
	return nil
}
