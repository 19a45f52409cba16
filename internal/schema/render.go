package schema

import (
	"sort"
	"strconv"
	"strings"

	ir "github.com/hanpama/trellis/internal/ir"
	value "github.com/hanpama/trellis/internal/value"
)

// Render produces SDL from the Schema.
// Deterministic ordering: directives in their fixed order, then the root
// query type, then the remaining types sorted by name.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	for _, d := range s.directives {
		renderDirective(&b, d)
	}

	if s.queryType != "Query" {
		b.WriteString("schema {\n  query: ")
		b.WriteString(s.queryType)
		b.WriteString("\n}\n\n")
	}

	typeNames := make([]string, 0, len(s.order))
	for _, name := range s.order {
		if name != s.queryType {
			typeNames = append(typeNames, name)
		}
	}
	sort.Strings(typeNames)
	typeNames = append([]string{s.queryType}, typeNames...)

	for _, name := range typeNames {
		renderType(&b, s.types[name])
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// ----- render helpers -----

func renderDescription(b *strings.Builder, indent, desc string) {
	if desc == "" {
		return
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
	for _, line := range strings.Split(strings.ReplaceAll(desc, `"""`, `\"""`), "\n") {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(indent)
	b.WriteString("\"\"\"\n")
}

func renderType(b *strings.Builder, typ *Type) {
	renderDescription(b, "", typ.Description)
	if typ.Kind == TypeKindInterface {
		b.WriteString("interface ")
	} else {
		b.WriteString("type ")
	}
	b.WriteString(typ.Name)
	if len(typ.Interfaces) > 0 {
		b.WriteString(" implements ")
		b.WriteString(strings.Join(typ.Interfaces, " & "))
	}
	b.WriteString(" {\n")
	for _, field := range typ.Fields {
		renderField(b, field)
	}
	b.WriteString("}\n\n")
}

func renderField(b *strings.Builder, field *Field) {
	renderDescription(b, "  ", field.Description)
	b.WriteString("  ")
	b.WriteString(field.Name)
	renderParameters(b, field.Parameters)
	b.WriteString(": ")
	b.WriteString(renderTypeRef(field.Type))
	b.WriteString("\n")
}

func renderParameters(b *strings.Builder, params []*Parameter) {
	if len(params) == 0 {
		return
	}
	b.WriteString("(")
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		b.WriteString(": ")
		b.WriteString(renderTypeRef(p.Type))
		if p.Default != nil {
			b.WriteString(" = ")
			b.WriteString(renderValue(*p.Default))
		}
	}
	b.WriteString(")")
}

func renderDirective(b *strings.Builder, directive *Directive) {
	b.WriteString("directive @")
	b.WriteString(directive.Name)
	renderParameters(b, directive.Arguments)
	if directive.IsRepeatable {
		b.WriteString(" repeatable")
	}
	b.WriteString(" on ")
	b.WriteString(strings.Join(directive.Locations, " | "))
	b.WriteString("\n\n")
}

func renderTypeRef(typeRef *ir.TypeRef) string {
	if typeRef == nil {
		return ""
	}
	return typeRef.String()
}

// renderValue renders a default value as a GraphQL literal.
func renderValue(v value.Value) string {
	switch v.Kind() {
	case value.FloatKind:
		f, _ := v.AsFloat()
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s
	case value.ListKind:
		elems, _ := v.AsList()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = renderValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return v.String()
}
