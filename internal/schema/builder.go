package schema

import (
	"fmt"
	"strings"

	ir "github.com/hanpama/trellis/internal/ir"
	language "github.com/hanpama/trellis/internal/language"
)

type builder struct {
	doc        *language.SchemaDocument
	schema     *Schema
	nodes      map[string]*language.Definition
	violations []*ir.Violation
}

// Build parses and validates schema text. On failure it returns an
// ir.SchemaError holding every violation found by the first failing phase.
func Build(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		msg, pos := language.ErrorPosition(err)
		return nil, ir.SchemaError{ir.ViolationAt(msg, pos)}
	}
	return BuildDocument(name, doc)
}

// BuildDocument validates an already parsed schema document.
func BuildDocument(name string, doc *language.SchemaDocument) (*Schema, error) {
	b := &builder{
		doc: doc,
		schema: &Schema{
			name:       name,
			types:      make(map[string]*Type),
			supertypes: make(map[string]map[string]struct{}),
		},
		nodes: make(map[string]*language.Definition),
	}
	if err := b.build(); err != nil {
		return nil, err
	}
	return b.schema, nil
}

func (b *builder) build() (err error) {
	for _, t := range builtinScalars {
		b.schema.types[t.Name] = t
	}

	// Object and interface definitions
	if err = b.populateDefinitions(); err != nil {
		return err
	}

	// Root query type
	if err = b.processSchemaDefinitions(); err != nil {
		return err
	}

	if err = b.populateDirectiveDefinitions(); err != nil {
		return err
	}

	// Fields, edge parameters and defaults
	if err = b.populateFields(); err != nil {
		return err
	}

	// Interface implementations and the subtype relation
	if err = b.populateImplementations(); err != nil {
		return err
	}

	return nil
}

func (b *builder) addViolation(v ...*ir.Violation) {
	b.violations = append(b.violations, v...)
}

func (b *builder) checkpoint() error {
	if len(b.violations) > 0 {
		return ir.SchemaError(b.violations)
	}
	return nil
}

func isReserved(name string) bool { return strings.HasPrefix(name, "__") }

func (b *builder) populateDefinitions() error {
	for _, def := range b.doc.Definitions {
		if isReserved(def.Name) {
			b.addViolation(violationReservedName("Type", def.Name, def.Position))
			continue
		}
		var kind TypeKind
		switch def.Kind {
		case language.Object:
			kind = TypeKindObject
		case language.Interface:
			kind = TypeKindInterface
		default:
			if ir.IsScalar(def.Name) {
				b.addViolation(violationBuiltinRedefined(def.Name, def.Position))
			} else {
				b.addViolation(violationUnsupportedDefinition(def.Kind, def.Name, def.Position))
			}
			continue
		}
		if existing, ok := b.schema.types[def.Name]; ok {
			if existing.Kind == TypeKindScalar {
				b.addViolation(violationBuiltinRedefined(def.Name, def.Position))
			} else {
				b.addViolation(violationDuplicateType(def.Name, def.Position))
			}
			continue
		}
		for _, d := range def.Directives {
			b.addViolation(violationDirectiveNotPermitted(d.Name, fmt.Sprintf("type %q", def.Name), d.Position))
		}
		if len(def.Fields) == 0 {
			b.addViolation(violationTypeMustHaveField(def.Name, def.Position))
		}
		t := &Type{
			Name:        def.Name,
			Kind:        kind,
			Description: def.Description,
			Interfaces:  append([]string(nil), def.Interfaces...),
			Position:    def.Position,
			fields:      make(map[string]*Field),
		}
		b.schema.types[def.Name] = t
		b.schema.order = append(b.schema.order, def.Name)
		b.nodes[def.Name] = def
	}
	for _, ext := range b.doc.Extensions {
		b.addViolation(violationExtensionNotSupported(ext.Name, ext.Position))
	}
	return b.checkpoint()
}

func (b *builder) processSchemaDefinitions() error {
	var rootPos *language.Position
	for _, sd := range b.doc.Schema {
		for _, d := range sd.Directives {
			b.addViolation(violationDirectiveNotPermitted(d.Name, "the schema definition", d.Position))
		}
		for _, op := range sd.OperationTypes {
			if op.Operation != language.Query {
				b.addViolation(violationUnsupportedOperation(op.Operation, op.Position))
				continue
			}
			if b.schema.queryType != "" {
				b.addViolation(violationDuplicateRootOperation(op.Operation, op.Position))
				continue
			}
			b.schema.queryType = op.Type
			rootPos = op.Position
		}
	}
	for _, ext := range b.doc.SchemaExtension {
		b.addViolation(violationExtensionNotSupported("schema", ext.Position))
	}

	if b.schema.queryType == "" {
		if _, ok := b.nodes["Query"]; ok {
			b.schema.queryType = "Query"
		} else {
			b.addViolation(violationMissingRootType())
			return b.checkpoint()
		}
	}
	root, ok := b.nodes[b.schema.queryType]
	switch {
	case !ok:
		b.addViolation(violationRootTypeNotFound(b.schema.queryType, rootPos))
	case root.Kind != language.Object:
		b.addViolation(violationRootNotObject(root.Name, root.Position))
	}
	return b.checkpoint()
}

func (b *builder) populateDirectiveDefinitions() error {
	seen := make(map[string]bool)
	for _, def := range b.doc.Directives {
		known := lookupDirective(def.Name)
		if known == nil {
			b.addViolation(violationUnsupportedDirectiveDefinition(def.Name, def.Position))
			continue
		}
		if seen[def.Name] {
			b.addViolation(violationDuplicateDirectiveDefinition(def.Name, def.Position))
			continue
		}
		seen[def.Name] = true
		if len(def.Arguments) != len(known.Arguments) {
			b.addViolation(violationDirectiveDefinitionMismatch(def.Name,
				fmt.Sprintf("expected %d arguments, got %d", len(known.Arguments), len(def.Arguments)), def.Position))
			continue
		}
		for _, arg := range def.Arguments {
			var want *Parameter
			for _, p := range known.Arguments {
				if p.Name == arg.Name {
					want = p
				}
			}
			if want == nil {
				b.addViolation(violationDirectiveDefinitionMismatch(def.Name,
					fmt.Sprintf("unknown argument %q", arg.Name), arg.Position))
				continue
			}
			if got := ir.TypeFromAST(arg.Type); !got.Equal(want.Type) {
				b.addViolation(violationDirectiveDefinitionMismatch(def.Name,
					fmt.Sprintf("argument %q must have type %s, got %s", arg.Name, want.Type, got), arg.Position))
			}
		}
	}
	b.schema.directives = builtinDirectives
	return b.checkpoint()
}

func (b *builder) populateFields() error {
	root := b.schema.queryType
	for _, name := range b.schema.order {
		t := b.schema.types[name]
		def := b.nodes[name]
		for _, fd := range def.Fields {
			if f := b.buildField(t, fd); f != nil {
				if f.Kind == FieldKindProperty && name == root {
					b.addViolation(violationPropertyOnRoot(f.Name, root, fd.Position))
				}
				t.Fields = append(t.Fields, f)
				t.fields[f.Name] = f
			}
		}
	}
	return b.checkpoint()
}

func (b *builder) buildField(t *Type, fd *language.FieldDefinition) *Field {
	if isReserved(fd.Name) {
		b.addViolation(violationReservedName("Field", fd.Name, fd.Position))
		return nil
	}
	if _, dup := t.fields[fd.Name]; dup {
		b.addViolation(violationDuplicateField(fd.Name, t.Name, fd.Position))
		return nil
	}
	for _, d := range fd.Directives {
		b.addViolation(violationDirectiveNotPermitted(d.Name, fmt.Sprintf("field %s.%s", t.Name, fd.Name), d.Position))
	}

	ft := ir.TypeFromAST(fd.Type)
	target, ok := b.schema.types[ft.NamedType()]
	if !ok {
		b.addViolation(violationUnknownType(ft.NamedType(), fmt.Sprintf("field %s.%s", t.Name, fd.Name), fd.Position))
		return nil
	}

	f := &Field{
		Name:        fd.Name,
		Description: fd.Description,
		Type:        ft,
		Position:    fd.Position,
	}
	if target.Kind == TypeKindScalar {
		f.Kind = FieldKindProperty
		if len(fd.Arguments) > 0 {
			b.addViolation(violationPropertyWithParameters(fd.Name, t.Name, fd.Position))
		}
		if ft.ListDepth() > 1 {
			b.addViolation(violationNestedListProperty(fd.Name, t.Name, ft, fd.Position))
		}
		return f
	}

	f.Kind = FieldKindEdge
	if target.Name == b.schema.queryType {
		b.addViolation(violationEdgeToRoot(fd.Name, t.Name, target.Name, fd.Position))
	}
	if ft.ListDepth() > 1 {
		b.addViolation(violationNestedListEdge(fd.Name, t.Name, ft, fd.Position))
	}
	for _, ad := range fd.Arguments {
		if p := b.buildParameter(t, fd, ad, f); p != nil {
			f.Parameters = append(f.Parameters, p)
		}
	}
	return f
}

func (b *builder) buildParameter(t *Type, fd *language.FieldDefinition, ad *language.ArgumentDefinition, f *Field) *Parameter {
	if isReserved(ad.Name) {
		b.addViolation(violationReservedName("Parameter", ad.Name, ad.Position))
		return nil
	}
	if f.Parameter(ad.Name) != nil {
		b.addViolation(violationDuplicateParameter(ad.Name, fd.Name, t.Name, ad.Position))
		return nil
	}
	for _, d := range ad.Directives {
		b.addViolation(violationDirectiveNotPermitted(d.Name, fmt.Sprintf("parameter %q of %s.%s", ad.Name, t.Name, fd.Name), d.Position))
	}
	pt := ir.TypeFromAST(ad.Type)
	named, ok := b.schema.types[pt.NamedType()]
	if !ok {
		b.addViolation(violationUnknownType(pt.NamedType(), fmt.Sprintf("parameter %q of %s.%s", ad.Name, t.Name, fd.Name), ad.Position))
		return nil
	}
	if named.Kind != TypeKindScalar || pt.ListDepth() > 1 {
		b.addViolation(violationParameterNotScalar(ad.Name, fd.Name, t.Name, pt, ad.Position))
		return nil
	}
	p := &Parameter{Name: ad.Name, Type: pt, Position: ad.Position}
	if ad.DefaultValue != nil {
		v, err := LiteralValue(ad.DefaultValue, pt)
		if err != nil {
			b.addViolation(violationInvalidDefault(ad.Name, fd.Name, t.Name, err, ad.DefaultValue.Position))
			return p
		}
		p.Default = &v
	}
	return p
}

func (b *builder) populateImplementations() error {
	// References first: every listed interface must exist and be an interface.
	for _, name := range b.schema.order {
		t := b.schema.types[name]
		seen := make(map[string]bool)
		valid := t.Interfaces[:0:0]
		for _, iname := range t.Interfaces {
			if seen[iname] {
				b.addViolation(violationDuplicateInterface(iname, name, t.Position))
				continue
			}
			seen[iname] = true
			it, ok := b.schema.types[iname]
			switch {
			case !ok:
				b.addViolation(violationUnknownType(iname, fmt.Sprintf("the implements list of %q", name), t.Position))
				continue
			case it.Kind != TypeKindInterface:
				b.addViolation(violationNotAnInterface(iname, name, t.Position))
				continue
			case iname == name:
				b.addViolation(violationSelfImplementation(name, t.Position))
				continue
			}
			valid = append(valid, iname)
		}
		t.Interfaces = valid
	}
	if err := b.checkpoint(); err != nil {
		return err
	}

	b.computeSupertypes()
	if err := b.checkpoint(); err != nil {
		return err
	}

	for _, name := range b.schema.order {
		t := b.schema.types[name]
		for _, iname := range t.Interfaces {
			it := b.schema.types[iname]
			b.validateImplementation(t, it)
			for _, transitive := range it.Interfaces {
				if !contains(t.Interfaces, transitive) {
					b.addViolation(violationMissingTransitiveInterface(name, iname, transitive, t.Position))
				}
			}
		}
	}
	return b.checkpoint()
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (b *builder) computeSupertypes() {
	for _, name := range b.schema.order {
		set := map[string]struct{}{name: {}}
		visiting := map[string]bool{}
		var visit func(n string)
		visit = func(n string) {
			if visiting[n] {
				return
			}
			visiting[n] = true
			for _, iname := range b.schema.types[n].Interfaces {
				if iname == name {
					b.addViolation(violationInterfaceCycle(name, b.schema.types[name].Position))
					continue
				}
				set[iname] = struct{}{}
				visit(iname)
			}
		}
		visit(name)
		b.schema.supertypes[name] = set
	}
	for _, t := range builtinScalars {
		b.schema.supertypes[t.Name] = map[string]struct{}{t.Name: {}}
	}
}

func (b *builder) validateImplementation(t, iface *Type) {
	for _, want := range iface.Fields {
		got := t.fields[want.Name]
		if got == nil {
			b.addViolation(violationMissingInterfaceField(want.Name, iface.Name, t.Name, t.Position))
			continue
		}
		if got.Kind != want.Kind {
			b.addViolation(violationFieldKindMismatch(want.Name, iface.Name, t.Name, got.Position))
			continue
		}
		namedOK := func(wide, narrow string) bool { return wide == narrow }
		if got.IsEdge() {
			namedOK = func(wide, narrow string) bool { return b.schema.IsSubtype(narrow, wide) }
		}
		if !narrowerOrEqual(want.Type, got.Type, namedOK) {
			b.addViolation(violationFieldWidened(want.Name, iface.Name, t.Name, want.Type, got.Type, got.Position))
		}
		for _, wp := range want.Parameters {
			gp := got.Parameter(wp.Name)
			if gp == nil {
				b.addViolation(violationMissingInterfaceParameter(wp.Name, want.Name, iface.Name, t.Name, got.Position))
				continue
			}
			if !gp.Type.Equal(wp.Type) {
				b.addViolation(violationParameterTypeMismatch(wp.Name, want.Name, iface.Name, t.Name, wp.Type, gp.Type, gp.Position))
			}
		}
		for _, gp := range got.Parameters {
			if want.Parameter(gp.Name) == nil && gp.IsRequired() {
				b.addViolation(violationExtraRequiredParameter(gp.Name, want.Name, iface.Name, t.Name, gp.Position))
			}
		}
	}
}

// narrowerOrEqual reports whether narrow may stand in for wide: the same list
// structure, non-null wherever wide is non-null, and named types accepted by
// namedOK.
func narrowerOrEqual(wide, narrow *ir.TypeRef, namedOK func(wide, narrow string) bool) bool {
	if wide.IsNonNull() && !narrow.IsNonNull() {
		return false
	}
	wide, narrow = wide.Nullable(), narrow.Nullable()
	if wide.Kind != narrow.Kind {
		return false
	}
	if wide.Kind == ir.TypeRefKindNamed {
		return namedOK(wide.Named, narrow.Named)
	}
	return narrowerOrEqual(wide.OfType, narrow.OfType, namedOK)
}
