package protoreg

import (
	"fmt"
	"path"
	"strings"

	schema "github.com/hanpama/trellis/internal/schema"
	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Build describes the vertices of s as protobuf messages in package pkg.
//
// Every object and interface type becomes a message named <Type>Vertex. An
// object message holds one field per property and edge; an interface message
// holds a oneof over the object types implementing it. The query type becomes
// the dataset message, holding the vertices of every starting edge.
func Build(s *schema.Schema, pkg string) (*Registry, error) {
	b := &builder{
		schema:   s,
		messages: make(map[string]*protobuilder.MessageBuilder),
		types:    make(map[protoreflect.Name]string),
		fields:   make(map[[2]protoreflect.Name]string),
	}

	base := strings.TrimSuffix(path.Base(s.Name()), path.Ext(s.Name()))
	if base == "" || base == "." {
		base = "schema"
	}
	b.file = protobuilder.NewFile(path.Join(strings.ReplaceAll(pkg, ".", "/"), base+".proto"))
	b.file.SetPackageName(protoreflect.FullName(pkg))
	b.file.SetSyntax(protoreflect.Proto3)

	root := s.QueryType()

	// Pass 1: declare a message per vertex type so fields can refer to any
	// of them regardless of declaration order.
	b.addMessage(root.Name, nameProtoDataset(root.Name), root.Description)
	for _, t := range s.Types() {
		if t == root || !t.IsVertexType() {
			continue
		}
		b.addMessage(t.Name, nameProtoVertex(t.Name), t.Description)
	}

	// Pass 2: fields.
	for _, t := range s.Types() {
		switch {
		case t == root:
			b.addDatasetFields(t)
		case t.Kind == schema.TypeKindObject:
			b.addObjectFields(t)
		case t.Kind == schema.TypeKindInterface:
			b.addInterfaceFields(t)
		}
	}

	fd, err := b.file.Build()
	if err != nil {
		return nil, fmt.Errorf("protoreg: %w", err)
	}

	reg := &Registry{
		file:     fd,
		messages: make(map[string]protoreflect.MessageDescriptor),
		fields:   make(map[[2]string]protoreflect.FieldDescriptor),
		types:    make(map[protoreflect.FullName]string),
		root:     root.Name,
	}
	msgs := fd.Messages()
	for i := 0; i < msgs.Len(); i++ {
		md := msgs.Get(i)
		typeName, ok := b.types[md.Name()]
		if !ok {
			continue
		}
		reg.messages[typeName] = md
		reg.types[md.FullName()] = typeName
		fields := md.Fields()
		for j := 0; j < fields.Len(); j++ {
			f := fields.Get(j)
			if name, ok := b.fields[[2]protoreflect.Name{md.Name(), f.Name()}]; ok {
				reg.fields[[2]string{typeName, name}] = f
			}
		}
	}
	return reg, nil
}

type builder struct {
	schema *schema.Schema
	file   *protobuilder.FileBuilder

	messages map[string]*protobuilder.MessageBuilder
	// message name -> schema type name
	types map[protoreflect.Name]string
	// (message, proto field) -> schema field name
	fields map[[2]protoreflect.Name]string
}

func (b *builder) addMessage(typeName string, name protoreflect.Name, desc string) {
	mb := protobuilder.NewMessage(name)
	mb.SetComments(comment(desc))
	b.messages[typeName] = mb
	b.types[name] = typeName
	b.file.AddMessage(mb)
}

func (b *builder) addDatasetFields(root *schema.Type) {
	mb := b.messages[root.Name]
	fieldBuilders := make([]*protobuilder.FieldBuilder, 0, len(root.Fields))
	for _, f := range root.Fields {
		fb := protobuilder.NewField(nameProtoField(f.Name), protobuilder.FieldTypeMessage(b.messages[f.Type.NamedType()]))
		fb.SetComments(comment(f.Description))
		fb.SetRepeated()
		b.addField(mb, fb, f.Name)
		fieldBuilders = append(fieldBuilders, fb)
	}
	numberFields(fieldBuilders)
}

func (b *builder) addObjectFields(t *schema.Type) {
	mb := b.messages[t.Name]
	fieldBuilders := make([]*protobuilder.FieldBuilder, 0, len(t.Fields))
	for _, f := range t.Fields {
		rt := b.resolveTypeRef(f)
		fb := protobuilder.NewField(nameProtoField(f.Name), rt.fieldType)
		fb.SetComments(comment(f.Description))
		if rt.isOptional {
			fb.SetProto3Optional(true)
		}
		if rt.isRepeated {
			fb.SetRepeated()
		}
		b.addField(mb, fb, f.Name)
		fieldBuilders = append(fieldBuilders, fb)
	}
	numberFields(fieldBuilders)
}

func (b *builder) addInterfaceFields(t *schema.Type) {
	var impls []string
	for _, name := range b.schema.Subtypes(t.Name) {
		if b.schema.Type(name).Kind == schema.TypeKindObject {
			impls = append(impls, name)
		}
	}
	if len(impls) == 0 {
		return
	}

	mb := b.messages[t.Name]
	oneOfBuilder := protobuilder.NewOneof(protoreflect.Name("value"))
	mb.AddOneOf(oneOfBuilder)

	fieldBuilders := make([]*protobuilder.FieldBuilder, 0, len(impls))
	for _, impl := range impls {
		fb := protobuilder.NewField(nameProtoField(impl), protobuilder.FieldTypeMessage(b.messages[impl]))
		oneOfBuilder.AddChoice(fb)
		b.fields[[2]protoreflect.Name{mb.Name(), fb.Name()}] = impl
		fieldBuilders = append(fieldBuilders, fb)
	}
	numberFields(fieldBuilders)
}

func (b *builder) addField(mb *protobuilder.MessageBuilder, fb *protobuilder.FieldBuilder, fieldName string) {
	mb.AddField(fb)
	b.fields[[2]protoreflect.Name{mb.Name(), fb.Name()}] = fieldName
}
