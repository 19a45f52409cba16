// Package protoadapter serves queries over protobuf messages laid out by
// protoreg: a dataset message holds the starting vertices, vertex messages
// hold properties and edges, and interface messages wrap one implementation
// in a oneof.
package protoadapter

import (
	"context"
	"errors"
	"fmt"

	executor "github.com/hanpama/trellis/internal/executor"
	protoreg "github.com/hanpama/trellis/internal/protoreg"
	schema "github.com/hanpama/trellis/internal/schema"
	value "github.com/hanpama/trellis/internal/value"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ErrUntypedVertex reports an interface message whose oneof is unset.
var ErrUntypedVertex = errors.New("protoadapter: interface vertex has no type set")

// DecodeJSON reads a dataset message in protojson form.
func DecodeJSON(reg *protoreg.Registry, data []byte) (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(reg.Dataset())
	if err := protojson.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("protoadapter: %w", err)
	}
	return msg, nil
}

// DecodeBinary reads a dataset message in wire form.
func DecodeBinary(reg *protoreg.Registry, data []byte) (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(reg.Dataset())
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("protoadapter: %w", err)
	}
	return msg, nil
}

// Adapter resolves queries against one dataset message.
type Adapter struct {
	schema  *schema.Schema
	reg     *protoreg.Registry
	dataset protoreflect.Message
}

var _ executor.Adapter = (*Adapter)(nil)

// New serves dataset, which must be of the registry's dataset message type.
func New(s *schema.Schema, reg *protoreg.Registry, dataset proto.Message) (*Adapter, error) {
	m := dataset.ProtoReflect()
	if got, want := m.Descriptor().FullName(), reg.Dataset().FullName(); got != want {
		return nil, fmt.Errorf("protoadapter: dataset is a %s, want %s", got, want)
	}
	return &Adapter{schema: s, reg: reg, dataset: m}, nil
}

// typeOf returns the schema type of a vertex message.
func (a *Adapter) typeOf(m protoreflect.Message) string {
	name, _ := a.reg.TypeOf(m.Descriptor())
	return name
}

// vertex unwraps interface messages down to the implementation they hold.
func (a *Adapter) vertex(m protoreflect.Message) (protoreflect.Message, error) {
	t := a.schema.Type(a.typeOf(m))
	if t == nil || t.Kind != schema.TypeKindInterface {
		return m, nil
	}
	oneofs := m.Descriptor().Oneofs()
	if oneofs.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUntypedVertex, t.Name)
	}
	fd := m.WhichOneof(oneofs.Get(0))
	if fd == nil {
		return nil, fmt.Errorf("%w: %s", ErrUntypedVertex, t.Name)
	}
	return m.Get(fd).Message(), nil
}

// neighbors streams the vertices held by field fd of m.
func (a *Adapter) neighbors(ctx context.Context, m protoreflect.Message, fd protoreflect.FieldDescriptor) executor.VertexIterator {
	return func(yield func(executor.Vertex) bool) {
		emit := func(raw protoreflect.Message) bool {
			v, err := a.vertex(raw)
			if err != nil {
				executor.ReportError(ctx, err)
				return false
			}
			return yield(v)
		}
		if fd.IsList() {
			list := m.Get(fd).List()
			for i := 0; i < list.Len(); i++ {
				if !emit(list.Get(i).Message()) {
					return
				}
			}
			return
		}
		if m.Has(fd) {
			emit(m.Get(fd).Message())
		}
	}
}

func (a *Adapter) ResolveStartingVertices(ctx context.Context, edge string, params executor.Parameters) executor.VertexIterator {
	fd := a.reg.Field(a.schema.QueryType().Name, edge)
	if fd == nil {
		executor.ReportError(ctx, fmt.Errorf("protoadapter: unknown starting edge %q", edge))
		return executor.Vertices[executor.Vertex]()
	}
	return a.neighbors(ctx, a.dataset, fd)
}

func (a *Adapter) ResolveProperty(ctx context.Context, contexts executor.ContextIterator, typeName, property string) executor.PropertyIterator {
	return func(yield func(*executor.DataContext, value.Value) bool) {
		for dc := range contexts {
			v := value.Null()
			if m, ok := dc.ActiveVertex().(protoreflect.Message); ok {
				var err error
				if v, err = a.property(m, property); err != nil {
					executor.ReportError(ctx, err)
					return
				}
			}
			if !yield(dc, v) {
				return
			}
		}
	}
}

func (a *Adapter) property(m protoreflect.Message, property string) (value.Value, error) {
	typeName := a.typeOf(m)
	if property == schema.TypenameField {
		return value.String(typeName), nil
	}
	fd := a.reg.Field(typeName, property)
	if fd == nil {
		return value.Value{}, fmt.Errorf("protoadapter: unknown property %s.%s", typeName, property)
	}
	if fd.IsList() {
		list := m.Get(fd).List()
		elems := make([]value.Value, list.Len())
		for i := range elems {
			elems[i] = scalar(fd.Kind(), list.Get(i))
		}
		return value.NewList(elems)
	}
	if fd.HasPresence() && !m.Has(fd) {
		return value.Null(), nil
	}
	return scalar(fd.Kind(), m.Get(fd)), nil
}

func scalar(kind protoreflect.Kind, v protoreflect.Value) value.Value {
	switch kind {
	case protoreflect.Int64Kind:
		return value.Int(v.Int())
	case protoreflect.DoubleKind:
		return value.Float(v.Float())
	case protoreflect.StringKind:
		return value.String(v.String())
	case protoreflect.BoolKind:
		return value.Bool(v.Bool())
	}
	return value.Null()
}

func (a *Adapter) ResolveNeighbors(ctx context.Context, contexts executor.ContextIterator, typeName, edge string, params executor.Parameters) executor.NeighborIterator {
	return executor.ResolveNeighborsWith(contexts, func(v executor.Vertex) executor.VertexIterator {
		m := v.(protoreflect.Message)
		fd := a.reg.Field(a.typeOf(m), edge)
		if fd == nil {
			executor.ReportError(ctx, fmt.Errorf("protoadapter: unknown edge %s.%s", a.typeOf(m), edge))
			return executor.Vertices[executor.Vertex]()
		}
		return a.neighbors(ctx, m, fd)
	})
}

func (a *Adapter) ResolveCoercion(ctx context.Context, contexts executor.ContextIterator, typeName, coerceTo string) executor.CoercionIterator {
	return executor.ResolveCoercionWith(contexts, func(v executor.Vertex) bool {
		return a.schema.IsSubtype(a.typeOf(v.(protoreflect.Message)), coerceTo)
	})
}
