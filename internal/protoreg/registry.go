package protoreg

import (
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Registry maps schema types and fields onto the descriptors built for them.
type Registry struct {
	file     protoreflect.FileDescriptor
	messages map[string]protoreflect.MessageDescriptor
	fields   map[[2]string]protoreflect.FieldDescriptor
	types    map[protoreflect.FullName]string
	root     string
}

// File returns the file descriptor holding every message.
func (r *Registry) File() protoreflect.FileDescriptor { return r.file }

// Dataset returns the message describing the vertices of every starting edge.
func (r *Registry) Dataset() protoreflect.MessageDescriptor { return r.messages[r.root] }

// Message returns the message of a vertex type, or nil.
func (r *Registry) Message(typeName string) protoreflect.MessageDescriptor {
	return r.messages[typeName]
}

// Field returns the proto field of a schema field, or nil. For interface
// types the field name is the name of an implementing object type, selecting
// its oneof choice.
func (r *Registry) Field(typeName, field string) protoreflect.FieldDescriptor {
	return r.fields[[2]string{typeName, field}]
}

// TypeOf returns the schema type a message was built for.
func (r *Registry) TypeOf(md protoreflect.MessageDescriptor) (string, bool) {
	name, ok := r.types[md.FullName()]
	return name, ok
}
