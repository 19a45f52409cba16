package ir

import (
	language "github.com/hanpama/trellis/internal/language"
)

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func NonNullType(t *TypeRef) *TypeRef {
	if t.IsNonNull() {
		return t
	}
	return &TypeRef{Kind: TypeRefKindNonNull, OfType: t}
}
func ListType(t *TypeRef) *TypeRef   { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// TypeFromAST converts a parsed type expression.
func TypeFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(TypeFromAST(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		ref = NonNullType(ref)
	}
	return ref
}

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

// IsList reports whether the type is (or is wrapped by) a list type.
func (t *TypeRef) IsList() bool {
	if t == nil {
		return false
	}
	return t.Nullable().Kind == TypeRefKindList
}

// Nullable strips an outer Non-Null wrapper.
func (t *TypeRef) Nullable() *TypeRef {
	if t.IsNonNull() {
		return t.OfType
	}
	return t
}

// Elem returns the element type of a (possibly Non-Null) list type, or nil.
func (t *TypeRef) Elem() *TypeRef {
	if !t.IsList() {
		return nil
	}
	return t.Nullable().OfType
}

// ListDepth counts nested list wrappers.
func (t *TypeRef) ListDepth() int {
	n := 0
	for cur := t; cur != nil; cur = cur.OfType {
		if cur.Kind == TypeRefKindList {
			n++
		}
	}
	return n
}

// NamedType returns the innermost named type.
func (t *TypeRef) NamedType() string {
	for cur := t; cur != nil; cur = cur.OfType {
		if cur.Kind == TypeRefKindNamed {
			return cur.Named
		}
	}
	return ""
}

func (t *TypeRef) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	}
	return t.Named
}

// Equal compares two type references structurally.
func (t *TypeRef) Equal(o *TypeRef) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Named != o.Named {
		return false
	}
	if t.Kind == TypeRefKindNamed {
		return true
	}
	return t.OfType.Equal(o.OfType)
}

// EqualIgnoringNullability compares the shape of two types, disregarding
// Non-Null wrappers at every level.
func EqualIgnoringNullability(a, b *TypeRef) bool {
	a, b = a.Nullable(), b.Nullable()
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == TypeRefKindNamed {
		return a.Named == b.Named
	}
	return EqualIgnoringNullability(a.OfType, b.OfType)
}

// Intersect returns the widest type that satisfies both a and b, or false
// when none exists.
func Intersect(a, b *TypeRef) (*TypeRef, bool) {
	nonNull := a.IsNonNull() || b.IsNonNull()
	a, b = a.Nullable(), b.Nullable()
	var out *TypeRef
	switch {
	case a.Kind == TypeRefKindNamed && b.Kind == TypeRefKindNamed:
		if a.Named != b.Named {
			return nil, false
		}
		out = NamedType(a.Named)
	case a.Kind == TypeRefKindList && b.Kind == TypeRefKindList:
		inner, ok := Intersect(a.OfType, b.OfType)
		if !ok {
			return nil, false
		}
		out = ListType(inner)
	default:
		return nil, false
	}
	if nonNull {
		out = NonNullType(out)
	}
	return out, true
}

// Built-in scalar names.
const (
	Int     = "Int"
	Float   = "Float"
	String  = "String"
	Boolean = "Boolean"
	ID      = "ID"
)

// IsScalar reports whether name is one of the built-in scalars.
func IsScalar(name string) bool {
	switch name {
	case Int, Float, String, Boolean, ID:
		return true
	}
	return false
}

// IsOrderable reports whether values of the type support <, <=, > and >=.
func IsOrderable(t *TypeRef) bool {
	if t.IsList() {
		return false
	}
	switch t.NamedType() {
	case Int, Float, String, ID:
		return true
	}
	return false
}
