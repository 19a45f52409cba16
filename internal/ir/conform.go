package ir

import (
	"fmt"

	value "github.com/hanpama/trellis/internal/value"
)

// Coerce checks v against t and returns it in canonical form. Int values are
// widened where Float is expected; nothing else converts implicitly.
func Coerce(v value.Value, t *TypeRef) (value.Value, error) {
	if v.IsNull() {
		if t.IsNonNull() {
			return value.Value{}, fmt.Errorf("null is not allowed for non-null type %s", t)
		}
		return v, nil
	}
	inner := t.Nullable()
	if inner.Kind == TypeRefKindList {
		elems, ok := v.AsList()
		if !ok {
			return value.Value{}, fmt.Errorf("expected a list of type %s, got %s", t, v.Kind())
		}
		for i, e := range elems {
			ce, err := Coerce(e, inner.OfType)
			if err != nil {
				return value.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ce
		}
		return value.NewList(elems)
	}
	switch inner.Named {
	case Int:
		if v.Kind() == value.IntKind {
			return v, nil
		}
	case Float:
		if f, ok := v.AsFloat(); ok {
			return value.Float(f), nil
		}
	case String, ID:
		if v.Kind() == value.StringKind {
			return v, nil
		}
	case Boolean:
		if v.Kind() == value.BooleanKind {
			return v, nil
		}
	default:
		return value.Value{}, fmt.Errorf("type %s cannot hold values", inner.Named)
	}
	return value.Value{}, fmt.Errorf("expected a value of type %s, got %s", t, v.Kind())
}

// Conforms reports whether v already has exactly the shape t describes.
func Conforms(v value.Value, t *TypeRef) bool {
	if v.IsNull() {
		return !t.IsNonNull()
	}
	inner := t.Nullable()
	if inner.Kind == TypeRefKindList {
		if !v.IsList() {
			return false
		}
		for i := 0; i < v.Len(); i++ {
			if !Conforms(v.Index(i), inner.OfType) {
				return false
			}
		}
		return true
	}
	switch inner.Named {
	case Int:
		return v.Kind() == value.IntKind
	case Float:
		return v.Kind() == value.FloatKind
	case String, ID:
		return v.Kind() == value.StringKind
	case Boolean:
		return v.Kind() == value.BooleanKind
	}
	return false
}
