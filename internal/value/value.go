package value

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which member of the value domain a Value holds.
type Kind uint8

const (
	NullKind Kind = iota
	BooleanKind
	IntKind
	FloatKind
	StringKind
	ListKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "Null"
	case BooleanKind:
		return "Boolean"
	case IntKind:
		return "Int"
	case FloatKind:
		return "Float"
	case StringKind:
		return "String"
	case ListKind:
		return "List"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is an immutable member of the value domain. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	l    []Value
}

// Row is one result row: output name to value.
type Row map[string]Value

func Null() Value            { return Value{} }
func Bool(b bool) Value      { return Value{kind: BooleanKind, b: b} }
func Int(i int64) Value      { return Value{kind: IntKind, i: i} }
func Float(f float64) Value  { return Value{kind: FloatKind, f: f} }
func String(s string) Value  { return Value{kind: StringKind, s: s} }
func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == NullKind }
func (v Value) IsList() bool { return v.kind == ListKind }

// List builds a list value. It panics when elements mix non-null kinds; use
// NewList for untrusted input.
func List(elems ...Value) Value {
	v, err := NewList(elems)
	if err != nil {
		panic(err)
	}
	return v
}

// NewList builds a list value, rejecting heterogeneous elements.
func NewList(elems []Value) (Value, error) {
	if _, err := elementKind(elems); err != nil {
		return Value{}, err
	}
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: ListKind, l: cp}, nil
}

// ErrHeterogeneousList is returned when a list mixes element types.
var ErrHeterogeneousList = errors.New("found elements of different (non-null) types in the same list")

func elementKind(elems []Value) (Kind, error) {
	kind := NullKind
	for _, e := range elems {
		if e.kind == NullKind {
			continue
		}
		if kind == NullKind {
			kind = e.kind
			continue
		}
		if e.kind != kind {
			return NullKind, ErrHeterogeneousList
		}
	}
	return kind, nil
}

// ElementKind reports the kind shared by the non-null elements of a list, or
// NullKind for empty and all-null lists.
func (v Value) ElementKind() Kind {
	k, _ := elementKind(v.l)
	return k
}

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == BooleanKind }
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == IntKind }
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == StringKind
}

// AsFloat returns numeric values as float64; integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case FloatKind:
		return v.f, true
	case IntKind:
		return float64(v.i), true
	}
	return 0, false
}

// AsList returns a copy of the list elements.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != ListKind {
		return nil, false
	}
	out := make([]Value, len(v.l))
	copy(out, v.l)
	return out, true
}

// Len returns the number of list elements, 0 for non-lists.
func (v Value) Len() int { return len(v.l) }

// Index returns the i-th list element.
func (v Value) Index(i int) Value { return v.l[i] }

// Equal reports structural equality. Int and Float never compare equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case NullKind:
		return true
	case BooleanKind:
		return v.b == o.b
	case IntKind:
		return v.i == o.i
	case FloatKind:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case StringKind:
		return v.s == o.s
	case ListKind:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two values. Numbers compare across Int and Float, strings
// bytewise. ok is false when either side is null or the kinds are not
// mutually orderable.
func Compare(a, b Value) (c int, ok bool) {
	switch {
	case a.kind == IntKind && b.kind == IntKind:
		switch {
		case a.i < b.i:
			return -1, true
		case a.i > b.i:
			return 1, true
		}
		return 0, true
	case isNumber(a) && isNumber(b):
		x, _ := a.AsFloat()
		y, _ := b.AsFloat()
		if math.IsNaN(x) || math.IsNaN(y) {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case a.kind == StringKind && b.kind == StringKind:
		return strings.Compare(a.s, b.s), true
	}
	return 0, false
}

func isNumber(v Value) bool { return v.kind == IntKind || v.kind == FloatKind }

func (v Value) String() string {
	switch v.kind {
	case NullKind:
		return "null"
	case BooleanKind:
		return strconv.FormatBool(v.b)
	case IntKind:
		return strconv.FormatInt(v.i, 10)
	case FloatKind:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case StringKind:
		return strconv.Quote(v.s)
	case ListKind:
		parts := make([]string, len(v.l))
		for i, e := range v.l {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "<invalid>"
}
