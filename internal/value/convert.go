package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// UnrepresentableError reports a host value outside the value domain.
type UnrepresentableError struct {
	Type string
}

func (e *UnrepresentableError) Error() string {
	return "value of type " + e.Type + " cannot be represented"
}

// FromGo converts a host value into the value domain.
func FromGo(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint:
		return fromUint(uint64(t))
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return Int(i), nil
		}
		f, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q", string(t))
		}
		return Float(f), nil
	case []Value:
		return NewList(t)
	case []any:
		return fromSlice(len(t), func(i int) any { return t[i] })
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Null(), nil
		}
		return fromSlice(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	}
	return Value{}, &UnrepresentableError{Type: fmt.Sprintf("%T", x)}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

func fromSlice(n int, at func(int) any) (Value, error) {
	elems := make([]Value, n)
	for i := 0; i < n; i++ {
		v, err := FromGo(at(i))
		if err != nil {
			return Value{}, err
		}
		elems[i] = v
	}
	if _, err := elementKind(elems); err != nil {
		return Value{}, err
	}
	return Value{kind: ListKind, l: elems}, nil
}

// MustFromGo is FromGo for values known to be representable.
func MustFromGo(x any) Value {
	v, err := FromGo(x)
	if err != nil {
		panic(err)
	}
	return v
}

// ToGo converts v into plain Go values: nil, bool, int64, float64, string, []any.
func (v Value) ToGo() any {
	switch v.kind {
	case BooleanKind:
		return v.b
	case IntKind:
		return v.i
	case FloatKind:
		return v.f
	case StringKind:
		return v.s
	case ListKind:
		out := make([]any, len(v.l))
		for i, e := range v.l {
			out[i] = e.ToGo()
		}
		return out
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case FloatKind:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(v.String())
		}
	case ListKind:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range v.l {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := e.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return json.Marshal(v.ToGo())
}

// UnmarshalJSON decodes JSON, keeping integral numbers as Int.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromGo(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// RowFromGo converts a map of host values into a Row.
func RowFromGo(m map[string]any) (Row, error) {
	row := make(Row, len(m))
	for k, x := range m {
		v, err := FromGo(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		row[k] = v
	}
	return row, nil
}

// ToGo converts the row into plain Go values.
func (r Row) ToGo() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.ToGo()
	}
	return out
}
