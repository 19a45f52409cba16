package schema

import (
	"fmt"
	"strconv"

	ir "github.com/hanpama/trellis/internal/ir"
	language "github.com/hanpama/trellis/internal/language"
	value "github.com/hanpama/trellis/internal/value"
)

// LiteralValue converts a constant literal into the value domain and checks
// it against t. Variables, enums and objects are rejected.
func LiteralValue(v *language.Value, t *ir.TypeRef) (value.Value, error) {
	raw, err := literal(v)
	if err != nil {
		return value.Value{}, err
	}
	return ir.Coerce(raw, t)
}

func literal(v *language.Value) (value.Value, error) {
	switch v.Kind {
	case language.NullValue:
		return value.Null(), nil
	case language.BooleanValue:
		return value.Bool(v.Raw == "true"), nil
	case language.IntValue:
		i, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("integer %s does not fit in 64 bits", v.Raw)
		}
		return value.Int(i), nil
	case language.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid float %s", v.Raw)
		}
		return value.Float(f), nil
	case language.StringValue, language.BlockValue:
		return value.String(v.Raw), nil
	case language.ListValue:
		elems := make([]value.Value, 0, len(v.Children))
		for _, c := range v.Children {
			e, err := literal(c.Value)
			if err != nil {
				return value.Value{}, err
			}
			elems = append(elems, e)
		}
		return value.NewList(elems)
	case language.Variable:
		return value.Value{}, fmt.Errorf("variable $%s is not allowed here", v.Raw)
	case language.EnumValue:
		return value.Value{}, fmt.Errorf("enum value %s is not supported", v.Raw)
	case language.ObjectValue:
		return value.Value{}, fmt.Errorf("object values are not supported")
	}
	return value.Value{}, fmt.Errorf("unsupported literal")
}
