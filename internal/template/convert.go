package template

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// FromGo converts a YAML-shaped Go value tree into its cty equivalent.
// gocty.ImpliedType cannot handle heterogeneous map[string]any trees, so
// the walk is done by hand. Unknown types are an error rather than a guess.
func FromGo(v any) (cty.Value, error) {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return val, nil
	case bool:
		return cty.BoolVal(val), nil
	case string:
		return cty.StringVal(val), nil
	case int:
		return cty.NumberIntVal(int64(val)), nil
	case int8:
		return cty.NumberIntVal(int64(val)), nil
	case int16:
		return cty.NumberIntVal(int64(val)), nil
	case int32:
		return cty.NumberIntVal(int64(val)), nil
	case int64:
		return cty.NumberIntVal(val), nil
	case uint:
		return cty.NumberUIntVal(uint64(val)), nil
	case uint8:
		return cty.NumberUIntVal(uint64(val)), nil
	case uint16:
		return cty.NumberUIntVal(uint64(val)), nil
	case uint32:
		return cty.NumberUIntVal(uint64(val)), nil
	case uint64:
		return cty.NumberUIntVal(val), nil
	case float32:
		return cty.NumberFloatVal(float64(val)), nil
	case float64:
		return cty.NumberFloatVal(val), nil
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(val))
		for k, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %q: %w", k, err)
			}
			attrs[k] = converted
		}
		return cty.ObjectVal(attrs), nil
	case map[any]any:
		attrs := make(map[string]cty.Value, len(val))
		for k, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("key %v: %w", k, err)
			}
			attrs[fmt.Sprintf("%v", k)] = converted
		}
		if len(attrs) == 0 {
			return cty.EmptyObjectVal, nil
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		if len(val) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(val))
		for i, elem := range val {
			converted, err := FromGo(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("index %d: %w", i, err)
			}
			elems[i] = converted
		}
		return cty.TupleVal(elems), nil
	default:
		return cty.NilVal, fmt.Errorf("cannot convert %T to a template value", v)
	}
}

// ToGo converts a cty value back into the plain Go tree shape produced by
// YAML decoding: strings, bools, int64/float64, map[string]any and []any.
func ToGo(v cty.Value) any {
	if v.IsNull() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Bool:
		return v.True()
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
		f, _ := bf.Float64()
		return f
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, elem := it.Element()
			out[k.AsString()] = ToGo(elem)
		}
		return out
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			out = append(out, ToGo(elem))
		}
		return out
	default:
		return nil
	}
}
