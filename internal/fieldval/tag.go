package fieldval

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
)

// UnsupportedTypeError reports a raw field value whose wire type cannot be
// inferred (for example a channel, or a relation object missing its
// "document" member).
type UnsupportedTypeError struct {
	Field string
	Value any
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("field %q: cannot infer wire type for %T", e.Field, e.Value)
}

// Tag converts an ergonomic raw field map into the wire's explicitly-typed
// representation, inferring a wire type from each value's runtime type:
//
//	string                        -> text
//	bool                          -> bool
//	int*/uint*, integral number   -> int (BigInt beyond int64)
//	non-integral float            -> float
//	map with "document" member    -> relation
//	slice of relation shapes      -> relation list
//	fieldval.Value                -> used as-is
//
// Nil values are skipped entirely: absent, not a typed null. Fields are
// ordered by name so the same raw map always tags to the same Map.
func Tag(raw map[string]any) (*Map, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	m := NewMap()
	for _, name := range names {
		v := raw[name]
		if v == nil {
			continue
		}
		tagged, err := tagValue(name, v)
		if err != nil {
			return nil, err
		}
		m.Set(name, tagged)
	}
	return m, nil
}

func tagValue(field string, v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case string:
		return Text(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return uintValue(uint64(val)), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return uintValue(val), nil
	case float32:
		return floatValue(float64(val)), nil
	case float64:
		return floatValue(val), nil
	case json.Number:
		return numberValue(field, val)
	case *big.Int:
		if val.IsInt64() {
			return Int(val.Int64()), nil
		}
		return BigInt(val.String()), nil
	case map[string]any:
		return relationValue(field, val)
	case []any:
		list := make(RelationList, 0, len(val))
		for i, elem := range val {
			rel, err := relationElem(fmt.Sprintf("%s[%d]", field, i), elem)
			if err != nil {
				return nil, err
			}
			list = append(list, rel)
		}
		return list, nil
	case []string:
		list := make(RelationList, 0, len(val))
		for _, id := range val {
			list = append(list, Relation{Document: id})
		}
		return list, nil
	default:
		return nil, &UnsupportedTypeError{Field: field, Value: v}
	}
}

// floatValue mirrors the wire's number inference: an integer-valued number
// tags as int, anything else as float.
func floatValue(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int64(f))
	}
	return Float(f)
}

func uintValue(u uint64) Value {
	if u <= math.MaxInt64 {
		return Int(int64(u))
	}
	return BigInt(strconv.FormatUint(u, 10))
}

func numberValue(field string, n json.Number) (Value, error) {
	v, err := FromJSONNumber(n)
	if err != nil {
		return nil, &UnsupportedTypeError{Field: field, Value: n}
	}
	return v, nil
}

// FromJSONNumber tags a json.Number: int64 when it fits, decimal string
// beyond that, float for non-integral values.
func FromJSONNumber(n json.Number) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	// Integral but beyond int64 keeps its decimal form.
	if z, ok := new(big.Int).SetString(n.String(), 10); ok {
		return BigInt(z.String()), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("not a JSON number: %q", n.String())
	}
	return Float(f), nil
}

func relationValue(field string, obj map[string]any) (Value, error) {
	doc, ok := obj["document"]
	if !ok {
		return nil, &UnsupportedTypeError{Field: field, Value: obj}
	}
	id, ok := doc.(string)
	if !ok {
		return nil, &UnsupportedTypeError{Field: field, Value: obj}
	}
	return Relation{Document: id}, nil
}

func relationElem(field string, v any) (Relation, error) {
	switch val := v.(type) {
	case string:
		return Relation{Document: val}, nil
	case Relation:
		return val, nil
	case map[string]any:
		rel, err := relationValue(field, val)
		if err != nil {
			return Relation{}, err
		}
		return rel.(Relation), nil
	default:
		return Relation{}, &UnsupportedTypeError{Field: field, Value: v}
	}
}
