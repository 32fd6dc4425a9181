package fieldval

// Untag converts a tagged field map back into its ergonomic raw form.
//
// Int values stay int64. BigInt values stay decimal strings: the round trip
// Untag(Tag(x)) == x holds whenever every integer in x fits int64; beyond
// that the round trip yields the string form, which callers must tolerate.
func Untag(m *Map) map[string]any {
	raw := make(map[string]any, m.Len())
	if m == nil {
		return raw
	}
	for _, name := range m.keys {
		raw[name] = untagValue(m.vals[name])
	}
	return raw
}

func untagValue(v Value) any {
	switch val := v.(type) {
	case Text:
		return string(val)
	case Int:
		return int64(val)
	case BigInt:
		return string(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Relation:
		return map[string]any{"document": val.Document}
	case RelationList:
		list := make([]any, len(val))
		for i, rel := range val {
			list[i] = map[string]any{"document": rel.Document}
		}
		return list
	default:
		// Unreachable: Value is sealed.
		return nil
	}
}
