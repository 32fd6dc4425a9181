package fieldval

// Value is a sealed interface over the wire field types.
// Only Text, Int, BigInt, Float, Bool, Relation, and RelationList implement it.
// BigInt carries integers that do not fit int64 as decimal strings, so no
// precision is lost between the wire and the caller.
type Value interface {
	fieldValue() // Sealed - only these types implement it
}

// Text represents a UTF-8 string field.
type Text string

func (Text) fieldValue() {}

// Int represents an integer field. Always int64.
type Int int64

func (Int) fieldValue() {}

// BigInt represents an integer field whose magnitude exceeds int64.
// The value is the decimal string form exactly as received.
type BigInt string

func (BigInt) fieldValue() {}

// Float represents a floating point field.
type Float float64

func (Float) fieldValue() {}

// Bool represents a boolean field.
type Bool bool

func (Bool) fieldValue() {}

// Relation references another document by id.
type Relation struct {
	Document string `json:"document"`
}

func (Relation) fieldValue() {}

// RelationList references an ordered list of documents.
type RelationList []Relation

func (RelationList) fieldValue() {}

// Map is an insertion-ordered field map. Operations carry their fields in a
// defined order so encoding the same operation twice yields the same bytes.
//
// Not safe for concurrent mutation. A Map is built once and then read.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap creates an empty field map.
func NewMap() *Map {
	return &Map{vals: make(map[string]Value)}
}

// Set stores a field, keeping first-insertion order for new keys.
func (m *Map) Set(name string, v Value) {
	if _, ok := m.vals[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.vals[name] = v
}

// Get returns the value for a field name.
func (m *Map) Get(name string) (Value, bool) {
	v, ok := m.vals[name]
	return v, ok
}

// Keys returns field names in insertion order. The returned slice is a copy.
func (m *Map) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Len returns the number of fields.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}
