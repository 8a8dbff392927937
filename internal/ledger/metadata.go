package ledger

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the concrete type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// Value is a tagged variant for transaction metadata and derived signals.
// Accessors return (value, ok) so that an absent or differently-typed field
// reads as "unknown" instead of a zero that could understate risk.
type Value struct {
	kind Kind
	s    string
	f    float64
	b    bool
	l    []Value
	m    map[string]Value
}

// Null returns the explicit null Value. The zero Value is also null.
func Null() Value { return Value{} }

// String wraps a string into a Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number wraps a float64 into a Value.
func Number(f float64) Value { return Value{kind: KindNumber, f: f} }

// Bool wraps a bool into a Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List wraps a slice of Values into a Value.
func List(vs ...Value) Value { return Value{kind: KindList, l: vs} }

// Object wraps a map of Values into a Value.
func Object(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// Kind reports the concrete type of the Value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the Value is null/absent.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Float returns the numeric payload.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.f, true
}

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Items returns the list payload.
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.l, true
}

// Fields returns the map payload.
func (v Value) Fields() (map[string]Value, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

// MarshalJSON encodes the Value as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		return json.Marshal(v.l)
	case KindMap:
		return json.Marshal(v.m)
	}
	return nil, fmt.Errorf("metadata: unknown value kind %d", v.kind)
}

// UnmarshalJSON decodes arbitrary JSON into the variant.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromInterface(raw)
	return nil
}

func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case float64:
		return Number(t)
	case bool:
		return Bool(t)
	case []interface{}:
		l := make([]Value, len(t))
		for i, e := range t {
			l[i] = fromInterface(e)
		}
		return Value{kind: KindList, l: l}
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = fromInterface(e)
		}
		return Value{kind: KindMap, m: m}
	}
	return Null()
}

// Metadata is the free-form key/value payload attached to a transaction.
// All lookups are absent-safe on a nil map.
type Metadata map[string]Value

// ParseMetadata decodes an embedded JSON document. A decode error means the
// record's metadata is malformed; callers skip the record, they do not abort.
func ParseMetadata(raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]Value
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("metadata: parse: %w", err)
	}
	return Metadata(m), nil
}

// Str returns the string field under key.
func (m Metadata) Str(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return v.Str()
}

// Float returns the numeric field under key.
func (m Metadata) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Bool returns the boolean field under key.
func (m Metadata) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	return v.Bool()
}

// Has reports whether key is present and non-null.
func (m Metadata) Has(key string) bool {
	v, ok := m[key]
	return ok && !v.IsNull()
}
