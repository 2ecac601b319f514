package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind enumerates the shapes a decoded payload value can take
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
)

// Value wraps one node of the decoded payload tree. The marketplace schema
// drifts between releases, so callers get typed accessors instead of raw
// interface{} assertions.
type Value struct {
	v interface{}
}

// FromJSON wraps a value produced by encoding/json decoding
func FromJSON(v interface{}) Value {
	return Value{v: v}
}

// FromMap assembles an object value from already wrapped children
func FromMap(m map[string]Value) Value {
	raw := make(map[string]interface{}, len(m))
	for k, child := range m {
		raw[k] = child.v
	}
	return Value{v: raw}
}

// FromString wraps a plain string, used by the text-search strategies
func FromString(s string) Value {
	return Value{v: s}
}

// Null returns the null value
func Null() Value {
	return Value{}
}

// Kind returns the shape of the wrapped value
func (v Value) Kind() Kind {
	switch v.v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case float64, json.Number:
		return KindNumber
	case bool:
		return KindBool
	case map[string]interface{}:
		return KindMap
	case []interface{}:
		return KindList
	default:
		return KindNull
	}
}

// Raw returns the underlying decoded value
func (v Value) Raw() interface{} {
	return v.v
}

// Str returns the string form when the value is a string
func (v Value) Str() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

// Num returns the numeric form when the value is a number
func (v Value) Num() (float64, bool) {
	switch n := v.v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Bool returns the boolean form when the value is a bool
func (v Value) Bool() (bool, bool) {
	b, ok := v.v.(bool)
	return b, ok
}

// Map returns the value's children when it is an object
func (v Value) Map() (map[string]Value, bool) {
	m, ok := v.v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	out := make(map[string]Value, len(m))
	for k, child := range m {
		out[k] = Value{v: child}
	}
	return out, true
}

// List returns the value's elements when it is an array
func (v Value) List() ([]Value, bool) {
	l, ok := v.v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]Value, len(l))
	for i, child := range l {
		out[i] = Value{v: child}
	}
	return out, true
}

// Get walks a dot-path of object keys, returning Null when any hop is
// missing or not an object.
func (v Value) Get(path ...string) Value {
	current := v
	for _, key := range path {
		m, ok := current.v.(map[string]interface{})
		if !ok {
			return Value{}
		}
		child, ok := m[key]
		if !ok {
			return Value{}
		}
		current = Value{v: child}
	}
	return current
}

// IsEmpty reports whether the value should be treated as absent: nulls,
// empty strings, "null"/"undefined" literals, and empty collections.
func (v Value) IsEmpty() bool {
	switch t := v.v.(type) {
	case nil:
		return true
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return true
		}
		lower := strings.ToLower(trimmed)
		return lower == "null" || lower == "undefined"
	case map[string]interface{}:
		return len(t) == 0
	case []interface{}:
		return len(t) == 0
	}
	return false
}

// Text renders the value as a display string. Objects and lists are
// re-encoded as JSON; numbers drop the trailing ".0" of whole floats.
func (v Value) Text() string {
	switch t := v.v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

// JSON re-encodes the value for satellite storage
func (v Value) JSON() string {
	if v.v == nil {
		return ""
	}
	encoded, err := json.Marshal(v.v)
	if err != nil {
		return ""
	}
	return string(encoded)
}
