package domain

import (
	"encoding/base64"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the structural kind of a Value.
// The numeric value is persisted as the type tag of a stored row,
// so existing constants must never be renumbered.
type Kind int

// Available value kinds.
const (
	KindNull  Kind = 0
	KindText  Kind = 1
	KindInt   Kind = 2
	KindFloat Kind = 3
	KindBool  Kind = 4
	KindBytes Kind = 5
	KindList  Kind = 6
	KindMap   Kind = 7
)

// IsValid returns true if the kind is recognised.
func (k Kind) IsValid() bool {
	return k >= KindNull && k <= KindMap
}

// IsComposite returns true for kinds serialised as JSON.
func (k Kind) IsComposite() bool {
	return k == KindList || k == KindMap
}

// String returns the string representation.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a value stored in a key/value table.
// The set of implementations is closed: Null, Text, Int, Float, Bool,
// Bytes, List and Map.
type Value interface {
	// Kind returns the structural kind of the value.
	Kind() Kind

	// String returns a human-readable rendering of the value.
	String() string

	isValue()
}

// Null is the absent value.
type Null struct{}

// Text is a string scalar.
type Text string

// Int is an integer scalar.
type Int int64

// Float is a floating point scalar.
type Float float64

// Bool is a boolean scalar.
type Bool bool

// Bytes is a binary scalar.
type Bytes []byte

// List is an ordered sequence of values.
type List []Value

// Map is a string-keyed collection of values.
type Map map[string]Value

func (Null) Kind() Kind  { return KindNull }
func (Text) Kind() Kind  { return KindText }
func (Int) Kind() Kind   { return KindInt }
func (Float) Kind() Kind { return KindFloat }
func (Bool) Kind() Kind  { return KindBool }
func (Bytes) Kind() Kind { return KindBytes }
func (List) Kind() Kind  { return KindList }
func (Map) Kind() Kind   { return KindMap }

func (Null) isValue()  {}
func (Text) isValue()  {}
func (Int) isValue()   {}
func (Float) isValue() {}
func (Bool) isValue()  {}
func (Bytes) isValue() {}
func (List) isValue()  {}
func (Map) isValue()   {}

func (Null) String() string    { return "" }
func (t Text) String() string  { return string(t) }
func (i Int) String() string   { return strconv.FormatInt(int64(i), 10) }
func (f Float) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (b Bool) String() string  { return strconv.FormatBool(bool(b)) }

// String returns the bytes base64 encoded.
func (b Bytes) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

// String returns the list in JSON form, or a bracketed fallback if the
// list cannot be encoded.
func (l List) String() string {
	data, err := encodeComposite(l)
	if err != nil {
		parts := make([]string, len(l))
		for i, v := range l {
			parts[i] = valueString(v)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return string(data)
}

// String returns the map in JSON form, or a braced fallback if the map
// cannot be encoded.
func (m Map) String() string {
	data, err := encodeComposite(m)
	if err != nil {
		keys := m.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + valueString(m[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return string(data)
}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// valueString renders v, treating a nil interface as Null.
func valueString(v Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

// Equal reports whether a and b hold the same kind and content.
// A nil Value equals Null.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch av := a.(type) {
	case Null:
		return true
	case Text:
		return av == b.(Text)
	case Int:
		return av == b.(Int)
	case Float:
		return av == b.(Float)
	case Bool:
		return av == b.(Bool)
	case Bytes:
		return string(av) == string(b.(Bytes))
	case List:
		bv := b.(List)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv := b.(Map)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, ok := bv[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
