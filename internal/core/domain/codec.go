package domain

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Encode converts a value into the payload and type tag persisted in a
// key/value row. Scalars are stored as text (bytes verbatim); lists and maps
// are serialised to JSON with sorted map keys, so equal values always
// produce equal payloads.
func Encode(v Value) ([]byte, Kind, error) {
	if v == nil {
		v = Null{}
	}

	switch val := v.(type) {
	case Null:
		return []byte{}, KindNull, nil
	case Text:
		return []byte(val), KindText, nil
	case Int:
		return []byte(val.String()), KindInt, nil
	case Float:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil, KindFloat, fmt.Errorf("%w: non-finite float", ErrInvalidInput)
		}
		return []byte(val.String()), KindFloat, nil
	case Bool:
		return []byte(val.String()), KindBool, nil
	case Bytes:
		out := make([]byte, len(val))
		copy(out, val)
		return out, KindBytes, nil
	case List, Map:
		data, err := encodeComposite(val)
		if err != nil {
			return nil, val.Kind(), err
		}
		return data, val.Kind(), nil
	default:
		return nil, KindNull, fmt.Errorf("%w: unsupported value %T", ErrInvalidInput, v)
	}
}

// Decode reverses Encode.
func Decode(payload []byte, kind Kind) (Value, error) {
	switch kind {
	case KindNull:
		return Null{}, nil
	case KindText:
		return Text(payload), nil
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(string(payload)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: int %q: %v", ErrDecode, payload, err)
		}
		return Int(n), nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: float %q: %v", ErrDecode, payload, err)
		}
		return Float(f), nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(string(payload)))
		if err != nil {
			return nil, fmt.Errorf("%w: bool %q: %v", ErrDecode, payload, err)
		}
		return Bool(b), nil
	case KindBytes:
		out := make([]byte, len(payload))
		copy(out, payload)
		return Bytes(out), nil
	case KindList, KindMap:
		v, err := DecodeJSON(payload)
		if err != nil {
			return nil, err
		}
		if v.Kind() != kind {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrDecode, kind, v.Kind())
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unknown type tag %d", ErrDecode, int(kind))
	}
}

// DecodeJSON parses a JSON document into a Value. Integral numbers become
// Int, other numbers Float.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrDecode)
	}

	v, err := FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, nil
}

// encodeComposite serialises a list or map to JSON.
func encodeComposite(v Value) ([]byte, error) {
	tree, err := toJSONTree(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", v.Kind(), err)
	}
	return data, nil
}

// toJSONTree converts a value into a tree encoding/json can marshal.
// Numbers are emitted as json.Number so floats keep their fraction marker.
func toJSONTree(v Value) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch val := v.(type) {
	case Null:
		return nil, nil
	case Text:
		return string(val), nil
	case Int:
		return json.Number(val.String()), nil
	case Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: non-finite float", ErrInvalidInput)
		}
		s := val.String()
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return json.Number(s), nil
	case Bool:
		return bool(val), nil
	case Bytes:
		return base64.StdEncoding.EncodeToString(val), nil
	case List:
		out := make([]any, len(val))
		for i, item := range val {
			converted, err := toJSONTree(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case Map:
		out := make(map[string]any, len(val))
		for k, item := range val {
			converted, err := toJSONTree(item)
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value %T", ErrInvalidInput, v)
	}
}

// FromAny converts a native Go value, such as one produced by encoding/json,
// into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return Text(val), nil
	case []byte:
		return Bytes(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Int(int64(val)), nil
		}
		return Float(val), nil
	case json.Number:
		s := val.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := val.Int64(); err == nil {
				return Int(n), nil
			}
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrInvalidInput, s)
		}
		return Float(f), nil
	case []any:
		out := make(List, len(val))
		for i, item := range val {
			converted, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case []string:
		out := make(List, len(val))
		for i, item := range val {
			out[i] = Text(item)
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(val))
		for k, item := range val {
			converted, err := FromAny(item)
			if err != nil {
				return nil, err
			}
			out[k] = converted
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidInput, v)
	}
}

// ToAny converts a Value into plain Go values suitable for JSON or YAML
// output. Bytes are rendered as base64 text.
func ToAny(v Value) any {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case Null:
		return nil
	case Text:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Bytes:
		return val.String()
	case List:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ToAny(item)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = ToAny(item)
		}
		return out
	default:
		return nil
	}
}

// ParseScalar parses s as a scalar of the given kind.
func ParseScalar(s string, kind Kind) (Value, error) {
	switch kind {
	case KindText:
		return Text(s), nil
	case KindInt, KindFloat, KindBool:
		v, err := Decode([]byte(s), kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid %s", ErrInvalidInput, s, kind)
		}
		return v, nil
	case KindNull:
		return Null{}, nil
	case KindBytes:
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not valid base64", ErrInvalidInput, s)
		}
		return Bytes(data), nil
	default:
		return nil, fmt.Errorf("%w: %s is not a scalar kind", ErrInvalidInput, kind)
	}
}

// ParseKind parses a kind name as produced by Kind.String.
func ParseKind(name string) (Kind, error) {
	for k := KindNull; k <= KindMap; k++ {
		if k.String() == strings.ToLower(strings.TrimSpace(name)) {
			return k, nil
		}
	}
	return KindNull, fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, name)
}
