package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		payload string
		kind    Kind
	}{
		{"null", Null{}, "", KindNull},
		{"text", Text("hello"), "hello", KindText},
		{"empty text", Text(""), "", KindText},
		{"int", Int(42), "42", KindInt},
		{"float", Float(2.5), "2.5", KindFloat},
		{"bool", Bool(false), "false", KindBool},
		{"bytes", Bytes{0, 255}, "\x00\xff", KindBytes},
		{"list", List{Int(1), Float(2), Text("x")}, `[1,2.0,"x"]`, KindList},
		{"map", Map{"b": Int(1), "a": List{}}, `{"a":[],"b":1}`, KindMap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, kind, err := Encode(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.payload, string(payload))
			assert.Equal(t, tt.kind, kind)

			decoded, err := Decode(payload, kind)
			require.NoError(t, err)
			assert.True(t, Equal(tt.value, decoded), "decoded %#v", decoded)
		})
	}
}

func TestEncode_StableMapOrder(t *testing.T) {
	first, _, err := Encode(Map{"z": Int(1), "a": Int(2), "m": Int(3)})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, _, err := Encode(Map{"m": Int(3), "a": Int(2), "z": Int(1)})
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestEncode_NonFiniteFloat(t *testing.T) {
	_, _, err := Encode(Float(math.NaN()))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = Encode(List{Float(math.Inf(1))})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEncode_BytesInsideComposite(t *testing.T) {
	payload, kind, err := Encode(List{Bytes("hi")})
	require.NoError(t, err)
	assert.Equal(t, KindList, kind)
	assert.Equal(t, `["aGk="]`, string(payload))

	// Bytes nested in a composite come back as their base64 text.
	decoded, err := Decode(payload, kind)
	require.NoError(t, err)
	assert.True(t, Equal(List{Text("aGk=")}, decoded))
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    Kind
	}{
		{"bad int", "x", KindInt},
		{"bad float", "1.2.3", KindFloat},
		{"bad bool", "maybe", KindBool},
		{"bad json", "[1,", KindList},
		{"list tag with map payload", `{"a":1}`, KindList},
		{"unknown tag", "x", Kind(99)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload), tt.kind)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"n":1,"f":1.5,"big":1e3,"s":"x","b":true,"z":null,"l":[]}`))
	require.NoError(t, err)

	want := Map{
		"n":   Int(1),
		"f":   Float(1.5),
		"big": Float(1000),
		"s":   Text("x"),
		"b":   Bool(true),
		"z":   Null{},
		"l":   List{},
	}
	assert.True(t, Equal(want, v), "got %#v", v)

	_, err = DecodeJSON([]byte(`[1] [2]`))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"string", "a", Text("a")},
		{"int", 3, Int(3)},
		{"integral float64", float64(4), Int(4)},
		{"fractional float64", 4.25, Float(4.25)},
		{"json integer", json.Number("12"), Int(12)},
		{"json decimal", json.Number("1.0"), Float(1)},
		{"bytes", []byte("b"), Bytes("b")},
		{"strings", []string{"a", "b"}, List{Text("a"), Text("b")}},
		{"nested", map[string]any{"l": []any{true}}, Map{"l": List{Bool(true)}}},
		{"value passthrough", Int(9), Int(9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got), "got %#v", got)
		})
	}

	_, err := FromAny(struct{}{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestToAny(t *testing.T) {
	v := Map{
		"b": Bytes("hi"),
		"l": List{Int(1), Null{}},
		"f": Float(0.5),
	}

	assert.Equal(t, map[string]any{
		"b": "aGk=",
		"l": []any{int64(1), nil},
		"f": 0.5,
	}, ToAny(v))
	assert.Nil(t, ToAny(nil))
}

func TestParseScalar(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		kind    Kind
		want    Value
		wantErr bool
	}{
		{name: "text", raw: "42", kind: KindText, want: Text("42")},
		{name: "int", raw: "42", kind: KindInt, want: Int(42)},
		{name: "float", raw: "0.25", kind: KindFloat, want: Float(0.25)},
		{name: "bool", raw: "true", kind: KindBool, want: Bool(true)},
		{name: "null", raw: "ignored", kind: KindNull, want: Null{}},
		{name: "bytes", raw: "aGk=", kind: KindBytes, want: Bytes("hi")},
		{name: "bad int", raw: "4x", kind: KindInt, wantErr: true},
		{name: "bad base64", raw: "!!", kind: KindBytes, wantErr: true},
		{name: "composite", raw: "[]", kind: KindList, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScalar(tt.raw, tt.kind)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.True(t, Equal(tt.want, got))
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" MAP ")
	require.NoError(t, err)
	assert.Equal(t, KindMap, k)

	_, err = ParseKind("decimal")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
