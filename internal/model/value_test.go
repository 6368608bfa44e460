package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConstructors(t *testing.T) {
	assert.True(t, Null().IsNull())
	assert.False(t, Num(0).IsNull())
	assert.False(t, Str("").IsNull())

	f, ok := Num(3.5).Float()
	require.True(t, ok)
	assert.Equal(t, 3.5, f)

	_, ok = Str("3.5").Float()
	assert.False(t, ok)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "", Null().String())
	assert.Equal(t, "12.5", Num(12.5).String())
	assert.Equal(t, "42", Num(42).String())
	assert.Equal(t, "forest", Str("forest").String())
}

func TestValueCoerce(t *testing.T) {
	cases := []struct {
		v    Value
		want float64
		ok   bool
	}{
		{Num(7), 7, true},
		{Str("7"), 7, true},
		{Str("7.25"), 7.25, true},
		{Str("-1e3"), -1000, true},
		{Str("forest"), 0, false},
		{Str(""), 0, false},
		{Null(), 0, false},
	}
	for _, tc := range cases {
		got, ok := tc.v.Coerce()
		assert.Equal(t, tc.ok, ok, tc.v.String())
		if ok {
			assert.Equal(t, tc.want, got)
		}
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	cases := []struct {
		v    Value
		json string
	}{
		{Num(2.5), "2.5"},
		{Str("forest"), `"forest"`},
		{Null(), "null"},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.v)
		require.NoError(t, err)
		assert.Equal(t, tc.json, string(data))

		var back Value
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, tc.v, back)
	}
}

func TestValueUnmarshalBool(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte("true"), &v))
	f, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, 1.0, f)

	require.NoError(t, json.Unmarshal([]byte("false"), &v))
	f, _ = v.Float()
	assert.Equal(t, 0.0, f)
}
