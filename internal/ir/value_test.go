package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra":  IRString("z"),
		"apple":  IRString("a"),
		"banana": IRString("b"),
	}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
	assert.Empty(t, IRObject{}.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"a", "aa", -1},
		{"A", "a", -1},
		{"\U00010000", "\uE000", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareKeysRFC8785(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestUnmarshalIRObject(t *testing.T) {
	var obj IRObject
	err := json.Unmarshal([]byte(`{"s":"x","n":7,"b":true,"z":null,"a":[1,"two"],"o":{"k":1}}`), &obj)
	require.NoError(t, err)

	assert.Equal(t, IRString("x"), obj["s"])
	assert.Equal(t, IRInt(7), obj["n"])
	assert.Equal(t, IRBool(true), obj["b"])
	assert.Equal(t, IRNull{}, obj["z"])
	assert.Equal(t, IRArray{IRInt(1), IRString("two")}, obj["a"])
	assert.Equal(t, IRObject{"k": IRInt(1)}, obj["o"])
}

func TestUnmarshalKeepsNumberLiterals(t *testing.T) {
	tests := map[string]IRValue{
		`1.5`:                  IRNumber("1.5"),
		`1e3`:                  IRNumber("1e3"),
		`2.0`:                  IRNumber("2.0"),
		`-0.25`:                IRNumber("-0.25"),
		`18446744073709551616`: IRNumber("18446744073709551616"),
	}
	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			v, err := ParseIRValue([]byte(input))
			require.NoError(t, err)
			assert.Equal(t, want, v)

			out, err := MarshalIRValue(v)
			require.NoError(t, err)
			assert.Equal(t, input, string(out))
		})
	}
}

func TestFromGoFloats(t *testing.T) {
	v, err := FromGo(map[string]any{"ratio": 0.5, "whole": 2.0})
	require.NoError(t, err)
	assert.Equal(t, IRObject{"ratio": IRNumber("0.5"), "whole": IRInt(2)}, v)

	_, err = FromGo(math.Inf(1))
	require.Error(t, err)
}

func TestUnmarshalLargeIntegerPrecision(t *testing.T) {
	v, err := ParseIRValue([]byte(`{"id":9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, IRInt(9007199254740993), v.(IRObject)["id"])
}

func TestMarshalIRValueRoundTrip(t *testing.T) {
	original := IRObject{
		"finishPosition": IRInt(2),
		"label":          IRString("<runner-up>"),
		"pools":          IRArray{IRInt(0), IRInt(1)},
		"optional":       IRNull{},
		"enabled":        IRBool(false),
	}

	data, err := MarshalIRValue(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"<runner-up>"`)

	decoded, err := ParseIRValue(data)
	require.NoError(t, err)
	assert.True(t, EqualValues(original, decoded))
}

func TestCloneIsDeep(t *testing.T) {
	original := IRObject{"nested": IRObject{"k": IRInt(1)}, "list": IRArray{IRInt(1)}}
	clone := original.Clone()

	clone["nested"].(IRObject)["k"] = IRInt(99)
	clone["list"].(IRArray)[0] = IRInt(99)

	assert.Equal(t, IRInt(1), original["nested"].(IRObject)["k"])
	assert.Equal(t, IRInt(1), original["list"].(IRArray)[0])
	assert.Nil(t, IRObject(nil).Clone())
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"finishPosition": 1,
		"big":            uint64(5),
		"num":            json.Number("12"),
		"flags":          []any{true, nil},
	})
	require.NoError(t, err)
	obj := v.(IRObject)
	assert.Equal(t, IRInt(1), obj["finishPosition"])
	assert.Equal(t, IRInt(5), obj["big"])
	assert.Equal(t, IRInt(12), obj["num"])
	assert.Equal(t, IRArray{IRBool(true), IRNull{}}, obj["flags"])

	_, err = FromGo(map[string]any{"x": 0.25})
	require.Error(t, err)

	_, err = FromGo(struct{}{})
	require.Error(t, err)
}

func TestEqualValuesIgnoresKeyOrder(t *testing.T) {
	a := IRObject{"a": IRInt(1), "b": IRInt(2)}
	b := IRObject{"b": IRInt(2), "a": IRInt(1)}
	assert.True(t, EqualValues(a, b))
	assert.False(t, EqualValues(IRArray{IRInt(1), IRInt(2)}, IRArray{IRInt(2), IRInt(1)}))
}
