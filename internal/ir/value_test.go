package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("")
	var _ IRValue = IRInt(0)
	var _ IRValue = IRFloat(0)
	var _ IRValue = IRBool(false)
	var _ IRValue = IRArray{}
	var _ IRValue = IRObject{}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{"c": IRInt(3), "a": IRInt(1), "b": IRInt(2)}
	assert.Equal(t, []string{"a", "b", "c"}, obj.SortedKeys())
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
		{"a", "ab", -1},
		{"\U00010000", "\uE000", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compareKeysRFC8785(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := IRObject{
		"balance": IRInt(5),
		"owners":  IRArray{IRString("alice")},
		"limits":  IRObject{"daily": IRInt(10)},
	}

	clone := orig.Clone()
	clone["balance"] = IRInt(6)
	clone["owners"].(IRArray)[0] = IRString("mallory")
	clone["limits"].(IRObject)["daily"] = IRInt(0)

	assert.Equal(t, IRInt(5), orig["balance"])
	assert.Equal(t, IRString("alice"), orig["owners"].(IRArray)[0])
	assert.Equal(t, IRInt(10), orig["limits"].(IRObject)["daily"])
}

func TestCloneNil(t *testing.T) {
	var obj IRObject
	clone := obj.Clone()
	require.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestMergeOverrides(t *testing.T) {
	storage := IRObject{"balance": IRInt(1), "gate": IRBool(true)}
	balances := IRObject{"balance": IRInt(99)}

	merged := storage.Merge(balances)
	assert.Equal(t, IRInt(99), merged["balance"])
	assert.Equal(t, IRBool(true), merged["gate"])
	assert.Equal(t, IRInt(1), storage["balance"], "inputs untouched")
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(IRInt(1), IRInt(1)))
	assert.False(t, Equal(IRInt(1), IRFloat(1)))
	assert.True(t, Equal(IRNull{}, nil))
	assert.True(t, Equal(IRArray{IRInt(1)}, IRArray{IRInt(1)}))
	assert.False(t, Equal(IRArray{IRInt(1)}, IRArray{IRInt(2)}))
	assert.True(t, Equal(IRObject{"a": IRBool(true)}, IRObject{"a": IRBool(true)}))
	assert.False(t, Equal(IRObject{"a": IRBool(true)}, IRObject{"b": IRBool(true)}))
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want IRValue
	}{
		{"nil", nil, IRNull{}},
		{"bool", true, IRBool(true)},
		{"string", "x", IRString("x")},
		{"int", 7, IRInt(7)},
		{"whole float", 12.0, IRInt(12)},
		{"fraction", 0.5, IRFloat(0.5)},
		{"json int", json.Number("-3"), IRInt(-3)},
		{"json float", json.Number("2.5"), IRFloat(2.5)},
		{"json whole float", json.Number("4.0"), IRInt(4)},
		{"slice", []any{1, "a"}, IRArray{IRInt(1), IRString("a")}},
		{"map", map[string]any{"k": false}, IRObject{"k": IRBool(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAny(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromAnyRejectsUnsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.Error(t, err)

	_, err = ObjectFromAny([]any{1})
	assert.Error(t, err)
}

func TestToAnyInvertsFromAny(t *testing.T) {
	obj := IRObject{"n": IRInt(1), "f": IRFloat(0.25), "s": IRString("x"), "z": IRNull{}}
	assert.Equal(t, map[string]any{"n": int64(1), "f": 0.25, "s": "x", "z": nil}, ToAny(obj))
}

func TestUnmarshalIRObject(t *testing.T) {
	var obj IRObject
	require.NoError(t, json.Unmarshal([]byte(`{"balance": 5, "rate": 0.5, "gate": true}`), &obj))
	assert.Equal(t, IRObject{"balance": IRInt(5), "rate": IRFloat(0.5), "gate": IRBool(true)}, obj)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &obj))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "-12", FormatValue(IRInt(-12)))
	assert.Equal(t, "true", FormatValue(IRBool(true)))
	assert.Equal(t, "open", FormatValue(IRString("open")))
	assert.Equal(t, "null", FormatValue(IRNull{}))
}
