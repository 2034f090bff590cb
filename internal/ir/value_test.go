package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRFloat(1.5)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestIRObjectSortedKeysSurrogates(t *testing.T) {
	// U+1F600 encodes to the surrogate 0xD83D, which sorts before U+FB33 in
	// UTF-16 even though its UTF-8 bytes sort after.
	obj := IRObject{
		"\uFB33":     IRInt(1),
		"\U0001F600": IRInt(2),
	}

	assert.Equal(t, []string{"\U0001F600", "\uFB33"}, obj.SortedKeys())
}

func TestIRObjectCloneIsDeep(t *testing.T) {
	orig := IRObject{
		"nested": IRObject{"n": IRInt(1)},
		"list":   IRArray{IRString("a")},
	}

	clone := orig.Clone()
	clone["nested"].(IRObject)["n"] = IRInt(2)
	clone["list"].(IRArray)[0] = IRString("b")

	assert.Equal(t, IRInt(1), orig["nested"].(IRObject)["n"])
	assert.Equal(t, IRString("a"), orig["list"].(IRArray)[0])
}

func TestIRObjectCloneNil(t *testing.T) {
	var obj IRObject
	clone := obj.Clone()
	require.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestIRObjectMerge(t *testing.T) {
	state := IRObject{"count": IRInt(1), "owner": IRString("ops")}

	state.Merge(IRObject{"count": IRInt(2), "region": IRString("eu")})

	assert.Equal(t, IRObject{
		"count":  IRInt(2),
		"owner":  IRString("ops"),
		"region": IRString("eu"),
	}, state)
}

func TestIRObjectStringAt(t *testing.T) {
	obj := IRObject{"name": IRString("x"), "count": IRInt(1)}

	assert.Equal(t, "x", obj.StringAt("name"))
	assert.Equal(t, "", obj.StringAt("count"))
	assert.Equal(t, "", obj.StringAt("missing"))
}

func TestUnmarshalIRValueNumbers(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, IRInt(9007199254740993), v, "large ints must not lose precision")

	v, err = UnmarshalIRValue([]byte(`1.25`))
	require.NoError(t, err)
	assert.Equal(t, IRFloat(1.25), v)

	v, err = UnmarshalIRValue([]byte(`1e3`))
	require.NoError(t, err)
	assert.Equal(t, IRFloat(1000), v)
}

func TestIRObjectUnmarshalJSON(t *testing.T) {
	var obj IRObject
	err := json.Unmarshal([]byte(`{"a":null,"b":[true,"x"],"c":{"d":2}}`), &obj)
	require.NoError(t, err)

	assert.Equal(t, IRObject{
		"a": IRNull{},
		"b": IRArray{IRBool(true), IRString("x")},
		"c": IRObject{"d": IRInt(2)},
	}, obj)
}

func TestIRObjectUnmarshalJSONRejectsNonObject(t *testing.T) {
	for _, input := range []string{`null`, `[]`, `"x"`, `3`} {
		var obj IRObject
		err := obj.UnmarshalJSON([]byte(input))
		assert.Error(t, err, "input %s", input)
	}
}

func TestFromAnyYAMLShapes(t *testing.T) {
	// yaml.v3 decodes integers to int and mappings to map[string]any.
	v, err := FromAny(map[string]any{
		"count": 3,
		"ratio": 0.5,
		"tags":  []any{"a", nil},
	})
	require.NoError(t, err)

	assert.Equal(t, IRObject{
		"count": IRInt(3),
		"ratio": IRFloat(0.5),
		"tags":  IRArray{IRString("a"), IRNull{}},
	}, v)
}

func TestFromAnyUnsupported(t *testing.T) {
	_, err := FromAny(struct{}{})
	assert.Error(t, err)

	_, err = FromAny(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestToAnyRoundTrip(t *testing.T) {
	obj := IRObject{
		"s": IRString("x"),
		"i": IRInt(1),
		"f": IRFloat(0.5),
		"b": IRBool(false),
		"n": IRNull{},
		"a": IRArray{IRInt(2)},
	}

	back, err := FromAny(ToAny(obj))
	require.NoError(t, err)
	assert.Equal(t, obj, back)
}
