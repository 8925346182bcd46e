package sltype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestParse(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"float", "double", "int", "bool", "color", "vector", "string", "closure", "resource"} {
		typ, err := Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, typ.String())
	}

	_, err := Parse("float3")
	assert.ErrorContains(t, err, "unknown shading type")
}

func TestEqual_NoCoercion(t *testing.T) {
	t.Parallel()

	assert.True(t, Equal(Color, Color))
	assert.False(t, Equal(Float, Color))
	assert.False(t, Equal(Color, Vector), "color and vector must stay distinct")
	assert.False(t, Equal(Float, Double))
	assert.False(t, Equal(Invalid, Invalid))
}

func TestCtyType_Distinctness(t *testing.T) {
	t.Parallel()

	assert.False(t, Color.CtyType().Equals(Vector.CtyType()))
	assert.False(t, Closure.CtyType().Equals(Resource.CtyType()))
	assert.True(t, Float.CtyType().Equals(cty.Number))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	blob := make([]byte, 64)

	require.NoError(t, Float.Encode(cty.NumberFloatVal(1.5), blob, 0))
	require.NoError(t, Double.Encode(cty.NumberFloatVal(0.25), blob, 4))
	require.NoError(t, Int.Encode(cty.NumberIntVal(-7), blob, 12))
	require.NoError(t, Bool.Encode(cty.True, blob, 16))
	require.NoError(t, Color.Encode(ColorVal(1, 0, 0), blob, 17))
	require.NoError(t, Vector.Encode(VectorVal(0, 2, 0), blob, 29))

	f, err := Float.Decode(blob, 0)
	require.NoError(t, err)
	assert.True(t, f.RawEquals(cty.NumberFloatVal(1.5)))

	d, err := Double.Decode(blob, 4)
	require.NoError(t, err)
	assert.True(t, d.RawEquals(cty.NumberFloatVal(0.25)))

	i, err := Int.Decode(blob, 12)
	require.NoError(t, err)
	assert.True(t, i.RawEquals(cty.NumberIntVal(-7)))

	b, err := Bool.Decode(blob, 16)
	require.NoError(t, err)
	assert.True(t, b.True())

	c, err := Color.Decode(blob, 17)
	require.NoError(t, err)
	assert.True(t, c.RawEquals(ColorVal(1, 0, 0)))

	v, err := Vector.Decode(blob, 29)
	require.NoError(t, err)
	assert.True(t, v.RawEquals(VectorVal(0, 2, 0)))
}

func TestEncode_Determinism(t *testing.T) {
	t.Parallel()

	a := make([]byte, 12)
	b := make([]byte, 12)
	require.NoError(t, Color.Encode(ColorVal(0.3, 0.6, 0.9), a, 0))
	require.NoError(t, Color.Encode(ColorVal(0.3, 0.6, 0.9), b, 0))
	assert.Equal(t, a, b)
}

func TestEncode_Errors(t *testing.T) {
	t.Parallel()

	blob := make([]byte, 8)

	err := Color.Encode(ColorVal(1, 1, 1), blob, 0)
	assert.ErrorContains(t, err, "overruns")

	err = Float.Encode(cty.True, make([]byte, 4), 0)
	assert.ErrorContains(t, err, "expected float")

	err = String.Encode(cty.StringVal("x"), blob, 0)
	assert.ErrorContains(t, err, "cannot cross the execution ABI")

	err = Color.Encode(VectorVal(1, 1, 1), make([]byte, 12), 0)
	assert.ErrorContains(t, err, "expected color")
}

func TestClosureAndResourceWrapping(t *testing.T) {
	t.Parallel()

	type fakeNode struct{ tag int }
	n := &fakeNode{tag: 42}

	val := ClosureVal(n)
	got, ok := ClosureNode(val)
	require.True(t, ok)
	assert.Same(t, n, got)

	_, ok = ClosureNode(cty.StringVal("nope"))
	assert.False(t, ok)

	res := ResourceVal("checker")
	handle, ok := ResourceHandle(res)
	require.True(t, ok)
	assert.Equal(t, "checker", handle)

	_, ok = ResourceHandle(val)
	assert.False(t, ok)
}
