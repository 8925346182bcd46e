package closure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/arena"
	"github.com/vk/shadelink/internal/sltype"
)

func registerLambert(t *testing.T, r *Registry) *Descriptor {
	t.Helper()
	fields, size := lambertFields()
	_, err := r.Register("lambert", fields, size)
	require.NoError(t, err)
	desc, ok := r.Lookup("lambert")
	require.True(t, ok)
	return desc
}

func TestNode_SetGetRoundTrip(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	desc := registerLambert(t, r)
	ar := arena.New(256)

	n, err := NewNode(ar, desc)
	require.NoError(t, err)

	require.NoError(t, n.Set("base_color", sltype.ColorVal(1, 0, 0)))
	require.NoError(t, n.Set("center", sltype.VectorVal(0, 0, 0)))
	require.NoError(t, n.Set("flip_normal", cty.False))

	got, err := n.Get("base_color")
	require.NoError(t, err)
	assert.True(t, got.RawEquals(sltype.ColorVal(1, 0, 0)))

	params, err := n.DecodeParams()
	require.NoError(t, err)
	assert.True(t, params["center"].RawEquals(sltype.VectorVal(0, 0, 0)))
	assert.True(t, params["flip_normal"].RawEquals(cty.False))
}

func TestNode_FieldValidation(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	desc := registerLambert(t, r)
	ar := arena.New(256)
	n, err := NewNode(ar, desc)
	require.NoError(t, err)

	err = n.Set("no_such_field", cty.True)
	assert.ErrorContains(t, err, "has no field")

	err = n.Set("base_color", sltype.VectorVal(1, 0, 0))
	assert.ErrorContains(t, err, "expected color")

	_, err = n.Get("no_such_field")
	assert.ErrorContains(t, err, "has no field")
}

func TestNode_NestedClosureChildren(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	registerLambert(t, r)
	layered, size := AutoLayout([]Field{
		{Name: "weight", Type: sltype.Float},
		{Name: "inner", Type: sltype.Closure},
	})
	_, err := r.Register("layered", layered, size)
	require.NoError(t, err)

	ar := arena.New(512)
	lambertDesc, _ := r.Lookup("lambert")
	layeredDesc, _ := r.Lookup("layered")

	inner, err := NewNode(ar, lambertDesc)
	require.NoError(t, err)
	require.NoError(t, inner.Set("base_color", sltype.ColorVal(0, 1, 0)))

	outer, err := NewNode(ar, layeredDesc)
	require.NoError(t, err)
	require.NoError(t, outer.Set("weight", cty.NumberFloatVal(0.5)))
	require.NoError(t, outer.Set("inner", sltype.ClosureVal(inner)))

	got, err := outer.Get("inner")
	require.NoError(t, err)
	raw, ok := sltype.ClosureNode(got)
	require.True(t, ok)
	assert.Same(t, inner, raw)

	child, err := outer.Child(0)
	require.NoError(t, err)
	assert.Same(t, inner, child)
}

func TestNode_NullClosureField(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	layered, size := AutoLayout([]Field{{Name: "inner", Type: sltype.Closure}})
	_, err := r.Register("wrapper", layered, size)
	require.NoError(t, err)
	desc, _ := r.Lookup("wrapper")

	ar := arena.New(64)
	n, err := NewNode(ar, desc)
	require.NoError(t, err)

	require.NoError(t, n.Set("inner", cty.NullVal(sltype.Closure.CtyType())))
	got, err := n.Get("inner")
	require.NoError(t, err)
	assert.True(t, got.IsNull())
}

func TestNode_StaleAfterReset(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	desc := registerLambert(t, r)
	ar := arena.New(256)

	n, err := NewNode(ar, desc)
	require.NoError(t, err)
	require.NoError(t, n.Set("flip_normal", cty.True))

	ar.Reset()

	_, err = n.Get("flip_normal")
	assert.ErrorIs(t, err, ErrStale)

	err = n.Set("flip_normal", cty.False)
	assert.ErrorIs(t, err, ErrStale)

	_, err = n.Params()
	assert.ErrorIs(t, err, ErrStale)
}

func TestNewNode_ArenaExhaustion(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	desc := registerLambert(t, r)
	ar := arena.New(8) // too small for the 25-byte lambert params

	_, err := NewNode(ar, desc)
	require.Error(t, err)
	assert.ErrorIs(t, err, arena.ErrExhausted)
}

func TestNode_DeterministicParams(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	desc := registerLambert(t, r)

	build := func() []byte {
		ar := arena.New(256)
		n, err := NewNode(ar, desc)
		require.NoError(t, err)
		require.NoError(t, n.Set("base_color", sltype.ColorVal(1, 0, 0)))
		require.NoError(t, n.Set("center", sltype.VectorVal(0, 0, 0)))
		require.NoError(t, n.Set("flip_normal", cty.False))
		p, err := n.Params()
		require.NoError(t, err)
		out := make([]byte, len(p))
		copy(out, p)
		return out
	}

	assert.Equal(t, build(), build(), "identical inputs must produce byte-identical params")
}
