package global

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/sltype"
)

func TestRegister_AssignsSequentialOffsets(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	base, err := r.Register("base_color", sltype.Color)
	require.NoError(t, err)
	center, err := r.Register("center", sltype.Vector)
	require.NoError(t, err)
	flip, err := r.Register("flip_normal", sltype.Bool)
	require.NoError(t, err)

	assert.Equal(t, 0, base.Offset)
	assert.Equal(t, 12, center.Offset)
	assert.Equal(t, 24, flip.Offset)
}

func TestRegister_Idempotency(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first, err := r.Register("intensity", sltype.Float)
	require.NoError(t, err)

	again, err := r.Register("intensity", sltype.Float)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	_, err = r.Register("intensity", sltype.Color)
	assert.ErrorContains(t, err, "already registered as float")
}

func TestRegister_RejectsNonHostTypes(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Register("bxdf", sltype.Closure)
	assert.ErrorContains(t, err, "cannot be a host-supplied input")

	_, err = r.Register("name", sltype.String)
	assert.ErrorContains(t, err, "cannot be a host-supplied input")
}

func TestBlock_SetAndValue(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Register("base_color", sltype.Color)
	require.NoError(t, err)
	_, err = r.Register("flip_normal", sltype.Bool)
	require.NoError(t, err)

	block := r.Layout().NewBlock()
	require.NoError(t, block.Set("base_color", sltype.ColorVal(1, 0, 0)))
	require.NoError(t, block.Set("flip_normal", cty.False))

	got, err := block.Value("base_color")
	require.NoError(t, err)
	assert.True(t, got.RawEquals(sltype.ColorVal(1, 0, 0)))

	values, err := block.Values()
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.True(t, values["flip_normal"].RawEquals(cty.False))
}

func TestBlock_RejectsSchemaViolations(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Register("intensity", sltype.Float)
	require.NoError(t, err)

	block := r.Layout().NewBlock()

	err = block.Set("unregistered", cty.NumberFloatVal(1))
	assert.ErrorContains(t, err, "not registered")

	err = block.Set("intensity", cty.StringVal("bright"))
	assert.ErrorContains(t, err, "expected float")
}

func TestLayout_SnapshotIsStable(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Register("intensity", sltype.Float)
	require.NoError(t, err)

	layout := r.Layout()
	require.Equal(t, 4, layout.Size())

	// Registering more globals must not change an existing snapshot.
	_, err = r.Register("diffuse", sltype.Color)
	require.NoError(t, err)

	assert.Equal(t, 4, layout.Size())
	assert.Len(t, layout.Fields(), 1)

	fresh := r.Layout()
	assert.Equal(t, 16, fresh.Size())
}

func TestBlock_OffsetsMatchSchema(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	_, err := r.Register("a", sltype.Float)
	require.NoError(t, err)
	d, err := r.Register("b", sltype.Int)
	require.NoError(t, err)

	block := r.Layout().NewBlock()
	require.NoError(t, block.Set("b", cty.NumberIntVal(9)))

	// The value must land at the registered offset in the packed bytes.
	raw, err := sltype.Int.Decode(block.Bytes(), d.Offset)
	require.NoError(t, err)
	assert.True(t, raw.RawEquals(cty.NumberIntVal(9)))
}
