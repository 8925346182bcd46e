package interp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/arena"
	"github.com/vk/shadelink/internal/backend"
	"github.com/vk/shadelink/internal/closure"
	"github.com/vk/shadelink/internal/global"
	"github.com/vk/shadelink/internal/host"
	"github.com/vk/shadelink/internal/sltype"
)

const lambertSource = `
shader "lambert_shader" {
  output "bxdf" {
    type  = "closure"
    value = make_closure("lambert", global.base_color, global.center, global.flip_normal)
  }
}
`

func testEnv(t *testing.T) *backend.Env {
	t.Helper()

	closures := closure.NewRegistry()
	fields, size := closure.AutoLayout([]closure.Field{
		{Name: "base_color", Type: sltype.Color},
		{Name: "center", Type: sltype.Vector},
		{Name: "flip_normal", Type: sltype.Bool},
	})
	_, err := closures.Register("lambert", fields, size)
	require.NoError(t, err)

	globals := global.NewRegistry()
	for _, g := range []struct {
		name string
		typ  sltype.Type
	}{
		{"base_color", sltype.Color},
		{"center", sltype.Vector},
		{"flip_normal", sltype.Bool},
	} {
		_, err := globals.Register(g.name, g.typ)
		require.NoError(t, err)
	}

	return &backend.Env{Closures: closures, Globals: globals}
}

func execContext(t *testing.T, env *backend.Env) *backend.ExecContext {
	t.Helper()

	block := env.Globals.Layout().NewBlock()
	require.NoError(t, block.Set("base_color", sltype.ColorVal(1, 0, 0)))
	require.NoError(t, block.Set("center", sltype.VectorVal(0, 0, 0)))
	require.NoError(t, block.Set("flip_normal", cty.False))

	return &backend.ExecContext{
		Globals: block,
		Arena:   arena.New(4096),
		Host:    &host.Stub{},
	}
}

func TestCompile_Lambert(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	unit, diags := New().Compile(context.Background(), "lambert", lambertSource, env)
	require.False(t, diags.HasErrors(), diags.Error())
	require.NotNil(t, unit)

	assert.Equal(t, []string{"closure.lambert", "global.base_color", "global.center", "global.flip_normal"},
		unit.Dependencies())

	params := unit.Params()
	require.Len(t, params, 1)
	assert.Equal(t, "bxdf", params[0].Name)
	assert.Equal(t, sltype.Closure, params[0].Type)
	assert.True(t, params[0].Output)
}

func TestCompile_Diagnostics(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	b := New()

	cases := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "malformed source",
			source: `shader "broken" {`,
			want:   "", // any parse error
		},
		{
			name: "unknown global",
			source: `
shader "s" {
  output "o" {
    type = "color"
    value = global.missing
  }
}`,
			want: "Unknown global variable",
		},
		{
			name: "unknown closure type",
			source: `
shader "s" {
  output "o" {
    type = "closure"
    value = make_closure("phong")
  }
}`,
			want: "Unknown closure type",
		},
		{
			name: "unknown function",
			source: `
shader "s" {
  output "o" {
    type = "float"
    value = noise(1, 2)
  }
}`,
			want: "Unknown function",
		},
		{
			name: "undeclared input",
			source: `
shader "s" {
  output "o" {
    type = "float"
    value = param.missing
  }
}`,
			want: "Unknown input parameter",
		},
		{
			name: "no outputs",
			source: `
shader "s" {
  input "x" { type = "float" }
}`,
			want: "Shader has no outputs",
		},
		{
			name: "unknown parameter type",
			source: `
shader "s" {
  output "o" {
    type = "float3"
    value = 1
  }
}`,
			want: "Unknown parameter type",
		},
		{
			name: "default type mismatch",
			source: `
shader "s" {
  input "w" {
    type = "color"
    default = 0.5
  }
  output "o" {
    type = "color"
    value = param.w
  }
}`,
			want: "Default value type mismatch",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			unit, diags := b.Compile(context.Background(), "t", tc.source, env)
			assert.Nil(t, unit)
			require.True(t, diags.HasErrors())
			if tc.want != "" {
				assert.Contains(t, diags.Error(), tc.want)
			}
		})
	}
}

func TestExecute_Lambert(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	unit, diags := New().Compile(context.Background(), "lambert", lambertSource, env)
	require.False(t, diags.HasErrors(), diags.Error())

	ec := execContext(t, env)
	out, err := unit.Execute(context.Background(), ec, nil)
	require.NoError(t, err)

	raw, ok := sltype.ClosureNode(out["bxdf"])
	require.True(t, ok)
	node := raw.(*closure.TreeNode)

	desc, ok := env.Closures.Lookup("lambert")
	require.True(t, ok)
	assert.Equal(t, desc.ID, node.ID())

	params, err := node.DecodeParams()
	require.NoError(t, err)
	assert.True(t, params["base_color"].RawEquals(sltype.ColorVal(1, 0, 0)))
	assert.True(t, params["center"].RawEquals(sltype.VectorVal(0, 0, 0)))
	assert.True(t, params["flip_normal"].RawEquals(cty.False))
}

func TestExecute_InputDefaultsAndArgs(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	source := `
shader "scale" {
  input "weight" {
    type = "float"
    default = 0.25
  }
  output "out_weight" {
    type = "float"
    value = param.weight * 2
  }
}`
	unit, diags := New().Compile(context.Background(), "scale", source, env)
	require.False(t, diags.HasErrors(), diags.Error())

	ec := execContext(t, env)

	out, err := unit.Execute(context.Background(), ec, nil)
	require.NoError(t, err)
	assert.True(t, out["out_weight"].RawEquals(cty.NumberFloatVal(0.5)))

	out, err = unit.Execute(context.Background(), ec, map[string]cty.Value{
		"weight": cty.NumberFloatVal(2),
	})
	require.NoError(t, err)
	assert.True(t, out["out_weight"].RawEquals(cty.NumberFloatVal(4)))
}

func TestExecute_RequiredInputMissing(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	source := `
shader "needs" {
  input "c" { type = "color" }
  output "o" {
    type = "color"
    value = param.c
  }
}`
	unit, diags := New().Compile(context.Background(), "needs", source, env)
	require.False(t, diags.HasErrors(), diags.Error())

	_, err := unit.Execute(context.Background(), execContext(t, env), nil)
	assert.ErrorContains(t, err, `required input "c" has no value`)
}

func TestExecute_InputTypeMismatch(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	source := `
shader "needs" {
  input "c" { type = "color" }
  output "o" {
    type = "color"
    value = param.c
  }
}`
	unit, diags := New().Compile(context.Background(), "needs", source, env)
	require.False(t, diags.HasErrors(), diags.Error())

	_, err := unit.Execute(context.Background(), execContext(t, env), map[string]cty.Value{
		"c": cty.NumberFloatVal(1),
	})
	assert.ErrorContains(t, err, "wants color")
}

func TestExecute_OutputTypeMismatch(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	source := `
shader "bad" {
  output "o" {
    type = "color"
    value = 0.5
  }
}`
	unit, diags := New().Compile(context.Background(), "bad", source, env)
	require.False(t, diags.HasErrors(), diags.Error())

	_, err := unit.Execute(context.Background(), execContext(t, env), nil)
	assert.ErrorContains(t, err, "declared color but evaluated to")
}

func TestExecute_TextureSampling(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	source := `
shader "tex" {
  output "albedo" {
    type = "color"
    value = sample_texture(texture("checker"), 0.01, 0.01)
  }
  output "alpha" {
    type = "float"
    value = sample_alpha(texture("checker"), 0.01, 0.2)
  }
}`
	unit, diags := New().Compile(context.Background(), "tex", source, env)
	require.False(t, diags.HasErrors(), diags.Error())

	out, err := unit.Execute(context.Background(), execContext(t, env), nil)
	require.NoError(t, err)
	assert.True(t, out["albedo"].RawEquals(sltype.ColorVal(1, 1, 1)))
	assert.True(t, out["alpha"].RawEquals(cty.NumberFloatVal(0)))
}

func TestExecute_ArenaExhaustion(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	unit, diags := New().Compile(context.Background(), "lambert", lambertSource, env)
	require.False(t, diags.HasErrors(), diags.Error())

	ec := execContext(t, env)
	ec.Arena = arena.New(8) // deliberately too small for a lambert node

	_, err := unit.Execute(context.Background(), ec, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, arena.ErrExhausted)
}

func TestExecute_NestedClosures(t *testing.T) {
	t.Parallel()

	env := testEnv(t)
	layered, size := closure.AutoLayout([]closure.Field{
		{Name: "weight", Type: sltype.Float},
		{Name: "inner", Type: sltype.Closure},
	})
	_, err := env.Closures.Register("layered", layered, size)
	require.NoError(t, err)

	source := `
shader "layer" {
  output "bxdf" {
    type  = "closure"
    value = make_closure("layered", 0.5, make_closure("lambert", global.base_color, global.center, global.flip_normal))
  }
}`
	unit, diags := New().Compile(context.Background(), "layer", source, env)
	require.False(t, diags.HasErrors(), diags.Error())

	out, err := unit.Execute(context.Background(), execContext(t, env), nil)
	require.NoError(t, err)

	raw, ok := sltype.ClosureNode(out["bxdf"])
	require.True(t, ok)
	outer := raw.(*closure.TreeNode)

	layeredDesc, _ := env.Closures.Lookup("layered")
	assert.Equal(t, layeredDesc.ID, outer.ID())

	innerVal, err := outer.Get("inner")
	require.NoError(t, err)
	rawInner, ok := sltype.ClosureNode(innerVal)
	require.True(t, ok)
	lambertDesc, _ := env.Closures.Lookup("lambert")
	assert.Equal(t, lambertDesc.ID, rawInner.(*closure.TreeNode).ID())
}
