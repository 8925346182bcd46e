package interp

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/vk/shadelink/internal/backend"
	"github.com/vk/shadelink/internal/closure"
	"github.com/vk/shadelink/internal/sltype"
)

// staticEvalContext provides the functions usable outside execution, e.g.
// in input defaults and scene constants. Nothing here touches per
// evaluation state.
func staticEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"color":   colorFunc,
			"vector":  vectorFunc,
			"texture": textureFunc,
		},
	}
}

// execFunctions builds the full builtin table for one execution. The
// closure constructor and texture samplers capture the evaluation state,
// so the table is rebuilt per invocation.
func execFunctions(env *backend.Env, ec *backend.ExecContext) map[string]function.Function {
	return map[string]function.Function{
		"color":          colorFunc,
		"vector":         vectorFunc,
		"texture":        textureFunc,
		"make_closure":   makeClosureFunc(env, ec),
		"sample_texture": sampleTextureFunc(ec),
		"sample_alpha":   sampleAlphaFunc(ec),
	}
}

// builtinNames is the set of callable function names, used for
// compile-time validation of shader source.
var builtinNames = map[string]struct{}{
	"color":          {},
	"vector":         {},
	"texture":        {},
	"make_closure":   {},
	"sample_texture": {},
	"sample_alpha":   {},
}

var colorFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "r", Type: cty.Number},
		{Name: "g", Type: cty.Number},
		{Name: "b", Type: cty.Number},
	},
	Type: function.StaticReturnType(sltype.Color.CtyType()),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		r, _ := args[0].AsBigFloat().Float64()
		g, _ := args[1].AsBigFloat().Float64()
		b, _ := args[2].AsBigFloat().Float64()
		return sltype.ColorVal(r, g, b), nil
	},
})

var vectorFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "x", Type: cty.Number},
		{Name: "y", Type: cty.Number},
		{Name: "z", Type: cty.Number},
	},
	Type: function.StaticReturnType(sltype.Vector.CtyType()),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		x, _ := args[0].AsBigFloat().Float64()
		y, _ := args[1].AsBigFloat().Float64()
		z, _ := args[2].AsBigFloat().Float64()
		return sltype.VectorVal(x, y, z), nil
	},
})

var textureFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "handle", Type: cty.String},
	},
	Type: function.StaticReturnType(sltype.Resource.CtyType()),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return sltype.ResourceVal(args[0].AsString()), nil
	},
})

// makeClosureFunc constructs a closure tree node from the evaluation's
// arena. Arguments map positionally onto the registered field order and
// must match the field types exactly.
func makeClosureFunc(env *backend.Env, ec *backend.ExecContext) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		VarParam: &function.Parameter{
			Name:             "fields",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		Type: function.StaticReturnType(sltype.Closure.CtyType()),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			name := args[0].AsString()
			desc, ok := env.Closures.Lookup(name)
			if !ok {
				return cty.NilVal, fmt.Errorf("closure type %q is not registered", name)
			}
			fieldArgs := args[1:]
			if len(fieldArgs) != len(desc.Fields) {
				return cty.NilVal, fmt.Errorf("make_closure(%q) takes %d field values, got %d",
					name, len(desc.Fields), len(fieldArgs))
			}

			node, err := closure.NewNode(ec.Arena, desc)
			if err != nil {
				return cty.NilVal, err
			}
			for i, f := range desc.Fields {
				v := fieldArgs[i]
				if !v.IsNull() && f.Type != sltype.Closure && !v.Type().Equals(f.Type.CtyType()) {
					return cty.NilVal, fmt.Errorf("make_closure(%q): field %q wants %s, got %s",
						name, f.Name, f.Type, v.Type().FriendlyName())
				}
				if err := node.Set(f.Name, v); err != nil {
					return cty.NilVal, err
				}
			}
			return sltype.ClosureVal(node), nil
		},
	})
}

func sampleTextureFunc(ec *backend.ExecContext) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "tex", Type: sltype.Resource.CtyType()},
			{Name: "u", Type: cty.Number},
			{Name: "v", Type: cty.Number},
		},
		Type: function.StaticReturnType(sltype.Color.CtyType()),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			if ec.Host == nil {
				return cty.NilVal, fmt.Errorf("sample_texture requires a registered host interface")
			}
			handle, _ := sltype.ResourceHandle(args[0])
			u, _ := args[1].AsBigFloat().Float64()
			v, _ := args[2].AsBigFloat().Float64()
			r, g, b := ec.Host.SampleTexture(handle, u, v)
			return sltype.ColorVal(r, g, b), nil
		},
	})
}

func sampleAlphaFunc(ec *backend.ExecContext) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "tex", Type: sltype.Resource.CtyType()},
			{Name: "u", Type: cty.Number},
			{Name: "v", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			if ec.Host == nil {
				return cty.NilVal, fmt.Errorf("sample_alpha requires a registered host interface")
			}
			handle, _ := sltype.ResourceHandle(args[0])
			u, _ := args[1].AsBigFloat().Float64()
			v, _ := args[2].AsBigFloat().Float64()
			return cty.NumberFloatVal(ec.Host.SampleAlpha(handle, u, v)), nil
		},
	})
}
