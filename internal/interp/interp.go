package interp

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/backend"
	"github.com/vk/shadelink/internal/ctxlog"
)

// Interpreter is the stock backend.Backend implementation.
type Interpreter struct{}

var _ backend.Backend = (*Interpreter)(nil)

// New creates the stock interpreter backend.
func New() *Interpreter {
	return &Interpreter{}
}

// Compile parses and validates shader source, returning an executable
// unit or error diagnostics. A unit that fails here is unusable; there is
// no partial compilation.
func (i *Interpreter) Compile(ctx context.Context, name, source string, env *backend.Env) (backend.Unit, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Compiling shader unit.", "name", name)

	shaderName, params, outputs, diags := parseShader(source, name+".sl")
	if diags.HasErrors() {
		return nil, diags
	}

	inputs := make(map[string]backend.Param)
	for _, p := range params {
		if !p.Output {
			inputs[p.Name] = p
		}
	}

	deps, depDiags := analyzeOutputs(outputs, inputs, env)
	diags = append(diags, depDiags...)
	if diags.HasErrors() {
		return nil, diags
	}

	logger.Debug("Shader unit compiled.", "name", name, "shader", shaderName,
		"params", len(params), "deps", deps)

	return &unit{
		name:    name,
		params:  params,
		outputs: outputs,
		deps:    deps,
		env:     env,
	}, diags
}

// unit is one interpreted shader unit. It is immutable after Compile and
// safe for concurrent Execute calls: all mutable state lives in the
// per-invocation ExecContext.
type unit struct {
	name    string
	params  []backend.Param
	outputs []outputSpec
	deps    []string
	env     *backend.Env
}

var _ backend.Unit = (*unit)(nil)

func (u *unit) Params() []backend.Param { return u.params }

func (u *unit) Dependencies() []string { return u.deps }

// Execute evaluates the unit's outputs in declaration order against one
// evaluation's globals, arena, and wired input values.
func (u *unit) Execute(ctx context.Context, ec *backend.ExecContext, args map[string]cty.Value) (map[string]cty.Value, error) {
	paramVals, err := u.bindInputs(args)
	if err != nil {
		return nil, err
	}

	globalVals := map[string]cty.Value{}
	if ec.Globals != nil {
		globalVals, err = ec.Globals.Values()
		if err != nil {
			return nil, fmt.Errorf("shader %q: reading globals block: %w", u.name, err)
		}
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"global": objectVal(globalVals),
			"param":  objectVal(paramVals),
		},
		Functions: execFunctions(u.env, ec),
	}

	results := make(map[string]cty.Value, len(u.outputs))
	for _, out := range u.outputs {
		val, diags := out.expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("shader %q: evaluating output %q: %s", u.name, out.name, diags.Error())
		}
		if !val.IsNull() && !val.Type().Equals(out.typ.CtyType()) {
			return nil, fmt.Errorf("shader %q: output %q is declared %s but evaluated to %s",
				u.name, out.name, out.typ, val.Type().FriendlyName())
		}
		results[out.name] = val
	}
	return results, nil
}

// bindInputs merges wired argument values with declared defaults and
// verifies exact type matches. A required input with no value is an
// execution error; the wiring checks at resolution time make that
// unreachable for linked groups.
func (u *unit) bindInputs(args map[string]cty.Value) (map[string]cty.Value, error) {
	vals := make(map[string]cty.Value)
	for _, p := range u.params {
		if p.Output {
			continue
		}
		if v, ok := args[p.Name]; ok {
			if !v.IsNull() && !v.Type().Equals(p.Type.CtyType()) {
				return nil, fmt.Errorf("shader %q: input %q wants %s, got %s",
					u.name, p.Name, p.Type, v.Type().FriendlyName())
			}
			vals[p.Name] = v
			continue
		}
		if p.Default != nil {
			vals[p.Name] = *p.Default
			continue
		}
		if p.Optional {
			vals[p.Name] = cty.NullVal(p.Type.CtyType())
			continue
		}
		return nil, fmt.Errorf("shader %q: required input %q has no value", u.name, p.Name)
	}
	return vals, nil
}

func objectVal(vals map[string]cty.Value) cty.Value {
	if len(vals) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vals)
}
