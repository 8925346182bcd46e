package interp

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/backend"
)

// analyzeOutputs validates every symbol an output expression touches and
// collects the unit's external dependencies: globals it reads and closure
// types it constructs. Every closure name must already be registered when
// the shader compiles.
func analyzeOutputs(outputs []outputSpec, inputs map[string]backend.Param, env *backend.Env) ([]string, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	depSet := make(map[string]struct{})

	for _, out := range outputs {
		for _, traversal := range out.expr.Variables() {
			diags = append(diags, checkTraversal(traversal, inputs, env, depSet)...)
		}
		for _, call := range functionCalls(out.expr) {
			diags = append(diags, checkCall(call, env, depSet)...)
		}
	}

	deps := make([]string, 0, len(depSet))
	for d := range depSet {
		deps = append(deps, d)
	}
	sort.Strings(deps)
	return deps, diags
}

func checkTraversal(traversal hcl.Traversal, inputs map[string]backend.Param, env *backend.Env, depSet map[string]struct{}) hcl.Diagnostics {
	var diags hcl.Diagnostics
	root := traversal.RootName()

	switch root {
	case "global":
		if len(traversal) < 2 {
			return errAt(traversal.SourceRange(), "Invalid global reference",
				"Globals are read as global.<name>.")
		}
		attr, ok := traversal[1].(hcl.TraverseAttr)
		if !ok {
			return errAt(traversal.SourceRange(), "Invalid global reference",
				"Globals are read as global.<name>.")
		}
		if env != nil && env.Globals != nil {
			if _, registered := env.Globals.Lookup(attr.Name); !registered {
				return errAt(traversal.SourceRange(), "Unknown global variable",
					fmt.Sprintf("Global %q is not registered with the shading system.", attr.Name))
			}
		}
		depSet["global."+attr.Name] = struct{}{}
	case "param":
		if len(traversal) < 2 {
			return errAt(traversal.SourceRange(), "Invalid parameter reference",
				"Inputs are read as param.<name>.")
		}
		attr, ok := traversal[1].(hcl.TraverseAttr)
		if !ok {
			return errAt(traversal.SourceRange(), "Invalid parameter reference",
				"Inputs are read as param.<name>.")
		}
		if _, declared := inputs[attr.Name]; !declared {
			return errAt(traversal.SourceRange(), "Unknown input parameter",
				fmt.Sprintf("Input %q is not declared by this shader.", attr.Name))
		}
	default:
		return errAt(traversal.SourceRange(), "Unknown symbol",
			fmt.Sprintf("Root %q is not available; shaders read global.<name> and param.<name>.", root))
	}
	return diags
}

func checkCall(call *hclsyntax.FunctionCallExpr, env *backend.Env, depSet map[string]struct{}) hcl.Diagnostics {
	if _, known := builtinNames[call.Name]; !known {
		return errAt(call.NameRange, "Unknown function",
			fmt.Sprintf("Function %q is not a shading builtin.", call.Name))
	}
	if call.Name != "make_closure" {
		return nil
	}
	if len(call.Args) == 0 {
		return errAt(call.OpenParenRange, "Invalid make_closure call",
			"make_closure requires a closure type name as its first argument.")
	}

	// The closure name is usually a literal; when it is, require that the
	// type was registered before this shader compiled. Dynamic names are
	// checked at execution time instead.
	nameVal, diags := call.Args[0].Value(nil)
	if diags.HasErrors() || !nameVal.Type().Equals(cty.String) || !nameVal.IsKnown() {
		return nil
	}
	name := nameVal.AsString()
	if env != nil && env.Closures != nil {
		if _, ok := env.Closures.Lookup(name); !ok {
			return errAt(call.NameRange, "Unknown closure type",
				fmt.Sprintf("Closure type %q must be registered before compiling shaders that construct it.", name))
		}
	}
	depSet["closure."+name] = struct{}{}
	return nil
}

// functionCalls walks an expression tree and returns every function call
// node, including nested ones.
func functionCalls(expr hcl.Expression) []*hclsyntax.FunctionCallExpr {
	syn, ok := expr.(hclsyntax.Expression)
	if !ok {
		return nil
	}
	v := &callCollector{}
	hclsyntax.Walk(syn, v)
	return v.calls
}

type callCollector struct {
	calls []*hclsyntax.FunctionCallExpr
}

func (v *callCollector) Enter(node hclsyntax.Node) hcl.Diagnostics {
	if call, ok := node.(*hclsyntax.FunctionCallExpr); ok {
		v.calls = append(v.calls, call)
	}
	return nil
}

func (v *callCollector) Exit(node hclsyntax.Node) hcl.Diagnostics { return nil }

func errAt(rng hcl.Range, summary, detail string) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  rng.Ptr(),
	}}
}
