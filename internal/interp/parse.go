package interp

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/backend"
	"github.com/vk/shadelink/internal/sltype"
)

// rootSchema expects exactly one labeled shader block per source.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "shader", LabelNames: []string{"name"}},
	},
}

// shaderBodySchema defines the body of a shader block.
var shaderBodySchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "input", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
	},
}

var inputBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type", Required: true},
		{Name: "default"},
		{Name: "optional"},
	},
}

var outputBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type", Required: true},
		{Name: "value", Required: true},
	},
}

// outputSpec is one output parameter and its unevaluated expression.
type outputSpec struct {
	name string
	typ  sltype.Type
	expr hcl.Expression
}

// parseShader decodes shader source into declared params and output
// expressions. filename only labels diagnostics.
func parseShader(source, filename string) (string, []backend.Param, []outputSpec, hcl.Diagnostics) {
	file, diags := hclsyntax.ParseConfig([]byte(source), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return "", nil, nil, diags
	}

	content, contentDiags := file.Body.Content(rootSchema)
	diags = append(diags, contentDiags...)
	if contentDiags.HasErrors() {
		return "", nil, nil, diags
	}
	if len(content.Blocks) != 1 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid shader source",
			Detail:   fmt.Sprintf("Expected exactly one shader block, found %d.", len(content.Blocks)),
		})
		return "", nil, nil, diags
	}

	block := content.Blocks[0]
	shaderName := block.Labels[0]

	body, bodyDiags := block.Body.Content(shaderBodySchema)
	diags = append(diags, bodyDiags...)
	if bodyDiags.HasErrors() {
		return shaderName, nil, nil, diags
	}

	var params []backend.Param
	var outputs []outputSpec
	seen := make(map[string]struct{})

	for _, b := range body.Blocks {
		paramName := b.Labels[0]
		if _, dup := seen[paramName]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate parameter",
				Detail:   fmt.Sprintf("Parameter %q is declared more than once.", paramName),
				Subject:  b.DefRange.Ptr(),
			})
			continue
		}
		seen[paramName] = struct{}{}

		switch b.Type {
		case "input":
			param, inDiags := parseInput(paramName, b)
			diags = append(diags, inDiags...)
			if !inDiags.HasErrors() {
				params = append(params, param)
			}
		case "output":
			param, spec, outDiags := parseOutput(paramName, b)
			diags = append(diags, outDiags...)
			if !outDiags.HasErrors() {
				params = append(params, param)
				outputs = append(outputs, spec)
			}
		}
	}

	if len(outputs) == 0 && !diags.HasErrors() {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Shader has no outputs",
			Detail:   fmt.Sprintf("Shader %q must declare at least one output block.", shaderName),
			Subject:  block.DefRange.Ptr(),
		})
	}

	return shaderName, params, outputs, diags
}

func parseInput(name string, block *hcl.Block) (backend.Param, hcl.Diagnostics) {
	content, diags := block.Body.Content(inputBodySchema)
	if diags.HasErrors() {
		return backend.Param{}, diags
	}

	typ, typeDiags := parseTypeAttr(content.Attributes["type"])
	diags = append(diags, typeDiags...)
	if typeDiags.HasErrors() {
		return backend.Param{}, diags
	}

	param := backend.Param{Name: name, Type: typ}

	if attr, ok := content.Attributes["optional"]; ok {
		val, valDiags := attr.Expr.Value(nil)
		diags = append(diags, valDiags...)
		if !valDiags.HasErrors() {
			if !val.Type().Equals(cty.Bool) {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid optional flag",
					Detail:   fmt.Sprintf("Input %q: optional must be a bool.", name),
					Subject:  attr.Range.Ptr(),
				})
			} else {
				param.Optional = val.True()
			}
		}
	}

	if attr, ok := content.Attributes["default"]; ok {
		val, valDiags := attr.Expr.Value(staticEvalContext())
		diags = append(diags, valDiags...)
		if !valDiags.HasErrors() {
			if !val.Type().Equals(typ.CtyType()) {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Default value type mismatch",
					Detail: fmt.Sprintf("Input %q is declared %s but its default is %s.",
						name, typ, val.Type().FriendlyName()),
					Subject: attr.Range.Ptr(),
				})
			} else {
				param.Default = &val
			}
		}
	}

	return param, diags
}

func parseOutput(name string, block *hcl.Block) (backend.Param, outputSpec, hcl.Diagnostics) {
	content, diags := block.Body.Content(outputBodySchema)
	if diags.HasErrors() {
		return backend.Param{}, outputSpec{}, diags
	}

	typ, typeDiags := parseTypeAttr(content.Attributes["type"])
	diags = append(diags, typeDiags...)
	if typeDiags.HasErrors() {
		return backend.Param{}, outputSpec{}, diags
	}

	param := backend.Param{Name: name, Type: typ, Output: true}
	spec := outputSpec{name: name, typ: typ, expr: content.Attributes["value"].Expr}
	return param, spec, diags
}

func parseTypeAttr(attr *hcl.Attribute) (sltype.Type, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	val, valDiags := attr.Expr.Value(nil)
	diags = append(diags, valDiags...)
	if valDiags.HasErrors() {
		return sltype.Invalid, diags
	}
	if !val.Type().Equals(cty.String) {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid type attribute",
			Detail:   "Parameter type must be a string such as \"color\" or \"closure\".",
			Subject:  attr.Range.Ptr(),
		})
		return sltype.Invalid, diags
	}

	typ, err := sltype.Parse(val.AsString())
	if err != nil {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unknown parameter type",
			Detail:   err.Error(),
			Subject:  attr.Range.Ptr(),
		})
		return sltype.Invalid, diags
	}
	return typ, diags
}
