package shading

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/arena"
	"github.com/vk/shadelink/internal/backend"
	"github.com/vk/shadelink/internal/closure"
	"github.com/vk/shadelink/internal/global"
	"github.com/vk/shadelink/internal/sltype"
)

// Instance is one executable binding of a template. It starts unresolved
// and becomes executable after Context.ResolveShaderInstance succeeds;
// there is no third state. A resolved instance is immutable and may be
// executed from many goroutines at once, each call bringing its own
// globals block and arena.
type Instance struct {
	tmpl  *UnitTemplate
	entry backend.Unit
}

// Template returns the template the instance was cut from.
func (i *Instance) Template() *UnitTemplate { return i.tmpl }

// Resolved reports whether the instance is executable.
func (i *Instance) Resolved() bool { return i.entry != nil }

// ExecuteOutputs runs the instance and returns every declared output by
// name. Inputs are fed entirely from the globals block, wired
// connections, and declared defaults; there are no per-call arguments.
func (i *Instance) ExecuteOutputs(ctx context.Context, globals *global.Block, ar *arena.Arena) (map[string]cty.Value, error) {
	if err := i.tmpl.sys.guard(); err != nil {
		return nil, fmt.Errorf("executing instance of %q: %w", i.tmpl.name, err)
	}
	if i.entry == nil {
		return nil, fmt.Errorf("executing instance of %q: instance was never resolved: %w", i.tmpl.name, ErrContract)
	}
	ec := &backend.ExecContext{
		Globals: globals,
		Arena:   ar,
		Host:    i.tmpl.sys.Host(),
	}
	return i.entry.Execute(ctx, ec, nil)
}

// Execute runs the instance and returns the root of the closure tree it
// built: the value of the first closure-typed output in declaration
// order. A null closure output yields a nil tree, which hosts treat as
// "no contribution".
func (i *Instance) Execute(ctx context.Context, globals *global.Block, ar *arena.Arena) (*closure.TreeNode, error) {
	out, err := i.ExecuteOutputs(ctx, globals, ar)
	if err != nil {
		return nil, err
	}
	for _, p := range i.entry.Params() {
		if !p.Output || p.Type != sltype.Closure {
			continue
		}
		v, ok := out[p.Name]
		if !ok || v.IsNull() {
			return nil, nil
		}
		raw, ok := sltype.ClosureNode(v)
		if !ok {
			return nil, fmt.Errorf("instance of %q: output %q is not a closure value", i.tmpl.name, p.Name)
		}
		node, ok := raw.(*closure.TreeNode)
		if !ok {
			return nil, fmt.Errorf("instance of %q: output %q holds foreign closure payload %T", i.tmpl.name, p.Name, raw)
		}
		return node, nil
	}
	return nil, fmt.Errorf("instance of %q declares no closure output", i.tmpl.name)
}
