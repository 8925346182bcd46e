package shading

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/backend"
	"github.com/vk/shadelink/internal/ctxlog"
	"github.com/vk/shadelink/internal/graph"
)

// GroupTemplate composes compiled templates into a directed wiring of
// units. The builder methods only record intent; every structural check
// runs when the group resolves, so a half-built group is never partially
// validated. A resolved group is itself a Template and nests into larger
// groups as a black box.
type GroupTemplate struct {
	*UnitTemplate

	members     map[string]*UnitTemplate
	order       []string
	roots       []string
	connections []backend.Connection
	defaults    []backend.DefaultBinding
	exposed     []backend.ExposedArg
}

var _ Template = (*GroupTemplate)(nil)

// AddShaderUnit adds a member under a group-local name. The root member
// is the one whose outputs become the group's outputs.
func (g *GroupTemplate) AddShaderUnit(name string, t Template, isRoot bool) error {
	if err := g.editable(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("group %q: member name must not be empty: %w", g.name, ErrComposition)
	}
	if t == nil {
		return fmt.Errorf("group %q: member %q has no template: %w", g.name, name, ErrComposition)
	}
	if _, dup := g.members[name]; dup {
		return fmt.Errorf("group %q: member %q added twice: %w", g.name, name, ErrComposition)
	}
	g.members[name] = t.base()
	g.order = append(g.order, name)
	if isRoot {
		g.roots = append(g.roots, name)
	}
	return nil
}

// ConnectShaderUnits wires an upstream output into a downstream input.
// Endpoints and types are validated at resolution.
func (g *GroupTemplate) ConnectShaderUnits(srcUnit, srcParam, dstUnit, dstParam string) error {
	if err := g.editable(); err != nil {
		return err
	}
	g.connections = append(g.connections, backend.Connection{
		SrcUnit:  srcUnit,
		SrcParam: srcParam,
		DstUnit:  dstUnit,
		DstParam: dstParam,
	})
	return nil
}

// ExposeShaderArgument republishes a member parameter as a group-level
// argument under the descriptor's name.
func (g *GroupTemplate) ExposeShaderArgument(unit, param string, desc backend.Param) error {
	if err := g.editable(); err != nil {
		return err
	}
	g.exposed = append(g.exposed, backend.ExposedArg{Unit: unit, Param: param, Descriptor: desc})
	return nil
}

// InitShaderInput pins a constant onto a member input that will not be
// connected or exposed.
func (g *GroupTemplate) InitShaderInput(unit, param string, value cty.Value) error {
	if err := g.editable(); err != nil {
		return err
	}
	g.defaults = append(g.defaults, backend.DefaultBinding{Unit: unit, Param: param, Value: value})
	return nil
}

func (g *GroupTemplate) editable() error {
	if g.unit != nil {
		return fmt.Errorf("group %q is already resolved: %w", g.name, ErrContract)
	}
	if g.failed {
		return fmt.Errorf("group %q already failed to resolve: %w", g.name, ErrComposition)
	}
	return nil
}

// resolve validates the composition and links it into one fused unit:
// member and root checks, endpoint and type checks on every connection,
// cycle detection, topological ordering, and required-input coverage,
// then the backend link.
func (g *GroupTemplate) resolve(ctx context.Context) error {
	if len(g.members) == 0 {
		return g.fail("group has no members")
	}
	switch len(g.roots) {
	case 0:
		return g.fail("group has no root unit")
	case 1:
	default:
		return g.fail(fmt.Sprintf("group declares %d root units", len(g.roots)))
	}
	for _, name := range g.order {
		if !g.members[name].Compiled() {
			return g.fail(fmt.Sprintf("member %q uses a template that never compiled", name))
		}
	}

	if err := g.checkConnections(); err != nil {
		return err
	}
	if err := g.checkExposed(); err != nil {
		return err
	}
	if err := g.checkDefaults(); err != nil {
		return err
	}

	dg := graph.New()
	for _, name := range g.order {
		dg.AddNode(name)
	}
	for _, conn := range g.connections {
		if err := dg.AddEdge(conn.SrcUnit, conn.DstUnit); err != nil {
			return g.fail(err.Error())
		}
	}
	order, err := dg.TopoSort()
	if err != nil {
		return g.fail(err.Error())
	}

	if err := g.checkCoverage(); err != nil {
		return err
	}

	plan := &backend.LinkPlan{
		Name:        g.name,
		Root:        g.roots[0],
		Connections: g.connections,
		Defaults:    g.defaults,
		Exposed:     g.exposed,
	}
	for _, name := range order {
		plan.Members = append(plan.Members, backend.Member{Name: name, Unit: g.members[name].unit})
	}

	unit, diags := g.sys.backend.Link(ctx, plan, g.sys.env())
	if diags.HasErrors() || unit == nil {
		return g.fail("linking failed: " + diags.Error())
	}
	g.unit = unit

	ctxlog.FromContext(ctx).Debug("Shader group template resolved.",
		"name", g.name, "members", len(order), "root", g.roots[0])
	return nil
}

func (g *GroupTemplate) checkConnections() error {
	for _, conn := range g.connections {
		srcParam, err := g.memberParam(conn.SrcUnit, conn.SrcParam)
		if err != nil {
			return err
		}
		if !srcParam.Output {
			return g.fail(fmt.Sprintf("%s.%s is an input, not an output", conn.SrcUnit, conn.SrcParam))
		}
		dstParam, err := g.memberParam(conn.DstUnit, conn.DstParam)
		if err != nil {
			return err
		}
		if dstParam.Output {
			return g.fail(fmt.Sprintf("%s.%s is an output, not an input", conn.DstUnit, conn.DstParam))
		}
		if srcParam.Type != dstParam.Type {
			return g.fail(fmt.Sprintf("connection %s.%s -> %s.%s: type mismatch, %s does not match %s",
				conn.SrcUnit, conn.SrcParam, conn.DstUnit, conn.DstParam, srcParam.Type, dstParam.Type))
		}
	}
	return nil
}

func (g *GroupTemplate) checkExposed() error {
	seen := make(map[string]struct{}, len(g.exposed))
	for _, e := range g.exposed {
		name := e.Descriptor.Name
		if name == "" {
			return g.fail(fmt.Sprintf("exposed argument for %s.%s has no name", e.Unit, e.Param))
		}
		if _, dup := seen[name]; dup {
			return g.fail(fmt.Sprintf("exposed argument %q declared twice", name))
		}
		seen[name] = struct{}{}

		p, err := g.memberParam(e.Unit, e.Param)
		if err != nil {
			return err
		}
		if p.Output != e.Descriptor.Output {
			return g.fail(fmt.Sprintf("exposed argument %q disagrees with %s.%s about direction", name, e.Unit, e.Param))
		}
		if p.Type != e.Descriptor.Type {
			return g.fail(fmt.Sprintf("exposed argument %q is %s but %s.%s is %s",
				name, e.Descriptor.Type, e.Unit, e.Param, p.Type))
		}
		if e.Descriptor.Default != nil && !e.Descriptor.Default.Type().Equals(e.Descriptor.Type.CtyType()) {
			return g.fail(fmt.Sprintf("exposed argument %q: default value does not match declared type %s",
				name, e.Descriptor.Type))
		}
	}
	return nil
}

func (g *GroupTemplate) checkDefaults() error {
	for _, d := range g.defaults {
		p, err := g.memberParam(d.Unit, d.Param)
		if err != nil {
			return err
		}
		if p.Output {
			return g.fail(fmt.Sprintf("%s.%s is an output and cannot take a default", d.Unit, d.Param))
		}
		if !d.Value.Type().Equals(p.Type.CtyType()) {
			return g.fail(fmt.Sprintf("default for %s.%s does not match declared type %s", d.Unit, d.Param, p.Type))
		}
	}
	return nil
}

// checkCoverage verifies that every required member input is fed by a
// connection, a pinned default, or exposure as a group argument. An
// exposed argument without its own default defers the obligation to
// whoever consumes the group.
func (g *GroupTemplate) checkCoverage() error {
	covered := make(map[string]struct{})
	key := func(unit, param string) string { return unit + "\x00" + param }

	for _, conn := range g.connections {
		covered[key(conn.DstUnit, conn.DstParam)] = struct{}{}
	}
	for _, d := range g.defaults {
		covered[key(d.Unit, d.Param)] = struct{}{}
	}
	for _, e := range g.exposed {
		if !e.Descriptor.Output {
			covered[key(e.Unit, e.Param)] = struct{}{}
		}
	}

	for _, name := range g.order {
		for _, p := range g.members[name].unit.Params() {
			if !p.Required() {
				continue
			}
			if _, ok := covered[key(name, p.Name)]; !ok {
				return g.fail(fmt.Sprintf("required input %s.%s is unconnected", name, p.Name))
			}
		}
	}
	return nil
}

func (g *GroupTemplate) memberParam(unit, param string) (backend.Param, error) {
	m, ok := g.members[unit]
	if !ok {
		return backend.Param{}, g.fail(fmt.Sprintf("unknown member unit %q", unit))
	}
	for _, p := range m.unit.Params() {
		if p.Name == param {
			return p, nil
		}
	}
	return backend.Param{}, g.fail(fmt.Sprintf("member %q has no parameter %q", unit, param))
}

func (g *GroupTemplate) fail(msg string) error {
	return fmt.Errorf("group %q: %s: %w", g.name, msg, ErrComposition)
}
