package interp

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/backend"
	"github.com/vk/shadelink/internal/ctxlog"
)

// Link fuses a resolved group into a single executable unit. The plan
// arrives validated and topologically ordered from the composition core;
// linking records the wiring in a form the fused Execute can replay.
func (i *Interpreter) Link(ctx context.Context, plan *backend.LinkPlan, env *backend.Env) (backend.Unit, hcl.Diagnostics) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Linking shader group.", "name", plan.Name, "members", len(plan.Members))

	if len(plan.Members) == 0 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Empty link plan",
			Detail:   fmt.Sprintf("Group %q has no members to link.", plan.Name),
		}}
	}

	g := &groupUnit{
		name:       plan.Name,
		root:       plan.Root,
		members:    plan.Members,
		memberByID: make(map[string]backend.Unit, len(plan.Members)),
		wiring:     make(map[string]map[string]backend.Connection),
		defaults:   make(map[string]map[string]cty.Value),
		exposedIn:  make(map[string]backend.ExposedArg),
	}

	for _, m := range plan.Members {
		g.memberByID[m.Name] = m.Unit
	}
	if _, ok := g.memberByID[plan.Root]; !ok {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing root member",
			Detail:   fmt.Sprintf("Group %q names root %q, which is not a member.", plan.Name, plan.Root),
		}}
	}

	for _, c := range plan.Connections {
		if g.wiring[c.DstUnit] == nil {
			g.wiring[c.DstUnit] = make(map[string]backend.Connection)
		}
		g.wiring[c.DstUnit][c.DstParam] = c
	}
	for _, d := range plan.Defaults {
		if g.defaults[d.Unit] == nil {
			g.defaults[d.Unit] = make(map[string]cty.Value)
		}
		g.defaults[d.Unit][d.Param] = d.Value
	}
	for _, e := range plan.Exposed {
		if e.Descriptor.Output {
			g.exposedOut = append(g.exposedOut, e)
		} else {
			g.exposedIn[e.Descriptor.Name] = e
		}
	}

	g.params = fusedParams(g)
	g.deps = memberNames(plan.Members)

	logger.Debug("Shader group linked.", "name", plan.Name, "root", plan.Root)
	return g, nil
}

// groupUnit is the fused executable form of a resolved shader group. To
// any caller it is indistinguishable from a leaf unit.
type groupUnit struct {
	name       string
	root       string
	members    []backend.Member
	memberByID map[string]backend.Unit
	wiring     map[string]map[string]backend.Connection
	defaults   map[string]map[string]cty.Value
	exposedIn  map[string]backend.ExposedArg
	exposedOut []backend.ExposedArg
	params     []backend.Param
	deps       []string
}

var _ backend.Unit = (*groupUnit)(nil)

func (g *groupUnit) Params() []backend.Param { return g.params }

func (g *groupUnit) Dependencies() []string { return g.deps }

// Execute runs the members in their resolved order, forwarding connected
// outputs into downstream inputs, then publishes the root's outputs and
// any exposed output arguments as the group's result.
func (g *groupUnit) Execute(ctx context.Context, ec *backend.ExecContext, args map[string]cty.Value) (map[string]cty.Value, error) {
	produced := make(map[string]map[string]cty.Value, len(g.members))

	for _, m := range g.members {
		memberArgs := make(map[string]cty.Value)

		for _, p := range m.Unit.Params() {
			if p.Output {
				continue
			}
			if v, ok := g.argFor(m.Name, p.Name, args, produced); ok {
				memberArgs[p.Name] = v
			}
		}

		out, err := m.Unit.Execute(ctx, ec, memberArgs)
		if err != nil {
			return nil, fmt.Errorf("group %q: member %q: %w", g.name, m.Name, err)
		}
		produced[m.Name] = out
	}

	results := make(map[string]cty.Value)
	for name, v := range produced[g.root] {
		results[name] = v
	}
	for _, e := range g.exposedOut {
		memberOut, ok := produced[e.Unit]
		if !ok {
			return nil, fmt.Errorf("group %q: exposed output %q references member %q with no results",
				g.name, e.Descriptor.Name, e.Unit)
		}
		v, ok := memberOut[e.Param]
		if !ok {
			return nil, fmt.Errorf("group %q: exposed output %q references missing output %s.%s",
				g.name, e.Descriptor.Name, e.Unit, e.Param)
		}
		results[e.Descriptor.Name] = v
	}
	return results, nil
}

// argFor resolves the value feeding one member input, in precedence
// order: group-level exposed argument, wired connection, group default.
// An absent value defers to the member's own declared default.
func (g *groupUnit) argFor(member, param string, args map[string]cty.Value, produced map[string]map[string]cty.Value) (cty.Value, bool) {
	for name, e := range g.exposedIn {
		if e.Unit == member && e.Param == param {
			if v, ok := args[name]; ok {
				return v, true
			}
			if e.Descriptor.Default != nil {
				return *e.Descriptor.Default, true
			}
		}
	}
	if conns, ok := g.wiring[member]; ok {
		if c, ok := conns[param]; ok {
			if srcOut, ok := produced[c.SrcUnit]; ok {
				if v, ok := srcOut[c.SrcParam]; ok {
					return v, true
				}
			}
		}
	}
	if defs, ok := g.defaults[member]; ok {
		if v, ok := defs[param]; ok {
			return v, true
		}
	}
	return cty.NilVal, false
}

// fusedParams publishes the group's parameter interface: the exposed
// arguments plus the root's outputs, with exposed names winning on
// collision.
func fusedParams(g *groupUnit) []backend.Param {
	var params []backend.Param
	taken := make(map[string]struct{})

	exposedNames := make([]string, 0, len(g.exposedIn))
	for name := range g.exposedIn {
		exposedNames = append(exposedNames, name)
	}
	sort.Strings(exposedNames)
	for _, name := range exposedNames {
		params = append(params, g.exposedIn[name].Descriptor)
		taken[name] = struct{}{}
	}
	for _, e := range g.exposedOut {
		params = append(params, e.Descriptor)
		taken[e.Descriptor.Name] = struct{}{}
	}

	for _, p := range g.memberByID[g.root].Params() {
		if !p.Output {
			continue
		}
		if _, shadowed := taken[p.Name]; shadowed {
			continue
		}
		params = append(params, p)
	}
	return params
}

func memberNames(members []backend.Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}
