package shading

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/shadelink/internal/ctxlog"
	"github.com/vk/shadelink/internal/host"
)

// Context drives template building and instance resolution for one
// goroutine. It tracks which templates are open (begun and not ended) so
// misordered calls are caught, and it forwards backend diagnostics to
// the host's diagnostic channel.
type Context struct {
	sys  *System
	open map[string]Template
}

// BeginShaderUnitTemplate claims a name and opens an empty unit template
// for compilation.
func (c *Context) BeginShaderUnitTemplate(name string) (*UnitTemplate, error) {
	if err := c.sys.guard(); err != nil {
		return nil, err
	}
	if err := c.sys.reserveName(name); err != nil {
		return nil, err
	}
	t := &UnitTemplate{sys: c.sys, name: name}
	c.open[name] = t
	return t, nil
}

// CompileShaderUnit compiles source into an open unit template. Failure
// is sticky: a template that failed to compile stays failed, and its
// diagnostics have already been reported to the host.
func (c *Context) CompileShaderUnit(ctx context.Context, t *UnitTemplate, source string) error {
	if err := c.sys.guard(); err != nil {
		return err
	}
	if _, ok := c.open[t.name]; !ok {
		return fmt.Errorf("template %q is not open in this context: %w", t.name, ErrContract)
	}
	if t.failed {
		return fmt.Errorf("template %q: a previous compile failed: %w", t.name, ErrCompilation)
	}
	if t.unit != nil {
		return fmt.Errorf("template %q is already compiled: %w", t.name, ErrContract)
	}

	unit, diags := c.sys.backend.Compile(ctx, t.name, source, c.sys.env())
	c.report(diags)
	if diags.HasErrors() || unit == nil {
		t.failed = true
		return fmt.Errorf("template %q: %w: %s", t.name, ErrCompilation, diags.Error())
	}
	t.unit = unit
	ctxlog.FromContext(ctx).Debug("Shader unit template compiled.", "name", t.name)
	return nil
}

// EndShaderUnitTemplate seals an open unit template. Ending a template
// that never compiled marks it permanently failed.
func (c *Context) EndShaderUnitTemplate(t *UnitTemplate) error {
	if _, ok := c.open[t.name]; !ok {
		return fmt.Errorf("template %q is not open in this context: %w", t.name, ErrContract)
	}
	delete(c.open, t.name)
	if !t.Compiled() {
		t.failed = true
		return fmt.Errorf("template %q was never compiled: %w", t.name, ErrCompilation)
	}
	return nil
}

// BeginShaderGroupTemplate claims a name and opens an empty group
// template for composition.
func (c *Context) BeginShaderGroupTemplate(name string) (*GroupTemplate, error) {
	if err := c.sys.guard(); err != nil {
		return nil, err
	}
	if err := c.sys.reserveName(name); err != nil {
		return nil, err
	}
	g := &GroupTemplate{
		UnitTemplate: &UnitTemplate{sys: c.sys, name: name},
		members:      make(map[string]*UnitTemplate),
	}
	c.open[name] = g
	return g, nil
}

// EndShaderGroupTemplate seals an open group template by resolving it:
// validating the composition, ordering the members, and linking them
// into one fused unit. All composition errors surface here.
func (c *Context) EndShaderGroupTemplate(ctx context.Context, g *GroupTemplate) error {
	if err := c.sys.guard(); err != nil {
		return err
	}
	if _, ok := c.open[g.name]; !ok {
		return fmt.Errorf("group %q is not open in this context: %w", g.name, ErrContract)
	}
	delete(c.open, g.name)

	if err := g.resolve(ctx); err != nil {
		g.failed = true
		c.sys.Host().ReportDiagnostic(host.LevelError, err.Error())
		return err
	}
	return nil
}

// ResolveShaderInstance links an instance against its template. The
// template must have compiled, and every one of its required inputs must
// already be bound by a connection, a default, or an exposed argument
// default; an instance takes no arguments at execution time.
func (c *Context) ResolveShaderInstance(ctx context.Context, inst *Instance) error {
	if err := c.sys.guard(); err != nil {
		return err
	}
	t := inst.tmpl
	if t.unit == nil {
		return fmt.Errorf("instance of %q: template never compiled: %w", t.name, ErrResolution)
	}
	for _, p := range t.unit.Params() {
		if p.Required() {
			return fmt.Errorf("instance of %q: required input %q is unbound: %w", t.name, p.Name, ErrResolution)
		}
	}
	inst.entry = t.unit
	ctxlog.FromContext(ctx).Debug("Shader instance resolved.", "template", t.name)
	return nil
}

// report forwards compile diagnostics to the host, errors and warnings
// alike, so the embedding application sees one stream.
func (c *Context) report(diags hcl.Diagnostics) {
	if len(diags) == 0 {
		return
	}
	h := c.sys.Host()
	for _, d := range diags {
		level := host.LevelWarning
		if d.Severity == hcl.DiagError {
			level = host.LevelError
		}
		h.ReportDiagnostic(level, d.Error())
	}
}
