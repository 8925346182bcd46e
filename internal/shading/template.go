package shading

import (
	"github.com/vk/shadelink/internal/backend"
)

// Template is the shared face of unit and group templates. A group
// composes other templates without caring whether each member is a leaf
// unit or a nested, already-resolved group.
type Template interface {
	// Name returns the system-wide unique template name.
	Name() string

	// Compiled reports whether the template holds an executable unit. A
	// unit template compiles from source; a group template compiles by
	// resolving.
	Compiled() bool

	base() *UnitTemplate
}

// UnitTemplate is one named shader compiled from source. It is built
// through a Context and immutable once compiled; after that any number
// of instances may be cut from it concurrently.
type UnitTemplate struct {
	sys    *System
	name   string
	unit   backend.Unit
	failed bool
}

var _ Template = (*UnitTemplate)(nil)

func (t *UnitTemplate) Name() string { return t.name }

func (t *UnitTemplate) Compiled() bool { return t.unit != nil }

func (t *UnitTemplate) base() *UnitTemplate { return t }

// Params lists the compiled interface, or nil before compilation.
func (t *UnitTemplate) Params() []backend.Param {
	if t.unit == nil {
		return nil
	}
	return t.unit.Params()
}

// Dependencies reports the globals the compiled shader reads and the
// closure types it constructs, or nil before compilation.
func (t *UnitTemplate) Dependencies() []string {
	if t.unit == nil {
		return nil
	}
	return t.unit.Dependencies()
}

// MakeShaderInstance cuts a fresh, unresolved instance from the
// template. The instance must be resolved through a Context before it
// can execute.
func (t *UnitTemplate) MakeShaderInstance() *Instance {
	return &Instance{tmpl: t}
}
