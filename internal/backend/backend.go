// Package backend declares the contract between the composition core and
// the compile backend that turns shader source into something executable.
// The core treats the backend as opaque: source text goes in, an
// executable unit or diagnostics come out. The stock implementation lives
// in the interp package; a bytecode VM or native codegen backend would
// satisfy the same interface.
package backend

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/arena"
	"github.com/vk/shadelink/internal/closure"
	"github.com/vk/shadelink/internal/global"
	"github.com/vk/shadelink/internal/host"
	"github.com/vk/shadelink/internal/sltype"
)

// Param is one declared parameter of a compiled unit's interface.
type Param struct {
	Name     string
	Type     sltype.Type
	Output   bool
	Default  *cty.Value
	Optional bool
}

// Required reports whether the parameter is an input that must be
// connected or defaulted before the unit can execute.
func (p Param) Required() bool {
	return !p.Output && p.Default == nil && !p.Optional
}

// Env carries the registries a backend validates references against at
// compile time: every global a shader reads and every closure type it
// constructs must already be registered.
type Env struct {
	Closures *closure.Registry
	Globals  *global.Registry
}

// ExecContext carries the per-evaluation state compiled code runs
// against. Each invocation supplies its own globals block and arena; the
// host interface is shared and must tolerate concurrent calls.
type ExecContext struct {
	Globals *global.Block
	Arena   *arena.Arena
	Host    host.Interface
}

// Unit is one executable representation produced by a backend, either
// from a single compiled source or from linking a group. A Unit is
// immutable after creation and safe for concurrent Execute calls.
type Unit interface {
	// Params lists the unit's declared inputs and outputs.
	Params() []Param

	// Dependencies reports the external names the unit references:
	// globals it reads and closure types it constructs.
	Dependencies() []string

	// Execute runs the unit against one evaluation's state. args carries
	// values for declared inputs; the result maps output names to values.
	Execute(ctx context.Context, ec *ExecContext, args map[string]cty.Value) (map[string]cty.Value, error)
}

// Connection is one directed parameter-to-parameter edge inside a group.
type Connection struct {
	SrcUnit  string
	SrcParam string
	DstUnit  string
	DstParam string
}

// DefaultBinding supplies a constant for an input left unconnected.
type DefaultBinding struct {
	Unit  string
	Param string
	Value cty.Value
}

// ExposedArg republishes an inner unit parameter as a group-level
// argument so the group composes as a black box.
type ExposedArg struct {
	Unit       string
	Param      string
	Descriptor Param
}

// Member is one named unit inside a link plan.
type Member struct {
	Name string
	Unit Unit
}

// LinkPlan is the ordered, fully wired description of a resolved group
// that the backend fuses into a single unit. Members arrive in execution
// (topological) order; Root names the member whose outputs become the
// group's outputs.
type LinkPlan struct {
	Name        string
	Members     []Member
	Root        string
	Connections []Connection
	Defaults    []DefaultBinding
	Exposed     []ExposedArg
}

// Backend compiles source text and links resolved groups. Diagnostics are
// the out-of-band error channel; a nil Unit plus error diagnostics means
// the operation failed.
type Backend interface {
	Compile(ctx context.Context, name, source string, env *Env) (Unit, hcl.Diagnostics)
	Link(ctx context.Context, plan *LinkPlan, env *Env) (Unit, hcl.Diagnostics)
}
