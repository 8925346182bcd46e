// Package shading is the composition core of the runtime: shader unit
// and group templates, resolved shader instances, the per-thread Context
// that drives compilation and resolution, and the process-wide System
// that owns the registries and the host callback interface.
//
// Ownership and threading follow a strict shape. The System is created
// once and is safe for concurrent registration reads; inserting new
// names is writer-exclusive. A Context is confined to one goroutine for
// its whole life and owns all in-flight compile and resolve state. A
// template that finished compiling or resolving is immutable and freely
// shared; any number of instances on any number of goroutines may
// execute against it, each invocation bringing its own globals block and
// arena. Closing the System invalidates every template, instance, and
// context derived from it, and that invalidation is checked rather than
// undefined.
package shading
