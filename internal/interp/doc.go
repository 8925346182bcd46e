// Package interp is the stock compile backend: an interpreter over
// HCL-syntax shader source. A shader unit is a single labeled shader
// block declaring typed input and output parameters; each output carries
// an expression evaluated per shading point against the host-supplied
// globals and the wired input values.
//
// The composition core only sees the backend.Backend interface, so this
// package is replaceable by any other executable representation (a
// bytecode VM, native codegen) without touching the core.
package interp
