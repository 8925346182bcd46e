package shading

import "errors"

// The four failure classes of the runtime. Every error returned by this
// package wraps exactly one of them, so callers classify with errors.Is.
var (
	// ErrCompilation marks malformed shader source. The template that
	// failed is permanently unusable for instancing or composition.
	ErrCompilation = errors.New("shader compilation failed")

	// ErrComposition marks an invalid group: a missing unit or parameter
	// reference, a type-mismatched connection, an unconnected required
	// input, zero or multiple roots, or a connection cycle. All of these
	// surface when the group resolves, not when the edge is declared.
	ErrComposition = errors.New("shader composition failed")

	// ErrResolution marks an instance that could not be linked, because
	// its template never compiled or the backend failed to bind it.
	ErrResolution = errors.New("shader resolution failed")

	// ErrContract marks a caller contract violation: using a torn-down
	// system, executing an unresolved instance, or similar misuse that a
	// hardened runtime detects instead of corrupting.
	ErrContract = errors.New("shading contract violation")
)
