// Package closure implements the closure type registry and the tagged
// value protocol of shader execution results.
//
// A closure type is registered once, by name, with an ordered set of
// typed, offset-addressed fields. Execution produces a tree of TreeNodes,
// each tagged with its registered ClosureID and carrying a params blob
// laid out exactly per the registered descriptor. The node set behaves as
// a disjoint tagged union indexed by ClosureID: a reader switches on the
// ID and then accesses fields through the descriptor, never through
// unchecked raw memory.
//
// Params blobs live in the evaluation arena. Every accessor re-validates
// the arena generation, so reading a node after its arena was reset is a
// reported error rather than a read of recycled memory.
package closure
