// Package sltype defines the semantic surface types of the shading
// language runtime and their two representations: the cty type used while
// evaluating shader code, and the fixed little-endian byte layout used
// when a value crosses the execution ABI (closure params, globals blocks).
//
// Color and vector are deliberately distinct types even though both are
// three numbers. Connections between shader parameters require exact type
// equality, so modelling them as one type would silently permit the
// float3-style coercions the wiring rules forbid.
package sltype
