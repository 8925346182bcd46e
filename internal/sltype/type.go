package sltype

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Type identifies one semantic type of the shading language surface.
type Type int

const (
	Invalid Type = iota
	Float
	Double
	Int
	Bool
	Color
	Vector
	String
	Closure
	Resource
)

var typeNames = map[Type]string{
	Float:    "float",
	Double:   "double",
	Int:      "int",
	Bool:     "bool",
	Color:    "color",
	Vector:   "vector",
	String:   "string",
	Closure:  "closure",
	Resource: "resource",
}

var namedTypes = func() map[string]Type {
	m := make(map[string]Type, len(typeNames))
	for t, n := range typeNames {
		m[n] = t
	}
	return m
}()

// Parse resolves a type name as written in shader source or a scene file.
func Parse(name string) (Type, error) {
	if t, ok := namedTypes[name]; ok {
		return t, nil
	}
	return Invalid, fmt.Errorf("unknown shading type %q", name)
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("invalid(%d)", int(t))
}

// Equal reports exact type equality. There is no compatibility or
// coercion relation between distinct types.
func Equal(a, b Type) bool { return a == b && a != Invalid }

// ClosureRef is the payload carried by closure-typed cty values. The Node
// field holds a *closure.TreeNode; it is declared as any to keep this
// package free of a dependency on the closure package.
type ClosureRef struct {
	Node any
}

// ResourceRef is the payload carried by resource-typed cty values, an
// opaque handle to a host-owned texture.
type ResourceRef struct {
	Handle string
}

var (
	colorCty    = cty.Object(map[string]cty.Type{"r": cty.Number, "g": cty.Number, "b": cty.Number})
	vectorCty   = cty.Object(map[string]cty.Type{"x": cty.Number, "y": cty.Number, "z": cty.Number})
	closureCty  = cty.Capsule("closure", reflect.TypeOf(ClosureRef{}))
	resourceCty = cty.Capsule("resource", reflect.TypeOf(ResourceRef{}))
)

// CtyType returns the cty representation used during shader evaluation.
func (t Type) CtyType() cty.Type {
	switch t {
	case Float, Double, Int:
		return cty.Number
	case Bool:
		return cty.Bool
	case Color:
		return colorCty
	case Vector:
		return vectorCty
	case String:
		return cty.String
	case Closure:
		return closureCty
	case Resource:
		return resourceCty
	}
	return cty.NilType
}

// ColorVal builds a color value from its components.
func ColorVal(r, g, b float64) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"r": cty.NumberFloatVal(r),
		"g": cty.NumberFloatVal(g),
		"b": cty.NumberFloatVal(b),
	})
}

// VectorVal builds a vector value from its components.
func VectorVal(x, y, z float64) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"x": cty.NumberFloatVal(x),
		"y": cty.NumberFloatVal(y),
		"z": cty.NumberFloatVal(z),
	})
}

// ClosureVal wraps a closure tree node into a closure-typed cty value.
func ClosureVal(node any) cty.Value {
	return cty.CapsuleVal(closureCty, &ClosureRef{Node: node})
}

// ClosureNode unwraps a closure-typed cty value back into the node it
// carries. The second return is false for non-closure values.
func ClosureNode(v cty.Value) (any, bool) {
	if v.IsNull() || !v.Type().Equals(closureCty) {
		return nil, false
	}
	ref, ok := v.EncapsulatedValue().(*ClosureRef)
	if !ok {
		return nil, false
	}
	return ref.Node, true
}

// ResourceVal wraps a texture handle into a resource-typed cty value.
func ResourceVal(handle string) cty.Value {
	return cty.CapsuleVal(resourceCty, &ResourceRef{Handle: handle})
}

// ResourceHandle unwraps a resource-typed cty value.
func ResourceHandle(v cty.Value) (string, bool) {
	if v.IsNull() || !v.Type().Equals(resourceCty) {
		return "", false
	}
	ref, ok := v.EncapsulatedValue().(*ResourceRef)
	if !ok {
		return "", false
	}
	return ref.Handle, true
}
