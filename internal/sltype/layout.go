package sltype

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zclconf/go-cty/cty"
)

// The execution ABI is little-endian with fixed widths. Two evaluations
// producing the same field values therefore produce byte-identical blobs.

// ByteSize returns the number of bytes the type occupies in a params or
// globals blob, or 0 for types that cannot cross the ABI.
func (t Type) ByteSize() int {
	switch t {
	case Float, Int:
		return 4
	case Bool:
		return 1
	case Double:
		return 8
	case Color, Vector:
		return 12
	case Closure:
		return 4 // index into the owning node's child table
	}
	return 0
}

// ABI reports whether values of the type can be laid out in a byte blob.
// String and resource values only exist during evaluation.
func (t Type) ABI() bool { return t.ByteSize() > 0 }

// Encode writes v into blob at the given offset using the type's layout.
// Closure fields are not handled here: the child index is assigned by the
// node builder, which encodes it with PutIndex.
func (t Type) Encode(v cty.Value, blob []byte, off int) error {
	if v.IsNull() || !v.IsKnown() {
		return fmt.Errorf("cannot encode null or unknown value as %s", t)
	}
	if err := t.checkBounds(blob, off); err != nil {
		return err
	}
	switch t {
	case Float:
		f, err := numberArg(v, t)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(blob[off:], math.Float32bits(float32(f)))
	case Double:
		f, err := numberArg(v, t)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint64(blob[off:], math.Float64bits(f))
	case Int:
		f, err := numberArg(v, t)
		if err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(blob[off:], uint32(int32(f)))
	case Bool:
		if !v.Type().Equals(cty.Bool) {
			return fmt.Errorf("expected bool, got %s", v.Type().FriendlyName())
		}
		blob[off] = 0
		if v.True() {
			blob[off] = 1
		}
	case Color, Vector:
		if !v.Type().Equals(t.CtyType()) {
			return fmt.Errorf("expected %s, got %s", t, v.Type().FriendlyName())
		}
		for i, attr := range t.componentNames() {
			f, _ := v.GetAttr(attr).AsBigFloat().Float64()
			binary.LittleEndian.PutUint32(blob[off+4*i:], math.Float32bits(float32(f)))
		}
	default:
		return fmt.Errorf("type %s cannot cross the execution ABI", t)
	}
	return nil
}

// Decode reads a value of the type from blob at the given offset. Closure
// fields decode to their raw child index via Index; the node owning the
// blob maps that index back to a child node.
func (t Type) Decode(blob []byte, off int) (cty.Value, error) {
	if err := t.checkBounds(blob, off); err != nil {
		return cty.NilVal, err
	}
	switch t {
	case Float:
		bits := binary.LittleEndian.Uint32(blob[off:])
		return cty.NumberFloatVal(float64(math.Float32frombits(bits))), nil
	case Double:
		bits := binary.LittleEndian.Uint64(blob[off:])
		return cty.NumberFloatVal(math.Float64frombits(bits)), nil
	case Int:
		return cty.NumberIntVal(int64(int32(binary.LittleEndian.Uint32(blob[off:])))), nil
	case Bool:
		return cty.BoolVal(blob[off] != 0), nil
	case Color, Vector:
		attrs := make(map[string]cty.Value, 3)
		for i, attr := range t.componentNames() {
			bits := binary.LittleEndian.Uint32(blob[off+4*i:])
			attrs[attr] = cty.NumberFloatVal(float64(math.Float32frombits(bits)))
		}
		return cty.ObjectVal(attrs), nil
	}
	return cty.NilVal, fmt.Errorf("type %s cannot cross the execution ABI", t)
}

// PutIndex encodes a child-table index for a closure field.
func PutIndex(blob []byte, off int, index uint32) error {
	if off < 0 || off+4 > len(blob) {
		return fmt.Errorf("index at offset %d overruns %d-byte blob", off, len(blob))
	}
	binary.LittleEndian.PutUint32(blob[off:], index)
	return nil
}

// Index decodes a child-table index for a closure field.
func Index(blob []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(blob) {
		return 0, fmt.Errorf("index at offset %d overruns %d-byte blob", off, len(blob))
	}
	return binary.LittleEndian.Uint32(blob[off:]), nil
}

func (t Type) checkBounds(blob []byte, off int) error {
	size := t.ByteSize()
	if size == 0 {
		return fmt.Errorf("type %s cannot cross the execution ABI", t)
	}
	if off < 0 || off+size > len(blob) {
		return fmt.Errorf("%s at offset %d overruns %d-byte blob", t, off, len(blob))
	}
	return nil
}

func (t Type) componentNames() [3]string {
	if t == Color {
		return [3]string{"r", "g", "b"}
	}
	return [3]string{"x", "y", "z"}
}

func numberArg(v cty.Value, t Type) (float64, error) {
	if !v.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expected %s, got %s", t, v.Type().FriendlyName())
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}
