package closure

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/arena"
	"github.com/vk/shadelink/internal/sltype"
)

// ErrStale is returned when a node is accessed after its backing arena
// was reset.
var ErrStale = errors.New("closure node read after arena reset")

// TreeNode is one tagged node of an evaluation's result tree. Its params
// blob is arena-backed and valid only until the arena resets. Closure
// fields hold indexes into the node's child table; a node can only ever
// reference nodes built before it, so a tree is acyclic by construction.
type TreeNode struct {
	desc     *Descriptor
	params   []byte
	children []*TreeNode
	ar       *arena.Arena
	gen      uint64
}

// NewNode allocates a node for the given closure type from the arena.
func NewNode(ar *arena.Arena, desc *Descriptor) (*TreeNode, error) {
	if desc == nil {
		return nil, fmt.Errorf("nil closure descriptor")
	}
	blob, err := ar.Alloc(desc.Size)
	if err != nil {
		return nil, fmt.Errorf("allocating %q params: %w", desc.Name, err)
	}
	return &TreeNode{
		desc:   desc,
		params: blob,
		ar:     ar,
		gen:    ar.Generation(),
	}, nil
}

// ID returns the registered tag of the node's closure type.
func (n *TreeNode) ID() ID { return n.desc.ID }

// Descriptor returns the schema the params blob is laid out against.
func (n *TreeNode) Descriptor() *Descriptor { return n.desc }

// Set writes a field value into the params blob at its registered offset.
// The value's type must match the field's declared type exactly.
func (n *TreeNode) Set(field string, v cty.Value) error {
	if err := n.check(); err != nil {
		return err
	}
	f, ok := n.desc.FieldByName(field)
	if !ok {
		return fmt.Errorf("closure %q has no field %q", n.desc.Name, field)
	}
	if f.Type == sltype.Closure {
		if v.IsNull() {
			return sltype.PutIndex(n.params, f.Offset, 0)
		}
		raw, ok := sltype.ClosureNode(v)
		if !ok {
			return fmt.Errorf("closure %q field %q: expected closure, got %s", n.desc.Name, field, v.Type().FriendlyName())
		}
		child, ok := raw.(*TreeNode)
		if !ok {
			return fmt.Errorf("closure %q field %q: foreign closure payload %T", n.desc.Name, field, raw)
		}
		n.children = append(n.children, child)
		// Child slot 0 is the null reference, so stored indexes are 1-based.
		return sltype.PutIndex(n.params, f.Offset, uint32(len(n.children)))
	}
	if err := f.Type.Encode(v, n.params, f.Offset); err != nil {
		return fmt.Errorf("closure %q field %q: %w", n.desc.Name, field, err)
	}
	return nil
}

// Get reads a field value from the params blob at its registered offset.
func (n *TreeNode) Get(field string) (cty.Value, error) {
	if err := n.check(); err != nil {
		return cty.NilVal, err
	}
	f, ok := n.desc.FieldByName(field)
	if !ok {
		return cty.NilVal, fmt.Errorf("closure %q has no field %q", n.desc.Name, field)
	}
	if f.Type == sltype.Closure {
		idx, err := sltype.Index(n.params, f.Offset)
		if err != nil {
			return cty.NilVal, err
		}
		if idx == 0 {
			return cty.NullVal(sltype.Closure.CtyType()), nil
		}
		if int(idx) > len(n.children) {
			return cty.NilVal, fmt.Errorf("closure %q field %q: child index %d out of range", n.desc.Name, field, idx)
		}
		return sltype.ClosureVal(n.children[idx-1]), nil
	}
	v, err := f.Type.Decode(n.params, f.Offset)
	if err != nil {
		return cty.NilVal, fmt.Errorf("closure %q field %q: %w", n.desc.Name, field, err)
	}
	return v, nil
}

// DecodeParams reads every declared field into a name-keyed map.
func (n *TreeNode) DecodeParams() (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(n.desc.Fields))
	for _, f := range n.desc.Fields {
		v, err := n.Get(f.Name)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

// Params exposes the raw blob for hosts that consume the ABI directly.
// The slice aliases arena memory; it is only valid until the next reset.
func (n *TreeNode) Params() ([]byte, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	return n.params, nil
}

// Child returns the i-th node appended through a closure field.
func (n *TreeNode) Child(i int) (*TreeNode, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(n.children) {
		return nil, fmt.Errorf("closure %q: child %d out of range", n.desc.Name, i)
	}
	return n.children[i], nil
}

func (n *TreeNode) check() error {
	if n.ar.Generation() != n.gen {
		return fmt.Errorf("%w: closure %q", ErrStale, n.desc.Name)
	}
	return nil
}
