// Package global implements the registry of host-supplied per-evaluation
// inputs ("globals") and the per-evaluation block that carries their
// values into shader execution.
//
// Registration fixes a named, typed, offset-addressed schema once. Both
// the offsets compiled shaders bind to and the byte shape of the block
// the host fills are derived from that one schema, so the schema/struct
// mismatch the contract forbids cannot be constructed through this
// package's API.
package global

import (
	"fmt"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/shadelink/internal/sltype"
)

// Descriptor is one registered global: a name, a semantic type, and the
// offset every shader compiled afterwards binds to.
type Descriptor struct {
	Name   string
	Type   sltype.Type
	Offset int
}

// Registry assigns offsets to globals in registration order. It is
// append-only: writer-exclusive on insert, concurrently readable.
type Registry struct {
	mu      sync.RWMutex
	ordered []Descriptor
	byName  map[string]int
	size    int
}

// NewRegistry creates an empty globals registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register records a global and assigns it the next offset. Registering
// an existing name with the same type returns the original descriptor;
// with a different type it is an error.
func (r *Registry) Register(name string, t sltype.Type) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, fmt.Errorf("global name must not be empty")
	}
	if !t.ABI() || t == sltype.Closure {
		return Descriptor{}, fmt.Errorf("global %q: type %s cannot be a host-supplied input", name, t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byName[name]; ok {
		if r.ordered[i].Type != t {
			return Descriptor{}, fmt.Errorf("global %q already registered as %s, not %s", name, r.ordered[i].Type, t)
		}
		return r.ordered[i], nil
	}

	d := Descriptor{Name: name, Type: t, Offset: r.size}
	r.ordered = append(r.ordered, d)
	r.byName[name] = len(r.ordered) - 1
	r.size += t.ByteSize()
	return d, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.ordered[i], true
}

// Layout snapshots the registered schema. Blocks built from the snapshot
// stay consistent even if more globals are registered afterwards; shaders
// compiled against the later schema must be fed blocks from the later
// snapshot.
func (r *Registry) Layout() *Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fields := append([]Descriptor(nil), r.ordered...)
	byName := make(map[string]Descriptor, len(fields))
	for _, d := range fields {
		byName[d.Name] = d
	}
	return &Layout{fields: fields, byName: byName, size: r.size}
}

// Layout is a frozen globals schema.
type Layout struct {
	fields []Descriptor
	byName map[string]Descriptor
	size   int
}

// Fields lists the schema in registration (offset) order.
func (l *Layout) Fields() []Descriptor { return l.fields }

// Size is the byte size of a block with this layout.
func (l *Layout) Size() int { return l.size }

// Lookup returns the descriptor for one global.
func (l *Layout) Lookup(name string) (Descriptor, bool) {
	d, ok := l.byName[name]
	return d, ok
}

// NewBlock creates an empty per-evaluation globals block shaped by this
// layout. One block serves one evaluation on one goroutine.
func (l *Layout) NewBlock() *Block {
	return &Block{layout: l, blob: make([]byte, l.size)}
}

// Block is one evaluation's globals struct. Values are stored at the
// offsets the schema registered, which are the same offsets compiled
// shaders read from.
type Block struct {
	layout *Layout
	blob   []byte
}

// Layout returns the schema the block was shaped by.
func (b *Block) Layout() *Layout { return b.layout }

// Set writes a global's value at its registered offset after an exact
// type check.
func (b *Block) Set(name string, v cty.Value) error {
	d, ok := b.layout.byName[name]
	if !ok {
		return fmt.Errorf("global %q is not registered", name)
	}
	if err := d.Type.Encode(v, b.blob, d.Offset); err != nil {
		return fmt.Errorf("global %q: %w", name, err)
	}
	return nil
}

// Value reads a global's value back from its registered offset.
func (b *Block) Value(name string) (cty.Value, error) {
	d, ok := b.layout.byName[name]
	if !ok {
		return cty.NilVal, fmt.Errorf("global %q is not registered", name)
	}
	v, err := d.Type.Decode(b.blob, d.Offset)
	if err != nil {
		return cty.NilVal, fmt.Errorf("global %q: %w", name, err)
	}
	return v, nil
}

// Values decodes the whole block into a name-keyed map, the shape shader
// evaluation consumes.
func (b *Block) Values() (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(b.layout.fields))
	for _, d := range b.layout.fields {
		v, err := b.Value(d.Name)
		if err != nil {
			return nil, err
		}
		out[d.Name] = v
	}
	return out, nil
}

// Bytes exposes the packed block for hosts consuming the ABI directly.
func (b *Block) Bytes() []byte { return b.blob }
