package closure

import (
	"fmt"
	"sync"

	"github.com/vk/shadelink/internal/sltype"
)

// ID is the process-wide tag of a registered closure type. It is assigned
// once at registration and stable for the process lifetime.
type ID uint32

// InvalidID is never assigned to a registered closure type.
const InvalidID ID = 0

// Field is one typed, offset-addressed member of a closure type.
type Field struct {
	Name   string
	Type   sltype.Type
	Offset int
}

// Descriptor is the registered schema of one closure type.
type Descriptor struct {
	Name   string
	ID     ID
	Fields []Field
	Size   int
}

// FieldByName returns the field with the given name, if declared.
func (d *Descriptor) FieldByName(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Registry is the append-only closure type registry. Inserting a new name
// is writer-exclusive; already-registered entries may be read concurrently
// and are never removed or mutated.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Descriptor
	byID   map[ID]*Descriptor
	nextID ID
}

// NewRegistry creates an empty closure type registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Descriptor),
		byID:   make(map[ID]*Descriptor),
		nextID: InvalidID + 1,
	}
}

// Register records a closure type and returns its ID. Registration is
// idempotent by name: re-registering an identical shape returns the
// original ID, while re-registering the same name with a different shape
// is an error. The existing entry is never touched either way.
func (r *Registry) Register(name string, fields []Field, size int) (ID, error) {
	if name == "" {
		return InvalidID, fmt.Errorf("closure type name must not be empty")
	}
	if err := validateFields(name, fields, size); err != nil {
		return InvalidID, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		if !sameShape(existing, fields, size) {
			return InvalidID, fmt.Errorf("closure type %q already registered with a different shape", name)
		}
		return existing.ID, nil
	}

	desc := &Descriptor{
		Name:   name,
		ID:     r.nextID,
		Fields: append([]Field(nil), fields...),
		Size:   size,
	}
	r.nextID++
	r.byName[name] = desc
	r.byID[desc.ID] = desc
	return desc.ID, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// ByID returns the descriptor tagged with id.
func (r *Registry) ByID(id ID) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	return d, ok
}

func validateFields(name string, fields []Field, size int) error {
	if size < 0 {
		return fmt.Errorf("closure type %q: negative size %d", name, size)
	}
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return fmt.Errorf("closure type %q: field with empty name", name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("closure type %q: duplicate field %q", name, f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Type.ABI() {
			return fmt.Errorf("closure type %q: field %q has type %s, which cannot cross the execution ABI", name, f.Name, f.Type)
		}
		if f.Offset < 0 || f.Offset+f.Type.ByteSize() > size {
			return fmt.Errorf("closure type %q: field %q (%s at offset %d) overruns declared size %d", name, f.Name, f.Type, f.Offset, size)
		}
	}
	return nil
}

func sameShape(d *Descriptor, fields []Field, size int) bool {
	if d.Size != size || len(d.Fields) != len(fields) {
		return false
	}
	for i, f := range fields {
		if d.Fields[i] != f {
			return false
		}
	}
	return true
}

// AutoLayout assigns packed offsets, in declaration order, to fields that
// were declared with name and type only. It returns the laid-out fields
// and the total blob size.
func AutoLayout(fields []Field) ([]Field, int) {
	out := make([]Field, len(fields))
	off := 0
	for i, f := range fields {
		f.Offset = off
		off += f.Type.ByteSize()
		out[i] = f
	}
	return out, off
}
