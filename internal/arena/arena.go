// Package arena provides the scope-bounded bump allocator that backs one
// shading evaluation. An arena belongs to a single goroutine; the host
// resets it between evaluations (per ray, per pixel) instead of freeing
// individual allocations.
//
// Capacity is a hard cap: an allocation that does not fit fails with
// ErrExhausted rather than growing the buffer or overwriting. Reset bumps
// a generation counter so data handed out before the reset can be
// detected as stale instead of being silently reused.
package arena

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned when an allocation exceeds remaining capacity.
var ErrExhausted = errors.New("arena exhausted")

// Arena is a thread-confined bump allocator.
type Arena struct {
	buf        []byte
	off        int
	generation uint64
}

// DefaultCapacity is sized for one shading evaluation's closure tree.
const DefaultCapacity = 16 << 10

// New creates an arena with the given capacity in bytes.
func New(capacity int) *Arena {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Arena{buf: make([]byte, capacity)}
}

// Alloc claims n zeroed bytes from the arena. The returned slice is valid
// until the next Reset.
func (a *Arena) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative allocation size %d", n)
	}
	if a.off+n > len(a.buf) {
		return nil, fmt.Errorf("%w: requested %d bytes, %d remaining of %d",
			ErrExhausted, n, a.Remaining(), len(a.buf))
	}
	b := a.buf[a.off : a.off+n : a.off+n]
	for i := range b {
		b[i] = 0
	}
	a.off += n
	return b, nil
}

// Reset recycles the arena for the next evaluation. Everything allocated
// before the call becomes stale; Generation changes so stale references
// are detectable.
func (a *Arena) Reset() {
	a.off = 0
	a.generation++
}

// Generation identifies the current evaluation. It changes on every Reset.
func (a *Arena) Generation() uint64 { return a.generation }

// Remaining reports the bytes left before the cap is hit.
func (a *Arena) Remaining() int { return len(a.buf) - a.off }

// Capacity reports the fixed size of the arena.
func (a *Arena) Capacity() int { return len(a.buf) }
