package shading

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/shadelink/internal/backend"
	"github.com/vk/shadelink/internal/closure"
	"github.com/vk/shadelink/internal/global"
	"github.com/vk/shadelink/internal/host"
	"github.com/vk/shadelink/internal/interp"
	"github.com/vk/shadelink/internal/sltype"
)

// System owns everything with process lifetime: the closure type and
// globals registries, the compile backend, the host callback interface,
// and the namespace of template names. Registration and context creation
// are safe from any goroutine.
type System struct {
	closures *closure.Registry
	globals  *global.Registry
	backend  backend.Backend

	mu    sync.RWMutex
	host  host.Interface
	names map[string]struct{}

	closed atomic.Bool
}

// Option configures a System at construction.
type Option func(*System)

// WithBackend swaps the stock interpreter for another compile backend.
func WithBackend(b backend.Backend) Option {
	return func(s *System) { s.backend = b }
}

// WithHost installs the embedding application's callback interface.
func WithHost(h host.Interface) Option {
	return func(s *System) { s.host = h }
}

// NewSystem creates a shading system with the stock interpreter backend
// and the stub host, then applies options.
func NewSystem(opts ...Option) *System {
	s := &System{
		closures: closure.NewRegistry(),
		globals:  global.NewRegistry(),
		backend:  interp.New(),
		host:     &host.Stub{},
		names:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterClosureType records a closure type before any shader that
// constructs it compiles. Registration is idempotent by name: the same
// shape returns the same ID, a different shape is an error.
func (s *System) RegisterClosureType(name string, fields []closure.Field, size int) (closure.ID, error) {
	if err := s.guard(); err != nil {
		return closure.InvalidID, err
	}
	return s.closures.Register(name, fields, size)
}

// RegisterGlobal records a host-supplied per-evaluation input. Shaders
// compiled afterwards may read it as global.<name>.
func (s *System) RegisterGlobal(name string, t sltype.Type) (global.Descriptor, error) {
	if err := s.guard(); err != nil {
		return global.Descriptor{}, err
	}
	return s.globals.Register(name, t)
}

// RegisterHost replaces the callback interface. A nil host reinstalls
// the stub.
func (s *System) RegisterHost(h host.Interface) {
	if h == nil {
		h = &host.Stub{}
	}
	s.mu.Lock()
	s.host = h
	s.mu.Unlock()
}

// Host returns the current callback interface.
func (s *System) Host() host.Interface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.host
}

// GlobalLayout snapshots the registered globals schema. The host builds
// per-evaluation blocks from it.
func (s *System) GlobalLayout() *global.Layout {
	return s.globals.Layout()
}

// ClosureTypes exposes the closure registry, which hosts walk to decode
// result trees.
func (s *System) ClosureTypes() *closure.Registry {
	return s.closures
}

// NewContext creates a shading context. The context is confined to one
// goroutine; create one per compiling goroutine.
func (s *System) NewContext() (*Context, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}
	return &Context{sys: s, open: make(map[string]Template)}, nil
}

// Close tears the system down. Every template, instance, and context
// derived from it becomes unusable: further calls fail with ErrContract
// instead of touching freed state.
func (s *System) Close() {
	s.closed.Store(true)
}

func (s *System) guard() error {
	if s.closed.Load() {
		return fmt.Errorf("shading system is closed: %w", ErrContract)
	}
	return nil
}

// reserveName claims a template name for the system's lifetime. Names
// are never released, so a template that failed to compile still blocks
// its name from being silently reused.
func (s *System) reserveName(name string) error {
	if name == "" {
		return fmt.Errorf("template name must not be empty: %w", ErrContract)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.names[name]; dup {
		return fmt.Errorf("template name %q already in use: %w", name, ErrContract)
	}
	s.names[name] = struct{}{}
	return nil
}

func (s *System) env() *backend.Env {
	return &backend.Env{Closures: s.closures, Globals: s.globals}
}
