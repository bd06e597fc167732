package hxview

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DefaultViewsPath is the path prefix routers put in front of view names.
const DefaultViewsPath = "views/"

// Registry maps view names to factories and serves as the router's view
// loader. Go has no runtime module loading, so views are registered
// explicitly at startup (or by the code generated with `hxview generate`).
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory

	// Prefix is stripped from paths passed to Load. Defaults to
	// DefaultViewsPath.
	Prefix string
}

var errNoView = errors.New("hxview: constructor returned no view")

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		Prefix:    DefaultViewsPath,
	}
}

// Add registers a factory under name.
// Panics on an empty name, a nil factory, or a name collision.
func (reg *Registry) Add(name string, factory Factory) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if name == "" {
		panic("hxview: view name must not be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("hxview: nil factory for view %q", name))
	}
	if _, exists := reg.factories[name]; exists {
		panic(fmt.Sprintf("hxview: view name collision for %q", name))
	}
	reg.factories[name] = factory
}

// AddAll registers every entry of factories.
func (reg *Registry) AddAll(factories map[string]Factory) {
	for _, name := range sortedKeys(factories) {
		reg.Add(name, factories[name])
	}
}

// Register adds a typed constructor to reg. It lets constructors keep
// their concrete return type:
//
//	hxview.Register(reg, "UserView", NewUserView) // func() (*UserView, error)
func Register[V Viewer](reg *Registry, name string, constructor func() (V, error)) {
	reg.Add(name, func() (Viewer, error) {
		v, err := constructor()
		if err != nil {
			return nil, err
		}
		if isNil(v) {
			return nil, errNoView
		}
		return v, nil
	})
}

// Load resolves a view path such as "views/UserView" to its factory.
func (reg *Registry) Load(ctx context.Context, path string) (Factory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := strings.TrimPrefix(path, reg.Prefix)

	reg.mu.RLock()
	defer reg.mu.RUnlock()

	f, ok := reg.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrViewNotFound, path)
	}
	return f, nil
}

// Has reports whether name is registered.
func (reg *Registry) Has(name string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.factories[name]
	return ok
}

// Names returns the registered view names, sorted.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.factories))
	for name := range reg.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
