package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// StaticRegistry implements catalog.Registry with a map guarded by a RWMutex.
// It is the default registry the CLI resolves store names against.
type StaticRegistry struct {
	factories map[string]catalog.DefinitionFactory
	mu        sync.RWMutex
}

// NewStaticRegistry creates an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		factories: make(map[string]catalog.DefinitionFactory),
	}
}

// Register associates a store name with its definition factory. Empty names,
// nil factories and duplicates are rejected with a ConfigError.
func (r *StaticRegistry) Register(name string, factory catalog.DefinitionFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return skerrors.NewConfigError("catalog registration error: name cannot be empty", nil)
	}
	if factory == nil {
		return skerrors.NewConfigError(fmt.Sprintf("catalog registration error for '%s': factory cannot be nil", name), nil)
	}
	if _, exists := r.factories[name]; exists {
		return skerrors.NewConfigError(fmt.Sprintf("catalog registration error: duplicate store name '%s'", name), nil)
	}
	r.factories[name] = factory
	return nil
}

// Get retrieves the factory for name, or an UnknownNameError of kind "store".
func (r *StaticRegistry) Get(name string) (catalog.DefinitionFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, skerrors.NewUnknownNameError(skerrors.KindStore, name, "")
	}
	return factory, nil
}

// List returns the registered names, sorted.
func (r *StaticRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// --- Default Global Registry (populated from init functions) ---

var (
	globalRegistry = NewStaticRegistry()

	_ catalog.Registry = (*StaticRegistry)(nil)
)

// Register adds a factory to the global registry. It is meant to be called
// from init functions and panics on error, since a failed registration is a
// programming mistake.
func Register(name string, factory catalog.DefinitionFactory) {
	if err := globalRegistry.Register(name, factory); err != nil {
		panic(fmt.Errorf("failed to register store '%s' globally: %w", name, err))
	}
}

// Default exposes the global registry as the public interface type.
var Default catalog.Registry = globalRegistry
