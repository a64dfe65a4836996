// Package catalog defines the registry of named store definitions that the
// statekit CLI and embedding applications can instantiate by name.
package catalog

import (
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
)

// Deps carries what a definition factory may need to build its definition.
type Deps struct {
	// Log is the logger of the hosting process.
	Log sklog.Logger
	// Params holds factory-specific settings, typically decoded from YAML or
	// CLI flags. Factories must validate what they read.
	Params map[string]interface{}
}

// DefinitionFactory builds a store definition.
type DefinitionFactory func(deps Deps) (sk.Definition, error)

// Registry maps names to definition factories.
type Registry interface {
	// Get returns the factory registered under name, or an UnknownNameError.
	Get(name string) (DefinitionFactory, error)
	// Register adds a factory. Names must be unique and non-empty.
	Register(name string, factory DefinitionFactory) error
	// List returns registered names in sorted order.
	List() []string
}
