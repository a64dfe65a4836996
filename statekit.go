package statekit

import (
	"context"

	"github.com/gxo-labs/statekit/internal/container"
	"github.com/gxo-labs/statekit/internal/logger"
	"github.com/gxo-labs/statekit/internal/store"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
)

// DefineStore validates def and returns a ready store. Without WithLogger the
// store logs warnings and errors to stderr.
func DefineStore(def sk.Definition, opts ...sk.StoreOption) (sk.StoreV1, error) {
	s, err := store.New(store.DefaultLogger(), def, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewContainer returns a Container that builds its store from def on Create.
func NewContainer(def sk.Definition, opts ...sk.StoreOption) sk.Container {
	c, err := container.New(store.DefaultLogger(), func(context.Context) (sk.StoreV1, error) {
		return DefineStore(def, opts...)
	})
	if err != nil {
		// Only nil arguments fail, and both are fixed here.
		panic(err)
	}
	return c
}

// NewLogger returns a structured logger writing to stderr. Level is one of
// debug, info, warn or error; format is "text" or "json".
func NewLogger(level, format string) sklog.Logger {
	return logger.NewLogger(level, format, nil)
}
