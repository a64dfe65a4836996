package config

import (
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
)

// DefaultEventBufferSize is used when a run config leaves event_buffer_size unset.
const DefaultEventBufferSize = 256

// StateAccessMode selects how a store hands out state values.
type StateAccessMode string

const (
	// StateAccessDeepCopy (default) hands out deep copies.
	StateAccessDeepCopy StateAccessMode = StateAccessMode(sk.AccessDeepCopy)
	// StateAccessUnsafeDirectReference hands out stored values directly.
	// Only for callers that guarantee they never mutate what they read.
	StateAccessUnsafeDirectReference StateAccessMode = StateAccessMode(sk.AccessDirectReference)
)

// Valid reports whether m is empty or a known mode.
func (m StateAccessMode) Valid() bool {
	return m == "" || sk.AccessMode(m).Valid()
}

// StoreOptions translates the store-level settings of c into store options.
func (c *RunConfig) StoreOptions() []sk.StoreOption {
	var opts []sk.StoreOption
	if c.AccessMode != "" {
		opts = append(opts, sk.WithAccessMode(sk.AccessMode(c.AccessMode)))
	}
	if c.MemoizeQueries {
		opts = append(opts, sk.WithQueryMemoization(true))
	}
	if len(c.State) > 0 {
		opts = append(opts, sk.WithInitialState(c.State))
	}
	return opts
}
