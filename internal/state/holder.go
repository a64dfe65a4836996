// Package state holds the current snapshot of a store and serializes the
// commits that replace it.
package state

import (
	"sync"
	"sync/atomic"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
)

// Holder keeps the current snapshot of one store. Reads are lock-free: they
// load the latest committed snapshot. Writes are serialized by a mutex so
// every commit builds on the one before it and versions never skip.
type Holder struct {
	current atomic.Pointer[sk.Snapshot]
	mu      sync.Mutex
}

// New creates a Holder whose initial snapshot has the given fields.
func New(fields []sk.Field) (*Holder, error) {
	snap, err := sk.NewSnapshot(fields)
	if err != nil {
		return nil, err
	}
	h := &Holder{}
	h.current.Store(&snap)
	return h, nil
}

// Snapshot returns the latest committed snapshot.
func (h *Holder) Snapshot() sk.Snapshot {
	return *h.current.Load()
}

// Replace binds field to value in a new snapshot and makes it current. It
// returns the snapshot that was replaced and the one that took its place.
// Unknown fields leave the holder untouched.
func (h *Holder) Replace(field string, value interface{}) (prev, next sk.Snapshot, err error) {
	return h.ReplaceFunc(field, value, nil)
}

// ReplaceFunc is Replace with a callback run while the commit lock is still
// held. Callers use it to enqueue notifications so that their order matches
// commit order.
func (h *Holder) ReplaceFunc(field string, value interface{}, committed func(prev, next sk.Snapshot)) (prev, next sk.Snapshot, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev = *h.current.Load()
	next, err = prev.Replace(field, value)
	if err != nil {
		return prev, prev, err
	}
	h.current.Store(&next)
	if committed != nil {
		committed(prev, next)
	}
	return prev, next, nil
}
