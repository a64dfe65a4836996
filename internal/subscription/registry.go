// Package subscription keeps the subscribers of a store and delivers change
// notifications to them in commit order.
package subscription

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// FailureHandler receives every subscriber failure of a notification pass.
type FailureHandler func(err *skerrors.SubscriberError)

type subscription struct {
	id     string
	fn     sk.Subscriber
	fields map[string]struct{}
	active atomic.Bool
}

func (s *subscription) wants(field string) bool {
	if len(s.fields) == 0 {
		return true
	}
	_, ok := s.fields[field]
	return ok
}

// Registry holds subscriptions and a FIFO of pending changes.
//
// Changes are enqueued by the committer while it holds the commit lock, so
// queue order is commit order. Whoever calls Drain first becomes the active
// deliverer and keeps delivering until the queue is empty; a Drain that finds
// a pass already running returns at once and its changes are delivered by
// that pass. This keeps a dispatch made from inside a subscriber from
// recursing, and every subscriber observes changes in commit order.
type Registry struct {
	onFailure FailureHandler

	subsMu sync.Mutex
	subs   []*subscription // copy-on-write

	queueMu  sync.Mutex
	queue    []sk.Change
	draining bool
	closed   bool
}

// NewRegistry creates an empty Registry. onFailure may be nil.
func NewRegistry(onFailure FailureHandler) *Registry {
	return &Registry{onFailure: onFailure}
}

// Subscribe registers fn for changes to the given fields, or to every field
// when none are given. It returns the subscription ID and an idempotent
// unsubscribe function.
func (r *Registry) Subscribe(fn sk.Subscriber, fields ...string) (string, sk.Unsubscribe) {
	sub := &subscription{id: uuid.NewString(), fn: fn}
	if len(fields) > 0 {
		sub.fields = make(map[string]struct{}, len(fields))
		for _, f := range fields {
			sub.fields[f] = struct{}{}
		}
	}
	sub.active.Store(true)

	r.subsMu.Lock()
	if r.isClosed() {
		r.subsMu.Unlock()
		sub.active.Store(false)
		return sub.id, func() {}
	}
	next := make([]*subscription, len(r.subs), len(r.subs)+1)
	copy(next, r.subs)
	r.subs = append(next, sub)
	r.subsMu.Unlock()

	var once sync.Once
	return sub.id, func() {
		once.Do(func() { r.remove(sub) })
	}
}

func (r *Registry) remove(sub *subscription) {
	sub.active.Store(false)
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	next := make([]*subscription, 0, len(r.subs))
	for _, s := range r.subs {
		if s != sub {
			next = append(next, s)
		}
	}
	r.subs = next
}

// Count returns the number of active subscriptions.
func (r *Registry) Count() int {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	return len(r.subs)
}

// Enqueue appends a change to the pending queue.
func (r *Registry) Enqueue(change sk.Change) {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()
	if r.closed {
		return
	}
	r.queue = append(r.queue, change)
}

// Drain delivers pending changes unless another pass is already running.
func (r *Registry) Drain() {
	r.queueMu.Lock()
	if r.draining {
		r.queueMu.Unlock()
		return
	}
	r.draining = true
	for len(r.queue) > 0 {
		change := r.queue[0]
		r.queue[0] = sk.Change{}
		r.queue = r.queue[1:]
		r.queueMu.Unlock()

		r.deliver(change)

		r.queueMu.Lock()
	}
	r.queue = nil
	r.draining = false
	r.queueMu.Unlock()
}

// Close drops every subscription and any pending change. Later calls to
// Subscribe return inert subscriptions.
func (r *Registry) Close() {
	r.queueMu.Lock()
	r.closed = true
	r.queue = nil
	r.queueMu.Unlock()

	r.subsMu.Lock()
	for _, s := range r.subs {
		s.active.Store(false)
	}
	r.subs = nil
	r.subsMu.Unlock()
}

func (r *Registry) isClosed() bool {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()
	return r.closed
}

// deliver runs one notification pass over the subscriber list as it was when
// the pass began. Subscribers removed during the pass are skipped.
func (r *Registry) deliver(change sk.Change) {
	r.subsMu.Lock()
	subs := r.subs
	r.subsMu.Unlock()

	for _, sub := range subs {
		if !sub.active.Load() || !sub.wants(change.Field) {
			continue
		}
		if err := notify(sub, change); err != nil && r.onFailure != nil {
			r.onFailure(skerrors.NewSubscriberError(sub.id, change.Field, err))
		}
	}
}

func notify(sub *subscription, change sk.Change) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &skerrors.PanicError{Value: rec}
		}
	}()
	return sub.fn(change)
}

// ValidateFields checks that every name in fields is one of known.
func ValidateFields(fields []string, known func(string) bool, store string) error {
	for _, f := range fields {
		if !known(f) {
			return skerrors.NewUnknownNameError(skerrors.KindField, f, store)
		}
	}
	if len(fields) == 0 {
		return skerrors.NewValidationError(fmt.Sprintf("store '%s': SubscribeFields needs at least one field", store), nil)
	}
	return nil
}
