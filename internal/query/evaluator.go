// Package query evaluates the named derivations of a store against state
// snapshots, optionally memoizing results per snapshot version.
package query

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// Observer is told about every evaluation request. cached is true when the
// caller did not run the query function itself: the result came from the
// memo or from a concurrent evaluation of the same version.
type Observer func(query string, cached bool)

// Evaluator runs query functions. It is safe for concurrent use.
type Evaluator struct {
	store   string
	queries map[string]sk.QueryFunc
	names   []string
	memoize bool

	observer Observer

	mu       sync.Mutex
	memoVer  uint64
	memoVals map[string]interface{}
	group    singleflight.Group
}

// New creates an Evaluator over queries. The map is copied. Memoization is
// off until SetMemoize enables it.
func New(store string, queries map[string]sk.QueryFunc) *Evaluator {
	e := &Evaluator{
		store:   store,
		queries: make(map[string]sk.QueryFunc, len(queries)),
	}
	for name, fn := range queries {
		e.queries[name] = fn
		e.names = append(e.names, name)
	}
	sort.Strings(e.names)
	return e
}

// SetObserver installs fn as the evaluation observer. It must be called before
// the evaluator is shared.
func (e *Evaluator) SetObserver(fn Observer) {
	e.observer = fn
}

// SetMemoize toggles memoization. It must be called before the evaluator is shared.
func (e *Evaluator) SetMemoize(enabled bool) {
	e.memoize = enabled
}

// Names returns the registered query names, sorted.
func (e *Evaluator) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// Evaluate runs the named query against snap. Unknown names yield an
// UnknownNameError; a panicking query yields a QueryError.
func (e *Evaluator) Evaluate(name string, snap sk.Snapshot) (interface{}, error) {
	fn, ok := e.queries[name]
	if !ok {
		return nil, skerrors.NewUnknownNameError(skerrors.KindQuery, name, e.store)
	}
	if !e.memoize {
		e.observe(name, false)
		return run(name, fn, snap)
	}

	if v, hit := e.lookup(name, snap.Version()); hit {
		e.observe(name, true)
		return v, nil
	}

	key := fmt.Sprintf("%s@%d", name, snap.Version())
	ran := false
	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		ran = true
		v, err := run(name, fn, snap)
		if err == nil {
			e.remember(name, snap.Version(), v)
		}
		return v, err
	})
	e.observe(name, !ran)
	return v, err
}

// Bind returns query results tied to snap. Each query is evaluated at most
// once per binding, whether or not memoization is enabled.
func (e *Evaluator) Bind(snap sk.Snapshot) sk.QueryResults {
	return &bound{evaluator: e, snap: snap, values: make(map[string]interface{})}
}

func (e *Evaluator) lookup(name string, version uint64) (interface{}, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.memoVals == nil || e.memoVer != version {
		return nil, false
	}
	v, ok := e.memoVals[name]
	return v, ok
}

// remember caches v for version. Results for older versions are dropped as
// soon as a newer version is cached; results for versions older than the
// current memo are not cached at all.
func (e *Evaluator) remember(name string, version uint64, v interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.memoVals == nil || version > e.memoVer:
		e.memoVer = version
		e.memoVals = map[string]interface{}{name: v}
	case version == e.memoVer:
		e.memoVals[name] = v
	}
}

func (e *Evaluator) observe(name string, cached bool) {
	if e.observer != nil {
		e.observer(name, cached)
	}
}

func run(name string, fn sk.QueryFunc, snap sk.Snapshot) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = skerrors.NewQueryError(name, &skerrors.PanicError{Value: r})
		}
	}()
	return fn(snap), nil
}

type bound struct {
	evaluator *Evaluator
	snap      sk.Snapshot

	mu     sync.Mutex
	values map[string]interface{}
}

func (b *bound) Query(name string) (interface{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v, ok := b.values[name]; ok {
		return v, nil
	}
	v, err := b.evaluator.Evaluate(name, b.snap)
	if err != nil {
		return nil, err
	}
	b.values[name] = v
	return v, nil
}

func (b *bound) Names() []string {
	return b.evaluator.Names()
}
