package subscription

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

func change(field string, value interface{}) sk.Change {
	return sk.Change{Store: "test", Field: field, Value: value}
}

func publish(r *Registry, c sk.Change) {
	r.Enqueue(c)
	r.Drain()
}

func TestRegistry_DeliversToEverySubscriberOnce(t *testing.T) {
	r := NewRegistry(nil)
	var a, b []interface{}
	r.Subscribe(func(c sk.Change) error { a = append(a, c.Value); return nil })
	r.Subscribe(func(c sk.Change) error { b = append(b, c.Value); return nil })

	publish(r, change("count", 1))
	assert.Equal(t, []interface{}{1}, a)
	assert.Equal(t, []interface{}{1}, b)
	assert.Equal(t, 2, r.Count())
}

func TestRegistry_UnsubscribeBeforeDispatch(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0
	_, unsub := r.Subscribe(func(sk.Change) error { calls++; return nil })
	unsub()
	unsub() // idempotent

	publish(r, change("count", 1))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_UnsubscribeDuringPass(t *testing.T) {
	r := NewRegistry(nil)
	var order []string
	var unsubSecond sk.Unsubscribe
	var unsubFirst sk.Unsubscribe

	_, unsubFirst = r.Subscribe(func(sk.Change) error {
		order = append(order, "first")
		unsubFirst()
		unsubSecond()
		return nil
	})
	_, unsubSecond = r.Subscribe(func(sk.Change) error {
		order = append(order, "second")
		return nil
	})
	r.Subscribe(func(sk.Change) error {
		order = append(order, "third")
		return nil
	})

	publish(r, change("count", 1))
	assert.Equal(t, []string{"first", "third"}, order)

	order = nil
	publish(r, change("count", 2))
	assert.Equal(t, []string{"third"}, order)
}

func TestRegistry_FailureIsolation(t *testing.T) {
	var failures []*skerrors.SubscriberError
	r := NewRegistry(func(err *skerrors.SubscriberError) { failures = append(failures, err) })

	delivered := 0
	r.Subscribe(func(sk.Change) error { return errors.New("nope") })
	r.Subscribe(func(sk.Change) error { panic("boom") })
	r.Subscribe(func(sk.Change) error { delivered++; return nil })

	publish(r, change("count", 1))
	assert.Equal(t, 1, delivered)
	require.Len(t, failures, 2)
	assert.Equal(t, "count", failures[0].Field)
	var panicErr *skerrors.PanicError
	assert.True(t, errors.As(failures[1], &panicErr))
}

func TestRegistry_FieldFilter(t *testing.T) {
	r := NewRegistry(nil)
	var seen []string
	r.Subscribe(func(c sk.Change) error { seen = append(seen, c.Field); return nil }, "a", "c")

	publish(r, change("a", 1))
	publish(r, change("b", 1))
	publish(r, change("c", 1))
	assert.Equal(t, []string{"a", "c"}, seen)
}

func TestRegistry_NestedChangesKeepCommitOrder(t *testing.T) {
	r := NewRegistry(nil)
	var first, second []interface{}

	r.Subscribe(func(c sk.Change) error {
		first = append(first, c.Value)
		if c.Value == 1 {
			// A change committed from inside a subscriber is delivered after
			// the current pass completes.
			publish(r, change("count", 2))
		}
		return nil
	})
	r.Subscribe(func(c sk.Change) error {
		second = append(second, c.Value)
		return nil
	})

	publish(r, change("count", 1))
	assert.Equal(t, []interface{}{1, 2}, first)
	assert.Equal(t, []interface{}{1, 2}, second)
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(nil)
	calls := 0
	r.Subscribe(func(sk.Change) error { calls++; return nil })
	r.Close()

	publish(r, change("count", 1))
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, r.Count())

	_, unsub := r.Subscribe(func(sk.Change) error { calls++; return nil })
	unsub()
	publish(r, change("count", 2))
	assert.Equal(t, 0, calls)
}

func TestValidateFields(t *testing.T) {
	known := func(f string) bool { return f == "count" }
	assert.NoError(t, ValidateFields([]string{"count"}, known, "s"))

	var nameErr *skerrors.UnknownNameError
	assert.True(t, errors.As(ValidateFields([]string{"nope"}, known, "s"), &nameErr))

	var valErr *skerrors.ValidationError
	assert.True(t, errors.As(ValidateFields(nil, known, "s"), &valErr))
}
