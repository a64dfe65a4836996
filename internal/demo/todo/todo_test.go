package todo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/statekit/internal/logger"
	"github.com/gxo-labs/statekit/internal/store"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skcatalog "github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
)

func newTodo(t *testing.T, opts ...sk.StoreOption) *store.Store {
	t.Helper()
	def, err := Factory(skcatalog.Deps{})
	require.NoError(t, err)
	s, err := store.New(logger.NewDiscardLogger(), def, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func todos(t *testing.T, s *store.Store) []Item {
	t.Helper()
	v, err := sk.FieldAs[[]Item](s.State(), "todos")
	require.NoError(t, err)
	return v
}

func TestTodoLifecycle(t *testing.T) {
	s := newTodo(t)
	ctx := context.Background()

	require.NoError(t, s.Invoke(ctx, "addTodo", "milk"))
	assert.Equal(t, []Item{{ID: 1, Text: "milk"}}, todos(t, s))
	nextID, err := s.Get("nextId")
	require.NoError(t, err)
	assert.Equal(t, 2, nextID)

	require.NoError(t, s.Invoke(ctx, "addTodo", "eggs"))
	require.NoError(t, s.Invoke(ctx, "toggleTodo", 1))
	assert.Equal(t, []Item{{ID: 1, Text: "milk", Completed: true}, {ID: 2, Text: "eggs"}}, todos(t, s))

	remaining, err := sk.QueryAs[int](s, "remaining")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	completed, err := sk.QueryAs[int](s, "completed")
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	require.NoError(t, s.Invoke(ctx, "removeTodo", 2))
	assert.Equal(t, []Item{{ID: 1, Text: "milk", Completed: true}}, todos(t, s))

	require.NoError(t, s.Invoke(ctx, "clearCompleted"))
	total, err := sk.QueryAs[int](s, "total")
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestUnknownIDIsNoOp(t *testing.T) {
	s := newTodo(t)
	ctx := context.Background()
	require.NoError(t, s.Invoke(ctx, "addTodo", "milk"))
	before := todos(t, s)

	require.NoError(t, s.Invoke(ctx, "toggleTodo", 42))
	require.NoError(t, s.Invoke(ctx, "removeTodo", 42))
	assert.Equal(t, before, todos(t, s))
}

func TestPreviousSnapshotsUnchanged(t *testing.T) {
	s := newTodo(t, sk.WithAccessMode(sk.AccessDirectReference))
	ctx := context.Background()
	require.NoError(t, s.Invoke(ctx, "addTodo", "milk"))
	first := s.State()

	require.NoError(t, s.Invoke(ctx, "toggleTodo", 1))
	assert.False(t, sk.MustField[[]Item](first, "todos")[0].Completed)
	assert.True(t, todos(t, s)[0].Completed)
}

func TestInitialStateFromConfigShape(t *testing.T) {
	s := newTodo(t, sk.WithInitialState(map[string]interface{}{
		"todos":  []interface{}{map[string]interface{}{"id": 7, "text": "seeded", "completed": false}},
		"nextId": 8,
	}))
	assert.Equal(t, []Item{{ID: 7, Text: "seeded"}}, todos(t, s))
	require.NoError(t, s.Invoke(context.Background(), "addTodo", "next"))
	assert.Equal(t, 8, todos(t, s)[1].ID)
}

func TestRejectsParams(t *testing.T) {
	_, err := Factory(skcatalog.Deps{Params: map[string]interface{}{"x": 1}})
	assert.Error(t, err)
}

func TestStateJSONShape(t *testing.T) {
	s := newTodo(t)
	require.NoError(t, s.Invoke(context.Background(), "addTodo", "buy milk"))

	raw, err := s.State().MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"todos":[{"id":1,"text":"buy milk","completed":false}],"nextId":2}`, string(raw))
}
