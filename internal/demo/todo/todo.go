// Package todo is a demo store managing a list of todo items.
package todo

import (
	"github.com/gxo-labs/statekit/internal/catalog"
	"github.com/gxo-labs/statekit/internal/demo"
	"github.com/gxo-labs/statekit/internal/paramutil"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skcatalog "github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
)

// Name is the catalog name of the todo store.
const Name = "todo"

func init() {
	catalog.Register(Name, Factory)
}

// Item is one todo entry.
type Item struct {
	ID        int    `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// Factory builds the todo definition. It takes no params.
func Factory(deps skcatalog.Deps) (sk.Definition, error) {
	if err := paramutil.CheckAllowed(deps.Params); err != nil {
		return sk.Definition{}, err
	}
	return Definition(), nil
}

func items(s sk.Snapshot) []Item { return sk.MustField[[]Item](s, "todos") }

func countWhere(s sk.Snapshot, completed bool) int {
	n := 0
	for _, it := range items(s) {
		if it.Completed == completed {
			n++
		}
	}
	return n
}

// rebuild returns a new slice; stored slices are never modified in place.
func rebuild(in []Item, fn func(Item) (Item, bool)) []Item {
	out := make([]Item, 0, len(in))
	for _, it := range in {
		if next, keep := fn(it); keep {
			out = append(out, next)
		}
	}
	return out
}

// Definition returns the todo store definition. Actions addressing an id
// that does not exist leave the list unchanged.
func Definition() sk.Definition {
	return sk.Definition{
		Name:  Name,
		State: []sk.Field{sk.F("todos", []Item{}), sk.F("nextId", 1)},
		Queries: map[string]sk.QueryFunc{
			"remaining": func(s sk.Snapshot) interface{} { return countWhere(s, false) },
			"completed": func(s sk.Snapshot) interface{} { return countWhere(s, true) },
			"total":     func(s sk.Snapshot) interface{} { return len(items(s)) },
		},
		Actions: map[string]sk.ActionFunc{
			"addTodo": func(c *sk.Context, args ...interface{}) error {
				text, err := demo.String(args, 0)
				if err != nil {
					return err
				}
				id := sk.MustField[int](c.State, "nextId")
				current := items(c.State)
				next := make([]Item, len(current), len(current)+1)
				copy(next, current)
				next = append(next, Item{ID: id, Text: text})
				if err := c.Dispatch("todos", next); err != nil {
					return err
				}
				return c.Dispatch("nextId", id+1)
			},
			"toggleTodo": func(c *sk.Context, args ...interface{}) error {
				id, err := demo.Int(args, 0)
				if err != nil {
					return err
				}
				return c.Dispatch("todos", rebuild(items(c.State), func(it Item) (Item, bool) {
					if it.ID == id {
						it.Completed = !it.Completed
					}
					return it, true
				}))
			},
			"removeTodo": func(c *sk.Context, args ...interface{}) error {
				id, err := demo.Int(args, 0)
				if err != nil {
					return err
				}
				return c.Dispatch("todos", rebuild(items(c.State), func(it Item) (Item, bool) {
					return it, it.ID != id
				}))
			},
			"clearCompleted": func(c *sk.Context, _ ...interface{}) error {
				return c.Dispatch("todos", rebuild(items(c.State), func(it Item) (Item, bool) {
					return it, !it.Completed
				}))
			},
		},
	}
}
