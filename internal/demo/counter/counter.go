// Package counter is the smallest demo store: one integer and a few actions
// around it.
package counter

import (
	"time"

	"github.com/gxo-labs/statekit/internal/catalog"
	"github.com/gxo-labs/statekit/internal/demo"
	"github.com/gxo-labs/statekit/internal/paramutil"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skcatalog "github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
)

// Name is the catalog name of the counter store.
const Name = "counter"

func init() {
	catalog.Register(Name, Factory)
}

// Factory builds the counter definition. Param "step" (default 1) is the
// amount increment and decrement move by.
func Factory(deps skcatalog.Deps) (sk.Definition, error) {
	if err := paramutil.CheckAllowed(deps.Params, "step"); err != nil {
		return sk.Definition{}, err
	}
	step, err := paramutil.IntOr(deps.Params, "step", 1)
	if err != nil {
		return sk.Definition{}, err
	}
	return Definition(step), nil
}

func count(s sk.Snapshot) int { return sk.MustField[int](s, "count") }

// Definition returns the counter store definition.
func Definition(step int) sk.Definition {
	add := func(c *sk.Context, n int) error {
		return c.Dispatch("count", count(c.State)+n)
	}

	return sk.Definition{
		Name:  Name,
		State: []sk.Field{sk.F("count", 0)},
		Queries: map[string]sk.QueryFunc{
			"isPositive": func(s sk.Snapshot) interface{} { return count(s) > 0 },
			"isZero":     func(s sk.Snapshot) interface{} { return count(s) == 0 },
			"doubled":    func(s sk.Snapshot) interface{} { return count(s) * 2 },
		},
		Actions: map[string]sk.ActionFunc{
			"increment": func(c *sk.Context, _ ...interface{}) error {
				return add(c, step)
			},
			"decrement": func(c *sk.Context, _ ...interface{}) error {
				return add(c, -step)
			},
			"add": func(c *sk.Context, args ...interface{}) error {
				n, err := demo.Int(args, 0)
				if err != nil {
					return err
				}
				return add(c, n)
			},
			"reset": func(c *sk.Context, _ ...interface{}) error {
				return c.Dispatch("count", 0)
			},
			// incrementAfter waits, then increments the count it saw when
			// invoked. Cancellation ends the wait without a dispatch.
			"incrementAfter": func(c *sk.Context, args ...interface{}) error {
				d, err := demo.Duration(args, 0)
				if err != nil {
					return err
				}
				timer := time.NewTimer(d)
				defer timer.Stop()
				select {
				case <-c.Done():
					return c.Err()
				case <-timer.C:
				}
				return add(c, step)
			},
		},
	}
}
