// Package trades is a demo store tracking recent trades of one market
// symbol. Market data comes from a Fetcher; the store never talks to the
// network itself.
package trades

import (
	"context"
	"time"

	"github.com/gxo-labs/statekit/internal/catalog"
	"github.com/gxo-labs/statekit/internal/demo"
	"github.com/gxo-labs/statekit/internal/logger"
	"github.com/gxo-labs/statekit/internal/paramutil"
	"github.com/gxo-labs/statekit/internal/retry"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skcatalog "github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// Name is the catalog name of the trades store.
const Name = "trades"

// DefaultSymbol is used when no symbol param is given.
const DefaultSymbol = "BTC-USD"

func init() {
	catalog.Register(Name, Factory)
}

// SampleTrades backs the default StaticFetcher.
var SampleTrades = StaticFetcher{
	"BTC-USD": {
		{At: 1700000000000, Price: 37000, Quantity: 0.5},
		{At: 1700000001000, Price: 37010, Quantity: 0.25},
		{At: 1700000002000, Price: 36990, Quantity: 1},
	},
	"ETH-USD": {
		{At: 1700000000000, Price: 2050, Quantity: 3},
		{At: 1700000001500, Price: 2052.5, Quantity: 2},
	},
}

// Options configures Definition.
type Options struct {
	Symbol  string
	Fetcher Fetcher
	Retry   retry.Config
	Helper  *retry.Helper
	// Now stamps trades added with addTrade.
	Now func() time.Time
}

// Factory builds the trades definition. Params: "symbol", "trades_csv" (a
// CSV file read by CSVFetcher instead of the built-in samples), "retries"
// and "retry_delay".
func Factory(deps skcatalog.Deps) (sk.Definition, error) {
	p := deps.Params
	if err := paramutil.CheckAllowed(p, "symbol", "trades_csv", "retries", "retry_delay"); err != nil {
		return sk.Definition{}, err
	}
	symbol, err := paramutil.StringOr(p, "symbol", DefaultSymbol)
	if err != nil {
		return sk.Definition{}, err
	}
	attempts, err := paramutil.IntOr(p, "retries", 3)
	if err != nil {
		return sk.Definition{}, err
	}
	if attempts < 1 {
		return sk.Definition{}, skerrors.NewValidationError("parameter 'retries' must be at least 1", nil)
	}
	delay, err := paramutil.DurationOr(p, "retry_delay", 100*time.Millisecond)
	if err != nil {
		return sk.Definition{}, err
	}

	var fetcher Fetcher = SampleTrades
	if path, ok, err := paramutil.OptionalString(p, "trades_csv"); err != nil {
		return sk.Definition{}, err
	} else if ok {
		fetcher = CSVFetcher{Path: path}
	}

	log := deps.Log
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return Definition(Options{
		Symbol:  symbol,
		Fetcher: fetcher,
		Retry:   retry.Config{Attempts: attempts, Delay: delay, MaxDelay: 5 * time.Second, BackoffFactor: 2, Jitter: 0.1},
		Helper:  retry.NewHelper(log.With("component", "trades")),
	}), nil
}

func list(s sk.Snapshot) []Trade { return sk.MustField[[]Trade](s, "trades") }

func volume(ts []Trade) float64 {
	total := 0.0
	for _, t := range ts {
		total += t.Quantity
	}
	return total
}

// Definition returns the trades store definition.
func Definition(opts Options) sk.Definition {
	if opts.Fetcher == nil {
		opts.Fetcher = SampleTrades
	}
	if opts.Helper == nil {
		opts.Helper = retry.NewHelper(logger.NewDiscardLogger())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Symbol == "" {
		opts.Symbol = DefaultSymbol
	}

	return sk.Definition{
		Name: Name,
		State: []sk.Field{
			sk.F("symbol", opts.Symbol),
			sk.F("trades", []Trade{}),
			sk.F("loading", false),
			sk.F("lastError", ""),
		},
		Queries: map[string]sk.QueryFunc{
			"latestPrice": func(s sk.Snapshot) interface{} {
				ts := list(s)
				if len(ts) == 0 {
					return 0.0
				}
				return ts[len(ts)-1].Price
			},
			"volume":     func(s sk.Snapshot) interface{} { return volume(list(s)) },
			"tradeCount": func(s sk.Snapshot) interface{} { return len(list(s)) },
			// vwap is the volume-weighted average price, zero without volume.
			"vwap": func(s sk.Snapshot) interface{} {
				ts := list(s)
				v := volume(ts)
				if v == 0 {
					return 0.0
				}
				notional := 0.0
				for _, t := range ts {
					notional += t.Price * t.Quantity
				}
				return notional / v
			},
		},
		Actions: map[string]sk.ActionFunc{
			"setSymbol": func(c *sk.Context, args ...interface{}) error {
				symbol, err := demo.String(args, 0)
				if err != nil {
					return err
				}
				if symbol == "" {
					return skerrors.NewValidationError("symbol cannot be empty", nil)
				}
				if err := c.Dispatch("symbol", symbol); err != nil {
					return err
				}
				return c.Dispatch("trades", []Trade{})
			},
			"fetchTrades": func(c *sk.Context, _ ...interface{}) error {
				symbol := sk.MustField[string](c.State, "symbol")
				if err := c.Dispatch("loading", true); err != nil {
					return err
				}

				var fetched []Trade
				cfg := opts.Retry
				cfg.Name = "fetch " + symbol
				err := opts.Helper.Do(c, cfg, func(ctx context.Context) error {
					ts, err := opts.Fetcher.Fetch(ctx, symbol)
					if err != nil {
						return err
					}
					fetched = ts
					return nil
				})
				if err != nil {
					// The store may be closed by now; the fetch error wins.
					_ = c.Dispatch("lastError", err.Error())
					_ = c.Dispatch("loading", false)
					return err
				}
				if fetched == nil {
					fetched = []Trade{}
				}
				if err := c.Dispatch("trades", fetched); err != nil {
					return err
				}
				if err := c.Dispatch("lastError", ""); err != nil {
					return err
				}
				return c.Dispatch("loading", false)
			},
			"addTrade": func(c *sk.Context, args ...interface{}) error {
				price, err := demo.Float(args, 0)
				if err != nil {
					return err
				}
				qty, err := demo.Float(args, 1)
				if err != nil {
					return err
				}
				if price < 0 || qty <= 0 {
					return skerrors.NewValidationError("price must be non-negative and quantity positive", nil)
				}
				current := list(c.State)
				next := make([]Trade, len(current), len(current)+1)
				copy(next, current)
				next = append(next, Trade{At: opts.Now().UnixMilli(), Price: price, Quantity: qty})
				return c.Dispatch("trades", next)
			},
			"clearTrades": func(c *sk.Context, _ ...interface{}) error {
				return c.Dispatch("trades", []Trade{})
			},
		},
	}
}
