package trades

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/statekit/internal/logger"
	"github.com/gxo-labs/statekit/internal/retry"
	"github.com/gxo-labs/statekit/internal/store"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skcatalog "github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

type flakyFetcher struct {
	failures int32
	calls    atomic.Int32
	trades   []Trade
}

func (f *flakyFetcher) Fetch(_ context.Context, _ string) ([]Trade, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("exchange unavailable")
	}
	return f.trades, nil
}

func fastRetry(attempts int) retry.Config {
	return retry.Config{Attempts: attempts, Delay: time.Millisecond, BackoffFactor: 1}
}

func newTrades(t *testing.T, opts Options) *store.Store {
	t.Helper()
	s, err := store.New(logger.NewDiscardLogger(), Definition(opts))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFetchTradesFromSamples(t *testing.T) {
	s := newTrades(t, Options{Retry: fastRetry(1)})
	require.NoError(t, s.Invoke(context.Background(), "fetchTrades"))

	count, err := sk.QueryAs[int](s, "tradeCount")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	latest, err := sk.QueryAs[float64](s, "latestPrice")
	require.NoError(t, err)
	assert.Equal(t, 36990.0, latest)

	volume, err := sk.QueryAs[float64](s, "volume")
	require.NoError(t, err)
	assert.InDelta(t, 1.75, volume, 1e-9)

	vwap, err := sk.QueryAs[float64](s, "vwap")
	require.NoError(t, err)
	assert.InDelta(t, (37000*0.5+37010*0.25+36990*1)/1.75, vwap, 1e-6)

	loading, err := s.Get("loading")
	require.NoError(t, err)
	assert.Equal(t, false, loading)
}

func TestFetchTradesDispatchOrder(t *testing.T) {
	s := newTrades(t, Options{Retry: fastRetry(1)})
	var fields []string
	s.Subscribe(func(c sk.Change) error {
		fields = append(fields, c.Field)
		return nil
	})
	require.NoError(t, s.Invoke(context.Background(), "fetchTrades"))
	assert.Equal(t, []string{"loading", "trades", "lastError", "loading"}, fields)
}

func TestFetchTradesRetries(t *testing.T) {
	fetcher := &flakyFetcher{failures: 2, trades: []Trade{{At: 1, Price: 10, Quantity: 2}}}
	s := newTrades(t, Options{Fetcher: fetcher, Retry: fastRetry(3)})

	require.NoError(t, s.Invoke(context.Background(), "fetchTrades"))
	assert.Equal(t, int32(3), fetcher.calls.Load())
	count, err := sk.QueryAs[int](s, "tradeCount")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFetchTradesFailureRecordsError(t *testing.T) {
	fetcher := &flakyFetcher{failures: 10}
	s := newTrades(t, Options{Fetcher: fetcher, Retry: fastRetry(2)})

	err := s.Invoke(context.Background(), "fetchTrades")
	require.Error(t, err)
	assert.True(t, skerrors.IsActionFailure(err))
	assert.Equal(t, int32(2), fetcher.calls.Load())

	lastErr, err := sk.FieldAs[string](s.State(), "lastError")
	require.NoError(t, err)
	assert.Contains(t, lastErr, "exchange unavailable")
	loading, err := s.Get("loading")
	require.NoError(t, err)
	assert.Equal(t, false, loading)
}

func TestUnknownSymbolIsNotRetried(t *testing.T) {
	s := newTrades(t, Options{Symbol: "DOGE-USD", Retry: fastRetry(5)})
	err := s.Invoke(context.Background(), "fetchTrades")
	assert.True(t, errors.Is(err, ErrUnknownSymbol))
}

func TestAddAndClearTrades(t *testing.T) {
	now := time.UnixMilli(1234)
	s := newTrades(t, Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	require.NoError(t, s.Invoke(ctx, "addTrade", 100, 2))
	require.NoError(t, s.Invoke(ctx, "addTrade", 110.0, "1"))
	ts, err := sk.FieldAs[[]Trade](s.State(), "trades")
	require.NoError(t, err)
	assert.Equal(t, []Trade{{At: 1234, Price: 100, Quantity: 2}, {At: 1234, Price: 110, Quantity: 1}}, ts)

	assert.Error(t, s.Invoke(ctx, "addTrade", 100, 0))

	require.NoError(t, s.Invoke(ctx, "clearTrades"))
	vwap, err := sk.QueryAs[float64](s, "vwap")
	require.NoError(t, err)
	assert.Equal(t, 0.0, vwap)
}

func TestSetSymbol(t *testing.T) {
	s := newTrades(t, Options{Retry: fastRetry(1)})
	ctx := context.Background()
	require.NoError(t, s.Invoke(ctx, "fetchTrades"))
	require.NoError(t, s.Invoke(ctx, "setSymbol", "ETH-USD"))

	count, err := sk.QueryAs[int](s, "tradeCount")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.Invoke(ctx, "fetchTrades"))
	latest, err := sk.QueryAs[float64](s, "latestPrice")
	require.NoError(t, err)
	assert.Equal(t, 2052.5, latest)

	assert.Error(t, s.Invoke(ctx, "setSymbol", ""))
}

func TestCSVFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	content := strings.Join([]string{
		"time,price,quantity,symbol",
		"2024-01-02T03:04:05Z,100.5,2,SOL-USD",
		"1700000000000,1,1,BTC-USD",
		"1700000001000,101,1,SOL-USD",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	ts, err := CSVFetcher{Path: path}.Fetch(context.Background(), "SOL-USD")
	require.NoError(t, err)
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli()
	assert.Equal(t, []Trade{{At: want, Price: 100.5, Quantity: 2}, {At: 1700000001000, Price: 101, Quantity: 1}}, ts)

	_, err = CSVFetcher{Path: path}.Fetch(context.Background(), "XRP-USD")
	assert.True(t, errors.Is(err, ErrUnknownSymbol))

	_, err = CSVFetcher{Path: filepath.Join(t.TempDir(), "none.csv")}.Fetch(context.Background(), "SOL-USD")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseCSVErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"missing column": "time,price\n1,2\n",
		"bad price":      "time,price,quantity\n1,abc,1\n",
		"bad time":       "time,price,quantity\nyesterday,1,1\n",
		"negative":       "time,price,quantity\n1,-1,1\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseCSV(strings.NewReader(doc), "")
			assert.Error(t, err)
		})
	}
}

func TestFactoryParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, os.WriteFile(path, []byte("time,price,quantity\n1,5,2\n"), 0o600))

	def, err := Factory(skcatalog.Deps{Params: map[string]interface{}{
		"symbol": "ANY", "trades_csv": path, "retries": 1, "retry_delay": "1ms",
	}})
	require.NoError(t, err)
	s, err := store.New(logger.NewDiscardLogger(), def)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Invoke(context.Background(), "fetchTrades"))
	latest, err := sk.QueryAs[float64](s, "latestPrice")
	require.NoError(t, err)
	assert.Equal(t, 5.0, latest)

	_, err = Factory(skcatalog.Deps{Params: map[string]interface{}{"retries": 0}})
	assert.Error(t, err)
	_, err = Factory(skcatalog.Deps{Params: map[string]interface{}{"retry_delay": "soon"}})
	assert.Error(t, err)
}
