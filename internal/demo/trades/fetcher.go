package trades

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gxo-labs/statekit/internal/retry"
)

// ErrUnknownSymbol is returned by fetchers that have no data for a symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")

// Trade is one executed trade.
type Trade struct {
	// At is the execution time in Unix milliseconds.
	At       int64   `json:"at" yaml:"at"`
	Price    float64 `json:"price" yaml:"price"`
	Quantity float64 `json:"quantity" yaml:"quantity"`
}

// Fetcher loads recent trades for a symbol.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) ([]Trade, error)
}

// StaticFetcher serves trades from memory.
type StaticFetcher map[string][]Trade

// Fetch returns a copy of the trades held for symbol.
func (f StaticFetcher) Fetch(ctx context.Context, symbol string) ([]Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trades, ok := f[symbol]
	if !ok {
		return nil, retry.Permanent(fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol))
	}
	return append([]Trade(nil), trades...), nil
}

// CSVFetcher reads trades from a CSV file with a header row of
// "time,price,quantity" and an optional fourth "symbol" column. Time is
// RFC 3339 or Unix milliseconds. Without a symbol column every row matches.
type CSVFetcher struct {
	Path string
}

// Fetch reads the file on every call so edits are picked up between fetches.
func (f CSVFetcher) Fetch(ctx context.Context, symbol string) ([]Trade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	defer file.Close()

	trades, err := parseCSV(file, symbol)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("%s: %w", f.Path, err))
	}
	return trades, nil
}

func parseCSV(r io.Reader, symbol string) ([]Trade, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"time", "price", "quantity"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	symbolCol, hasSymbol := cols["symbol"]

	var trades []Trade
	found := !hasSymbol
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(record) < len(header) {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, len(header), len(record))
		}
		if hasSymbol {
			if record[symbolCol] != symbol {
				continue
			}
			found = true
		}
		trade, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trades = append(trades, trade)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return trades, nil
}

func parseRecord(record []string, cols map[string]int) (Trade, error) {
	at, err := parseTime(record[cols["time"]])
	if err != nil {
		return Trade{}, err
	}
	price, err := strconv.ParseFloat(record[cols["price"]], 64)
	if err != nil {
		return Trade{}, fmt.Errorf("invalid price %q", record[cols["price"]])
	}
	qty, err := strconv.ParseFloat(record[cols["quantity"]], 64)
	if err != nil {
		return Trade{}, fmt.Errorf("invalid quantity %q", record[cols["quantity"]])
	}
	if price < 0 || qty < 0 {
		return Trade{}, fmt.Errorf("negative price or quantity")
	}
	return Trade{At: at, Price: price, Quantity: qty}, nil
}

func parseTime(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return t.UnixMilli(), nil
}
