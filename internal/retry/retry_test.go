package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gxo-labs/statekit/internal/logger"
)

var errFlaky = errors.New("flaky")

func TestDo_SucceedsAfterFailures(t *testing.T) {
	h := NewHelper(logger.NewDiscardLogger())
	calls := 0
	err := h.Do(context.Background(), Config{Attempts: 3, Delay: time.Millisecond, BackoffFactor: 2}, func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	h := NewHelper(logger.NewDiscardLogger())
	calls := 0
	err := h.Do(context.Background(), Config{Attempts: 2, Delay: time.Millisecond}, func(context.Context) error {
		calls++
		return errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 2, calls)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	h := NewHelper(logger.NewDiscardLogger())
	calls := 0
	err := h.Do(context.Background(), Config{}, func(context.Context) error {
		calls++
		return errFlaky
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	h := NewHelper(logger.NewDiscardLogger())
	calls := 0
	err := h.Do(context.Background(), Config{Attempts: 5, Delay: time.Millisecond}, func(context.Context) error {
		calls++
		return Permanent(errFlaky)
	})
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestDo_CancelledDuringWait(t *testing.T) {
	h := NewHelper(logger.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := h.Do(ctx, Config{Attempts: 5, Delay: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errFlaky
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "flaky")
	assert.Equal(t, 1, calls)
}

func TestNewHelper_RequiresLogger(t *testing.T) {
	assert.Panics(t, func() { NewHelper(nil) })
}
