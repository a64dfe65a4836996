// Package retry runs fallible operations with exponential backoff. Actions
// use it around external I/O before dispatching results.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	sklog "github.com/gxo-labs/statekit/pkg/statekit/v1/log"
)

// Operation is one attempt.
type Operation func(ctx context.Context) error

// Config controls the retry loop.
type Config struct {
	// Attempts is the total number of attempts, at least 1.
	Attempts int
	// Delay is the wait after the first failure.
	Delay time.Duration
	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration
	// BackoffFactor multiplies the delay after each failure; values below 1 are raised to 1.
	BackoffFactor float64
	// Jitter randomizes each wait by up to this fraction, clamped to [0, 1].
	Jitter float64
	// Name labels log lines.
	Name string
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Helper runs operations under a Config and logs failed attempts.
type Helper struct {
	log sklog.Logger
}

// NewHelper panics on a nil logger.
func NewHelper(log sklog.Logger) *Helper {
	if log == nil {
		panic("retry.NewHelper requires a non-nil logger")
	}
	return &Helper{log: log}
}

func (c Config) backOff(ctx context.Context) backoff.BackOff {
	if c.Attempts <= 0 {
		c.Attempts = 1
	}
	if c.BackoffFactor < 1.0 {
		c.BackoffFactor = 1.0
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	} else if c.Jitter > 1 {
		c.Jitter = 1
	}
	if c.Delay < 0 {
		c.Delay = 0
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.Delay
	exp.Multiplier = c.BackoffFactor
	exp.RandomizationFactor = c.Jitter
	exp.MaxInterval = c.MaxDelay
	if c.MaxDelay <= 0 {
		exp.MaxInterval = time.Duration(1<<63 - 1)
	}
	exp.MaxElapsedTime = 0
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.Attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a Permanent error, runs out of
// attempts, or ctx is done. The error of the last attempt is returned; on
// cancellation it is combined with the context error.
func (h *Helper) Do(ctx context.Context, cfg Config, op Operation) error {
	prefix := ""
	if cfg.Name != "" {
		prefix = fmt.Sprintf("%s: ", cfg.Name)
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	attempt := 0
	var lastErr error
	err := backoff.RetryNotify(func() error {
		attempt++
		lastErr = op(ctx)
		return lastErr
	}, cfg.backOff(ctx), func(err error, wait time.Duration) {
		h.log.Warnf("%sattempt %d/%d failed (retrying in %v): %v", prefix, attempt, attempts, wait.Truncate(time.Millisecond), err)
	})

	switch {
	case err == nil:
		if attempt > 1 {
			h.log.Infof("%ssucceeded on attempt %d/%d", prefix, attempt, attempts)
		}
		return nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()) && lastErr != nil && !errors.Is(lastErr, ctx.Err()):
		return fmt.Errorf("retry cancelled after %d attempts: %w (last error: %v)", attempt, ctx.Err(), lastErr)
	default:
		h.log.Debugf("%sgave up after %d attempts: %v", prefix, attempt, err)
		return err
	}
}
