// Package demo holds argument helpers shared by the demo store definitions.
// Arguments reach actions from Go callers, YAML run configs and CLI flags, so
// numbers may arrive as any Go numeric kind or as text.
package demo

import (
	"fmt"
	"math"
	"strconv"
	"time"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

func argError(i int, want string, v interface{}) error {
	return skerrors.NewValidationError(fmt.Sprintf("argument %d must be %s, got %T (%v)", i, want, v, v), nil)
}

// Float returns argument i as a float64.
func Float(args []interface{}, i int) (float64, error) {
	v, err := sk.ArgAs[interface{}](args, i)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, argError(i, "a number", v)
		}
		return f, nil
	default:
		return 0, argError(i, "a number", v)
	}
}

// Int returns argument i as an int. Fractional numbers are rejected.
func Int(args []interface{}, i int) (int, error) {
	f, err := Float(args, i)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, argError(i, "an integer", args[i])
	}
	return int(f), nil
}

// String returns argument i as a string.
func String(args []interface{}, i int) (string, error) {
	v, err := sk.ArgAs[interface{}](args, i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", argError(i, "a string", v)
	}
	return s, nil
}

// Duration returns argument i as a duration. Strings use Go duration syntax.
func Duration(args []interface{}, i int) (time.Duration, error) {
	v, err := sk.ArgAs[interface{}](args, i)
	if err != nil {
		return 0, err
	}
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, argError(i, "a duration", v)
		}
		return parsed, nil
	default:
		return 0, argError(i, "a duration", v)
	}
}
