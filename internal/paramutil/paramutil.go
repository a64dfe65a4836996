// Package paramutil reads typed values out of catalog factory params, which
// arrive as YAML-decoded maps or CLI "key=value" strings.
package paramutil

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

func invalid(key, format string, args ...interface{}) error {
	return skerrors.NewValidationError(fmt.Sprintf("parameter '%s' %s", key, fmt.Sprintf(format, args...)), nil)
}

// OptionalString returns params[key] as a string and whether it was present.
func OptionalString(params map[string]interface{}, key string) (string, bool, error) {
	value, exists := params[key]
	if !exists || value == nil {
		return "", false, nil
	}
	s, ok := value.(string)
	if !ok {
		return "", false, invalid(key, "must be a string, got %T", value)
	}
	return s, true, nil
}

// StringOr returns params[key] or def when absent.
func StringOr(params map[string]interface{}, key, def string) (string, error) {
	s, ok, err := OptionalString(params, key)
	if err != nil || !ok {
		return def, err
	}
	return s, nil
}

// OptionalInt returns params[key] as an int. Whole floats and numeric
// strings are accepted since CLI params arrive as text.
func OptionalInt(params map[string]interface{}, key string) (int, bool, error) {
	value, exists := params[key]
	if !exists || value == nil {
		return 0, false, nil
	}
	switch v := value.(type) {
	case int:
		return v, true, nil
	case int32:
		return int(v), true, nil
	case int64:
		if v > math.MaxInt || v < math.MinInt {
			return 0, false, invalid(key, "value %d overflows int", v)
		}
		return int(v), true, nil
	case uint64:
		if v > math.MaxInt {
			return 0, false, invalid(key, "value %d overflows int", v)
		}
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, invalid(key, "is a non-integer number (%v)", v)
		}
		return int(v), true, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false, invalid(key, "is not an integer: %q", v)
		}
		return n, true, nil
	default:
		return 0, false, invalid(key, "must be an integer, got %T", value)
	}
}

// IntOr returns params[key] as an int or def when absent.
func IntOr(params map[string]interface{}, key string, def int) (int, error) {
	n, ok, err := OptionalInt(params, key)
	if err != nil || !ok {
		return def, err
	}
	return n, nil
}

// DurationOr returns params[key] as a duration or def when absent. Values may
// be Go duration strings or time.Duration.
func DurationOr(params map[string]interface{}, key string, def time.Duration) (time.Duration, error) {
	value, exists := params[key]
	if !exists || value == nil {
		return def, nil
	}
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return def, invalid(key, "is not a duration: %q", v)
		}
		return d, nil
	default:
		return def, invalid(key, "must be a duration string, got %T", value)
	}
}

// CheckAllowed rejects keys outside allowed.
func CheckAllowed(params map[string]interface{}, allowed ...string) error {
	set := make(map[string]struct{}, len(allowed))
	for _, key := range allowed {
		set[key] = struct{}{}
	}
	var unknown []string
	for key := range params {
		if _, ok := set[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return skerrors.NewValidationError(fmt.Sprintf("unknown parameter(s) %q (allowed: %q)", unknown, allowed), nil)
}
