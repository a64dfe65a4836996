package store

import (
	"fmt"
	"math"
	"reflect"

	"github.com/goccy/go-json"

	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// coerce converts an initial-state override to the type of the declared
// initial value. Assignable values are kept; numeric and string values are
// converted within their kind family; composite values (as decoded from YAML
// or JSON) are re-decoded into the declared type.
func coerce(field string, declared, override interface{}) (interface{}, error) {
	if declared == nil {
		return override, nil
	}
	dt := reflect.TypeOf(declared)

	if override == nil {
		switch dt.Kind() {
		case reflect.Map, reflect.Slice, reflect.Ptr, reflect.Interface:
			return reflect.Zero(dt).Interface(), nil
		}
		return nil, mismatch(field, declared, override)
	}

	ov := reflect.ValueOf(override)
	if ov.Type().AssignableTo(dt) {
		return override, nil
	}

	switch {
	case isNumeric(dt.Kind()) && isNumeric(ov.Kind()):
		if isInteger(dt.Kind()) && isFloat(ov.Kind()) {
			f := ov.Float()
			if f != math.Trunc(f) {
				return nil, mismatch(field, declared, override)
			}
		}
		if !fits(dt, ov) {
			return nil, mismatch(field, declared, override)
		}
		return ov.Convert(dt).Interface(), nil
	case dt.Kind() == reflect.String && ov.Kind() == reflect.String:
		return ov.Convert(dt).Interface(), nil
	case dt.Kind() == reflect.Slice || dt.Kind() == reflect.Map || dt.Kind() == reflect.Struct:
		raw, err := json.Marshal(override)
		if err != nil {
			return nil, skerrors.NewValidationError(fmt.Sprintf("initial value for field '%s' cannot be encoded", field), err)
		}
		dst := reflect.New(dt)
		if err := json.Unmarshal(raw, dst.Interface()); err != nil {
			return nil, skerrors.NewValidationError(fmt.Sprintf("initial value for field '%s' does not fit %T", field, declared), err)
		}
		return dst.Elem().Interface(), nil
	}
	return nil, mismatch(field, declared, override)
}

func mismatch(field string, declared, override interface{}) error {
	return skerrors.NewValidationError(fmt.Sprintf("initial value for field '%s' has type %T, want %T", field, override, declared), nil)
}

// fits reports whether the numeric value ov is representable in dt without
// wrapping or a sign change.
func fits(dt reflect.Type, ov reflect.Value) bool {
	dst := reflect.New(dt).Elem()
	switch {
	case isSigned(dt.Kind()):
		switch {
		case isSigned(ov.Kind()):
			return !dst.OverflowInt(ov.Int())
		case isUnsigned(ov.Kind()):
			return ov.Uint() <= math.MaxInt64 && !dst.OverflowInt(int64(ov.Uint()))
		default:
			f := ov.Float()
			return f >= -math.Exp2(63) && f < math.Exp2(63) && !dst.OverflowInt(int64(f))
		}
	case isUnsigned(dt.Kind()):
		switch {
		case isSigned(ov.Kind()):
			return ov.Int() >= 0 && !dst.OverflowUint(uint64(ov.Int()))
		case isUnsigned(ov.Kind()):
			return !dst.OverflowUint(ov.Uint())
		default:
			f := ov.Float()
			return f >= 0 && f < math.Exp2(64) && !dst.OverflowUint(uint64(f))
		}
	case isFloat(ov.Kind()):
		return !dst.OverflowFloat(ov.Float())
	}
	return true
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumeric(k reflect.Kind) bool {
	return isInteger(k) || isFloat(k)
}
