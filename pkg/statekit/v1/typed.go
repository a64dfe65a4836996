package v1

import (
	"fmt"

	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// Querier is anything that evaluates queries by name: a store, an action
// Context, or a QueryResults binding.
type Querier interface {
	Query(name string) (interface{}, error)
}

// FieldAs reads a field from a snapshot as type T.
func FieldAs[T any](s Snapshot, name string) (T, error) {
	var zero T
	v, ok := s.Get(name)
	if !ok {
		return zero, skerrors.NewUnknownNameError(skerrors.KindField, name, "")
	}
	return as[T](v, "field", name)
}

// MustField is FieldAs for fields whose type is fixed by the definition.
// It panics on a missing field or a type mismatch.
func MustField[T any](s Snapshot, name string) T {
	v, err := FieldAs[T](s, name)
	if err != nil {
		panic(err)
	}
	return v
}

// QueryAs evaluates a query and returns its result as type T.
func QueryAs[T any](q Querier, name string) (T, error) {
	var zero T
	v, err := q.Query(name)
	if err != nil {
		return zero, err
	}
	return as[T](v, "query", name)
}

// ArgAs returns action argument i as type T. Missing arguments and type
// mismatches yield a ValidationError.
func ArgAs[T any](args []interface{}, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(args) {
		return zero, skerrors.NewValidationError(fmt.Sprintf("missing argument %d (got %d)", i, len(args)), nil)
	}
	return as[T](args[i], "argument", fmt.Sprint(i))
}

func as[T any](v interface{}, what, name string) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, skerrors.NewValidationError(fmt.Sprintf("%s '%s' has type %T, want %T", what, name, v, zero), nil)
	}
	return t, nil
}
