package errors

import (
	"errors"
	"fmt"
)

// --- Lifecycle Sentinels ---

var (
	// ErrStoreClosed is returned by dispatch and invoke once a store has been closed.
	// Dispatches issued by actions that outlive their store are rejected with it.
	ErrStoreClosed = errors.New("store is closed")
	// ErrNotCreated is returned when a container is read before its store exists.
	ErrNotCreated = errors.New("store has not been created")
	// ErrAlreadyCreated is returned when a container is asked to create a second store.
	ErrAlreadyCreated = errors.New("store has already been created")
	// ErrReleased is returned by every container operation after Release.
	ErrReleased = errors.New("store container has been released")
)

// --- Core Error Types ---

// ConfigError represents an error encountered while loading or applying
// configuration: store options, run configuration files, catalog registration.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that some input (a store definition, an initial
// state override, an action argument) failed validation checks.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// Name kinds reported by UnknownNameError.
const (
	KindField  = "field"
	KindQuery  = "query"
	KindAction = "action"
	KindStore  = "store"
)

// UnknownNameError indicates that a field, query, action or catalog entry was
// addressed by a name that was never registered. It always signals a
// programming mistake at the call site.
type UnknownNameError struct {
	Kind  string // One of the Kind* constants.
	Name  string
	Store string // Owning store, if known.
}

func NewUnknownNameError(kind, name, store string) *UnknownNameError {
	return &UnknownNameError{Kind: kind, Name: name, Store: store}
}
func (e *UnknownNameError) Error() string {
	if e.Store != "" {
		return fmt.Sprintf("unknown %s '%s' in store '%s'", e.Kind, e.Name, e.Store)
	}
	return fmt.Sprintf("unknown %s '%s'", e.Kind, e.Name)
}

// QueryError reports a query function that panicked while being evaluated.
type QueryError struct {
	Query string
	Cause error
}

func NewQueryError(query string, cause error) *QueryError {
	return &QueryError{Query: query, Cause: cause}
}
func (e *QueryError) Error() string {
	return fmt.Sprintf("query '%s' failed: %v", e.Query, e.Cause)
}
func (e *QueryError) Unwrap() error { return e.Cause }

// ActionError represents a failed action invocation: the action returned an
// error, panicked, or was rejected by a hook. Dispatches the action issued
// before failing remain applied.
type ActionError struct {
	Action string
	Cause  error
}

func NewActionError(action string, cause error) *ActionError {
	return &ActionError{Action: action, Cause: cause}
}
func (e *ActionError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("action failed: %v", e.Cause)
	}
	return fmt.Sprintf("action '%s' failed: %v", e.Action, e.Cause)
}
func (e *ActionError) Unwrap() error { return e.Cause }

// SubscriberError represents a subscriber callback that returned an error or
// panicked during a notification pass. These errors never reach the
// dispatcher; they are reported through logs, events and metrics.
type SubscriberError struct {
	SubscriptionID string
	Field          string // The dispatched field being delivered.
	Cause          error
}

func NewSubscriberError(subscriptionID, field string, cause error) *SubscriberError {
	return &SubscriberError{SubscriptionID: subscriptionID, Field: field, Cause: cause}
}
func (e *SubscriberError) Error() string {
	return fmt.Sprintf("subscriber '%s' failed on field '%s': %v", e.SubscriptionID, e.Field, e.Cause)
}
func (e *SubscriberError) Unwrap() error { return e.Cause }

// PanicError carries a recovered panic value as an error.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// IsProgrammingError reports whether err stems from a configuration or usage
// mistake (unknown names, invalid definitions, broken queries) rather than an
// expected runtime failure inside an action.
func IsProgrammingError(err error) bool {
	var cfgErr *ConfigError
	var valErr *ValidationError
	var nameErr *UnknownNameError
	var queryErr *QueryError
	return errors.As(err, &cfgErr) || errors.As(err, &valErr) ||
		errors.As(err, &nameErr) || errors.As(err, &queryErr)
}

// IsActionFailure reports whether err is an action-level failure.
func IsActionFailure(err error) bool {
	var actionErr *ActionError
	return errors.As(err, &actionErr)
}
