package config

import (
	"fmt"
	"regexp"
	"time"

	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// storeNameRegex allows catalog names such as "order-book".
var storeNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateRunConfig checks rules the JSON schema does not express. Whether
// the store and its actions exist is checked against the catalog later.
func ValidateRunConfig(c *RunConfig) []error {
	var errs []error

	if c.Store == "" {
		errs = append(errs, skerrors.NewValidationError("'store' is required", nil))
	} else if !storeNameRegex.MatchString(c.Store) {
		errs = append(errs, skerrors.NewValidationError(fmt.Sprintf("store name '%s' contains invalid characters (allowed: alphanumeric, underscore, hyphen)", c.Store), nil))
	}

	if !c.AccessMode.Valid() {
		errs = append(errs, skerrors.NewValidationError(fmt.Sprintf("invalid access_mode: '%s'", c.AccessMode), nil))
	}
	if c.EventBufferSize != nil && *c.EventBufferSize < 0 {
		errs = append(errs, skerrors.NewValidationError("event_buffer_size cannot be negative", nil))
	}
	if c.Timeout != "" {
		if d, err := time.ParseDuration(c.Timeout); err != nil {
			errs = append(errs, skerrors.NewValidationError(fmt.Sprintf("invalid timeout '%s'", c.Timeout), err))
		} else if d <= 0 {
			errs = append(errs, skerrors.NewValidationError(fmt.Sprintf("timeout '%s' must be positive", c.Timeout), nil))
		}
	}

	for field := range c.State {
		if !identifierRegex.MatchString(field) {
			errs = append(errs, skerrors.NewValidationError(fmt.Sprintf("state override '%s' is not a valid field name", field), nil))
		}
	}
	for i, inv := range c.Invoke {
		if !identifierRegex.MatchString(inv.Action) {
			errs = append(errs, skerrors.NewValidationError(fmt.Sprintf("invoke %d: action '%s' is not a valid identifier", i, inv.Action), nil))
		}
	}
	return errs
}
