package cli

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gxo-labs/statekit/internal/config"
)

var actionNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// parseInvocation parses an --invoke value: "action" or "action=a,b". The
// argument list is read as a YAML flow sequence, so numbers, booleans and
// quoted strings keep their types.
func parseInvocation(raw string) (config.Invocation, error) {
	name, argText, hasArgs := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !actionNameRegex.MatchString(name) {
		return config.Invocation{}, fmt.Errorf("invalid action name %q in --invoke %q", name, raw)
	}
	inv := config.Invocation{Action: name}
	if !hasArgs || strings.TrimSpace(argText) == "" {
		return inv, nil
	}
	var args []interface{}
	if err := yaml.Unmarshal([]byte("["+argText+"]"), &args); err != nil {
		return config.Invocation{}, fmt.Errorf("invalid arguments in --invoke %q: %w", raw, err)
	}
	inv.Args = args
	return inv, nil
}

// parseParam parses a --param value "key=value". The value is read as a
// YAML scalar.
func parseParam(raw string) (string, interface{}, error) {
	key, valueText, ok := strings.Cut(raw, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, fmt.Errorf("invalid --param %q: want key=value", raw)
	}
	var value interface{}
	if err := yaml.Unmarshal([]byte(valueText), &value); err != nil {
		return "", nil, fmt.Errorf("invalid --param %q: %w", raw, err)
	}
	if value == nil {
		value = valueText
	}
	return key, value, nil
}
