package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// defaultStoreName is used for definitions that leave Name empty.
const defaultStoreName = "store"

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateDefinition checks the shape of def and reports every problem it
// finds in a single ValidationError. Field, query and action names share one
// namespace and must be identifiers.
func ValidateDefinition(def sk.Definition) error {
	name := def.Name
	if name == "" {
		name = defaultStoreName
	}

	var problems []error
	fields := make(map[string]struct{}, len(def.State))
	for i, f := range def.State {
		switch {
		case f.Name == "":
			problems = append(problems, fmt.Errorf("state field %d has an empty name", i))
			continue
		case !identifierRe.MatchString(f.Name):
			problems = append(problems, fmt.Errorf("state field '%s' is not a valid identifier", f.Name))
		}
		if _, dup := fields[f.Name]; dup {
			problems = append(problems, fmt.Errorf("duplicate state field '%s'", f.Name))
		}
		fields[f.Name] = struct{}{}
	}

	for _, q := range sortedKeys(def.Queries) {
		switch {
		case q == "":
			problems = append(problems, errors.New("query with an empty name"))
			continue
		case !identifierRe.MatchString(q):
			problems = append(problems, fmt.Errorf("query '%s' is not a valid identifier", q))
		}
		if def.Queries[q] == nil {
			problems = append(problems, fmt.Errorf("query '%s' has a nil function", q))
		}
		if _, clash := fields[q]; clash {
			problems = append(problems, fmt.Errorf("query '%s' collides with a state field", q))
		}
	}

	for _, a := range sortedKeys(def.Actions) {
		switch {
		case a == "":
			problems = append(problems, errors.New("action with an empty name"))
			continue
		case !identifierRe.MatchString(a):
			problems = append(problems, fmt.Errorf("action '%s' is not a valid identifier", a))
		}
		if def.Actions[a] == nil {
			problems = append(problems, fmt.Errorf("action '%s' has a nil function", a))
		}
		if _, clash := fields[a]; clash {
			problems = append(problems, fmt.Errorf("action '%s' collides with a state field", a))
		}
		if _, clash := def.Queries[a]; clash {
			problems = append(problems, fmt.Errorf("action '%s' collides with a query", a))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return skerrors.NewValidationError(fmt.Sprintf("invalid definition for store '%s'", name), errors.Join(problems...))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
