package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

// SupportedSchemaMajor is the schemaVersion major this build accepts.
const SupportedSchemaMajor = "v1"

// Load parses a run config: schema validation, strict decoding, schemaVersion
// compatibility, then logical validation.
func Load(data []byte, pathHint string) (*RunConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, skerrors.NewConfigError("run config content cannot be empty", nil)
	}

	if err := ValidateWithSchema(data); err != nil {
		return nil, skerrors.NewConfigError(fmt.Sprintf("run config '%s' failed schema validation", pathHint), err)
	}

	var cfg RunConfig
	if err := yamlUnmarshalStrict(data, &cfg); err != nil {
		return nil, skerrors.NewConfigError(fmt.Sprintf("failed to parse run config '%s'", pathHint), err)
	}
	cfg.FilePath = pathHint

	if err := checkSchemaVersion(cfg.SchemaVersion, pathHint); err != nil {
		return nil, err
	}

	if errs := ValidateRunConfig(&cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, skerrors.NewValidationError(
			fmt.Sprintf("run config '%s' has %d validation error(s):\n- %s", pathHint, len(msgs), strings.Join(msgs, "\n- ")),
			errs[0],
		)
	}
	return &cfg, nil
}

// LoadFile reads and parses a run config from disk.
func LoadFile(path string) (*RunConfig, error) {
	if path == "" {
		return nil, skerrors.NewConfigError("run config path cannot be empty", nil)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, skerrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", path), err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, skerrors.NewConfigError(fmt.Sprintf("failed to read run config '%s'", absPath), err)
	}
	return Load(data, absPath)
}

func checkSchemaVersion(version, pathHint string) error {
	if version == "" {
		return skerrors.NewValidationError(fmt.Sprintf("run config '%s' is missing required 'schemaVersion' field", pathHint), nil)
	}
	v := version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return skerrors.NewValidationError(fmt.Sprintf("run config '%s' has invalid 'schemaVersion' format: '%s'", pathHint, version), nil)
	}
	if semver.Major(v) != SupportedSchemaMajor {
		return skerrors.NewValidationError(
			fmt.Sprintf("run config '%s' schemaVersion '%s' is not compatible with '%s'", pathHint, version, SupportedSchemaMajor), nil)
	}
	return nil
}

// yamlUnmarshalStrict rejects fields not present in out.
func yamlUnmarshalStrict(in []byte, out interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(in))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("YAML parsing error: %w", err)
	}
	return nil
}
