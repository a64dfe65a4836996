package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

const validConfig = `
schemaVersion: v1.0.0
store: counter
access_mode: unsafe_direct_reference
memoize_queries: true
event_buffer_size: 16
timeout: 5s
params:
  step: 2
state:
  count: 10
invoke:
  - action: increment
  - action: add
    args: [5]
    ignore_errors: true
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load([]byte(validConfig), "test.yaml")
	require.NoError(t, err)

	assert.Equal(t, "counter", cfg.Store)
	assert.Equal(t, StateAccessUnsafeDirectReference, cfg.AccessMode)
	assert.True(t, cfg.MemoizeQueries)
	assert.Equal(t, 16, cfg.BufferSize())
	assert.True(t, cfg.EventsEnabled())
	assert.Equal(t, 2, cfg.Params["step"])
	assert.Equal(t, 10, cfg.State["count"])
	require.Len(t, cfg.Invoke, 2)
	assert.Equal(t, "add", cfg.Invoke[1].Action)
	assert.Equal(t, []interface{}{5}, cfg.Invoke[1].Args)
	assert.True(t, cfg.Invoke[1].IgnoreErrors)
	assert.Equal(t, "test.yaml", cfg.FilePath)

	d, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
	assert.Len(t, cfg.StoreOptions(), 3)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]byte("schemaVersion: '1.0'\nstore: todo\n"), "min.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultEventBufferSize, cfg.BufferSize())
	assert.True(t, cfg.EventsEnabled())
	assert.Empty(t, cfg.StoreOptions())

	zero := 0
	cfg.EventBufferSize = &zero
	assert.False(t, cfg.EventsEnabled())
}

func TestLoad_Rejections(t *testing.T) {
	cases := map[string]string{
		"empty":          "   ",
		"schema":         "schemaVersion: v1.0.0\nstore: counter\nunknown_key: 1\n",
		"missing store":  "schemaVersion: v1.0.0\n",
		"bad mode":       "schemaVersion: v1.0.0\nstore: counter\naccess_mode: sometimes\n",
		"major mismatch": "schemaVersion: v2.0.0\nstore: counter\n",
		"bad timeout":    "schemaVersion: v1.0.0\nstore: counter\ntimeout: soon\n",
		"bad action":     "schemaVersion: v1.0.0\nstore: counter\ninvoke:\n  - action: 'not valid'\n",
		"bad store name": "schemaVersion: v1.0.0\nstore: 'a b'\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(doc), name)
			require.Error(t, err)
			assert.True(t, skerrors.IsProgrammingError(err), "got %v", err)
		})
	}
}

func TestLoad_MajorMismatchIsValidationError(t *testing.T) {
	_, err := Load([]byte("schemaVersion: v2.0.0\nstore: counter\n"), "v2.yaml")
	var valErr *skerrors.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Contains(t, err.Error(), "not compatible")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validConfig), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.FilePath)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	var cfgErr *skerrors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = LoadFile("")
	assert.True(t, errors.As(err, &cfgErr))
}

func TestStateAccessModeMatchesStore(t *testing.T) {
	assert.Equal(t, string(sk.AccessDeepCopy), string(StateAccessDeepCopy))
	assert.True(t, StateAccessMode("").Valid())
	assert.False(t, StateAccessMode("x").Valid())
}
