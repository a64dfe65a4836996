package catalog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intcatalog "github.com/gxo-labs/statekit/internal/catalog"
	sk "github.com/gxo-labs/statekit/pkg/statekit/v1"
	"github.com/gxo-labs/statekit/pkg/statekit/v1/catalog"
	skerrors "github.com/gxo-labs/statekit/pkg/statekit/v1/errors"
)

func emptyFactory(catalog.Deps) (sk.Definition, error) {
	return sk.Definition{Name: "empty"}, nil
}

func TestStaticRegistry_RegisterAndGet(t *testing.T) {
	reg := intcatalog.NewStaticRegistry()
	require.NoError(t, reg.Register("b", emptyFactory))
	require.NoError(t, reg.Register("a", emptyFactory))

	factory, err := reg.Get("a")
	require.NoError(t, err)
	def, err := factory(catalog.Deps{})
	require.NoError(t, err)
	assert.Equal(t, "empty", def.Name)

	assert.Equal(t, []string{"a", "b"}, reg.List())
}

func TestStaticRegistry_Rejections(t *testing.T) {
	reg := intcatalog.NewStaticRegistry()
	require.NoError(t, reg.Register("counter", emptyFactory))

	var cfgErr *skerrors.ConfigError
	assert.True(t, errors.As(reg.Register("", emptyFactory), &cfgErr))
	assert.True(t, errors.As(reg.Register("x", nil), &cfgErr))
	assert.True(t, errors.As(reg.Register("counter", emptyFactory), &cfgErr))

	_, err := reg.Get("missing")
	var nameErr *skerrors.UnknownNameError
	require.True(t, errors.As(err, &nameErr))
	assert.Equal(t, skerrors.KindStore, nameErr.Kind)
}
