package metadata_test

import (
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-meta/api"
	"github.com/momentics/hioload-meta/metadata"
)

func TestKeyDescriptor(t *testing.T) {
	k := metadata.NewKey[int]("score", metadata.WithRemoveOnNonExists())
	assert.Equal(t, "score", k.ID())
	assert.Equal(t, reflect.TypeOf(0), k.Type())
	assert.True(t, k.RemoveOnNonExists())
	assert.False(t, metadata.NewKey[int]("score").RemoveOnNonExists())
	assert.Equal(t, "score(int)", k.String())
}

func TestKeyEqual(t *testing.T) {
	k := metadata.NewKey[int]("a")
	assert.True(t, k.Equal(metadata.NewKey[int]("a")))
	assert.False(t, k.Equal(metadata.NewKey[int64]("a")))
	assert.False(t, k.Equal(metadata.NewKey[int]("b")))
	assert.False(t, k.Equal(nil))
}

func TestKeyCast(t *testing.T) {
	k := metadata.NewKey[int]("n")
	v, err := k.Cast(5)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	_, err = k.Cast("five")
	require.ErrorIs(t, err, api.ErrTypeMismatch)

	var e *api.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "n", e.Context["key"])
}

func TestInterfaceKeys(t *testing.T) {
	m := metadata.New()
	r := metadata.NewKey[io.Reader]("reader")

	require.NoError(t, metadata.Put[io.Reader](m, r, strings.NewReader("x")))
	got, ok, err := metadata.Get(m, r)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, got)

	require.ErrorIs(t, metadata.Put[io.Reader](m, r, nil), api.ErrNullArgument)
}
