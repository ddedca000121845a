package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/aiventure/internal/model"
)

func TestStorage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "aiventureUser.json")
	s := New(path)

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, model.ErrCredentialNotFound)

	require.NoError(t, s.Save(ctx, []byte(`{"token":"T"}`)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"token":"T"}`, string(data))

	_, err = os.Stat(path + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, s.Delete(ctx))
	require.NoError(t, s.Delete(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, model.ErrCredentialNotFound)
}

func TestStorageSurvivesNewInstance(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aiventureUser.json")

	require.NoError(t, New(path).Save(ctx, []byte("persisted")))

	data, err := New(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(data))
}
