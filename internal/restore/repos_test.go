package restore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

func TestLibraryRepoRestorer_Restore(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := NewLibraryRepoRestorer(store)

	repo := types.BackupExtensionRepo{
		BaseURL:               "https://repo.example/index",
		Name:                  "Example",
		ShortName:             strPtr("ex"),
		Website:               "https://repo.example",
		SigningKeyFingerprint: "AA:BB",
	}
	require.NoError(t, r.Restore(ctx, repo))

	got, err := store.ExtensionRepo(ctx, repo.BaseURL)
	require.NoError(t, err)
	assert.Equal(t, "Example", got.Name)
	assert.Equal(t, strPtr("ex"), got.ShortName)

	t.Run("already registered is a no-op", func(t *testing.T) {
		require.NoError(t, r.Restore(ctx, repo))
		all, err := store.ExtensionRepos(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("same signing key under another url conflicts", func(t *testing.T) {
		other := repo
		other.BaseURL = "https://mirror.example/index"
		err := r.Restore(ctx, other)
		assert.ErrorIs(t, err, types.ErrRepoConflict)
	})

	t.Run("unsigned repos do not conflict", func(t *testing.T) {
		require.NoError(t, r.Restore(ctx, types.BackupExtensionRepo{BaseURL: "https://one.example", Name: "One"}))
		require.NoError(t, r.Restore(ctx, types.BackupExtensionRepo{BaseURL: "https://two.example", Name: "Two"}))
		all, err := store.ExtensionRepos(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("empty base url", func(t *testing.T) {
		err := r.Restore(ctx, types.BackupExtensionRepo{Name: "Nowhere"})
		assert.ErrorIs(t, err, types.ErrInvalidID)
	})
}
