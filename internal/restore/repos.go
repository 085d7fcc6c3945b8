package restore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

// RepoStore is the store surface the extension repo restorer writes through.
type RepoStore interface {
	ExtensionRepo(ctx context.Context, baseURL string) (types.ExtensionRepo, error)
	ExtensionRepoByFingerprint(ctx context.Context, fingerprint string) (types.ExtensionRepo, error)
	InsertExtensionRepo(ctx context.Context, repo types.ExtensionRepo) error
}

// LibraryRepoRestorer registers extension repositories in a RepoStore.
type LibraryRepoRestorer struct {
	store RepoStore
}

// NewLibraryRepoRestorer returns a restorer backed by store.
func NewLibraryRepoRestorer(store RepoStore) *LibraryRepoRestorer {
	return &LibraryRepoRestorer{store: store}
}

// Restore registers repo unless its base URL is already registered.
// A different repo signed with the same key is a conflict. Unsigned repos
// never conflict.
func (r *LibraryRepoRestorer) Restore(ctx context.Context, repo types.BackupExtensionRepo) error {
	if repo.BaseURL == "" {
		return fmt.Errorf("empty base url: %w", types.ErrInvalidID)
	}

	_, err := r.store.ExtensionRepo(ctx, repo.BaseURL)
	if err == nil {
		return nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return err
	}

	if repo.SigningKeyFingerprint != "" {
		other, err := r.store.ExtensionRepoByFingerprint(ctx, repo.SigningKeyFingerprint)
		if err == nil {
			return fmt.Errorf("%w: signing key already used by %s (%s)", types.ErrRepoConflict, other.Name, other.BaseURL)
		}
		if !errors.Is(err, types.ErrNotFound) {
			return err
		}
	}

	return r.store.InsertExtensionRepo(ctx, types.ExtensionRepo{
		BaseURL:               repo.BaseURL,
		Name:                  repo.Name,
		ShortName:             repo.ShortName,
		Website:               repo.Website,
		SigningKeyFingerprint: repo.SigningKeyFingerprint,
	})
}
