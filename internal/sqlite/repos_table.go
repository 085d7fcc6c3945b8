// This file implements the extension repository accessors for the SQLite backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

const selectRepoColumns = "SELECT base_url, name, short_name, website, signing_key_fingerprint FROM extension_repos"

// ExtensionRepo retrieves a repository by base URL.
func (b *Backend) ExtensionRepo(ctx context.Context, baseURL string) (types.ExtensionRepo, error) {
	return b.queryRepo(ctx, selectRepoColumns+" WHERE base_url = ?", baseURL)
}

// ExtensionRepoByFingerprint retrieves the repository signed with fingerprint.
// Unsigned repositories are never returned.
func (b *Backend) ExtensionRepoByFingerprint(ctx context.Context, fingerprint string) (types.ExtensionRepo, error) {
	if fingerprint == "" {
		return types.ExtensionRepo{}, types.ErrNotFound
	}
	return b.queryRepo(ctx, selectRepoColumns+" WHERE signing_key_fingerprint = ?", fingerprint)
}

func (b *Backend) queryRepo(ctx context.Context, query string, arg string) (types.ExtensionRepo, error) {
	db, release, err := b.acquire()
	if err != nil {
		return types.ExtensionRepo{}, err
	}
	defer release()

	repo, err := hydrateRepo(db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ExtensionRepo{}, types.ErrNotFound
		}
		return types.ExtensionRepo{}, fmt.Errorf("getting extension repo %s: %w", arg, err)
	}
	return repo, nil
}

// InsertExtensionRepo registers a repository. Base URL and fingerprint must
// both be unique; an empty fingerprint is stored as NULL and never collides.
func (b *Backend) InsertExtensionRepo(ctx context.Context, repo types.ExtensionRepo) error {
	if repo.BaseURL == "" {
		return types.ErrInvalidID
	}

	db, release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	var shortName sql.NullString
	if repo.ShortName != nil {
		shortName = sql.NullString{String: *repo.ShortName, Valid: true}
	}
	fingerprint := sql.NullString{String: repo.SigningKeyFingerprint, Valid: repo.SigningKeyFingerprint != ""}
	_, err = db.ExecContext(ctx,
		`INSERT INTO extension_repos (base_url, name, short_name, website, signing_key_fingerprint)
         VALUES (?, ?, ?, ?, ?)`,
		repo.BaseURL, repo.Name, shortName, repo.Website, fingerprint,
	)
	if err != nil {
		return fmt.Errorf("inserting extension repo %s: %w", repo.BaseURL, err)
	}
	return nil
}

// ExtensionRepos returns every registered repository ordered by base URL.
func (b *Backend) ExtensionRepos(ctx context.Context) ([]types.ExtensionRepo, error) {
	db, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, selectRepoColumns+" ORDER BY base_url ASC")
	if err != nil {
		return nil, fmt.Errorf("fetching extension repos: %w", err)
	}
	defer rows.Close()

	result := []types.ExtensionRepo{}
	for rows.Next() {
		repo, err := hydrateRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating extension repo: %w", err)
		}
		result = append(result, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating extension repos: %w", err)
	}
	return result, nil
}

func hydrateRepo(row scanner) (types.ExtensionRepo, error) {
	var (
		repo        types.ExtensionRepo
		shortName   sql.NullString
		fingerprint sql.NullString
	)
	if err := row.Scan(&repo.BaseURL, &repo.Name, &shortName, &repo.Website, &fingerprint); err != nil {
		return types.ExtensionRepo{}, err
	}
	repo.SigningKeyFingerprint = fingerprint.String
	if shortName.Valid {
		s := shortName.String
		repo.ShortName = &s
	}
	return repo, nil
}
