// This file implements the application and source preference accessors for
// the SQLite backend. Values are stored as raw JSON text.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

// SetPreference creates or replaces an application preference.
func (b *Backend) SetPreference(ctx context.Context, key string, value json.RawMessage) error {
	if key == "" {
		return types.ErrInvalidName
	}

	db, release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	_, err = db.ExecContext(ctx,
		"INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("setting preference %s: %w", key, err)
	}
	return nil
}

// Preference returns the raw JSON value of an application preference.
func (b *Backend) Preference(ctx context.Context, key string) (json.RawMessage, error) {
	db, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting preference %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

// SetSourcePreference creates or replaces a preference scoped to one source.
func (b *Backend) SetSourcePreference(ctx context.Context, sourceKey, key string, value json.RawMessage) error {
	if sourceKey == "" || key == "" {
		return types.ErrInvalidName
	}

	db, release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	_, err = db.ExecContext(ctx,
		`INSERT INTO source_preferences (source_key, key, value) VALUES (?, ?, ?)
         ON CONFLICT (source_key, key) DO UPDATE SET value = excluded.value`,
		sourceKey, key, string(value),
	)
	if err != nil {
		return fmt.Errorf("setting source preference %s/%s: %w", sourceKey, key, err)
	}
	return nil
}

// SourcePreference returns the raw JSON value of a source preference.
func (b *Backend) SourcePreference(ctx context.Context, sourceKey, key string) (json.RawMessage, error) {
	db, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var value string
	err = db.QueryRowContext(ctx,
		"SELECT value FROM source_preferences WHERE source_key = ? AND key = ?",
		sourceKey, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting source preference %s/%s: %w", sourceKey, key, err)
	}
	return json.RawMessage(value), nil
}
