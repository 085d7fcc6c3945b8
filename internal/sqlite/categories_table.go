// This file implements the categories table accessors for the SQLite backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

const selectCategoryColumns = "SELECT id, name, sort, flags, parent_id FROM categories"

// Categories returns every category, including the system category,
// ordered by sort ASC, id ASC.
func (b *Backend) Categories(ctx context.Context) ([]types.Category, error) {
	db, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, selectCategoryColumns+" ORDER BY sort ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("fetching categories: %w", err)
	}
	defer rows.Close()

	results := []types.Category{}
	for rows.Next() {
		cat, err := hydrateCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating category: %w", err)
		}
		results = append(results, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return results, nil
}

// Category retrieves a category by ID.
func (b *Backend) Category(ctx context.Context, id int64) (types.Category, error) {
	db, release, err := b.acquire()
	if err != nil {
		return types.Category{}, err
	}
	defer release()

	row := db.QueryRowContext(ctx, selectCategoryColumns+" WHERE id = ?", id)
	cat, err := hydrateCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, types.ErrNotFound
		}
		return types.Category{}, fmt.Errorf("getting category %d: %w", id, err)
	}
	return cat, nil
}

// InsertCategory creates a category and returns its store-assigned ID.
// The ID field of c is ignored. A non-nil ParentID must reference an
// existing category.
func (b *Backend) InsertCategory(ctx context.Context, c types.Category) (int64, error) {
	if c.Name == "" {
		return 0, types.ErrInvalidName
	}

	db, release, err := b.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	res, err := db.ExecContext(ctx,
		"INSERT INTO categories (name, sort, flags, parent_id) VALUES (?, ?, ?, ?)",
		c.Name, c.Order, c.Flags, nullInt64(c.ParentID),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting category %q: %w", c.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading category id: %w", err)
	}
	return id, nil
}

// UpdateCategoryParent sets the parent link of category id. A nil parentID
// turns the category into a root. The system category cannot be moved.
func (b *Backend) UpdateCategoryParent(ctx context.Context, id int64, parentID *int64) error {
	if id == types.UncategorizedID {
		return types.ErrInvalidID
	}
	if parentID != nil && *parentID == id {
		return types.ErrInvalidID
	}

	db, release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	res, err := db.ExecContext(ctx,
		"UPDATE categories SET parent_id = ? WHERE id = ?",
		nullInt64(parentID), id,
	)
	if err != nil {
		return fmt.Errorf("updating category %d parent: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating category %d parent: %w", id, err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// hydrateCategory converts a single SQLite row into a types.Category.
func hydrateCategory(row scanner) (types.Category, error) {
	var (
		c      types.Category
		parent sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Order, &c.Flags, &parent); err != nil {
		return types.Category{}, err
	}
	if parent.Valid {
		id := parent.Int64
		c.ParentID = &id
	}
	return c, nil
}

// nullInt64 converts an optional ID into a value SQLite stores as NULL when absent.
func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
