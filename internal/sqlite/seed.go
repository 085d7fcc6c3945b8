package sqlite

import (
	"database/sql"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

// SystemCategoryName is the display name of the seeded uncategorized category.
const SystemCategoryName = "Default"

// seedSystemCategory inserts the reserved uncategorized category if it is
// missing. Existing rows are left untouched.
func seedSystemCategory(db *sql.DB) error {
	_, err := db.Exec(
		"INSERT OR IGNORE INTO categories (id, name, sort, flags, parent_id) VALUES (?, ?, 0, 0, NULL)",
		types.UncategorizedID, SystemCategoryName,
	)
	return err
}
