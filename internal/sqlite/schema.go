package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema DDL for all tables. Statements are idempotent so Attach can run
// them against an existing library.
const (
	createCategories = `CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    sort INTEGER NOT NULL,
    flags INTEGER NOT NULL DEFAULT 0,
    parent_id INTEGER,
    FOREIGN KEY (parent_id) REFERENCES categories(id) ON DELETE SET NULL
);`

	createMangas = `CREATE TABLE IF NOT EXISTS mangas (
    id INTEGER PRIMARY KEY,
    source INTEGER NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    artist TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    genres TEXT NOT NULL DEFAULT '[]',
    status INTEGER NOT NULL DEFAULT 0,
    thumbnail_url TEXT NOT NULL DEFAULT '',
    favorite INTEGER NOT NULL DEFAULT 0,
    date_added INTEGER NOT NULL DEFAULT 0,
    last_modified_at INTEGER NOT NULL DEFAULT 0,
    UNIQUE (source, url)
);`

	createChapters = `CREATE TABLE IF NOT EXISTS chapters (
    id INTEGER PRIMARY KEY,
    manga_id INTEGER NOT NULL,
    url TEXT NOT NULL,
    name TEXT NOT NULL,
    read INTEGER NOT NULL DEFAULT 0,
    bookmark INTEGER NOT NULL DEFAULT 0,
    last_page_read INTEGER NOT NULL DEFAULT 0,
    chapter_number REAL NOT NULL DEFAULT -1,
    date_fetch INTEGER NOT NULL DEFAULT 0,
    date_upload INTEGER NOT NULL DEFAULT 0,
    UNIQUE (manga_id, url),
    FOREIGN KEY (manga_id) REFERENCES mangas(id) ON DELETE CASCADE
);`

	createMangasCategories = `CREATE TABLE IF NOT EXISTS mangas_categories (
    manga_id INTEGER NOT NULL,
    category_id INTEGER NOT NULL,
    PRIMARY KEY (manga_id, category_id),
    FOREIGN KEY (manga_id) REFERENCES mangas(id) ON DELETE CASCADE,
    FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
);`

	createPreferences = `CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

	createSourcePreferences = `CREATE TABLE IF NOT EXISTS source_preferences (
    source_key TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (source_key, key)
);`

	createExtensionRepos = `CREATE TABLE IF NOT EXISTS extension_repos (
    base_url TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    short_name TEXT,
    website TEXT NOT NULL,
    signing_key_fingerprint TEXT UNIQUE
);`
)

// Index DDL for common queries.
const (
	idxCategoriesParent = `CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);`
	idxCategoriesName   = `CREATE INDEX IF NOT EXISTS idx_categories_name ON categories(name);`
	idxChaptersManga    = `CREATE INDEX IF NOT EXISTS idx_chapters_manga ON chapters(manga_id);`
	idxMangasCategories = `CREATE INDEX IF NOT EXISTS idx_mangas_categories_category ON mangas_categories(category_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createCategories,
	createMangas,
	createChapters,
	createMangasCategories,
	createPreferences,
	createSourcePreferences,
	createExtensionRepos,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxCategoriesParent,
	idxCategoriesName,
	idxChaptersManga,
	idxMangasCategories,
}

// applySchema creates any missing tables and indexes.
func applySchema(db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, stmt := range indexDDL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}
