// This file implements the library entry (manga), chapter, and
// manga-category link accessors for the SQLite backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

const selectMangaColumns = `SELECT id, source, url, title, artist, author, description, genres,
    status, thumbnail_url, favorite, date_added, last_modified_at FROM mangas`

// MangaURLsBySource returns the URLs of every stored library entry grouped
// by source ID.
func (b *Backend) MangaURLsBySource(ctx context.Context) (map[int64]map[string]bool, error) {
	db, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx, "SELECT source, url FROM mangas")
	if err != nil {
		return nil, fmt.Errorf("fetching manga urls: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]map[string]bool)
	for rows.Next() {
		var (
			source int64
			url    string
		)
		if err := rows.Scan(&source, &url); err != nil {
			return nil, fmt.Errorf("scanning manga url: %w", err)
		}
		if result[source] == nil {
			result[source] = make(map[string]bool)
		}
		result[source][url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating manga urls: %w", err)
	}
	return result, nil
}

// MangaByURL retrieves the library entry identified by (source, url).
func (b *Backend) MangaByURL(ctx context.Context, source int64, url string) (types.Manga, error) {
	db, release, err := b.acquire()
	if err != nil {
		return types.Manga{}, err
	}
	defer release()

	m, err := hydrateManga(db.QueryRowContext(ctx, selectMangaColumns+" WHERE source = ? AND url = ?", source, url))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Manga{}, types.ErrNotFound
		}
		return types.Manga{}, fmt.Errorf("getting manga %d/%s: %w", source, url, err)
	}
	return m, nil
}

// MangaCount returns the number of stored library entries.
func (b *Backend) MangaCount(ctx context.Context) (int, error) {
	db, release, err := b.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mangas").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting manga: %w", err)
	}
	return n, nil
}

// UpsertManga stores a library entry with its chapters and category links
// in one transaction and returns the entry's ID.
//
// An existing entry (same source and URL) has its metadata replaced, keeps
// its earliest non-zero date added, and stays a favorite once marked.
// Chapters merge by URL: read and bookmark flags are OR-ed and the last
// page read keeps the maximum. Category links are added, never removed.
func (b *Backend) UpsertManga(ctx context.Context, m types.Manga, chapters []types.Chapter, categoryIDs []int64) (int64, error) {
	if m.URL == "" || m.Title == "" {
		return 0, types.ErrInvalidManga
	}

	genres, err := json.Marshal(orEmpty(m.Genres))
	if err != nil {
		return 0, fmt.Errorf("marshaling genres: %w", err)
	}

	db, release, err := b.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		id        int64
		favorite  bool
		dateAdded int64
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, favorite, date_added FROM mangas WHERE source = ? AND url = ?",
		m.Source, m.URL,
	).Scan(&id, &favorite, &dateAdded)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO mangas (source, url, title, artist, author, description, genres,
                status, thumbnail_url, favorite, date_added, last_modified_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.Source, m.URL, m.Title, m.Artist, m.Author, m.Description, string(genres),
			m.Status, m.ThumbnailURL, m.Favorite, m.DateAdded, m.LastModifiedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting manga: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("reading manga id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("checking manga existence: %w", err)
	default:
		if dateAdded == 0 || (m.DateAdded != 0 && m.DateAdded < dateAdded) {
			dateAdded = m.DateAdded
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE mangas SET title = ?, artist = ?, author = ?, description = ?, genres = ?,
                status = ?, thumbnail_url = ?, favorite = ?, date_added = ?,
                last_modified_at = MAX(last_modified_at, ?)
             WHERE id = ?`,
			m.Title, m.Artist, m.Author, m.Description, string(genres),
			m.Status, m.ThumbnailURL, favorite || m.Favorite, dateAdded,
			m.LastModifiedAt, id,
		)
		if err != nil {
			return 0, fmt.Errorf("updating manga %d: %w", id, err)
		}
	}

	for _, ch := range chapters {
		if err := upsertChapter(ctx, tx, id, ch); err != nil {
			return 0, err
		}
	}

	for _, catID := range categoryIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO mangas_categories (manga_id, category_id) VALUES (?, ?)",
			id, catID,
		); err != nil {
			return 0, fmt.Errorf("linking manga %d to category %d: %w", id, catID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing manga: %w", err)
	}
	return id, nil
}

// upsertChapter inserts a chapter or merges it into the stored one.
func upsertChapter(ctx context.Context, tx *sql.Tx, mangaID int64, ch types.Chapter) error {
	if ch.URL == "" {
		return fmt.Errorf("chapter %q: %w", ch.Name, types.ErrInvalidManga)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO chapters (manga_id, url, name, read, bookmark, last_page_read,
            chapter_number, date_fetch, date_upload)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (manga_id, url) DO UPDATE SET
            name = excluded.name,
            read = chapters.read OR excluded.read,
            bookmark = chapters.bookmark OR excluded.bookmark,
            last_page_read = MAX(chapters.last_page_read, excluded.last_page_read),
            chapter_number = excluded.chapter_number,
            date_upload = excluded.date_upload`,
		mangaID, ch.URL, ch.Name, ch.Read, ch.Bookmark, ch.LastPageRead,
		ch.ChapterNumber, ch.DateFetch, ch.DateUpload,
	)
	if err != nil {
		return fmt.Errorf("upserting chapter %s: %w", ch.URL, err)
	}
	return nil
}

// Chapters returns the chapters of a library entry ordered by chapter number.
func (b *Backend) Chapters(ctx context.Context, mangaID int64) ([]types.Chapter, error) {
	db, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx,
		`SELECT id, manga_id, url, name, read, bookmark, last_page_read, chapter_number,
            date_fetch, date_upload
         FROM chapters WHERE manga_id = ? ORDER BY chapter_number ASC, id ASC`,
		mangaID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching chapters: %w", err)
	}
	defer rows.Close()

	result := []types.Chapter{}
	for rows.Next() {
		var ch types.Chapter
		if err := rows.Scan(&ch.ID, &ch.MangaID, &ch.URL, &ch.Name, &ch.Read, &ch.Bookmark,
			&ch.LastPageRead, &ch.ChapterNumber, &ch.DateFetch, &ch.DateUpload); err != nil {
			return nil, fmt.Errorf("scanning chapter: %w", err)
		}
		result = append(result, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chapters: %w", err)
	}
	return result, nil
}

// MangaCategoryIDs returns the IDs of the categories a library entry is
// linked to, ascending.
func (b *Backend) MangaCategoryIDs(ctx context.Context, mangaID int64) ([]int64, error) {
	db, release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := db.QueryContext(ctx,
		"SELECT category_id FROM mangas_categories WHERE manga_id = ? ORDER BY category_id ASC",
		mangaID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching manga categories: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning manga category: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// hydrateManga converts a single SQLite row into a types.Manga.
func hydrateManga(row scanner) (types.Manga, error) {
	var (
		m      types.Manga
		genres string
	)
	if err := row.Scan(&m.ID, &m.Source, &m.URL, &m.Title, &m.Artist, &m.Author, &m.Description,
		&genres, &m.Status, &m.ThumbnailURL, &m.Favorite, &m.DateAdded, &m.LastModifiedAt); err != nil {
		return types.Manga{}, err
	}
	if err := json.Unmarshal([]byte(genres), &m.Genres); err != nil {
		return types.Manga{}, fmt.Errorf("decoding genres: %w", err)
	}
	return m, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
