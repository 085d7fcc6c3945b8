package restore

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

// MangaStore is the store surface the library entry restorer writes through.
type MangaStore interface {
	MangaURLsBySource(ctx context.Context) (map[int64]map[string]bool, error)
	UpsertManga(ctx context.Context, m types.Manga, chapters []types.Chapter, categoryIDs []int64) (int64, error)
}

// LibraryMangaRestorer restores library entries into a MangaStore.
type LibraryMangaRestorer struct {
	store  MangaStore
	logger zerolog.Logger
}

// NewLibraryMangaRestorer returns a restorer backed by store.
func NewLibraryMangaRestorer(store MangaStore, logger zerolog.Logger) *LibraryMangaRestorer {
	return &LibraryMangaRestorer{store: store, logger: logger}
}

// SortByNew orders entries for restoring: entries not yet in the library
// first, then by last modification, newest first. Ties keep backup order.
// If the library cannot be read, only the modification order applies.
func (r *LibraryMangaRestorer) SortByNew(ctx context.Context, list []types.BackupManga) []types.BackupManga {
	inLibrary, err := r.store.MangaURLsBySource(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("reading library for restore order")
		inLibrary = nil
	}

	out := make([]types.BackupManga, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		ei := inLibrary[out[i].Source][out[i].URL]
		ej := inLibrary[out[j].Source][out[j].URL]
		if ei != ej {
			return !ei
		}
		return out[i].LastModifiedAt > out[j].LastModifiedAt
	})
	return out
}

// Restore upserts one library entry with its chapters and links it to the
// store categories its backup categories were reconciled to. categories is
// nil when categories were not restored, in which case no links are added.
func (r *LibraryMangaRestorer) Restore(ctx context.Context, bm types.BackupManga, categories *CategoryMapping) error {
	if bm.Title == "" || bm.URL == "" {
		return types.ErrInvalidManga
	}

	var categoryIDs []int64
	seen := make(map[int64]bool)
	for _, order := range bm.Categories {
		id, ok := categories.ByOrder(order)
		if ok && !seen[id] {
			seen[id] = true
			categoryIDs = append(categoryIDs, id)
		}
	}

	chapters := make([]types.Chapter, 0, len(bm.Chapters))
	for _, c := range bm.Chapters {
		chapters = append(chapters, types.Chapter{
			URL:           c.URL,
			Name:          c.Name,
			Read:          c.Read,
			Bookmark:      c.Bookmark,
			LastPageRead:  c.LastPageRead,
			ChapterNumber: c.ChapterNumber,
			DateFetch:     c.DateFetch,
			DateUpload:    c.DateUpload,
		})
	}

	m := types.Manga{
		Source:         bm.Source,
		URL:            bm.URL,
		Title:          bm.Title,
		Artist:         bm.Artist,
		Author:         bm.Author,
		Description:    bm.Description,
		Genres:         bm.Genres,
		Status:         bm.Status,
		ThumbnailURL:   bm.ThumbnailURL,
		Favorite:       bm.Favorite,
		DateAdded:      bm.DateAdded,
		LastModifiedAt: bm.LastModifiedAt,
	}
	if _, err := r.store.UpsertManga(ctx, m, chapters, categoryIDs); err != nil {
		return err
	}
	return nil
}
