package types

import (
	"encoding/json"
	"errors"
)

// ErrMalformedBackup is returned when a backup container cannot be decoded.
var ErrMalformedBackup = errors.New("malformed backup")

// Backup is the decoded, in-memory snapshot of an exported library.
// It is read-only for the duration of a restore.
type Backup struct {
	Categories        []BackupCategory
	Manga             []BackupManga
	Preferences       []BackupPreference
	SourcePreferences []BackupSourcePreferences
	ExtensionRepos    []BackupExtensionRepo
	Sources           []BackupSource
}

// SourceNames returns the source ID to display name mapping from the
// backup's source manifest.
func (b *Backup) SourceNames() map[int64]string {
	names := make(map[int64]string, len(b.Sources))
	for _, s := range b.Sources {
		names[s.SourceID] = s.Name
	}
	return names
}

// BackupSource is one entry of the backup's source manifest.
type BackupSource struct {
	SourceID int64  `json:"source_id"`
	Name     string `json:"name"`
}

// BackupManga is a library entry as recorded in a backup.
// Categories holds the Order values of the backup categories the entry
// belongs to.
type BackupManga struct {
	Source         int64           `json:"source"`
	URL            string          `json:"url"`
	Title          string          `json:"title"`
	Artist         string          `json:"artist,omitempty"`
	Author         string          `json:"author,omitempty"`
	Description    string          `json:"description,omitempty"`
	Genres         []string        `json:"genres,omitempty"`
	Status         int64           `json:"status,omitempty"`
	ThumbnailURL   string          `json:"thumbnail_url,omitempty"`
	Favorite       bool            `json:"favorite"`
	DateAdded      int64           `json:"date_added,omitempty"`
	LastModifiedAt int64           `json:"last_modified_at,omitempty"`
	Categories     []int64         `json:"categories,omitempty"`
	Chapters       []BackupChapter `json:"chapters,omitempty"`
}

// BackupChapter is a chapter of a backed-up library entry.
type BackupChapter struct {
	URL           string  `json:"url"`
	Name          string  `json:"name"`
	Read          bool    `json:"read,omitempty"`
	Bookmark      bool    `json:"bookmark,omitempty"`
	LastPageRead  int64   `json:"last_page_read,omitempty"`
	ChapterNumber float64 `json:"chapter_number,omitempty"`
	DateFetch     int64   `json:"date_fetch,omitempty"`
	DateUpload    int64   `json:"date_upload,omitempty"`
}

// BackupPreference is a single key/value preference. Value holds the raw
// JSON encoding of the preference value.
type BackupPreference struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// BackupSourcePreferences groups the preferences of one source.
type BackupSourcePreferences struct {
	SourceKey string             `json:"source_key"`
	Prefs     []BackupPreference `json:"prefs"`
}

// BackupExtensionRepo is an extension repository registration.
type BackupExtensionRepo struct {
	BaseURL               string  `json:"base_url"`
	Name                  string  `json:"name"`
	ShortName             *string `json:"short_name,omitempty"`
	Website               string  `json:"website"`
	SigningKeyFingerprint string  `json:"signing_key_fingerprint"`
}
