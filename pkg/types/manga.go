package types

// Manga is a library entry in the store, unique by (Source, URL).
type Manga struct {
	ID             int64
	Source         int64
	URL            string
	Title          string
	Artist         string
	Author         string
	Description    string
	Genres         []string
	Status         int64
	ThumbnailURL   string
	Favorite       bool
	DateAdded      int64
	LastModifiedAt int64
}

// Chapter is a chapter of a library entry, unique by (MangaID, URL).
type Chapter struct {
	ID            int64
	MangaID       int64
	URL           string
	Name          string
	Read          bool
	Bookmark      bool
	LastPageRead  int64
	ChapterNumber float64
	DateFetch     int64
	DateUpload    int64
}

// ExtensionRepo is a registered extension repository, unique by BaseURL.
type ExtensionRepo struct {
	BaseURL               string
	Name                  string
	ShortName             *string
	Website               string
	SigningKeyFingerprint string
}
