// Package backup decodes and encodes library backup containers.
//
// A container is a gzip stream of JSON lines. The first line is a header,
// every following line is one record:
//
//	{"format":"librestore-backup","version":1}
//	{"type":"category","data":{"name":"Reading","order":1,"flags":0}}
//	{"type":"manga","data":{"source":42,"url":"/m/1","title":"One"}}
package backup

import "encoding/json"

// Container format identifiers.
const (
	FormatName    = "librestore-backup"
	FormatVersion = 1
)

// Record types.
const (
	recordCategory          = "category"
	recordManga             = "manga"
	recordPreference        = "preference"
	recordSourcePreferences = "source_preferences"
	recordExtensionRepo     = "extension_repo"
	recordSource            = "source"
)

// header is the first line of a container.
type header struct {
	Format  string `json:"format"`
	Version int    `json:"version"`
}

// record is one line after the header. Data is decoded according to Type.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
