package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

// maxLineSize bounds a single record line; manga with long chapter lists
// produce large lines.
const maxLineSize = 64 << 20

// Decoder reads backup containers from the local filesystem.
type Decoder struct{}

// NewDecoder returns a Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode opens the container at locator (a file path) and reads it fully
// into memory. Any structural problem is reported wrapped in
// types.ErrMalformedBackup.
func (d *Decoder) Decode(ctx context.Context, locator string) (*types.Backup, error) {
	f, err := os.Open(locator)
	if err != nil {
		return nil, fmt.Errorf("opening backup %s: %w", locator, err)
	}
	defer f.Close()

	return Read(ctx, f)
}

// Read decodes a container from r.
func Read(ctx context.Context, r io.Reader) (*types.Backup, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedBackup, err)
	}
	defer zr.Close()

	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("%w: reading header: %v", types.ErrMalformedBackup, err)
		}
		return nil, fmt.Errorf("%w: missing header", types.ErrMalformedBackup)
	}
	var h header
	if err := json.Unmarshal(scanner.Bytes(), &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", types.ErrMalformedBackup, err)
	}
	if h.Format != FormatName {
		return nil, fmt.Errorf("%w: unknown format %q", types.ErrMalformedBackup, h.Format)
	}
	if h.Version < 1 || h.Version > FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", types.ErrMalformedBackup, h.Version)
	}

	b := &types.Backup{}
	line := 1
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", types.ErrMalformedBackup, line, err)
		}
		if err := appendRecord(b, rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", types.ErrMalformedBackup, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedBackup, err)
	}
	return b, nil
}

// appendRecord decodes rec.Data into the matching list of b. Unknown record
// types are skipped so newer containers stay readable.
func appendRecord(b *types.Backup, rec record) error {
	switch rec.Type {
	case recordCategory:
		return decodeInto(rec.Data, &b.Categories)
	case recordManga:
		return decodeInto(rec.Data, &b.Manga)
	case recordPreference:
		return decodeInto(rec.Data, &b.Preferences)
	case recordSourcePreferences:
		return decodeInto(rec.Data, &b.SourcePreferences)
	case recordExtensionRepo:
		return decodeInto(rec.Data, &b.ExtensionRepos)
	case recordSource:
		return decodeInto(rec.Data, &b.Sources)
	default:
		return nil
	}
}

func decodeInto[T any](data json.RawMessage, list *[]T) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*list = append(*list, v)
	return nil
}
