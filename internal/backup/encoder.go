package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/natefinch/atomic"

	"github.com/mesh-intelligence/librestore/pkg/types"
)

// Write encodes b as a container onto w.
func Write(w io.Writer, b *types.Backup) error {
	zw := gzip.NewWriter(w)
	enc := json.NewEncoder(zw)

	if err := enc.Encode(header{Format: FormatName, Version: FormatVersion}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	write := func(kind string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", kind, err)
		}
		if err := enc.Encode(record{Type: kind, Data: data}); err != nil {
			return fmt.Errorf("writing %s: %w", kind, err)
		}
		return nil
	}

	for _, s := range b.Sources {
		if err := write(recordSource, s); err != nil {
			return err
		}
	}
	for _, c := range b.Categories {
		if err := write(recordCategory, c); err != nil {
			return err
		}
	}
	for _, m := range b.Manga {
		if err := write(recordManga, m); err != nil {
			return err
		}
	}
	for _, p := range b.Preferences {
		if err := write(recordPreference, p); err != nil {
			return err
		}
	}
	for _, sp := range b.SourcePreferences {
		if err := write(recordSourcePreferences, sp); err != nil {
			return err
		}
	}
	for _, r := range b.ExtensionRepos {
		if err := write(recordExtensionRepo, r); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing gzip stream: %w", err)
	}
	return nil
}

// WriteFile atomically writes b as a container to path.
func WriteFile(path string, b *types.Backup) error {
	var buf bytes.Buffer
	if err := Write(&buf, b); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("writing backup %s: %w", path, err)
	}
	return nil
}
