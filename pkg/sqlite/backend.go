// Package sqlite is the public entry point to the SQLite library backend for
// programs that embed librestore instead of running the CLI.
package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/librestore/internal/restore"
	"github.com/mesh-intelligence/librestore/internal/sqlite"
	"github.com/mesh-intelligence/librestore/pkg/types"
)

// NewBackend creates a new SQLite library backend.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	lib := sqlite.NewBackend()
//	err := lib.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/librestore",
//	})
//	defer lib.Detach()
func NewBackend() types.Library {
	return sqlite.NewBackend()
}

// RestoreFile attaches the library described by cfg, restores the backup
// file at path into it and detaches. Error logs go to cfg.CacheDir.
// Progress and completion are reported to notifier when it is non-nil;
// any type with restore.Notifier's two methods will do.
func RestoreFile(ctx context.Context, cfg types.Config, path string, opts types.RestoreOptions, notifier restore.Notifier) (*types.RestoreReport, error) {
	lib := sqlite.NewBackend()
	if err := lib.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attaching library: %w", err)
	}
	defer lib.Detach()

	r := restore.NewLibraryRestorer(lib, notifier, cfg.CacheDir, zerolog.Nop())
	return r.Restore(ctx, path, opts)
}
