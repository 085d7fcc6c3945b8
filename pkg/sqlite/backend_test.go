package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librestore/internal/backup"
	"github.com/mesh-intelligence/librestore/pkg/types"
)

func TestNewBackend_Lifecycle(t *testing.T) {
	lib := NewBackend()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}

	require.NoError(t, lib.Attach(cfg))
	assert.ErrorIs(t, lib.Attach(cfg), types.ErrAlreadyAttached)
	require.NoError(t, lib.Detach())
	require.NoError(t, lib.Detach())
}

func TestRestoreFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.lrbk")
	require.NoError(t, backup.WriteFile(path, &types.Backup{
		Categories: []types.BackupCategory{{Name: "Reading", Order: 1}},
		Manga:      []types.BackupManga{{Source: 1, URL: "/a", Title: "A", Categories: []int64{1}}},
	}))

	cfg := types.Config{
		Backend:  types.BackendSQLite,
		DataDir:  filepath.Join(dir, "data"),
		CacheDir: filepath.Join(dir, "cache"),
	}
	report, err := RestoreFile(context.Background(), cfg, path, types.AllRestoreOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSuccess, report.Outcome())
	assert.Equal(t, report.Total, report.Processed)
}

func TestRestoreFile_InvalidConfig(t *testing.T) {
	_, err := RestoreFile(context.Background(), types.Config{Backend: "postgres", DataDir: t.TempDir()},
		"unused", types.AllRestoreOptions(), nil)
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}
