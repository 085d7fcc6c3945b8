package restore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/librestore/internal/backup"
	"github.com/mesh-intelligence/librestore/internal/sqlite"
	"github.com/mesh-intelligence/librestore/pkg/types"
)

var testStart = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

type progressCall struct {
	label            string
	processed, total int
	isSync           bool
}

type completeCall struct {
	errorCount  int
	logDir      string
	logFileName string
	isSync      bool
}

type recordingNotifier struct {
	mu        sync.Mutex
	progress  []progressCall
	completes []completeCall
}

func (n *recordingNotifier) ShowProgress(label string, processed, total int, isSync bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress = append(n.progress, progressCall{label, processed, total, isSync})
}

func (n *recordingNotifier) ShowComplete(_ time.Duration, errorCount int, logDir, logFileName string, isSync bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completes = append(n.completes, completeCall{errorCount, logDir, logFileName, isSync})
}

// failingManga fails the entries whose URL is listed and delegates the rest.
type failingManga struct {
	MangaRestorer
	fail map[string]bool
}

func (f failingManga) Restore(ctx context.Context, m types.BackupManga, categories *CategoryMapping) error {
	if f.fail[m.URL] {
		return errors.New("source unavailable")
	}
	return f.MangaRestorer.Restore(ctx, m, categories)
}

// newLibraryRestorer wires a Restorer over store the way the CLI does, with a
// test clock and a recording notifier.
func newLibraryRestorer(t *testing.T, store *sqlite.Backend, logDir string) (*Restorer, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	r := New(Params{
		Decoder:     backup.NewDecoder(),
		Categories:  NewCategoryReconciler(store, store),
		Manga:       NewLibraryMangaRestorer(store, zerolog.Nop()),
		Preferences: NewLibraryPreferenceRestorer(store, zerolog.Nop()),
		Repos:       NewLibraryRepoRestorer(store),
		Notifier:    n,
		Clock:       testclock.NewClock(testStart),
		LogDir:      logDir,
	})
	return r, n
}

func writeBackup(t *testing.T, b *types.Backup) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.lrbk")
	require.NoError(t, backup.WriteFile(path, b))
	return path
}

func libraryBackup() *types.Backup {
	return &types.Backup{
		Sources: []types.BackupSource{{SourceID: 42, Name: "MangaDex"}},
		Categories: []types.BackupCategory{
			{Name: "Reading", Order: 1, ID: 5, Flags: 1},
			{Name: "Weekly", Order: 2, ID: 6, Flags: 2, ParentName: strPtr("Reading")},
		},
		Manga: []types.BackupManga{
			{Source: 42, URL: "/one", Title: "One", Categories: []int64{2}, LastModifiedAt: 10},
			{Source: 42, URL: "/two", Title: "Two", Categories: []int64{1, 2}, LastModifiedAt: 20},
		},
		Preferences: []types.BackupPreference{
			{Key: "theme", Value: json.RawMessage(`"dark"`)},
			{Key: PrefDefaultCategory, Value: json.RawMessage(`6`)},
		},
		SourcePreferences: []types.BackupSourcePreferences{{
			SourceKey: "source_42",
			Prefs:     []types.BackupPreference{{Key: "quality", Value: json.RawMessage(`"high"`)}},
		}},
		ExtensionRepos: []types.BackupExtensionRepo{
			{BaseURL: "https://a.example/index", Name: "A", SigningKeyFingerprint: "AA"},
			{BaseURL: "https://b.example/index", Name: "B", SigningKeyFingerprint: "BB"},
		},
	}
}

func TestRestore_FullLibrary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	logDir := filepath.Join(t.TempDir(), "logs")
	r, n := newLibraryRestorer(t, store, logDir)

	report, err := r.Restore(ctx, writeBackup(t, libraryBackup()), types.AllRestoreOptions())
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeSuccess, report.Outcome())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 7, report.Total)
	assert.Equal(t, 7, report.Processed)
	assert.Zero(t, report.ErrorCount)
	assert.Empty(t, report.LogFile)
	_, err = os.Stat(logDir)
	assert.True(t, os.IsNotExist(err), "no log dir without errors")

	// Every manga sees the categories created before it.
	weekly := categoriesByName(t, store, "Weekly")
	require.Len(t, weekly, 1)
	reading := categoriesByName(t, store, "Reading")
	require.Len(t, reading, 1)
	two, err := store.MangaByURL(ctx, 42, "/two")
	require.NoError(t, err)
	ids, err := store.MangaCategoryIDs(ctx, two.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{reading[0].ID, weekly[0].ID}, ids)

	def, err := store.Preference(ctx, PrefDefaultCategory)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprint(weekly[0].ID), string(def))

	repos, err := store.ExtensionRepos(ctx)
	require.NoError(t, err)
	assert.Len(t, repos, 2)

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.progress, 7)
	assert.Equal(t, progressCall{LabelCategories, 1, 7, false}, n.progress[0])
	seen := make(map[int]bool)
	for _, p := range n.progress {
		assert.Equal(t, 7, p.total)
		seen[p.processed] = true
	}
	assert.Len(t, seen, 7, "processed values are distinct")
	require.Len(t, n.completes, 1)
	assert.Equal(t, completeCall{}, n.completes[0])
}

func TestRestore_LinksFollowReconciledCategories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	oldParent := seedCategory(t, store, types.Category{Name: "OldP", Order: 1})
	renamed := seedCategory(t, store, types.Category{Name: "S", Order: 2, ParentID: &oldParent.ID})
	r, _ := newLibraryRestorer(t, store, t.TempDir())

	b := &types.Backup{
		Categories: []types.BackupCategory{
			{Name: "S", Order: 5, ID: 42, ParentName: strPtr("NewP")},
			{Name: "Lost", Order: 6, ID: 43, ParentName: strPtr("Gone")},
		},
		Manga: []types.BackupManga{{Source: 1, URL: "/m", Title: "M", Categories: []int64{5, 6}}},
		Preferences: []types.BackupPreference{
			{Key: PrefDefaultCategory, Value: json.RawMessage(`42`)},
			{Key: PrefUpdateCategories, Value: json.RawMessage(`["42","43"]`)},
		},
	}
	report, err := r.Restore(ctx, writeBackup(t, b), types.RestoreOptions{
		Categories:     true,
		AppSettings:    true,
		LibraryEntries: true,
	})
	require.NoError(t, err)
	assert.Zero(t, report.ErrorCount)

	lost := categoriesByName(t, store, "Lost")
	require.Len(t, lost, 1)

	m, err := store.MangaByURL(ctx, 1, "/m")
	require.NoError(t, err)
	ids, err := store.MangaCategoryIDs(ctx, m.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{renamed.ID, lost[0].ID}, ids)

	def, err := store.Preference(ctx, PrefDefaultCategory)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprint(renamed.ID), string(def))

	update, err := store.Preference(ctx, PrefUpdateCategories)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf(`["%d","%d"]`, renamed.ID, lost[0].ID), string(update))
}

func TestRestore_PartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	logDir := filepath.Join(t.TempDir(), "logs")
	r, n := newLibraryRestorer(t, store, logDir)
	r.manga = failingManga{MangaRestorer: r.manga, fail: map[string]bool{"/5": true}}

	b := &types.Backup{Sources: []types.BackupSource{{SourceID: 42, Name: "MangaDex"}}}
	for i := 1; i <= 10; i++ {
		b.Manga = append(b.Manga, types.BackupManga{
			Source: 42,
			URL:    fmt.Sprintf("/%d", i),
			Title:  fmt.Sprintf("Title %d", i),
		})
	}

	report, err := r.Restore(ctx, writeBackup(t, b), types.RestoreOptions{LibraryEntries: true})
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeCompletedWithErrors, report.Outcome())
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 10, report.Processed)

	count, err := store.MangaCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, count)
	for i := 1; i <= 10; i++ {
		_, err := store.MangaByURL(ctx, 42, fmt.Sprintf("/%d", i))
		if i == 5 {
			assert.ErrorIs(t, err, types.ErrNotFound)
		} else {
			assert.NoError(t, err, "item %d", i)
		}
	}

	assert.Equal(t, filepath.Join(logDir, ErrorLogName(report.RunID, testStart)), report.LogFile)
	data, err := os.ReadFile(report.LogFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 1)
	m := errorLogLine.FindStringSubmatch(lines[0])
	require.NotNil(t, m)
	assert.Equal(t, "Title 5 [MangaDex]: source unavailable", m[2])

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.completes, 1)
	assert.Equal(t, completeCall{1, logDir, report.LogFileName(), false}, n.completes[0])
}

func TestRestore_ItemErrorsNameTheirItem(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r, _ := newLibraryRestorer(t, store, t.TempDir())
	r.manga = failingManga{MangaRestorer: r.manga, fail: map[string]bool{"/x": true}}

	require.NoError(t, store.InsertExtensionRepo(ctx, types.ExtensionRepo{
		BaseURL: "https://old.example/index", Name: "Old", SigningKeyFingerprint: "AA",
	}))
	b := &types.Backup{
		Manga: []types.BackupManga{{Source: 7, URL: "/x", Title: "Unknown source"}},
		ExtensionRepos: []types.BackupExtensionRepo{
			{BaseURL: "https://new.example/index", Name: "New", SigningKeyFingerprint: "AA"},
		},
	}

	report, err := r.Restore(ctx, writeBackup(t, b), types.AllRestoreOptions())
	require.NoError(t, err)
	require.Equal(t, 2, report.ErrorCount)

	data, err := os.ReadFile(report.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Unknown source [7]: source unavailable")
	assert.Contains(t, string(data), "Error adding repo New: extension repo conflict: signing key already used by Old")
}

// stageRecorder fakes every collaborator and records the order of calls.
type stageRecorder struct {
	mu     sync.Mutex
	events []string

	categoriesErr error
	appErr        error
	sourceErr     error

	reconciled      *CategoryMapping
	appCategories   *CategoryMapping
	mangaCategories *CategoryMapping

	onManga func(i int)
	mangaN  int
}

func (s *stageRecorder) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *stageRecorder) Reconcile(ctx context.Context, categories []types.BackupCategory) (*ReconcileResult, error) {
	// Give concurrent stages a chance to run early if the barrier is broken.
	time.Sleep(10 * time.Millisecond)
	s.record("categories")
	if s.categoriesErr != nil {
		return nil, s.categoriesErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconciled = NewCategoryMapping(categories, nil)
	return &ReconcileResult{Mapping: s.reconciled}, nil
}

func (s *stageRecorder) SortByNew(_ context.Context, list []types.BackupManga) []types.BackupManga {
	return list
}

func (s *stageRecorder) Restore(_ context.Context, m types.BackupManga, categories *CategoryMapping) error {
	s.mu.Lock()
	s.mangaN++
	i := s.mangaN
	s.mangaCategories = categories
	s.events = append(s.events, "manga")
	s.mu.Unlock()
	if s.onManga != nil {
		s.onManga(i)
	}
	return nil
}

func (s *stageRecorder) RestoreApp(_ context.Context, _ []types.BackupPreference, categories *CategoryMapping) error {
	s.mu.Lock()
	s.appCategories = categories
	s.mu.Unlock()
	s.record("app")
	return s.appErr
}

func (s *stageRecorder) RestoreSource(context.Context, []types.BackupSourcePreferences) error {
	s.record("source")
	return s.sourceErr
}

type stageRepos struct{ *stageRecorder }

func (s stageRepos) Restore(context.Context, types.BackupExtensionRepo) error {
	s.record("repo")
	return nil
}

type stubDecoder struct {
	backup *types.Backup
	err    error
}

func (d stubDecoder) Decode(context.Context, string) (*types.Backup, error) {
	return d.backup, d.err
}

func newStageRestorer(rec *stageRecorder, b *types.Backup, logDir string) (*Restorer, *recordingNotifier) {
	n := &recordingNotifier{}
	return New(Params{
		Decoder:     stubDecoder{backup: b},
		Categories:  rec,
		Manga:       rec,
		Preferences: rec,
		Repos:       stageRepos{rec},
		Notifier:    n,
		Clock:       testclock.NewClock(testStart),
		LogDir:      logDir,
		Sync:        true,
	}), n
}

func stageBackup() *types.Backup {
	return &types.Backup{
		Categories:     []types.BackupCategory{{Name: "A", Order: 1}},
		Manga:          []types.BackupManga{{URL: "/1", Title: "1"}, {URL: "/2", Title: "2"}},
		ExtensionRepos: []types.BackupExtensionRepo{{BaseURL: "https://r.example", Name: "R"}},
	}
}

func TestRestore_CategoriesBeforeOtherStages(t *testing.T) {
	rec := &stageRecorder{}
	r, n := newStageRestorer(rec, stageBackup(), t.TempDir())

	report, err := r.Restore(context.Background(), "backup", types.AllRestoreOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, report.Total)
	assert.Equal(t, 6, report.Processed)

	require.Len(t, rec.events, 6)
	assert.Equal(t, "categories", rec.events[0])
	assert.ElementsMatch(t, []string{"app", "source", "manga", "manga", "repo"}, rec.events[1:])

	require.NotNil(t, rec.reconciled)
	assert.Same(t, rec.reconciled, rec.appCategories)
	assert.Same(t, rec.reconciled, rec.mangaCategories)

	for _, p := range n.progress {
		assert.True(t, p.isSync)
	}
	require.Len(t, n.completes, 1)
	assert.True(t, n.completes[0].isSync)
}

func TestRestore_OnlySelectedStagesRun(t *testing.T) {
	rec := &stageRecorder{}
	r, _ := newStageRestorer(rec, stageBackup(), t.TempDir())

	report, err := r.Restore(context.Background(), "backup", types.RestoreOptions{
		AppSettings:    true,
		LibraryEntries: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.ElementsMatch(t, []string{"app", "manga", "manga"}, rec.events)
	assert.Nil(t, rec.appCategories, "categories are withheld when not restored")
	assert.Nil(t, rec.mangaCategories)
}

func TestRestore_EmptyCategoryListStillPassed(t *testing.T) {
	rec := &stageRecorder{}
	r, _ := newStageRestorer(rec, &types.Backup{}, t.TempDir())

	_, err := r.Restore(context.Background(), "backup", types.RestoreOptions{Categories: true, AppSettings: true})
	require.NoError(t, err)
	require.NotNil(t, rec.appCategories)
	assert.Zero(t, rec.appCategories.Len())
}

func TestRestore_NoStageSelected(t *testing.T) {
	r, n := newStageRestorer(&stageRecorder{}, stageBackup(), t.TempDir())

	report, err := r.Restore(context.Background(), "backup", types.RestoreOptions{})
	assert.ErrorIs(t, err, types.ErrNoStageSelected)
	assert.Nil(t, report)
	assert.Empty(t, n.completes)
}

func TestRestore_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := &types.Backup{}
	for i := 0; i < 10; i++ {
		b.Manga = append(b.Manga, types.BackupManga{URL: fmt.Sprint(i), Title: fmt.Sprint(i)})
	}
	rec := &stageRecorder{onManga: func(i int) {
		if i == 3 {
			cancel()
		}
	}}
	r, n := newStageRestorer(rec, b, t.TempDir())

	report, err := r.Restore(ctx, "backup", types.RestoreOptions{LibraryEntries: true})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)

	assert.True(t, report.Cancelled)
	assert.Equal(t, types.OutcomeCancelled, report.Outcome())
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 10, report.Total)
	assert.Equal(t, 3, rec.mangaN)
	assert.Len(t, n.completes, 1)
}

func TestRestore_FatalErrors(t *testing.T) {
	errStore := errors.New("store unavailable")

	tests := []struct {
		name    string
		rec     *stageRecorder
		decoder Decoder
		opts    types.RestoreOptions
		wantErr error
	}{
		{
			name:    "decode",
			rec:     &stageRecorder{},
			decoder: stubDecoder{err: fmt.Errorf("%w: bad header", types.ErrMalformedBackup)},
			opts:    types.AllRestoreOptions(),
			wantErr: types.ErrMalformedBackup,
		},
		{
			name:    "categories",
			rec:     &stageRecorder{categoriesErr: errStore},
			opts:    types.AllRestoreOptions(),
			wantErr: types.ErrCategoriesStage,
		},
		{
			name:    "app settings",
			rec:     &stageRecorder{appErr: errStore},
			opts:    types.RestoreOptions{AppSettings: true},
			wantErr: types.ErrPreferencesStage,
		},
		{
			name:    "source settings",
			rec:     &stageRecorder{sourceErr: errStore},
			opts:    types.RestoreOptions{SourceSettings: true, ExtensionRepoSettings: true},
			wantErr: types.ErrPreferencesStage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logDir := filepath.Join(t.TempDir(), "logs")
			r, n := newStageRestorer(tt.rec, stageBackup(), logDir)
			if tt.decoder != nil {
				r.decoder = tt.decoder
			}

			report, err := r.Restore(context.Background(), "backup", tt.opts)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, report)
			assert.Empty(t, n.completes)
			_, statErr := os.Stat(logDir)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRestore_CategoriesFailureStopsLaterStages(t *testing.T) {
	rec := &stageRecorder{categoriesErr: errors.New("disk full")}
	r, _ := newStageRestorer(rec, stageBackup(), t.TempDir())

	_, err := r.Restore(context.Background(), "backup", types.AllRestoreOptions())
	require.ErrorIs(t, err, types.ErrCategoriesStage)
	assert.Equal(t, []string{"categories"}, rec.events)
}

func TestRestore_MalformedFile(t *testing.T) {
	store := newTestStore(t)
	r, _ := newLibraryRestorer(t, store, t.TempDir())

	path := filepath.Join(t.TempDir(), "broken.lrbk")
	require.NoError(t, os.WriteFile(path, []byte("not a backup"), 0o644))

	report, err := r.Restore(context.Background(), path, types.AllRestoreOptions())
	assert.ErrorIs(t, err, types.ErrMalformedBackup)
	assert.Nil(t, report)
}

func TestRestore_ReuseDoesNotLeakState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r, _ := newLibraryRestorer(t, store, t.TempDir())
	r.manga = failingManga{MangaRestorer: r.manga, fail: map[string]bool{"/bad": true}}

	path := writeBackup(t, &types.Backup{Manga: []types.BackupManga{
		{Source: 1, URL: "/good", Title: "Good"},
		{Source: 1, URL: "/bad", Title: "Bad"},
	}})

	first, err := r.Restore(ctx, path, types.AllRestoreOptions())
	require.NoError(t, err)
	second, err := r.Restore(ctx, path, types.AllRestoreOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, second.Total, second.Processed)
	assert.Equal(t, 1, second.ErrorCount)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.NotEqual(t, first.LogFile, second.LogFile)
}
