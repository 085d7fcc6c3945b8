// Package restore merges a decoded library backup into a live library store.
//
// A restore runs as ordered stages. Categories are reconciled first and
// synchronously; application settings, source settings, library entries and
// extension repositories then run concurrently. Category and preference
// failures abort the run. Library entry and extension repository failures
// are recorded per item, written to a timestamped error log and counted in
// the returned report.
package restore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/librestore/internal/backup"
	"github.com/mesh-intelligence/librestore/pkg/types"
)

// Progress labels of the single-unit stages.
const (
	LabelCategories     = "Categories"
	LabelAppSettings    = "App settings"
	LabelSourceSettings = "Source settings"
)

// Decoder loads a backup from a locator.
type Decoder interface {
	Decode(ctx context.Context, locator string) (*types.Backup, error)
}

// CategoryRestorer reconciles backup categories into the store.
type CategoryRestorer interface {
	Reconcile(ctx context.Context, categories []types.BackupCategory) (*ReconcileResult, error)
}

// MangaRestorer restores one library entry at a time. categories is nil when
// categories are not being restored.
type MangaRestorer interface {
	SortByNew(ctx context.Context, list []types.BackupManga) []types.BackupManga
	Restore(ctx context.Context, m types.BackupManga, categories *CategoryMapping) error
}

// PreferenceRestorer restores application and source preferences.
// categories is nil when categories are not being restored.
type PreferenceRestorer interface {
	RestoreApp(ctx context.Context, prefs []types.BackupPreference, categories *CategoryMapping) error
	RestoreSource(ctx context.Context, prefs []types.BackupSourcePreferences) error
}

// ExtensionRepoRestorer registers one extension repository at a time.
type ExtensionRepoRestorer interface {
	Restore(ctx context.Context, repo types.BackupExtensionRepo) error
}

// Params configures a Restorer. Decoder and every restorer for a stage that
// will be selected are required.
type Params struct {
	Decoder     Decoder
	Categories  CategoryRestorer
	Manga       MangaRestorer
	Preferences PreferenceRestorer
	Repos       ExtensionRepoRestorer

	// Notifier defaults to discarding updates.
	Notifier Notifier
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// Logger may be the zero value, which logs nothing.
	Logger zerolog.Logger
	// LogDir receives error logs. Defaults to a directory under os.TempDir.
	LogDir string
	// Sync is passed through to the notifier for restores started by a
	// sync rather than by the user.
	Sync bool
}

// Restorer runs restores. It holds no per-run state and may be reused,
// including concurrently.
type Restorer struct {
	decoder     Decoder
	categories  CategoryRestorer
	manga       MangaRestorer
	preferences PreferenceRestorer
	repos       ExtensionRepoRestorer
	notifier    Notifier
	clock       clock.Clock
	logger      zerolog.Logger
	logDir      string
	sync        bool
}

// New returns a Restorer built from p.
func New(p Params) *Restorer {
	r := &Restorer{
		decoder:     p.Decoder,
		categories:  p.Categories,
		manga:       p.Manga,
		preferences: p.Preferences,
		repos:       p.Repos,
		notifier:    p.Notifier,
		clock:       p.Clock,
		logger:      p.Logger,
		logDir:      p.LogDir,
		sync:        p.Sync,
	}
	if r.notifier == nil {
		r.notifier = nopNotifier{}
	}
	if r.clock == nil {
		r.clock = clock.WallClock
	}
	if r.logDir == "" {
		r.logDir = filepath.Join(os.TempDir(), "librestore")
	}
	return r
}

// LibraryStore is everything restoring into a library writes through.
type LibraryStore interface {
	CategoryStore
	MangaStore
	PreferenceStore
	RepoStore
}

// NewLibraryRestorer returns a Restorer that decodes backup files and
// restores them into store.
func NewLibraryRestorer(store LibraryStore, notifier Notifier, logDir string, logger zerolog.Logger) *Restorer {
	return New(Params{
		Decoder:     backup.NewDecoder(),
		Categories:  NewCategoryReconciler(store, store),
		Manga:       NewLibraryMangaRestorer(store, logger),
		Preferences: NewLibraryPreferenceRestorer(store, logger),
		Repos:       NewLibraryRepoRestorer(store),
		Notifier:    notifier,
		Logger:      logger,
		LogDir:      logDir,
	})
}

// Restore decodes the backup at locator and restores the stages selected by
// opts.
//
// A fatal failure returns a nil report. When ctx is cancelled the report of
// the work done so far is returned together with ctx's error; completed
// items are not rolled back.
func (r *Restorer) Restore(ctx context.Context, locator string, opts types.RestoreOptions) (*types.RestoreReport, error) {
	if !opts.AnyEnabled() {
		return nil, types.ErrNoStageSelected
	}

	start := r.clock.Now()
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating run id: %w", err)
	}
	runID := id.String()
	logger := r.logger.With().Str("run_id", runID).Logger()

	b, err := r.decoder.Decode(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("decoding backup: %w", err)
	}

	run := &restoreRun{
		Restorer:    r,
		logger:      logger,
		agg:         NewAggregator(r.clock, opts.Units(b)),
		sourceNames: b.SourceNames(),
	}
	logger.Debug().Int("total", run.agg.Total()).Str("locator", locator).Msg("restore started")

	err = run.execute(ctx, b, opts)
	cancelled := err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
	if err != nil && !cancelled {
		logger.Error().Err(err).Msg("restore failed")
		return nil, err
	}

	report := &types.RestoreReport{
		RunID:     runID,
		Elapsed:   r.clock.Now().Sub(start),
		Processed: run.agg.Processed(),
		Total:     run.agg.Total(),
		Cancelled: cancelled,
	}

	entries := run.agg.Drain()
	report.ErrorCount = len(entries)
	logFile, werr := WriteErrorLog(r.logDir, runID, start, entries)
	if werr != nil {
		logger.Error().Err(werr).Int("errors", len(entries)).Msg("error log not written")
	}
	report.LogFile = logFile

	r.notifier.ShowComplete(report.Elapsed, report.ErrorCount, report.LogDir(), report.LogFileName(), r.sync)
	logger.Info().
		Dur("elapsed", report.Elapsed).
		Int("processed", report.Processed).
		Int("errors", report.ErrorCount).
		Str("outcome", report.Outcome().String()).
		Msg("restore finished")

	if cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

// restoreRun is the state of one Restore call.
type restoreRun struct {
	*Restorer
	logger      zerolog.Logger
	agg         *Aggregator
	sourceNames map[int64]string
}

func (run *restoreRun) execute(ctx context.Context, b *types.Backup, opts types.RestoreOptions) error {
	var categories *CategoryMapping
	if opts.Categories {
		mapping, err := run.restoreCategories(ctx, b.Categories)
		if err != nil {
			return err
		}
		categories = mapping
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.AppSettings {
		g.Go(func() error { return run.restoreAppSettings(gctx, b.Preferences, categories) })
	}
	if opts.SourceSettings {
		g.Go(func() error { return run.restoreSourceSettings(gctx, b.SourcePreferences) })
	}
	if opts.LibraryEntries {
		g.Go(func() error { return run.restoreManga(gctx, b.Manga, categories) })
	}
	if opts.ExtensionRepoSettings {
		g.Go(func() error { return run.restoreRepos(gctx, b.ExtensionRepos) })
	}
	return g.Wait()
}

func (run *restoreRun) step(label string) {
	processed, total := run.agg.Step()
	run.notifier.ShowProgress(label, processed, total, run.sync)
}

// restoreCategories reconciles categories and returns the mapping later
// stages resolve backup category references through. The mapping is never
// nil.
func (run *restoreRun) restoreCategories(ctx context.Context, categories []types.BackupCategory) (*CategoryMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	run.logger.Debug().Int("categories", len(categories)).Msg("restoring categories")
	result, err := run.categories.Reconcile(ctx, categories)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrCategoriesStage, err)
	}
	mapping := result.Mapping
	if mapping == nil {
		mapping = NewCategoryMapping(categories, result.Actions)
	}
	run.logger.Debug().
		Int("inserted", len(result.Inserted())).
		Int("reparented", len(result.Reparented())).
		Int("mapped", mapping.Len()).
		Msg("categories restored")
	run.step(LabelCategories)
	return mapping, nil
}

func (run *restoreRun) restoreAppSettings(ctx context.Context, prefs []types.BackupPreference, categories *CategoryMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := run.preferences.RestoreApp(ctx, prefs, categories); err != nil {
		return fmt.Errorf("%w: app settings: %w", types.ErrPreferencesStage, err)
	}
	run.step(LabelAppSettings)
	return nil
}

func (run *restoreRun) restoreSourceSettings(ctx context.Context, prefs []types.BackupSourcePreferences) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := run.preferences.RestoreSource(ctx, prefs); err != nil {
		return fmt.Errorf("%w: source settings: %w", types.ErrPreferencesStage, err)
	}
	run.step(LabelSourceSettings)
	return nil
}

func (run *restoreRun) restoreManga(ctx context.Context, list []types.BackupManga, categories *CategoryMapping) error {
	ordered := run.manga.SortByNew(ctx, list)
	run.logger.Debug().Int("manga", len(ordered)).Msg("restoring library entries")
	for _, m := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := run.manga.Restore(ctx, m, categories); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			msg := fmt.Sprintf("%s [%s]: %v", m.Title, run.sourceName(m.Source), err)
			run.logger.Warn().Err(err).Str("title", m.Title).Int64("source", m.Source).Msg("library entry not restored")
			run.agg.AddError(msg)
		}
		run.step(m.Title)
	}
	return nil
}

func (run *restoreRun) restoreRepos(ctx context.Context, repos []types.BackupExtensionRepo) error {
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := repo.Name
		if name == "" {
			name = repo.BaseURL
		}
		if err := run.repos.Restore(ctx, repo); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			run.logger.Warn().Err(err).Str("repo", repo.BaseURL).Msg("extension repo not restored")
			run.agg.AddError(fmt.Sprintf("Error adding repo %s: %v", name, err))
		}
		run.step(name)
	}
	return nil
}

// sourceName resolves a source ID through the backup's source manifest,
// falling back to the numeric ID.
func (run *restoreRun) sourceName(id int64) string {
	if name, ok := run.sourceNames[id]; ok && name != "" {
		return name
	}
	return strconv.FormatInt(id, 10)
}
