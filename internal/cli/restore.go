package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/librestore/internal/restore"
	"github.com/mesh-intelligence/librestore/pkg/types"
)

// stageFlag binds a restore stage to its command-line flag.
type stageFlag struct {
	name  string
	usage string
	field func(*types.RestoreOptions) *bool
}

var stageFlags = []stageFlag{
	{"categories", "restore categories", func(o *types.RestoreOptions) *bool { return &o.Categories }},
	{"app-settings", "restore application settings", func(o *types.RestoreOptions) *bool { return &o.AppSettings }},
	{"source-settings", "restore per-source settings", func(o *types.RestoreOptions) *bool { return &o.SourceSettings }},
	{"library-entries", "restore library entries and chapters", func(o *types.RestoreOptions) *bool { return &o.LibraryEntries }},
	{"extension-repos", "restore extension repositories", func(o *types.RestoreOptions) *bool { return &o.ExtensionRepoSettings }},
}

// reportView is the JSON rendering of a restore report.
type reportView struct {
	RunID     string `json:"run_id"`
	Outcome   string `json:"outcome"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Errors    int    `json:"errors"`
	LogFile   string `json:"log_file,omitempty"`
}

func newRestoreCmd(a *app) *cobra.Command {
	var (
		flagValues types.RestoreOptions
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Restore a backup into the library",
		Long: `Restore merges a backup into the library. Categories are restored first;
settings, library entries and extension repositories follow concurrently.

Stages default to the restore section of config.yaml; stage flags override it.
Entries or repositories that fail are listed in an error log in the cache directory.

Exit codes: 0 success, 1 usage or malformed backup, 2 failure, 3 completed with
errors, 130 interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.settings.Restore
			for _, f := range stageFlags {
				if cmd.Flags().Changed(f.name) {
					*f.field(&opts) = *f.field(&flagValues)
				}
			}
			return a.runRestore(cmd, args[0], opts, noProgress)
		},
	}

	for _, f := range stageFlags {
		cmd.Flags().BoolVar(f.field(&flagValues), f.name, true, f.usage)
	}
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not render a progress bar")
	return cmd
}

func (a *app) runRestore(cmd *cobra.Command, locator string, opts types.RestoreOptions, noProgress bool) error {
	if !opts.AnyEnabled() {
		return withCode(exitUserError, types.ErrNoStageSelected)
	}

	lib, cfg, err := a.attachLibrary()
	if err != nil {
		return err
	}
	defer lib.Detach()

	var notifier restore.Notifier = restore.LogNotifier{Logger: a.logger}
	if !a.flags.jsonMode && !noProgress {
		notifier = newBarNotifier(cmd.ErrOrStderr())
	}

	r := restore.NewLibraryRestorer(lib, notifier, cfg.CacheDir, a.logger)
	report, err := r.Restore(cmd.Context(), locator, opts)
	if report == nil {
		return withCode(restoreFailureCode(err), err)
	}

	if perr := printReport(cmd.OutOrStdout(), report, a.flags.jsonMode); perr != nil {
		return withCode(exitSysError, perr)
	}

	switch report.Outcome() {
	case types.OutcomeCancelled:
		return withCode(exitCancelled, err)
	case types.OutcomeCompletedWithErrors:
		return withCode(exitPartial, nil)
	default:
		return nil
	}
}

func restoreFailureCode(err error) int {
	switch {
	case errors.Is(err, types.ErrMalformedBackup),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, types.ErrNoStageSelected):
		return exitUserError
	default:
		return exitSysError
	}
}

func printReport(w io.Writer, report *types.RestoreReport, jsonMode bool) error {
	if jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reportView{
			RunID:     report.RunID,
			Outcome:   report.Outcome().String(),
			ElapsedMS: report.Elapsed.Milliseconds(),
			Processed: report.Processed,
			Total:     report.Total,
			Errors:    report.ErrorCount,
			LogFile:   report.LogFile,
		})
	}

	switch report.Outcome() {
	case types.OutcomeCancelled:
		fmt.Fprintf(w, "Restore cancelled after %d of %d items (%s)\n",
			report.Processed, report.Total, report.Elapsed.Round(1e6))
	case types.OutcomeCompletedWithErrors:
		fmt.Fprintf(w, "Restore completed with %d errors in %s\n", report.ErrorCount, report.Elapsed.Round(1e6))
	default:
		fmt.Fprintf(w, "Restore completed in %s\n", report.Elapsed.Round(1e6))
	}
	if report.LogFile != "" {
		fmt.Fprintf(w, "  error log: %s\n", report.LogFile)
	}
	return nil
}
