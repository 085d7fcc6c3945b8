package types

import (
	"errors"
	"path/filepath"
	"time"
)

// Fatal restore stage errors. Item-level failures are never returned; they
// are counted in the report.
var (
	ErrCategoriesStage  = errors.New("restoring categories")
	ErrPreferencesStage = errors.New("restoring preferences")
	ErrNoStageSelected  = errors.New("no restore stage selected")
)

// Outcome classifies a restore that returned without a fatal error.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeCompletedWithErrors
	OutcomeCancelled
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCompletedWithErrors:
		return "completed with errors"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// RestoreReport summarizes one restore invocation.
// LogFile is empty when no item failed.
type RestoreReport struct {
	RunID      string
	Elapsed    time.Duration
	Processed  int
	Total      int
	ErrorCount int
	LogFile    string
	Cancelled  bool
}

// Outcome returns the report's outcome.
func (r RestoreReport) Outcome() Outcome {
	switch {
	case r.Cancelled:
		return OutcomeCancelled
	case r.ErrorCount > 0:
		return OutcomeCompletedWithErrors
	default:
		return OutcomeSuccess
	}
}

// LogDir returns the directory holding the error log, or "" if none was written.
func (r RestoreReport) LogDir() string {
	if r.LogFile == "" {
		return ""
	}
	return filepath.Dir(r.LogFile)
}

// LogFileName returns the base name of the error log, or "" if none was written.
func (r RestoreReport) LogFileName() string {
	if r.LogFile == "" {
		return ""
	}
	return filepath.Base(r.LogFile)
}
