package restore

import (
	"time"

	"github.com/rs/zerolog"
)

// Notifier receives progress and completion updates for a restore run.
// ShowProgress is called concurrently from the stage goroutines.
type Notifier interface {
	ShowProgress(label string, processed, total int, isSync bool)
	ShowComplete(elapsed time.Duration, errorCount int, logDir, logFileName string, isSync bool)
}

type nopNotifier struct{}

func (nopNotifier) ShowProgress(string, int, int, bool)                    {}
func (nopNotifier) ShowComplete(time.Duration, int, string, string, bool) {}

// LogNotifier reports progress through a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// ShowProgress logs one processed item at debug level.
func (n LogNotifier) ShowProgress(label string, processed, total int, isSync bool) {
	n.Logger.Debug().
		Str("item", label).
		Int("processed", processed).
		Int("total", total).
		Bool("sync", isSync).
		Msg("restore progress")
}

// ShowComplete logs the final summary at info level.
func (n LogNotifier) ShowComplete(elapsed time.Duration, errorCount int, logDir, logFileName string, isSync bool) {
	ev := n.Logger.Info().
		Dur("elapsed", elapsed).
		Int("errors", errorCount).
		Bool("sync", isSync)
	if logFileName != "" {
		ev = ev.Str("log_dir", logDir).Str("log_file", logFileName)
	}
	ev.Msg("restore complete")
}
