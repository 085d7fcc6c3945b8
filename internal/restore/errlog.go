package restore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// ErrorLogTimeFormat is the timestamp layout of each error log line.
const ErrorLogTimeFormat = "2006-01-02 15:04:05.000"

// FormatErrorLog renders entries one per line as "[timestamp] message".
func FormatErrorLog(entries []ErrorLogEntry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "[%s] %s\n", e.Time.Format(ErrorLogTimeFormat), e.Message)
	}
	return buf.Bytes()
}

// ErrorLogName returns the file name of the error log for a run started at t.
func ErrorLogName(runID string, t time.Time) string {
	if len(runID) > 8 {
		runID = runID[len(runID)-8:]
	}
	return fmt.Sprintf("restore-errors-%s-%s.txt", t.Format("20060102-150405"), runID)
}

// WriteErrorLog writes entries to a new file in dir and returns its path.
// Nothing is written and "" is returned when entries is empty.
func WriteErrorLog(dir, runID string, t time.Time, entries []ErrorLogEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating log dir: %w", err)
	}

	path := filepath.Join(dir, ErrorLogName(runID, t))
	if err := atomic.WriteFile(path, bytes.NewReader(FormatErrorLog(entries))); err != nil {
		return "", fmt.Errorf("writing error log: %w", err)
	}
	return path, nil
}
