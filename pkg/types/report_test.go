package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRestoreReportOutcome(t *testing.T) {
	tests := []struct {
		name   string
		report RestoreReport
		want   Outcome
	}{
		{name: "no errors is success", report: RestoreReport{Processed: 3, Total: 3}, want: OutcomeSuccess},
		{name: "item errors complete with errors", report: RestoreReport{ErrorCount: 2, LogFile: "/tmp/x.txt"}, want: OutcomeCompletedWithErrors},
		{name: "cancellation wins over errors", report: RestoreReport{ErrorCount: 1, Cancelled: true}, want: OutcomeCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.Outcome())
		})
	}
}

func TestRestoreReportLogLocation(t *testing.T) {
	r := RestoreReport{LogFile: "/var/cache/librestore/restore-errors.txt"}
	assert.Equal(t, "/var/cache/librestore", r.LogDir())
	assert.Equal(t, "restore-errors.txt", r.LogFileName())

	empty := RestoreReport{}
	assert.Equal(t, "", empty.LogDir())
	assert.Equal(t, "", empty.LogFileName())
}

func TestRestoreOptionsUnits(t *testing.T) {
	b := &Backup{
		Manga:          make([]BackupManga, 10),
		ExtensionRepos: make([]BackupExtensionRepo, 2),
	}

	assert.Equal(t, 15, AllRestoreOptions().Units(b))
	assert.Equal(t, 10, RestoreOptions{LibraryEntries: true}.Units(b))
	assert.Equal(t, 2, RestoreOptions{Categories: true, AppSettings: true}.Units(b))
	assert.Equal(t, 0, RestoreOptions{}.Units(b))
	assert.False(t, RestoreOptions{}.AnyEnabled())
	assert.True(t, RestoreOptions{SourceSettings: true}.AnyEnabled())
}
