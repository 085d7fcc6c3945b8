package cli

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const maxLabelWidth = 32

// barNotifier renders restore progress as a terminal progress bar.
type barNotifier struct {
	w io.Writer

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	last int
}

func newBarNotifier(w io.Writer) *barNotifier {
	return &barNotifier{w: w}
}

// ShowProgress moves the bar forward. Updates from concurrent stages can
// arrive out of order; the bar never moves backwards.
func (n *barNotifier) ShowProgress(label string, processed, total int, isSync bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.bar == nil {
		n.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(n.w),
			progressbar.OptionSetDescription("Restoring"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
		)
	}
	n.bar.Describe(shorten(label))
	if processed > n.last {
		n.last = processed
		_ = n.bar.Set(processed)
	}
}

// ShowComplete clears the bar. The summary is printed by the command.
func (n *barNotifier) ShowComplete(time.Duration, int, string, string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bar != nil {
		_ = n.bar.Finish()
	}
}

func shorten(label string) string {
	r := []rune(label)
	if len(r) <= maxLabelWidth {
		return label
	}
	return string(r[:maxLabelWidth-1]) + "…"
}
