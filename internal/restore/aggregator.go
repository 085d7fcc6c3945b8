package restore

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
)

// ErrorLogEntry is one recorded item failure.
type ErrorLogEntry struct {
	Time    time.Time
	Message string
}

// Aggregator collects progress and item failures for a single restore run.
// It is safe for concurrent use by the stage goroutines of that run.
type Aggregator struct {
	clock     clock.Clock
	total     int64
	processed atomic.Int64

	mu     sync.Mutex
	errors []ErrorLogEntry
}

// NewAggregator returns an Aggregator with a fixed total unit count.
func NewAggregator(clk clock.Clock, total int) *Aggregator {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Aggregator{clock: clk, total: int64(total)}
}

// Step marks one more item as processed and returns the running
// (processed, total) pair.
func (a *Aggregator) Step() (processed, total int) {
	return int(a.processed.Add(1)), int(a.total)
}

// Processed returns the number of items processed so far.
func (a *Aggregator) Processed() int {
	return int(a.processed.Load())
}

// Total returns the unit count fixed when the run started.
func (a *Aggregator) Total() int {
	return int(a.total)
}

// AddError appends a failure stamped with the current time.
func (a *Aggregator) AddError(message string) {
	entry := ErrorLogEntry{Time: a.clock.Now(), Message: message}

	a.mu.Lock()
	a.errors = append(a.errors, entry)
	a.mu.Unlock()
}

// ErrorCount returns the number of recorded failures.
func (a *Aggregator) ErrorCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errors)
}

// Errors returns a copy of the recorded failures in append order.
func (a *Aggregator) Errors() []ErrorLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ErrorLogEntry, len(a.errors))
	copy(out, a.errors)
	return out
}

// Drain returns the recorded failures and discards them from memory.
func (a *Aggregator) Drain() []ErrorLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.errors
	a.errors = nil
	return out
}
