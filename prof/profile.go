package prof

import (
	"sync"
	"time"
)

// Entry represents a single timing measurement.
type Entry struct {
	Label string
	Dur   time.Duration
}

// Recorder collects stage timings of one evaluation. A nil *Recorder
// records nothing, so callers can pass it through unconditionally.
type Recorder struct {
	mu     sync.Mutex
	record []Entry
}

// New returns an empty recorder.
func New() *Recorder { return &Recorder{} }

// Track logs the duration since start with the given name.
func (r *Recorder) Track(start time.Time, name string) {
	if r == nil {
		return
	}
	elapsed := time.Since(start)
	r.mu.Lock()
	r.record = append(r.record, Entry{Label: name, Dur: elapsed})
	r.mu.Unlock()
}

// Totals sums the recorded durations per label.
func (r *Recorder) Totals() map[string]time.Duration {
	out := map[string]time.Duration{}
	if r == nil {
		return out
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.record {
		out[e.Label] += e.Dur
	}
	return out
}

// SnapshotAndReset returns the collected timing entries and clears them.
func (r *Recorder) SnapshotAndReset() []Entry {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.record))
	copy(out, r.record)
	r.record = nil
	return out
}
