package stats

import (
	"sync"

	"github.com/obedier/zillow-wf/internal/fields"
)

// Counters are the run-level pipeline totals
type Counters struct {
	Discovered int
	Fetched    int
	Extracted  int
	Inserted   int
	Updated    int
	Unchanged  int
	Skipped    int
	Failed     int
}

// Tracker accumulates per-field completion and per-strategy resolution
// counts across a run. Safe for concurrent use by the pipeline workers.
type Tracker struct {
	mu sync.Mutex

	processed int
	found     map[string]int
	sources   map[fields.Source]int
	counters  Counters
}

// NewTracker returns an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		found:   make(map[string]int),
		sources: make(map[fields.Source]int),
	}
}

// RecordResolution counts which strategy produced each field, fed from the
// resolver's observer hook.
func (t *Tracker) RecordResolution(field string, source fields.Source) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources[source]++
}

// RecordListing counts one processed listing and which of its tracked fields
// came back populated.
func (t *Tracker) RecordListing(populated map[string]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	for field, ok := range populated {
		if ok {
			t.found[field]++
		} else if _, tracked := t.found[field]; !tracked {
			t.found[field] = 0
		}
	}
}

// Processed returns the number of listings recorded
func (t *Tracker) Processed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed
}

// CompletionRates returns the per-field completion percentage
func (t *Tracker) CompletionRates() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	rates := make(map[string]float64, len(t.found))
	for field, count := range t.found {
		if t.processed == 0 {
			rates[field] = 0
			continue
		}
		rates[field] = float64(count) / float64(t.processed) * 100
	}
	return rates
}

// SourceCounts returns how many resolutions each strategy won
func (t *Tracker) SourceCounts() map[fields.Source]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[fields.Source]int, len(t.sources))
	for s, c := range t.sources {
		out[s] = c
	}
	return out
}

// Counter mutators, one per pipeline stage outcome.

func (t *Tracker) AddDiscovered(n int) { t.mu.Lock(); t.counters.Discovered += n; t.mu.Unlock() }
func (t *Tracker) IncFetched()         { t.mu.Lock(); t.counters.Fetched++; t.mu.Unlock() }
func (t *Tracker) IncExtracted()       { t.mu.Lock(); t.counters.Extracted++; t.mu.Unlock() }
func (t *Tracker) IncInserted()        { t.mu.Lock(); t.counters.Inserted++; t.mu.Unlock() }
func (t *Tracker) IncUpdated()         { t.mu.Lock(); t.counters.Updated++; t.mu.Unlock() }
func (t *Tracker) IncUnchanged()       { t.mu.Lock(); t.counters.Unchanged++; t.mu.Unlock() }
func (t *Tracker) IncSkipped()         { t.mu.Lock(); t.counters.Skipped++; t.mu.Unlock() }
func (t *Tracker) IncFailed()          { t.mu.Lock(); t.counters.Failed++; t.mu.Unlock() }

// Snapshot returns a copy of the run counters
func (t *Tracker) Snapshot() Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters
}
