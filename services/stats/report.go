package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/obedier/zillow-wf/internal/fields"
)

// bucket groups fields by completion rate for the report
type bucket struct {
	label string
	min   float64
	max   float64
}

var buckets = []bucket{
	{"EXCELLENT (90-100%)", 90, 101},
	{"GOOD (70-89%)", 70, 90},
	{"FAIR (50-69%)", 50, 70},
	{"POOR (30-49%)", 30, 50},
	{"MISSING (0-29%)", 0, 30},
}

type fieldRate struct {
	name string
	rate float64
}

// CompletionReport renders the per-field completion analysis, fields sorted
// by rate within completion buckets.
func (t *Tracker) CompletionReport() string {
	rates := t.CompletionRates()
	processed := t.Processed()
	counters := t.Snapshot()

	sorted := make([]fieldRate, 0, len(rates))
	for name, rate := range rates {
		sorted = append(sorted, fieldRate{name, rate})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].rate != sorted[j].rate {
			return sorted[i].rate > sorted[j].rate
		}
		return sorted[i].name < sorted[j].name
	})

	var overall float64
	for _, fr := range sorted {
		overall += fr.rate
	}
	if len(sorted) > 0 {
		overall /= float64(len(sorted))
	}

	var b strings.Builder
	line := strings.Repeat("=", 80)
	fmt.Fprintf(&b, "%s\nFIELD COMPLETION ANALYSIS\n%s\n", line, line)
	fmt.Fprintf(&b, "Properties processed: %d\n", processed)
	fmt.Fprintf(&b, "Stored: %d inserted, %d updated, %d unchanged, %d failed\n\n",
		counters.Inserted, counters.Updated, counters.Unchanged, counters.Failed)

	for _, bk := range buckets {
		var members []fieldRate
		for _, fr := range sorted {
			if fr.rate >= bk.min && fr.rate < bk.max {
				members = append(members, fr)
			}
		}
		if len(members) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %d fields\n", bk.label, len(members))
		for _, fr := range members {
			fmt.Fprintf(&b, "  %s: %.1f%%\n", fr.name, fr.rate)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Fields tracked: %d\n", len(sorted))
	fmt.Fprintf(&b, "Overall completion rate: %.1f%%\n", overall)

	sources := t.SourceCounts()
	if len(sources) > 0 {
		b.WriteString("\nResolution strategies:\n")
		names := make([]string, 0, len(sources))
		for s := range sources {
			names = append(names, string(s))
		}
		sort.Strings(names)
		for _, s := range names {
			fmt.Fprintf(&b, "  %s: %d\n", s, sources[fields.Source(s)])
		}
	}

	b.WriteString(line + "\n")
	return b.String()
}

// runSummary is the machine-readable artifact written per run
type runSummary struct {
	FinishedAt      time.Time          `json:"finished_at"`
	Counters        Counters           `json:"counters"`
	CompletionRates map[string]float64 `json:"completion_rates"`
	SourceCounts    map[string]int     `json:"source_counts"`
}

// WriteArtifacts writes the run summary JSON and the completion report text
// into dir, timestamped so consecutive runs never overwrite each other.
func (t *Tracker) WriteArtifacts(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	stamp := time.Now().Format("20060102_150405")

	sources := make(map[string]int)
	for s, c := range t.SourceCounts() {
		sources[string(s)] = c
	}
	summary := runSummary{
		FinishedAt:      time.Now(),
		Counters:        t.Snapshot(),
		CompletionRates: t.CompletionRates(),
		SourceCounts:    sources,
	}

	encoded, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "run_summary_"+stamp+".json"), encoded, 0o644); err != nil {
		return err
	}

	report := t.CompletionReport()
	return os.WriteFile(filepath.Join(dir, "field_completion_report_"+stamp+".txt"), []byte(report), 0o644)
}
