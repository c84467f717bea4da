// Package catchup maintains the precomputed "catch-up" summary pipeline:
// a dirty-flag state machine gating debounced regeneration, the prose
// summary itself, and the rolling window of recent session summaries that
// feed it.
package catchup

import "time"

// SummaryStatus reports whether the precomputed summary reflects current
// state.
type SummaryStatus string

const (
	StatusFresh    SummaryStatus = "fresh"
	StatusStale    SummaryStatus = "stale"
	StatusComputing SummaryStatus = "computing"
)

// PrecomputedSummary is the cached prose catch-up summary.
type PrecomputedSummary struct {
	SourceHash  string        `json:"source_hash"`
	Summary     string        `json:"summary"`
	GeneratedAt time.Time     `json:"generated_at"`
	Status      SummaryStatus `json:"status"`
	LastError   string        `json:"last_error,omitempty"`
}

// State is the dirty-flag state machine gating recomputation.
type State struct {
	Dirty      bool       `json:"dirty"`
	DirtySince *time.Time `json:"dirty_since,omitempty"`
}

// RecentSessionSummary is the snapshot Consolidator saves for every
// finalized session, feeding the catch-up prompt.
type RecentSessionSummary struct {
	SessionID      string    `json:"session_id"`
	ProjectPath    string    `json:"project_path"`
	StartedAt      time.Time `json:"started_at"`
	ConsolidatedAt time.Time `json:"consolidated_at"`
	Goal           string    `json:"goal,omitempty"`
	KeySignals     []string  `json:"key_signals,omitempty"`
	FilesTouched   []string  `json:"files_touched,omitempty"`
}
