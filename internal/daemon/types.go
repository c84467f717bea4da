package daemon

import "time"

// ProjectStats tracks one project's lifetime counters inside the daemon's
// in-memory state and its persisted status snapshot.
type ProjectStats struct {
	SessionsConsolidated int        `json:"sessions_consolidated"`
	LastConsolidatedAt   *time.Time `json:"last_consolidated_at,omitempty"`
}

// Status is the daemon's process-wide state, persisted verbatim to
// <global_dir>/daemon.status at the end of every control-loop tick.
type Status struct {
	Running            bool                    `json:"running"`
	StartedAt          time.Time               `json:"started_at"`
	SessionsProcessed  int                     `json:"sessions_processed"`
	LastConsolidation  *time.Time              `json:"last_consolidation,omitempty"`
	LastStalenessCheck *time.Time              `json:"last_staleness_check,omitempty"`
	Projects           map[string]ProjectStats `json:"projects"`

	PID        int     `json:"pid,omitempty"`
	RSSBytes   uint64  `json:"rss_bytes,omitempty"`
	CPUPercent float64 `json:"cpu_percent,omitempty"`
	GoVersion  string  `json:"go_version,omitempty"`
}

// Error classifies a daemon-level failure that is worth distinguishing
// from the stores' own StorageError (queue = registry/discovery, extraction
// = consolidation, storage = any store I/O the loop couldn't attribute more
// specifically, decay = the knowledge-staleness sweep).
type Error struct {
	Kind    string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Kind + ": " + e.Message }

func (e *Error) Unwrap() error { return e.Err }

const (
	ErrKindQueue      = "queue"
	ErrKindExtraction = "extraction"
	ErrKindStorage    = "storage"
	ErrKindDecay      = "decay"
)

func newError(kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
