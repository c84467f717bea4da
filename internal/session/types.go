// Package session implements the per-session signal buffer: append-only
// accumulation of lightweight observations during a coding-assistant run,
// and the on-disk store that persists one JSON file per session.
package session

import "time"

// SignalType classifies a SessionSignal.
type SignalType string

const (
	SignalFileTouched SignalType = "file_touched"
	SignalTurnContext SignalType = "turn_context"
)

// Status tracks a SessionAccumulator through its lifecycle.
type Status string

const (
	StatusActive        Status = "active"
	StatusConsolidating Status = "consolidating"
	StatusClosed         Status = "closed"
)

// Signal is one minimal observation appended to a session buffer during a
// turn. Immutable once constructed.
type Signal struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	TurnNumber int64      `json:"turn_number"`
	Type       SignalType `json:"signal_type"`
	Content    string     `json:"content"`
	Files      []string   `json:"files,omitempty"`
}

// Accumulator is the per-session buffer. files_touched_all is maintained as
// the set-union of all signals' Files, insertion-ordered and deduplicated.
type Accumulator struct {
	SessionID       string   `json:"session_id"`
	ProjectPath     string   `json:"project_path"`
	StartedAt       time.Time `json:"started_at"`
	LastActivity    time.Time `json:"last_activity"`
	TurnCount       int64    `json:"turn_count"`
	Signals         []Signal `json:"signals"`
	FilesTouchedAll []string `json:"files_touched_all"`
	Status          Status   `json:"status"`

	filesSeen map[string]bool // not persisted; rebuilt on load
}

// newAccumulator creates an empty, active accumulator for a session.
func newAccumulator(sessionID, projectPath string, now time.Time) *Accumulator {
	return &Accumulator{
		SessionID:       sessionID,
		ProjectPath:     projectPath,
		StartedAt:       now,
		LastActivity:    now,
		TurnCount:       0,
		Signals:         []Signal{},
		FilesTouchedAll: []string{},
		Status:          StatusActive,
		filesSeen:       map[string]bool{},
	}
}

// rebuildFilesSeen reconstructs the dedup set after a JSON load, since the
// map itself is not serialized.
func (a *Accumulator) rebuildFilesSeen() {
	a.filesSeen = make(map[string]bool, len(a.FilesTouchedAll))
	for _, f := range a.FilesTouchedAll {
		a.filesSeen[f] = true
	}
}

// appendSignal pushes signal, refreshes last_activity and turn_count, and
// extends files_touched_all preserving first-insertion order with no
// duplicates. Mutates a in place; the Store decodes a fresh Accumulator
// from disk on every load, so no other holder shares it.
func (a *Accumulator) appendSignal(sig Signal, now time.Time) {
	a.Signals = append(a.Signals, sig)
	a.LastActivity = now
	if sig.TurnNumber > a.TurnCount {
		a.TurnCount = sig.TurnNumber
	}
	if a.filesSeen == nil {
		a.rebuildFilesSeen()
	}
	for _, f := range sig.Files {
		if !a.filesSeen[f] {
			a.filesSeen[f] = true
			a.FilesTouchedAll = append(a.FilesTouchedAll, f)
		}
	}
}

// clone returns a deep copy safe to mutate independently of the original.
func (a *Accumulator) clone() *Accumulator {
	c := *a
	c.Signals = make([]Signal, len(a.Signals))
	for i, s := range a.Signals {
		sc := s
		sc.Files = append([]string(nil), s.Files...)
		c.Signals[i] = sc
	}
	c.FilesTouchedAll = append([]string(nil), a.FilesTouchedAll...)
	c.rebuildFilesSeen()
	return &c
}
