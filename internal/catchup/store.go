package catchup

import (
	"time"

	"github.com/dean0x/devlog/internal/fsutil"
	"github.com/dean0x/devlog/internal/paths"
)

const (
	// DebounceMS is the minimum dirty duration before recomputation is
	// allowed to proceed (barring MaxStaleMS below).
	DebounceMS = 30_000
	// MaxStaleMS wins even if changes keep arriving, preventing
	// indefinite postponement of a catch-up refresh.
	MaxStaleMS = 300_000
	// DefaultRecentSummaryLimit is prune_to_limit's default N.
	DefaultRecentSummaryLimit = 10
)

// Store persists the three small JSON files under a project's working
// directory: recent-summaries.json, catch-up-summary.json and
// catch-up-state.json.
type Store struct{}

func NewStore() *Store { return &Store{} }

// ReadPrecomputed returns the cached summary, or nil if none has been
// generated yet.
func (s *Store) ReadPrecomputed(projectPath string) (*PrecomputedSummary, error) {
	var ps PrecomputedSummary
	ok, err := fsutil.ReadJSON(paths.CatchUpSummaryFile(projectPath), &ps)
	if err != nil || !ok {
		return nil, err
	}
	return &ps, nil
}

// WritePrecomputed overwrites the cached summary atomically.
func (s *Store) WritePrecomputed(projectPath string, ps PrecomputedSummary) error {
	if err := paths.EnsureProjectDirs(projectPath); err != nil {
		return err
	}
	return fsutil.WriteJSONAtomic(paths.CatchUpSummaryFile(projectPath), ps)
}

// ReadState returns the dirty-flag state, or a zero State (dirty=false) if
// none has been written yet.
func (s *Store) ReadState(projectPath string) (State, error) {
	var st State
	if _, err := fsutil.ReadJSON(paths.CatchUpStateFile(projectPath), &st); err != nil {
		return State{}, err
	}
	return st, nil
}

// MarkDirty sets dirty=true, preserving an existing dirty_since if the
// project is already dirty (so debounce windows don't reset on every
// signal).
func (s *Store) MarkDirty(projectPath string) error {
	st, err := s.ReadState(projectPath)
	if err != nil {
		return err
	}
	if st.Dirty && st.DirtySince != nil {
		return s.writeState(projectPath, st)
	}
	now := time.Now().UTC()
	st.Dirty = true
	st.DirtySince = &now
	return s.writeState(projectPath, st)
}

// ClearDirty resets both dirty and dirty_since.
func (s *Store) ClearDirty(projectPath string) error {
	return s.writeState(projectPath, State{Dirty: false, DirtySince: nil})
}

func (s *Store) writeState(projectPath string, st State) error {
	if err := paths.EnsureProjectDirs(projectPath); err != nil {
		return err
	}
	return fsutil.WriteJSONAtomic(paths.CatchUpStateFile(projectPath), st)
}

// SaveSummary prepends summary to the recent-summaries list.
func (s *Store) SaveSummary(projectPath string, summary RecentSessionSummary) error {
	summaries, err := s.readSummaries(projectPath)
	if err != nil {
		return err
	}
	summaries = append([]RecentSessionSummary{summary}, summaries...)
	return s.writeSummaries(projectPath, summaries)
}

// PruneToLimit keeps the newest n summaries, dropping the rest. n<=0 uses
// DefaultRecentSummaryLimit.
func (s *Store) PruneToLimit(projectPath string, n int) error {
	if n <= 0 {
		n = DefaultRecentSummaryLimit
	}
	summaries, err := s.readSummaries(projectPath)
	if err != nil {
		return err
	}
	if len(summaries) > n {
		summaries = summaries[:n]
	}
	return s.writeSummaries(projectPath, summaries)
}

// RecentSummaries returns the current list, newest first.
func (s *Store) RecentSummaries(projectPath string) ([]RecentSessionSummary, error) {
	return s.readSummaries(projectPath)
}

func (s *Store) readSummaries(projectPath string) ([]RecentSessionSummary, error) {
	var summaries []RecentSessionSummary
	if _, err := fsutil.ReadJSON(paths.RecentSummariesFile(projectPath), &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) writeSummaries(projectPath string, summaries []RecentSessionSummary) error {
	if err := paths.EnsureProjectDirs(projectPath); err != nil {
		return err
	}
	if summaries == nil {
		summaries = []RecentSessionSummary{}
	}
	return fsutil.WriteJSONAtomic(paths.RecentSummariesFile(projectPath), summaries)
}

// ShouldRecompute implements the recomputation predicate: not dirty never
// recomputes; dirty with no recorded dirty_since recomputes immediately;
// otherwise either the debounce window or the max-stale ceiling must have
// elapsed.
func ShouldRecompute(state State, now time.Time) bool {
	if !state.Dirty {
		return false
	}
	if state.DirtySince == nil {
		return true
	}
	elapsed := now.Sub(*state.DirtySince)
	return elapsed >= MaxStaleMS*time.Millisecond || elapsed >= DebounceMS*time.Millisecond
}
