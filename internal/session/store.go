package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dean0x/devlog/internal/fsutil"
	"github.com/dean0x/devlog/internal/paths"
)

// unknownSessionID is the sentinel hooks pass when they cannot identify the
// originating coding-assistant session.
const unknownSessionID = "unknown"

// Store persists one JSON file per session under a project's working
// directory. Reads of missing files are "not present", never an error.
type Store struct{}

func NewStore() *Store { return &Store{} }

// GetOrCreate resolves sessionID to an Accumulator. The sentinel "unknown"
// first tries to continue an existing active session in projectPath's
// working directory before minting a fresh one.
func (s *Store) GetOrCreate(sessionID, projectPath string) (*Accumulator, error) {
	if sessionID == unknownSessionID {
		if existing, err := s.findActiveInProject(projectPath); err != nil {
			return nil, err
		} else if existing != nil {
			return existing, nil
		}
		return s.create(newSessionID(), projectPath)
	}

	acc, ok, err := s.load(sessionID, projectPath)
	if err != nil {
		return nil, err
	}
	if ok {
		return acc, nil
	}
	return s.create(sessionID, projectPath)
}

func (s *Store) create(sessionID, projectPath string) (*Accumulator, error) {
	acc := newAccumulator(sessionID, projectPath, time.Now().UTC())
	if err := s.persist(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// AppendSignalAndPersist loads or creates the session, appends sig, and
// writes the result back atomically.
func (s *Store) AppendSignalAndPersist(sessionID, projectPath string, sig Signal) (*Accumulator, error) {
	acc, err := s.GetOrCreate(sessionID, projectPath)
	if err != nil {
		return nil, err
	}
	acc.appendSignal(sig, time.Now().UTC())
	if err := s.persist(acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// FindStale returns active sessions whose last activity predates now by
// more than timeout.
func (s *Store) FindStale(projectPath string, timeout time.Duration) ([]*Accumulator, error) {
	all, err := s.listAll(projectPath)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var stale []*Accumulator
	for _, acc := range all {
		if acc.Status == StatusActive && now.Sub(acc.LastActivity) > timeout {
			stale = append(stale, acc)
		}
	}
	return stale, nil
}

// FindToConsolidate returns sessions awaiting consolidation.
func (s *Store) FindToConsolidate(projectPath string) ([]*Accumulator, error) {
	all, err := s.listAll(projectPath)
	if err != nil {
		return nil, err
	}
	var pending []*Accumulator
	for _, acc := range all {
		if acc.Status == StatusConsolidating {
			pending = append(pending, acc)
		}
	}
	return pending, nil
}

// Finalize transitions an active session to consolidating. Idempotent for
// sessions already in any other status.
func (s *Store) Finalize(projectPath, sessionID string) error {
	acc, ok, err := s.load(sessionID, projectPath)
	if err != nil {
		return err
	}
	if !ok || acc.Status != StatusActive {
		return nil
	}
	acc.Status = StatusConsolidating
	return s.persist(acc)
}

// Archive removes a session's working file after successful consolidation.
func (s *Store) Archive(projectPath, sessionID string) error {
	err := os.Remove(paths.SessionFile(projectPath, sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fsutil.NewStorageError(fsutil.OpWrite, paths.SessionFile(projectPath, sessionID), err)
	}
	return nil
}

func (s *Store) load(sessionID, projectPath string) (*Accumulator, bool, error) {
	var acc Accumulator
	ok, err := fsutil.ReadJSON(paths.SessionFile(projectPath, sessionID), &acc)
	if err != nil || !ok {
		return nil, ok, err
	}
	acc.rebuildFilesSeen()
	return &acc, true, nil
}

func (s *Store) persist(acc *Accumulator) error {
	if err := paths.EnsureProjectDirs(acc.ProjectPath); err != nil {
		return err
	}
	return fsutil.WriteJSONAtomic(paths.SessionFile(acc.ProjectPath, acc.SessionID), acc)
}

func (s *Store) findActiveInProject(projectPath string) (*Accumulator, error) {
	all, err := s.listAll(projectPath)
	if err != nil {
		return nil, err
	}
	for _, acc := range all {
		if acc.Status == StatusActive {
			return acc, nil
		}
	}
	return nil, nil
}

// listAll scans the project's working directory for session-*.json files
// and deserializes each. Unreadable files are skipped rather than failing
// the whole scan.
func (s *Store) listAll(projectPath string) ([]*Accumulator, error) {
	dir := paths.WorkingDir(projectPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fsutil.NewStorageError(fsutil.OpRead, dir, err)
	}

	var out []*Accumulator
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "session-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		var acc Accumulator
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &acc); err != nil {
			continue
		}
		acc.rebuildFilesSeen()
		out = append(out, &acc)
	}
	return out, nil
}

func newSessionID() string {
	return fmt.Sprintf("sess-%d-%s", time.Now().UnixMilli(), randomBase36(4))
}
