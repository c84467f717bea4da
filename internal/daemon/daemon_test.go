package daemon

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/config"
	"github.com/dean0x/devlog/internal/knowledge"
	"github.com/dean0x/devlog/internal/lock"
	"github.com/dean0x/devlog/internal/paths"
	"github.com/dean0x/devlog/internal/session"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestDaemon(t *testing.T, collaborator *stubLLM) (*Daemon, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DEVLOG_HOME", home)
	project := t.TempDir()
	if err := paths.EnsureProjectDirs(project); err != nil {
		t.Fatalf("EnsureProjectDirs: %v", err)
	}

	cfg := config.Defaults()
	cfg.PollIntervalMS = 10
	d := New(cfg, session.NewStore(), knowledge.NewStore(), catchup.NewStore(), lock.New(), collaborator, nil, nil)
	return d, project
}

func TestDiscoverAddsRegisteredProjectWithWorkingDir(t *testing.T) {
	d, project := newTestDaemon(t, &stubLLM{response: `{"action":"skip"}`})

	if err := paths.Register(project); err != nil {
		t.Fatalf("Register: %v", err)
	}

	d.discover()

	if _, ok := d.projects[project]; !ok {
		t.Fatalf("discover did not add %s to the project set", project)
	}
}

func TestDiscoverSkipsProjectMissingWorkingDir(t *testing.T) {
	d, _ := newTestDaemon(t, &stubLLM{response: `{"action":"skip"}`})
	ghost := t.TempDir()

	if err := paths.Register(ghost); err != nil {
		t.Fatalf("Register: %v", err)
	}

	d.discover()

	if _, ok := d.projects[ghost]; ok {
		t.Fatalf("discover added %s despite having no working dir", ghost)
	}
}

func TestConsolidateAllProcessesPendingSessionsAndUpdatesStats(t *testing.T) {
	d, project := newTestDaemon(t, &stubLLM{
		response: `{"action":"create_section","category":"decisions","new_section":{"title":"Use feature flags","content":"Ship behind a flag.","tags":["process"]}}`,
	})
	d.projects[project] = ProjectStats{}

	acc, err := d.Sessions.GetOrCreate("sess-1", project)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, err := d.Sessions.AppendSignalAndPersist(acc.SessionID, project, session.Signal{
		ID: "sig-1", Timestamp: time.Now().UTC(), TurnNumber: 1,
		Type: session.SignalTurnContext, Content: "User: ship behind a flag\n\nAssistant: ok",
	}); err != nil {
		t.Fatalf("AppendSignalAndPersist: %v", err)
	}
	if err := d.Sessions.Finalize(project, acc.SessionID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	d.consolidateAll(context.Background())

	stats := d.projects[project]
	if stats.SessionsConsolidated != 1 {
		t.Fatalf("SessionsConsolidated = %d, want 1", stats.SessionsConsolidated)
	}
	if d.sessionsProcessed != 1 {
		t.Fatalf("sessionsProcessed = %d, want 1", d.sessionsProcessed)
	}

	sections, err := d.Knowledge.LoadCategory(project, knowledge.Decisions)
	if err != nil {
		t.Fatalf("LoadCategory: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("decisions.md has %d sections, want 1", len(sections))
	}
}

func TestDecaySweepIsRateLimited(t *testing.T) {
	d, project := newTestDaemon(t, nil)
	d.projects[project] = ProjectStats{}

	now := time.Now().UTC()
	d.lastStalenessCheck = &now

	d.decaySweepIfDue()

	if !d.lastStalenessCheck.Equal(now) {
		t.Fatalf("decaySweepIfDue ran despite being within the interval")
	}
}

func TestStartRefusesWhenPidFileNamesLiveProcess(t *testing.T) {
	home := t.TempDir()
	t.Setenv("DEVLOG_HOME", home)

	if err := paths.EnsureGlobalDir(); err != nil {
		t.Fatalf("EnsureGlobalDir: %v", err)
	}
	if err := os.WriteFile(paths.PidFile(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	d := New(config.Defaults(), session.NewStore(), knowledge.NewStore(), catchup.NewStore(), lock.New(), nil, nil, nil)
	if err := d.Start(); err == nil {
		t.Fatalf("Start succeeded despite a live pid file")
	}
}

func TestStartThenStopRemovesPidFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("DEVLOG_HOME", home)

	d := New(config.Defaults(), session.NewStore(), knowledge.NewStore(), catchup.NewStore(), lock.New(), nil, nil, nil)
	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := os.Stat(paths.PidFile()); err != nil {
		t.Fatalf("expected pid file to exist after Start: %v", err)
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := os.Stat(paths.PidFile()); !os.IsNotExist(err) {
		t.Fatalf("expected pid file removed after Stop, stat err = %v", err)
	}
	if _, err := os.Stat(paths.StatusFile()); err != nil {
		t.Fatalf("expected status file to exist after Stop: %v", err)
	}
}

