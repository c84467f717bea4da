package consolidate

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/knowledge"
	"github.com/dean0x/devlog/internal/paths"
	"github.com/dean0x/devlog/internal/session"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func setupProject(t *testing.T) (string, *session.Store) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DEVLOG_HOME", home)
	project := t.TempDir()
	return project, session.NewStore()
}

func TestConsolidatorCreateSectionEndToEnd(t *testing.T) {
	project, sessions := setupProject(t)
	acc, err := sessions.GetOrCreate("sess-1", project)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	acc, err = sessions.AppendSignalAndPersist(acc.SessionID, project, session.Signal{
		ID: "sig-1", Timestamp: time.Now().UTC(), TurnNumber: 1,
		Type: session.SignalTurnContext, Content: "User: use Result types\n\nAssistant: agreed",
	})
	if err != nil {
		t.Fatalf("AppendSignalAndPersist: %v", err)
	}

	fake := &fakeLLM{response: `{"action":"create_section","category":"decisions","new_section":{"title":"Use Result types","content":"Prefer explicit error returns.","tags":["patterns"]}}`}
	kstore := knowledge.NewStore()
	cstore := catchup.NewStore()
	c := New(kstore, sessions, cstore, fake)

	if err := c.Run(context.Background(), acc); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sections, err := kstore.LoadCategory(project, knowledge.Decisions)
	if err != nil {
		t.Fatalf("LoadCategory: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("decisions.md has %d sections, want 1", len(sections))
	}
	sec := sections[0]
	if sec.Confidence != knowledge.Tentative || sec.Observations != 1 {
		t.Fatalf("new section = %+v", sec)
	}
	if matched, _ := regexp.MatchString(`^deci-[0-9a-f]{8}$`, sec.ID); !matched {
		t.Fatalf("id %q does not match ^deci-[0-9a-f]{8}$", sec.ID)
	}

	if _, err := os.Stat(paths.SessionFile(project, acc.SessionID)); !os.IsNotExist(err) {
		t.Fatalf("expected session file removed, stat err = %v", err)
	}

	summaries, err := cstore.RecentSummaries(project)
	if err != nil {
		t.Fatalf("RecentSummaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("recent summaries = %v, want one entry", summaries)
	}

	if _, err := os.Stat(paths.IndexFile(project)); err != nil {
		t.Fatalf("expected index.md to be regenerated: %v", err)
	}
}

func TestConsolidatorFallsBackOnLLMError(t *testing.T) {
	project, sessions := setupProject(t)
	acc, err := sessions.GetOrCreate("sess-1", project)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	acc, err = sessions.AppendSignalAndPersist(acc.SessionID, project, session.Signal{
		ID: "sig-1", Timestamp: time.Now().UTC(), TurnNumber: 1,
		Type: session.SignalTurnContext, Content: "User: found a nasty bug\n\nAssistant: fixed with a workaround",
	})
	if err != nil {
		t.Fatalf("AppendSignalAndPersist: %v", err)
	}

	fake := &fakeLLM{err: errors.New("connection refused")}
	kstore := knowledge.NewStore()
	c := New(kstore, sessions, catchup.NewStore(), fake)

	if err := c.Run(context.Background(), acc); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sections, err := kstore.LoadCategory(project, knowledge.Gotchas)
	if err != nil {
		t.Fatalf("LoadCategory: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("gotchas.md has %d sections after fallback, want 1: %+v", len(sections), sections)
	}
}

func TestConsolidatorRemovesExtractionMarkerOnExit(t *testing.T) {
	project, sessions := setupProject(t)
	acc, err := sessions.GetOrCreate("sess-1", project)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	fake := &fakeLLM{response: `{"action":"skip"}`}
	c := New(knowledge.NewStore(), sessions, catchup.NewStore(), fake)
	if err := c.Run(context.Background(), acc); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(paths.ExtractionMarkerFile()); !os.IsNotExist(err) {
		t.Fatalf("expected extraction marker removed after Run, stat err = %v", err)
	}
}
