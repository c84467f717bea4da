package ingest

import (
	"os"
	"testing"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/paths"
	"github.com/dean0x/devlog/internal/session"
)

func withTempEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DEVLOG_HOME", home)
	return t.TempDir()
}

func TestIngestAppendsSignalsAndMarksDirty(t *testing.T) {
	project := withTempEnv(t)
	h := New(session.NewStore(), catchup.NewStore())

	h.Ingest(Turn{
		SessionID:         "sess-1",
		ProjectPath:       project,
		UserPrompt:        "a prompt longer than ten characters",
		AssistantResponse: "ok",
		FilesTouched:      []string{"/a.go"},
	})

	acc, err := session.NewStore().GetOrCreate("sess-1", project)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(acc.Signals) == 0 {
		t.Fatal("expected signals to be persisted")
	}

	st, err := catchup.NewStore().ReadState(project)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if !st.Dirty {
		t.Fatal("expected catch-up state to be dirty after ingest")
	}
}

func TestIngestNoSignalsDoesNotMarkDirty(t *testing.T) {
	project := withTempEnv(t)
	h := New(session.NewStore(), catchup.NewStore())

	h.Ingest(Turn{SessionID: "sess-1", ProjectPath: project, UserPrompt: "hi", AssistantResponse: "ok"})

	st, err := catchup.NewStore().ReadState(project)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if st.Dirty {
		t.Fatal("did not expect dirty state when no signals were produced")
	}
}

func TestIngestSkippedWhileExtractionMarkerPresent(t *testing.T) {
	project := withTempEnv(t)
	marker := paths.ExtractionMarkerFile()
	if err := os.WriteFile(marker, []byte("1234"), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	defer os.Remove(marker)

	h := New(session.NewStore(), catchup.NewStore())
	h.Ingest(Turn{
		SessionID:    "sess-1",
		ProjectPath:  project,
		UserPrompt:   "a prompt longer than ten characters",
		FilesTouched: []string{"/a.go"},
	})

	st, err := catchup.NewStore().ReadState(project)
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if st.Dirty {
		t.Fatal("ingest should have been skipped entirely while the marker file exists")
	}
}
