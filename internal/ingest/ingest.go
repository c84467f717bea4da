// Package ingest implements HookIngest: the narrow boundary between the
// coding-assistant's per-turn hooks and the rest of the daemon. Every
// operation here is non-fatal by contract — hooks run as subprocesses of
// the host assistant and must never propagate a failure back to it.
package ingest

import (
	"log"
	"os"
	"time"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/paths"
	"github.com/dean0x/devlog/internal/session"
)

// Turn is one assistant turn as the hook layer observes it.
type Turn struct {
	SessionID         string
	ProjectPath       string
	UserPrompt        string
	AssistantResponse string
	FilesTouched      []string
}

// HookIngest converts turns into session signals and flips the catch-up
// dirty flag, guarding against the daemon's own extraction feedback loop.
type HookIngest struct {
	sessions *session.Store
	catchup  *catchup.Store
}

func New(sessions *session.Store, catchupStore *catchup.Store) *HookIngest {
	return &HookIngest{sessions: sessions, catchup: catchupStore}
}

// Ingest applies the extraction rule to t and persists the resulting
// signals. Never returns an error to the caller by design — every failure
// is logged and swallowed.
func (h *HookIngest) Ingest(t Turn) {
	if markerExists() {
		return
	}

	turnNumber := time.Now().UnixMilli()
	signals := session.BuildSignals(turnNumber, t.UserPrompt, t.AssistantResponse, t.FilesTouched)
	if len(signals) == 0 {
		return
	}

	for _, sig := range signals {
		if _, err := h.sessions.AppendSignalAndPersist(t.SessionID, t.ProjectPath, sig); err != nil {
			log.Printf("ingest: append signal for %s: %v", t.ProjectPath, err)
		}
	}

	if err := h.catchup.MarkDirty(t.ProjectPath); err != nil {
		log.Printf("ingest: mark_dirty for %s: %v", t.ProjectPath, err)
	}
	if err := paths.Register(t.ProjectPath); err != nil {
		log.Printf("ingest: register %s: %v", t.ProjectPath, err)
	}
}

func markerExists() bool {
	_, err := os.Stat(paths.ExtractionMarkerFile())
	return err == nil
}
