// Package consolidate implements the Consolidator: for one finalized
// session, it loads existing knowledge, asks the LLM collaborator how to
// update it, applies the decision, and retires the session.
package consolidate

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/knowledge"
	"github.com/dean0x/devlog/internal/llm"
	"github.com/dean0x/devlog/internal/paths"
	"github.com/dean0x/devlog/internal/session"
)

// DefaultTimeout is the consolidation call site's LLM budget (§4.7 step 4).
const DefaultTimeout = 60 * time.Second

// Consolidator turns one consolidating session into a knowledge-store
// mutation plus the bookkeeping (recent summary, session archival, index
// regeneration) that follows a successful application.
type Consolidator struct {
	Knowledge *knowledge.Store
	Sessions  *session.Store
	CatchUp   *catchup.Store
	LLM       llm.Collaborator
	Timeout   time.Duration
}

// New wires a Consolidator from its collaborators. Timeout defaults to
// DefaultTimeout when zero.
func New(k *knowledge.Store, s *session.Store, c *catchup.Store, collaborator llm.Collaborator) *Consolidator {
	return &Consolidator{Knowledge: k, Sessions: s, CatchUp: c, LLM: collaborator, Timeout: DefaultTimeout}
}

// Run consolidates one session end-to-end. Callers are expected to invoke
// this under the project's lock (internal/lock.ProjectLock).
func (c *Consolidator) Run(ctx context.Context, acc *session.Accumulator) error {
	if err := writeExtractionMarker(); err != nil {
		return fmt.Errorf("consolidate: write extraction marker: %w", err)
	}
	defer removeExtractionMarker()

	existing, err := c.loadAllCategories(acc.ProjectPath)
	if err != nil {
		return fmt.Errorf("consolidate: load existing knowledge: %w", err)
	}

	decision := c.decide(ctx, existing, acc)

	result, err := c.Knowledge.ApplyDecision(acc.ProjectPath, decision)
	if err != nil {
		return fmt.Errorf("consolidate: apply decision: %w", err)
	}

	if err := c.afterApply(acc, result); err != nil {
		return err
	}
	return nil
}

func (c *Consolidator) decide(ctx context.Context, existing map[knowledge.Category][]knowledge.Section, acc *session.Accumulator) knowledge.Decision {
	if c.LLM == nil {
		return FallbackDecision(acc)
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := BuildPrompt(existing, acc)
	raw, err := c.LLM.Complete(callCtx, prompt)
	if err != nil {
		return FallbackDecision(acc)
	}

	decision, err := ParseDecision(raw)
	if err != nil {
		return FallbackDecision(acc)
	}
	return decision
}

func (c *Consolidator) afterApply(acc *session.Accumulator, result knowledge.ApplyResult) error {
	summary := catchup.RecentSessionSummary{
		SessionID:      acc.SessionID,
		ProjectPath:    acc.ProjectPath,
		StartedAt:      acc.StartedAt,
		ConsolidatedAt: time.Now().UTC(),
		KeySignals:     filteredSignalSummaries(acc),
		FilesTouched:   acc.FilesTouchedAll,
	}
	if err := c.CatchUp.SaveSummary(acc.ProjectPath, summary); err != nil {
		return fmt.Errorf("consolidate: save recent summary: %w", err)
	}
	if err := c.CatchUp.PruneToLimit(acc.ProjectPath, catchup.DefaultRecentSummaryLimit); err != nil {
		return fmt.Errorf("consolidate: prune recent summaries: %w", err)
	}

	if err := c.Sessions.Archive(acc.ProjectPath, acc.SessionID); err != nil {
		return fmt.Errorf("consolidate: archive session: %w", err)
	}

	if result.KnowledgeUpdated {
		if err := c.Knowledge.RegenerateIndex(acc.ProjectPath); err != nil {
			return fmt.Errorf("consolidate: regenerate index: %w", err)
		}
	}
	return nil
}

func filteredSignalSummaries(acc *session.Accumulator) []string {
	var out []string
	for _, sig := range acc.Signals {
		if sig.Type == session.SignalTurnContext {
			out = append(out, truncate(sig.Content, 120))
		}
	}
	return out
}

func (c *Consolidator) loadAllCategories(projectPath string) (map[knowledge.Category][]knowledge.Section, error) {
	out := make(map[knowledge.Category][]knowledge.Section, len(knowledge.Categories))
	for _, category := range knowledge.Categories {
		sections, err := c.Knowledge.LoadCategory(projectPath, category)
		if err != nil {
			return nil, err
		}
		out[category] = sections
	}
	return out, nil
}

func writeExtractionMarker() error {
	pid := strconv.Itoa(os.Getpid())
	return os.WriteFile(paths.ExtractionMarkerFile(), []byte(pid), 0o644)
}

func removeExtractionMarker() {
	os.Remove(paths.ExtractionMarkerFile())
}
