package consolidate

import (
	"fmt"
	"strings"

	"github.com/dean0x/devlog/internal/knowledge"
	"github.com/dean0x/devlog/internal/session"
)

const promptTemplate = `You are consolidating one coding-assistant session into a project's durable knowledge base.

# Existing knowledge
%s

# Session
session_id: %s
project_path: %s
turn_count: %d
files_touched: %s

# Signals
%s

Respond with a single JSON object matching this schema and nothing else:
{"action": "skip|create_section|extend_section|add_example|confirm_pattern|flag_contradiction", "category": "conventions|architecture|decisions|gotchas", "section_id": "...", "new_section": {"title": "...", "content": "...", "tags": ["..."], "examples": ["..."]}, "extension": {"additional_content": "...", "new_examples": ["..."]}, "reasoning": "..."}
`

// BuildPrompt renders the fixed four-slot consolidation prompt: existing
// knowledge summary, session identity, files touched, and signal list.
func BuildPrompt(existing map[knowledge.Category][]knowledge.Section, acc *session.Accumulator) string {
	return fmt.Sprintf(
		promptTemplate,
		renderKnowledgeSummary(existing),
		acc.SessionID,
		acc.ProjectPath,
		acc.TurnCount,
		strings.Join(acc.FilesTouchedAll, ", "),
		renderSignals(acc.Signals),
	)
}

func renderKnowledgeSummary(existing map[knowledge.Category][]knowledge.Section) string {
	var b strings.Builder
	for _, category := range knowledge.Categories {
		sections := existing[category]
		if len(sections) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", category)
		for _, sec := range sections {
			fmt.Fprintf(&b, "- [%s] %s (%s, %d obs): %s\n", sec.ID, sec.Title, sec.Confidence, sec.Observations, truncate(sec.Content, 150))
		}
	}
	if b.Len() == 0 {
		return "(none yet)"
	}
	return b.String()
}

func renderSignals(signals []session.Signal) string {
	var b strings.Builder
	for _, sig := range signals {
		fmt.Fprintf(&b, "- [%s] %s\n", sig.Type, truncate(sig.Content, 300))
	}
	if b.Len() == 0 {
		return "(no signals)"
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
