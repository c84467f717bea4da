package consolidate

import (
	"strings"

	"github.com/dean0x/devlog/internal/knowledge"
	"github.com/dean0x/devlog/internal/session"
)

// gotchaKeywords and decisionKeywords are conservative signal-content
// heuristics: words a developer is likely to use when narrating a bug
// workaround versus an architectural choice. This is intentionally coarse
// — the fallback only runs when the LLM is unavailable, and its job is to
// avoid losing an obvious signal entirely, not to replace LLM judgment.
var gotchaKeywords = []string{"bug", "workaround", "gotcha", "broke", "failed", "fix", "error", "crash"}
var decisionKeywords = []string{"decided", "chose", "instead of", "switched to", "adopted", "we will use", "going with"}

// FallbackDecision derives a deterministic decision from a session's
// signals alone, for use when the LLM is unreachable or returns an
// unparsable response. It never produces flag_contradiction or an
// update/confirm action, since no section ids are known to be correct
// without LLM judgment.
func FallbackDecision(acc *session.Accumulator) knowledge.Decision {
	var allText strings.Builder
	for _, sig := range acc.Signals {
		allText.WriteString(strings.ToLower(sig.Content))
		allText.WriteString(" ")
	}
	text := allText.String()

	if containsAny(text, decisionKeywords) {
		return knowledge.Decision{
			Action:   knowledge.ActionCreateSection,
			Category: knowledge.Decisions,
			NewSection: &knowledge.NewSection{
				Title:   firstSignalSummary(acc),
				Content: firstTurnContext(acc),
			},
			Reasoning: "fallback heuristic: decision-like language detected",
		}
	}

	if containsAny(text, gotchaKeywords) {
		return knowledge.Decision{
			Action:   knowledge.ActionCreateSection,
			Category: knowledge.Gotchas,
			NewSection: &knowledge.NewSection{
				Title:   firstSignalSummary(acc),
				Content: firstTurnContext(acc),
			},
			Reasoning: "fallback heuristic: gotcha-like language detected",
		}
	}

	return knowledge.Decision{Action: knowledge.ActionSkip, Reasoning: "fallback heuristic: no conservative signal matched"}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func firstSignalSummary(acc *session.Accumulator) string {
	for _, sig := range acc.Signals {
		if sig.Type == session.SignalTurnContext {
			content := sig.Content
			if len(content) > 60 {
				content = content[:60]
			}
			return strings.TrimSpace(content)
		}
	}
	return "Untitled observation from session " + acc.SessionID
}

func firstTurnContext(acc *session.Accumulator) string {
	for _, sig := range acc.Signals {
		if sig.Type == session.SignalTurnContext {
			return sig.Content
		}
	}
	return "(no turn context captured)"
}
