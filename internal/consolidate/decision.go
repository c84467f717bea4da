package consolidate

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/dean0x/devlog/internal/knowledge"
)

// ErrNoJSONObject means the LLM response contained no balanced JSON object
// at all — the caller should treat this as a parse failure and use the
// fallback decision.
var ErrNoJSONObject = errors.New("consolidate: no balanced JSON object found in response")

// ParseDecision extracts the first balanced JSON object from raw
// (tolerating a `<think>...</think>` preamble or any other leading text),
// then validates and coerces it into a knowledge.Decision: an unrecognized
// action becomes ActionUnknown, and an invalid category is dropped.
func ParseDecision(raw string) (knowledge.Decision, error) {
	if end := strings.Index(raw, "</think>"); end != -1 {
		raw = raw[end+len("</think>"):]
	}
	obj := firstBalancedJSONObject(raw)
	if obj == "" {
		return knowledge.Decision{}, ErrNoJSONObject
	}

	var d knowledge.Decision
	if err := json.Unmarshal([]byte(obj), &d); err != nil {
		return knowledge.Decision{}, err
	}

	if !isKnownAction(d.Action) {
		d.Action = knowledge.ActionUnknown
	}
	if d.Category != "" && !d.Category.IsValid() {
		d.Category = ""
	}
	return d, nil
}

func isKnownAction(a knowledge.DecisionAction) bool {
	switch a {
	case knowledge.ActionSkip, knowledge.ActionCreateSection, knowledge.ActionExtendSection,
		knowledge.ActionAddExample, knowledge.ActionConfirmPattern, knowledge.ActionFlagContradiction:
		return true
	}
	return false
}

// firstBalancedJSONObject scans raw for the first top-level '{' and returns
// the substring up to its matching '}', respecting string literals and
// escapes so braces inside quoted text don't confuse the brace count.
// Returns "" if no balanced object is found.
func firstBalancedJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
