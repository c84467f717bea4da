package session

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// minContentChars is the non-whitespace threshold that makes a turn_context
// signal worth recording.
const minContentChars = 10

// BuildSignals applies the extraction rule to one assistant turn: at most
// one file_touched signal (deduplicated, in the order first seen) and at
// most one turn_context signal when either side carries real content.
func BuildSignals(turnNumber int64, userPrompt, assistantResponse string, filesTouched []string) []Signal {
	now := time.Now().UTC()
	var out []Signal

	if len(filesTouched) > 0 {
		out = append(out, Signal{
			ID:         newSignalID(),
			Timestamp:  now,
			TurnNumber: turnNumber,
			Type:       SignalFileTouched,
			Content:    strings.Join(dedupPreserveOrder(filesTouched), ", "),
			Files:      dedupPreserveOrder(filesTouched),
		})
	}

	if nonWhitespaceLen(userPrompt) > minContentChars || nonWhitespaceLen(assistantResponse) > minContentChars {
		out = append(out, Signal{
			ID:         newSignalID(),
			Timestamp:  now,
			TurnNumber: turnNumber,
			Type:       SignalTurnContext,
			Content:    fmt.Sprintf("User: %s\n\nAssistant: %s", userPrompt, assistantResponse),
		})
	}

	return out
}

func nonWhitespaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !strings.ContainsRune(" \t\n\r\v\f", r) {
			n++
		}
	}
	return n
}

func dedupPreserveOrder(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func newSignalID() string {
	return "sig-" + randomBase36(8)
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(out)
}
