package consolidate

import (
	"testing"

	"github.com/dean0x/devlog/internal/knowledge"
)

func TestParseDecisionPlainJSON(t *testing.T) {
	raw := `{"action":"create_section","category":"decisions","new_section":{"title":"Use Result types","content":"...","tags":["patterns"]}}`
	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != knowledge.ActionCreateSection || d.Category != knowledge.Decisions {
		t.Fatalf("ParseDecision = %+v", d)
	}
}

func TestParseDecisionWithThinkPreamble(t *testing.T) {
	raw := "<think>Let me consider the options here...\nbrace test {nested}</think>\n" +
		`{"action":"confirm_pattern","category":"gotchas","section_id":"gotc-aabbccdd"}`
	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != knowledge.ActionConfirmPattern || d.SectionID != "gotc-aabbccdd" {
		t.Fatalf("ParseDecision = %+v", d)
	}
}

func TestParseDecisionUnknownActionCoerced(t *testing.T) {
	raw := `{"action":"delete_everything"}`
	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Action != knowledge.ActionUnknown {
		t.Fatalf("Action = %s, want unknown", d.Action)
	}
}

func TestParseDecisionInvalidCategoryDropped(t *testing.T) {
	raw := `{"action":"skip","category":"not-a-real-category"}`
	d, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if d.Category != "" {
		t.Fatalf("Category = %q, want dropped to empty", d.Category)
	}
}

func TestParseDecisionNoJSONObject(t *testing.T) {
	if _, err := ParseDecision("I cannot help with that."); err != ErrNoJSONObject {
		t.Fatalf("err = %v, want ErrNoJSONObject", err)
	}
}

func TestFirstBalancedJSONObjectHandlesBracesInStrings(t *testing.T) {
	raw := `noise {"content": "contains a { brace } inside a string"} trailing {"second": true}`
	got := firstBalancedJSONObject(raw)
	want := `{"content": "contains a { brace } inside a string"}`
	if got != want {
		t.Fatalf("firstBalancedJSONObject = %q, want %q", got, want)
	}
}
