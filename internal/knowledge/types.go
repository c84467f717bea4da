// Package knowledge implements the per-project knowledge store: markdown
// files with a confidence model, decay/review sweeps, and the consolidation
// decisions produced by the LLM collaborator are applied here.
package knowledge

import "time"

// Category is one of the four closed-set knowledge files.
type Category string

const (
	Conventions  Category = "conventions"
	Architecture Category = "architecture"
	Decisions    Category = "decisions"
	Gotchas      Category = "gotchas"
)

// Categories lists the closed set in canonical file order.
var Categories = []Category{Conventions, Architecture, Decisions, Gotchas}

// IsValid reports whether c belongs to the closed set.
func (c Category) IsValid() bool {
	for _, candidate := range Categories {
		if candidate == c {
			return true
		}
	}
	return false
}

// idPrefix returns the 4-letter id prefix for a category, e.g. "conv" for
// conventions and "deci" for decisions.
func (c Category) idPrefix() string {
	s := string(c)
	if len(s) < 4 {
		return s
	}
	return s[:4]
}

// Confidence is the tier a section's evidence has earned. canonical is
// terminal and never decays.
type Confidence string

const (
	Tentative   Confidence = "tentative"
	Developing  Confidence = "developing"
	Established Confidence = "established"
	Canonical   Confidence = "canonical"
)

// Section is one knowledge entry within a category file.
type Section struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Confidence      Confidence `json:"confidence"`
	FirstObserved   string     `json:"first_observed"` // date, YYYY-MM-DD
	LastUpdated     time.Time  `json:"last_updated"`
	Observations    int        `json:"observations"`
	Tags            []string   `json:"tags,omitempty"`
	Examples        []string   `json:"examples,omitempty"`
	RelatedFiles    []string   `json:"related_files,omitempty"`
	LastReferenced  *time.Time `json:"last_referenced,omitempty"`
	LastConfirmed   *time.Time `json:"last_confirmed,omitempty"`
	FlaggedForReview *time.Time `json:"flagged_for_review,omitempty"`
}

// NewSection fields, used by add_section.
type NewSection struct {
	Title    string
	Content  string
	Tags     []string
	Examples []string
}

// UpdateFields is the immutable-merge patch for update_section; nil/zero
// fields are left unchanged.
type UpdateFields struct {
	Title        *string
	Content      *string
	Tags         []string
	Examples     []string
	RelatedFiles []string
}

// StaleEntry is one row of find_stale's report.
type StaleEntry struct {
	Category          Category
	SectionID         string
	DaysSinceConfirmed int
	EligibleForDecay  bool
	EligibleForReview bool
}

// DecayAction is the outcome of apply_decay on one StaleEntry.
type DecayAction string

const (
	DecaySkipped         DecayAction = "skipped"
	DecayDecayed         DecayAction = "decayed"
	DecayFlaggedForReview DecayAction = "flagged_for_review"
)

// DecisionAction is the closed set of consolidation-decision actions.
type DecisionAction string

const (
	ActionSkip              DecisionAction = "skip"
	ActionCreateSection     DecisionAction = "create_section"
	ActionExtendSection     DecisionAction = "extend_section"
	ActionAddExample        DecisionAction = "add_example"
	ActionConfirmPattern    DecisionAction = "confirm_pattern"
	ActionFlagContradiction DecisionAction = "flag_contradiction"
	ActionUnknown           DecisionAction = "unknown"
)

// Extension carries the extend_section / add_example payload.
type Extension struct {
	AdditionalContent string   `json:"additional_content,omitempty"`
	NewExamples       []string `json:"new_examples,omitempty"`
}

// Decision is the structured output the LLM collaborator produces at the
// end of consolidation (§4.3's "Consolidation-decision application").
type Decision struct {
	Action     DecisionAction `json:"action"`
	Category   Category       `json:"category,omitempty"`
	SectionID  string         `json:"section_id,omitempty"`
	NewSection *NewSection    `json:"new_section,omitempty"`
	Extension  *Extension     `json:"extension,omitempty"`
	Reasoning  string         `json:"reasoning,omitempty"`
}

// ApplyResult reports what ApplyDecision did, so the Daemon knows whether
// to regenerate the index.
type ApplyResult struct {
	Action          DecisionAction
	KnowledgeUpdated bool
	SectionID       string
}
