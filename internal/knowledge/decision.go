package knowledge

import "fmt"

// ApplyDecision applies one SessionConsolidationDecision per the
// consolidation-decision application table. Missing preconditions return a
// well-typed error; an action outside the closed set is treated as
// ActionUnknown and succeeds as a no-op.
func (s *Store) ApplyDecision(projectPath string, d Decision) (ApplyResult, error) {
	switch d.Action {
	case ActionSkip:
		return ApplyResult{Action: ActionSkip}, nil

	case ActionCreateSection:
		if d.Category == "" || d.NewSection == nil || d.NewSection.Title == "" || d.NewSection.Content == "" {
			return ApplyResult{}, fmt.Errorf("knowledge: create_section requires category and new_section{title, content}")
		}
		if !d.Category.IsValid() {
			return ApplyResult{}, fmt.Errorf("knowledge: invalid category %q", d.Category)
		}
		sec, err := s.AddSection(projectPath, d.Category, *d.NewSection)
		if err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{Action: ActionCreateSection, KnowledgeUpdated: true, SectionID: sec.ID}, nil

	case ActionExtendSection:
		if d.Category == "" || d.SectionID == "" || d.Extension == nil || d.Extension.AdditionalContent == "" {
			return ApplyResult{}, fmt.Errorf("knowledge: extend_section requires category, section_id, extension.additional_content")
		}
		existing, err := s.sectionByID(projectPath, d.Category, d.SectionID)
		if err != nil {
			return ApplyResult{}, err
		}
		if existing == nil {
			return ApplyResult{}, fmt.Errorf("knowledge: section %q not found in %s", d.SectionID, d.Category)
		}
		newContent := existing.Content + "\n\n" + d.Extension.AdditionalContent
		if _, err := s.UpdateSection(projectPath, d.Category, d.SectionID, UpdateFields{Content: &newContent}); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{Action: ActionExtendSection, KnowledgeUpdated: true, SectionID: d.SectionID}, nil

	case ActionAddExample:
		if d.Category == "" || d.SectionID == "" || d.Extension == nil || len(d.Extension.NewExamples) == 0 {
			return ApplyResult{}, fmt.Errorf("knowledge: add_example requires category, section_id, extension.new_examples")
		}
		existing, err := s.sectionByID(projectPath, d.Category, d.SectionID)
		if err != nil {
			return ApplyResult{}, err
		}
		if existing == nil {
			return ApplyResult{}, fmt.Errorf("knowledge: section %q not found in %s", d.SectionID, d.Category)
		}
		examples := append(append([]string(nil), existing.Examples...), d.Extension.NewExamples...)
		if _, err := s.UpdateSection(projectPath, d.Category, d.SectionID, UpdateFields{Examples: examples}); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{Action: ActionAddExample, KnowledgeUpdated: true, SectionID: d.SectionID}, nil

	case ActionConfirmPattern:
		if d.Category == "" || d.SectionID == "" {
			return ApplyResult{}, fmt.Errorf("knowledge: confirm_pattern requires category and section_id")
		}
		if _, err := s.ConfirmSection(projectPath, d.Category, d.SectionID); err != nil {
			return ApplyResult{}, err
		}
		return ApplyResult{Action: ActionConfirmPattern, KnowledgeUpdated: true, SectionID: d.SectionID}, nil

	case ActionFlagContradiction:
		// Log only; no mutation.
		return ApplyResult{Action: ActionFlagContradiction}, nil

	default:
		return ApplyResult{Action: ActionUnknown}, nil
	}
}

func (s *Store) sectionByID(projectPath string, category Category, id string) (*Section, error) {
	sections, err := s.load(projectPath, category)
	if err != nil {
		return nil, err
	}
	idx := indexOf(sections, id)
	if idx == -1 {
		return nil, nil
	}
	return &sections[idx], nil
}
