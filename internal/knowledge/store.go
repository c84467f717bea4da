package knowledge

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dean0x/devlog/internal/fsutil"
	"github.com/dean0x/devlog/internal/paths"
)

const (
	// DecayThresholdDays is the default age at which a non-canonical
	// section becomes eligible to decay to tentative.
	DecayThresholdDays = 30
	// ReviewThresholdDays is the default age at which a tentative
	// section is flagged for human review.
	ReviewThresholdDays = 90
)

// Store persists one markdown file per category under a project's
// knowledge directory, and maintains a derived SearchIndex.
type Store struct {
	index *SearchIndex
}

func NewStore() *Store {
	return &Store{index: NewSearchIndex()}
}

// AddSection appends a new section to category, stamping id/timestamps.
func (s *Store) AddSection(projectPath string, category Category, partial NewSection) (*Section, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("knowledge: invalid category %q", category)
	}
	sections, err := s.load(projectPath, category)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sec := Section{
		ID:            newSectionID(category),
		Title:         partial.Title,
		Content:       partial.Content,
		Confidence:    Tentative,
		FirstObserved: now.Format("2006-01-02"),
		LastUpdated:   now,
		Observations:  1,
		Tags:          partial.Tags,
		Examples:      partial.Examples,
	}
	sections = append(sections, sec)
	if err := s.save(projectPath, category, sections); err != nil {
		return nil, err
	}
	return &sec, nil
}

// UpdateSection immutably merges fields into the existing section and
// refreshes last_updated.
func (s *Store) UpdateSection(projectPath string, category Category, id string, fields UpdateFields) (*Section, error) {
	sections, err := s.load(projectPath, category)
	if err != nil {
		return nil, err
	}
	idx := indexOf(sections, id)
	if idx == -1 {
		return nil, fmt.Errorf("knowledge: section %q not found in %s", id, category)
	}
	sec := sections[idx]
	if fields.Title != nil {
		sec.Title = *fields.Title
	}
	if fields.Content != nil {
		sec.Content = *fields.Content
	}
	if fields.Tags != nil {
		sec.Tags = fields.Tags
	}
	if fields.Examples != nil {
		sec.Examples = fields.Examples
	}
	if fields.RelatedFiles != nil {
		sec.RelatedFiles = fields.RelatedFiles
	}
	sec.LastUpdated = time.Now().UTC()
	sections[idx] = sec

	if err := s.save(projectPath, category, sections); err != nil {
		return nil, err
	}
	return &sections[idx], nil
}

// ConfirmSection increments observations and applies the confidence
// upgrade rule.
func (s *Store) ConfirmSection(projectPath string, category Category, id string) (*Section, error) {
	sections, err := s.load(projectPath, category)
	if err != nil {
		return nil, err
	}
	idx := indexOf(sections, id)
	if idx == -1 {
		return nil, fmt.Errorf("knowledge: section %q not found in %s", id, category)
	}
	sec := sections[idx]
	sec.Observations++
	now := time.Now().UTC()
	sec.LastUpdated = now
	sec.LastConfirmed = &now

	if sec.Confidence != Canonical {
		switch {
		case sec.Observations >= 10:
			sec.Confidence = Established
		case sec.Observations >= 5 && sec.Confidence == Tentative:
			sec.Confidence = Developing
		}
	}
	sections[idx] = sec

	if err := s.save(projectPath, category, sections); err != nil {
		return nil, err
	}
	return &sections[idx], nil
}

// DeleteSection removes id from category. Not called by the core; exposed
// for the user-facing deletion operation the spec carves out.
func (s *Store) DeleteSection(projectPath string, category Category, id string) error {
	sections, err := s.load(projectPath, category)
	if err != nil {
		return err
	}
	idx := indexOf(sections, id)
	if idx == -1 {
		return nil
	}
	sections = append(sections[:idx], sections[idx+1:]...)
	return s.save(projectPath, category, sections)
}

// FindSectionByTitle scans category for an exact title match.
func (s *Store) FindSectionByTitle(projectPath string, category Category, title string) (*Section, error) {
	sections, err := s.load(projectPath, category)
	if err != nil {
		return nil, err
	}
	for _, sec := range sections {
		if sec.Title == title {
			return &sec, nil
		}
	}
	return nil, nil
}

// Search looks up query across every category's title/content/tags,
// preferring the derived SearchIndex and falling back to a linear scan.
func (s *Store) Search(projectPath, query string) ([]Section, error) {
	all, err := s.loadAll(projectPath)
	if err != nil {
		return nil, err
	}

	if ids, ok := s.index.Search(projectPath, all, query); ok {
		bySecID := make(map[string]Section, len(all))
		for _, sec := range all {
			bySecID[sec.ID] = sec
		}
		var out []Section
		for _, id := range ids {
			if sec, found := bySecID[id]; found {
				out = append(out, sec)
			}
		}
		return out, nil
	}

	return linearSearch(all, query), nil
}

func linearSearch(all []Section, query string) []Section {
	q := strings.ToLower(query)
	var out []Section
	for _, sec := range all {
		if strings.Contains(strings.ToLower(sec.Title), q) ||
			strings.Contains(strings.ToLower(sec.Content), q) ||
			containsTag(sec.Tags, q) {
			out = append(out, sec)
		}
	}
	return out
}

func containsTag(tags []string, q string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// RecordReference fire-and-forget updates last_referenced. A missing
// section is not an error.
func (s *Store) RecordReference(projectPath string, category Category, id string) error {
	sections, err := s.load(projectPath, category)
	if err != nil {
		return err
	}
	idx := indexOf(sections, id)
	if idx == -1 {
		return nil
	}
	now := time.Now().UTC()
	sections[idx].LastReferenced = &now
	return s.save(projectPath, category, sections)
}

// FindStale computes days_since_confirmed for every non-canonical section
// across all categories, sorted by days descending.
func (s *Store) FindStale(projectPath string, decayDays, reviewDays int) ([]StaleEntry, error) {
	now := time.Now().UTC()
	var out []StaleEntry

	for _, category := range Categories {
		sections, err := s.load(projectPath, category)
		if err != nil {
			return nil, err
		}
		for _, sec := range sections {
			if sec.Confidence == Canonical {
				continue
			}
			reference := sec.LastUpdated
			if sec.LastConfirmed != nil {
				reference = *sec.LastConfirmed
			}
			days := int(now.Sub(reference).Hours() / 24)
			out = append(out, StaleEntry{
				Category:           category,
				SectionID:          sec.ID,
				DaysSinceConfirmed: days,
				EligibleForDecay:   days >= decayDays,
				EligibleForReview:  days >= reviewDays,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DaysSinceConfirmed > out[j].DaysSinceConfirmed })
	return out, nil
}

// ApplyDecay applies the three-branch decay policy to one stale entry.
func (s *Store) ApplyDecay(projectPath string, entry StaleEntry) (DecayAction, error) {
	sections, err := s.load(projectPath, entry.Category)
	if err != nil {
		return DecaySkipped, err
	}
	idx := indexOf(sections, entry.SectionID)
	if idx == -1 {
		return DecaySkipped, nil
	}
	sec := sections[idx]

	switch {
	case sec.Confidence == Canonical:
		return DecaySkipped, nil

	case (sec.Confidence == Established || sec.Confidence == Developing) && entry.EligibleForDecay:
		sec.Confidence = Tentative
		sections[idx] = sec
		if err := s.save(projectPath, entry.Category, sections); err != nil {
			return DecaySkipped, err
		}
		return DecayDecayed, nil

	case sec.Confidence == Tentative && entry.EligibleForReview:
		if sec.FlaggedForReview == nil {
			now := time.Now().UTC()
			sec.FlaggedForReview = &now
			sections[idx] = sec
			if err := s.save(projectPath, entry.Category, sections); err != nil {
				return DecaySkipped, err
			}
		}
		return DecayFlaggedForReview, nil

	default:
		return DecaySkipped, nil
	}
}

// LoadCategory returns category's sections as currently persisted, for
// callers (like the Consolidator) that need the full knowledge context
// rather than a search result.
func (s *Store) LoadCategory(projectPath string, category Category) ([]Section, error) {
	return s.load(projectPath, category)
}

func (s *Store) load(projectPath string, category Category) ([]Section, error) {
	path := paths.CategoryFile(projectPath, string(category))
	data, ok, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return ParseCategoryFile(data)
}

func (s *Store) loadAll(projectPath string) ([]Section, error) {
	var all []Section
	for _, category := range Categories {
		sections, err := s.load(projectPath, category)
		if err != nil {
			return nil, err
		}
		all = append(all, sections...)
	}
	return all, nil
}

func (s *Store) save(projectPath string, category Category, sections []Section) error {
	if err := paths.EnsureProjectDirs(projectPath); err != nil {
		return err
	}
	data, err := RenderCategoryFile(category, sections)
	if err != nil {
		return err
	}
	path := paths.CategoryFile(projectPath, string(category))
	if err := fsutil.WriteBytesAtomic(path, data); err != nil {
		return err
	}
	s.index.Invalidate(projectPath)
	return nil
}

func indexOf(sections []Section, id string) int {
	for i, sec := range sections {
		if sec.ID == id {
			return i
		}
	}
	return -1
}

func newSectionID(category Category) string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return fmt.Sprintf("%s-%s", category.idPrefix(), hex.EncodeToString(buf))
}

func readFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fsutil.NewStorageError(fsutil.OpRead, path, err)
	}
	return data, true, nil
}
