package knowledge

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const timeLayout = time.RFC3339

type frontMatter struct {
	Category     string `yaml:"category"`
	SectionCount int    `yaml:"sectionCount"`
	LastUpdated  string `yaml:"lastUpdated"`
}

// RenderCategoryFile serializes category's sections into the canonical
// markdown format: YAML front matter, then one "## [id] Title" block per
// section with bolded-key metadata lines.
func RenderCategoryFile(category Category, sections []Section) ([]byte, error) {
	fm := frontMatter{
		Category:     string(category),
		SectionCount: len(sections),
		LastUpdated:  time.Now().UTC().Format(timeLayout),
	}
	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("knowledge: marshal front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fmBytes)
	b.WriteString("---\n\n")

	for i, s := range sections {
		if i > 0 {
			b.WriteString("---\n\n")
		}
		writeSection(&b, s)
	}

	return []byte(b.String()), nil
}

func writeSection(b *strings.Builder, s Section) {
	fmt.Fprintf(b, "## [%s] %s\n\n", s.ID, s.Title)
	b.WriteString(strings.TrimRight(s.Content, "\n"))
	b.WriteString("\n\n")

	if len(s.Examples) > 0 {
		b.WriteString("### Examples\n\n")
		for _, ex := range s.Examples {
			fmt.Fprintf(b, "- %s\n", ex)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "**Confidence**: %s\n", s.Confidence)
	fmt.Fprintf(b, "**First observed**: %s\n", s.FirstObserved)
	fmt.Fprintf(b, "**Last updated**: %s\n", s.LastUpdated.Format(timeLayout))
	fmt.Fprintf(b, "**Observations**: %d\n", s.Observations)
	if len(s.RelatedFiles) > 0 {
		fmt.Fprintf(b, "**Related files**: `%s`\n", strings.Join(s.RelatedFiles, "`, `"))
	}
	if len(s.Tags) > 0 {
		fmt.Fprintf(b, "**Tags**: %s\n", strings.Join(s.Tags, ", "))
	}
	if s.LastReferenced != nil {
		fmt.Fprintf(b, "**Last referenced**: %s\n", s.LastReferenced.Format(timeLayout))
	}
	if s.LastConfirmed != nil {
		fmt.Fprintf(b, "**Last confirmed**: %s\n", s.LastConfirmed.Format(timeLayout))
	}
	if s.FlaggedForReview != nil {
		fmt.Fprintf(b, "**Flagged for review**: %s\n", s.FlaggedForReview.Format(timeLayout))
	}
	b.WriteString("\n")
}

// ParseCategoryFile recovers the section list from a canonical category
// markdown file. Unknown or malformed lines are tolerated where possible;
// a section with no recognizable "## [id] title" header is skipped.
func ParseCategoryFile(data []byte) ([]Section, error) {
	text := string(data)
	text = stripFrontMatter(text)

	var sections []Section
	var cur *Section
	var contentLines []string
	inExamples := false

	flush := func() {
		if cur == nil {
			return
		}
		cur.Content = strings.TrimSpace(strings.Join(contentLines, "\n"))
		sections = append(sections, *cur)
		cur = nil
		contentLines = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "## [") {
			flush()
			id, title := parseHeader(line)
			cur = &Section{ID: id, Title: title, Observations: 1, Confidence: Tentative}
			inExamples = false
			continue
		}
		if cur == nil {
			continue
		}
		if strings.TrimSpace(line) == "---" {
			continue
		}
		if strings.HasPrefix(line, "### Examples") {
			inExamples = true
			continue
		}
		if inExamples {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "- ") {
				cur.Examples = append(cur.Examples, strings.TrimPrefix(trimmed, "- "))
				continue
			}
			if trimmed == "" {
				continue
			}
			inExamples = false
		}
		if strings.HasPrefix(strings.TrimSpace(line), "**") {
			applyField(cur, line)
			continue
		}
		contentLines = append(contentLines, line)
	}
	flush()

	return sections, scanner.Err()
}

func stripFrontMatter(text string) string {
	if !strings.HasPrefix(text, "---\n") {
		return text
	}
	rest := text[len("---\n"):]
	idx := strings.Index(rest, "\n---\n")
	if idx == -1 {
		return text
	}
	return rest[idx+len("\n---\n"):]
}

func parseHeader(line string) (id, title string) {
	line = strings.TrimPrefix(line, "## [")
	close := strings.Index(line, "]")
	if close == -1 {
		return "", strings.TrimSpace(line)
	}
	id = line[:close]
	title = strings.TrimSpace(line[close+1:])
	return id, title
}

func applyField(s *Section, line string) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "**")
	parts := strings.SplitN(trimmed, "**:", 2)
	if len(parts) != 2 {
		return
	}
	key := strings.TrimSpace(parts[0])
	val := strings.TrimSpace(parts[1])

	switch key {
	case "Confidence":
		s.Confidence = Confidence(val)
	case "First observed":
		s.FirstObserved = val
	case "Last updated":
		if t, err := time.Parse(timeLayout, val); err == nil {
			s.LastUpdated = t
		}
	case "Observations":
		if n, err := strconv.Atoi(val); err == nil {
			s.Observations = n
		}
	case "Related files":
		s.RelatedFiles = splitBacktickList(val)
	case "Tags":
		s.Tags = splitCommaList(val)
	case "Last referenced":
		if t, err := time.Parse(timeLayout, val); err == nil {
			s.LastReferenced = &t
		}
	case "Last confirmed":
		if t, err := time.Parse(timeLayout, val); err == nil {
			s.LastConfirmed = &t
		}
	case "Flagged for review":
		if t, err := time.Parse(timeLayout, val); err == nil {
			s.FlaggedForReview = &t
		}
	}
}

func splitBacktickList(val string) []string {
	val = strings.Trim(val, "`")
	parts := strings.Split(val, "`, `")
	var out []string
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), "`")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitCommaList(val string) []string {
	parts := strings.Split(val, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
