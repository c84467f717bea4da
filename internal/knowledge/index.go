package knowledge

import (
	"fmt"
	"strings"
	"time"

	"github.com/dean0x/devlog/internal/fsutil"
	"github.com/dean0x/devlog/internal/paths"
)

// RegenerateIndex rewrites <memory>/index.md, an idempotent table of
// contents over every category's sections. Called by the Consolidator when
// ApplyDecision reports knowledge_updated=true, and by the Daemon when a
// decay sweep decays at least one section.
func (s *Store) RegenerateIndex(projectPath string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Knowledge index\n\n_generated %s_\n\n", time.Now().UTC().Format(timeLayout))

	for _, category := range Categories {
		sections, err := s.load(projectPath, category)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "## %s\n\n", capitalize(string(category)))
		if len(sections) == 0 {
			b.WriteString("_no sections yet_\n\n")
			continue
		}
		for _, sec := range sections {
			fmt.Fprintf(&b, "- [%s] %s (%s, %d observations)\n", sec.ID, sec.Title, sec.Confidence, sec.Observations)
		}
		b.WriteString("\n")
	}

	return fsutil.WriteBytesAtomic(paths.IndexFile(projectPath), []byte(b.String()))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
