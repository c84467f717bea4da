package knowledge

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var so tests can inject a failure and exercise
// the linear-scan fallback.
var openDB = sql.Open

// SearchIndex is a derived, rebuildable SQLite+FTS5 cache over a project's
// knowledge sections. It is never the source of truth — the markdown
// category files are — and a failure to build it is not fatal: Store.Search
// falls back to a linear scan. Each Search call rebuilds a fresh in-memory
// index from the caller-supplied sections, so there is nothing to
// invalidate across calls; Invalidate exists for callers that want to
// signal "the on-disk state changed" without caring how the index honors it.
type SearchIndex struct{}

func NewSearchIndex() *SearchIndex {
	return &SearchIndex{}
}

// Invalidate is a no-op: this index never caches across calls.
func (idx *SearchIndex) Invalidate(projectPath string) {}

// Search builds an in-memory FTS5 index over sections and returns matching
// section ids ranked by relevance. ok=false means the index could not be
// built at all (caller should fall back to a linear scan); it does not mean
// "no matches" — a successful search with zero hits returns (nil, true).
func (idx *SearchIndex) Search(projectPath string, sections []Section, query string) (ids []string, ok bool) {
	db, err := openDB("sqlite", ":memory:")
	if err != nil {
		return nil, false
	}
	defer db.Close()

	if err := buildSchema(db); err != nil {
		return nil, false
	}
	if err := populate(db, sections); err != nil {
		return nil, false
	}

	rows, err := db.Query(
		`SELECT id FROM sections_fts WHERE sections_fts MATCH ? ORDER BY rank`,
		ftsQuery(query),
	)
	if err != nil {
		// Not every query string is valid FTS5 syntax (e.g. bare
		// punctuation); treat that as "no matches" rather than a
		// fallback, since the schema itself is sound.
		return nil, true
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func buildSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE VIRTUAL TABLE sections_fts USING fts5(
			id UNINDEXED,
			category UNINDEXED,
			title,
			content,
			tags
		);
	`)
	if err != nil {
		return fmt.Errorf("knowledge: create fts5 table: %w", err)
	}
	return nil
}

func populate(db *sql.DB, sections []Section) error {
	stmt, err := db.Prepare(`INSERT INTO sections_fts (id, category, title, content, tags) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("knowledge: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, sec := range sections {
		if _, err := stmt.Exec(sec.ID, "", sec.Title, sec.Content, strings.Join(sec.Tags, " ")); err != nil {
			return fmt.Errorf("knowledge: index section %s: %w", sec.ID, err)
		}
	}
	return nil
}

// ftsQuery wraps query as an FTS5 phrase/prefix match, tolerant of
// punctuation the raw MATCH syntax would otherwise reject.
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return `""`
	}
	var quoted []string
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		quoted = append(quoted, fmt.Sprintf(`"%s"*`, f))
	}
	return strings.Join(quoted, " ")
}
