// Package mcpserver exposes a read-only retrieval surface over a project's
// consolidated knowledge and precomputed catch-up summary, for a coding
// assistant (or a human via an MCP Inspector) to query what the daemon has
// already learned. None of these tools mutate state.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dean0x/devlog/internal/knowledge"
)

// SearchTool handles the knowledge_search MCP tool.
type SearchTool struct {
	store *knowledge.Store
}

func NewSearchTool(store *knowledge.Store) *SearchTool {
	return &SearchTool{store: store}
}

func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("knowledge_search",
		mcp.WithDescription(
			"Search a project's consolidated knowledge (conventions, architecture, decisions, "+
				"gotchas) for sections matching a query.",
		),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Absolute path to the project"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query — matched against section titles, content, and tags"),
		),
		mcp.WithString("category",
			mcp.Description("Restrict the search to one category: conventions, architecture, decisions, gotchas"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if project == "" {
		return mcp.NewToolResultError("'project' is required"), nil
	}
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	category := knowledge.Category(req.GetString("category", ""))
	limit := intArg(req, "limit", 10)

	var (
		results []knowledge.Section
		err     error
	)
	if category != "" {
		if !category.IsValid() {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", category)), nil
		}
		sections, loadErr := t.store.LoadCategory(project, category)
		if loadErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load %s: %v", category, loadErr)), nil
		}
		results = filterSections(sections, query)
	} else {
		results, err = t.store.Search(project, query)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No matching knowledge sections found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d section(s):\n\n", len(results))
	for _, sec := range results {
		fmt.Fprintf(&b, "## [%s] %s\n%s\nConfidence: %s | Observations: %d\n\n",
			sec.ID, sec.Title, truncate(sec.Content, 280), sec.Confidence, sec.Observations)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func filterSections(sections []knowledge.Section, query string) []knowledge.Section {
	q := strings.ToLower(query)
	var out []knowledge.Section
	for _, sec := range sections {
		if strings.Contains(strings.ToLower(sec.Title), q) ||
			strings.Contains(strings.ToLower(sec.Content), q) ||
			containsTag(sec.Tags, q) {
			out = append(out, sec)
		}
	}
	return out
}

func containsTag(tags []string, q string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

// GetSectionTool handles the knowledge_get_section MCP tool.
type GetSectionTool struct {
	store *knowledge.Store
}

func NewGetSectionTool(store *knowledge.Store) *GetSectionTool {
	return &GetSectionTool{store: store}
}

func (t *GetSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("knowledge_get_section",
		mcp.WithDescription("Fetch one knowledge section's full fields by id."),
		mcp.WithString("project", mcp.Required(), mcp.Description("Absolute path to the project")),
		mcp.WithString("category", mcp.Required(), mcp.Description("conventions, architecture, decisions, or gotchas")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Section id, e.g. deci-a1b2c3d4")),
	)
}

func (t *GetSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	category := knowledge.Category(req.GetString("category", ""))
	id := req.GetString("id", "")
	if project == "" || id == "" {
		return mcp.NewToolResultError("'project' and 'id' are required"), nil
	}
	if !category.IsValid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", category)), nil
	}

	sections, err := t.store.LoadCategory(project, category)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load %s: %v", category, err)), nil
	}
	for _, sec := range sections {
		if sec.ID == id {
			return mcp.NewToolResultText(renderSection(sec)), nil
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("section %q not found in %s", id, category)), nil
}

func renderSection(sec knowledge.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## [%s] %s\n\n%s\n\n", sec.ID, sec.Title, sec.Content)
	if len(sec.Examples) > 0 {
		b.WriteString("### Examples\n")
		for _, ex := range sec.Examples {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "**Confidence**: %s\n", sec.Confidence)
	fmt.Fprintf(&b, "**First observed**: %s\n", sec.FirstObserved)
	fmt.Fprintf(&b, "**Last updated**: %s\n", sec.LastUpdated)
	fmt.Fprintf(&b, "**Observations**: %d\n", sec.Observations)
	if len(sec.RelatedFiles) > 0 {
		fmt.Fprintf(&b, "**Related files**: `%s`\n", strings.Join(sec.RelatedFiles, "`, `"))
	}
	if len(sec.Tags) > 0 {
		fmt.Fprintf(&b, "**Tags**: %s\n", strings.Join(sec.Tags, ", "))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
