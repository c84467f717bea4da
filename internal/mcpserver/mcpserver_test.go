package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/knowledge"
)

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func withTempProject(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DEVLOG_HOME", home)
	return t.TempDir()
}

func TestSearchToolFindsSectionByCategory(t *testing.T) {
	project := withTempProject(t)
	store := knowledge.NewStore()
	if _, err := store.AddSection(project, knowledge.Conventions, knowledge.NewSection{
		Title: "Use Result types", Content: "Prefer explicit error returns over panics.",
	}); err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	tool := NewSearchTool(store)
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"project": project, "query": "error returns", "category": "conventions",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(resultText(res), "Use Result types") {
		t.Fatalf("result = %q, want it to mention the section title", resultText(res))
	}
}

func TestSearchToolMissingProjectErrors(t *testing.T) {
	tool := NewSearchTool(knowledge.NewStore())
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"query": "x"}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result when 'project' is missing")
	}
}

func TestSearchToolUnknownCategoryErrors(t *testing.T) {
	project := withTempProject(t)
	tool := NewSearchTool(knowledge.NewStore())
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"project": project, "query": "x", "category": "not-a-category",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result for an unknown category")
	}
}

func TestGetSectionToolReturnsFullFields(t *testing.T) {
	project := withTempProject(t)
	store := knowledge.NewStore()
	sec, err := store.AddSection(project, knowledge.Gotchas, knowledge.NewSection{
		Title: "Flaky retry logic", Content: "The retry loop does not back off.",
		Tags: []string{"networking"},
	})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}

	tool := NewGetSectionTool(store)
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"project": project, "category": "gotchas", "id": sec.ID,
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := resultText(res)
	if !strings.Contains(text, "Flaky retry logic") || !strings.Contains(text, "tentative") {
		t.Fatalf("result = %q, missing title or confidence", text)
	}
}

func TestGetSectionToolNotFound(t *testing.T) {
	project := withTempProject(t)
	store := knowledge.NewStore()
	tool := NewGetSectionTool(store)
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"project": project, "category": "gotchas", "id": "gotc-deadbeef",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result for a missing section id")
	}
}

func TestCatchUpToolReturnsNoSummaryMessage(t *testing.T) {
	project := withTempProject(t)
	tool := NewCatchUpTool(catchup.NewStore())
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"project": project}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(resultText(res), "No catch-up summary") {
		t.Fatalf("result = %q", resultText(res))
	}
}

func TestCatchUpToolReturnsStaleSummaryWithError(t *testing.T) {
	project := withTempProject(t)
	store := catchup.NewStore()
	if err := store.WritePrecomputed(project, catchup.PrecomputedSummary{
		SourceHash: "abc", Summary: "Worked on the ingest pipeline.",
		GeneratedAt: time.Now().UTC(), Status: catchup.StatusStale, LastError: "ollama: connection refused",
	}); err != nil {
		t.Fatalf("WritePrecomputed: %v", err)
	}

	tool := NewCatchUpTool(store)
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"project": project}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := resultText(res)
	if !strings.Contains(text, "ingest pipeline") || !strings.Contains(text, "connection refused") {
		t.Fatalf("result = %q, missing summary text or error note", text)
	}
}
