package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dean0x/devlog/internal/catchup"
)

// CatchUpTool handles the catchup_get MCP tool.
type CatchUpTool struct {
	store *catchup.Store
}

func NewCatchUpTool(store *catchup.Store) *CatchUpTool {
	return &CatchUpTool{store: store}
}

func (t *CatchUpTool) Definition() mcp.Tool {
	return mcp.NewTool("catchup_get",
		mcp.WithDescription(
			"Fetch the current precomputed catch-up summary for a project — a prose recap of "+
				"recent work, with a status flag if it's stale.",
		),
		mcp.WithString("project", mcp.Required(), mcp.Description("Absolute path to the project")),
	)
}

func (t *CatchUpTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if project == "" {
		return mcp.NewToolResultError("'project' is required"), nil
	}

	summary, err := t.store.ReadPrecomputed(project)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read catch-up summary: %v", err)), nil
	}
	if summary == nil {
		return mcp.NewToolResultText("No catch-up summary has been generated yet for this project."), nil
	}

	text := fmt.Sprintf("%s\n\n_status: %s, generated %s_", summary.Summary, summary.Status,
		summary.GeneratedAt.Format("2006-01-02 15:04 MST"))
	if summary.Status == catchup.StatusStale && summary.LastError != "" {
		text += fmt.Sprintf("\n_last error: %s_", summary.LastError)
	}
	return mcp.NewToolResultText(text), nil
}
