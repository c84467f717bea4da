package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/knowledge"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the read-only MCP retrieval server: three
// tools over a project's knowledge store and catch-up summary. This is
// the composition root — no business logic lives here, only wiring.
func New(k *knowledge.Store, c *catchup.Store) *server.MCPServer {
	s := server.NewMCPServer(
		"devlog",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	searchTool := NewSearchTool(k)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	getSectionTool := NewGetSectionTool(k)
	s.AddTool(getSectionTool.Definition(), getSectionTool.Handle)

	catchUpTool := NewCatchUpTool(c)
	s.AddTool(catchUpTool.Definition(), catchUpTool.Handle)

	return s
}

func serverInstructions() string {
	return `You have access to devlog, a read-only retrieval server over a per-project
knowledge base that a background daemon consolidates from your own coding
sessions.

- knowledge_search(project, query, category?, limit?): search conventions,
  architecture, decisions, and gotchas the daemon has already distilled.
- knowledge_get_section(project, category, id): fetch one section's full
  content, confidence tier, and metadata.
- catchup_get(project): fetch the precomputed prose summary of recent work,
  useful at the start of a session to recover context quickly.

These tools never write anything — they only surface what the daemon has
already consolidated. Call knowledge_search before assuming a convention or
architectural decision doesn't exist; it may already be recorded.`
}
