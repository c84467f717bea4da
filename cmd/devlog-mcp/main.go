// devlog-mcp: read-only MCP retrieval server over a devlog project's
// consolidated knowledge and catch-up summary.
//
// Usage:
//
//	devlog-mcp serve    # Start MCP server (stdio transport)
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dean0x/devlog/internal/catchup"
	"github.com/dean0x/devlog/internal/knowledge"
	"github.com/dean0x/devlog/internal/mcpserver"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("devlog-mcp v%s\n", mcpserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s := mcpserver.New(knowledge.NewStore(), catchup.NewStore())
	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `devlog-mcp v%s — read-only knowledge retrieval server

Usage:
  devlog-mcp serve    Start the MCP server (stdio transport)

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "devlog": {
        "command": "devlog-mcp",
        "args": ["serve"]
      }
    }
  }
`, mcpserver.Version)
}
