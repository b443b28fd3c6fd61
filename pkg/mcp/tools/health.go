package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-logscope/pkg/engine"
)

type healthResult struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Topology string `json:"topology,omitempty"`
	Groups   int    `json:"groups"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version and loaded topology. conn may be nil.
func RegisterHealthTool(s *server.MCPServer, version string, conn *engine.Connection) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		h := healthResult{Status: "ok", Version: version}
		if conn != nil {
			h.Topology = conn.Origin()
			h.Groups = len(conn.Groups())
		}
		result, err := json.Marshal(h)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
