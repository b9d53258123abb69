// Package mcptools exposes the business services as MCP tools so an external
// assistant can read the dashboard, the task board and the inbox.
//
// Every tool follows one shape: a struct holding its service, Definition()
// returning the mcp.Tool schema and Handle() rendering a markdown result.
// Service failures become tool errors, not protocol errors.
package mcptools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// intArg reads a numeric argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

func toolError(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", action, err))
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
