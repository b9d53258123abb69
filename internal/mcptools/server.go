package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"freelanceos/internal/service/inbox"
	"freelanceos/internal/service/report"
	"freelanceos/internal/service/task"
)

const serverInstructions = "Tools for a freelancer's business workspace: read the KPI dashboard, " +
	"review the task board, triage the client inbox and draft replies. " +
	"Message and task ids returned by one tool can be passed to the others."

type Services struct {
	Reports *report.Service
	Tasks   *task.Service
	Inbox   *inbox.Service
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(version string, svc Services) *server.MCPServer {
	s := server.NewMCPServer(
		"freelanceos",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	dashboard := NewDashboardTool(svc.Reports)
	s.AddTool(dashboard.Definition(), dashboard.Handle)

	board := NewTaskBoardTool(svc.Tasks)
	s.AddTool(board.Definition(), board.Handle)

	prioritize := NewPrioritizeTool(svc.Tasks)
	s.AddTool(prioritize.Definition(), prioritize.Handle)

	inboxTool := NewInboxTool(svc.Inbox)
	s.AddTool(inboxTool.Definition(), inboxTool.Handle)

	replies := NewSuggestRepliesTool(svc.Inbox)
	s.AddTool(replies.Definition(), replies.Handle)

	return s
}
