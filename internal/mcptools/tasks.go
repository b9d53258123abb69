package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"freelanceos/internal/service/task"
)

// TaskBoardTool handles the task_board MCP tool.
type TaskBoardTool struct {
	tasks *task.Service
}

func NewTaskBoardTool(tasks *task.Service) *TaskBoardTool {
	return &TaskBoardTool{tasks: tasks}
}

func (t *TaskBoardTool) Definition() mcp.Tool {
	return mcp.NewTool("task_board",
		mcp.WithDescription("List tasks grouped by board column (todo, in_progress, review, completed)."),
		mcp.WithString("project_id",
			mcp.Description("Only tasks of this project"),
		),
		mcp.WithString("priority",
			mcp.Description("Filter by priority: low, medium, high, urgent"),
		),
		mcp.WithString("search",
			mcp.Description("Case-insensitive text match on title and description"),
		),
		mcp.WithBoolean("include_completed",
			mcp.Description("Include the completed column (default: false)"),
		),
	)
}

func (t *TaskBoardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := task.Filter{
		ProjectID: req.GetString("project_id", ""),
		Priority:  req.GetString("priority", ""),
		Search:    req.GetString("search", ""),
	}
	tasks, err := t.tasks.Load(ctx, f, "priority", true)
	if err != nil {
		return toolError("task board", err), nil
	}
	if len(tasks) == 0 {
		return mcp.NewToolResultText("No tasks match the filter."), nil
	}

	withCompleted := boolArg(req, "include_completed", false)
	var b strings.Builder
	for _, col := range task.Board(tasks) {
		if col.Status == "completed" && !withCompleted {
			continue
		}
		fmt.Fprintf(&b, "## %s (%d)\n\n", col.Status, len(col.Tasks))
		for _, tk := range col.Tasks {
			due := ""
			if tk.DueDate != "" {
				due = " due " + tk.DueDate
			}
			fmt.Fprintf(&b, "- [%s] %s%s (id: %s)\n", tk.Priority, tk.Title, due, tk.ID)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// PrioritizeTool handles the ai_prioritize_tasks MCP tool.
type PrioritizeTool struct {
	tasks *task.Service
}

func NewPrioritizeTool(tasks *task.Service) *PrioritizeTool {
	return &PrioritizeTool{tasks: tasks}
}

func (t *PrioritizeTool) Definition() mcp.Tool {
	return mcp.NewTool("ai_prioritize_tasks",
		mcp.WithDescription("Ask the model to re-rank open tasks and write back priority and Eisenhower quadrant."),
		mcp.WithString("project_id",
			mcp.Description("Only re-rank tasks of this project"),
		),
	)
}

func (t *PrioritizeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := t.tasks.AIPrioritize(ctx, task.Filter{ProjectID: req.GetString("project_id", "")})
	if err != nil {
		return toolError("prioritize", err), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Updated %d tasks, skipped %d.\n", res.Updated, res.Skipped)
	for _, f := range res.Failed {
		fmt.Fprintf(&b, "- %s: %s\n", f.TaskID, f.Error)
	}
	return mcp.NewToolResultText(b.String()), nil
}
