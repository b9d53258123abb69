package mcptools

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/inbox"
	"freelanceos/internal/service/report"
	"freelanceos/internal/service/task"
	"freelanceos/pkg/llm"
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

func TestDashboardTool(t *testing.T) {
	stores := repository.NewMemoryStores()
	stores.Invoices.Seed(model.Invoice{InvoiceNumber: "1", ClientID: "c", Status: model.InvoicePaid, Amount: 1200})
	tool := NewDashboardTool(report.NewService(stores.Stores, zap.NewNop()))

	if def := tool.Definition(); def.Name != "business_dashboard" {
		t.Errorf("tool name = %q", def.Name)
	}
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"months": float64(3)}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := resultText(res)
	if !strings.Contains(text, "**Revenue**: 1200.00") {
		t.Errorf("expected revenue in output:\n%s", text)
	}
	if n := strings.Count(text, "\n- 20"); n != 3 {
		t.Errorf("expected 3 trend months, got %d:\n%s", n, text)
	}
}

func TestTaskBoardTool_HidesCompletedByDefault(t *testing.T) {
	stores := repository.NewMemoryStores()
	stores.Tasks.Seed(
		model.Task{Title: "Write copy", Status: model.TaskTodo, Priority: model.PriorityHigh},
		model.Task{Title: "Old thing", Status: model.TaskCompleted, Priority: model.PriorityLow},
	)
	tool := NewTaskBoardTool(task.NewService(stores.Tasks, llm.NewMock(), zap.NewNop()))

	text := resultText(mustHandle(t, tool.Handle, nil))
	if !strings.Contains(text, "Write copy") || strings.Contains(text, "Old thing") {
		t.Errorf("unexpected board:\n%s", text)
	}
	text = resultText(mustHandle(t, tool.Handle, map[string]interface{}{"include_completed": true}))
	if !strings.Contains(text, "Old thing") {
		t.Errorf("expected completed column:\n%s", text)
	}
}

func TestSuggestRepliesTool_RequiresMessageID(t *testing.T) {
	stores := repository.NewMemoryStores()
	svc := inbox.NewService(stores.Messages, stores.Clients, stores.Projects, llm.NewMock(), zap.NewNop())
	tool := NewSuggestRepliesTool(svc)

	res := mustHandle(t, tool.Handle, nil)
	if !res.IsError {
		t.Error("expected tool error without message_id")
	}
	res = mustHandle(t, tool.Handle, map[string]interface{}{"message_id": "missing"})
	if !res.IsError {
		t.Error("expected tool error for unknown message")
	}
}

func TestInboxTool(t *testing.T) {
	stores := repository.NewMemoryStores()
	stores.Messages.Seed(
		model.Message{Subject: "Invoice question", Sender: "Ann", Channel: model.ChannelEmail, Content: "hi", Status: model.MessageUnread, IsFlagged: true},
		model.Message{Subject: "Thanks", Sender: "Bo", Channel: model.ChannelSlack, Content: "ty", Status: model.MessageReplied},
	)
	tool := NewInboxTool(inbox.NewService(stores.Messages, stores.Clients, stores.Projects, llm.NewMock(), zap.NewNop()))

	text := resultText(mustHandle(t, tool.Handle, map[string]interface{}{"flagged": true}))
	if !strings.Contains(text, "Unread 1, flagged 1, replied 1") {
		t.Errorf("unexpected counts:\n%s", text)
	}
	if !strings.Contains(text, "Invoice question") || strings.Contains(text, "Thanks") {
		t.Errorf("unexpected messages:\n%s", text)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	stores := repository.NewMemoryStores()
	mock := llm.NewMock()
	s := NewServer("test", Services{
		Reports: report.NewService(stores.Stores, zap.NewNop()),
		Tasks:   task.NewService(stores.Tasks, mock, zap.NewNop()),
		Inbox:   inbox.NewService(stores.Messages, stores.Clients, stores.Projects, mock, zap.NewNop()),
	})
	if s == nil {
		t.Fatal("expected server")
	}
}

func mustHandle(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	res, err := h(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	return res
}
