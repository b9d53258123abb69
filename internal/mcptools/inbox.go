package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"freelanceos/internal/service/inbox"
)

// InboxTool handles the inbox MCP tool.
type InboxTool struct {
	inbox *inbox.Service
}

func NewInboxTool(svc *inbox.Service) *InboxTool {
	return &InboxTool{inbox: svc}
}

func (t *InboxTool) Definition() mcp.Tool {
	return mcp.NewTool("inbox",
		mcp.WithDescription("List client messages across channels with unread, flagged and replied counts."),
		mcp.WithString("search",
			mcp.Description("Text match on subject, content and sender"),
		),
		mcp.WithString("status",
			mcp.Description("Filter by status: unread, read, replied, archived"),
		),
		mcp.WithBoolean("flagged",
			mcp.Description("Only flagged messages"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max messages (default: 20)"),
		),
	)
}

func (t *InboxTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := inbox.Filter{
		Search:      req.GetString("search", ""),
		Status:      req.GetString("status", ""),
		FlaggedOnly: boolArg(req, "flagged", false),
	}
	messages, counts, err := t.inbox.Load(ctx, f)
	if err != nil {
		return toolError("inbox", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Unread %d, flagged %d, replied %d, archived %d\n\n",
		counts.Unread, counts.Flagged, counts.Replied, counts.Archived)
	if len(messages) == 0 {
		b.WriteString("No messages match the filter.\n")
		return mcp.NewToolResultText(b.String()), nil
	}
	limit := intArg(req, "limit", 20)
	for i, m := range messages {
		if i >= limit {
			fmt.Fprintf(&b, "... and %d more\n", len(messages)-limit)
			break
		}
		flag := ""
		if m.IsFlagged {
			flag = " [flagged]"
		}
		fmt.Fprintf(&b, "- **%s** from %s via %s (%s)%s id: %s\n", m.Subject, m.Sender, m.Channel, m.Status, flag, m.ID)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// SuggestRepliesTool handles the suggest_replies MCP tool.
type SuggestRepliesTool struct {
	inbox *inbox.Service
}

func NewSuggestRepliesTool(svc *inbox.Service) *SuggestRepliesTool {
	return &SuggestRepliesTool{inbox: svc}
}

func (t *SuggestRepliesTool) Definition() mcp.Tool {
	return mcp.NewTool("suggest_replies",
		mcp.WithDescription("Draft replies to a client message, either one per tone or a single freeform reply."),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("Message to reply to"),
		),
		mcp.WithString("mode",
			mcp.Description("suggestions (default) or freeform"),
		),
		mcp.WithString("instructions",
			mcp.Description("Extra guidance for a freeform reply"),
		),
	)
}

func (t *SuggestRepliesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("message_id", "")
	if id == "" {
		return mcp.NewToolResultError("'message_id' is required"), nil
	}
	res, err := t.inbox.SuggestReplies(ctx, id, inbox.ReplyOptions{
		Mode:           req.GetString("mode", inbox.ModeSuggestions),
		Instructions:   req.GetString("instructions", ""),
		IncludeClient:  true,
		IncludeProject: true,
	})
	if err != nil {
		return toolError("suggest replies", err), nil
	}
	if res.Mode == inbox.ModeFreeform {
		return mcp.NewToolResultText(res.Text), nil
	}
	var b strings.Builder
	for _, r := range res.Replies {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", r.Tone, r.Content)
	}
	return mcp.NewToolResultText(b.String()), nil
}
