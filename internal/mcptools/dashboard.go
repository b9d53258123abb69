package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"freelanceos/internal/service/report"
)

// DashboardTool handles the business_dashboard MCP tool.
type DashboardTool struct {
	reports *report.Service
}

func NewDashboardTool(reports *report.Service) *DashboardTool {
	return &DashboardTool{reports: reports}
}

func (t *DashboardTool) Definition() mcp.Tool {
	return mcp.NewTool("business_dashboard",
		mcp.WithDescription("Show KPI cards, the monthly revenue trend and goal progress for the freelance business."),
		mcp.WithNumber("months",
			mcp.Description("Months of revenue trend to include (default: 6)"),
		),
	)
}

func (t *DashboardTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := t.reports.Dashboard(ctx, intArg(req, "months", 0))
	if err != nil {
		return toolError("dashboard", err), nil
	}

	k := d.KPIs
	var b strings.Builder
	b.WriteString("## Business Dashboard\n\n")
	fmt.Fprintf(&b, "- **Revenue**: %s\n", money(k.TotalRevenue))
	fmt.Fprintf(&b, "- **Outstanding**: %s\n", money(k.Outstanding))
	fmt.Fprintf(&b, "- **Expenses**: %s\n", money(k.TotalExpenses))
	fmt.Fprintf(&b, "- **Profit**: %s\n", money(k.Profit))
	fmt.Fprintf(&b, "- **Active projects**: %d\n", k.ActiveProjects)
	fmt.Fprintf(&b, "- **Task completion**: %.1f%%\n", k.TaskCompletionRate)
	fmt.Fprintf(&b, "- **Utilization**: %.1f%%\n", k.Utilization)

	b.WriteString("\n### Revenue trend\n\n")
	for _, p := range d.RevenueTrend {
		fmt.Fprintf(&b, "- %s: %s\n", p.Label, money(p.Value))
	}

	if len(d.Goals) > 0 {
		b.WriteString("\n### Goals\n\n")
		for _, g := range d.Goals {
			fmt.Fprintf(&b, "- %s: %.0f%% (%g / %g %s)\n", g.Title, g.Progress, g.Current, g.Target, g.Unit)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
