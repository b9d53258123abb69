package report

import (
	"math"
	"sort"
	"time"

	"freelanceos/internal/model"
)

// Dataset is everything the dashboard aggregates over.
type Dataset struct {
	Projects    []model.Project
	Tasks       []model.Task
	TimeEntries []model.TimeEntry
	Invoices    []model.Invoice
	Expenses    []model.Expense
	Goals       []model.BusinessGoal
}

type KPIs struct {
	TotalRevenue       float64 `json:"total_revenue"`
	Outstanding        float64 `json:"outstanding"`
	ActiveProjects     int     `json:"active_projects"`
	TaskCompletionRate float64 `json:"task_completion_rate"`
	Utilization        float64 `json:"utilization"`
	TotalExpenses      float64 `json:"total_expenses"`
	Profit             float64 `json:"profit"`
	AvgProjectBudget   float64 `json:"avg_project_budget"`
	BillableHours      float64 `json:"billable_hours"`
	TotalHours         float64 `json:"total_hours"`
}

// Point is one chart datum.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type GoalProgress struct {
	GoalID   string  `json:"goal_id"`
	Title    string  `json:"title"`
	Current  float64 `json:"current"`
	Target   float64 `json:"target"`
	Unit     string  `json:"unit,omitempty"`
	Progress float64 `json:"progress"`
}

func ComputeKPIs(d *Dataset) KPIs {
	var k KPIs
	for _, inv := range d.Invoices {
		switch inv.Status {
		case model.InvoicePaid:
			k.TotalRevenue += inv.Amount
		case model.InvoiceSent, model.InvoiceOverdue:
			k.Outstanding += inv.Amount
		}
	}

	var budget float64
	for _, p := range d.Projects {
		if p.Status == model.ProjectActive {
			k.ActiveProjects++
		}
		budget += p.Budget
	}
	k.AvgProjectBudget = round2(ratio(budget, float64(len(d.Projects))))

	completed := 0
	for _, t := range d.Tasks {
		if t.Status == model.TaskCompleted {
			completed++
		}
	}
	k.TaskCompletionRate = percent(float64(completed), float64(len(d.Tasks)))

	for _, e := range d.TimeEntries {
		k.TotalHours += e.Hours
		if e.Billable {
			k.BillableHours += e.Hours
		}
	}
	k.Utilization = percent(k.BillableHours, k.TotalHours)

	for _, e := range d.Expenses {
		k.TotalExpenses += e.Amount
	}
	k.Profit = round2(k.TotalRevenue - k.TotalExpenses)
	k.TotalRevenue = round2(k.TotalRevenue)
	k.Outstanding = round2(k.Outstanding)
	k.TotalExpenses = round2(k.TotalExpenses)
	return k
}

// MonthBuckets returns the YYYY-MM labels of the n months ending with now's month.
func MonthBuckets(now time.Time, n int) []string {
	if n <= 0 {
		return nil
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(n - 1), 0)
	out := make([]string, n)
	for i := range out {
		out[i] = first.AddDate(0, i, 0).Format("2006-01")
	}
	return out
}

// MonthsBetween returns the YYYY-MM labels from start's month through end's month.
func MonthsBetween(start, end time.Time) []string {
	if end.Before(start) {
		return nil
	}
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	var out []string
	for !cur.After(last) {
		out = append(out, cur.Format("2006-01"))
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// RevenueTrend sums paid invoices per month over the given buckets, zero-filled.
func RevenueTrend(invoices []model.Invoice, months []string) []Point {
	sums := make(map[string]float64, len(months))
	for _, inv := range invoices {
		if inv.Status != model.InvoicePaid {
			continue
		}
		if t, ok := invoiceDate(inv); ok {
			sums[t.Format("2006-01")] += inv.Amount
		}
	}
	out := make([]Point, len(months))
	for i, m := range months {
		out[i] = Point{Label: m, Value: round2(sums[m])}
	}
	return out
}

func invoiceDate(inv model.Invoice) (time.Time, bool) {
	for _, s := range []string{inv.PaidDate, inv.IssueDate} {
		if t, ok := model.ParseDate(s); ok {
			return t, true
		}
	}
	if !inv.CreatedDate.IsZero() {
		return inv.CreatedDate, true
	}
	return time.Time{}, false
}

var projectStatuses = []string{
	model.ProjectPlanning, model.ProjectActive, model.ProjectOnHold, model.ProjectCompleted, model.ProjectCancelled,
}

func ProjectStatusDistribution(projects []model.Project) []Point {
	counts := make(map[string]float64)
	for _, p := range projects {
		counts[p.Status]++
	}
	return ordered(projectStatuses, counts)
}

func TaskStatusDistribution(tasks []model.Task) []Point {
	counts := make(map[string]float64)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return ordered(model.TaskStatuses, counts)
}

func ordered(labels []string, counts map[string]float64) []Point {
	out := make([]Point, len(labels))
	for i, l := range labels {
		out[i] = Point{Label: l, Value: counts[l]}
	}
	return out
}

// HoursPerProject sums logged hours by project title, largest first.
func HoursPerProject(entries []model.TimeEntry, projects []model.Project) []Point {
	titles := make(map[string]string, len(projects))
	for _, p := range projects {
		titles[p.ID] = p.Title
	}
	sums := make(map[string]float64)
	for _, e := range entries {
		label := titles[e.ProjectID]
		if label == "" {
			label = "Unassigned"
		}
		sums[label] += e.Hours
	}
	return sortedDesc(sums)
}

// ExpensesByCategory sums expenses per category, largest first.
func ExpensesByCategory(expenses []model.Expense) []Point {
	sums := make(map[string]float64)
	for _, e := range expenses {
		label := e.Category
		if label == "" {
			label = "other"
		}
		sums[label] += e.Amount
	}
	return sortedDesc(sums)
}

func sortedDesc(sums map[string]float64) []Point {
	out := make([]Point, 0, len(sums))
	for label, v := range sums {
		out = append(out, Point{Label: label, Value: round2(v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// GoalsProgress reports current/target as a percentage clipped to [0, 100].
func GoalsProgress(goals []model.BusinessGoal) []GoalProgress {
	out := make([]GoalProgress, 0, len(goals))
	for _, g := range goals {
		p := percent(g.CurrentValue, g.TargetValue)
		p = math.Max(0, math.Min(100, p))
		out = append(out, GoalProgress{
			GoalID: g.ID, Title: g.Title, Current: g.CurrentValue, Target: g.TargetValue, Unit: g.Unit, Progress: p,
		})
	}
	return out
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func percent(num, den float64) float64 {
	return round2(ratio(num, den) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
