package task

import (
	"sort"
	"strings"
	"time"

	"freelanceos/internal/model"
)

// Filter holds the board/list filters; empty fields match everything.
type Filter struct {
	ProjectID string `form:"project_id" json:"project_id,omitempty"`
	Priority  string `form:"priority" json:"priority,omitempty"`
	Status    string `form:"status" json:"status,omitempty"`
	Assignee  string `form:"assignee" json:"assignee,omitempty"`
	Search    string `form:"search" json:"search,omitempty"`
}

func (f Filter) match(t *model.Task) bool {
	if f.ProjectID != "" && t.ProjectID != f.ProjectID {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Assignee != "" && t.Assignee != f.Assignee {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) && !strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// Apply returns the tasks matching f, keeping their order.
func (f Filter) Apply(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for i := range tasks {
		if f.match(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}

var statusRank = map[string]int{
	model.TaskTodo:       0,
	model.TaskInProgress: 1,
	model.TaskReview:     2,
	model.TaskCompleted:  3,
}

// Sort orders tasks in place by title, due_date, priority, status or created_date.
// Empty due dates sort last in either direction; unknown fields fall back to created_date.
func Sort(tasks []model.Task, field string, desc bool) {
	less := func(a, b *model.Task) int {
		switch field {
		case "title":
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		case "priority":
			return PriorityCompare(a.Priority, b.Priority)
		case "status":
			return statusRank[a.Status] - statusRank[b.Status]
		case "due_date":
			return strings.Compare(a.DueDate, b.DueDate)
		default:
			return a.CreatedDate.Compare(b.CreatedDate)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := &tasks[i], &tasks[j]
		if field == "due_date" && (a.DueDate == "") != (b.DueDate == "") {
			return b.DueDate == ""
		}
		c := less(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// PriorityCompare ranks low < medium < high < urgent.
func PriorityCompare(a, b string) int {
	return model.PriorityRank(a) - model.PriorityRank(b)
}

// Column is one kanban column.
type Column struct {
	Status string       `json:"status"`
	Tasks  []model.Task `json:"tasks"`
}

// Board groups tasks into the four status columns in board order.
// Tasks with an unknown status land in the todo column.
func Board(tasks []model.Task) []Column {
	cols := make([]Column, len(model.TaskStatuses))
	index := make(map[string]int, len(cols))
	for i, s := range model.TaskStatuses {
		cols[i] = Column{Status: s, Tasks: []model.Task{}}
		index[s] = i
	}
	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			i = 0
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}
	return cols
}

// Bar is one Gantt row relative to the window start.
type Bar struct {
	TaskID       string `json:"task_id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	OffsetDays   int    `json:"offset_days"`
	DurationDays int    `json:"duration_days"`
}

const day = 24 * time.Hour

// Timeline lays tasks out on [from, to). A task needs a start_date or a due_date;
// a missing start falls back to the earlier of created_date and due_date, and a
// missing end to start plus one day.
// Bars are clipped to the window and tasks entirely outside it are dropped.
func Timeline(tasks []model.Task, from, to time.Time) []Bar {
	from, to = truncateDay(from), truncateDay(to)
	bars := make([]Bar, 0, len(tasks))
	for _, t := range tasks {
		if t.StartDate == "" && t.DueDate == "" {
			continue
		}
		due, hasDue := model.ParseDate(t.DueDate)
		start, ok := model.ParseDate(t.StartDate)
		if !ok {
			if t.CreatedDate.IsZero() {
				continue
			}
			start = t.CreatedDate
			// Tasks logged after their due date start on the due date.
			if hasDue && due.Before(start) {
				start = due
			}
		}
		start = truncateDay(start)
		end := due
		if !hasDue || !truncateDay(end).After(start) {
			end = start.Add(day)
		}
		end = truncateDay(end)

		if !end.After(from) || !start.Before(to) {
			continue
		}
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		bars = append(bars, Bar{
			TaskID:       t.ID,
			Title:        t.Title,
			Status:       t.Status,
			Priority:     t.Priority,
			OffsetDays:   int(start.Sub(from) / day),
			DurationDays: int(end.Sub(start) / day),
		})
	}
	return bars
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
