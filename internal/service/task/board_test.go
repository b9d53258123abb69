package task

import (
	"testing"
	"time"

	"freelanceos/internal/model"
)

func sampleTasks() []model.Task {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return []model.Task{
		{Meta: model.Meta{ID: "a", CreatedDate: base}, Title: "Write copy", ProjectID: "p1", Status: model.TaskTodo, Priority: model.PriorityLow, Assignee: "me", DueDate: "2026-01-10"},
		{Meta: model.Meta{ID: "b", CreatedDate: base.Add(time.Hour)}, Title: "build API", ProjectID: "p1", Status: model.TaskInProgress, Priority: model.PriorityUrgent, Description: "REST endpoints"},
		{Meta: model.Meta{ID: "c", CreatedDate: base.Add(2 * time.Hour)}, Title: "Review", ProjectID: "p2", Status: model.TaskReview, Priority: model.PriorityHigh, DueDate: "2026-01-05"},
		{Meta: model.Meta{ID: "d", CreatedDate: base.Add(3 * time.Hour)}, Title: "Deploy", ProjectID: "p2", Status: model.TaskCompleted, Priority: model.PriorityMedium, Assignee: "me"},
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterApply(t *testing.T) {
	cases := []struct {
		name string
		f    Filter
		want []string
	}{
		{"empty", Filter{}, []string{"a", "b", "c", "d"}},
		{"project", Filter{ProjectID: "p2"}, []string{"c", "d"}},
		{"assignee and status", Filter{Assignee: "me", Status: model.TaskTodo}, []string{"a"}},
		{"priority", Filter{Priority: model.PriorityUrgent}, []string{"b"}},
		{"search description case-insensitive", Filter{Search: "rest"}, []string{"b"}},
		{"no match", Filter{ProjectID: "p3"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ids(tc.f.Apply(sampleTasks())); !equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSort(t *testing.T) {
	cases := []struct {
		field string
		desc  bool
		want  []string
	}{
		{"priority", true, []string{"b", "c", "d", "a"}},
		{"priority", false, []string{"a", "d", "c", "b"}},
		{"title", false, []string{"b", "d", "c", "a"}},
		{"status", false, []string{"a", "b", "c", "d"}},
		{"due_date", false, []string{"c", "a", "b", "d"}},
		{"due_date", true, []string{"a", "c", "b", "d"}},
		{"created_date", true, []string{"d", "c", "b", "a"}},
		{"", false, []string{"a", "b", "c", "d"}},
	}
	for _, tc := range cases {
		tasks := sampleTasks()
		Sort(tasks, tc.field, tc.desc)
		if got := ids(tasks); !equal(got, tc.want) {
			t.Errorf("Sort(%q, desc=%v) = %v, want %v", tc.field, tc.desc, got, tc.want)
		}
	}
}

func TestBoardColumnsInOrder(t *testing.T) {
	tasks := append(sampleTasks(), model.Task{Meta: model.Meta{ID: "e"}, Title: "Odd", Status: "blocked"})
	cols := Board(tasks)
	if len(cols) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(cols))
	}
	wantStatus := []string{model.TaskTodo, model.TaskInProgress, model.TaskReview, model.TaskCompleted}
	wantIDs := [][]string{{"a", "e"}, {"b"}, {"c"}, {"d"}}
	for i, col := range cols {
		if col.Status != wantStatus[i] {
			t.Errorf("column %d status = %q", i, col.Status)
		}
		if got := ids(col.Tasks); !equal(got, wantIDs[i]) {
			t.Errorf("column %s = %v, want %v", col.Status, got, wantIDs[i])
		}
	}
}

func TestBoardEmptyColumnsAreNotNil(t *testing.T) {
	for _, col := range Board(nil) {
		if col.Tasks == nil {
			t.Errorf("column %s should be an empty slice", col.Status)
		}
	}
}

func TestTimeline(t *testing.T) {
	created := time.Date(2026, 1, 3, 15, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{Meta: model.Meta{ID: "range"}, StartDate: "2026-01-02", DueDate: "2026-01-06"},
		{Meta: model.Meta{ID: "due-only", CreatedDate: created}, DueDate: "2026-01-05"},
		{Meta: model.Meta{ID: "start-only"}, StartDate: "2026-01-04"},
		{Meta: model.Meta{ID: "clipped"}, StartDate: "2025-12-20", DueDate: "2026-01-20"},
		{Meta: model.Meta{ID: "outside"}, StartDate: "2026-02-01", DueDate: "2026-02-03"},
		{Meta: model.Meta{ID: "undated", CreatedDate: created}},
		{Meta: model.Meta{ID: "logged-late", CreatedDate: time.Date(2026, 1, 9, 8, 0, 0, 0, time.UTC)}, DueDate: "2026-01-07"},
	}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

	bars := Timeline(tasks, from, to)
	want := map[string][2]int{
		"range":       {1, 4},
		"due-only":    {2, 2},
		"start-only":  {3, 1},
		"clipped":     {0, 10},
		"logged-late": {6, 1},
	}
	if len(bars) != len(want) {
		t.Fatalf("expected %d bars, got %+v", len(want), bars)
	}
	for _, b := range bars {
		w, ok := want[b.TaskID]
		if !ok {
			t.Errorf("unexpected bar %s", b.TaskID)
			continue
		}
		if b.OffsetDays != w[0] || b.DurationDays != w[1] {
			t.Errorf("bar %s = offset %d duration %d, want %v", b.TaskID, b.OffsetDays, b.DurationDays, w)
		}
	}
}
