package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"freelanceos/internal/model"
)

func TestParseSort(t *testing.T) {
	cases := []struct {
		in      string
		want    SortSpec
		wantErr bool
	}{
		{"", SortSpec{Field: "created_date", Desc: true}, false},
		{"due_date", SortSpec{Field: "due_date"}, false},
		{"-budget", SortSpec{Field: "budget", Desc: true}, false},
		{"data'; drop table", SortSpec{}, true},
		{"-Title", SortSpec{}, true},
	}
	for _, tc := range cases {
		got, err := ParseSort(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseSort(%q) err = %v", tc.in, err)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseSort(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
		if err != nil && !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("expected ErrInvalidQuery, got %v", err)
		}
	}
}

func TestClampLimit(t *testing.T) {
	if ClampLimit(0) != MaxLimit || ClampLimit(-1) != MaxLimit || ClampLimit(5000) != MaxLimit {
		t.Error("expected cap for non-positive and oversized limits")
	}
	if ClampLimit(25) != 25 {
		t.Error("expected limit to pass through")
	}
}

func TestBuildSelect(t *testing.T) {
	sql, args, err := buildSelect("Task", map[string]any{"status": "todo"}, "-due_date", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, frag := range []string{
		"entity_type = $1",
		"data @> $2::jsonb",
		"ORDER BY data->'due_date' DESC NULLS LAST, created_date DESC",
		"LIMIT 10",
	} {
		if !strings.Contains(sql, frag) {
			t.Errorf("missing %q in %s", frag, sql)
		}
	}
	if len(args) != 2 || args[0] != "Task" || args[1] != `{"status":"todo"}` {
		t.Errorf("unexpected args: %#v", args)
	}

	sql, args, err = buildSelect("Client", nil, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sql, "ORDER BY created_date DESC NULLS LAST LIMIT 1000") || len(args) != 1 {
		t.Errorf("unexpected default query: %s %v", sql, args)
	}
}

func TestMemory_CRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemory[model.Task](nil)

	created, err := store.Create(ctx, &model.Task{Title: "Draft", Status: model.TaskTodo, Priority: "high"},
		Event{RoutingKey: "task.created", Payload: map[string]string{"x": "y"}})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.CreatedDate.IsZero() {
		t.Fatalf("expected meta to be set: %+v", created.Meta)
	}

	updated, err := store.Update(ctx, created.ID, map[string]any{"status": model.TaskCompleted, "id": "ignored"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != model.TaskCompleted || updated.Title != "Draft" || updated.ID != created.ID {
		t.Errorf("unexpected merge result: %+v", updated)
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Update(ctx, "missing", map[string]any{"a": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	evs := store.Log.Events()
	if len(evs) != 1 || evs[0].AggregateID != created.ID || evs[0].AggregateType != model.TypeTask {
		t.Errorf("unexpected events: %+v", evs)
	}
}

func TestMemory_FilterContainmentAndSort(t *testing.T) {
	ctx := context.Background()
	store := NewMemory[model.Project](nil)
	store.Seed(
		model.Project{Title: "A", ClientID: "c1", Budget: 500, Status: model.ProjectActive},
		model.Project{Title: "B", ClientID: "c1", Budget: 1500, Status: model.ProjectActive},
		model.Project{Title: "C", ClientID: "c2", Budget: 900, Status: model.ProjectActive},
		model.Project{Title: "D", ClientID: "c1", Budget: 100, Status: model.ProjectCompleted},
	)

	got, err := store.Filter(ctx, map[string]any{"client_id": "c1", "status": "active"}, "-budget", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Title != "B" || got[1].Title != "A" {
		t.Errorf("unexpected filter result: %+v", titles(got))
	}

	got, _ = store.List(ctx, "budget", 2)
	if len(got) != 2 || got[0].Title != "D" || got[1].Title != "A" {
		t.Errorf("unexpected list result: %v", titles(got))
	}

	got, _ = store.List(ctx, "", 0)
	if got[0].Title != "D" {
		t.Errorf("default sort should be newest first, got %v", titles(got))
	}

	if _, err := store.Filter(ctx, nil, "bad-field!", 0); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestContains_Arrays(t *testing.T) {
	doc := map[string]any{"tags": []any{"a", "b"}, "n": float64(3)}
	if !contains(doc, map[string]any{"tags": []any{"b"}}) {
		t.Error("expected array containment")
	}
	if contains(doc, map[string]any{"tags": []any{"z"}}) {
		t.Error("unexpected array containment")
	}
	if !contains(doc, map[string]any{"n": float64(3)}) {
		t.Error("expected numeric equality")
	}
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUsers()
	u := &model.User{Email: "Ada@Example.com", PasswordHash: "h", Role: "admin"}
	if err := users.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if err := users.CreateUser(ctx, &model.User{Email: "ada@example.com"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	found, err := users.FindByEmail(ctx, "ADA@example.com")
	if err != nil || found.ID != u.ID {
		t.Errorf("FindByEmail: %+v %v", found, err)
	}
	if _, err := users.FindByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func titles(ps []model.Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Title
	}
	return out
}
