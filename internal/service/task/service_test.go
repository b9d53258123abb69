package task

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/auth"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/mq"
)

func newService() (*Service, *repository.MemoryStores, *llm.Mock) {
	stores := repository.NewMemoryStores()
	mock := llm.NewMock()
	return NewService(stores.Tasks, mock, zap.NewNop()), stores, mock
}

func TestToggleCompleteIssuesOneUpdate(t *testing.T) {
	svc, stores, _ := newService()
	ctx := context.Background()
	task := stores.Tasks.Seed(model.Task{Title: "t", Status: model.TaskTodo, Priority: model.PriorityLow})[0]

	got, err := svc.ToggleComplete(ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if got.Status != model.TaskCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}
	if n := stores.Tasks.Calls("update"); n != 1 {
		t.Errorf("expected exactly one update, got %d", n)
	}

	got, err = svc.ToggleComplete(ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if got.Status != model.TaskTodo {
		t.Errorf("expected todo after second toggle, got %q", got.Status)
	}
}

func TestMoveWritesStatusChangedEvent(t *testing.T) {
	svc, stores, _ := newService()
	ctx := context.Background()
	task := stores.Tasks.Seed(model.Task{Title: "t", ProjectID: "p1", Status: model.TaskTodo})[0]

	if _, err := svc.Move(ctx, task.ID, model.TaskReview); err != nil {
		t.Fatalf("Move: %v", err)
	}
	events := stores.Log.Events()
	if len(events) != 1 || events[0].RoutingKey != mq.RoutingTaskStatusChanged {
		t.Fatalf("unexpected events: %+v", events)
	}
	ev := events[0].Payload.(model.TaskStatusChangedEvent)
	if ev.From != model.TaskTodo || ev.To != model.TaskReview || ev.ProjectID != "p1" {
		t.Errorf("unexpected payload: %+v", ev)
	}
}

func TestMoveRejectsUnknownStatus(t *testing.T) {
	svc, stores, _ := newService()
	task := stores.Tasks.Seed(model.Task{Title: "t", Status: model.TaskTodo})[0]

	if _, err := svc.Move(context.Background(), task.ID, "done"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if stores.Tasks.Calls("update") != 0 {
		t.Error("no update expected for an invalid status")
	}
}

func TestMoveMissingTask(t *testing.T) {
	svc, _, _ := newService()
	if _, err := svc.Move(context.Background(), "nope", model.TaskTodo); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadScopesClients(t *testing.T) {
	svc, stores, _ := newService()
	stores.Tasks.Seed(
		model.Task{Title: "mine", ClientID: "c1", Status: model.TaskTodo},
		model.Task{Title: "theirs", ClientID: "c2", Status: model.TaskTodo},
	)
	ctx := auth.WithActor(context.Background(), auth.Actor{UserID: "u", Role: "client", ClientID: "c1"})

	tasks, err := svc.Load(ctx, Filter{}, "title", false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "mine" {
		t.Fatalf("client should only see own tasks, got %+v", tasks)
	}
}

func TestAIPrioritizeCollectsPerTaskOutcomes(t *testing.T) {
	svc, stores, mock := newService()
	ctx := context.Background()
	seeded := stores.Tasks.Seed(
		model.Task{Title: "a", Status: model.TaskTodo, Priority: model.PriorityLow},
		model.Task{Title: "b", Status: model.TaskInProgress, Priority: model.PriorityLow},
		model.Task{Title: "c", Status: model.TaskTodo, Priority: model.PriorityLow},
		model.Task{Title: "done", Status: model.TaskCompleted, Priority: model.PriorityLow},
	)
	a, b, c, done := seeded[0], seeded[1], seeded[2], seeded[3]

	stores.Tasks.FailUpdate = func(id string, _ map[string]any) error {
		if id == c.ID {
			return errors.New("store unavailable")
		}
		return nil
	}
	mock.PushJSON(map[string]any{"tasks": []map[string]any{
		{"task_id": a.ID, "new_priority": "urgent", "new_priority_matrix": "urgent_important"},
		{"task_id": b.ID, "new_priority": "sometime", "new_priority_matrix": "whenever"},
		{"task_id": c.ID, "new_priority": "high", "new_priority_matrix": "not_urgent_important"},
		{"task_id": done.ID, "new_priority": "high", "new_priority_matrix": "urgent_important"},
		{"task_id": "ghost", "new_priority": "high", "new_priority_matrix": "urgent_important"},
	}})

	res, err := svc.AIPrioritize(ctx, Filter{})
	if err != nil {
		t.Fatalf("AIPrioritize: %v", err)
	}
	if res.Updated != 1 || res.Skipped != 3 || len(res.Failed) != 1 || res.Failed[0].TaskID != c.ID {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, _ := stores.Tasks.Get(ctx, a.ID)
	if got.Priority != model.PriorityUrgent || got.PriorityMatrix != "urgent_important" {
		t.Errorf("task a not updated: %+v", got)
	}
	got, _ = stores.Tasks.Get(ctx, done.ID)
	if got.Priority != model.PriorityLow {
		t.Errorf("completed task must not be touched: %+v", got)
	}
}

func TestAIPrioritizeNoOpenTasksSkipsModel(t *testing.T) {
	svc, stores, mock := newService()
	stores.Tasks.Seed(model.Task{Title: "done", Status: model.TaskCompleted})

	res, err := svc.AIPrioritize(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("AIPrioritize: %v", err)
	}
	if res.Updated != 0 || len(mock.Calls()) != 0 {
		t.Errorf("expected no model call, got %+v / %d calls", res, len(mock.Calls()))
	}
}

func TestAIPrioritizeModelFailure(t *testing.T) {
	svc, stores, mock := newService()
	stores.Tasks.Seed(model.Task{Title: "a", Status: model.TaskTodo})
	mock.PushError(llm.ErrUnavailable)

	if _, err := svc.AIPrioritize(context.Background(), Filter{}); !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if stores.Tasks.Calls("update") != 0 {
		t.Error("no updates expected when the model fails")
	}
}
