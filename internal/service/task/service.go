package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/auth"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/metrics"
	"freelanceos/pkg/mq"
)

var ErrInvalidStatus = errors.New("invalid task status")

type Service struct {
	tasks  repository.Store[model.Task]
	llm    llm.Invoker
	logger *zap.Logger
}

func NewService(tasks repository.Store[model.Task], inv llm.Invoker, logger *zap.Logger) *Service {
	return &Service{tasks: tasks, llm: inv, logger: logger}
}

// Load fetches the caller's tasks narrowed by f and ordered by sortField.
func (s *Service) Load(ctx context.Context, f Filter, sortField string, desc bool) ([]model.Task, error) {
	query := map[string]any{}
	if f.ProjectID != "" {
		query["project_id"] = f.ProjectID
	}
	if actor := auth.ActorFrom(ctx); actor.IsClient() {
		query["client_id"] = actor.ClientID
	}
	tasks, err := s.tasks.Filter(ctx, query, "-created_date", repository.MaxLimit)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	tasks = f.Apply(tasks)
	Sort(tasks, sortField, desc)
	return tasks, nil
}

// Move sets a task's status with a single update carrying task.status_changed.
func (s *Service) Move(ctx context.Context, id, status string) (*model.Task, error) {
	if !model.ValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	current, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, current, status)
}

// ToggleComplete flips a task between completed and todo.
func (s *Service) ToggleComplete(ctx context.Context, id string) (*model.Task, error) {
	current, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := model.TaskCompleted
	if current.Status == model.TaskCompleted {
		next = model.TaskTodo
	}
	return s.setStatus(ctx, current, next)
}

func (s *Service) setStatus(ctx context.Context, current *model.Task, status string) (*model.Task, error) {
	patch := map[string]any{"status": status}
	if current.Status == status {
		return s.tasks.Update(ctx, current.ID, patch)
	}
	return s.tasks.Update(ctx, current.ID, patch, repository.Event{
		RoutingKey: mq.RoutingTaskStatusChanged,
		Payload: model.TaskStatusChangedEvent{
			TaskID:    current.ID,
			ProjectID: current.ProjectID,
			From:      current.Status,
			To:        status,
		},
	})
}

// PrioritizeFailure records one task the model re-prioritised but the store rejected.
type PrioritizeFailure struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

// PrioritizeResult summarises an AI prioritisation run.
type PrioritizeResult struct {
	Updated int                 `json:"updated"`
	Skipped int                 `json:"skipped"`
	Failed  []PrioritizeFailure `json:"failed"`
}

type priorityAdvice struct {
	Tasks []struct {
		TaskID            string `json:"task_id"`
		NewPriority       string `json:"new_priority"`
		NewPriorityMatrix string `json:"new_priority_matrix"`
		Reasoning         string `json:"reasoning"`
	} `json:"tasks"`
}

var prioritizeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tasks": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"task_id":             map[string]any{"type": "string"},
					"new_priority":        map[string]any{"type": "string", "enum": model.TaskPriorities},
					"new_priority_matrix": map[string]any{"type": "string", "enum": model.PriorityMatrixValues},
					"reasoning":           map[string]any{"type": "string"},
				},
				"required": []string{"task_id", "new_priority", "new_priority_matrix"},
			},
		},
	},
	"required": []string{"tasks"},
}

// AIPrioritize asks the model to re-rank every open task matching f and applies
// each suggestion as its own update. One bad entry never stops the rest.
func (s *Service) AIPrioritize(ctx context.Context, f Filter) (*PrioritizeResult, error) {
	log := logger.WithTrace(ctx, s.logger)
	tasks, err := s.Load(ctx, f, "priority", true)
	if err != nil {
		return nil, err
	}
	open := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		if t.Status != model.TaskCompleted {
			open[t.ID] = t
		}
	}
	res := &PrioritizeResult{Failed: []PrioritizeFailure{}}
	if len(open) == 0 {
		return res, nil
	}

	prompt, err := prioritizePrompt(tasks)
	if err != nil {
		return nil, err
	}
	advice, err := llm.InvokeJSON[priorityAdvice](ctx, s.llm, llm.Request{
		Prompt:             prompt,
		ResponseJSONSchema: prioritizeSchema,
	})
	if err != nil {
		metrics.IncrementAIAction("prioritize", "error")
		log.Error("AI prioritisation failed", zap.Error(err))
		return nil, fmt.Errorf("ai prioritize: %w", err)
	}

	for _, a := range advice.Tasks {
		if _, ok := open[a.TaskID]; !ok {
			res.Skipped++
			continue
		}
		patch := map[string]any{}
		if p := strings.ToLower(a.NewPriority); model.ValidTaskPriority(p) {
			patch["priority"] = p
		}
		if model.ValidPriorityMatrix(a.NewPriorityMatrix) {
			patch["priority_matrix"] = a.NewPriorityMatrix
		}
		if len(patch) == 0 {
			res.Skipped++
			continue
		}
		if _, err := s.tasks.Update(ctx, a.TaskID, patch); err != nil {
			log.Warn("Failed to apply priority", zap.String("task_id", a.TaskID), zap.Error(err))
			res.Failed = append(res.Failed, PrioritizeFailure{TaskID: a.TaskID, Error: err.Error()})
			continue
		}
		res.Updated++
	}

	status := "success"
	if len(res.Failed) > 0 {
		status = "partial"
	}
	metrics.IncrementAIAction("prioritize", status)
	log.Info("AI prioritisation applied",
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failed)),
	)
	return res, nil
}

type promptTask struct {
	ID             string  `json:"task_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Status         string  `json:"status"`
	Priority       string  `json:"priority"`
	DueDate        string  `json:"due_date,omitempty"`
	EstimatedHours float64 `json:"estimated_hours,omitempty"`
}

func prioritizePrompt(tasks []model.Task) (string, error) {
	list := make([]promptTask, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == model.TaskCompleted {
			continue
		}
		list = append(list, promptTask{
			ID: t.ID, Title: t.Title, Description: t.Description, Status: t.Status,
			Priority: t.Priority, DueDate: t.DueDate, EstimatedHours: t.EstimatedHours,
		})
	}
	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Today is %s. You are helping a freelancer prioritise open work.\n"+
		"Using the Eisenhower matrix, assign each task a new_priority (low, medium, high, urgent) and a "+
		"new_priority_matrix (urgent_important, not_urgent_important, urgent_not_important, "+
		"not_urgent_not_important) with one sentence of reasoning.\n\nTasks:\n%s",
		model.FormatDate(time.Now()), raw), nil
}
