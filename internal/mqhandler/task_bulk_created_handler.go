package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/metrics"
	"freelanceos/pkg/util"
)

const bulkCreateHandlerName = "task_bulk_create"

// TaskBulkCreatedHandler materialises accepted suggestions as Task entities.
// Titles already present on the project are skipped, so redelivery is safe.
type TaskBulkCreatedHandler struct {
	tasks        repository.Store[model.Task]
	retryCounter RetryCounter
	logger       *zap.Logger
}

func NewTaskBulkCreatedHandler(tasks repository.Store[model.Task], retryCounter RetryCounter, logger *zap.Logger) *TaskBulkCreatedHandler {
	return &TaskBulkCreatedHandler{tasks: tasks, retryCounter: retryCounter, logger: logger}
}

func (h *TaskBulkCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p model.TaskBulkCreatedEvent
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Invalid task.bulk_created payload", zap.String("raw", string(raw)), zap.Error(err))
		return fmt.Errorf("bad_payload: %w", err)
	}
	if p.ProjectID == "" || len(p.Tasks) == 0 {
		log.Warn("Empty task.bulk_created payload, skip", zap.String("project_id", p.ProjectID))
		return nil
	}

	retryKey := util.FormatRetryKey(bulkCreateHandlerName, p.ProjectID)
	attempt, _ := h.retryCounter.IncrementAndGet(ctx, retryKey)

	created, op, err := h.materialise(ctx, p)
	metrics.IncrementTaskGeneration("wizard", created)
	if err != nil {
		out := classify(log, op, attempt, err)
		if out == nil || errors.Is(out, util.ErrRetriesExhausted) {
			_ = h.retryCounter.Reset(ctx, retryKey)
		}
		return out
	}

	_ = h.retryCounter.Reset(ctx, retryKey)
	log.Info("Suggested tasks created",
		zap.String("project_id", p.ProjectID),
		zap.Int("created", created),
		zap.Int("requested", len(p.Tasks)),
		zap.Int64("attempt", attempt),
	)
	return nil
}

// materialise creates the missing tasks, then links dependencies by title in a
// second pass so the order of suggestions does not matter. It returns the
// number of tasks created and the failing step.
func (h *TaskBulkCreatedHandler) materialise(ctx context.Context, p model.TaskBulkCreatedEvent) (int, string, error) {
	existing, err := h.tasks.Filter(ctx, map[string]any{"project_id": p.ProjectID}, "created_date", repository.MaxLimit)
	if err != nil {
		return 0, "FilterTasks", err
	}
	byKey := make(map[string]model.Task, len(existing)+len(p.Tasks))
	for _, t := range existing {
		byKey[titleKey(t.Title)] = t
	}

	created := 0
	for _, s := range p.Tasks {
		key := titleKey(s.Title)
		if key == "" {
			continue
		}
		if _, ok := byKey[key]; ok {
			continue
		}
		task := &model.Task{
			Meta:           model.Meta{CreatedBy: p.CreatedBy},
			Title:          strings.TrimSpace(s.Title),
			Description:    s.Description,
			ProjectID:      p.ProjectID,
			ClientID:       p.ClientID,
			Status:         model.TaskTodo,
			Priority:       s.Priority,
			EstimatedHours: s.EstimatedHours,
			Subtasks:       subtasks(s.Subtasks),
			AISuggested:    true,
		}
		if !model.ValidTaskPriority(task.Priority) {
			task.Priority = model.PriorityMedium
		}
		out, err := h.tasks.Create(ctx, task)
		if err != nil {
			return created, "CreateTask", err
		}
		byKey[key] = *out
		created++
	}

	// Only AI-suggested tasks are linked; a hand-made task with the same title keeps its edges.
	for _, s := range p.Tasks {
		task, ok := byKey[titleKey(s.Title)]
		if !ok || !task.AISuggested || len(s.Dependencies) == 0 {
			continue
		}
		deps := resolveDependencies(s.Dependencies, task.ID, byKey)
		if slices.Equal(deps, task.Dependencies) {
			continue
		}
		if _, err := h.tasks.Update(ctx, task.ID, map[string]any{"dependencies": deps}); err != nil {
			return created, "LinkDependencies", err
		}
	}
	return created, "", nil
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// resolveDependencies maps titles to task ids, dropping unknown titles,
// duplicates and self references.
func resolveDependencies(titles []string, self string, byKey map[string]model.Task) []string {
	var out []string
	for _, t := range titles {
		dep, ok := byKey[titleKey(t)]
		if !ok || dep.ID == self || slices.Contains(out, dep.ID) {
			continue
		}
		out = append(out, dep.ID)
	}
	return out
}

func subtasks(titles []string) []model.Subtask {
	var out []model.Subtask
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, model.Subtask{Title: t})
		}
	}
	return out
}
