package wizard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/auth"
	"freelanceos/internal/service/entity"
	"freelanceos/pkg/llm"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/metrics"
	"freelanceos/pkg/mq"
)

var ErrNoSuggestions = errors.New("no suggested tasks for project")

type Service struct {
	drafts   DraftStore
	projects repository.Store[model.Project]
	events   repository.EventWriter
	llm      llm.Invoker
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(drafts DraftStore, projects repository.Store[model.Project], events repository.EventWriter, inv llm.Invoker, logger *zap.Logger) *Service {
	return &Service{
		drafts:   drafts,
		projects: projects,
		events:   events,
		llm:      inv,
		logger:   logger,
		now:      time.Now,
	}
}

// Start opens a new draft at the basics step.
func (s *Service) Start(ctx context.Context, clientID string) (*Draft, error) {
	now := s.now().UTC()
	d := &Draft{
		ID:        uuid.NewString(),
		UserID:    auth.ActorFrom(ctx).UserID,
		Step:      StepBasics,
		Project:   model.Project{ClientID: clientID, Status: model.ProjectPlanning},
		CreatedAt: now,
	}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Draft, error) {
	return s.load(ctx, id)
}

// UpdateStep merges the fields owned by the current step into the draft project.
func (s *Service) UpdateStep(ctx context.Context, id string, step int, patch map[string]any) (*Draft, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if step != d.Step {
		return nil, stepErr(step, "draft is at step %d", d.Step)
	}
	allowed := make(map[string]bool)
	for _, f := range stepFields[step] {
		allowed[f] = true
	}
	for k := range patch {
		if !allowed[k] {
			return nil, stepErr(step, "field %q cannot be edited here", k)
		}
	}

	p, err := entity.MergePatch(&d.Project, patch)
	if err != nil {
		return nil, stepErr(step, "%v", err)
	}
	d.Project = *p
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Next advances when the current step validates.
func (s *Service) Next(ctx context.Context, id string) (*Draft, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Step >= LastStep {
		return nil, stepErr(d.Step, "already at the last step")
	}
	if err := ValidateStep(&d.Project, d.Step); err != nil {
		return nil, err
	}
	d.Step++
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Previous(ctx context.Context, id string) (*Draft, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Step > StepBasics {
		d.Step--
	}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// AnalyzeRisk asks the model for a risk assessment of the draft project.
// The draft is only changed when the answer validates.
func (s *Service) AnalyzeRisk(ctx context.Context, id string) (*Draft, error) {
	log := logger.WithTrace(ctx, s.logger)
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Step < StepRisk {
		return nil, stepErr(d.Step, "risk analysis is available from step %d", StepRisk)
	}

	ra, err := llm.InvokeJSON[model.RiskAnalysis](ctx, s.llm, llm.Request{
		Prompt:             riskPrompt(&d.Project),
		ResponseJSONSchema: riskSchema,
	})
	if err == nil {
		if verr := validateRiskAnalysis(&ra); verr != nil {
			err = fmt.Errorf("%w: %v", llm.ErrInvalidResponse, verr)
		}
	}
	if err != nil {
		metrics.IncrementAIAction("risk_analysis", "error")
		log.Error("Risk analysis failed", zap.String("draft_id", id), zap.Error(err))
		return nil, fmt.Errorf("analyze risk: %w", err)
	}
	metrics.IncrementAIAction("risk_analysis", "success")

	d.RiskAnalysis = &ra
	d.Project.RiskAssessment.AIAnalysis = &ra
	if d.Project.RiskAssessment.RiskLevel == "" {
		d.Project.RiskAssessment.RiskLevel = ra.PredictedRisk
	}
	if len(d.Project.RiskAssessment.Risks) == 0 {
		d.Project.RiskAssessment.Risks = ra.RiskFactors
	}
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

type taskSuggestions struct {
	Tasks []model.SuggestedTask `json:"tasks"`
}

// SuggestTasks decomposes the draft project into tasks on the summary step.
func (s *Service) SuggestTasks(ctx context.Context, id string) (*Draft, error) {
	log := logger.WithTrace(ctx, s.logger)
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Step != StepSummary {
		return nil, stepErr(d.Step, "task suggestions are available on the summary step")
	}

	out, err := llm.InvokeJSON[taskSuggestions](ctx, s.llm, llm.Request{
		Prompt:             tasksPrompt(&d.Project),
		ResponseJSONSchema: taskSchema,
	})
	if err != nil {
		metrics.IncrementAIAction("suggest_tasks", "error")
		log.Error("Task suggestion failed", zap.String("draft_id", id), zap.Error(err))
		return nil, fmt.Errorf("suggest tasks: %w", err)
	}
	tasks := normalizeTasks(out.Tasks)
	if len(tasks) == 0 {
		metrics.IncrementAIAction("suggest_tasks", "error")
		log.Warn("Model returned no usable tasks", zap.String("draft_id", id))
		return nil, fmt.Errorf("suggest tasks: %w: no usable tasks", llm.ErrInvalidResponse)
	}
	metrics.IncrementAIAction("suggest_tasks", "success")

	d.SuggestedTasks = tasks
	if err := s.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Complete persists the project together with its project.created event,
// stashes the suggested tasks for review and removes the draft.
func (s *Service) Complete(ctx context.Context, id string) (*Result, error) {
	log := logger.WithTrace(ctx, s.logger)
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Step != StepSummary {
		return nil, stepErr(d.Step, "complete is only allowed on the summary step")
	}
	for step := StepBasics; step <= StepSummary; step++ {
		if err := ValidateStep(&d.Project, step); err != nil {
			return nil, err
		}
	}

	p := d.Project
	p.ID = uuid.NewString()
	p.CreatedBy = auth.ActorFrom(ctx).UserID
	if p.Status == "" {
		p.Status = model.ProjectPlanning
	}
	if d.RiskAnalysis != nil {
		p.RiskAssessment.AIAnalysis = d.RiskAnalysis
	}

	created, err := s.projects.Create(ctx, &p, repository.Event{
		RoutingKey: mq.RoutingProjectCreated,
		Payload: model.ProjectCreatedEvent{
			ProjectID:          p.ID,
			ClientID:           p.ClientID,
			Title:              p.Title,
			CreatedBy:          p.CreatedBy,
			SuggestedTaskCount: len(d.SuggestedTasks),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	if len(d.SuggestedTasks) > 0 {
		if err := s.drafts.SaveSuggested(ctx, created.ID, d.SuggestedTasks); err != nil {
			log.Warn("Failed to stash suggested tasks", zap.String("project_id", created.ID), zap.Error(err))
		}
	}
	if err := s.drafts.Delete(ctx, id); err != nil {
		log.Warn("Failed to delete wizard draft", zap.String("draft_id", id), zap.Error(err))
	}

	metrics.IncrementWizardCompleted(len(d.SuggestedTasks) > 0)
	log.Info("Project created from wizard",
		zap.String("project_id", created.ID),
		zap.String("client_id", created.ClientID),
		zap.Int("suggested_tasks", len(d.SuggestedTasks)),
	)
	return &Result{Project: created, SuggestedTasks: d.SuggestedTasks}, nil
}

// SuggestedTasks returns the tasks stashed by Complete.
func (s *Service) SuggestedTasks(ctx context.Context, projectID string) ([]model.SuggestedTask, error) {
	return s.drafts.LoadSuggested(ctx, projectID)
}

// AcceptSuggestedTasks publishes task.bulk_created for the chosen titles
// (all of them when titles is empty) and clears the stash.
func (s *Service) AcceptSuggestedTasks(ctx context.Context, projectID string, titles []string) (int, error) {
	tasks, err := s.drafts.LoadSuggested(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, ErrNoSuggestions
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return 0, err
	}

	selected := selectTasks(tasks, titles)
	if len(selected) == 0 {
		return 0, fmt.Errorf("%w: none of the given titles match", ErrNoSuggestions)
	}

	err = s.events.Emit(ctx, model.TypeProject, projectID, repository.Event{
		RoutingKey: mq.RoutingTaskBulkCreated,
		Payload: model.TaskBulkCreatedEvent{
			ProjectID: projectID,
			ClientID:  project.ClientID,
			CreatedBy: auth.ActorFrom(ctx).UserID,
			Tasks:     selected,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("emit task.bulk_created: %w", err)
	}
	if err := s.drafts.DeleteSuggested(ctx, projectID); err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to clear suggested tasks", zap.String("project_id", projectID), zap.Error(err))
	}
	return len(selected), nil
}

func selectTasks(tasks []model.SuggestedTask, titles []string) []model.SuggestedTask {
	if len(titles) == 0 {
		return tasks
	}
	want := make(map[string]bool, len(titles))
	for _, t := range titles {
		want[t] = true
	}
	var out []model.SuggestedTask
	for _, t := range tasks {
		if want[t.Title] {
			out = append(out, t)
		}
	}
	for i := range out {
		out[i].Dependencies = keepKnown(out[i].Dependencies, want, out[i].Title)
	}
	return out
}

// load returns the caller's draft. Drafts of other users read as missing.
func (s *Service) load(ctx context.Context, id string) (*Draft, error) {
	d, err := s.drafts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != auth.ActorFrom(ctx).UserID {
		return nil, ErrDraftNotFound
	}
	return d, nil
}

func (s *Service) save(ctx context.Context, d *Draft) error {
	d.StepName = StepName(d.Step)
	d.UpdatedAt = s.now().UTC()
	if err := s.drafts.Save(ctx, d); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}
