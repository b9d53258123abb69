package wizard

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

type fixture struct {
	svc    *Service
	drafts *MemoryDraftStore
	stores *repository.MemoryStores
	llm    *llm.Mock
}

func newFixture() *fixture {
	stores := repository.NewMemoryStores()
	drafts := NewMemoryDraftStore()
	mock := llm.NewMock()
	return &fixture{
		svc:    NewService(drafts, stores.Projects, stores.Events, mock, zap.NewNop()),
		drafts: drafts,
		stores: stores,
		llm:    mock,
	}
}

func adminCtx() context.Context {
	return auth.WithActor(context.Background(), auth.Actor{UserID: "u-1", Role: "admin"})
}

// walkToSummary fills every step with valid data and advances to step 5.
func (f *fixture) walkToSummary(t *testing.T, ctx context.Context) *Draft {
	t.Helper()
	d, err := f.svc.Start(ctx, "client-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	steps := []map[string]any{
		{"title": "Website redesign", "project_type": "web"},
		{"deliverables": []map[string]any{{"title": "Landing page"}}},
		{"budget": 5000, "estimated_hours": 40, "start_date": "2026-01-01", "deadline": "2026-02-01"},
		{"risk_assessment": map[string]any{"risk_level": "medium"}},
	}
	for i, patch := range steps {
		if _, err := f.svc.UpdateStep(ctx, d.ID, i+1, patch); err != nil {
			t.Fatalf("UpdateStep %d: %v", i+1, err)
		}
		if d, err = f.svc.Next(ctx, d.ID); err != nil {
			t.Fatalf("Next from %d: %v", i+1, err)
		}
	}
	if d.Step != StepSummary {
		t.Fatalf("expected summary step, got %d", d.Step)
	}
	return d
}

func TestStartAndNavigation(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	d, err := f.svc.Start(ctx, "client-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.Step != StepBasics || d.StepName != "basics" || d.UserID != "u-1" {
		t.Fatalf("unexpected draft: %+v", d)
	}

	if _, err := f.svc.Next(ctx, d.ID); !errors.Is(err, ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid without a title, got %v", err)
	}

	d, err = f.svc.Previous(ctx, d.ID)
	if err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if d.Step != StepBasics {
		t.Errorf("Previous must not go below step 1, got %d", d.Step)
	}
}

func TestUpdateStepRejectsForeignFields(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	d, _ := f.svc.Start(ctx, "client-1")

	if _, err := f.svc.UpdateStep(ctx, d.ID, StepBasics, map[string]any{"budget": 10}); !errors.Is(err, ErrStepInvalid) {
		t.Errorf("expected budget to be rejected on basics, got %v", err)
	}
	if _, err := f.svc.UpdateStep(ctx, d.ID, StepScope, map[string]any{"description": "x"}); !errors.Is(err, ErrStepInvalid) {
		t.Errorf("expected edit of a non-current step to fail, got %v", err)
	}
}

func TestDraftsAreVisibleOnlyToTheirOwner(t *testing.T) {
	f := newFixture()
	d, _ := f.svc.Start(adminCtx(), "client-1")
	other := auth.WithActor(context.Background(), auth.Actor{UserID: "u-2", Role: "admin"})

	if _, err := f.svc.Get(other, d.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("Get: expected ErrDraftNotFound, got %v", err)
	}
	if _, err := f.svc.UpdateStep(other, d.ID, StepBasics, map[string]any{"title": "Hijack"}); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("UpdateStep: expected ErrDraftNotFound, got %v", err)
	}
	if _, err := f.svc.Next(other, d.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("Next: expected ErrDraftNotFound, got %v", err)
	}
	if _, err := f.svc.Complete(other, d.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("Complete: expected ErrDraftNotFound, got %v", err)
	}

	mine, err := f.svc.Get(adminCtx(), d.ID)
	if err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if mine.Project.Title != "" {
		t.Errorf("draft changed by another user: %+v", mine.Project)
	}
}

func TestNextStopsAtSummary(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	d := f.walkToSummary(t, ctx)

	if _, err := f.svc.Next(ctx, d.ID); !errors.Is(err, ErrStepInvalid) {
		t.Fatalf("expected error past the last step, got %v", err)
	}
}

func TestValidateStep(t *testing.T) {
	cases := []struct {
		name string
		p    model.Project
		step int
		ok   bool
	}{
		{"basics ok", model.Project{Title: "t", ClientID: "c"}, StepBasics, true},
		{"basics missing client", model.Project{Title: "t"}, StepBasics, false},
		{"scope description only", model.Project{Description: "d"}, StepScope, true},
		{"scope empty", model.Project{}, StepScope, false},
		{"budget negative", model.Project{Budget: -1, EstimatedHours: 1}, StepBudgetTimeline, false},
		{"hours zero", model.Project{EstimatedHours: 0}, StepBudgetTimeline, false},
		{"deadline before start", model.Project{EstimatedHours: 1, StartDate: "2026-03-01", Deadline: "2026-02-01"}, StepBudgetTimeline, false},
		{"deadline equal start", model.Project{EstimatedHours: 1, StartDate: "2026-03-01", Deadline: "2026-03-01"}, StepBudgetTimeline, false},
		{"only deadline", model.Project{EstimatedHours: 1, Deadline: "2026-03-01"}, StepBudgetTimeline, true},
		{"risk invalid", model.Project{RiskAssessment: model.RiskAssessment{RiskLevel: "extreme"}}, StepRisk, false},
		{"risk ok", model.Project{RiskAssessment: model.RiskAssessment{RiskLevel: "critical"}}, StepRisk, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStep(&tc.p, tc.step)
			if (err == nil) != tc.ok {
				t.Errorf("ValidateStep = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestRiskBadgeColor(t *testing.T) {
	want := map[string]string{"low": "green", "medium": "yellow", "high": "orange", "critical": "red", "": "gray", "bogus": "gray"}
	for in, color := range want {
		if got := RiskBadgeColor(in); got != color {
			t.Errorf("RiskBadgeColor(%q) = %q, want %q", in, got, color)
		}
	}
}

func TestAnalyzeRisk(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	d := f.walkToSummary(t, ctx)

	f.llm.PushJSON(model.RiskAnalysis{
		PredictedRisk:        "high",
		RiskFactors:          []string{"tight deadline"},
		SuggestedBufferHours: 8,
		SuggestedDeadline:    "2026-02-10",
		ConfidenceScore:      72,
	})
	got, err := f.svc.AnalyzeRisk(ctx, d.ID)
	if err != nil {
		t.Fatalf("AnalyzeRisk: %v", err)
	}
	if got.RiskAnalysis == nil || got.RiskAnalysis.PredictedRisk != "high" {
		t.Fatalf("risk analysis not stored: %+v", got.RiskAnalysis)
	}
	if got.Project.RiskAssessment.RiskLevel != "medium" {
		t.Errorf("explicit risk level must be kept, got %q", got.Project.RiskAssessment.RiskLevel)
	}
	calls := f.llm.Calls()
	if len(calls) != 1 || calls[0].ResponseJSONSchema == nil {
		t.Fatalf("expected one schema request, got %+v", calls)
	}
}

func TestAnalyzeRiskInvalidResponseLeavesDraft(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	d := f.walkToSummary(t, ctx)

	f.llm.PushJSON(map[string]any{"predicted_risk": "high", "confidence_score": 180})
	if _, err := f.svc.AnalyzeRisk(ctx, d.ID); !errors.Is(err, llm.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
	f.llm.PushError(llm.ErrUnavailable)
	if _, err := f.svc.AnalyzeRisk(ctx, d.ID); !errors.Is(err, llm.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	stored, err := f.drafts.Load(ctx, d.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.RiskAnalysis != nil {
		t.Errorf("draft must be unchanged on failure, got %+v", stored.RiskAnalysis)
	}
}

func TestAnalyzeRiskRequiresRiskStep(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	d, _ := f.svc.Start(ctx, "client-1")

	if _, err := f.svc.AnalyzeRisk(ctx, d.ID); !errors.Is(err, ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid, got %v", err)
	}
	if len(f.llm.Calls()) != 0 {
		t.Error("model must not be called before the risk step")
	}
}

func TestSuggestTasksNormalises(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	d := f.walkToSummary(t, ctx)

	f.llm.PushJSON(map[string]any{"tasks": []map[string]any{
		{"title": "Design", "estimated_hours": 10, "priority": "HIGH"},
		{"title": "Build", "estimated_hours": -3, "priority": "whenever", "dependencies": []string{"Design", "Ghost"}},
		{"title": "  ", "estimated_hours": 1, "priority": "low"},
	}})
	got, err := f.svc.SuggestTasks(ctx, d.ID)
	if err != nil {
		t.Fatalf("SuggestTasks: %v", err)
	}
	if len(got.SuggestedTasks) != 2 {
		t.Fatalf("expected 2 tasks, got %+v", got.SuggestedTasks)
	}
	build := got.SuggestedTasks[1]
	if build.EstimatedHours != 0 || build.Priority != model.PriorityMedium {
		t.Errorf("unexpected normalisation: %+v", build)
	}
	if len(build.Dependencies) != 1 || build.Dependencies[0] != "Design" {
		t.Errorf("unknown dependencies must be dropped, got %v", build.Dependencies)
	}
	if got.SuggestedTasks[0].Priority != model.PriorityHigh {
		t.Errorf("priority should be lower-cased, got %q", got.SuggestedTasks[0].Priority)
	}
}

func TestCompleteWritesProjectEventAndStash(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	d := f.walkToSummary(t, ctx)

	f.llm.PushJSON(model.RiskAnalysis{PredictedRisk: "low", ConfidenceScore: 90})
	if _, err := f.svc.AnalyzeRisk(ctx, d.ID); err != nil {
		t.Fatalf("AnalyzeRisk: %v", err)
	}
	f.llm.PushJSON(map[string]any{"tasks": []map[string]any{
		{"title": "Design", "estimated_hours": 10, "priority": "high"},
		{"title": "Build", "estimated_hours": 20, "priority": "medium", "dependencies": []string{"Design"}},
	}})
	if _, err := f.svc.SuggestTasks(ctx, d.ID); err != nil {
		t.Fatalf("SuggestTasks: %v", err)
	}

	res, err := f.svc.Complete(ctx, d.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	p := res.Project
	if p.ID == "" || p.Title != "Website redesign" || p.Status != model.ProjectPlanning || p.CreatedBy != "u-1" {
		t.Fatalf("unexpected project: %+v", p)
	}
	if p.RiskAssessment.AIAnalysis == nil || p.RiskAssessment.AIAnalysis.PredictedRisk != "low" {
		t.Errorf("AI analysis must be persisted with the project: %+v", p.RiskAssessment)
	}
	if f.stores.Projects.Calls("create") != 1 {
		t.Errorf("expected one create call")
	}

	events := f.stores.Log.Events()
	if len(events) != 1 || events[0].RoutingKey != mq.RoutingProjectCreated || events[0].AggregateID != p.ID {
		t.Fatalf("unexpected events: %+v", events)
	}

	if _, err := f.drafts.Load(ctx, d.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Errorf("draft should be deleted, got %v", err)
	}
	stash, err := f.svc.SuggestedTasks(ctx, p.ID)
	if err != nil || len(stash) != 2 {
		t.Fatalf("expected 2 stashed tasks, got %v (%v)", stash, err)
	}
}

func TestCompleteRequiresSummaryStep(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	d, _ := f.svc.Start(ctx, "client-1")

	if _, err := f.svc.Complete(ctx, d.ID); !errors.Is(err, ErrStepInvalid) {
		t.Fatalf("expected ErrStepInvalid, got %v", err)
	}
	if f.stores.Projects.Calls("create") != 0 {
		t.Error("project must not be created")
	}
}

func TestAcceptSuggestedTasksSubset(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	project := f.stores.Projects.Seed(model.Project{Title: "P", ClientID: "client-1", Status: model.ProjectActive})[0]

	_ = f.drafts.SaveSuggested(ctx, project.ID, []model.SuggestedTask{
		{Title: "Design", Priority: "high"},
		{Title: "Build", Priority: "medium", Dependencies: []string{"Design"}},
		{Title: "Ship", Priority: "low", Dependencies: []string{"Build"}},
	})

	n, err := f.svc.AcceptSuggestedTasks(ctx, project.ID, []string{"Build", "Ship"})
	if err != nil {
		t.Fatalf("AcceptSuggestedTasks: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 accepted, got %d", n)
	}

	events := f.stores.Log.Events()
	if len(events) != 1 || events[0].RoutingKey != mq.RoutingTaskBulkCreated {
		t.Fatalf("unexpected events: %+v", events)
	}
	payload := events[0].Payload.(model.TaskBulkCreatedEvent)
	if payload.ClientID != "client-1" || len(payload.Tasks) != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.Tasks[0].Dependencies) != 0 {
		t.Errorf("dependency on an unaccepted task must be dropped: %v", payload.Tasks[0].Dependencies)
	}

	if _, err := f.svc.AcceptSuggestedTasks(ctx, project.ID, nil); !errors.Is(err, ErrNoSuggestions) {
		t.Errorf("stash should be cleared, got %v", err)
	}
}
