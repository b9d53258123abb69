package wizard

import (
	"time"

	"freelanceos/internal/model"
)

const (
	StepBasics = iota + 1
	StepScope
	StepBudgetTimeline
	StepRisk
	StepSummary
)

// LastStep is the summary step; Next never moves past it.
const LastStep = StepSummary

var stepNames = map[int]string{
	StepBasics:         "basics",
	StepScope:          "scope",
	StepBudgetTimeline: "budget_timeline",
	StepRisk:           "risk",
	StepSummary:        "summary",
}

// StepName returns the wire name of a step.
func StepName(step int) string { return stepNames[step] }

// stepFields lists the project fields each step may edit.
var stepFields = map[int][]string{
	StepBasics:         {"title", "description", "project_type", "client_id"},
	StepScope:          {"description", "deliverables", "milestones"},
	StepBudgetTimeline: {"budget", "hourly_rate", "estimated_hours", "start_date", "deadline"},
	StepRisk:           {"risk_assessment"},
	StepSummary:        {"status"},
}

// Draft is the server-side state of one wizard run.
type Draft struct {
	ID             string                `json:"id"`
	UserID         string                `json:"user_id"`
	Step           int                   `json:"step"`
	StepName       string                `json:"step_name"`
	Project        model.Project         `json:"project"`
	RiskAnalysis   *model.RiskAnalysis   `json:"risk_analysis,omitempty"`
	SuggestedTasks []model.SuggestedTask `json:"suggested_tasks,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// Result is returned by Complete.
type Result struct {
	Project        *model.Project        `json:"project"`
	SuggestedTasks []model.SuggestedTask `json:"suggested_tasks"`
}
