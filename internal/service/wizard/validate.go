package wizard

import (
	"errors"
	"fmt"
	"strings"

	"freelanceos/internal/model"
)

// ErrStepInvalid is matched by every StepError.
var ErrStepInvalid = errors.New("wizard step invalid")

// StepError reports why a step cannot be left or edited.
type StepError struct {
	Step   int
	Reason string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %s", e.Step, StepName(e.Step), e.Reason)
}

func (e *StepError) Is(target error) bool { return target == ErrStepInvalid }

func stepErr(step int, format string, args ...any) error {
	return &StepError{Step: step, Reason: fmt.Sprintf(format, args...)}
}

// ValidateStep checks the fields owned by step.
func ValidateStep(p *model.Project, step int) error {
	switch step {
	case StepBasics:
		if strings.TrimSpace(p.Title) == "" {
			return stepErr(step, "title is required")
		}
		if p.ClientID == "" {
			return stepErr(step, "client_id is required")
		}
	case StepScope:
		if len(p.Deliverables) == 0 && strings.TrimSpace(p.Description) == "" {
			return stepErr(step, "add at least one deliverable or a description")
		}
	case StepBudgetTimeline:
		if p.Budget < 0 {
			return stepErr(step, "budget must not be negative")
		}
		if p.EstimatedHours <= 0 {
			return stepErr(step, "estimated_hours must be positive")
		}
		if p.StartDate != "" && p.Deadline != "" {
			s, ok := model.ParseDate(p.StartDate)
			if !ok {
				return stepErr(step, "invalid start_date %q", p.StartDate)
			}
			d, ok := model.ParseDate(p.Deadline)
			if !ok {
				return stepErr(step, "invalid deadline %q", p.Deadline)
			}
			if !d.After(s) {
				return stepErr(step, "deadline must be after start_date")
			}
		}
	case StepRisk:
		if !model.ValidRiskLevel(p.RiskAssessment.RiskLevel) {
			return stepErr(step, "risk_level must be one of %s", strings.Join(model.RiskLevels, ", "))
		}
	case StepSummary:
		if err := p.Validate(); err != nil {
			return stepErr(step, "%v", err)
		}
	default:
		return stepErr(step, "unknown step")
	}
	return nil
}

// RiskBadgeColor maps a predicted risk level to the badge colour shown on the summary.
func RiskBadgeColor(risk string) string {
	switch risk {
	case "low":
		return "green"
	case "medium":
		return "yellow"
	case "high":
		return "orange"
	case "critical":
		return "red"
	}
	return "gray"
}

func validateRiskAnalysis(ra *model.RiskAnalysis) error {
	if !model.ValidRiskLevel(ra.PredictedRisk) {
		return fmt.Errorf("predicted_risk %q", ra.PredictedRisk)
	}
	if ra.ConfidenceScore < 0 || ra.ConfidenceScore > 100 {
		return fmt.Errorf("confidence_score %v out of range", ra.ConfidenceScore)
	}
	if ra.SuggestedBufferHours < 0 {
		return fmt.Errorf("suggested_buffer_hours %v is negative", ra.SuggestedBufferHours)
	}
	if ra.SuggestedDeadline != "" {
		if _, ok := model.ParseDate(ra.SuggestedDeadline); !ok {
			return fmt.Errorf("suggested_deadline %q", ra.SuggestedDeadline)
		}
	}
	return nil
}

// normalizeTasks drops untitled entries, clamps hours, fixes priorities
// and removes dependencies that do not name another suggested task.
func normalizeTasks(in []model.SuggestedTask) []model.SuggestedTask {
	out := make([]model.SuggestedTask, 0, len(in))
	titles := make(map[string]bool, len(in))
	for _, t := range in {
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" || titles[t.Title] {
			continue
		}
		titles[t.Title] = true
		if t.EstimatedHours < 0 {
			t.EstimatedHours = 0
		}
		t.Priority = strings.ToLower(strings.TrimSpace(t.Priority))
		if !model.ValidTaskPriority(t.Priority) {
			t.Priority = model.PriorityMedium
		}
		out = append(out, t)
	}
	for i := range out {
		out[i].Dependencies = keepKnown(out[i].Dependencies, titles, out[i].Title)
	}
	return out
}

func keepKnown(deps []string, titles map[string]bool, self string) []string {
	var kept []string
	for _, d := range deps {
		d = strings.TrimSpace(d)
		if d != self && titles[d] {
			kept = append(kept, d)
		}
	}
	return kept
}
