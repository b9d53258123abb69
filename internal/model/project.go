package model

import "fmt"

const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on_hold"
	ProjectCompleted = "completed"
	ProjectCancelled = "cancelled"
)

var RiskLevels = []string{"low", "medium", "high", "critical"}

type Deliverable struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Completed   bool   `json:"completed"`
}

type Milestone struct {
	Title         string  `json:"title"`
	DueDate       string  `json:"due_date,omitempty"`
	PaymentAmount float64 `json:"payment_amount,omitempty"`
	Completed     bool    `json:"completed"`
}

// RiskAnalysis is the structured output of the AI risk assessment.
type RiskAnalysis struct {
	PredictedRisk        string   `json:"predicted_risk"`
	RiskFactors          []string `json:"risk_factors"`
	SuggestedBufferHours float64  `json:"suggested_buffer_hours"`
	SuggestedDeadline    string   `json:"suggested_deadline,omitempty"`
	ConfidenceScore      float64  `json:"confidence_score"`
}

type RiskAssessment struct {
	RiskLevel  string        `json:"risk_level,omitempty"`
	Risks      []string      `json:"risks,omitempty"`
	Mitigation string        `json:"mitigation,omitempty"`
	AIAnalysis *RiskAnalysis `json:"ai_analysis,omitempty"`
}

type Project struct {
	Meta
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	ProjectType    string         `json:"project_type,omitempty"`
	ClientID       string         `json:"client_id"`
	Budget         float64        `json:"budget"`
	HourlyRate     float64        `json:"hourly_rate,omitempty"`
	EstimatedHours float64        `json:"estimated_hours"`
	ActualHours    float64        `json:"actual_hours,omitempty"`
	StartDate      string         `json:"start_date,omitempty"`
	Deadline       string         `json:"deadline,omitempty"`
	Deliverables   []Deliverable  `json:"deliverables,omitempty"`
	Milestones     []Milestone    `json:"milestones,omitempty"`
	RiskAssessment RiskAssessment `json:"risk_assessment"`
	Status         string         `json:"status"`
	Progress       float64        `json:"progress"`
}

func (Project) EntityType() string { return TypeProject }

func ValidProjectStatus(s string) bool {
	return oneOf(s, ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled)
}

func ValidRiskLevel(s string) bool {
	return oneOf(s, RiskLevels...)
}

func (p *Project) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if p.Status != "" && !ValidProjectStatus(p.Status) {
		return fmt.Errorf("invalid project status %q", p.Status)
	}
	if p.RiskAssessment.RiskLevel != "" && !ValidRiskLevel(p.RiskAssessment.RiskLevel) {
		return fmt.Errorf("invalid risk_level %q", p.RiskAssessment.RiskLevel)
	}
	if p.Budget < 0 || p.EstimatedHours < 0 {
		return fmt.Errorf("budget and estimated_hours must not be negative")
	}
	if p.Progress < 0 || p.Progress > 100 {
		return fmt.Errorf("progress must be between 0 and 100")
	}
	return nil
}
