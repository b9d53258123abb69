package wizard

import (
	"fmt"
	"strings"

	"freelanceos/internal/model"
)

var riskSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"predicted_risk":         map[string]any{"type": "string", "enum": model.RiskLevels},
		"risk_factors":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"suggested_buffer_hours": map[string]any{"type": "number"},
		"suggested_deadline":     map[string]any{"type": "string"},
		"confidence_score":       map[string]any{"type": "number"},
	},
	"required": []string{"predicted_risk", "risk_factors", "suggested_buffer_hours", "confidence_score"},
}

var taskSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tasks": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":           map[string]any{"type": "string"},
					"description":     map[string]any{"type": "string"},
					"estimated_hours": map[string]any{"type": "number"},
					"priority":        map[string]any{"type": "string", "enum": model.TaskPriorities},
					"dependencies":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"subtasks":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"title", "estimated_hours", "priority"},
			},
		},
	},
	"required": []string{"tasks"},
}

func projectBrief(p *model.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if p.ProjectType != "" {
		fmt.Fprintf(&b, "Type: %s\n", p.ProjectType)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&b, "Budget: %.2f\n", p.Budget)
	if p.HourlyRate > 0 {
		fmt.Fprintf(&b, "Hourly rate: %.2f\n", p.HourlyRate)
	}
	fmt.Fprintf(&b, "Estimated hours: %.1f\n", p.EstimatedHours)
	if p.StartDate != "" {
		fmt.Fprintf(&b, "Start date: %s\n", p.StartDate)
	}
	if p.Deadline != "" {
		fmt.Fprintf(&b, "Deadline: %s\n", p.Deadline)
	}
	if len(p.Deliverables) > 0 {
		b.WriteString("Deliverables:\n")
		for _, d := range p.Deliverables {
			fmt.Fprintf(&b, "- %s", d.Title)
			if d.DueDate != "" {
				fmt.Fprintf(&b, " (due %s)", d.DueDate)
			}
			b.WriteString("\n")
		}
	}
	if len(p.Milestones) > 0 {
		b.WriteString("Milestones:\n")
		for _, m := range p.Milestones {
			fmt.Fprintf(&b, "- %s", m.Title)
			if m.DueDate != "" {
				fmt.Fprintf(&b, " (due %s)", m.DueDate)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func riskPrompt(p *model.Project) string {
	return "You are an experienced freelance project manager. Assess the delivery risk of this project.\n\n" +
		projectBrief(p) +
		"\nReturn predicted_risk (low, medium, high or critical), the main risk_factors, " +
		"suggested_buffer_hours, a realistic suggested_deadline (YYYY-MM-DD) and a confidence_score from 0 to 100."
}

func tasksPrompt(p *model.Project) string {
	prompt := "Break this freelance project down into concrete tasks.\n\n" + projectBrief(p)
	if p.RiskAssessment.RiskLevel != "" {
		prompt += fmt.Sprintf("Risk level: %s\n", p.RiskAssessment.RiskLevel)
	}
	return prompt + "\nFor each task give a title, estimated_hours, priority (low, medium, high or urgent), " +
		"dependencies as titles of other tasks in the list, and short subtasks."
}
