package model

import "fmt"

const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskCompleted  = "completed"
)

// TaskStatuses is the board column order.
var TaskStatuses = []string{TaskTodo, TaskInProgress, TaskReview, TaskCompleted}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var TaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

var PriorityMatrixValues = []string{
	"urgent_important", "not_urgent_important", "urgent_not_important", "not_urgent_not_important",
}

type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Task struct {
	Meta
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	ProjectID      string    `json:"project_id,omitempty"`
	ClientID       string    `json:"client_id,omitempty"`
	Status         string    `json:"status"`
	Priority       string    `json:"priority"`
	PriorityMatrix string    `json:"priority_matrix,omitempty"`
	DueDate        string    `json:"due_date,omitempty"`
	StartDate      string    `json:"start_date,omitempty"`
	Assignee       string    `json:"assignee,omitempty"`
	EstimatedHours float64   `json:"estimated_hours,omitempty"`
	ActualHours    float64   `json:"actual_hours,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	Dependencies   []string  `json:"dependencies,omitempty"`
	Subtasks       []Subtask `json:"subtasks,omitempty"`
	AISuggested    bool      `json:"ai_suggested,omitempty"`
}

func (Task) EntityType() string { return TypeTask }

func ValidTaskStatus(s string) bool   { return oneOf(s, TaskStatuses...) }
func ValidTaskPriority(s string) bool { return oneOf(s, TaskPriorities...) }
func ValidPriorityMatrix(s string) bool {
	return oneOf(s, PriorityMatrixValues...)
}

// PriorityRank orders priorities urgent > high > medium > low; unknown values rank lowest.
func PriorityRank(p string) int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !ValidTaskStatus(t.Status) {
		return fmt.Errorf("invalid task status %q", t.Status)
	}
	if t.Priority != "" && !ValidTaskPriority(t.Priority) {
		return fmt.Errorf("invalid task priority %q", t.Priority)
	}
	if t.PriorityMatrix != "" && !ValidPriorityMatrix(t.PriorityMatrix) {
		return fmt.Errorf("invalid priority_matrix %q", t.PriorityMatrix)
	}
	if t.EstimatedHours < 0 || t.ActualHours < 0 {
		return fmt.Errorf("hours must not be negative")
	}
	return nil
}
