package model

// SuggestedTask is one AI-proposed task from the wizard's decomposition step.
// Dependencies reference other suggested tasks by title.
type SuggestedTask struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	EstimatedHours float64  `json:"estimated_hours"`
	Priority       string   `json:"priority"`
	Dependencies   []string `json:"dependencies,omitempty"`
	Subtasks       []string `json:"subtasks,omitempty"`
}

// ProjectCreatedEvent is published when the wizard persists a project.
type ProjectCreatedEvent struct {
	ProjectID          string `json:"project_id"`
	ClientID           string `json:"client_id"`
	Title              string `json:"title"`
	CreatedBy          string `json:"created_by,omitempty"`
	SuggestedTaskCount int    `json:"suggested_task_count"`
}

// TaskBulkCreatedEvent asks the worker to materialise accepted suggestions.
type TaskBulkCreatedEvent struct {
	ProjectID string          `json:"project_id"`
	ClientID  string          `json:"client_id,omitempty"`
	CreatedBy string          `json:"created_by,omitempty"`
	Tasks     []SuggestedTask `json:"tasks"`
}

// TaskStatusChangedEvent is published by board moves.
type TaskStatusChangedEvent struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// MessageReceivedEvent triggers asynchronous AI analysis of an inbound message.
type MessageReceivedEvent struct {
	MessageID string `json:"message_id"`
	ClientID  string `json:"client_id,omitempty"`
	Channel   string `json:"channel"`
}

// InvoiceOverdueEvent is published by the invoice runner.
type InvoiceOverdueEvent struct {
	InvoiceID     string  `json:"invoice_id"`
	InvoiceNumber string  `json:"invoice_number"`
	ClientID      string  `json:"client_id"`
	Amount        float64 `json:"amount"`
	DueDate       string  `json:"due_date"`
}
