package model

import "fmt"

const (
	InvoiceDraft     = "draft"
	InvoiceSent      = "sent"
	InvoicePaid      = "paid"
	InvoiceOverdue   = "overdue"
	InvoiceCancelled = "cancelled"
)

type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

type Invoice struct {
	Meta
	InvoiceNumber string     `json:"invoice_number"`
	ClientID      string     `json:"client_id"`
	ProjectID     string     `json:"project_id,omitempty"`
	Amount        float64    `json:"amount"`
	Tax           float64    `json:"tax,omitempty"`
	Status        string     `json:"status"`
	IssueDate     string     `json:"issue_date,omitempty"`
	DueDate       string     `json:"due_date,omitempty"`
	PaidDate      string     `json:"paid_date,omitempty"`
	LineItems     []LineItem `json:"line_items,omitempty"`
}

func (Invoice) EntityType() string { return TypeInvoice }

func ValidInvoiceStatus(s string) bool {
	return oneOf(s, InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceOverdue, InvoiceCancelled)
}

func (i *Invoice) Validate() error {
	if !ValidInvoiceStatus(i.Status) {
		return fmt.Errorf("invalid invoice status %q", i.Status)
	}
	if i.Amount < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	return nil
}

type TimeEntry struct {
	Meta
	ProjectID   string  `json:"project_id"`
	TaskID      string  `json:"task_id,omitempty"`
	Description string  `json:"description,omitempty"`
	Hours       float64 `json:"hours"`
	Billable    bool    `json:"billable"`
	HourlyRate  float64 `json:"hourly_rate,omitempty"`
	Date        string  `json:"date,omitempty"`
	User        string  `json:"user,omitempty"`
}

func (TimeEntry) EntityType() string { return TypeTimeEntry }

func (e *TimeEntry) Validate() error {
	if e.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if e.Hours <= 0 {
		return fmt.Errorf("hours must be positive")
	}
	if e.HourlyRate < 0 {
		return fmt.Errorf("hourly_rate must not be negative")
	}
	if _, ok := ParseDate(e.Date); e.Date != "" && !ok {
		return fmt.Errorf("invalid date %q", e.Date)
	}
	return nil
}

type Expense struct {
	Meta
	ProjectID   string  `json:"project_id,omitempty"`
	Category    string  `json:"category,omitempty"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date,omitempty"`
	Description string  `json:"description,omitempty"`
	Billable    bool    `json:"billable"`
}

func (Expense) EntityType() string { return TypeExpense }

func (e *Expense) Validate() error {
	if e.Amount < 0 {
		return fmt.Errorf("amount must not be negative")
	}
	if _, ok := ParseDate(e.Date); e.Date != "" && !ok {
		return fmt.Errorf("invalid date %q", e.Date)
	}
	return nil
}
