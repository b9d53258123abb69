package model

import (
	"strings"
	"time"
)

// Entity is implemented by every document type persisted in the entity store.
type Entity interface {
	EntityType() string
}

// Meta holds the columns the store manages outside the JSON document.
type Meta struct {
	ID          string    `json:"id,omitempty"`
	CreatedDate time.Time `json:"created_date,omitempty"`
	UpdatedDate time.Time `json:"updated_date,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// MetaKeys are stripped from documents before they are written.
var MetaKeys = []string{"id", "created_date", "updated_date", "created_by"}

const (
	TypeClient       = "Client"
	TypeProject      = "Project"
	TypeTask         = "Task"
	TypeMessage      = "Message"
	TypeInvoice      = "Invoice"
	TypeTimeEntry    = "TimeEntry"
	TypeExpense      = "Expense"
	TypeReport       = "Report"
	TypeBusinessGoal = "BusinessGoal"
	TypeKPIMetric    = "KPIMetric"
	TypeConversation = "Conversation"
)

// EntityTypes lists the types exposed through the generic entity API.
var EntityTypes = []string{
	TypeClient, TypeProject, TypeTask, TypeMessage, TypeInvoice, TypeTimeEntry,
	TypeExpense, TypeReport, TypeBusinessGoal, TypeKPIMetric, TypeConversation,
}

// ClientScoped reports whether documents of the type carry a client_id.
func ClientScoped(entityType string) bool {
	switch entityType {
	case TypeProject, TypeTask, TypeMessage, TypeInvoice:
		return true
	}
	return false
}

// KnownEntityType reports whether t is one of EntityTypes.
func KnownEntityType(t string) bool {
	for _, et := range EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
