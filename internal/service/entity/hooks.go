package entity

import (
	"context"

	"github.com/google/uuid"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/report"
	"freelanceos/pkg/mq"
)

// Resources builds the registry for every type exposed through /api/entities.
func Resources(s *repository.Stores) *Registry {
	return NewRegistry(
		New(s.Clients, Hooks[model.Client]{
			Prepare: func(_ context.Context, c *model.Client) {
				if c.RelationshipStatus == "" {
					c.RelationshipStatus = model.RelationshipProspect
				}
			},
			Validate: func(c *model.Client) error { return c.Validate() },
		}),
		New(s.Projects, Hooks[model.Project]{
			Prepare: func(_ context.Context, p *model.Project) {
				if p.Status == "" {
					p.Status = model.ProjectPlanning
				}
			},
			Validate: func(p *model.Project) error { return p.Validate() },
		}),
		New(s.Tasks, Hooks[model.Task]{
			Prepare: func(_ context.Context, t *model.Task) {
				if t.Status == "" {
					t.Status = model.TaskTodo
				}
				if t.Priority == "" {
					t.Priority = model.PriorityMedium
				}
			},
			Validate: func(t *model.Task) error { return t.Validate() },
		}),
		New(s.Messages, Hooks[model.Message]{
			Prepare: func(_ context.Context, m *model.Message) {
				if m.ID == "" {
					m.ID = uuid.NewString()
				}
				if m.Status == "" {
					m.Status = model.MessageUnread
				}
				if m.Channel == "" {
					m.Channel = model.ChannelInternal
				}
				if m.ThreadID == "" {
					m.ThreadID = m.ID
				}
			},
			Validate: func(m *model.Message) error { return m.Validate() },
			Events: func(m *model.Message) []repository.Event {
				if m.Status != model.MessageUnread {
					return nil
				}
				return []repository.Event{{
					RoutingKey: mq.RoutingMessageReceived,
					Payload:    model.MessageReceivedEvent{MessageID: m.ID, ClientID: m.ClientID, Channel: m.Channel},
				}}
			},
		}),
		New(s.Invoices, Hooks[model.Invoice]{
			Prepare: func(_ context.Context, i *model.Invoice) {
				if i.Status == "" {
					i.Status = model.InvoiceDraft
				}
			},
			Validate: func(i *model.Invoice) error { return i.Validate() },
		}),
		New(s.TimeEntries, Hooks[model.TimeEntry]{
			Validate: func(e *model.TimeEntry) error { return e.Validate() },
		}),
		New(s.Expenses, Hooks[model.Expense]{
			Validate: func(e *model.Expense) error { return e.Validate() },
		}),
		New(s.Reports, Hooks[model.Report]{Validate: report.ValidateConfig}),
		New(s.Goals, Hooks[model.BusinessGoal]{
			Validate: func(g *model.BusinessGoal) error { return g.Validate() },
		}),
		New(s.KPIs, Hooks[model.KPIMetric]{
			Validate: func(k *model.KPIMetric) error { return k.Validate() },
		}),
		New(s.Conversations, Hooks[model.Conversation]{}),
	)
}
