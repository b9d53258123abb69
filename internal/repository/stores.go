package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/pkg/outbox"
)

// Stores groups the typed entity stores every binary wires together.
type Stores struct {
	Clients       Store[model.Client]
	Projects      Store[model.Project]
	Tasks         Store[model.Task]
	Messages      Store[model.Message]
	Invoices      Store[model.Invoice]
	TimeEntries   Store[model.TimeEntry]
	Expenses      Store[model.Expense]
	Reports       Store[model.Report]
	Goals         Store[model.BusinessGoal]
	KPIs          Store[model.KPIMetric]
	Conversations Store[model.Conversation]
	Events        EventWriter
}

func NewPostgresStores(db *pgxpool.Pool, logger *zap.Logger) *Stores {
	ob := outbox.NewRepository(db)
	return &Stores{
		Clients:       NewEntityRepository[model.Client](db, ob, logger),
		Projects:      NewEntityRepository[model.Project](db, ob, logger),
		Tasks:         NewEntityRepository[model.Task](db, ob, logger),
		Messages:      NewEntityRepository[model.Message](db, ob, logger),
		Invoices:      NewEntityRepository[model.Invoice](db, ob, logger),
		TimeEntries:   NewEntityRepository[model.TimeEntry](db, ob, logger),
		Expenses:      NewEntityRepository[model.Expense](db, ob, logger),
		Reports:       NewEntityRepository[model.Report](db, ob, logger),
		Goals:         NewEntityRepository[model.BusinessGoal](db, ob, logger),
		KPIs:          NewEntityRepository[model.KPIMetric](db, ob, logger),
		Conversations: NewEntityRepository[model.Conversation](db, ob, logger),
		Events:        NewOutboxWriter(db, ob),
	}
}

// MemoryStores are the in-process counterparts sharing one EventLog.
type MemoryStores struct {
	*Stores
	Log           *EventLog
	Clients       *Memory[model.Client]
	Projects      *Memory[model.Project]
	Tasks         *Memory[model.Task]
	Messages      *Memory[model.Message]
	Invoices      *Memory[model.Invoice]
	TimeEntries   *Memory[model.TimeEntry]
	Expenses      *Memory[model.Expense]
	Reports       *Memory[model.Report]
	Goals         *Memory[model.BusinessGoal]
	KPIs          *Memory[model.KPIMetric]
	Conversations *Memory[model.Conversation]
}

func NewMemoryStores() *MemoryStores {
	log := &EventLog{}
	m := &MemoryStores{
		Log:           log,
		Clients:       NewMemory[model.Client](log),
		Projects:      NewMemory[model.Project](log),
		Tasks:         NewMemory[model.Task](log),
		Messages:      NewMemory[model.Message](log),
		Invoices:      NewMemory[model.Invoice](log),
		TimeEntries:   NewMemory[model.TimeEntry](log),
		Expenses:      NewMemory[model.Expense](log),
		Reports:       NewMemory[model.Report](log),
		Goals:         NewMemory[model.BusinessGoal](log),
		KPIs:          NewMemory[model.KPIMetric](log),
		Conversations: NewMemory[model.Conversation](log),
	}
	m.Stores = &Stores{
		Clients:       m.Clients,
		Projects:      m.Projects,
		Tasks:         m.Tasks,
		Messages:      m.Messages,
		Invoices:      m.Invoices,
		TimeEntries:   m.TimeEntries,
		Expenses:      m.Expenses,
		Reports:       m.Reports,
		Goals:         m.Goals,
		KPIs:          m.KPIs,
		Conversations: m.Conversations,
		Events:        log,
	}
	return m
}
