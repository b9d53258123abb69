package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/pkg/mq"
)

// Orchestrator runs the periodic bookkeeping jobs.
type Orchestrator struct {
	invoices repository.Store[model.Invoice]
	logger   *zap.Logger
	now      func() time.Time
}

func NewOrchestrator(invoices repository.Store[model.Invoice], logger *zap.Logger) *Orchestrator {
	return &Orchestrator{invoices: invoices, logger: logger, now: time.Now}
}

// CheckAndMarkOverdue moves sent invoices whose due date has passed to
// overdue. Each update carries an invoice.overdue event through the outbox.
func (o *Orchestrator) CheckAndMarkOverdue(ctx context.Context) (int, error) {
	sent, err := o.invoices.Filter(ctx, map[string]any{"status": model.InvoiceSent}, "due_date", repository.MaxLimit)
	if err != nil {
		return 0, fmt.Errorf("list sent invoices: %w", err)
	}

	today := o.now().UTC().Truncate(24 * time.Hour)
	marked := 0
	for _, inv := range sent {
		due, ok := model.ParseDate(inv.DueDate)
		if !ok || !due.Before(today) {
			continue
		}
		ev := repository.Event{
			RoutingKey: mq.RoutingInvoiceOverdue,
			Payload: model.InvoiceOverdueEvent{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				ClientID:      inv.ClientID,
				Amount:        inv.Amount,
				DueDate:       inv.DueDate,
			},
		}
		if _, err := o.invoices.Update(ctx, inv.ID, map[string]any{"status": model.InvoiceOverdue}, ev); err != nil {
			o.logger.Error("Failed to mark invoice overdue", zap.String("invoice_id", inv.ID), zap.Error(err))
			continue
		}
		marked++
		o.logger.Info("Invoice marked overdue",
			zap.String("invoice_id", inv.ID),
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("due_date", inv.DueDate),
		)
	}

	if marked > 0 {
		o.logger.Info("Overdue check completed", zap.Int("overdue_count", marked), zap.Int("checked", len(sent)))
	}
	return marked, nil
}

// Run executes every job immediately and then on each tick until ctx is done.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Orchestrator stopped")
			return
		case <-ticker.C:
			o.tick(ctx)
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context) {
	if _, err := o.CheckAndMarkOverdue(ctx); err != nil {
		o.logger.Error("Overdue check failed", zap.Error(err))
	}
}
