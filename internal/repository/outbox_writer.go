package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"freelanceos/pkg/outbox"
)

// OutboxWriter emits standalone events through the outbox table.
type OutboxWriter struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
}

func NewOutboxWriter(db *pgxpool.Pool, ob *outbox.Repository) *OutboxWriter {
	return &OutboxWriter{db: db, outbox: ob}
}

func (w *OutboxWriter) Emit(ctx context.Context, aggregateType, aggregateID string, ev Event) error {
	tx, err := w.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := outbox.InsertEventInTx(ctx, tx, w.outbox, aggregateType, aggregateID, ev.RoutingKey, ev.Payload); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
