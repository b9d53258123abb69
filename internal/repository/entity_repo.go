package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/pkg/otel"
	"freelanceos/pkg/outbox"
)

// EntityRepository stores one entity type as JSONB documents in the entities table.
type EntityRepository[T model.Entity] struct {
	db         *pgxpool.Pool
	outbox     *outbox.Repository
	entityType string
	logger     *zap.Logger
}

func NewEntityRepository[T model.Entity](db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *EntityRepository[T] {
	var zero T
	return &EntityRepository[T]{
		db:         db,
		outbox:     ob,
		entityType: zero.EntityType(),
		logger:     logger,
	}
}

func (r *EntityRepository[T]) List(ctx context.Context, sort string, limit int) ([]T, error) {
	return r.Filter(ctx, nil, sort, limit)
}

func (r *EntityRepository[T]) Filter(ctx context.Context, query map[string]any, sort string, limit int) (out []T, err error) {
	ctx, end := r.span(ctx, "filter")
	defer func() { end(err) }()

	sql, args, err := buildSelect(r.entityType, query, sort, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", r.entityType, err)
	}
	defer rows.Close()

	out = make([]T, 0)
	for rows.Next() {
		item, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *EntityRepository[T]) Get(ctx context.Context, id string) (_ *T, err error) {
	ctx, end := r.span(ctx, "get")
	defer func() { end(err) }()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `
		SELECT id::text, data, created_date, updated_date, created_by
		FROM entities
		WHERE id = $1 AND entity_type = $2
	`, id, r.entityType)

	item, err := r.scan(row)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *EntityRepository[T]) Create(ctx context.Context, obj *T, events ...Event) (_ *T, err error) {
	ctx, end := r.span(ctx, "create")
	defer func() { end(err) }()

	doc, meta, err := toDocument(obj)
	if err != nil {
		return nil, err
	}
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}

	var created T
	err = r.inTx(ctx, len(events) > 0, func(q querier) error {
		row := q.QueryRow(ctx, `
			INSERT INTO entities (id, entity_type, data, created_by)
			VALUES ($1, $2, $3, $4)
			RETURNING id::text, data, created_date, updated_date, created_by
		`, meta.ID, r.entityType, doc, meta.CreatedBy)
		item, err := r.scan(row)
		if err != nil {
			return err
		}
		created = item
		return r.writeEvents(ctx, q, meta.ID, events)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *EntityRepository[T]) Update(ctx context.Context, id string, patch map[string]any, events ...Event) (_ *T, err error) {
	ctx, end := r.span(ctx, "update")
	defer func() { end(err) }()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	patch, err = normalize(patch)
	if err != nil {
		return nil, err
	}
	if patch == nil {
		patch = map[string]any{}
	}
	stripMeta(patch)

	var updated T
	err = r.inTx(ctx, len(events) > 0, func(q querier) error {
		row := q.QueryRow(ctx, `
			UPDATE entities
			SET data = data || $3::jsonb, updated_date = NOW()
			WHERE id = $1 AND entity_type = $2
			RETURNING id::text, data, created_date, updated_date, created_by
		`, id, r.entityType, patch)
		item, err := r.scan(row)
		if err != nil {
			return err
		}
		updated = item
		return r.writeEvents(ctx, q, id, events)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *EntityRepository[T]) Delete(ctx context.Context, id string) (err error) {
	ctx, end := r.span(ctx, "delete")
	defer func() { end(err) }()

	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM entities WHERE id = $1 AND entity_type = $2`, id, r.entityType)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.entityType, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// inTx runs fn inside a transaction when withTx is set, otherwise against the pool.
func (r *EntityRepository[T]) inTx(ctx context.Context, withTx bool, fn func(q querier) error) error {
	if !withTx {
		return fn(r.db)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(txQuerier{tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type txQuerier struct{ pgx.Tx }

func (r *EntityRepository[T]) writeEvents(ctx context.Context, q querier, id string, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	tq, ok := q.(txQuerier)
	if !ok {
		return fmt.Errorf("outbox events require a transaction")
	}
	for _, ev := range events {
		if err := outbox.InsertEventInTx(ctx, tq.Tx, r.outbox, r.entityType, id, ev.RoutingKey, ev.Payload); err != nil {
			return err
		}
	}
	return nil
}

func (r *EntityRepository[T]) scan(row pgx.Row) (T, error) {
	var (
		meta model.Meta
		data []byte
	)
	if err := row.Scan(&meta.ID, &data, &meta.CreatedDate, &meta.UpdatedDate, &meta.CreatedBy); err != nil {
		var zero T
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return zero, fmt.Errorf("%w: %s", ErrDuplicate, pgErr.Detail)
		}
		return zero, fmt.Errorf("scan %s: %w", r.entityType, err)
	}
	return fromDocument[T](data, meta)
}

func (r *EntityRepository[T]) span(ctx context.Context, op string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.StartSpan(ctx, "entities."+op)
	span.SetAttributes(attribute.String("entity.type", r.entityType))
	return ctx, func(err error) {
		if err != nil && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.Warn("Entity store operation failed",
				zap.String("entity_type", r.entityType),
				zap.String("operation", op),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
		}
		span.End()
	}
}
