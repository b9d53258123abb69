package repository

import (
	"context"
	"errors"

	"freelanceos/internal/model"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidQuery = errors.New("invalid query")
	ErrDuplicate    = errors.New("duplicate key")
)

// MaxLimit caps every list and filter call.
const MaxLimit = 1000

// Event is written to the outbox in the same transaction as the entity change.
type Event struct {
	RoutingKey string
	Payload    any
}

// Store is the per-type CRUD surface over the entity table.
type Store[T model.Entity] interface {
	List(ctx context.Context, sort string, limit int) ([]T, error)
	Filter(ctx context.Context, query map[string]any, sort string, limit int) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, obj *T, events ...Event) (*T, error)
	Update(ctx context.Context, id string, patch map[string]any, events ...Event) (*T, error)
	Delete(ctx context.Context, id string) error
}

// EventWriter writes outbox events that are not tied to an entity write.
type EventWriter interface {
	Emit(ctx context.Context, aggregateType, aggregateID string, ev Event) error
}
