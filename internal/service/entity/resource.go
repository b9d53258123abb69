package entity

import (
	"context"
	"errors"
	"fmt"

	"freelanceos/internal/model"
	"freelanceos/internal/repository"
	"freelanceos/internal/service/auth"
	"freelanceos/pkg/rbac"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrUnknownType = errors.New("unknown entity type")
)

// Resource is the untyped CRUD surface the HTTP layer dispatches to by entity type name.
type Resource interface {
	Type() string
	List(ctx context.Context, query map[string]any, sort string, limit int) (any, error)
	Get(ctx context.Context, id string) (any, error)
	Create(ctx context.Context, body []byte) (any, error)
	Update(ctx context.Context, id string, patch map[string]any) (any, error)
	Delete(ctx context.Context, id string) error
}

// Hooks customise a typed resource.
type Hooks[T model.Entity] struct {
	// Prepare fills defaults before validation on create.
	Prepare func(ctx context.Context, obj *T)
	// Validate runs on create and on the merged document before update.
	Validate func(obj *T) error
	// Events are written to the outbox together with the created document.
	Events func(obj *T) []repository.Event
}

type resource[T model.Entity] struct {
	store      repository.Store[T]
	hooks      Hooks[T]
	entityType string
}

func New[T model.Entity](store repository.Store[T], hooks Hooks[T]) Resource {
	var zero T
	return &resource[T]{store: store, hooks: hooks, entityType: zero.EntityType()}
}

func (r *resource[T]) Type() string { return r.entityType }

func (r *resource[T]) List(ctx context.Context, query map[string]any, sort string, limit int) (any, error) {
	actor := auth.ActorFrom(ctx)
	if actor.IsClient() {
		if !model.ClientScoped(r.entityType) {
			return nil, r.denied(actor, false)
		}
		scoped := make(map[string]any, len(query)+1)
		for k, v := range query {
			scoped[k] = v
		}
		scoped["client_id"] = actor.ClientID
		query = scoped
	}
	return r.store.Filter(ctx, query, sort, limit)
}

func (r *resource[T]) Get(ctx context.Context, id string) (any, error) {
	obj, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	actor := auth.ActorFrom(ctx)
	if actor.IsClient() && (!model.ClientScoped(r.entityType) || ClientIDOf(obj) != actor.ClientID) {
		return nil, repository.ErrNotFound
	}
	return obj, nil
}

func (r *resource[T]) Create(ctx context.Context, body []byte) (any, error) {
	actor := auth.ActorFrom(ctx)
	if actor.IsClient() && r.entityType != model.TypeMessage {
		return nil, r.denied(actor, true)
	}

	obj, err := decodeBody[T](body)
	if err != nil {
		return nil, err
	}
	if actor.IsClient() {
		obj, err = forcePortalFields(obj, actor)
		if err != nil {
			return nil, err
		}
	}
	if r.hooks.Prepare != nil {
		r.hooks.Prepare(ctx, obj)
	}
	if r.hooks.Validate != nil {
		if err := r.hooks.Validate(obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	obj, err = withCreatedBy(obj, actor.UserID)
	if err != nil {
		return nil, err
	}

	var events []repository.Event
	if r.hooks.Events != nil {
		events = r.hooks.Events(obj)
	}
	return r.store.Create(ctx, obj, events...)
}

func (r *resource[T]) Update(ctx context.Context, id string, patch map[string]any) (any, error) {
	actor := auth.ActorFrom(ctx)
	if actor.IsClient() {
		return nil, r.denied(actor, true)
	}

	if r.hooks.Validate != nil {
		existing, err := r.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		merged, err := MergePatch(existing, patch)
		if err != nil {
			return nil, err
		}
		if err := r.hooks.Validate(merged); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return r.store.Update(ctx, id, patch)
}

func (r *resource[T]) Delete(ctx context.Context, id string) error {
	actor := auth.ActorFrom(ctx)
	if actor.IsClient() {
		return r.denied(actor, true)
	}
	return r.store.Delete(ctx, id)
}

func (r *resource[T]) denied(actor auth.Actor, write bool) error {
	return &rbac.PermissionDeniedError{Role: actor.Role, Permission: rbac.EntityPermission(r.entityType, write)}
}

// Registry resolves resources by entity type name.
type Registry struct {
	resources map[string]Resource
}

func NewRegistry(resources ...Resource) *Registry {
	reg := &Registry{resources: make(map[string]Resource, len(resources))}
	for _, res := range resources {
		reg.resources[res.Type()] = res
	}
	return reg
}

func (r *Registry) Resource(entityType string) (Resource, error) {
	res, ok := r.resources[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, entityType)
	}
	return res, nil
}
