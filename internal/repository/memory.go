package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"freelanceos/internal/model"
)

// RecordedEvent is an outbox event captured by the in-memory stores.
type RecordedEvent struct {
	AggregateType string
	AggregateID   string
	RoutingKey    string
	Payload       any
}

// EventLog collects events emitted by memory stores; safe for concurrent use.
type EventLog struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func (l *EventLog) record(ev RecordedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Events returns a copy of everything recorded so far.
func (l *EventLog) Events() []RecordedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RecordedEvent(nil), l.events...)
}

// Emit implements EventWriter.
func (l *EventLog) Emit(_ context.Context, aggregateType, aggregateID string, ev Event) error {
	l.record(RecordedEvent{AggregateType: aggregateType, AggregateID: aggregateID, RoutingKey: ev.RoutingKey, Payload: ev.Payload})
	return nil
}

type memRecord struct {
	meta model.Meta
	data map[string]any
}

// Memory is an in-process Store used by tests and the MCP dry-run mode.
// Queries follow the same containment and ordering rules as EntityRepository.
type Memory[T model.Entity] struct {
	mu         sync.Mutex
	records    map[string]*memRecord
	entityType string
	now        func() time.Time
	seq        int
	calls      map[string]int
	Log        *EventLog
	// FailUpdate, when set, is consulted before every Update.
	FailUpdate func(id string, patch map[string]any) error
}

func NewMemory[T model.Entity](log *EventLog) *Memory[T] {
	var zero T
	if log == nil {
		log = &EventLog{}
	}
	return &Memory[T]{
		records:    map[string]*memRecord{},
		entityType: zero.EntityType(),
		now:        time.Now,
		calls:      map[string]int{},
		Log:        log,
	}
}

// Calls reports how many times op was invoked.
func (m *Memory[T]) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Seed inserts items without counting calls or emitting events.
func (m *Memory[T]) Seed(items ...T) []T {
	out := make([]T, 0, len(items))
	for i := range items {
		created, err := m.create(&items[i])
		if err != nil {
			panic(err)
		}
		out = append(out, *created)
	}
	return out
}

func (m *Memory[T]) List(ctx context.Context, sort string, limit int) ([]T, error) {
	return m.Filter(ctx, nil, sort, limit)
}

func (m *Memory[T]) Filter(_ context.Context, query map[string]any, sortArg string, limit int) ([]T, error) {
	spec, err := ParseSort(sortArg)
	if err != nil {
		return nil, err
	}
	query, err = normalize(query)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["filter"]++

	var matched []*memRecord
	for _, rec := range m.records {
		if query == nil || contains(rec.data, query) {
			matched = append(matched, rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return lessRecords(matched[i], matched[j], spec)
	})

	limit = ClampLimit(limit)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]T, 0, len(matched))
	for _, rec := range matched {
		item, err := decodeRecord[T](rec)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *Memory[T]) Get(_ context.Context, id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get"]++

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	item, err := decodeRecord[T](rec)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *Memory[T]) Create(_ context.Context, obj *T, events ...Event) (*T, error) {
	m.mu.Lock()
	m.calls["create"]++
	m.mu.Unlock()

	created, err := m.create(obj)
	if err != nil {
		return nil, err
	}
	id := metaOf(created).ID
	for _, ev := range events {
		m.Log.record(RecordedEvent{AggregateType: m.entityType, AggregateID: id, RoutingKey: ev.RoutingKey, Payload: ev.Payload})
	}
	return created, nil
}

func (m *Memory[T]) create(obj *T) (*T, error) {
	doc, meta, err := toDocument(obj)
	if err != nil {
		return nil, err
	}
	doc, err = normalize(doc)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if _, exists := m.records[meta.ID]; exists {
		return nil, fmt.Errorf("%w: id %s", ErrDuplicate, meta.ID)
	}
	// seq keeps created_date strictly increasing so default ordering is deterministic.
	m.seq++
	now := m.now().UTC().Add(time.Duration(m.seq) * time.Microsecond)
	meta.CreatedDate, meta.UpdatedDate = now, now
	rec := &memRecord{meta: meta, data: doc}
	m.records[meta.ID] = rec

	item, err := decodeRecord[T](rec)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (m *Memory[T]) Update(_ context.Context, id string, patch map[string]any, events ...Event) (*T, error) {
	m.mu.Lock()
	m.calls["update"]++
	fail := m.FailUpdate
	m.mu.Unlock()

	if fail != nil {
		if err := fail(id, patch); err != nil {
			return nil, err
		}
	}

	patch, err := normalize(patch)
	if err != nil {
		return nil, err
	}
	stripMeta(patch)

	m.mu.Lock()
	rec, ok := m.records[id]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotFound
	}
	for k, v := range patch {
		rec.data[k] = v
	}
	rec.meta.UpdatedDate = m.now().UTC()
	item, err := decodeRecord[T](rec)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, ev := range events {
		m.Log.record(RecordedEvent{AggregateType: m.entityType, AggregateID: id, RoutingKey: ev.RoutingKey, Payload: ev.Payload})
	}
	return &item, nil
}

func (m *Memory[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["delete"]++
	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func decodeRecord[T model.Entity](r *memRecord) (T, error) {
	raw, err := json.Marshal(r.data)
	if err != nil {
		var zero T
		return zero, err
	}
	return fromDocument[T](raw, r.meta)
}

func metaOf(v any) model.Meta {
	_, meta, _ := toDocument(v)
	return meta
}

// contains mirrors the jsonb @> operator for decoded JSON values.
func contains(doc, query any) bool {
	switch q := query.(type) {
	case map[string]any:
		d, ok := doc.(map[string]any)
		if !ok {
			return false
		}
		for k, qv := range q {
			dv, ok := d[k]
			if !ok || !contains(dv, qv) {
				return false
			}
		}
		return true
	case []any:
		d, ok := doc.([]any)
		if !ok {
			return false
		}
		for _, qv := range q {
			found := false
			for _, dv := range d {
				if contains(dv, qv) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return doc == query
	}
}

func lessRecords(a, b *memRecord, spec SortSpec) bool {
	var av, bv any
	switch spec.Field {
	case "created_date":
		av, bv = a.meta.CreatedDate, b.meta.CreatedDate
	case "updated_date":
		av, bv = a.meta.UpdatedDate, b.meta.UpdatedDate
	case "id":
		av, bv = a.meta.ID, b.meta.ID
	case "created_by":
		av, bv = a.meta.CreatedBy, b.meta.CreatedBy
	default:
		av, bv = a.data[spec.Field], b.data[spec.Field]
	}

	// NULLS LAST in both directions
	if av == nil || bv == nil {
		if av == nil && bv == nil {
			return a.meta.CreatedDate.After(b.meta.CreatedDate)
		}
		return bv == nil
	}

	c := compareValues(av, bv)
	if c == 0 {
		return a.meta.CreatedDate.After(b.meta.CreatedDate)
	}
	if spec.Desc {
		return c > 0
	}
	return c < 0
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		bt := b.(time.Time)
		return av.Compare(bt)
	case float64:
		if bf, ok := b.(float64); ok {
			switch {
			case av < bf:
				return -1
			case av > bf:
				return 1
			}
			return 0
		}
	case string:
		if bs, ok := b.(string); ok {
			return strings.Compare(av, bs)
		}
	case bool:
		if bb, ok := b.(bool); ok {
			switch {
			case av == bb:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
