package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"freelanceos/internal/model"
)

const (
	draftTTL     = 24 * time.Hour
	suggestedTTL = 7 * 24 * time.Hour
)

var ErrDraftNotFound = errors.New("wizard draft not found")

// DraftStore keeps drafts and the post-completion suggested-task stash.
type DraftStore interface {
	Save(ctx context.Context, d *Draft) error
	Load(ctx context.Context, id string) (*Draft, error)
	Delete(ctx context.Context, id string) error
	SaveSuggested(ctx context.Context, projectID string, tasks []model.SuggestedTask) error
	LoadSuggested(ctx context.Context, projectID string) ([]model.SuggestedTask, error)
	DeleteSuggested(ctx context.Context, projectID string) error
}

func draftKey(id string) string            { return "wizard:draft:" + id }
func suggestedKey(projectID string) string { return "wizard:suggested:" + projectID }

// RedisDraftStore stores drafts as JSON strings with a TTL.
type RedisDraftStore struct {
	rdb redis.Cmdable
}

func NewRedisDraftStore(rdb redis.Cmdable) *RedisDraftStore {
	return &RedisDraftStore{rdb: rdb}
}

func (s *RedisDraftStore) Save(ctx context.Context, d *Draft) error {
	return s.set(ctx, draftKey(d.ID), d, draftTTL)
}

func (s *RedisDraftStore) Load(ctx context.Context, id string) (*Draft, error) {
	var d Draft
	if err := s.get(ctx, draftKey(id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, draftKey(id)).Err()
}

func (s *RedisDraftStore) SaveSuggested(ctx context.Context, projectID string, tasks []model.SuggestedTask) error {
	return s.set(ctx, suggestedKey(projectID), tasks, suggestedTTL)
}

func (s *RedisDraftStore) LoadSuggested(ctx context.Context, projectID string) ([]model.SuggestedTask, error) {
	var tasks []model.SuggestedTask
	if err := s.get(ctx, suggestedKey(projectID), &tasks); err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return tasks, nil
}

func (s *RedisDraftStore) DeleteSuggested(ctx context.Context, projectID string) error {
	return s.rdb.Del(ctx, suggestedKey(projectID)).Err()
}

func (s *RedisDraftStore) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisDraftStore) get(ctx context.Context, key string, out any) error {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrDraftNotFound
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	return json.Unmarshal(raw, out)
}

// MemoryDraftStore is an in-process DraftStore without expiry.
type MemoryDraftStore struct {
	mu        sync.Mutex
	drafts    map[string][]byte
	suggested map[string][]model.SuggestedTask
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: map[string][]byte{}, suggested: map[string][]model.SuggestedTask{}}
}

func (s *MemoryDraftStore) Save(_ context.Context, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.ID] = raw
	return nil
}

func (s *MemoryDraftStore) Load(_ context.Context, id string) (*Draft, error) {
	s.mu.Lock()
	raw, ok := s.drafts[id]
	s.mu.Unlock()
	if !ok {
		return nil, ErrDraftNotFound
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}

func (s *MemoryDraftStore) SaveSuggested(_ context.Context, projectID string, tasks []model.SuggestedTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggested[projectID] = append([]model.SuggestedTask(nil), tasks...)
	return nil
}

func (s *MemoryDraftStore) LoadSuggested(_ context.Context, projectID string) ([]model.SuggestedTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SuggestedTask(nil), s.suggested[projectID]...), nil
}

func (s *MemoryDraftStore) DeleteSuggested(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.suggested, projectID)
	return nil
}
