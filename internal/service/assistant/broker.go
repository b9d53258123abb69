package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"freelanceos/internal/model"
)

// Broker fans conversation updates out to subscribers across processes.
type Broker interface {
	Publish(ctx context.Context, conv *model.Conversation) error
	// Subscribe delivers updates until ctx is cancelled; the channel is then closed.
	Subscribe(ctx context.Context, conversationID string) (<-chan *model.Conversation, error)
}

func channelName(conversationID string) string { return "conversation:" + conversationID }

// RedisBroker uses Redis pub/sub, one channel per conversation.
type RedisBroker struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisBroker(rdb *redis.Client, logger *zap.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, conv *model.Conversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, channelName(conv.ID), raw).Err(); err != nil {
		return fmt.Errorf("publish conversation update: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, conversationID string) (<-chan *model.Conversation, error) {
	sub := b.rdb.Subscribe(ctx, channelName(conversationID))
	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", conversationID, err)
	}

	out := make(chan *model.Conversation, 8)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var conv model.Conversation
				if err := json.Unmarshal([]byte(msg.Payload), &conv); err != nil {
					b.logger.Warn("Dropping malformed conversation update",
						zap.String("conversation_id", conversationID), zap.Error(err))
					continue
				}
				select {
				case out <- &conv:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// MemoryBroker is an in-process Broker; slow subscribers miss updates rather than block publishers.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan *model.Conversation]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[string]map[chan *model.Conversation]struct{}{}}
}

func (b *MemoryBroker) Publish(_ context.Context, conv *model.Conversation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[conv.ID] {
		c := *conv
		select {
		case ch <- &c:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, conversationID string) (<-chan *model.Conversation, error) {
	ch := make(chan *model.Conversation, 8)
	b.mu.Lock()
	if b.subs[conversationID] == nil {
		b.subs[conversationID] = map[chan *model.Conversation]struct{}{}
	}
	b.subs[conversationID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[conversationID], ch)
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}
