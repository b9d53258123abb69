package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReplayService 提供重放 Outbox 事件的服务
type ReplayService struct {
	repo      Store
	publisher Publisher
	logger    *zap.Logger
}

// NewReplayService 创建新的 ReplayService
func NewReplayService(repo Store, publisher Publisher, logger *zap.Logger) *ReplayService {
	return &ReplayService{repo: repo, publisher: publisher, logger: logger}
}

// ReplayEvent 立即重新发布指定事件
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}

	if err := publish(ctx, s.publisher, event); err != nil {
		if markErr := s.repo.MarkAsFailed(ctx, eventID, event.RetryCount+1); markErr != nil {
			return fmt.Errorf("%w (mark error: %v)", err, markErr)
		}
		return err
	}

	if err := s.repo.MarkAsSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	return nil
}

// ReplayFailedEvents 重放失败的事件，返回成功数量
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	successCount := 0
	for _, event := range events {
		if err := s.ReplayEvent(ctx, event.ID); err != nil {
			s.logger.Warn("Replay failed", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		successCount++
	}
	return successCount, nil
}

// FailedEvents 列出失败的事件
func (s *ReplayService) FailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	return s.repo.GetFailedEvents(ctx, limit)
}
