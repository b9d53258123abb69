package mqhandler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"freelanceos/pkg/util"
)

// maxRetries bounds redeliveries of one event before it is dead-lettered.
const maxRetries = 5

// Deduper is satisfied by *util.Deduper.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, id string) bool
	Release(ctx context.Context, handler string, id string)
}

// RetryCounter is satisfied by *util.RetryCounter.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// classify logs err and decides what the consumer should do with it: nil acks,
// a retryable error requeues while attempts remain, and an error wrapping
// util.ErrRetriesExhausted is dead-lettered by mq.Decide.
func classify(log *zap.Logger, op string, attempt int64, err error) error {
	retryable, errType := util.IsRetryableError(err)
	log.Error("Handler step failed",
		zap.String("op", op),
		zap.String("error_type", errType),
		zap.Bool("retryable", retryable),
		zap.Int64("attempt", attempt),
		zap.Error(err),
	)
	if !retryable {
		return nil
	}
	if util.ShouldRetry(attempt, maxRetries, retryable) {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %v", util.ErrRetriesExhausted, attempt, err)
}
