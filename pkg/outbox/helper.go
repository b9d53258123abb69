package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"freelanceos/pkg/trace"
)

// InsertEventInTx 在事务中插入事件到 outbox（辅助函数）
// 当 ctx 携带 trace_id 且 payload 为对象时，trace_id 会被写入 payload，供消费端串联日志
func InsertEventInTx(
	ctx context.Context,
	tx pgx.Tx,
	repo *Repository,
	aggregateType string,
	aggregateID string,
	routingKey string,
	payload any,
) error {
	payloadJSON, err := EncodePayload(ctx, payload)
	if err != nil {
		return err
	}

	var aggID *string
	if aggregateID != "" {
		aggID = &aggregateID
	}

	event := &Event{
		AggregateType: aggregateType,
		AggregateID:   aggID,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		Status:        StatusPending,
	}
	return repo.InsertEvent(ctx, tx, event)
}

// EncodePayload 序列化 payload 并附加 trace_id
func EncodePayload(ctx context.Context, payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	traceID := trace.FromContext(ctx)
	if traceID == "" {
		return raw, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return raw, nil
	}
	if _, exists := obj[trace.TraceIDKey]; !exists {
		obj[trace.TraceIDKey] = traceID
	}
	return json.Marshal(obj)
}

// traceContext 从 payload 中提取 trace_id（如果存在）
func traceContext(ctx context.Context, payload json.RawMessage) context.Context {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return ctx
	}
	if traceID, ok := obj[trace.TraceIDKey].(string); ok && traceID != "" {
		ctx = trace.WithContext(ctx, traceID)
	}
	return ctx
}
