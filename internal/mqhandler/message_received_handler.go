package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"freelanceos/internal/model"
	"freelanceos/pkg/logger"
	"freelanceos/pkg/util"
)

const analyzeHandlerName = "message_analyze"

// MessageAnalyzer is satisfied by *inbox.Service.
type MessageAnalyzer interface {
	AnalyzeMessage(ctx context.Context, id string) (*model.Message, error)
}

// MessageReceivedHandler runs AI analysis for every inbound message.
type MessageReceivedHandler struct {
	analyzer     MessageAnalyzer
	deduper      Deduper
	retryCounter RetryCounter
	logger       *zap.Logger
}

func NewMessageReceivedHandler(analyzer MessageAnalyzer, deduper Deduper, retryCounter RetryCounter, logger *zap.Logger) *MessageReceivedHandler {
	return &MessageReceivedHandler{
		analyzer:     analyzer,
		deduper:      deduper,
		retryCounter: retryCounter,
		logger:       logger,
	}
}

func (h *MessageReceivedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p model.MessageReceivedEvent
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Invalid message.received payload", zap.String("raw", string(raw)), zap.Error(err))
		return fmt.Errorf("bad_payload: %w", err)
	}
	if p.MessageID == "" {
		log.Error("message.received payload without message_id", zap.String("raw", string(raw)))
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, analyzeHandlerName, p.MessageID) {
		return nil
	}

	retryKey := util.FormatRetryKey(analyzeHandlerName, p.MessageID)
	retryCount, _ := h.retryCounter.IncrementAndGet(ctx, retryKey)

	m, err := h.analyzer.AnalyzeMessage(ctx, p.MessageID)
	if err != nil {
		out := classify(log, "AnalyzeMessage", retryCount, err)
		if out == nil || errors.Is(out, util.ErrRetriesExhausted) {
			_ = h.retryCounter.Reset(ctx, retryKey)
		}
		if out != nil {
			// Let the redelivery (or a DLQ replay) through the dedup gate.
			h.deduper.Release(ctx, analyzeHandlerName, p.MessageID)
		}
		return out
	}

	_ = h.retryCounter.Reset(ctx, retryKey)
	fields := []zap.Field{zap.String("message_id", p.MessageID), zap.String("channel", p.Channel)}
	if m.AIAnalysis != nil {
		fields = append(fields, zap.String("urgency", m.AIAnalysis.Urgency), zap.String("sentiment", m.AIAnalysis.Sentiment))
	}
	log.Info("Message analysed", fields...)
	return nil
}
