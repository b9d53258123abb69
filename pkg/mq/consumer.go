package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"freelanceos/pkg/metrics"
	"freelanceos/pkg/otel"
	"freelanceos/pkg/trace"
	"freelanceos/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// DeadLetterPublisher 用于将不可重试的消息转发到 DLQ
type DeadLetterPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError, failedAt string) error
}

type Consumer struct {
	channel     *amqp091.Channel
	queue       amqp091.Queue
	routingKey  string
	consumerTag string
	handler     MessageHandler
	dlq         DeadLetterPublisher
	conn        *amqp091.Connection
	logger      *zap.Logger
}

// NewConsumer creates a consumer for a specific routing key.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := DeclareConsumerTopology(ch, queueName, routingKey)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(10, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
		zap.String("dlq", q.Name+".dlq"),
	)

	return &Consumer{
		conn:        conn,
		channel:     ch,
		queue:       q,
		routingKey:  routingKey,
		consumerTag: "worker-" + queueName,
		logger:      logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// SetDeadLetter 设置 DLQ 发布者；未设置时不可重试的消息直接 ack 丢弃
func (c *Consumer) SetDeadLetter(dlq DeadLetterPublisher) {
	c.dlq = dlq
}

// IsConnected reports whether the underlying connection is open.
func (c *Consumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

// Stop 取消消费，StartConsuming 会在 deliveries 关闭后返回
func (c *Consumer) Stop() {
	if c.channel != nil {
		_ = c.channel.Cancel(c.consumerTag, false)
	}
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming starts consuming messages. This method blocks and should be called in a goroutine.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		c.consumerTag,
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	// 保证每条消息都会被 ack 或 nack
	for msg := range deliveries {
		c.handleDelivery(msg)
	}

	return nil
}

func (c *Consumer) handleDelivery(msg amqp091.Delivery) {
	start := time.Now()
	ctx := otel.ExtractMQHeaders(context.Background(), msg.Headers)
	if traceID, ok := msg.Headers[trace.TraceIDKey].(string); ok && traceID != "" {
		ctx = trace.WithContext(ctx, traceID)
	}
	ctx, span := otel.MQConsumeSpan(ctx, c.routingKey, c.queue.Name)
	defer span.End()

	var handlerErr error
	func() {
		// Panic 恢复：确保即使 handler panic 也能正确处理消息
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Handler panic recovered",
					zap.String("routing_key", c.routingKey),
					zap.String("queue", c.queue.Name),
					zap.Any("panic", r),
				)
				handlerErr = fmt.Errorf("handler panic: %v", r)
			}
		}()
		handlerErr = c.handler(ctx, msg.Body)
	}()

	action := Decide(handlerErr)
	switch action {
	case ActionAck:
		if err := msg.Ack(false); err != nil {
			c.logger.Error("Failed to ack message", zap.String("routing_key", c.routingKey), zap.Error(err))
		}
	case ActionRequeue:
		c.logger.Error("Handler error, requeueing",
			zap.String("routing_key", c.routingKey),
			zap.String("queue", c.queue.Name),
			zap.Error(handlerErr),
		)
		if err := msg.Nack(false, true); err != nil {
			c.logger.Error("Failed to nack message", zap.String("routing_key", c.routingKey), zap.Error(err))
		}
	case ActionDeadLetter:
		c.logger.Error("Handler error is not retryable, dead-lettering",
			zap.String("routing_key", c.routingKey),
			zap.String("queue", c.queue.Name),
			zap.Error(handlerErr),
		)
		if c.dlq != nil {
			if err := c.dlq.PublishToDLQ(c.routingKey, msg.Body, handlerErr.Error(), c.queue.Name); err != nil {
				c.logger.Error("Failed to publish to DLQ", zap.Error(err))
				_ = msg.Nack(false, true)
				break
			}
		}
		if err := msg.Ack(false); err != nil {
			c.logger.Error("Failed to ack dead-lettered message", zap.Error(err))
		}
	}

	metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, string(action), time.Since(start))
}

// Action 表示消息处理后的确认方式
type Action string

const (
	ActionAck        Action = "ack"
	ActionRequeue    Action = "requeue"
	ActionDeadLetter Action = "dead_letter"
)

// Decide 根据 handler 返回的错误决定 ack / nack / DLQ
func Decide(err error) Action {
	if err == nil {
		return ActionAck
	}
	if retryable, _ := util.IsRetryableError(err); retryable {
		return ActionRequeue
	}
	return ActionDeadLetter
}
