package mq

import (
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "events"
)

// Routing keys for domain events.
const (
	RoutingProjectCreated    = "project.created"
	RoutingTaskBulkCreated   = "task.bulk_created"
	RoutingTaskStatusChanged = "task.status_changed"
	RoutingMessageReceived   = "message.received"
	RoutingInvoiceOverdue    = "invoice.overdue"
)

// NewConnection creates a new RabbitMQ connection.
func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// Declarer 是 *amqp091.Channel 中声明拓扑所需的子集
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
}

// DeclareExchange declares the events exchange.
func DeclareExchange(ch Declarer) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

// DeclareConsumerTopology 声明消费队列及其 DLQ：
// queueName 绑定 events/routingKey，queueName.dlq 绑定 events.dlq/routingKey
func DeclareConsumerTopology(ch Declarer, queueName, routingKey string) (amqp091.Queue, error) {
	if err := DeclareExchange(ch); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to bind queue: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		return amqp091.Queue{}, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(ch, queueName, routingKey); err != nil {
		return amqp091.Queue{}, err
	}
	return q, nil
}
