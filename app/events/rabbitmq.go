package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpConnection interface {
	Close() error
}

// RabbitMQPublisher publishes lifecycle messages to a durable topic exchange.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     amqpConnection
	channel  amqpChannel
	exchange string
	logger   logrus.FieldLogger
}

func NewRabbitMQPublisher(url, exchange string, logger logrus.FieldLogger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.WithField("exchange", exchange).Info("RabbitMQ publisher connected")
	return newRabbitMQPublisher(conn, ch, exchange, logger), nil
}

func newRabbitMQPublisher(conn amqpConnection, ch amqpChannel, exchange string, logger logrus.FieldLogger) *RabbitMQPublisher {
	return &RabbitMQPublisher{conn: conn, channel: ch, exchange: exchange, logger: logger}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})
	if err != nil {
		p.logger.WithError(err).WithField("routing_key", routingKey).Error("Failed to publish lifecycle message")
		return err
	}

	p.logger.WithFields(logrus.Fields{"routing_key": routingKey, "size": len(payload)}).Debug("Lifecycle message published")
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.WithError(err).Warn("Error closing RabbitMQ channel")
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return err
		}
	}
	p.logger.Info("RabbitMQ publisher closed")
	return nil
}

// NoopPublisher only logs; used when no broker is configured.
type NoopPublisher struct {
	logger logrus.FieldLogger
}

func NewNoopPublisher(logger logrus.FieldLogger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.logger.WithFields(logrus.Fields{"routing_key": routingKey, "size": len(payload)}).Debug("Lifecycle message dropped, no broker configured")
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
