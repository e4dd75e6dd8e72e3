// README: Lifecycle event publishers: no-op, Redis pub/sub and a RabbitMQ topic exchange.
package infra

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, []byte) error { return nil }

// RedisPublisher publishes each event on a channel named after its topic.
type RedisPublisher struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisPublisher(rdb *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, prefix: prefix}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	return p.rdb.Publish(ctx, p.prefix+topic, payload).Err()
}

// AMQPPublisher publishes persistent JSON messages to a durable topic
// exchange with the topic as routing key.
type AMQPPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       *amqp.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch.IsClosed() {
		return amqp.ErrClosed
	}
	return p.ch.PublishWithContext(ctx, p.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
