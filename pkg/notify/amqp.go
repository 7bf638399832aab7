package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/noah-isme/sma-timetable-engine/pkg/config"
)

const defaultPublishTimeout = 5 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends JSON events to a durable AMQP queue.
type Publisher struct {
	conn    *amqp.Connection
	ch      channel
	queue   string
	timeout time.Duration
	now     func() time.Time
	mu      sync.Mutex
}

// Dial connects to the broker and declares the queue. An empty URL yields a nil publisher.
func Dial(cfg config.NotifierConfig) (*Publisher, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		cfg.Queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	p := NewPublisher(ch, cfg.Queue, cfg.PublishTimeout)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an already opened channel.
func NewPublisher(ch channel, queue string, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Publisher{ch: ch, queue: queue, timeout: timeout, now: time.Now}
}

// Publish encodes payload as JSON and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, payload interface{}) error {
	if p == nil || p.ch == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
