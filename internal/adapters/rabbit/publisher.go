package rabbit

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const Exchange = "studio.events"

type Publisher struct {
	mu sync.Mutex
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := declareExchange(ch); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil)
}

// Publish sends msg with the event type as routing key. Channels are not safe
// for concurrent use, so calls are serialized.
func (p *Publisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, Exchange, key, false, false, msg)
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}
