package outbox

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/studio-bookings/internal/adapters/crdb"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

const (
	defaultBatch   = 50
	publishRetries = 3
)

// Source hands pending outbox records to a callback and marks the ones that
// were accepted. crdb.Repository implements it.
type Source interface {
	PublishPending(ctx context.Context, limit int, publish func(crdb.OutboxRecord) error) (int, error)
}

type MessagePublisher interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

type Publisher struct {
	source  Source
	broker  MessagePublisher
	logger  observability.Logger
	batch   int
	backoff time.Duration
}

func NewPublisher(source Source, broker MessagePublisher, logger observability.Logger) *Publisher {
	return &Publisher{source: source, broker: broker, logger: logger, batch: defaultBatch, backoff: 200 * time.Millisecond}
}

// Run drains the outbox every interval until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	p.logger.WithField("interval", interval.String()).Info("outbox publisher started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox publisher stopped")
			return
		case <-ticker.C:
			if _, err := p.Drain(ctx); err != nil && ctx.Err() == nil {
				p.logger.WithError(err).Error("outbox batch failed")
			}
		}
	}
}

// Drain publishes batches until the outbox is empty or a publish fails.
func (p *Publisher) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := p.source.PublishPending(ctx, p.batch, func(rec crdb.OutboxRecord) error {
			return p.publish(ctx, rec)
		})
		total += n
		if err != nil {
			return total, err
		}
		if n < p.batch {
			return total, nil
		}
	}
}

func (p *Publisher) publish(ctx context.Context, rec crdb.OutboxRecord) error {
	msg := amqp.Publishing{
		MessageId:    rec.DedupeKey,
		Type:         rec.EventType,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    rec.CreatedAt,
		Body:         rec.Payload,
	}
	var err error
	for attempt := 0; attempt < publishRetries; attempt++ {
		if attempt > 0 {
			observability.RabbitPublishRetries.Inc()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff * time.Duration(1<<attempt)):
			}
		}
		if err = p.broker.Publish(ctx, rec.EventType, msg); err == nil {
			return nil
		}
		p.logger.WithError(err).WithFields(map[string]interface{}{
			"event_type": rec.EventType,
			"dedupe_key": rec.DedupeKey,
			"attempt":    attempt + 1,
		}).Warn("publish failed")
	}
	return errors.Wrapf(err, "publish %s after %d attempts", rec.DedupeKey, publishRetries)
}
