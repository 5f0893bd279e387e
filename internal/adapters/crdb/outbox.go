package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
}

func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'NEW', $6)
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, record.Payload, record.DedupeKey)
	return err
}

// RecordEvent appends a domain event to the outbox. The event id doubles as
// the dedupe key consumers use to drop redeliveries.
func (r *Repository) RecordEvent(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	id, err := uuid.Parse(ev.ID)
	if err != nil {
		id = uuid.New()
	}
	rec := OutboxRecord{
		ID:            id,
		AggregateType: ev.AggregateType,
		AggregateID:   ev.AggregateID,
		EventType:     ev.Type,
		Payload:       payload,
		DedupeKey:     ev.ID,
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		return r.InsertOutbox(ctx, tx, rec)
	})
}

func getUnpublishedOutbox(ctx context.Context, tx pgx.Tx, limit int) ([]OutboxRecord, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func markPublished(ctx context.Context, tx pgx.Tx, id uuid.UUID, publishedAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}

// PublishPending locks up to limit NEW records, hands each to publish in
// creation order and marks the ones that went through. It stops at the first
// publish failure; the remaining records stay NEW for the next batch.
func (r *Repository) PublishPending(ctx context.Context, limit int, publish func(OutboxRecord) error) (int, error) {
	published := 0
	var publishErr error
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		published = 0
		records, err := getUnpublishedOutbox(ctx, tx, limit)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			observability.OutboxLag.Set(time.Since(records[0].CreatedAt).Seconds())
		}
		for _, rec := range records {
			if publishErr = publish(rec); publishErr != nil {
				break
			}
			if err := markPublished(ctx, tx, rec.ID, time.Now().UTC()); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, publishErr
}

func (r *Repository) CountOutbox(ctx context.Context, status string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM outbox WHERE status = $1`, status).Scan(&n)
	return n, err
}
