package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

const (
	SerializationFailureCode = "40001"

	maxTxAttempts = 3
)

const schema = `
CREATE TABLE IF NOT EXISTS equipment_reservations (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	booking_id TEXT NOT NULL,
	equipment_id TEXT NOT NULL,
	day DATE NOT NULL,
	quantity INT NOT NULL,
	status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK (status IN ('ACTIVE', 'RELEASED')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	released_at TIMESTAMPTZ,
	UNIQUE INDEX equipment_reservations_active (equipment_id, day) WHERE status = 'ACTIVE',
	INDEX equipment_reservations_booking (booking_id, status)
);
CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload_json JSONB NOT NULL,
	status TEXT NOT NULL DEFAULT 'NEW' CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
	dedupe_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ,
	INDEX outbox_pending (status, created_at)
);
`

type Repository struct {
	pool   *pgxpool.Pool
	logger observability.Logger
}

func NewRepository(pool *pgxpool.Pool, logger observability.Logger) *Repository {
	return &Repository{pool: pool, logger: logger}
}

func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schema)
	return errors.Wrap(err, "apply crdb schema")
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() { observability.DBTxDuration.Observe(time.Since(start).Seconds()) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return mapTxErr(err)
	}
	return mapTxErr(tx.Commit(ctx))
}

func mapTxErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
		return errors.Mark(err, domain.ErrSerializationFailure)
	}
	return err
}

// withRetry reruns a serializable transaction that lost a conflict, backing
// off exponentially between attempts.
func (r *Repository) withRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for i := 0; i < maxTxAttempts; i++ {
		err = r.WithTx(ctx, fn)
		if !errors.Is(err, domain.ErrSerializationFailure) {
			return err
		}
		backoff := time.Duration(1<<i) * 50 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.Wrapf(err, "giving up after %d attempts", maxTxAttempts)
}

// Reserve claims every equipment-day of b. Either all rows are inserted or
// the call fails with an error marked domain.ErrConflict.
func (r *Repository) Reserve(ctx context.Context, b domain.Booking) error {
	rows := domain.NewReservations(b)
	return r.withRetry(ctx, func(tx pgx.Tx) error {
		for _, res := range rows {
			result, err := tx.Exec(ctx, `
				INSERT INTO equipment_reservations (booking_id, equipment_id, day, quantity, status)
				VALUES ($1, $2, $3, $4, 'ACTIVE')
				ON CONFLICT (equipment_id, day) WHERE status = 'ACTIVE' DO NOTHING
			`, res.BookingID, res.EquipmentID, res.Day, res.Quantity)
			if err != nil {
				return err
			}
			if result.RowsAffected() > 0 {
				continue
			}

			var owner string
			err = tx.QueryRow(ctx, `
				SELECT booking_id FROM equipment_reservations
				WHERE equipment_id = $1 AND day = $2 AND status = 'ACTIVE'
			`, res.EquipmentID, res.Day).Scan(&owner)
			if err != nil {
				return err
			}
			if owner != b.ID {
				return errors.Mark(
					errors.Newf("equipment %s is reserved on %s by booking %s", res.EquipmentID, res.Day.Format("2006-01-02"), owner),
					domain.ErrConflict)
			}
		}
		return nil
	})
}

// Release frees every active reservation held by the booking.
func (r *Repository) Release(ctx context.Context, bookingID string) error {
	return r.withRetry(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE equipment_reservations SET status = 'RELEASED', released_at = now()
			WHERE booking_id = $1 AND status = 'ACTIVE'
		`, bookingID)
		return err
	})
}

func (r *Repository) ActiveReservations(ctx context.Context, bookingID string) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT booking_id, equipment_id, day, quantity
		FROM equipment_reservations WHERE booking_id = $1 AND status = 'ACTIVE'
		ORDER BY equipment_id, day
	`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.BookingID, &res.EquipmentID, &res.Day, &res.Quantity); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
