package booking

import (
	"context"
	"time"

	"github.com/robertarktes/studio-bookings/internal/domain"
)

type BookingStore interface {
	InsertBooking(ctx context.Context, b *domain.Booking) error
	// GetBooking resolves either the document id or the human readable bookingId.
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, b *domain.Booking) error
	ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, int64, error)
	CountBookings(ctx context.Context, status domain.BookingStatus) (int64, error)
	// FindOverlapping returns bookings in one of statuses whose range intersects
	// [start, end]. An empty equipmentIDs slice means any equipment.
	FindOverlapping(ctx context.Context, start, end time.Time, statuses []domain.BookingStatus, equipmentIDs []string) ([]domain.Booking, error)
}

type Catalog interface {
	GetEquipment(ctx context.Context, id string) (*domain.Equipment, error)
	ListEquipment(ctx context.Context) ([]domain.Equipment, error)
	GetPlan(ctx context.Context, id string) (*domain.SubscriptionPlan, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type EventRecorder interface {
	RecordEvent(ctx context.Context, ev domain.Event) error
}

type Auditor interface {
	LogEvent(ctx context.Context, action string, actorID string, data map[string]interface{}) error
}

// Ledger holds equipment-day reservations for committing bookings.
type Ledger interface {
	Reserve(ctx context.Context, b domain.Booking) error
	Release(ctx context.Context, bookingID string) error
}

// Locker serializes read-modify-write cycles on a single booking.
type Locker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}
