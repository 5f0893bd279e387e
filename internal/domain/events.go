package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingCreated        = "booking.created"
	EventBookingStatusChanged  = "booking.status_changed"
	EventBookingRescheduled    = "booking.rescheduled"
	EventBookingPaymentUpdated = "booking.payment_updated"
	EventBookingReturned       = "booking.returned"
	EventSubscriptionChanged   = "subscription.status_changed"
)

type Event struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	AggregateType string                 `json:"aggregateType"`
	AggregateID   string                 `json:"aggregateId"`
	OccurredAt    time.Time              `json:"occurredAt"`
	Data          map[string]interface{} `json:"data"`
}

func NewBookingEvent(eventType string, b Booking, now time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		AggregateType: "booking",
		AggregateID:   b.ID,
		OccurredAt:    now,
		Data: map[string]interface{}{
			"bookingId":       b.BookingID,
			"customerId":      b.CustomerID,
			"status":          b.Status,
			"paymentStatus":   b.PaymentStatus,
			"startDate":       b.StartDate,
			"endDate":         b.EndDate,
			"totalAmount":     b.Pricing.TotalAmount,
			"remainingAmount": b.Pricing.RemainingAmount,
		},
	}
}

func NewSubscriptionEvent(s CustomerSubscription, now time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          EventSubscriptionChanged,
		AggregateType: "subscription",
		AggregateID:   s.ID,
		OccurredAt:    now,
		Data: map[string]interface{}{
			"customerId": s.CustomerID,
			"planId":     s.PlanID,
			"status":     s.Status,
		},
	}
}
