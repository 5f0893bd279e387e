package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotifyBookingCreated     = "booking_created"
	NotifyBookingStatus      = "booking_status"
	NotifyBookingRescheduled = "booking_rescheduled"
	NotifyBookingCancelled   = "booking_cancelled"
	NotifyPaymentSubmitted   = "payment_submitted"
	NotifyPaymentResolved    = "payment_resolved"
	NotifyStaffAssigned      = "staff_assigned"
	NotifySubscription       = "subscription_status"
)

func NewNotification(to RecipientType, recipientID, kind, title, message, bookingID string, now time.Time) Notification {
	return Notification{
		ID:            uuid.NewString(),
		RecipientType: to,
		RecipientID:   recipientID,
		Type:          kind,
		Title:         title,
		Message:       message,
		BookingID:     bookingID,
		CreatedAt:     now,
	}
}
