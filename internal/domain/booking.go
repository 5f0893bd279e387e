package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type NewBookingParams struct {
	CustomerID   string
	BookingType  string
	EventType    string
	StartDate    time.Time
	EndDate      time.Time
	EventDetails EventDetails
	Notes        string
}

func NewBooking(p NewBookingParams, q Quote, now time.Time) Booking {
	id := uuid.New()
	return Booking{
		ID:            id.String(),
		BookingID:     "BK-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]),
		CustomerID:    p.CustomerID,
		BookingType:   p.BookingType,
		EventType:     p.EventType,
		EquipmentList: q.Lines,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		TotalDays:     q.TotalDays,
		TotalHours:    q.TotalHours,
		EventDetails:  p.EventDetails,
		AssignedStaff: []string{},
		Pricing:       q.Pricing,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		Payments:      []PaymentRequest{},
		Package:       q.Package,
		Notes:         p.Notes,
		History:       []StatusChange{},
		Return:        EquipmentReturn{Status: ReturnNotReturned},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

var adminTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusPending},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCancelled:  {StatusRefunded},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

func CanTransition(from, to BookingStatus) bool {
	for _, s := range adminTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (b *Booking) TransitionTo(to BookingStatus, by, reason string, now time.Time) error {
	if !to.Valid() {
		return InvalidInputf("unknown booking status %q", to)
	}
	if !CanTransition(b.Status, to) {
		return InvalidStatef("booking %s cannot move from %s to %s", b.BookingID, b.Status, to)
	}
	b.setStatus(to, by, reason, now)
	if to == StatusRefunded {
		b.PaymentStatus = PaymentRefunded
	}
	return nil
}

func (b *Booking) setStatus(to BookingStatus, by, reason string, now time.Time) {
	b.History = append(b.History, StatusChange{From: b.Status, To: to, By: by, Reason: reason, ChangedAt: now})
	b.Status = to
	b.UpdatedAt = now
}

// CustomerEditable reports whether the customer may still reschedule or cancel.
func (b *Booking) CustomerEditable() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

func (b *Booking) Cancel(by, reason string, now time.Time) error {
	if !b.CustomerEditable() {
		return InvalidStatef("booking %s cannot be cancelled while %s", b.BookingID, b.Status)
	}
	b.setStatus(StatusCancelled, by, reason, now)
	return nil
}

// Reschedule moves the booking to a new range and sends it back to Pending for
// re-approval.
func (b *Booking) Reschedule(p PricingPolicy, start, end time.Time, by, reason string, now time.Time) error {
	if !b.CustomerEditable() {
		return InvalidStatef("booking %s cannot be rescheduled while %s", b.BookingID, b.Status)
	}
	if err := p.Reprice(b, start, end); err != nil {
		return err
	}
	b.setStatus(StatusPending, by, reason, now)
	return nil
}

func (b *Booking) AcceptedPayments() float64 {
	var sum float64
	for _, pr := range b.Payments {
		if pr.Status == PaymentRequestAccepted {
			sum += pr.Amount
		}
	}
	return sum
}

func (b *Booking) recalcBalance() {
	accepted := b.AcceptedPayments()
	b.Pricing.AdvanceAmount = accepted
	b.Pricing.RemainingAmount = b.Pricing.TotalAmount - accepted
	if b.PaymentStatus == PaymentRefunded {
		return
	}
	switch {
	case accepted == 0:
		b.PaymentStatus = PaymentPending
	case b.Pricing.RemainingAmount <= 0:
		b.PaymentStatus = PaymentPaid
	default:
		b.PaymentStatus = PaymentPartial
	}
}

func (b *Booking) RequestPayment(amount float64, method, notes string, now time.Time) (PaymentRequest, error) {
	if amount <= 0 {
		return PaymentRequest{}, InvalidInputf("payment amount must be positive")
	}
	if b.Status == StatusCancelled || b.Status == StatusRefunded {
		return PaymentRequest{}, InvalidStatef("booking %s is %s", b.BookingID, b.Status)
	}
	if amount > b.Pricing.RemainingAmount {
		return PaymentRequest{}, InvalidStatef("payment amount %.2f exceeds remaining balance %.2f", amount, b.Pricing.RemainingAmount)
	}
	pr := PaymentRequest{
		ID:          uuid.NewString(),
		Amount:      amount,
		Method:      method,
		Status:      PaymentRequestPending,
		Notes:       notes,
		RequestedAt: now,
	}
	b.Payments = append(b.Payments, pr)
	b.UpdatedAt = now
	return pr, nil
}

func (b *Booking) ResolvePayment(paymentID string, accept bool, by, notes string, now time.Time) error {
	for i := range b.Payments {
		pr := &b.Payments[i]
		if pr.ID != paymentID {
			continue
		}
		if pr.Status != PaymentRequestPending {
			return InvalidStatef("payment %s is already %s", paymentID, pr.Status)
		}
		if accept && pr.Amount > b.Pricing.RemainingAmount {
			return InvalidStatef("payment amount %.2f exceeds remaining balance %.2f", pr.Amount, b.Pricing.RemainingAmount)
		}
		pr.Status = PaymentRequestRejected
		if accept {
			pr.Status = PaymentRequestAccepted
		}
		if notes != "" {
			pr.Notes = notes
		}
		pr.ProcessedAt = &now
		pr.ProcessedBy = by
		b.recalcBalance()
		b.UpdatedAt = now
		return nil
	}
	return NotFoundf("payment %s not found on booking %s", paymentID, b.BookingID)
}

func (b *Booking) RecordReturn(status ReturnStatus, damageReport string, now time.Time) error {
	switch status {
	case ReturnReturned, ReturnDamaged, ReturnLost:
	default:
		return InvalidInputf("unknown return status %q", status)
	}
	if b.Status != StatusInProgress && b.Status != StatusCompleted {
		return InvalidStatef("equipment for booking %s has not been handed out (%s)", b.BookingID, b.Status)
	}
	b.Return = EquipmentReturn{Status: status, ReturnDate: &now, DamageReport: damageReport}
	b.UpdatedAt = now
	return nil
}

func (b *Booking) EquipmentIDs() []string {
	ids := make([]string, 0, len(b.EquipmentList))
	for _, l := range b.EquipmentList {
		ids = append(ids, l.EquipmentID)
	}
	return ids
}
