package domain

import (
	"time"

	"github.com/google/uuid"
)

func NewSubscription(customerID string, plan SubscriptionPlan, now time.Time) CustomerSubscription {
	return CustomerSubscription{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		PlanID:     plan.ID,
		PlanName:   plan.Name,
		Status:     SubscriptionPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *CustomerSubscription) Approve(plan SubscriptionPlan, by, notes string, now time.Time) error {
	if s.Status != SubscriptionPending {
		return InvalidStatef("subscription %s is %s, only Pending can be approved", s.ID, s.Status)
	}
	end := now.AddDate(0, 0, plan.DurationDays)
	s.Status = SubscriptionActive
	s.StartDate = &now
	s.EndDate = &end
	s.Approval.ApprovedBy = by
	s.Approval.ApprovedAt = &now
	s.Approval.Notes = notes
	s.UpdatedAt = now
	return nil
}

func (s *CustomerSubscription) Reject(by, notes string, now time.Time) error {
	if s.Status != SubscriptionPending {
		return InvalidStatef("subscription %s is %s, only Pending can be rejected", s.ID, s.Status)
	}
	s.Status = SubscriptionRejected
	s.Approval.RejectedBy = by
	s.Approval.RejectedAt = &now
	s.Approval.Notes = notes
	s.UpdatedAt = now
	return nil
}

func (s *CustomerSubscription) Suspend(now time.Time) error {
	if s.Status != SubscriptionActive {
		return InvalidStatef("subscription %s is %s, only Active can be suspended", s.ID, s.Status)
	}
	s.Status = SubscriptionSuspended
	s.UpdatedAt = now
	return nil
}

func (s *CustomerSubscription) Cancel(now time.Time) error {
	if s.Status != SubscriptionPending && s.Status != SubscriptionActive {
		return InvalidStatef("subscription %s is %s and cannot be cancelled", s.ID, s.Status)
	}
	s.Status = SubscriptionCancelled
	s.UpdatedAt = now
	return nil
}

// Expire reports whether the subscription was moved to Expired.
func (s *CustomerSubscription) Expire(now time.Time) bool {
	if s.Status != SubscriptionActive || s.EndDate == nil || now.Before(*s.EndDate) {
		return false
	}
	s.Status = SubscriptionExpired
	s.UpdatedAt = now
	return true
}

// Open reports whether the subscription still blocks a new request for a plan.
func (s CustomerSubscription) Open() bool {
	return s.Status == SubscriptionPending || s.Status == SubscriptionActive
}
