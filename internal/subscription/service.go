package subscription

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

type PlanStore interface {
	InsertPlan(ctx context.Context, p *domain.SubscriptionPlan) error
	UpdatePlan(ctx context.Context, p *domain.SubscriptionPlan) error
	GetPlan(ctx context.Context, id string) (*domain.SubscriptionPlan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error)
}

type Filter struct {
	CustomerID string
	Status     domain.SubscriptionStatus
}

type Store interface {
	InsertSubscription(ctx context.Context, s *domain.CustomerSubscription) error
	UpdateSubscription(ctx context.Context, s *domain.CustomerSubscription) error
	GetSubscription(ctx context.Context, id string) (*domain.CustomerSubscription, error)
	ListSubscriptions(ctx context.Context, f Filter) ([]domain.CustomerSubscription, error)
	// ListDue returns Active subscriptions whose end date is at or before now.
	ListDue(ctx context.Context, now time.Time) ([]domain.CustomerSubscription, error)
}

type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type EventRecorder interface {
	RecordEvent(ctx context.Context, ev domain.Event) error
}

type PlanInput struct {
	Name              string
	Description       string
	Price             float64
	DurationDays      int
	IncludedEquipment []string
	IncludedServices  []string
	Manpower          domain.Manpower
	IsActive          *bool
}

type Service struct {
	plans    PlanStore
	subs     Store
	notifier Notifier
	events   EventRecorder
	logger   observability.Logger
	now      func() time.Time
}

// NewService wires the subscription workflow. notifier and events may be nil.
func NewService(plans PlanStore, subs Store, notifier Notifier, events EventRecorder, logger observability.Logger) *Service {
	return &Service{
		plans:    plans,
		subs:     subs,
		notifier: notifier,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func validatePlan(in PlanInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.InvalidInputf("plan name is required")
	}
	if in.Price < 0 {
		return domain.InvalidInputf("plan price must not be negative")
	}
	if in.DurationDays <= 0 {
		return domain.InvalidInputf("plan duration must be at least one day")
	}
	return nil
}

func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*domain.SubscriptionPlan, error) {
	if err := validatePlan(in); err != nil {
		return nil, err
	}
	now := s.now()
	p := &domain.SubscriptionPlan{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		Price:             in.Price,
		DurationDays:      in.DurationDays,
		IncludedEquipment: nonNil(in.IncludedEquipment),
		IncludedServices:  nonNil(in.IncludedServices),
		Manpower:          in.Manpower,
		IsActive:          in.IsActive == nil || *in.IsActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.plans.InsertPlan(ctx, p); err != nil {
		return nil, errors.Wrap(err, "insert plan")
	}
	return p, nil
}

func (s *Service) UpdatePlan(ctx context.Context, id string, in PlanInput) (*domain.SubscriptionPlan, error) {
	if err := validatePlan(in); err != nil {
		return nil, err
	}
	p, err := s.plan(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.DurationDays = in.DurationDays
	p.IncludedEquipment = nonNil(in.IncludedEquipment)
	p.IncludedServices = nonNil(in.IncludedServices)
	p.Manpower = in.Manpower
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.UpdatedAt = s.now()
	if err := s.plans.UpdatePlan(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update plan")
	}
	return p, nil
}

func (s *Service) ListPlans(ctx context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error) {
	plans, err := s.plans.ListPlans(ctx, activeOnly)
	return plans, errors.Wrap(err, "list plans")
}

// Request opens a Pending subscription. A customer may hold only one open
// subscription per plan.
func (s *Service) Request(ctx context.Context, actor domain.Actor, planID string) (*domain.CustomerSubscription, error) {
	plan, err := s.plan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.InvalidStatef("subscription plan %s is not active", plan.Name)
	}

	existing, err := s.subs.ListSubscriptions(ctx, Filter{CustomerID: actor.ID})
	if err != nil {
		return nil, errors.Wrap(err, "list customer subscriptions")
	}
	for _, sub := range existing {
		if sub.PlanID == plan.ID && sub.Open() {
			return nil, domain.InvalidStatef("customer already has a %s subscription for plan %s", sub.Status, plan.Name)
		}
	}

	sub := domain.NewSubscription(actor.ID, *plan, s.now())
	if err := s.subs.InsertSubscription(ctx, &sub); err != nil {
		return nil, errors.Wrap(err, "insert subscription")
	}
	s.announce(ctx, &sub, domain.NewNotification(domain.RecipientAdmin, "", domain.NotifySubscription,
		"Subscription requested", "A customer requested the "+plan.Name+" plan", "", s.now()))
	return &sub, nil
}

func (s *Service) ListMine(ctx context.Context, actor domain.Actor) ([]domain.CustomerSubscription, error) {
	subs, err := s.subs.ListSubscriptions(ctx, Filter{CustomerID: actor.ID})
	return subs, errors.Wrap(err, "list subscriptions")
}

func (s *Service) List(ctx context.Context, f Filter) ([]domain.CustomerSubscription, error) {
	subs, err := s.subs.ListSubscriptions(ctx, f)
	return subs, errors.Wrap(err, "list subscriptions")
}

func (s *Service) Approve(ctx context.Context, actor domain.Actor, id, notes string) (*domain.CustomerSubscription, error) {
	return s.change(ctx, id, func(sub *domain.CustomerSubscription) error {
		plan, err := s.plan(ctx, sub.PlanID)
		if err != nil {
			return err
		}
		return sub.Approve(*plan, actor.ID, notes, s.now())
	})
}

func (s *Service) Reject(ctx context.Context, actor domain.Actor, id, notes string) (*domain.CustomerSubscription, error) {
	return s.change(ctx, id, func(sub *domain.CustomerSubscription) error {
		return sub.Reject(actor.ID, notes, s.now())
	})
}

func (s *Service) Suspend(ctx context.Context, id string) (*domain.CustomerSubscription, error) {
	return s.change(ctx, id, func(sub *domain.CustomerSubscription) error {
		return sub.Suspend(s.now())
	})
}

// Cancel is the customer's own cancellation; other customers' subscriptions
// are reported as missing.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.CustomerSubscription, error) {
	return s.change(ctx, id, func(sub *domain.CustomerSubscription) error {
		if !actor.IsAdmin() && sub.CustomerID != actor.ID {
			return domain.NotFoundf("subscription %s not found", id)
		}
		return sub.Cancel(s.now())
	})
}

// ExpireDue moves every Active subscription past its end date to Expired and
// returns how many were changed. A failure on one subscription does not stop
// the sweep.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.subs.ListDue(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "list due subscriptions")
	}

	expired := 0
	for i := range due {
		sub := &due[i]
		if !sub.Expire(now) {
			continue
		}
		if err := s.subs.UpdateSubscription(ctx, sub); err != nil {
			s.logger.WithError(err).WithField("subscription", sub.ID).Error("failed to expire subscription")
			continue
		}
		expired++
		observability.SubscriptionsExpired.Inc()
		s.announce(ctx, sub, s.customerNote(sub))
	}
	return expired, nil
}

func (s *Service) change(ctx context.Context, id string, fn func(sub *domain.CustomerSubscription) error) (*domain.CustomerSubscription, error) {
	sub, err := s.subs.GetSubscription(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFoundf("subscription %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load subscription %s", id)
	}
	if err := fn(sub); err != nil {
		return nil, err
	}
	if err := s.subs.UpdateSubscription(ctx, sub); err != nil {
		return nil, errors.Wrapf(err, "update subscription %s", id)
	}
	s.announce(ctx, sub, s.customerNote(sub))
	return sub, nil
}

func (s *Service) plan(ctx context.Context, id string) (*domain.SubscriptionPlan, error) {
	p, err := s.plans.GetPlan(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFoundf("subscription plan %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load plan %s", id)
	}
	return p, nil
}

func (s *Service) customerNote(sub *domain.CustomerSubscription) domain.Notification {
	return domain.NewNotification(domain.RecipientCustomer, sub.CustomerID, domain.NotifySubscription,
		"Subscription "+string(sub.Status), "Your "+sub.PlanName+" subscription is now "+string(sub.Status), "", s.now())
}

func (s *Service) announce(ctx context.Context, sub *domain.CustomerSubscription, n domain.Notification) {
	log := observability.LoggerFromContext(ctx, s.logger).WithField("subscription", sub.ID)
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, n); err != nil {
			log.WithError(err).Error("failed to create notification")
		}
	}
	if s.events != nil {
		if err := s.events.RecordEvent(ctx, domain.NewSubscriptionEvent(*sub, s.now())); err != nil {
			log.WithError(err).Error("failed to record subscription event")
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
