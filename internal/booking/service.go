package booking

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"golang.org/x/sync/errgroup"
)

const lockTTL = 10 * time.Second

// Deps groups the collaborators of Service. Ledger, Locker, Notifier, Events
// and Audit may be nil.
type Deps struct {
	Bookings BookingStore
	Catalog  Catalog
	Users    UserStore
	Notifier Notifier
	Events   EventRecorder
	Audit    Auditor
	Ledger   Ledger
	Locker   Locker
}

type Service struct {
	policy   domain.PricingPolicy
	bookings BookingStore
	catalog  Catalog
	users    UserStore
	notifier Notifier
	events   EventRecorder
	audit    Auditor
	ledger   Ledger
	locker   Locker
	logger   observability.Logger
	now      func() time.Time
}

func NewService(policy domain.PricingPolicy, deps Deps, logger observability.Logger) *Service {
	return &Service{
		policy:   policy,
		bookings: deps.Bookings,
		catalog:  deps.Catalog,
		users:    deps.Users,
		notifier: deps.Notifier,
		events:   deps.Events,
		audit:    deps.Audit,
		ledger:   deps.Ledger,
		locker:   deps.Locker,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type QuoteInput struct {
	BookingType        string
	Items              []domain.ItemRequest
	StartDate          time.Time
	EndDate            time.Time
	TotalDays          int
	IncludeHours       bool
	TotalHours         float64
	SubscriptionPlanID string
}

type CreateInput struct {
	QuoteInput
	EventType    string
	EventDetails domain.EventDetails
	Notes        string
}

type DashboardStats struct {
	TotalBookings int64            `json:"totalBookings"`
	ByStatus      map[string]int64 `json:"byStatus"`
	Equipment     int              `json:"equipmentCount"`
}

// Quote prices a request without persisting anything.
func (s *Service) Quote(ctx context.Context, in QuoteInput) (domain.Quote, error) {
	catalog, err := s.fetchEquipment(ctx, in.Items)
	if err != nil {
		return domain.Quote{}, err
	}

	var plan *domain.SubscriptionPlan
	if in.SubscriptionPlanID != "" {
		plan, err = s.catalog.GetPlan(ctx, in.SubscriptionPlanID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Quote{}, domain.NotFoundf("subscription plan %s not found", in.SubscriptionPlanID)
		}
		if err != nil {
			return domain.Quote{}, errors.Wrap(err, "load subscription plan")
		}
	}

	return s.policy.Quote(domain.QuoteRequest{
		BookingType:  in.BookingType,
		Items:        in.Items,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		TotalDays:    in.TotalDays,
		IncludeHours: in.IncludeHours,
		TotalHours:   in.TotalHours,
	}, catalog, plan)
}

func (s *Service) fetchEquipment(ctx context.Context, items []domain.ItemRequest) (map[string]domain.Equipment, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]domain.Equipment, len(items))
	)
	seen := make(map[string]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		id := item.EquipmentID
		if seen[id] {
			continue
		}
		seen[id] = true
		g.Go(func() error {
			eq, err := s.catalog.GetEquipment(gctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NotFoundf("equipment %s not found", id)
			}
			if err != nil {
				return errors.Wrapf(err, "load equipment %s", id)
			}
			mu.Lock()
			out[id] = *eq
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckAvailability is a point-in-time read; nothing is held for the caller.
func (s *Service) CheckAvailability(ctx context.Context, items []domain.ItemRequest, start, end time.Time) (domain.AvailabilityResult, error) {
	if end.Before(start) {
		return domain.AvailabilityResult{}, domain.InvalidInputf("endDate must not be before startDate")
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.EquipmentID)
	}
	existing, err := s.bookings.FindOverlapping(ctx, start, end, domain.CommittingStatuses, ids)
	if err != nil {
		return domain.AvailabilityResult{}, errors.Wrap(err, "query overlapping bookings")
	}
	res := domain.CheckAvailability(items, start, end, existing)
	observability.AvailabilityChecks.WithLabelValues(boolLabel(res.Available)).Inc()
	return res, nil
}

func (s *Service) AvailableEquipment(ctx context.Context, start, end time.Time) ([]domain.EquipmentAvailability, error) {
	if end.Before(start) {
		return nil, domain.InvalidInputf("endDate must not be before startDate")
	}
	catalog, err := s.catalog.ListEquipment(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list equipment")
	}
	existing, err := s.bookings.FindOverlapping(ctx, start, end, domain.CommittingStatuses, nil)
	if err != nil {
		return nil, errors.Wrap(err, "query overlapping bookings")
	}
	return domain.AnnotateCatalog(catalog, start, end, existing), nil
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Booking, error) {
	user, err := s.users.GetUser(ctx, actor.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errors.Mark(errors.New("unknown account"), domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load customer")
	}
	if user.IsBlacklisted {
		return nil, domain.Forbiddenf("account %s is not allowed to create bookings", user.Email)
	}

	q, err := s.Quote(ctx, in.QuoteInput)
	if err != nil {
		return nil, err
	}

	avail, err := s.CheckAvailability(ctx, in.Items, in.StartDate, in.EndDate)
	if err != nil {
		return nil, err
	}
	if !avail.Available {
		var busy []string
		for _, it := range avail.Items {
			if !it.Available {
				busy = append(busy, it.EquipmentID)
			}
		}
		return nil, domain.InvalidStatef("equipment not available for the selected dates: %s", strings.Join(busy, ", "))
	}

	now := s.now()
	b := domain.NewBooking(domain.NewBookingParams{
		CustomerID:   actor.ID,
		BookingType:  in.BookingType,
		EventType:    in.EventType,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		EventDetails: in.EventDetails,
		Notes:        in.Notes,
	}, q, now)

	if err := s.bookings.InsertBooking(ctx, &b); err != nil {
		return nil, errors.Wrap(err, "insert booking")
	}
	observability.BookingsCreated.WithLabelValues(b.BookingType).Inc()

	s.afterCommit(ctx, actor, "booking.created", domain.EventBookingCreated, &b,
		domain.NewNotification(domain.RecipientAdmin, "", domain.NotifyBookingCreated,
			"New booking", "Booking "+b.BookingID+" was requested by "+user.Name, b.BookingID, now))
	return &b, nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, b, id); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) ListForCustomer(ctx context.Context, actor domain.Actor, f domain.BookingFilter) ([]domain.Booking, int64, error) {
	f.CustomerID = actor.ID
	return s.List(ctx, f)
}

func (s *Service) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, domain.InvalidInputf("unknown booking status %q", f.Status)
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	items, total, err := s.bookings.ListBookings(ctx, f)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list bookings")
	}
	return items, total, nil
}

func (s *Service) Reschedule(ctx context.Context, actor domain.Actor, id string, start, end time.Time, reason string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, actor, id, func(b *domain.Booking) error {
		return b.Reschedule(s.policy, start, end, actor.ID, reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, actor, "booking.rescheduled", domain.EventBookingRescheduled, b,
		domain.NewNotification(domain.RecipientAdmin, "", domain.NotifyBookingRescheduled,
			"Booking rescheduled", "Booking "+b.BookingID+" was rescheduled and needs re-approval", b.BookingID, s.now()))
	return b, nil
}

func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, actor, id, func(b *domain.Booking) error {
		return b.Cancel(actor.ID, reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, actor, "booking.cancelled", domain.EventBookingStatusChanged, b,
		domain.NewNotification(domain.RecipientAdmin, "", domain.NotifyBookingCancelled,
			"Booking cancelled", "Booking "+b.BookingID+" was cancelled by the customer", b.BookingID, s.now()))
	return b, nil
}

// UpdateStatus applies an admin status transition.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id string, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	var from domain.BookingStatus
	b, err := s.mutate(ctx, actor, id, func(b *domain.Booking) error {
		from = b.Status
		return b.TransitionTo(to, actor.ID, reason, s.now())
	})
	if err != nil {
		return nil, err
	}
	observability.BookingTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.afterCommit(ctx, actor, "booking.status_changed", domain.EventBookingStatusChanged, b,
		domain.NewNotification(domain.RecipientCustomer, b.CustomerID, domain.NotifyBookingStatus,
			"Booking "+string(to), "Your booking "+b.BookingID+" is now "+string(to), b.BookingID, s.now()))
	return b, nil
}

func (s *Service) SubmitPayment(ctx context.Context, actor domain.Actor, id string, amount float64, method, notes string) (*domain.Booking, domain.PaymentRequest, error) {
	var pr domain.PaymentRequest
	b, err := s.mutate(ctx, actor, id, func(b *domain.Booking) error {
		var err error
		pr, err = b.RequestPayment(amount, method, notes, s.now())
		return err
	})
	if err != nil {
		return nil, domain.PaymentRequest{}, err
	}
	s.afterCommit(ctx, actor, "booking.payment_submitted", domain.EventBookingPaymentUpdated, b,
		domain.NewNotification(domain.RecipientAdmin, "", domain.NotifyPaymentSubmitted,
			"Payment submitted", "A payment was submitted for booking "+b.BookingID, b.BookingID, s.now()))
	return b, pr, nil
}

func (s *Service) ResolvePayment(ctx context.Context, actor domain.Actor, id, paymentID string, accept bool, notes string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, actor, id, func(b *domain.Booking) error {
		return b.ResolvePayment(paymentID, accept, actor.ID, notes, s.now())
	})
	if err != nil {
		return nil, err
	}
	verdict := "rejected"
	if accept {
		verdict = "accepted"
	}
	s.afterCommit(ctx, actor, "booking.payment_"+verdict, domain.EventBookingPaymentUpdated, b,
		domain.NewNotification(domain.RecipientCustomer, b.CustomerID, domain.NotifyPaymentResolved,
			"Payment "+verdict, "Your payment for booking "+b.BookingID+" was "+verdict, b.BookingID, s.now()))
	return b, nil
}

func (s *Service) RecordReturn(ctx context.Context, actor domain.Actor, id string, status domain.ReturnStatus, damageReport string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, actor, id, func(b *domain.Booking) error {
		return b.RecordReturn(status, damageReport, s.now())
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, actor, "booking.returned", domain.EventBookingReturned, b)
	return b, nil
}

func (s *Service) AssignStaff(ctx context.Context, actor domain.Actor, id string, staff []string) (*domain.Booking, error) {
	b, err := s.mutate(ctx, actor, id, func(b *domain.Booking) error {
		if b.Status.Terminal() {
			return domain.InvalidStatef("booking %s is %s", b.BookingID, b.Status)
		}
		b.AssignedStaff = staff
		b.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	notes := make([]domain.Notification, 0, len(staff))
	for _, member := range staff {
		notes = append(notes, domain.NewNotification(domain.RecipientStaff, member, domain.NotifyStaffAssigned,
			"New assignment", "You were assigned to booking "+b.BookingID, b.BookingID, s.now()))
	}
	s.afterCommit(ctx, actor, "booking.staff_assigned", "", b, notes...)
	return b, nil
}

func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	statuses := []domain.BookingStatus{
		domain.StatusPending, domain.StatusConfirmed, domain.StatusInProgress,
		domain.StatusCompleted, domain.StatusCancelled, domain.StatusRefunded,
	}
	counts := make([]int64, len(statuses))
	var equipment int

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range statuses {
		i, st := i, st
		g.Go(func() error {
			n, err := s.bookings.CountBookings(gctx, st)
			counts[i] = n
			return err
		})
	}
	g.Go(func() error {
		list, err := s.catalog.ListEquipment(gctx)
		equipment = len(list)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, errors.Wrap(err, "dashboard counts")
	}

	stats := DashboardStats{ByStatus: make(map[string]int64, len(statuses)), Equipment: equipment}
	for i, st := range statuses {
		stats.ByStatus[string(st)] = counts[i]
		stats.TotalBookings += counts[i]
	}
	return stats, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFoundf("booking %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load booking %s", id)
	}
	return b, nil
}

func authorize(actor domain.Actor, b *domain.Booking, id string) error {
	if actor.IsAdmin() || b.CustomerID == actor.ID {
		return nil
	}
	return domain.NotFoundf("booking %s not found", id)
}

// mutate loads a booking, applies fn and persists the result. Entering a
// committing status reserves the ledger before the write; leaving one releases
// it afterwards.
func (s *Service) mutate(ctx context.Context, actor domain.Actor, id string, fn func(b *domain.Booking) error) (*domain.Booking, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, b, id); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if s.locker != nil {
		// Reload under the lock so fn sees the latest committed state.
		if b, err = s.load(ctx, b.ID); err != nil {
			return nil, err
		}
	}

	prev := b.Status
	if err := fn(b); err != nil {
		return nil, err
	}

	reserved := false
	if s.ledger != nil && !prev.Commits() && b.Status.Commits() {
		if err := s.ledger.Reserve(ctx, *b); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				observability.LedgerConflicts.Inc()
				return nil, domain.Conflictf("equipment for booking %s is already reserved on these dates", b.BookingID)
			}
			return nil, errors.Wrap(err, "reserve equipment")
		}
		reserved = true
	}

	if err := s.bookings.UpdateBooking(ctx, b); err != nil {
		if reserved {
			s.releaseLedger(ctx, b.ID)
		}
		return nil, errors.Wrapf(err, "update booking %s", b.BookingID)
	}

	if s.ledger != nil && prev.Commits() && !b.Status.Commits() {
		s.releaseLedger(ctx, b.ID)
	}
	return b, nil
}

func (s *Service) releaseLedger(ctx context.Context, bookingID string) {
	if err := s.ledger.Release(ctx, bookingID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		observability.LoggerFromContext(ctx, s.logger).WithError(err).WithField("booking", bookingID).Error("failed to release equipment reservation")
	}
}

func (s *Service) lock(ctx context.Context, bookingID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := "booking:" + bookingID
	owner := uuid.NewString()
	ok, err := s.locker.Acquire(ctx, key, owner, lockTTL)
	if err != nil {
		return nil, errors.Wrap(err, "acquire booking lock")
	}
	if !ok {
		return nil, domain.Conflictf("booking is being updated, retry shortly")
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, owner); err != nil {
			observability.LoggerFromContext(ctx, s.logger).WithError(err).Warn("failed to release booking lock")
		}
	}, nil
}

// afterCommit runs the side effects of a committed booking write. Each one is
// independent of the booking write and only logged when it fails.
func (s *Service) afterCommit(ctx context.Context, actor domain.Actor, action, eventType string, b *domain.Booking, notes ...domain.Notification) {
	log := observability.LoggerFromContext(ctx, s.logger).WithFields(map[string]interface{}{
		"booking": b.BookingID,
		"action":  action,
	})

	if s.notifier != nil {
		for _, n := range notes {
			if err := s.notifier.Notify(ctx, n); err != nil {
				log.WithError(err).Error("failed to create notification")
			}
		}
	}
	if s.audit != nil {
		data := map[string]interface{}{
			"booking_id": b.BookingID,
			"status":     b.Status,
			"total":      b.Pricing.TotalAmount,
			"remaining":  b.Pricing.RemainingAmount,
		}
		if err := s.audit.LogEvent(ctx, action, actor.ID, data); err != nil {
			log.WithError(err).Error("failed to write audit log")
		}
	}
	if s.events != nil && eventType != "" {
		if err := s.events.RecordEvent(ctx, domain.NewBookingEvent(eventType, *b, s.now())); err != nil {
			log.WithError(err).Error("failed to record booking event")
		}
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
