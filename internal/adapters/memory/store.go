// Package memory keeps every store in process memory. It backs the service and
// HTTP tests and local runs without Mongo.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/subscription"
)

type Store struct {
	mu            sync.RWMutex
	bookings      map[string]domain.Booking
	equipment     map[string]domain.Equipment
	plans         map[string]domain.SubscriptionPlan
	subscriptions map[string]domain.CustomerSubscription
	users         map[string]domain.User
	notifications []domain.Notification
	events        []domain.Event
	audit         []domain.AuditEntry
	ledger        map[string]string
	locks         map[string]string
}

func NewStore() *Store {
	return &Store{
		bookings:      make(map[string]domain.Booking),
		equipment:     make(map[string]domain.Equipment),
		plans:         make(map[string]domain.SubscriptionPlan),
		subscriptions: make(map[string]domain.CustomerSubscription),
		users:         make(map[string]domain.User),
		ledger:        make(map[string]string),
		locks:         make(map[string]string),
	}
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.EquipmentList = append([]domain.EquipmentLine(nil), b.EquipmentList...)
	b.AssignedStaff = append([]string(nil), b.AssignedStaff...)
	b.Payments = append([]domain.PaymentRequest(nil), b.Payments...)
	b.History = append([]domain.StatusChange(nil), b.History...)
	if b.Package != nil {
		p := *b.Package
		b.Package = &p
	}
	return b
}

func (s *Store) InsertBooking(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; ok {
		return domain.ErrConflict
	}
	s.bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (s *Store) GetBooking(_ context.Context, id string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.bookings[id]; ok {
		c := cloneBooking(b)
		return &c, nil
	}
	for _, b := range s.bookings {
		if b.BookingID == id {
			c := cloneBooking(b)
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) UpdateBooking(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return domain.ErrNotFound
	}
	s.bookings[b.ID] = cloneBooking(*b)
	return nil
}

// ListBookings returns the page newest first.
func (s *Store) ListBookings(_ context.Context, f domain.BookingFilter) ([]domain.Booking, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []domain.Booking
	for _, b := range s.bookings {
		if f.CustomerID != "" && b.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		matched = append(matched, cloneBooking(b))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if f.Limit <= 0 {
		return matched, total, nil
	}
	from := (f.Page - 1) * f.Limit
	if from < 0 {
		from = 0
	}
	if from >= len(matched) {
		return []domain.Booking{}, total, nil
	}
	to := from + f.Limit
	if to > len(matched) {
		to = len(matched)
	}
	return matched[from:to], total, nil
}

func (s *Store) CountBookings(_ context.Context, status domain.BookingStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, b := range s.bookings {
		if b.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) FindOverlapping(_ context.Context, start, end time.Time, statuses []domain.BookingStatus, equipmentIDs []string) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]bool, len(equipmentIDs))
	for _, id := range equipmentIDs {
		want[id] = true
	}
	var out []domain.Booking
	for _, b := range s.bookings {
		if !hasStatus(statuses, b.Status) || !domain.Overlaps(b.StartDate, b.EndDate, start, end) {
			continue
		}
		if len(want) > 0 && !usesAny(b, want) {
			continue
		}
		out = append(out, cloneBooking(b))
	}
	return out, nil
}

func hasStatus(statuses []domain.BookingStatus, st domain.BookingStatus) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func usesAny(b domain.Booking, ids map[string]bool) bool {
	for _, l := range b.EquipmentList {
		if ids[l.EquipmentID] {
			return true
		}
	}
	return false
}

func (s *Store) InsertEquipment(_ context.Context, e *domain.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.equipment {
		if other.Slug == e.Slug {
			return errors.Mark(errors.Newf("slug %s already used", e.Slug), domain.ErrConflict)
		}
	}
	s.equipment[e.ID] = *e
	return nil
}

func (s *Store) UpdateEquipment(_ context.Context, e *domain.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.equipment[e.ID]; !ok {
		return domain.ErrNotFound
	}
	s.equipment[e.ID] = *e
	return nil
}

func (s *Store) DeleteEquipment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.equipment[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.equipment, id)
	return nil
}

func (s *Store) GetEquipment(_ context.Context, id string) (*domain.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.equipment[id]; ok {
		return &e, nil
	}
	for _, e := range s.equipment {
		if e.Slug == id {
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListEquipment(_ context.Context) ([]domain.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Equipment, 0, len(s.equipment))
	for _, e := range s.equipment {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) InsertPlan(_ context.Context, p *domain.SubscriptionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = *p
	return nil
}

func (s *Store) UpdatePlan(_ context.Context, p *domain.SubscriptionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[p.ID]; !ok {
		return domain.ErrNotFound
	}
	s.plans[p.ID] = *p
	return nil
}

func (s *Store) GetPlan(_ context.Context, id string) (*domain.SubscriptionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ListPlans(_ context.Context, activeOnly bool) ([]domain.SubscriptionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.SubscriptionPlan{}
	for _, p := range s.plans {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (s *Store) InsertSubscription(_ context.Context, sub *domain.CustomerSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[sub.ID] = *sub
	return nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *domain.CustomerSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[sub.ID]; !ok {
		return domain.ErrNotFound
	}
	s.subscriptions[sub.ID] = *sub
	return nil
}

func (s *Store) GetSubscription(_ context.Context, id string) (*domain.CustomerSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (s *Store) ListSubscriptions(_ context.Context, f subscription.Filter) ([]domain.CustomerSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.CustomerSubscription{}
	for _, sub := range s.subscriptions {
		if f.CustomerID != "" && sub.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && sub.Status != f.Status {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListDue(_ context.Context, now time.Time) ([]domain.CustomerSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CustomerSubscription
	for _, sub := range s.subscriptions {
		if sub.Status == domain.SubscriptionActive && sub.EndDate != nil && !sub.EndDate.After(now) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *Store) InsertUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.users {
		if strings.EqualFold(other.Email, u.Email) {
			return errors.Mark(errors.Newf("email %s taken", u.Email), domain.ErrConflict)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context, role domain.Role) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.User{}
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) SetBlacklisted(_ context.Context, id string, blacklisted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsBlacklisted = blacklisted
	s.users[id] = u
	return nil
}

func (s *Store) Notify(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, n)
	return nil
}

// ListNotifications returns notifications addressed to the recipient, newest
// first. Admin notifications with no recipient id are broadcast to every admin.
func (s *Store) ListNotifications(_ context.Context, to domain.RecipientType, recipientID string) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Notification{}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.RecipientType == to && (n.RecipientID == "" || n.RecipientID == recipientID) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) MarkRead(_ context.Context, id string, to domain.RecipientType, recipientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID == id && n.RecipientType == to && (n.RecipientID == "" || n.RecipientID == recipientID) {
			n.IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) RecordEvent(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *Store) LogEvent(_ context.Context, action, actorID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, domain.AuditEntry{
		ID:        uuid.NewString(),
		Action:    action,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	return nil
}

// Recent returns the latest audit entries, newest first.
func (s *Store) Recent(_ context.Context, limit int64) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.AuditEntry{}
	for i := len(s.audit) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, s.audit[i])
	}
	return out, nil
}

// Reserve claims every equipment-day of b or none of them.
func (s *Store) Reserve(_ context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := domain.NewReservations(b)
	for _, r := range rows {
		if owner, ok := s.ledger[ledgerKey(r)]; ok && owner != b.ID {
			return errors.Mark(errors.Newf("equipment %s already reserved on %s", r.EquipmentID, r.Day.Format("2006-01-02")), domain.ErrConflict)
		}
	}
	for _, r := range rows {
		s.ledger[ledgerKey(r)] = b.ID
	}
	return nil
}

func (s *Store) Release(_ context.Context, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, owner := range s.ledger {
		if owner == bookingID {
			delete(s.ledger, k)
		}
	}
	return nil
}

func ledgerKey(r domain.Reservation) string {
	return r.EquipmentID + "|" + r.Day.Format("2006-01-02")
}

// Locks returns a Locker view of the store. Acquire and Release clash with the
// ledger methods on Store itself.
func (s *Store) Locks() *Locks {
	return &Locks{s: s}
}

type Locks struct {
	s *Store
}

func (l *Locks) Acquire(_ context.Context, key, owner string, _ time.Duration) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if _, held := l.s.locks[key]; held {
		return false, nil
	}
	l.s.locks[key] = owner
	return true, nil
}

func (l *Locks) Release(_ context.Context, key, owner string) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.locks[key] == owner {
		delete(l.s.locks, key)
	}
	return nil
}

// Inspection helpers for tests.

func (s *Store) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Event(nil), s.events...)
}

func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditEntry(nil), s.audit...)
}

func (s *Store) Notifications() []domain.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Notification(nil), s.notifications...)
}

func (s *Store) LedgerSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ledger)
}
