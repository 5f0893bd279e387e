package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/robertarktes/studio-bookings/internal/adapters/memory"
	"github.com/robertarktes/studio-bookings/internal/auth"
	"github.com/robertarktes/studio-bookings/internal/booking"
	"github.com/robertarktes/studio-bookings/internal/catalog"
	"github.com/robertarktes/studio-bookings/internal/domain"
	httpapi "github.com/robertarktes/studio-bookings/internal/http"
	"github.com/robertarktes/studio-bookings/internal/idempotency"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/rateLimit"
	"github.com/robertarktes/studio-bookings/internal/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"
)

type server struct {
	t      *testing.T
	store  *memory.Store
	issuer *auth.Issuer
	router http.Handler
}

type setup struct {
	userRate int
	checks   []httpapi.ReadinessCheck
}

func newServer(t *testing.T, opts ...func(*setup)) *server {
	t.Helper()
	cfg := setup{userRate: 1000}
	for _, o := range opts {
		o(&cfg)
	}
	ctx := context.Background()
	logger := observability.NewLogger()
	store := memory.NewStore()

	for _, e := range []domain.Equipment{
		{ID: "cam-1", Name: "Sony A7 IV", Slug: "sony-a7-iv", Category: "Camera", Price: 20000, Quantity: 1},
		{ID: "lens-1", Name: "85mm f/1.4", Slug: "85mm-f-1-4", Category: "Lens", Price: 5000, Quantity: 1},
	} {
		e := e
		require.NoError(t, store.InsertEquipment(ctx, &e))
	}
	for _, u := range []domain.User{
		{ID: "cust-1", Email: "one@example.com", Name: "One", Role: domain.RoleCustomer},
		{ID: "cust-2", Email: "two@example.com", Name: "Two", Role: domain.RoleCustomer},
		{ID: "admin-1", Email: "admin@example.com", Name: "Admin", Role: domain.RoleAdmin},
	} {
		u := u
		require.NoError(t, store.InsertUser(ctx, &u))
	}

	issuer := auth.NewIssuer("test-secret", time.Hour)
	bookings := booking.NewService(domain.DefaultPricingPolicy(), booking.Deps{
		Bookings: store,
		Catalog:  store,
		Users:    store,
		Notifier: store,
		Events:   store,
		Audit:    store,
		Locker:   store.Locks(),
	}, logger)

	h := httpapi.NewHandlers(httpapi.Services{
		Auth:          auth.NewService(store, issuer, bcrypt.MinCost),
		Bookings:      bookings,
		Catalog:       catalog.NewService(store),
		Subscriptions: subscription.NewService(store, store, store, store, logger),
		Notifications: store,
		Audit:         store,
		Checks:        cfg.checks,
	}, logger)

	router := httpapi.SetupRouter(h, httpapi.Options{
		Logger:      logger,
		RateLimiter: rateLimit.NewWithCounter(rateLimit.NewMemoryCounter(), logger),
		UserRate:    cfg.userRate,
		IPRate:      1000,
		RateWindow:  time.Minute,
		Idempotency: idempotency.NewIdempotency(idempotency.NewMemoryBackend(), time.Hour),
	})
	return &server{t: t, store: store, issuer: issuer, router: router}
}

func (s *server) token(userID string, role domain.Role) string {
	s.t.Helper()
	tok, _, err := s.issuer.Issue(userID, role)
	require.NoError(s.t, err)
	return tok
}

func (s *server) do(method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func rental(start, end string, ids ...string) map[string]interface{} {
	lines := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, map[string]interface{}{"equipmentId": id, "quantity": 1})
	}
	return map[string]interface{}{
		"bookingType":   domain.BookingTypeEquipmentRental,
		"eventType":     "Wedding",
		"equipmentList": lines,
		"startDate":     start,
		"endDate":       end,
	}
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "New@Example.com", "password": "correct-horse", "name": "Newcomer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, gjson.Get(rec.Body.String(), "token").String())
	assert.False(t, gjson.Get(rec.Body.String(), "user.passwordHash").Exists())

	rec = s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "new@example.com", "password": "correct-horse", "name": "Again",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "new@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := gjson.Get(rec.Body.String(), "token").String()

	rec = s.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new@example.com", gjson.Get(rec.Body.String(), "email").String())
	assert.Equal(t, "customer", gjson.Get(rec.Body.String(), "role").String())
}

func TestAuth_Guards(t *testing.T) {
	s := newServer(t)

	rec := s.do(http.MethodGet, "/bookings/my", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/bookings/my", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/bookings/my", "", nil, "x-auth-token", s.token("cust-1", domain.RoleCustomer))
	assert.Equal(t, http.StatusOK, rec.Code, "legacy header is accepted")

	rec = s.do(http.MethodGet, "/admin/dashboard", s.token("cust-1", domain.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/admin/dashboard", s.token("admin-1", domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateBooking(t *testing.T) {
	s := newServer(t)
	customer := s.token("cust-1", domain.RoleCustomer)

	rec := s.do(http.MethodPost, "/bookings/create", customer, rental("2025-01-10", "2025-01-12", "cam-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := rec.Body.String()

	bookingID := gjson.Get(body, "bookingId").String()
	assert.True(t, strings.HasPrefix(bookingID, "BK-"))
	// 20000 * 0.10 * 3 days + 500 service charge, plus 18% tax.
	assert.Equal(t, 6000.0, gjson.Get(body, "booking.pricing.equipmentTotal").Float())
	assert.Equal(t, 500.0, gjson.Get(body, "booking.pricing.serviceCharges").Float())
	assert.Equal(t, 1170.0, gjson.Get(body, "booking.pricing.taxes").Float())
	assert.Equal(t, 7670.0, gjson.Get(body, "booking.pricing.totalAmount").Float())
	assert.Equal(t, "Pending", gjson.Get(body, "booking.status").String())

	rec = s.do(http.MethodGet, "/bookings/"+bookingID, customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, gjson.Get(body, "booking.pricing").Raw, gjson.Get(rec.Body.String(), "pricing").Raw)

	rec = s.do(http.MethodGet, "/bookings/"+bookingID, s.token("cust-2", domain.RoleCustomer), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	notes := s.do(http.MethodGet, "/notifications", s.token("admin-1", domain.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, notes.Code)
	assert.Equal(t, int64(1), gjson.Get(notes.Body.String(), "unread").Int())
}

func TestCreateBooking_Rejects(t *testing.T) {
	s := newServer(t)
	customer := s.token("cust-1", domain.RoleCustomer)

	cases := []struct {
		name   string
		body   interface{}
		status int
		errMsg string
	}{
		{"bad date", rental("10/01/2025", "2025-01-12", "cam-1"), http.StatusBadRequest, "startDate"},
		{"end before start", rental("2025-01-12", "2025-01-10", "cam-1"), http.StatusBadRequest, "endDate must not be before startDate"},
		{"unknown equipment", rental("2025-01-10", "2025-01-12", "ghost"), http.StatusNotFound, "ghost"},
		{"missing type", map[string]interface{}{"startDate": "2025-01-10", "endDate": "2025-01-10"}, http.StatusBadRequest, "bookingType is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/bookings/create", customer, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, gjson.Get(rec.Body.String(), "error").String(), tc.errMsg)
		})
	}

	raw := httptest.NewRequest(http.MethodPost, "/bookings/create", strings.NewReader("{"))
	raw.Header.Set("Authorization", "Bearer "+customer)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, raw)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingLifecycle(t *testing.T) {
	s := newServer(t)
	customer := s.token("cust-1", domain.RoleCustomer)
	admin := s.token("admin-1", domain.RoleAdmin)

	rec := s.do(http.MethodPost, "/bookings/create", customer, rental("2025-01-10", "2025-01-15", "cam-1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := gjson.Get(rec.Body.String(), "bookingId").String()

	rec = s.do(http.MethodPut, "/admin/bookings/"+id+"/status", admin, map[string]string{"status": "Confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/bookings/check-availability", customer, map[string]interface{}{
		"equipmentList": []map[string]interface{}{{"equipmentId": "cam-1", "quantity": 1}},
		"startDate":     "2025-01-12",
		"endDate":       "2025-01-20",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gjson.Get(rec.Body.String(), "isAvailable").Bool())
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "items.0.bookedQuantity").Int())

	rec = s.do(http.MethodGet, "/bookings/available-equipment?startDate=2025-01-20&endDate=2025-01-25", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.Get(rec.Body.String(), `equipment.#(id=="cam-1").isAvailable`).Bool())

	rec = s.do(http.MethodPost, "/bookings/create", s.token("cust-2", domain.RoleCustomer), rental("2025-01-14", "2025-01-16", "cam-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/admin/bookings/"+id+"/status", admin, map[string]string{"status": "Refunded"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "Confirmed cannot jump to Refunded")

	rec = s.do(http.MethodPut, "/bookings/"+id+"/reschedule", customer, map[string]string{
		"startDate": "2025-02-01", "endDate": "2025-02-01", "reason": "venue moved",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Pending", gjson.Get(rec.Body.String(), "status").String())
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "totalDays").Int())
	assert.Equal(t, 2000.0, gjson.Get(rec.Body.String(), "pricing.equipmentTotal").Float())

	rec = s.do(http.MethodPut, "/bookings/"+id+"/cancel", customer, map[string]string{"reason": "changed plans"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cancelled", gjson.Get(rec.Body.String(), "status").String())

	rec = s.do(http.MethodPut, "/bookings/"+id+"/cancel", customer, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayments(t *testing.T) {
	s := newServer(t)
	customer := s.token("cust-1", domain.RoleCustomer)
	admin := s.token("admin-1", domain.RoleAdmin)

	rec := s.do(http.MethodPost, "/bookings/create", customer, rental("2025-01-10", "2025-01-12", "cam-1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := gjson.Get(rec.Body.String(), "bookingId").String()

	rec = s.do(http.MethodPost, "/bookings/"+id+"/payments", customer, map[string]interface{}{"amount": 99999, "method": "card"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/bookings/"+id+"/payments", customer, map[string]interface{}{"amount": 0, "method": "card"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/bookings/"+id+"/payments", customer, map[string]interface{}{"amount": 3000, "method": "card"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paymentID := gjson.Get(rec.Body.String(), "payment.id").String()
	require.NotEmpty(t, paymentID)

	rec = s.do(http.MethodPut, "/admin/bookings/"+id+"/payments/"+paymentID, admin, map[string]string{"status": "Accepted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3000.0, gjson.Get(rec.Body.String(), "pricing.advanceAmount").Float())
	assert.Equal(t, 4670.0, gjson.Get(rec.Body.String(), "pricing.remainingAmount").Float())
	assert.Equal(t, "Partial", gjson.Get(rec.Body.String(), "paymentStatus").String())

	notes := s.do(http.MethodGet, "/notifications", customer, nil)
	require.Equal(t, http.StatusOK, notes.Code)
	noteID := gjson.Get(notes.Body.String(), "notifications.0.id").String()
	rec = s.do(http.MethodPut, "/notifications/"+noteID+"/read", customer, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIdempotencyKey(t *testing.T) {
	s := newServer(t)
	customer := s.token("cust-1", domain.RoleCustomer)
	key := "booking-request-0001"

	first := s.do(http.MethodPost, "/bookings/create", customer, rental("2025-03-01", "2025-03-02", "lens-1"), "Idempotency-Key", key)
	require.Equal(t, http.StatusCreated, first.Code)
	second := s.do(http.MethodPost, "/bookings/create", customer, rental("2025-03-01", "2025-03-02", "lens-1"), "Idempotency-Key", key)
	require.Equal(t, http.StatusCreated, second.Code)

	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, gjson.Get(first.Body.String(), "bookingId").String(), gjson.Get(second.Body.String(), "bookingId").String())

	rec := s.do(http.MethodGet, "/bookings/my", customer, nil)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "total").Int())

	rec = s.do(http.MethodPost, "/bookings/create", customer, rental("2025-03-01", "2025-03-02", "lens-1"), "Idempotency-Key", "short")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := newServer(t, func(c *setup) { c.userRate = 2 })
	customer := s.token("cust-1", domain.RoleCustomer)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/bookings/my", customer, nil).Code)
	}
	rec := s.do(http.MethodGet, "/bookings/my", customer, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/bookings/my", s.token("cust-2", domain.RoleCustomer), nil).Code)
}

func TestEquipmentAdmin(t *testing.T) {
	s := newServer(t)
	admin := s.token("admin-1", domain.RoleAdmin)

	rec := s.do(http.MethodPost, "/admin/equipment", admin, map[string]interface{}{
		"name": "Canon EOS R5", "category": "Camera", "price": 30000, "rating": 4.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "canon-eos-r5", gjson.Get(rec.Body.String(), "slug").String())

	rec = s.do(http.MethodPost, "/admin/equipment", admin, map[string]interface{}{"name": "Bad", "rating": 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/equipment?category=camera", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "equipment.#").Int())

	rec = s.do(http.MethodGet, "/equipment/canon-eos-r5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := gjson.Get(rec.Body.String(), "id").String()

	rec = s.do(http.MethodDelete, "/admin/equipment/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/equipment/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscriptions(t *testing.T) {
	s := newServer(t)
	customer := s.token("cust-1", domain.RoleCustomer)
	admin := s.token("admin-1", domain.RoleAdmin)

	rec := s.do(http.MethodPost, "/admin/plans", admin, map[string]interface{}{
		"name": "Gold", "price": 25000, "durationDays": 30, "manpower": map[string]int{"photographers": 2},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	planID := gjson.Get(rec.Body.String(), "id").String()

	rec = s.do(http.MethodGet, "/subscriptions/plans", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "plans.#").Int())

	rec = s.do(http.MethodPost, "/subscriptions/request", customer, map[string]string{"planId": planID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	subID := gjson.Get(rec.Body.String(), "id").String()

	rec = s.do(http.MethodPut, "/admin/subscriptions/"+subID+"/approve", admin, map[string]string{"notes": "welcome"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Active", gjson.Get(rec.Body.String(), "status").String())
	assert.True(t, gjson.Get(rec.Body.String(), "endDate").Exists())

	rec = s.do(http.MethodGet, "/subscriptions/my", customer, nil)
	assert.Equal(t, int64(1), gjson.Get(rec.Body.String(), "subscriptions.#").Int())

	inactive := false
	rec = s.do(http.MethodPut, "/admin/plans/"+planID, admin, map[string]interface{}{
		"name": "Gold", "price": 25000, "durationDays": 30, "isActive": inactive,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := rental("2025-04-01", "2025-04-02", "cam-1")
	body["subscriptionPlanId"] = planID
	rec = s.do(http.MethodPost, "/bookings/create", customer, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "inactive plan is an invalid state")
	rec = s.do(http.MethodGet, "/bookings/my", customer, nil)
	assert.Equal(t, int64(0), gjson.Get(rec.Body.String(), "total").Int())
}

func TestAdminUsersAndAudit(t *testing.T) {
	s := newServer(t)
	admin := s.token("admin-1", domain.RoleAdmin)

	rec := s.do(http.MethodPut, "/admin/users/cust-2/blacklist", admin, map[string]bool{"isBlacklisted": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.Get(rec.Body.String(), "isBlacklisted").Bool())

	rec = s.do(http.MethodPost, "/bookings/create", s.token("cust-2", domain.RoleCustomer), rental("2025-05-01", "2025-05-01", "cam-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/admin/users?role=customer", admin, nil)
	assert.Equal(t, int64(2), gjson.Get(rec.Body.String(), "users.#").Int())

	rec = s.do(http.MethodPost, "/bookings/create", s.token("cust-1", domain.RoleCustomer), rental("2025-05-01", "2025-05-01", "cam-1"))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(http.MethodGet, "/admin/audit-logs?limit=10", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "booking.created", gjson.Get(rec.Body.String(), "logs.0.action").String())
}

func TestReadiness(t *testing.T) {
	s := newServer(t, func(c *setup) {
		c.checks = []httpapi.ReadinessCheck{
			{Name: "mongo", Check: func(context.Context) error { return nil }},
			{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
		}
	})

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/healthz", "", nil).Code)
	rec := s.do(http.MethodGet, "/v1/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "connection refused", gjson.Get(rec.Body.String(), "failed.redis").String())
	assert.False(t, gjson.Get(rec.Body.String(), "failed.mongo").Exists())
}
