package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/idempotency"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/rateLimit"
)

// Options configures the cross-cutting middleware. A nil RateLimiter or
// Idempotency disables that layer.
type Options struct {
	Logger      observability.Logger
	RateLimiter *rateLimit.RateLimiter
	UserRate    int
	IPRate      int
	RateWindow  time.Duration
	Idempotency *idempotency.Idempotency
}

func SetupRouter(h *Handlers, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(opts.Logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	if opts.RateLimiter != nil {
		r.Use(RateLimitMiddleware(opts.RateLimiter, opts.IPRate, opts.RateWindow, byIP))
	}

	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Get("/equipment", h.ListEquipment)
	r.Get("/equipment/{id}", h.GetEquipment)
	r.Get("/subscriptions/plans", h.ActivePlans)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.auth.Issuer(), opts.Logger))
		if opts.RateLimiter != nil {
			r.Use(RateLimitMiddleware(opts.RateLimiter, opts.UserRate, opts.RateWindow, byUser))
		}
		if opts.Idempotency != nil {
			r.Use(IdempotencyMiddleware(opts.Idempotency, opts.Logger))
		}

		r.Get("/auth/me", h.Me)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/create", h.CreateBooking)
			r.Post("/quote", h.QuoteBooking)
			r.Post("/check-availability", h.CheckAvailability)
			r.Get("/available-equipment", h.AvailableEquipment)
			r.Get("/my", h.MyBookings)
			r.Get("/{id}", h.GetBooking)
			r.Put("/{id}/reschedule", h.RescheduleBooking)
			r.Put("/{id}/cancel", h.CancelBooking)
			r.Post("/{id}/payments", h.SubmitPayment)
		})

		r.Post("/subscriptions/request", h.RequestSubscription)
		r.Get("/subscriptions/my", h.MySubscriptions)
		r.Put("/subscriptions/{id}/cancel", h.CancelSubscription)

		r.Get("/notifications", h.ListNotifications)
		r.Put("/notifications/{id}/read", h.MarkNotificationRead)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(domain.RoleAdmin))

			r.Get("/dashboard", h.Dashboard)
			r.Get("/audit-logs", h.AuditLogs)

			r.Get("/bookings", h.ListBookings)
			r.Put("/bookings/{id}/status", h.UpdateBookingStatus)
			r.Put("/bookings/{id}/payments/{paymentId}", h.ResolvePayment)
			r.Put("/bookings/{id}/return", h.RecordReturn)
			r.Put("/bookings/{id}/staff", h.AssignStaff)

			r.Post("/equipment", h.CreateEquipment)
			r.Put("/equipment/{id}", h.UpdateEquipment)
			r.Delete("/equipment/{id}", h.DeleteEquipment)

			r.Get("/plans", h.AllPlans)
			r.Post("/plans", h.CreatePlan)
			r.Put("/plans/{id}", h.UpdatePlan)

			r.Get("/subscriptions", h.ListSubscriptions)
			r.Put("/subscriptions/{id}/approve", h.ApproveSubscription)
			r.Put("/subscriptions/{id}/reject", h.RejectSubscription)
			r.Put("/subscriptions/{id}/suspend", h.SuspendSubscription)

			r.Get("/users", h.ListUsers)
			r.Put("/users/{id}/blacklist", h.SetBlacklisted)
		})
	})

	return r
}
