package http

import (
	"context"
	"net/http"
	"time"

	"github.com/robertarktes/studio-bookings/internal/auth"
	"github.com/robertarktes/studio-bookings/internal/booking"
	"github.com/robertarktes/studio-bookings/internal/catalog"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/subscription"
)

type NotificationStore interface {
	ListNotifications(ctx context.Context, to domain.RecipientType, recipientID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string, to domain.RecipientType, recipientID string) error
}

type AuditReader interface {
	Recent(ctx context.Context, limit int64) ([]domain.AuditEntry, error)
}

// ReadinessCheck is probed by /v1/readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Services struct {
	Auth          *auth.Service
	Bookings      *booking.Service
	Catalog       *catalog.Service
	Subscriptions *subscription.Service
	Notifications NotificationStore
	Audit         AuditReader
	Checks        []ReadinessCheck
}

type Handlers struct {
	auth          *auth.Service
	bookings      *booking.Service
	catalog       *catalog.Service
	subs          *subscription.Service
	notifications NotificationStore
	audit         AuditReader
	checks        []ReadinessCheck
	logger        observability.Logger
}

func NewHandlers(s Services, logger observability.Logger) *Handlers {
	return &Handlers{
		auth:          s.Auth,
		bookings:      s.Bookings,
		catalog:       s.Catalog,
		subs:          s.Subscriptions,
		notifications: s.Notifications,
		audit:         s.Audit,
		checks:        s.Checks,
		logger:        logger,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			observability.LoggerFromContext(r.Context(), h.logger).WithError(err).WithField("dependency", c.Name).Warn("readiness check failed")
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "failed": failed})
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.auth.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
