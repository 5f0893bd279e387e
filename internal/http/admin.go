package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/studio-bookings/internal/catalog"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/subscription"
)

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Confirmed InProgress Completed Cancelled Refunded"`
	Reason string `json:"reason"`
}

type resolvePaymentRequest struct {
	Status string `json:"status" validate:"required,oneof=Accepted Rejected"`
	Notes  string `json:"notes"`
}

type returnRequest struct {
	ReturnStatus string `json:"returnStatus" validate:"required,oneof=NotReturned Returned Damaged Lost"`
	DamageReport string `json:"damageReport"`
}

type staffRequest struct {
	Staff []string `json:"staff" validate:"dive,required"`
}

type equipmentRequest struct {
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Rating      float64 `json:"rating" validate:"gte=0,lte=5"`
	Image       string  `json:"image"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
}

type planRequest struct {
	Name              string          `json:"name" validate:"required"`
	Description       string          `json:"description"`
	Price             float64         `json:"price" validate:"gte=0"`
	DurationDays      int             `json:"durationDays" validate:"gt=0"`
	IncludedEquipment []string        `json:"includedEquipment"`
	IncludedServices  []string        `json:"includedServices"`
	Manpower          domain.Manpower `json:"manpower"`
	IsActive          *bool           `json:"isActive"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type blacklistRequest struct {
	Blacklisted *bool `json:"isBlacklisted" validate:"required"`
}

func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bookings.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f := domain.BookingFilter{
		CustomerID: r.URL.Query().Get("customerId"),
		Status:     domain.BookingStatus(r.URL.Query().Get("status")),
		Page:       page,
		Limit:      limit,
	}
	list, total, err := h.bookings.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": list, "total": total, "page": page, "limit": limit})
}

func (h *Handlers) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.bookings.UpdateStatus(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), domain.BookingStatus(req.Status), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) ResolvePayment(w http.ResponseWriter, r *http.Request) {
	var req resolvePaymentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	accept := req.Status == string(domain.PaymentRequestAccepted)
	b, err := h.bookings.ResolvePayment(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "paymentId"), accept, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) RecordReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.bookings.RecordReturn(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), domain.ReturnStatus(req.ReturnStatus), req.DamageReport)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) AssignStaff(w http.ResponseWriter, r *http.Request) {
	var req staffRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.bookings.AssignStaff(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Staff)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (req equipmentRequest) input() catalog.EquipmentInput {
	return catalog.EquipmentInput{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
		Rating:      req.Rating,
		Image:       req.Image,
		Quantity:    req.Quantity,
	}
}

func (h *Handlers) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.catalog.Create(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handlers) UpdateEquipment(w http.ResponseWriter, r *http.Request) {
	var req equipmentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.catalog.Update(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) DeleteEquipment(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req planRequest) input() subscription.PlanInput {
	return subscription.PlanInput{
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		DurationDays:      req.DurationDays,
		IncludedEquipment: req.IncludedEquipment,
		IncludedServices:  req.IncludedServices,
		Manpower:          req.Manpower,
		IsActive:          req.IsActive,
	}
}

func (h *Handlers) AllPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subs.ListPlans(r.Context(), false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

func (h *Handlers) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.subs.CreatePlan(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.subs.UpdatePlan(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	f := subscription.Filter{
		CustomerID: r.URL.Query().Get("customerId"),
		Status:     domain.SubscriptionStatus(r.URL.Query().Get("status")),
	}
	subs, err := h.subs.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}

func (h *Handlers) ApproveSubscription(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	sub, err := h.subs.Approve(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handlers) RejectSubscription(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	sub, err := h.subs.Reject(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handlers) SuspendSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.Suspend(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context(), domain.Role(r.URL.Query().Get("role")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *Handlers) SetBlacklisted(w http.ResponseWriter, r *http.Request) {
	var req blacklistRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.auth.SetBlacklisted(r.Context(), chi.URLParam(r, "id"), *req.Blacklisted)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	entries, err := h.audit.Recent(r.Context(), int64(limit))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": entries})
}
