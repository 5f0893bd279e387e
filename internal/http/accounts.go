package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/studio-bookings/internal/domain"
)

type subscribeRequest struct {
	PlanID string `json:"planId" validate:"required"`
}

func recipientFor(a domain.Actor) domain.RecipientType {
	switch a.Role {
	case domain.RoleAdmin:
		return domain.RecipientAdmin
	case domain.RoleStaff:
		return domain.RecipientStaff
	}
	return domain.RecipientCustomer
}

func (h *Handlers) ListEquipment(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"equipment": list})
}

func (h *Handlers) GetEquipment(w http.ResponseWriter, r *http.Request) {
	e, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handlers) ActivePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subs.ListPlans(r.Context(), true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"plans": plans})
}

func (h *Handlers) RequestSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.subs.Request(r.Context(), actorFrom(r.Context()), req.PlanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handlers) MySubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.ListMine(r.Context(), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}

func (h *Handlers) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.subs.Cancel(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	list, err := h.notifications.ListNotifications(r.Context(), recipientFor(actor), actor.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": list, "unread": unread})
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if err := h.notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), recipientFor(actor), actor.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
