package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/studio-bookings/internal/booking"
	"github.com/robertarktes/studio-bookings/internal/domain"
)

type itemRequest struct {
	EquipmentID string `json:"equipmentId" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
}

// bookingRequest is the body of both quote and create; quote ignores the
// event fields.
type bookingRequest struct {
	BookingType        string              `json:"bookingType" validate:"required"`
	EventType          string              `json:"eventType"`
	EquipmentList      []itemRequest       `json:"equipmentList" validate:"dive"`
	StartDate          string              `json:"startDate" validate:"required,studiodate"`
	EndDate            string              `json:"endDate" validate:"required,studiodate,notbefore=StartDate"`
	TotalDays          int                 `json:"totalDays" validate:"gte=0"`
	IncludeHours       bool                `json:"includeHours"`
	TotalHours         float64             `json:"totalHours" validate:"gte=0"`
	SubscriptionPlanID string              `json:"subscriptionPlanId"`
	EventDetails       domain.EventDetails `json:"eventDetails"`
	Notes              string              `json:"notes"`
}

type availabilityRequest struct {
	EquipmentList []itemRequest `json:"equipmentList" validate:"required,min=1,dive"`
	StartDate     string        `json:"startDate" validate:"required,studiodate"`
	EndDate       string        `json:"endDate" validate:"required,studiodate,notbefore=StartDate"`
}

type rangeQuery struct {
	StartDate string `json:"startDate" validate:"required,studiodate"`
	EndDate   string `json:"endDate" validate:"required,studiodate,notbefore=StartDate"`
}

type rescheduleRequest struct {
	StartDate string `json:"startDate" validate:"required,studiodate"`
	EndDate   string `json:"endDate" validate:"required,studiodate,notbefore=StartDate"`
	Reason    string `json:"reason"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type paymentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Method string  `json:"method" validate:"required"`
	Notes  string  `json:"notes"`
}

// items converts request lines; a missing quantity means one unit.
func items(lines []itemRequest) []domain.ItemRequest {
	out := make([]domain.ItemRequest, 0, len(lines))
	for _, l := range lines {
		qty := l.Quantity
		if qty == 0 {
			qty = 1
		}
		out = append(out, domain.ItemRequest{EquipmentID: l.EquipmentID, Quantity: qty})
	}
	return out
}

// dates parses a validated range.
func dates(start, end string) (time.Time, time.Time, error) {
	s, err := parseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := parseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return s, e, nil
}

func (req bookingRequest) quoteInput() (booking.QuoteInput, error) {
	start, end, err := dates(req.StartDate, req.EndDate)
	if err != nil {
		return booking.QuoteInput{}, err
	}
	return booking.QuoteInput{
		BookingType:        req.BookingType,
		Items:              items(req.EquipmentList),
		StartDate:          start,
		EndDate:            end,
		TotalDays:          req.TotalDays,
		IncludeHours:       req.IncludeHours,
		TotalHours:         req.TotalHours,
		SubscriptionPlanID: req.SubscriptionPlanID,
	}, nil
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := req.quoteInput()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.bookings.Create(r.Context(), actorFrom(r.Context()), booking.CreateInput{
		QuoteInput:   in,
		EventType:    req.EventType,
		EventDetails: req.EventDetails,
		Notes:        req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"booking": b, "bookingId": b.BookingID})
}

func (h *Handlers) QuoteBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := req.quoteInput()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := h.bookings.Quote(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handlers) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	start, end, err := dates(req.StartDate, req.EndDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.bookings.CheckAvailability(r.Context(), items(req.EquipmentList), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) AvailableEquipment(w http.ResponseWriter, r *http.Request) {
	q := rangeQuery{StartDate: r.URL.Query().Get("startDate"), EndDate: r.URL.Query().Get("endDate")}
	if err := check(&q); err != nil {
		h.writeError(w, r, err)
		return
	}
	start, end, err := dates(q.StartDate, q.EndDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	list, err := h.bookings.AvailableEquipment(r.Context(), start, end)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"equipment": list})
}

func (h *Handlers) MyBookings(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f := domain.BookingFilter{Status: domain.BookingStatus(r.URL.Query().Get("status")), Page: page, Limit: limit}
	list, total, err := h.bookings.ListForCustomer(r.Context(), actorFrom(r.Context()), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": list, "total": total, "page": page, "limit": limit})
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Get(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	start, end, err := dates(req.StartDate, req.EndDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.bookings.Reschedule(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), start, end, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	b, err := h.bookings.Cancel(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, pr, err := h.bookings.SubmitPayment(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Amount, req.Method, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"booking": b, "payment": pr})
}
