package handlers

import (
	"net/http"

	"github.com/diagnosis/boxbook/pkg/response"
	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
	"github.com/diagnosis/boxbook/services/bookings/internal/schedule"
	"github.com/diagnosis/boxbook/services/bookings/internal/service"
)

// Availability lists the start times still offered on ?date=.
func (h *Handlers) Availability(w http.ResponseWriter, r *http.Request) {
	date, err := schedule.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		response.WriteErrorWithDetails(w, http.StatusBadRequest, err.Error(), response.CodeInvalidInput, "date")
		return
	}

	out, err := h.reservations.Availability(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handlers) Quote(w http.ResponseWriter, r *http.Request) {
	var req service.QuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	quote, err := h.reservations.Quote(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, quote)
}

type promoRequest struct {
	Code string `json:"code"`
}

func (h *Handlers) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.reservations.ValidatePromo(r.Context(), req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"code":  p.Code,
		"type":  p.Type,
		"value": p.Value,
	})
}

// CreateReservation returns the new pending reservation together with its
// manage token. The client must keep the token to manage the booking.
func (h *Handlers) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req domain.ReservationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.reservations.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, res)
}

// withToken loads the reservation addressed by {id} and ?manage_token=.
func (h *Handlers) withToken(w http.ResponseWriter, r *http.Request) (*domain.Reservation, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}
	token := r.URL.Query().Get("manage_token")
	if token == "" {
		response.Unauthorized(w, "manage_token is required")
		return nil, false
	}

	res, err := h.reservations.GetWithToken(r.Context(), id, token)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	return res, true
}

func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, ok := h.withToken(w, r)
	if !ok {
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

// Checkout opens (or reuses) the payment session for a pending reservation.
// A fully discounted reservation is confirmed on the spot.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	res, ok := h.withToken(w, r)
	if !ok {
		return
	}

	out, err := h.reservations.InitiatePayment(r.Context(), res.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, out)
}

func (h *Handlers) AttachPromo(w http.ResponseWriter, r *http.Request) {
	res, ok := h.withToken(w, r)
	if !ok {
		return
	}
	var req promoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.reservations.AttachPromo(r.Context(), res.ID, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, updated)
}

// CancelReservation lets the customer withdraw a reservation that is not
// confirmed yet.
func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	res, ok := h.withToken(w, r)
	if !ok {
		return
	}

	updated, err := h.reservations.Cancel(r.Context(), res.ID, r.URL.Query().Get("reason"), domain.ActorCustomer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, updated)
}
