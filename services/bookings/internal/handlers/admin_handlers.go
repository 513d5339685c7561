package handlers

import (
	"net/http"
	"strconv"

	"github.com/diagnosis/boxbook/pkg/auth"
	"github.com/diagnosis/boxbook/pkg/logger"
	"github.com/diagnosis/boxbook/pkg/response"
	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
	"github.com/diagnosis/boxbook/services/bookings/internal/schedule"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login issues an operator access token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.operator.Authenticate(req.Email, req.Password); err != nil {
		logger.WarnContext(r.Context(), "Operator login rejected", "email", req.Email)
		response.Unauthorized(w, "Invalid credentials")
		return
	}

	token, err := auth.NewAccessToken(h.operator.Email, auth.RoleOperator, h.auth.JWTSecret, h.auth.AccessTokenTTL)
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to sign access token", "error", err)
		response.InternalError(w, "Failed to issue token")
		return
	}

	response.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.auth.AccessTokenTTL.Seconds()),
	})
}

// ListReservations supports ?status=, ?date=, ?include_test=, ?limit= and ?offset=.
func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter domain.ListFilter
	filter.Limit, filter.Offset = parsePagination(r)

	if raw := q.Get("status"); raw != "" {
		st, ok := domain.ParseStatus(raw)
		if !ok {
			response.BadRequest(w, "Invalid status parameter")
			return
		}
		filter.Status = &st
	}
	if raw := q.Get("date"); raw != "" {
		d, err := schedule.ParseDate(raw)
		if err != nil {
			response.BadRequest(w, "Invalid date parameter")
			return
		}
		filter.Date = &d
	}
	if raw := q.Get("include_test"); raw != "" {
		filter.IncludeTest, _ = strconv.ParseBool(raw)
	}

	list, err := h.reservations.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Reservation{}
	}
	response.WriteJSON(w, http.StatusOK, list)
}

func (h *Handlers) AdminGetReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	res, err := h.reservations.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// AdminCancelReservation cancels pending or confirmed reservations.
func (h *Handlers) AdminCancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.reservations.Cancel(r.Context(), id, req.Reason, domain.ActorOperator)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	logger.InfoContext(r.Context(), "Operator cancelled reservation", "reservation_id", id, "operator", getClaims(r).Subject)
	response.WriteJSON(w, http.StatusOK, res)
}

func (h *Handlers) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.reservations.SoftDelete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.reservations.Settings(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, cfg)
}

func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var cfg schedule.Config
	if !decodeJSON(w, r, &cfg) {
		return
	}

	if err := h.reservations.UpdateSettings(r.Context(), &cfg); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, &cfg)
}
