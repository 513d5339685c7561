package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/boxbook/pkg/auth"
	"github.com/diagnosis/boxbook/pkg/config"
	"github.com/diagnosis/boxbook/pkg/logger"
	"github.com/diagnosis/boxbook/pkg/response"
	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
	"github.com/diagnosis/boxbook/services/bookings/internal/service"
)

type contextKey string

const claimsKey contextKey = "claims"

// maxBodyBytes bounds request bodies, webhook payloads included.
const maxBodyBytes = 64 << 10

type Handlers struct {
	reservations service.ReservationService
	operator     auth.Operator
	auth         config.AuthConfig
}

func New(reservations service.ReservationService, authCfg config.AuthConfig) *Handlers {
	return &Handlers{
		reservations: reservations,
		operator:     auth.Operator{Email: authCfg.OperatorEmail, PasswordHash: authCfg.OperatorPasswordHash},
		auth:         authCfg,
	}
}

// Mount registers every route on r. createMW wraps reservation creation only
// (idempotency replay, rate limiting).
func (h *Handlers) Mount(r chi.Router, createMW ...func(http.Handler) http.Handler) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/availability", h.Availability)
		r.Post("/quote", h.Quote)
		r.Post("/promo/validate", h.ValidatePromo)
		r.Post("/webhooks/stripe", h.StripeWebhook)

		r.Route("/reservations", func(r chi.Router) {
			r.With(createMW...).Post("/", h.CreateReservation)
			r.Get("/{id}", h.GetReservation)
			r.Delete("/{id}", h.CancelReservation)
			r.Post("/{id}/checkout", h.Checkout)
			r.Put("/{id}/promo", h.AttachPromo)
		})

		r.Post("/admin/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireOperator)
			r.Get("/admin/reservations", h.ListReservations)
			r.Get("/admin/reservations/{id}", h.AdminGetReservation)
			r.Post("/admin/reservations/{id}/cancel", h.AdminCancelReservation)
			r.Delete("/admin/reservations/{id}", h.DeleteReservation)
			r.Get("/admin/settings", h.GetSettings)
			r.Put("/admin/settings", h.UpdateSettings)
		})
	})
}

// RequireOperator admits requests carrying an operator access token.
func (h *Handlers) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		claims, err := auth.Parse(strings.TrimPrefix(authHeader, "Bearer "), h.auth.JWTSecret)
		if err != nil {
			response.Unauthorized(w, "Invalid token")
			return
		}
		if claims.Role != auth.RoleOperator {
			response.Forbidden(w, "Operator access required")
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Subject)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "Invalid reservation ID")
		return 0, false
	}
	return id, true
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

// writeServiceError maps engine errors onto HTTP statuses and error codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		promo      *domain.PromoError
	)
	switch {
	case errors.As(err, &validation):
		response.WriteErrorWithDetails(w, http.StatusBadRequest, validation.Error(), response.CodeInvalidInput, validation.Field)
	case errors.Is(err, domain.ErrConflict):
		response.WriteError(w, http.StatusConflict, "The requested time is no longer available", response.CodeSlotUnavailable)
	case errors.As(err, &promo):
		response.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, promo.Error(), response.CodePromoInvalid, promo.Reason)
	case errors.Is(err, domain.ErrPaymentTimeout):
		response.WriteError(w, http.StatusGatewayTimeout, "Payment provider timed out", response.CodePaymentTimeout)
	case errors.Is(err, domain.ErrPaymentSession):
		response.WriteError(w, http.StatusBadGateway, "Could not start payment", response.CodePaymentFailed)
	case errors.Is(err, domain.ErrSignature):
		response.WriteError(w, http.StatusBadRequest, "Invalid signature", response.CodeInvalidSignature)
	case errors.Is(err, domain.ErrReconciliation):
		response.WriteError(w, http.StatusInternalServerError, "Payment could not be reconciled", response.CodeReconciliation)
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "Reservation not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.WriteErrorWithDetails(w, http.StatusConflict, "Reservation cannot change state", response.CodeReservationClosed, err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
	}
}
