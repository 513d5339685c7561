package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/diagnosis/boxbook/pkg/logger"
	"github.com/diagnosis/boxbook/pkg/response"
	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
)

// StripeWebhook applies a signed processor callback. Non-2xx answers make the
// processor redeliver, so only signature failures are reported as client
// errors.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.WriteError(w, http.StatusRequestEntityTooLarge, "Payload too large", response.CodeInvalidInput)
		return
	}

	err = h.reservations.HandlePaymentEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		response.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, domain.ErrSignature):
		response.WriteError(w, http.StatusBadRequest, "Invalid signature", response.CodeInvalidSignature)
	default:
		logger.ErrorContext(r.Context(), "Payment webhook failed", "error", err)
		writeServiceError(w, r, err)
	}
}
