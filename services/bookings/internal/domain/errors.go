package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("slot no longer available")
	ErrPromoInvalid      = errors.New("promo code invalid")
	ErrPaymentSession    = errors.New("payment session failed")
	ErrPaymentTimeout    = fmt.Errorf("%w: processor timed out", ErrPaymentSession)
	ErrReconciliation    = errors.New("payment does not match a reservation")
	ErrSignature         = errors.New("payment event signature invalid")
	ErrNotFound          = errors.New("reservation not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports the offending field of a rejected request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Promo rejection reasons, in the order they are checked.
const (
	PromoNotFound   = "not_found"
	PromoInactive   = "inactive"
	PromoExhausted  = "exhausted"
	PromoNotStarted = "not_started"
	PromoExpired    = "expired"
)

type PromoError struct {
	Code   string
	Reason string
}

func (e *PromoError) Error() string {
	return fmt.Sprintf("promo code %q: %s", e.Code, e.Reason)
}

func (e *PromoError) Is(target error) bool { return target == ErrPromoInvalid }
