// Package payment talks to the card processor: it opens hosted checkout
// sessions and verifies the signed callbacks that report their outcome.
package payment

import (
	"context"
	"time"
)

type SessionRequest struct {
	ReservationID  int64
	AmountMinor    int64
	Currency       string
	CustomerEmail  string
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
	// Test routes the session to the processor's test account.
	Test bool
}

type Session struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	// Delayed payment methods complete the session unpaid and settle later
	// with one of these.
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
)

// Event is a verified processor callback.
type Event struct {
	ID            string
	Type          string
	SessionID     string
	ReservationID string
	PaymentStatus string
	AmountMinor   int64
}

type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	VerifyCallback(payload []byte, signature string) (*Event, error)
}
