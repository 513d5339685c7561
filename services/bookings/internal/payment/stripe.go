package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/diagnosis/boxbook/pkg/config"
	"github.com/diagnosis/boxbook/pkg/logger"
	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
)

type StripeGateway struct {
	live *client.API
	test *client.API
	cfg  config.StripeConfig
	now  func() time.Time
}

func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	return newStripeGateway(cfg, nil)
}

// newStripeGateway points both clients at apiURL when it is set.
func newStripeGateway(cfg config.StripeConfig, apiURL *string) *StripeGateway {
	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     stripeLogger{},
		URL:               apiURL,
	})

	g := &StripeGateway{cfg: cfg, now: time.Now}
	g.live = client.New(cfg.SecretKey, backends)
	testKey := cfg.TestSecretKey
	if testKey == "" {
		testKey = cfg.SecretKey
	}
	g.test = client.New(testKey, backends)
	return g
}

func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrPaymentSession, req.AmountMinor)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	currency := req.Currency
	if currency == "" {
		currency = g.cfg.Currency
	}
	expiresAt := g.now().Add(g.cfg.SessionTTL)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		CustomerEmail:     stripe.String(req.CustomerEmail),
		ClientReferenceID: stripe.String(fmt.Sprint(req.ReservationID)),
		ExpiresAt:         stripe.Int64(expiresAt.Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(req.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(g.cfg.ProductName),
					Description: stripe.String(req.Description),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	api := g.live
	if req.Test {
		api = g.test
	}

	s, err := api.CheckoutSessions.New(params)
	if err != nil {
		return nil, classify(ctx, err)
	}

	logger.InfoContext(ctx, "Checkout session created",
		"reservation_id", req.ReservationID,
		"session_id", s.ID,
		"amount", req.AmountMinor,
		"test", req.Test,
	)
	return &Session{ID: s.ID, URL: s.URL, ExpiresAt: time.Unix(s.ExpiresAt, 0)}, nil
}

func classify(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", domain.ErrPaymentTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrPaymentSession, err)
}

func (g *StripeGateway) VerifyCallback(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutExpired, EventAsyncPaymentSucceeded, EventAsyncPaymentFailed:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.SessionID = s.ID
		out.ReservationID = s.Metadata["reservation_id"]
		out.PaymentStatus = string(s.PaymentStatus)
		out.AmountMinor = s.AmountTotal
	}
	return out, nil
}

// stripeLogger sends the processor client's own logs through slog.
type stripeLogger struct{}

func (stripeLogger) Debugf(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (stripeLogger) Infof(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (stripeLogger) Warnf(format string, v ...interface{}) {
	logger.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (stripeLogger) Errorf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf(format, v...), "component", "stripe")
}
