package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/boxbook/pkg/events"
	"github.com/diagnosis/boxbook/pkg/logger"
	"github.com/diagnosis/boxbook/pkg/retry"
	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
	"github.com/diagnosis/boxbook/services/bookings/internal/notify"
	"github.com/diagnosis/boxbook/services/bookings/internal/payment"
	"github.com/diagnosis/boxbook/services/bookings/internal/pricing"
	"github.com/diagnosis/boxbook/services/bookings/internal/promo"
	"github.com/diagnosis/boxbook/services/bookings/internal/repository"
	"github.com/diagnosis/boxbook/services/bookings/internal/schedule"
)

type ReservationService interface {
	Availability(ctx context.Context, date time.Time) (*Availability, error)
	Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error)
	ValidatePromo(ctx context.Context, code string) (*domain.PromoCode, error)
	Create(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, error)
	AttachPromo(ctx context.Context, id int64, code string) (*domain.Reservation, error)
	InitiatePayment(ctx context.Context, id int64) (*Checkout, error)
	Confirm(ctx context.Context, externalRef string) (*domain.Reservation, error)
	HandlePaymentEvent(ctx context.Context, payload []byte, signature string) error
	Cancel(ctx context.Context, id int64, reason string, actor domain.Actor) (*domain.Reservation, error)
	SoftDelete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Reservation, error)
	GetWithToken(ctx context.Context, id int64, token string) (*domain.Reservation, error)
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Reservation, error)
	Settings(ctx context.Context) (*schedule.Config, error)
	UpdateSettings(ctx context.Context, cfg *schedule.Config) error
}

// EventLedger deduplicates processor callbacks by event id. Claim takes a
// short lease; only Complete records the event as processed.
type EventLedger interface {
	Claim(ctx context.Context, id string) (bool, error)
	Complete(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}

type Config struct {
	Rate     pricing.Rate
	Groups   domain.GroupLimits
	Currency string
	// TestMode marks every new reservation as a test booking.
	TestMode bool
	Location *time.Location
	// ConfirmLookup bounds how long Confirm waits for a checkout reference
	// that may not be persisted yet.
	ConfirmLookup retry.Policy
}

type Availability struct {
	Date     string           `json:"date"`
	Bookable bool             `json:"bookable"`
	Slots    []schedule.Offer `json:"slots"`
}

type QuoteRequest struct {
	GroupSize    int    `json:"group_size"`
	Duration     int    `json:"duration"`
	PromoCode    string `json:"promo_code,omitempty"`
	RequirePromo bool   `json:"require_promo,omitempty"`
}

type QuoteResult struct {
	pricing.Quote
	// PromoRejected carries the reason a code was ignored.
	PromoRejected string `json:"promo_rejected,omitempty"`
}

type Checkout struct {
	Reservation *domain.Reservation `json:"reservation"`
	CheckoutURL string              `json:"checkout_url,omitempty"`
	// Free is set when a full discount confirmed the reservation without a
	// payment session.
	Free bool `json:"free"`
}

type reservationService struct {
	reservations repository.ReservationRepository
	settings     repository.SettingsRepository
	promos       *promo.Validator
	gateway      payment.Gateway
	notifier     notify.Notifier
	ledger       EventLedger
	eventBus     events.Publisher
	config       Config
	now          func() time.Time
}

func NewReservationService(
	reservations repository.ReservationRepository,
	settings repository.SettingsRepository,
	promos *promo.Validator,
	gateway payment.Gateway,
	notifier notify.Notifier,
	ledger EventLedger,
	eventBus events.Publisher,
	config Config,
) ReservationService {
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &reservationService{
		reservations: reservations,
		settings:     settings,
		promos:       promos,
		gateway:      gateway,
		notifier:     notifier,
		ledger:       ledger,
		eventBus:     eventBus,
		config:       config,
		now:          time.Now,
	}
}

// today is the venue's current calendar day.
func (s *reservationService) today() time.Time {
	return schedule.NormalizeDate(s.now().In(s.config.Location))
}

func (s *reservationService) Availability(ctx context.Context, date time.Time) (*Availability, error) {
	date = schedule.NormalizeDate(date)
	out := &Availability{Date: date.Format(schedule.DateLayout), Slots: []schedule.Offer{}}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if !cfg.IsDayBookable(date, s.today()) {
		return out, nil
	}

	active, err := s.reservations.ListActive(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	out.Bookable = true
	out.Slots = cfg.Offers(date, domain.Ranges(active))
	return out, nil
}

func (s *reservationService) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	if req.Duration < 1 || req.Duration > schedule.MaxHours {
		return nil, &domain.ValidationError{Field: "duration", Reason: fmt.Sprintf("must be between 1 and %d hours", schedule.MaxHours)}
	}
	if err := s.config.Groups.Check(req.GroupSize); err != nil {
		return nil, err
	}

	quote, _, rejected, err := s.price(ctx, req.GroupSize, req.Duration, req.PromoCode, req.RequirePromo)
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: quote, PromoRejected: rejected}, nil
}

func (s *reservationService) ValidatePromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	return s.promos.Validate(ctx, code, s.now())
}

// price computes the quote for a request. An invalid promo code degrades to
// the full price, reporting the reason, unless require is set.
func (s *reservationService) price(ctx context.Context, groupSize, duration int, code string, require bool) (pricing.Quote, *domain.PromoCode, string, error) {
	var (
		applied  *domain.PromoCode
		rule     *pricing.Discount
		rejected string
	)
	if code != "" {
		p, err := s.promos.Validate(ctx, code, s.now())
		var promoErr *domain.PromoError
		switch {
		case err == nil:
			applied = p
			r := p.Rule()
			rule = &r
		case errors.As(err, &promoErr) && !require:
			rejected = promoErr.Reason
			logger.InfoContext(ctx, "Promo code ignored", "code", code, "reason", promoErr.Reason)
		default:
			return pricing.Quote{}, nil, "", err
		}
	}

	quote, err := pricing.NewQuote(groupSize, duration, s.config.Rate, rule)
	if err != nil {
		return pricing.Quote{}, nil, "", err
	}
	if applied != nil {
		quote.PromoCode = applied.Code
	}
	return quote, applied, rejected, nil
}

func (s *reservationService) Create(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, error) {
	// Once accepted, creation runs to completion even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	draft, err := req.Parse(s.config.Groups)
	if err != nil {
		return nil, err
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := checkSchedule(cfg, draft, s.today()); err != nil {
		return nil, err
	}

	quote, applied, _, err := s.price(ctx, draft.GroupSize, draft.Duration, draft.PromoCode, req.RequirePromo)
	if err != nil {
		return nil, err
	}
	draft.BasePrice = quote.Base
	draft.Price = quote.Final
	draft.IsTest = s.config.TestMode
	if applied != nil {
		draft.PromoCodeID = &applied.ID
	}

	res, err := s.reservations.CreateGuarded(ctx, draft, func(active []schedule.Range) error {
		if schedule.OverlapsAny(draft.Range(), active) {
			return fmt.Errorf("%w: %s %s for %dh", domain.ErrConflict, draft.Date.Format(schedule.DateLayout), draft.Start, draft.Duration)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.InfoContext(ctx, "Reservation rejected, slot taken", "error", err)
			return nil, err
		}
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	ctx = logger.WithReservation(ctx, res.ID)
	logger.InfoContext(ctx, "Reservation created",
		"status", res.Status,
		"date", res.DateLabel(),
		"start", res.Start.String(),
		"duration", res.Duration,
		"price", res.Price.StringFixed(2),
	)
	s.notify(ctx, res, notify.KindCreated)
	return res, nil
}

// checkSchedule validates a draft against the opening hours. Overlap with
// other reservations is checked later, under the repository's lock.
func checkSchedule(cfg *schedule.Config, d *domain.Draft, today time.Time) error {
	if !cfg.IsDayBookable(d.Date, today) {
		return &domain.ValidationError{Field: "date", Reason: "is not open for booking"}
	}
	if !cfg.Permissive && !cfg.HasSlot(d.Date, d.Start) {
		return &domain.ValidationError{Field: "start_time", Reason: fmt.Sprintf("%s is not offered that day", d.Start)}
	}
	if remaining := cfg.RemainingSlots(d.Date, d.Start); d.Duration > remaining {
		return &domain.ValidationError{Field: "duration", Reason: fmt.Sprintf("only %d bookable hours remain from %s", remaining, d.Start)}
	}
	return nil
}

// AttachPromo replaces the reservation's promo code and reprices it. An
// empty code removes the discount.
func (s *reservationService) AttachPromo(ctx context.Context, id int64, code string) (*domain.Reservation, error) {
	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != domain.StatusPending || res.PaymentStatus == domain.PaymentPaid {
		return nil, fmt.Errorf("%w: reservation is %s", domain.ErrInvalidTransition, res.Status)
	}

	quote, applied, _, err := s.price(ctx, res.GroupSize, res.Duration, code, code != "")
	if err != nil {
		return nil, err
	}
	var promoID *int64
	if applied != nil {
		promoID = &applied.ID
	}

	updated, err := s.reservations.Reprice(ctx, id, promoID, quote.Final)
	if err != nil {
		return nil, fmt.Errorf("failed to reprice reservation: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: reservation changed concurrently", domain.ErrInvalidTransition)
	}
	logger.InfoContext(logger.WithReservation(ctx, id), "Reservation repriced",
		"promo_code", code, "price", updated.Price.StringFixed(2))
	return updated, nil
}

// InitiatePayment opens a checkout session for a pending reservation. A
// still-open session for the current price is returned as is, and the
// processor idempotency key derives from the reservation, amount and the
// previous session, so retries never yield two live sessions.
func (s *reservationService) InitiatePayment(ctx context.Context, id int64) (*Checkout, error) {
	ctx = logger.WithReservation(ctx, id)

	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: reservation is %s", domain.ErrInvalidTransition, res.Status)
	}

	if res.OpenCheckout(s.now()) {
		return &Checkout{Reservation: res, CheckoutURL: *res.CheckoutURL}, nil
	}

	res, err = s.recheckPromo(ctx, res)
	if err != nil {
		return nil, err
	}

	cents := pricing.ToMinorUnits(res.Price)
	if cents == 0 {
		confirmed, err := s.confirmReservation(ctx, res, fmt.Sprintf("free-%d", res.ID))
		if err != nil {
			return nil, err
		}
		return &Checkout{Reservation: confirmed, Free: true}, nil
	}

	previous := "initial"
	if res.ExternalRef != nil {
		previous = *res.ExternalRef
	}
	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		ReservationID:  res.ID,
		AmountMinor:    cents,
		Currency:       s.config.Currency,
		CustomerEmail:  res.Customer.Email,
		Description:    fmt.Sprintf("%s %s, %dh, %d people", res.DateLabel(), res.Start, res.Duration, res.GroupSize),
		Metadata:       sessionMetadata(res),
		IdempotencyKey: fmt.Sprintf("reservation-%d-%d-%s", res.ID, cents, previous),
		Test:           res.IsTest,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create checkout session", "error", err)
		return nil, err
	}

	updated, err := s.reservations.SetPaymentSession(ctx, res.ID, session.ID, session.URL, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store checkout session: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: reservation changed while opening checkout", domain.ErrInvalidTransition)
	}
	logger.InfoContext(ctx, "Reservation awaiting payment", "session_id", session.ID, "amount", cents)

	s.publish(ctx, events.PaymentSessionCreated, events.PaymentSessionEvent{
		ReservationID: res.ID,
		ExternalRef:   session.ID,
		Amount:        cents,
		Currency:      s.config.Currency,
	})
	return &Checkout{Reservation: updated, CheckoutURL: session.URL}, nil
}

// recheckPromo drops an attached code that is no longer redeemable and
// reprices the reservation at full price before it is charged.
func (s *reservationService) recheckPromo(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	if res.PromoCodeID == nil {
		return res, nil
	}
	_, err := s.promos.Revalidate(ctx, *res.PromoCodeID, s.now())
	var promoErr *domain.PromoError
	switch {
	case err == nil:
		return res, nil
	case !errors.As(err, &promoErr):
		return nil, err
	}

	quote, err := pricing.NewQuote(res.GroupSize, res.Duration, s.config.Rate, nil)
	if err != nil {
		return nil, err
	}
	updated, err := s.reservations.Reprice(ctx, res.ID, nil, quote.Final)
	if err != nil {
		return nil, fmt.Errorf("failed to reprice reservation: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: reservation changed concurrently", domain.ErrInvalidTransition)
	}
	logger.WarnContext(ctx, "Promo code no longer valid at checkout, charging full price",
		"code", promoErr.Code, "reason", promoErr.Reason, "price", updated.Price.StringFixed(2))
	return updated, nil
}

func sessionMetadata(res *domain.Reservation) map[string]string {
	md := map[string]string{
		"reservation_id": fmt.Sprint(res.ID),
		"date":           res.DateLabel(),
		"start_time":     res.Start.String(),
		"duration":       fmt.Sprint(res.Duration),
		"group_size":     fmt.Sprint(res.GroupSize),
	}
	if res.PromoCodeID != nil {
		md["promo_code_id"] = fmt.Sprint(*res.PromoCodeID)
	}
	return md
}

var errRefNotVisible = errors.New("external reference not found")

// Confirm marks the reservation paid for externalRef. The callback may beat
// the write that stored the reference, so the lookup is retried under the
// configured policy before the reference is reported as unknown.
func (s *reservationService) Confirm(ctx context.Context, externalRef string) (*domain.Reservation, error) {
	ctx = context.WithoutCancel(ctx)

	var res *domain.Reservation
	err := s.config.ConfirmLookup.Do(ctx, func(ctx context.Context) error {
		found, err := s.reservations.FindByExternalRef(ctx, externalRef)
		if err != nil {
			return err
		}
		if found == nil {
			return errRefNotVisible
		}
		res = found
		return nil
	})
	if errors.Is(err, errRefNotVisible) {
		logger.ErrorContext(ctx, "Payment confirmation for unknown reference", "external_ref", externalRef)
		return nil, fmt.Errorf("%w: no reservation for %s", domain.ErrReconciliation, externalRef)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up reservation: %w", err)
	}

	return s.confirmReservation(logger.WithReservation(ctx, res.ID), res, externalRef)
}

func (s *reservationService) confirmReservation(ctx context.Context, res *domain.Reservation, ref string) (*domain.Reservation, error) {
	switch res.Status {
	case domain.StatusConfirmed:
		logger.InfoContext(ctx, "Reservation already confirmed", "external_ref", ref)
		return res, nil
	case domain.StatusCancelled:
		logger.ErrorContext(ctx, "Payment received for cancelled reservation", "external_ref", ref)
		return nil, fmt.Errorf("%w: reservation %d is cancelled", domain.ErrReconciliation, res.ID)
	}

	c, err := s.reservations.Confirm(ctx, res.ID, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}
	updated := c.Reservation
	if !c.Changed {
		if updated != nil && updated.Status == domain.StatusConfirmed {
			logger.InfoContext(ctx, "Reservation already confirmed", "external_ref", ref)
			return updated, nil
		}
		logger.ErrorContext(ctx, "Payment could not be applied", "external_ref", ref)
		return nil, fmt.Errorf("%w: reservation %d is no longer pending", domain.ErrReconciliation, res.ID)
	}

	if c.PromoRefused {
		logger.ErrorContext(ctx, "Promo code redeemed past its usage cap", "promo_code_id", *updated.PromoCodeID, "external_ref", ref)
		s.publish(ctx, events.PromoOverRedeemed, events.PromoEvent{
			PromoCodeID:   *updated.PromoCodeID,
			ReservationID: updated.ID,
			ExternalRef:   ref,
		})
	}
	logger.InfoContext(ctx, "Reservation confirmed", "status", updated.Status, "external_ref", ref)
	s.notify(ctx, updated, notify.KindConfirmation)
	s.notify(ctx, updated, notify.KindAdmin)
	return updated, nil
}

// HandlePaymentEvent verifies and applies a processor callback. The event is
// recorded as processed only once it has been applied; a failed delivery
// releases its claim so the processor's retry is handled.
func (s *reservationService) HandlePaymentEvent(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.VerifyCallback(payload, signature)
	if err != nil {
		logger.WarnContext(ctx, "Rejected payment callback", "error", err)
		return err
	}

	claimed, err := s.ledger.Claim(ctx, ev.ID)
	if err != nil {
		// the conditional update in Confirm still keeps redelivery harmless
		logger.WarnContext(ctx, "Payment event ledger unavailable", "error", err, "event_id", ev.ID)
		claimed = true
	}
	if !claimed {
		logger.InfoContext(ctx, "Duplicate payment event ignored", "event_id", ev.ID, "type", ev.Type)
		return nil
	}

	if err := s.applyPaymentEvent(ctx, ev); err != nil {
		if relErr := s.ledger.Release(context.WithoutCancel(ctx), ev.ID); relErr != nil {
			logger.WarnContext(ctx, "Failed to release payment event", "error", relErr, "event_id", ev.ID)
		}
		return err
	}
	if err := s.ledger.Complete(context.WithoutCancel(ctx), ev.ID); err != nil {
		logger.WarnContext(ctx, "Failed to record payment event", "error", err, "event_id", ev.ID)
	}
	return nil
}

func (s *reservationService) applyPaymentEvent(ctx context.Context, ev *payment.Event) error {
	switch ev.Type {
	case payment.EventCheckoutCompleted, payment.EventAsyncPaymentSucceeded:
		if ev.PaymentStatus != "paid" && ev.PaymentStatus != "no_payment_required" {
			// delayed methods settle later through async_payment_succeeded
			logger.InfoContext(ctx, "Checkout completed without payment", "session_id", ev.SessionID, "payment_status", ev.PaymentStatus)
			return nil
		}
		_, err := s.Confirm(ctx, ev.SessionID)
		return err
	case payment.EventAsyncPaymentFailed:
		logger.WarnContext(ctx, "Delayed payment failed", "session_id", ev.SessionID, "reservation_id", ev.ReservationID)
	case payment.EventCheckoutExpired:
		// Expired sessions leave the reservation pending; the operator decides.
		logger.WarnContext(ctx, "Checkout session expired", "session_id", ev.SessionID, "reservation_id", ev.ReservationID)
		s.publish(ctx, events.PaymentSessionExpired, events.PaymentSessionEvent{
			ExternalRef: ev.SessionID,
			Amount:      ev.AmountMinor,
			Currency:    s.config.Currency,
		})
	default:
		logger.DebugContext(ctx, "Unhandled payment event", "type", ev.Type)
	}
	return nil
}

func (s *reservationService) Cancel(ctx context.Context, id int64, reason string, actor domain.Actor) (*domain.Reservation, error) {
	ctx = logger.WithReservation(ctx, id)

	res, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := res.CheckCancel(actor); err != nil {
		return nil, err
	}

	from := []domain.Status{domain.StatusPending}
	if actor == domain.ActorOperator {
		from = append(from, domain.StatusConfirmed)
	}
	if reason == "" {
		reason = actor.String() + "_requested"
	}

	updated, err := s.reservations.Cancel(ctx, id, reason, from)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: reservation changed concurrently", domain.ErrInvalidTransition)
	}

	logger.InfoContext(ctx, "Reservation cancelled", "status", updated.Status, "reason", reason, "actor", actor.String())
	s.notify(ctx, updated, notify.KindCancelled)
	return updated, nil
}

func (s *reservationService) SoftDelete(ctx context.Context, id int64) error {
	ctx = logger.WithReservation(ctx, id)

	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return domain.ErrNotFound
	}

	ok, err := s.reservations.SoftDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	if !ok {
		return domain.ErrNotFound
	}

	logger.InfoContext(ctx, "Reservation soft-deleted", "status", res.Status)
	ev := notify.ReservationEvent(res)
	ev.Reason = "deleted"
	s.publish(ctx, events.ReservationDeleted, ev)
	return nil
}

func (s *reservationService) Get(ctx context.Context, id int64) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

func (s *reservationService) GetWithToken(ctx context.Context, id int64, token string) (*domain.Reservation, error) {
	res, err := s.reservations.GetByIDWithToken(ctx, id, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

func (s *reservationService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Reservation, error) {
	return s.reservations.List(ctx, filter)
}

func (s *reservationService) Settings(ctx context.Context) (*schedule.Config, error) {
	return s.settings.Load(ctx)
}

func (s *reservationService) UpdateSettings(ctx context.Context, cfg *schedule.Config) error {
	if err := cfg.Validate(); err != nil {
		return &domain.ValidationError{Field: "settings", Reason: err.Error()}
	}
	if err := s.settings.Save(ctx, cfg); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	logger.InfoContext(ctx, "Booking settings updated", "permissive", cfg.Permissive, "excluded_dates", len(cfg.ExcludedDates))
	return nil
}

// load returns a live reservation or ErrNotFound.
func (s *reservationService) load(ctx context.Context, id int64) (*domain.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil || res.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

// notify is best effort: a failed notification never undoes a transition.
func (s *reservationService) notify(ctx context.Context, res *domain.Reservation, kind notify.Kind) {
	if err := s.notifier.Notify(ctx, res, kind); err != nil {
		logger.ErrorContext(ctx, "Failed to send notification", "error", err, "kind", kind)
	}
}

func (s *reservationService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.eventBus.Publish(ctx, subject, data); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "error", err, "subject", subject)
	}
}
