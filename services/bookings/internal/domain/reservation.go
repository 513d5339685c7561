package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/boxbook/services/bookings/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return Status(s), true
	default:
		return "", false
	}
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentAwaiting PaymentStatus = "awaiting_payment"
	PaymentPaid     PaymentStatus = "paid"
)

// Actor is who asks for a transition. Only operators may cancel a
// confirmed reservation.
type Actor int

const (
	ActorCustomer Actor = iota
	ActorOperator
)

func (a Actor) String() string {
	if a == ActorOperator {
		return "operator"
	}
	return "customer"
}

type Reservation struct {
	ID            int64           `json:"id"`
	ManageToken   string          `json:"manage_token,omitempty"`
	Date          time.Time       `json:"-"`
	Start         schedule.Slot   `json:"start_time"`
	Duration      int             `json:"duration"`
	GroupSize     int             `json:"group_size"`
	BasePrice     decimal.Decimal `json:"base_price"`
	Price         decimal.Decimal `json:"price"`
	Status        Status          `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	ExternalRef   *string         `json:"external_ref,omitempty"`
	CheckoutURL   *string         `json:"checkout_url,omitempty"`
	CheckoutUntil *time.Time      `json:"checkout_expires_at,omitempty"`
	PromoCodeID   *int64          `json:"promo_code_id,omitempty"`
	Customer      Customer        `json:"customer"`
	CancelReason  *string         `json:"cancel_reason,omitempty"`
	IsTest        bool            `json:"is_test_booking"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (r Reservation) MarshalJSON() ([]byte, error) {
	type alias Reservation
	return json.Marshal(struct {
		Date string `json:"date"`
		alias
	}{r.DateLabel(), alias(r)})
}

// DateLabel is the reservation's calendar day as YYYY-MM-DD.
func (r *Reservation) DateLabel() string {
	return r.Date.Format(schedule.DateLayout)
}

func (r *Reservation) Range() schedule.Range {
	return schedule.Range{Start: r.Start.Hour(), Duration: r.Duration}
}

// OpenCheckout reports whether the stored checkout session can still be
// paid at now.
func (r *Reservation) OpenCheckout(now time.Time) bool {
	return r.Status == StatusPending && r.PaymentStatus == PaymentAwaiting &&
		r.ExternalRef != nil && r.CheckoutURL != nil &&
		r.CheckoutUntil != nil && now.Before(*r.CheckoutUntil)
}

// IsActive reports whether the reservation still holds its hours.
func (r *Reservation) IsActive() bool {
	return r.Status != StatusCancelled && r.DeletedAt == nil
}

// CheckCancel returns ErrInvalidTransition when actor may not cancel r.
func (r *Reservation) CheckCancel(actor Actor) error {
	switch r.Status {
	case StatusPending:
		return nil
	case StatusConfirmed:
		if actor == ActorOperator {
			return nil
		}
		return fmt.Errorf("%w: confirmed reservations can only be cancelled by the venue", ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: reservation is already %s", ErrInvalidTransition, r.Status)
	}
}

// Ranges projects reservations onto their hour ranges.
func Ranges(rs []Reservation) []schedule.Range {
	out := make([]schedule.Range, 0, len(rs))
	for i := range rs {
		if rs[i].IsActive() {
			out = append(out, rs[i].Range())
		}
	}
	return out
}

// ReservationRequest is the customer's submission from the booking form.
type ReservationRequest struct {
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	Duration     int    `json:"duration"`
	GroupSize    int    `json:"group_size"`
	PromoCode    string `json:"promo_code,omitempty"`
	RequirePromo bool   `json:"require_promo,omitempty"`
	Customer
}

// GroupLimits bounds the accepted group size.
type GroupLimits struct {
	Min int
	Max int
}

// Draft is a structurally valid request, not yet checked against the
// opening hours or existing reservations.
type Draft struct {
	Date        time.Time
	Start       schedule.Slot
	Duration    int
	GroupSize   int
	Customer    Customer
	PromoCode   string
	PromoCodeID *int64
	BasePrice   decimal.Decimal
	Price       decimal.Decimal
	IsTest      bool
}

func (d *Draft) Range() schedule.Range {
	return schedule.Range{Start: d.Start.Hour(), Duration: d.Duration}
}

// Parse normalizes and validates req.
func (req *ReservationRequest) Parse(limits GroupLimits) (*Draft, error) {
	req.Customer.Normalize()
	req.PromoCode = strings.TrimSpace(req.PromoCode)

	date, err := schedule.ParseDate(req.Date)
	if err != nil {
		return nil, invalid("date", "%v", err)
	}
	start, err := schedule.ParseSlot(req.StartTime)
	if err != nil {
		return nil, invalid("start_time", "%v", err)
	}
	if req.Duration < 1 || req.Duration > schedule.MaxHours {
		return nil, invalid("duration", "must be between 1 and %d hours", schedule.MaxHours)
	}
	if err := limits.Check(req.GroupSize); err != nil {
		return nil, err
	}
	if err := req.Customer.Validate(); err != nil {
		return nil, err
	}

	return &Draft{
		Date:      schedule.NormalizeDate(date),
		Start:     start,
		Duration:  req.Duration,
		GroupSize: req.GroupSize,
		Customer:  req.Customer,
		PromoCode: req.PromoCode,
	}, nil
}

func (l GroupLimits) Check(groupSize int) error {
	if groupSize < l.Min || groupSize > l.Max {
		return invalid("group_size", "must be between %d and %d", l.Min, l.Max)
	}
	return nil
}

// ListFilter narrows the operator listing. Soft-deleted rows are never listed.
type ListFilter struct {
	Status      *Status
	Date        *time.Time
	IncludeTest bool
	Limit       int
	Offset      int
}
