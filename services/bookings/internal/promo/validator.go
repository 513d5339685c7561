// Package promo decides whether a promo code may be redeemed right now.
package promo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
)

// Lookup finds a promo code by its exact, case-sensitive code or by id. A
// missing code is returned as nil, nil.
type Lookup interface {
	FindByCode(ctx context.Context, code string) (*domain.PromoCode, error)
	FindByID(ctx context.Context, id int64) (*domain.PromoCode, error)
}

type Validator struct {
	lookup Lookup
}

func NewValidator(lookup Lookup) *Validator {
	return &Validator{lookup: lookup}
}

// Validate runs the checks in order and stops at the first failure. A
// rejected code yields a *domain.PromoError; lookup failures are returned
// as is.
func (v *Validator) Validate(ctx context.Context, code string, now time.Time) (*domain.PromoCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &domain.PromoError{Code: code, Reason: domain.PromoNotFound}
	}

	p, err := v.lookup.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup promo code: %w", err)
	}
	return check(p, code, now)
}

// Revalidate re-runs the checks for a code already attached to a
// reservation, so a code that expired or ran out since it was attached is
// not charged at its discount.
func (v *Validator) Revalidate(ctx context.Context, id int64, now time.Time) (*domain.PromoCode, error) {
	p, err := v.lookup.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup promo code %d: %w", id, err)
	}
	code := fmt.Sprint(id)
	if p != nil {
		code = p.Code
	}
	return check(p, code, now)
}

func check(p *domain.PromoCode, code string, now time.Time) (*domain.PromoCode, error) {
	reject := func(reason string) error {
		return &domain.PromoError{Code: code, Reason: reason}
	}
	switch {
	case p == nil || p.DeletedAt != nil:
		return nil, reject(domain.PromoNotFound)
	case !p.IsActive:
		return nil, reject(domain.PromoInactive)
	case p.Exhausted():
		return nil, reject(domain.PromoExhausted)
	case p.StartDate != nil && now.Before(*p.StartDate):
		return nil, reject(domain.PromoNotStarted)
	case p.EndDate != nil && now.After(*p.EndDate):
		return nil, reject(domain.PromoExpired)
	}
	return p, nil
}
