package promo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
	"github.com/diagnosis/boxbook/services/bookings/internal/pricing"
)

type mockLookup struct {
	codes map[string]*domain.PromoCode
	err   error
}

func (m *mockLookup) FindByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.codes[code], nil
}

func (m *mockLookup) FindByID(ctx context.Context, id int64) (*domain.PromoCode, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.codes {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func ptr[T any](v T) *T { return &v }

func TestValidator_Validate(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)

	base := func() *domain.PromoCode {
		return &domain.PromoCode{
			ID:       1,
			Code:     "SPRING",
			Type:     pricing.DiscountPercentage,
			Value:    decimal.NewFromInt(10),
			IsActive: true,
		}
	}

	tests := []struct {
		name   string
		code   string
		promo  func(p *domain.PromoCode)
		reason string
	}{
		{name: "valid", code: "SPRING"},
		{name: "valid inside window", code: "SPRING", promo: func(p *domain.PromoCode) { p.StartDate, p.EndDate = &yesterday, &tomorrow }},
		{name: "under cap", code: "SPRING", promo: func(p *domain.PromoCode) { p.MaxUses, p.CurrentUses = ptr(5), 4 }},
		{name: "unknown", code: "WINTER", reason: domain.PromoNotFound},
		{name: "case sensitive", code: "spring", reason: domain.PromoNotFound},
		{name: "empty", code: "  ", reason: domain.PromoNotFound},
		{name: "soft deleted", code: "SPRING", promo: func(p *domain.PromoCode) { p.DeletedAt = &yesterday }, reason: domain.PromoNotFound},
		{name: "inactive", code: "SPRING", promo: func(p *domain.PromoCode) { p.IsActive = false }, reason: domain.PromoInactive},
		{name: "not started", code: "SPRING", promo: func(p *domain.PromoCode) { p.StartDate = &tomorrow }, reason: domain.PromoNotStarted},
		{name: "expired", code: "SPRING", promo: func(p *domain.PromoCode) { p.EndDate = &yesterday }, reason: domain.PromoExpired},
		{
			name:   "exhausted regardless of window",
			code:   "SPRING",
			promo:  func(p *domain.PromoCode) { p.MaxUses, p.CurrentUses, p.EndDate = ptr(1), 1, &yesterday },
			reason: domain.PromoExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			if tt.promo != nil {
				tt.promo(p)
			}
			v := NewValidator(&mockLookup{codes: map[string]*domain.PromoCode{"SPRING": p}})

			got, err := v.Validate(context.Background(), tt.code, now)
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.ID != p.ID {
					t.Fatalf("got promo %+v", got)
				}
				return
			}

			if !errors.Is(err, domain.ErrPromoInvalid) {
				t.Fatalf("expected ErrPromoInvalid, got %v", err)
			}
			var pe *domain.PromoError
			if !errors.As(err, &pe) || pe.Reason != tt.reason {
				t.Fatalf("reason = %v, want %s", err, tt.reason)
			}
		})
	}
}

func TestValidator_LookupFailureIsNotPromoInvalid(t *testing.T) {
	v := NewValidator(&mockLookup{err: errors.New("connection refused")})
	_, err := v.Validate(context.Background(), "SPRING", time.Now())
	if err == nil || errors.Is(err, domain.ErrPromoInvalid) {
		t.Fatalf("expected infrastructure error, got %v", err)
	}
}

func TestValidator_Revalidate(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-48 * time.Hour)
	codes := map[string]*domain.PromoCode{
		"SPRING": {ID: 1, Code: "SPRING", Type: pricing.DiscountPercentage, Value: decimal.NewFromInt(10), IsActive: true},
		"OLD":    {ID: 2, Code: "OLD", Type: pricing.DiscountPercentage, Value: decimal.NewFromInt(10), IsActive: true, EndDate: &expired},
		"ONCE":   {ID: 3, Code: "ONCE", Type: pricing.DiscountPercentage, Value: decimal.NewFromInt(10), IsActive: true, MaxUses: ptr(1), CurrentUses: 1},
	}
	v := NewValidator(&mockLookup{codes: codes})

	if _, err := v.Revalidate(context.Background(), 1, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for id, reason := range map[int64]string{2: domain.PromoExpired, 3: domain.PromoExhausted, 9: domain.PromoNotFound} {
		_, err := v.Revalidate(context.Background(), id, now)
		var pe *domain.PromoError
		if !errors.As(err, &pe) || pe.Reason != reason {
			t.Fatalf("Revalidate(%d) = %v, want %s", id, err, reason)
		}
	}
}
