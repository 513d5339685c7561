package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/boxbook/services/bookings/internal/pricing"
)

type PromoCode struct {
	ID          int64                `json:"id"`
	Code        string               `json:"code"`
	Type        pricing.DiscountKind `json:"type"`
	Value       decimal.Decimal      `json:"value"`
	StartDate   *time.Time           `json:"start_date,omitempty"`
	EndDate     *time.Time           `json:"end_date,omitempty"`
	MaxUses     *int                 `json:"max_uses,omitempty"`
	CurrentUses int                  `json:"current_uses"`
	IsActive    bool                 `json:"is_active"`
	DeletedAt   *time.Time           `json:"-"`
}

func (p *PromoCode) Rule() pricing.Discount {
	return pricing.Discount{Kind: p.Type, Value: p.Value}
}

// Exhausted reports whether a usage cap exists and has been reached.
func (p *PromoCode) Exhausted() bool {
	return p.MaxUses != nil && p.CurrentUses >= *p.MaxUses
}
