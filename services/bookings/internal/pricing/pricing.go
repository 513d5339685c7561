// Package pricing computes reservation prices. All amounts are
// decimal.Decimal rounded half-up to cents; conversion to the payment
// processor's integer minor units happens only through ToMinorUnits.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const places = 2

var hundred = decimal.NewFromInt(100)

// Rate is the venue's base rate configuration.
type Rate struct {
	PerHour   decimal.Decimal
	PerPerson decimal.Decimal
	// ExtraHourDiscount is the fraction taken off every hour after the first.
	ExtraHourDiscount decimal.Decimal
}

// UnitPrice is the price of the first hour for groupSize people.
func (r Rate) UnitPrice(groupSize int) decimal.Decimal {
	return r.PerHour.Add(r.PerPerson.Mul(decimal.NewFromInt(int64(groupSize))))
}

// Price returns unit + (duration-1) * unit * (1 - discount), rounded half-up
// to cents. Callers validate groupSize and duration beforehand. Groups of six
// and more keep the linear per-person rate.
func Price(groupSize, duration int, rate Rate) decimal.Decimal {
	unit := rate.UnitPrice(groupSize)
	extra := unit.
		Mul(decimal.NewFromInt(1).Sub(rate.ExtraHourDiscount)).
		Mul(decimal.NewFromInt(int64(duration - 1)))
	return unit.Add(extra).Round(places)
}

// PerPersonPerHour is the figure shown next to a quote.
func PerPersonPerHour(total decimal.Decimal, groupSize, duration int) decimal.Decimal {
	if groupSize <= 0 || duration <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(groupSize * duration))).Round(places)
}

// ToMinorUnits converts a rounded amount to integer cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(places).Mul(hundred).IntPart()
}

type DiscountKind string

const (
	DiscountPercentage  DiscountKind = "percentage"
	DiscountFixedAmount DiscountKind = "fixed_amount"
	DiscountFree        DiscountKind = "free"
)

func (k DiscountKind) Valid() bool {
	switch k {
	case DiscountPercentage, DiscountFixedAmount, DiscountFree:
		return true
	}
	return false
}

// Discount is the rule a promo code carries.
type Discount struct {
	Kind  DiscountKind
	Value decimal.Decimal
}

// ApplyDiscount reduces price by rule. The result is never negative and a
// free rule always yields exactly zero.
func ApplyDiscount(price decimal.Decimal, rule Discount) (decimal.Decimal, error) {
	var out decimal.Decimal
	switch rule.Kind {
	case DiscountPercentage:
		pct := decimal.Min(decimal.Max(rule.Value, decimal.Zero), hundred)
		out = price.Mul(hundred.Sub(pct)).Div(hundred)
	case DiscountFixedAmount:
		out = price.Sub(rule.Value)
	case DiscountFree:
		return decimal.Zero, nil
	default:
		return price, fmt.Errorf("unknown discount type %q", rule.Kind)
	}
	if out.IsNegative() {
		return decimal.Zero, nil
	}
	return out.Round(places), nil
}

// Quote is the breakdown returned to customers and passed to checkout.
type Quote struct {
	GroupSize        int             `json:"group_size"`
	Duration         int             `json:"duration"`
	Base             decimal.Decimal `json:"base_price"`
	Discount         decimal.Decimal `json:"discount"`
	Final            decimal.Decimal `json:"price"`
	PerPersonPerHour decimal.Decimal `json:"per_person_per_hour"`
	PromoCode        string          `json:"promo_code,omitempty"`
}

// NewQuote prices a request and applies rule when it is non-nil.
func NewQuote(groupSize, duration int, rate Rate, rule *Discount) (Quote, error) {
	base := Price(groupSize, duration, rate)
	final := base
	if rule != nil {
		var err error
		if final, err = ApplyDiscount(base, *rule); err != nil {
			return Quote{}, err
		}
	}
	return Quote{
		GroupSize:        groupSize,
		Duration:         duration,
		Base:             base,
		Discount:         base.Sub(final),
		Final:            final,
		PerPersonPerHour: PerPersonPerHour(final, groupSize, duration),
	}, nil
}
