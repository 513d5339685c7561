package schedule

import (
	"iter"
	"time"
)

// Range is a half-open hour range [Start, Start+Duration).
type Range struct {
	Start    int
	Duration int
}

func (r Range) End() int { return r.Start + r.Duration }

// Overlaps reports whether a and b share at least one hour.
func Overlaps(a, b Range) bool {
	return a.Start < b.End() && b.Start < a.End()
}

// OverlapsAny reports whether candidate intersects any of the existing ranges.
func OverlapsAny(candidate Range, existing []Range) bool {
	for _, e := range existing {
		if Overlaps(candidate, e) {
			return true
		}
	}
	return false
}

func occupied(hour int, active []Range) bool {
	return OverlapsAny(Range{Start: hour, Duration: 1}, active)
}

// OfferableStarts yields, in ascending order, the configured start times of
// date that no active reservation covers. The sequence may be ranged over
// any number of times.
func (c *Config) OfferableStarts(date time.Time, active []Range) iter.Seq[Slot] {
	slots := c.SlotsFor(date)
	return func(yield func(Slot) bool) {
		for _, s := range slots {
			if occupied(s.Hour(), active) {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// MaxDuration is the longest reservation, in whole hours, that can start at
// start: bounded by MaxHours, by the configured slots remaining from start
// and by the next active reservation. It is 0 when start is not an offerable slot.
func (c *Config) MaxDuration(date time.Time, start Slot, active []Range) int {
	if !c.HasSlot(date, start) || occupied(start.Hour(), active) {
		return 0
	}

	limit := min(MaxHours, c.RemainingSlots(date, start))
	for _, r := range active {
		if r.Start > start.Hour() {
			limit = min(limit, r.Start-start.Hour())
		}
	}
	return limit
}

// Offer is one start time with the longest duration bookable from it.
type Offer struct {
	Start       Slot `json:"start"`
	MaxDuration int  `json:"max_duration"`
}

// Offers materializes OfferableStarts together with MaxDuration for each start.
func (c *Config) Offers(date time.Time, active []Range) []Offer {
	offers := []Offer{}
	for s := range c.OfferableStarts(date, active) {
		offers = append(offers, Offer{Start: s, MaxDuration: c.MaxDuration(date, s, active)})
	}
	return offers
}
