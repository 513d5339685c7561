// Package schedule decides which hour slots of a day can be offered: the
// per-weekday opening hours, the booking horizon, and overlap between
// reservations.
//
// Days are identified by time.Weekday (0 = Sunday) everywhere. A raw date is
// normalized exactly once, by NormalizeDate, when it enters the package.
package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxHours is the longest reservation the venue sells.
	MaxHours = 4

	DateLayout = "2006-01-02"
)

var DefaultHorizon = Horizon{StartOffsetDays: 1, EndOffsetDays: 30}

// PermissiveHorizon replaces the configured horizon in permissive mode.
var PermissiveHorizon = Horizon{StartOffsetDays: 0, EndOffsetDays: 365}

// NormalizeDate returns the calendar day of t, in t's own location, as
// midnight UTC. Weekday lookups on the result never drift across timezones.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

// Slot is a bookable start time, stored as the hour of day.
type Slot int

func ParseSlot(label string) (Slot, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(label))
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q, want HH:00", label)
	}
	if t.Minute() != 0 {
		return 0, fmt.Errorf("invalid start time %q, slots start on the hour", label)
	}
	return Slot(t.Hour()), nil
}

func (s Slot) Hour() int { return int(s) }

func (s Slot) String() string { return fmt.Sprintf("%02d:00", int(s)) }

func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Slot) UnmarshalJSON(b []byte) error {
	var label string
	if err := json.Unmarshal(b, &label); err != nil {
		return err
	}
	parsed, err := ParseSlot(label)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Day struct {
	Open  bool   `json:"open"`
	Slots []Slot `json:"slots"`
}

type Horizon struct {
	StartOffsetDays int `json:"start_offset_days"`
	EndOffsetDays   int `json:"end_offset_days"`
}

// Config is the operator-owned opening hours table. It is read-only to the
// booking engine and loaded once per request.
type Config struct {
	Days          map[time.Weekday]Day
	ExcludedDates []time.Time
	Horizon       Horizon
	// Permissive widens the horizon to PermissiveHorizon and ignores excluded
	// dates. Used for internal testing.
	Permissive bool
}

func (c *Config) Validate() error {
	for wd, day := range c.Days {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("unknown weekday %d", wd)
		}
		for i, s := range day.Slots {
			if s < 0 || s > 23 {
				return fmt.Errorf("%s: slot %d out of range", wd, s)
			}
			if i > 0 && s <= day.Slots[i-1] {
				return fmt.Errorf("%s: slots must be strictly ascending", wd)
			}
		}
	}
	if c.Horizon.StartOffsetDays < 0 || c.Horizon.EndOffsetDays < c.Horizon.StartOffsetDays {
		return fmt.Errorf("invalid booking horizon %+v", c.Horizon)
	}
	return nil
}

// SlotsFor returns the configured start times for date, or nil when the day is closed.
func (c *Config) SlotsFor(date time.Time) []Slot {
	day, ok := c.Days[NormalizeDate(date).Weekday()]
	if !ok || !day.Open || len(day.Slots) == 0 {
		return nil
	}
	out := make([]Slot, len(day.Slots))
	copy(out, day.Slots)
	return out
}

// RemainingSlots counts the configured slots of date at or after start. It
// bounds how many hours a reservation starting at start may last, so a gap
// in the slot list shortens it and the day's last slot allows one hour.
func (c *Config) RemainingSlots(date time.Time, start Slot) int {
	n := 0
	for _, s := range c.SlotsFor(date) {
		if s >= start {
			n++
		}
	}
	return n
}

func (c *Config) HasSlot(date time.Time, s Slot) bool {
	for _, configured := range c.SlotsFor(date) {
		if configured == s {
			return true
		}
	}
	return false
}

func (c *Config) IsExcluded(date time.Time) bool {
	d := NormalizeDate(date)
	for _, ex := range c.ExcludedDates {
		if NormalizeDate(ex).Equal(d) {
			return true
		}
	}
	return false
}

// IsDayBookable reports whether customers may book date, given the venue's
// current calendar day. A day without open slots is never bookable, even in
// permissive mode.
func (c *Config) IsDayBookable(date, today time.Time) bool {
	if len(c.SlotsFor(date)) == 0 {
		return false
	}
	h := c.Horizon
	if c.Permissive {
		h = PermissiveHorizon
	} else if c.IsExcluded(date) {
		return false
	}

	d := NormalizeDate(date)
	t := NormalizeDate(today)
	earliest := t.AddDate(0, 0, h.StartOffsetDays)
	latest := t.AddDate(0, 0, h.EndOffsetDays)
	return !d.Before(earliest) && !d.After(latest)
}

type configJSON struct {
	OpeningHours  map[string]Day `json:"opening_hours"`
	ExcludedDates []string       `json:"excluded_dates"`
	Horizon       *Horizon       `json:"horizon,omitempty"`
	Permissive    bool           `json:"permissive"`
}

func (c Config) MarshalJSON() ([]byte, error) {
	out := configJSON{
		OpeningHours:  make(map[string]Day, len(c.Days)),
		ExcludedDates: make([]string, 0, len(c.ExcludedDates)),
		Horizon:       &c.Horizon,
		Permissive:    c.Permissive,
	}
	for wd, day := range c.Days {
		if day.Slots == nil {
			day.Slots = []Slot{}
		}
		out.OpeningHours[strings.ToLower(wd.String())] = day
	}
	for _, d := range c.ExcludedDates {
		out.ExcludedDates = append(out.ExcludedDates, NormalizeDate(d).Format(DateLayout))
	}
	return json.Marshal(out)
}

func (c *Config) UnmarshalJSON(b []byte) error {
	var in configJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	cfg := Config{
		Days:       make(map[time.Weekday]Day, len(in.OpeningHours)),
		Horizon:    DefaultHorizon,
		Permissive: in.Permissive,
	}
	for name, day := range in.OpeningHours {
		wd, ok := parseWeekday(name)
		if !ok {
			return fmt.Errorf("unknown weekday %q", name)
		}
		cfg.Days[wd] = day
	}
	for _, s := range in.ExcludedDates {
		d, err := ParseDate(s)
		if err != nil {
			return err
		}
		cfg.ExcludedDates = append(cfg.ExcludedDates, d)
	}
	if in.Horizon != nil {
		cfg.Horizon = *in.Horizon
	}

	*c = cfg
	return nil
}

func parseWeekday(name string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(name, wd.String()) {
			return wd, true
		}
	}
	return 0, false
}
