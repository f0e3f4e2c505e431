package calendar

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"

	DefaultLeadDays    = 15
	DefaultHorizonDays = 365
)

// LeadTimeWindow bounds the bookable dates relative to today.
type LeadTimeWindow struct {
	LeadDays    int `json:"lead_days"`
	HorizonDays int `json:"horizon_days"`
}

func DefaultWindow() LeadTimeWindow {
	return LeadTimeWindow{LeadDays: DefaultLeadDays, HorizonDays: DefaultHorizonDays}
}

// First returns the earliest bookable day.
func (w LeadTimeWindow) First(today time.Time) time.Time {
	return Day(today).AddDate(0, 0, w.LeadDays)
}

// Last returns the latest bookable day.
func (w LeadTimeWindow) Last(today time.Time) time.Time {
	return Day(today).AddDate(0, 0, w.HorizonDays)
}

// IsWithinBookableWindow reports whether today+LeadDays <= date <= today+HorizonDays,
// compared by calendar day.
func IsWithinBookableWindow(date, today time.Time, w LeadTimeWindow) bool {
	d := Day(date)
	return !d.Before(w.First(today)) && !d.After(w.Last(today))
}

// Day drops the time of day, keeping the calendar date of t in its own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return parsed, nil
}
