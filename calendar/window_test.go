package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsWithinBookableWindowBoundaries(t *testing.T) {
	today := time.Date(2025, time.May, 10, 14, 30, 0, 0, time.Local)
	w := LeadTimeWindow{LeadDays: 15, HorizonDays: 365}

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{name: "today", date: today, want: false},
		{name: "day before lead", date: time.Date(2025, time.May, 24, 0, 0, 0, 0, time.UTC), want: false},
		{name: "first bookable day", date: time.Date(2025, time.May, 25, 0, 0, 0, 0, time.UTC), want: true},
		{name: "first bookable day late evening", date: time.Date(2025, time.May, 25, 23, 59, 0, 0, time.UTC), want: true},
		{name: "last bookable day", date: time.Date(2026, time.May, 10, 0, 0, 0, 0, time.UTC), want: true},
		{name: "day after horizon", date: time.Date(2026, time.May, 11, 0, 0, 0, 0, time.UTC), want: false},
		{name: "past", date: time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWithinBookableWindow(tt.date, today, w))
		})
	}
}

func TestIsWithinBookableWindowMonotonic(t *testing.T) {
	today := time.Date(2025, time.February, 20, 9, 0, 0, 0, time.UTC)
	w := LeadTimeWindow{LeadDays: 7, HorizonDays: DefaultHorizonDays}

	transitions := 0
	prev := false
	for offset := 0; offset <= 400; offset++ {
		in := IsWithinBookableWindow(today.AddDate(0, 0, offset), today, w)
		if in != prev {
			transitions++
			switch transitions {
			case 1:
				assert.Equal(t, w.LeadDays, offset, "window opens at lead days")
			case 2:
				assert.Equal(t, w.HorizonDays+1, offset, "window closes after horizon")
			}
		}
		prev = in
	}
	assert.Equal(t, 2, transitions)
}

func TestZeroLeadDaysIncludesToday(t *testing.T) {
	today := time.Date(2025, time.March, 1, 18, 0, 0, 0, time.UTC)
	assert.True(t, IsWithinBookableWindow(today, today, LeadTimeWindow{HorizonDays: 365}))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", FormatDate(d))

	_, err = ParseDate("06/01/2025")
	assert.Error(t, err)
}
