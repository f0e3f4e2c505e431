package calendar

import (
	"strings"

	"kigurumi-cli/api"
)

type Status int

const (
	Available Status = iota
	Booked
)

func (s Status) String() string {
	if s == Booked {
		return "booked"
	}
	return "available"
}

// ParseStatus maps a backend status symbol. Anything but a booked marker is available.
func ParseStatus(symbol string) Status {
	switch strings.TrimSpace(symbol) {
	case api.BookedSymbol, "BOOKED":
		return Booked
	default:
		return Available
	}
}

// AvailabilityMap is sparse: a missing date or item means available.
type AvailabilityMap map[string]map[string]Status

func FromCalendarData(data api.CalendarData) AvailabilityMap {
	m := make(AvailabilityMap, len(data))
	for date, items := range data {
		day := make(map[string]Status, len(items))
		for id, symbol := range items {
			day[id] = ParseStatus(symbol)
		}
		m[date] = day
	}
	return m
}

func (m AvailabilityMap) Booked(date, item string) bool {
	return m[date][item] == Booked
}

// IsAvailable applies the selection filter to one date of m.
func IsAvailable(m AvailabilityMap, catalog Catalog, date string, f Filter) bool {
	day, ok := m[date]
	if !ok {
		return true
	}
	switch f.Kind {
	case FilterKindConcierge:
		return day[ConciergeID] != Booked
	case FilterKindItem:
		return day[f.Item] != Booked
	default:
		for _, item := range catalog {
			if day[item.ID] != Booked {
				return true
			}
		}
		return false
	}
}

// Candidates lists the items that can still be booked on date. With the
// concierge filter every item is offered.
func Candidates(m AvailabilityMap, catalog Catalog, date string, f Filter) []Item {
	out := make([]Item, 0, len(catalog))
	if f.Kind == FilterKindConcierge {
		return append(out, catalog...)
	}
	for _, item := range catalog {
		if !m.Booked(date, item.ID) {
			out = append(out, item)
		}
	}
	return out
}
