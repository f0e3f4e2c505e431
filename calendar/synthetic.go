package calendar

import (
	"math/rand"
	"time"
)

const (
	syntheticFirstDay   = 20
	syntheticLastDay    = 60
	syntheticBookedRate = 0.3
)

// SyntheticMap fabricates availability for days 20..59 after today with
// roughly 30% of items booked. It is only used when the backend cannot be read.
func SyntheticMap(catalog Catalog, today time.Time, rng *rand.Rand) AvailabilityMap {
	m := make(AvailabilityMap, syntheticLastDay-syntheticFirstDay)
	start := Day(today)
	for offset := syntheticFirstDay; offset < syntheticLastDay; offset++ {
		day := make(map[string]Status, len(catalog))
		for _, item := range catalog {
			if rng.Float64() < syntheticBookedRate {
				day[item.ID] = Booked
			} else {
				day[item.ID] = Available
			}
		}
		m[FormatDate(start.AddDate(0, 0, offset))] = day
	}
	return m
}
