package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"kigurumi-cli/calendar"
)

func parseDateInput(input string) (time.Time, error) {
	if input == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	now := time.Now()
	switch strings.ToLower(input) {
	case "today":
		return calendar.Day(now), nil
	case "tomorrow":
		return calendar.Day(now.AddDate(0, 0, 1)), nil
	}
	return calendar.ParseDate(input)
}

func parseMonthInput(input string) (int, time.Month, error) {
	parsed, err := time.Parse("2006-01", input)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q (expected YYYY-MM)", input)
	}
	return parsed.Year(), parsed.Month(), nil
}

// filterFromFlags turns --item and --concierge into a calendar filter.
func filterFromFlags(catalog calendar.Catalog, item string, concierge bool) (calendar.Filter, error) {
	if item != "" && concierge {
		return calendar.Filter{}, fmt.Errorf("use either --item or --concierge, not both")
	}
	if concierge {
		return calendar.FilterConciergeOnly, nil
	}
	if item == "" {
		return calendar.FilterAll, nil
	}
	resolved, err := catalog.Resolve(item)
	if err != nil {
		return calendar.Filter{}, err
	}
	return calendar.FilterItem(resolved.ID), nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 2, 2, 2, ' ', 0)
}

func writeJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printAdvanceNotice(w calendar.LeadTimeWindow) {
	fmt.Printf("Bookings open %d days in advance.\n", w.LeadDays)
}

func printDegradedBanner(degraded bool) {
	if degraded {
		fmt.Println("DEGRADED: reservation server unreachable, availability below is simulated.")
	}
}
