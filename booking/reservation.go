package booking

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"kigurumi-cli/api"
	"kigurumi-cli/calendar"
)

const MaxRemarks = 150

// Reservation is the booking form as entered at the desk.
type Reservation struct {
	Date      string `json:"date"`
	Item      string `json:"item"`
	Office    string `json:"office"`
	Location  string `json:"location"`
	Concierge bool   `json:"concierge"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Remarks   string `json:"remarks"`
}

// ValidationError names the first form field that failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Availability is what validation needs from the calendar engine.
type Availability interface {
	Catalog() calendar.Catalog
	Bookable(date string, f calendar.Filter) bool
}

// Validate checks the form without any network I/O.
func (r Reservation) Validate(a Availability) error {
	if strings.TrimSpace(r.Date) == "" {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if _, err := calendar.ParseDate(r.Date); err != nil {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if strings.TrimSpace(r.Item) == "" {
		return &ValidationError{Field: "item", Reason: "required"}
	}
	if _, ok := a.Catalog().Find(r.Item); !ok {
		return &ValidationError{Field: "item", Reason: fmt.Sprintf("unknown item %q", r.Item)}
	}
	if !a.Bookable(r.Date, calendar.FilterItem(r.Item)) {
		return &ValidationError{Field: "date", Reason: "not bookable for " + r.Item}
	}

	required := []struct{ field, value string }{
		{"office", r.Office},
		{"location", r.Location},
		{"name", r.Name},
		{"email", r.Email},
		{"phone", r.Phone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Reason: "required"}
		}
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return &ValidationError{Field: "email", Reason: "invalid address"}
	}
	if n := utf8.RuneCountInString(r.Remarks); n > MaxRemarks {
		return &ValidationError{Field: "remarks", Reason: fmt.Sprintf("%d characters, at most %d", n, MaxRemarks)}
	}
	return nil
}

// Form builds the wire form. The concierge-only item always requires a concierge.
func (r Reservation) Form() api.ReservationForm {
	concierge := api.ConciergeNotRequired
	if r.Concierge || (calendar.Item{ID: r.Item}).Concierge() {
		concierge = api.ConciergeRequired
	}
	return api.ReservationForm{
		Date:      r.Date,
		Character: r.Item,
		Office:    strings.TrimSpace(r.Office),
		Location:  strings.TrimSpace(r.Location),
		Concierge: concierge,
		Name:      strings.TrimSpace(r.Name),
		Email:     strings.TrimSpace(r.Email),
		Phone:     strings.TrimSpace(r.Phone),
		Remarks:   r.Remarks,
	}
}
