package api

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when the reply does not arrive before the call deadline.
	ErrTimeout = errors.New("transport timeout")
	// ErrLoadFault is returned when the request cannot be delivered or its reply cannot be read.
	ErrLoadFault = errors.New("transport load fault")
	// ErrEmptyCalendar is returned when getCalendarData answers with no dates at all.
	ErrEmptyCalendar = errors.New("empty calendar data")
)

// RejectionError is an explicit {success:false} answer from the backend.
type RejectionError struct {
	Action  string
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected by backend", e.Action)
	}
	return fmt.Sprintf("%s rejected by backend: %s", e.Action, e.Message)
}

// IsTransport reports whether err came from the transport rather than the backend.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrLoadFault)
}
