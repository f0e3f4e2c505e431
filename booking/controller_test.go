package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"kigurumi-cli/api"
	"kigurumi-cli/calendar"
)

type fakeCalendar struct {
	catalog   calendar.Catalog
	bookable  bool
	refreshes atomic.Int32
}

func (f *fakeCalendar) Catalog() calendar.Catalog { return f.catalog }

func (f *fakeCalendar) Bookable(string, calendar.Filter) bool { return f.bookable }

func (f *fakeCalendar) Refresh(context.Context) error {
	f.refreshes.Add(1)
	return nil
}

type fakeWriter struct {
	mu       sync.Mutex
	requests []api.ProcessReservationRequest
	entered  chan struct{}
	release  chan struct{}
	resp     api.ProcessReservationResponse
	err      error
}

func (w *fakeWriter) ProcessReservation(ctx context.Context, req api.ProcessReservationRequest) (api.ProcessReservationResponse, error) {
	w.mu.Lock()
	w.requests = append(w.requests, req)
	w.mu.Unlock()
	if w.entered != nil {
		w.entered <- struct{}{}
		<-w.release
	}
	return w.resp, w.err
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.requests)
}

type staticToken string

func (s staticToken) Token() (string, error) { return string(s), nil }

func validReservation() Reservation {
	return Reservation{
		Date:     "2025-06-10",
		Item:     "きぐるみ1 ※本社保管",
		Office:   "Tokyo",
		Location: "Hall A",
		Name:     "Sato",
		Email:    "sato@example.com",
		Phone:    "03-0000-0000",
	}
}

func newController(t *testing.T, w *fakeWriter) (*Controller, *fakeCalendar) {
	t.Helper()
	cal := &fakeCalendar{catalog: calendar.DefaultCatalog(), bookable: true}
	return NewController(w, cal, staticToken("tok"), zaptest.NewLogger(t)), cal
}

func TestSubmitSuccess(t *testing.T) {
	w := &fakeWriter{resp: api.ProcessReservationResponse{Success: true}}
	c, cal := newController(t, w)

	resp, err := c.Submit(context.Background(), validReservation())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, Success, c.State())

	c.Wait()
	assert.Equal(t, int32(1), cal.refreshes.Load())

	require.Equal(t, 1, w.count())
	req := w.requests[0]
	assert.Equal(t, api.ActionProcessReservation, req.Action)
	assert.Equal(t, "tok", req.CSRFToken)
	assert.Equal(t, "きぐるみ1 ※本社保管", req.FormData.Character)
	assert.Equal(t, api.ConciergeNotRequired, req.FormData.Concierge)

	_, err = c.Submit(context.Background(), validReservation())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	c.Reset()
	assert.Equal(t, Idle, c.State())
}

func TestDoubleSubmitWritesOnce(t *testing.T) {
	w := &fakeWriter{
		resp:    api.ProcessReservationResponse{Success: true},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c, _ := newController(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), validReservation())
		done <- err
	}()
	<-w.entered
	assert.Equal(t, Submitting, c.State())

	_, err := c.Submit(context.Background(), validReservation())
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(w.release)
	require.NoError(t, <-done)
	c.Wait()
	assert.Equal(t, 1, w.count())
}

func TestConcurrentSubmitsWriteOnce(t *testing.T) {
	w := &fakeWriter{resp: api.ProcessReservationResponse{Success: true}}
	c, _ := newController(t, w)

	var wg sync.WaitGroup
	var inFlight atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Submit(context.Background(), validReservation()); errors.Is(err, ErrSubmitInFlight) {
				inFlight.Add(1)
			}
		}()
	}
	wg.Wait()
	c.Wait()

	assert.Equal(t, 1, w.count())
	assert.Equal(t, int32(15), inFlight.Load())
}

func TestSubmitFailureReturnsToIdle(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		resp    api.ProcessReservationResponse
		message string
	}{
		{"rejected", &api.RejectionError{Action: api.ActionProcessReservation, Message: "already booked"}, api.ProcessReservationResponse{Message: "already booked"}, "already booked"},
		{"timeout", api.ErrTimeout, api.ProcessReservationResponse{}, "Could not reach the reservation server. Try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{resp: tt.resp, err: tt.err}
			c, cal := newController(t, w)

			_, err := c.Submit(context.Background(), validReservation())
			require.Error(t, err)
			assert.Equal(t, tt.message, Message(err))
			assert.Equal(t, Idle, c.State())
			c.Wait()
			assert.Equal(t, int32(0), cal.refreshes.Load())
			assert.Equal(t, 1, w.count())
		})
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Reservation)
		field  string
	}{
		{"missing date", func(r *Reservation) { r.Date = "" }, "date"},
		{"bad date", func(r *Reservation) { r.Date = "10/06/2025" }, "date"},
		{"missing item", func(r *Reservation) { r.Item = " " }, "item"},
		{"unknown item", func(r *Reservation) { r.Item = "panda" }, "item"},
		{"missing office", func(r *Reservation) { r.Office = "" }, "office"},
		{"missing location", func(r *Reservation) { r.Location = "" }, "location"},
		{"missing name", func(r *Reservation) { r.Name = "" }, "name"},
		{"missing phone", func(r *Reservation) { r.Phone = "" }, "phone"},
		{"bad email", func(r *Reservation) { r.Email = "not-an-email" }, "email"},
		{"long remarks", func(r *Reservation) { r.Remarks = strings.Repeat("あ", MaxRemarks+1) }, "remarks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &fakeWriter{}
			c, _ := newController(t, w)

			r := validReservation()
			tt.mutate(&r)
			_, err := c.Submit(context.Background(), r)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 0, w.count())
			assert.Equal(t, Idle, c.State())
		})
	}
}

func TestValidationRejectsUnbookableDate(t *testing.T) {
	w := &fakeWriter{}
	c, cal := newController(t, w)
	cal.bookable = false

	_, err := c.Submit(context.Background(), validReservation())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)
	assert.Equal(t, 0, w.count())
}

func TestRemarksAtLimitPass(t *testing.T) {
	r := validReservation()
	r.Remarks = strings.Repeat("あ", MaxRemarks)
	assert.NoError(t, r.Validate(&fakeCalendar{catalog: calendar.DefaultCatalog(), bookable: true}))
}

func TestConciergeItemForcesConcierge(t *testing.T) {
	r := validReservation()
	r.Item = calendar.ConciergeID
	assert.Equal(t, api.ConciergeRequired, r.Form().Concierge)

	r = validReservation()
	r.Concierge = true
	assert.Equal(t, api.ConciergeRequired, r.Form().Concierge)
}
