package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"kigurumi-cli/api"
	"kigurumi-cli/metrics"
)

var ErrSubmitInFlight = errors.New("a reservation is already being submitted")

type State int32

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Writer sends one reservation to the backend.
type Writer interface {
	ProcessReservation(ctx context.Context, req api.ProcessReservationRequest) (api.ProcessReservationResponse, error)
}

// Calendar is the engine as seen by the controller.
type Calendar interface {
	Availability
	Refresh(ctx context.Context) error
}

type TokenSource interface {
	Token() (string, error)
}

// Controller runs the reservation form: IDLE → SUBMITTING → SUCCESS/FAILED.
// A failed submission returns to IDLE straight away; a successful one stays
// in SUCCESS until Reset.
type Controller struct {
	writer   Writer
	calendar Calendar
	tokens   TokenSource
	logger   *zap.Logger

	state atomic.Int32
	wg    sync.WaitGroup
}

func NewController(writer Writer, cal Calendar, tokens TokenSource, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{writer: writer, calendar: cal, tokens: tokens, logger: logger}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Submit validates r and writes it once. It never retries.
func (c *Controller) Submit(ctx context.Context, r Reservation) (api.ProcessReservationResponse, error) {
	if !c.state.CompareAndSwap(int32(Idle), int32(Submitting)) {
		metrics.ReservationSubmissionsTotal.WithLabelValues("in_flight").Inc()
		return api.ProcessReservationResponse{}, ErrSubmitInFlight
	}

	resp, err := c.submit(ctx, r)
	if err != nil {
		c.state.Store(int32(Failed))
		metrics.ReservationSubmissionsTotal.WithLabelValues(result(err)).Inc()
		c.logger.Warn("reservation failed",
			zap.String("date", r.Date),
			zap.String("item", r.Item),
			zap.Error(err))
		c.state.Store(int32(Idle))
		return resp, err
	}

	c.state.Store(int32(Success))
	metrics.ReservationSubmissionsTotal.WithLabelValues("success").Inc()
	c.logger.Info("reservation accepted",
		zap.String("date", r.Date),
		zap.String("item", r.Item))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.calendar.Refresh(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("refresh after reservation failed", zap.Error(err))
		}
	}()
	return resp, nil
}

func (c *Controller) submit(ctx context.Context, r Reservation) (api.ProcessReservationResponse, error) {
	if err := r.Validate(c.calendar); err != nil {
		return api.ProcessReservationResponse{}, err
	}
	token, err := c.tokens.Token()
	if err != nil {
		return api.ProcessReservationResponse{}, fmt.Errorf("anti-forgery token: %w", err)
	}
	return c.writer.ProcessReservation(ctx, api.ProcessReservationRequest{
		Action:    api.ActionProcessReservation,
		FormData:  r.Form(),
		CSRFToken: token,
	})
}

// Wait blocks until the refresh started by the last successful submit is done.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Reset returns a finished form to IDLE. It does nothing while submitting.
func (c *Controller) Reset() {
	c.state.CompareAndSwap(int32(Success), int32(Idle))
	c.state.CompareAndSwap(int32(Failed), int32(Idle))
}

func result(err error) string {
	var validation *ValidationError
	var rejection *api.RejectionError
	switch {
	case errors.As(err, &validation):
		return "invalid"
	case errors.As(err, &rejection):
		return "rejected"
	case api.IsTransport(err):
		return "transport"
	default:
		return "error"
	}
}

// Message renders a submit error for the person at the desk.
func Message(err error) string {
	var validation *ValidationError
	var rejection *api.RejectionError
	switch {
	case err == nil:
		return "Reservation accepted."
	case errors.Is(err, ErrSubmitInFlight):
		return "A reservation is already being submitted. Please wait."
	case errors.As(err, &validation):
		return fmt.Sprintf("Check the %s field: %s.", validation.Field, validation.Reason)
	case errors.As(err, &rejection):
		if rejection.Message != "" {
			return rejection.Message
		}
		return "The reservation could not be made."
	case api.IsTransport(err):
		return "Could not reach the reservation server. Try again."
	default:
		return fmt.Sprintf("Reservation failed: %v", err)
	}
}
