package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type Timeouts struct {
	Default   time.Duration
	Read      time.Duration
	Bootstrap time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Default:   TimeoutDefault,
		Read:      TimeoutRead,
		Bootstrap: TimeoutBootstrap,
	}
}

// Backend exposes the typed backend actions. Direct is used for calls that
// must not be repeated; Retrying is used for reads.
type Backend struct {
	Direct   Caller
	Retrying Caller
	Timeouts Timeouts
}

func NewBackend(client *Client, invoker *Invoker, timeouts Timeouts) *Backend {
	return &Backend{Direct: client, Retrying: invoker, Timeouts: timeouts}
}

// AdvanceDays fetches the booking lead time. It is tried once with a short deadline.
func (b *Backend) AdvanceDays(ctx context.Context) (int, error) {
	raw, err := b.Direct.Invoke(ctx, ActionGetAdvanceDays, nil, b.Timeouts.Bootstrap)
	if err != nil {
		return 0, err
	}
	var resp AdvanceDaysResponse
	if err := decodeReply(ActionGetAdvanceDays, raw, &resp); err != nil {
		return 0, err
	}
	return resp.AdvanceDays, nil
}

func (b *Backend) CalendarData(ctx context.Context) (CalendarData, error) {
	raw, err := b.Retrying.Invoke(ctx, ActionGetCalendarData, nil, b.Timeouts.Read)
	if err != nil {
		return nil, err
	}
	var data CalendarData
	if err := decodeReply(ActionGetCalendarData, raw, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyCalendar
	}
	return data, nil
}

func (b *Backend) FetchReservations(ctx context.Context) ([]ReservationRecord, error) {
	raw, err := b.Retrying.Invoke(ctx, ActionFetchReservationsData, nil, b.Timeouts.Read)
	if err != nil {
		return nil, err
	}
	var resp ReservationsResponse
	if err := decodeReply(ActionFetchReservationsData, raw, &resp); err != nil {
		return nil, err
	}
	if resp.Success != nil && !*resp.Success {
		return nil, &RejectionError{Action: ActionFetchReservationsData, Message: resp.Message}
	}
	if resp.Reservations == nil {
		return []ReservationRecord{}, nil
	}
	return resp.Reservations, nil
}

// ProcessReservation submits a booking. It is never retried.
func (b *Backend) ProcessReservation(ctx context.Context, req ProcessReservationRequest) (ProcessReservationResponse, error) {
	if req.Action == "" {
		req.Action = ActionProcessReservation
	}
	raw, err := b.Direct.Invoke(ctx, ActionProcessReservation, req, b.Timeouts.Default)
	if err != nil {
		return ProcessReservationResponse{}, err
	}
	var resp ProcessReservationResponse
	if err := decodeReply(ActionProcessReservation, raw, &resp); err != nil {
		return ProcessReservationResponse{}, err
	}
	if !resp.Success {
		return resp, &RejectionError{Action: ActionProcessReservation, Message: resp.Message}
	}
	return resp, nil
}

func decodeReply(action string, raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return fmt.Errorf("decode %s reply: empty", action)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s reply: %w", action, err)
	}
	return nil
}
