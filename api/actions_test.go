package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"kigurumi-cli/api/mocks"
)

func newTestBackend(t *testing.T) (*Backend, *mocks.MockCaller, *mocks.MockCaller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	direct := mocks.NewMockCaller(ctrl)
	retrying := mocks.NewMockCaller(ctrl)
	return &Backend{Direct: direct, Retrying: retrying, Timeouts: DefaultTimeouts()}, direct, retrying
}

func TestBackendAdvanceDays(t *testing.T) {
	b, direct, _ := newTestBackend(t)
	direct.EXPECT().
		Invoke(gomock.Any(), ActionGetAdvanceDays, nil, TimeoutBootstrap).
		Return(json.RawMessage(`{"advanceDays":20}`), nil)

	days, err := b.AdvanceDays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, days)
}

func TestBackendCalendarData(t *testing.T) {
	t.Run("decodes map", func(t *testing.T) {
		b, _, retrying := newTestBackend(t)
		retrying.EXPECT().
			Invoke(gomock.Any(), ActionGetCalendarData, nil, TimeoutRead).
			Return(json.RawMessage(`{"2025-06-01":{"きぐるみ1 ※本社保管":"✕"}}`), nil)

		data, err := b.CalendarData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, BookedSymbol, data["2025-06-01"]["きぐるみ1 ※本社保管"])
	})

	t.Run("empty is an error", func(t *testing.T) {
		b, _, retrying := newTestBackend(t)
		retrying.EXPECT().Invoke(gomock.Any(), ActionGetCalendarData, nil, TimeoutRead).Return(json.RawMessage(`{}`), nil)

		_, err := b.CalendarData(context.Background())
		require.ErrorIs(t, err, ErrEmptyCalendar)
	})

	t.Run("error object", func(t *testing.T) {
		b, _, retrying := newTestBackend(t)
		retrying.EXPECT().Invoke(gomock.Any(), ActionGetCalendarData, nil, TimeoutRead).Return(json.RawMessage(`{"error":"sheet missing"}`), nil)

		_, err := b.CalendarData(context.Background())
		require.Error(t, err)
	})
}

func TestBackendFetchReservations(t *testing.T) {
	b, _, retrying := newTestBackend(t)
	retrying.EXPECT().
		Invoke(gomock.Any(), ActionFetchReservationsData, nil, TimeoutRead).
		Return(json.RawMessage(`{"reservations":[{"date":"2025-06-01","character":"きぐるみ4 ※旭川保管","office":"旭川","place":"駅前","concierge":"必要","status":"調整中"}]}`), nil)

	records, err := b.FetchReservations(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "駅前", records[0].Place)
	assert.Equal(t, "pending", records[0].StatusLabel())
}

func TestBackendProcessReservation(t *testing.T) {
	req := ProcessReservationRequest{
		FormData:  ReservationForm{Date: "2025-06-01", Character: "きぐるみ1 ※本社保管"},
		CSRFToken: "token",
	}

	t.Run("accepted", func(t *testing.T) {
		b, direct, _ := newTestBackend(t)
		want := req
		want.Action = ActionProcessReservation
		direct.EXPECT().
			Invoke(gomock.Any(), ActionProcessReservation, want, TimeoutDefault).
			Return(json.RawMessage(`{"success":true}`), nil)

		resp, err := b.ProcessReservation(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("rejected", func(t *testing.T) {
		b, direct, _ := newTestBackend(t)
		direct.EXPECT().
			Invoke(gomock.Any(), ActionProcessReservation, gomock.Any(), TimeoutDefault).
			Return(json.RawMessage(`{"success":false,"message":"already booked"}`), nil)

		_, err := b.ProcessReservation(context.Background(), req)
		var rejection *RejectionError
		require.True(t, errors.As(err, &rejection))
		assert.Equal(t, "already booked", rejection.Message)
		assert.False(t, IsTransport(err))
	})

	t.Run("transport failure is not retried", func(t *testing.T) {
		b, direct, _ := newTestBackend(t)
		direct.EXPECT().
			Invoke(gomock.Any(), ActionProcessReservation, gomock.Any(), TimeoutDefault).
			Return(nil, ErrTimeout).
			Times(1)

		_, err := b.ProcessReservation(context.Background(), req)
		require.ErrorIs(t, err, ErrTimeout)
		assert.True(t, IsTransport(err))
	})
}
