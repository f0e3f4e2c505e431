package calendar

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"kigurumi-cli/api"
	"kigurumi-cli/api/mocks"
	"kigurumi-cli/metrics"
)

var fixedNow = time.Date(2025, time.May, 2, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type stubSource struct {
	days    int
	daysErr error
	data    api.CalendarData
	dataErr error
}

func (s *stubSource) AdvanceDays(context.Context) (int, error) { return s.days, s.daysErr }

func (s *stubSource) CalendarData(context.Context) (api.CalendarData, error) {
	return s.data, s.dataErr
}

func TestEngineDegradedMode(t *testing.T) {
	ctrl := gomock.NewController(t)
	caller := mocks.NewMockCaller(ctrl)
	caller.EXPECT().
		Invoke(gomock.Any(), api.ActionGetCalendarData, nil, api.TimeoutRead).
		Return(nil, api.ErrTimeout).
		Times(api.DefaultMaxRetries + 1)

	invoker := api.NewInvoker(caller, zaptest.NewLogger(t))
	invoker.Delay = time.Millisecond
	backend := &api.Backend{Direct: caller, Retrying: invoker, Timeouts: api.DefaultTimeouts()}

	catalog := DefaultCatalog()
	engine := NewEngine(backend, catalog, zaptest.NewLogger(t),
		WithClock(clock), WithRand(rand.New(rand.NewSource(7))))

	require.NoError(t, engine.Refresh(context.Background()))
	assert.True(t, engine.Degraded())
	assert.Equal(t, 40, engine.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CalendarDegraded))

	booked, total := 0, 0
	for offset := 0; offset < 80; offset++ {
		date := FormatDate(fixedNow.AddDate(0, 0, offset))
		for _, item := range catalog {
			if engine.IsAvailable(date, FilterItem(item.ID)) {
				if offset >= 20 && offset < 60 {
					total++
				}
				continue
			}
			require.True(t, offset >= 20 && offset < 60, "synthetic booking outside range on %s", date)
			booked++
			total++
		}
	}
	rate := float64(booked) / float64(total)
	assert.InDelta(t, 0.3, rate, 0.1)
}

func TestEngineRefreshRecovers(t *testing.T) {
	src := &stubSource{dataErr: api.ErrLoadFault}
	engine := NewEngine(src, DefaultCatalog(), zaptest.NewLogger(t), WithClock(clock))

	require.NoError(t, engine.Refresh(context.Background()))
	require.True(t, engine.Degraded())

	src.dataErr = nil
	src.data = api.CalendarData{"2025-06-01": {"きぐるみ1 ※本社保管": api.BookedSymbol}}
	require.NoError(t, engine.Refresh(context.Background()))

	assert.False(t, engine.Degraded())
	assert.Equal(t, 1, engine.Len())
	assert.False(t, engine.IsAvailable("2025-06-01", FilterItem("きぐるみ1 ※本社保管")))
	assert.Equal(t, fixedNow, engine.UpdatedAt())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.CalendarDegraded))
}

func TestEngineRefreshCanceled(t *testing.T) {
	src := &stubSource{dataErr: context.Canceled}
	engine := NewEngine(src, DefaultCatalog(), zaptest.NewLogger(t), WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := engine.Refresh(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, engine.Degraded())
	assert.Zero(t, engine.Len())
}

func TestEngineLoadWindow(t *testing.T) {
	tests := []struct {
		name string
		src  *stubSource
		want int
	}{
		{name: "backend value", src: &stubSource{days: 20}, want: 20},
		{name: "timeout keeps default", src: &stubSource{daysErr: api.ErrTimeout}, want: DefaultLeadDays},
		{name: "zero keeps default", src: &stubSource{days: 0}, want: DefaultLeadDays},
		{name: "negative keeps default", src: &stubSource{days: -3}, want: DefaultLeadDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.src, DefaultCatalog(), zaptest.NewLogger(t), WithClock(clock))
			w := engine.LoadWindow(context.Background())
			assert.Equal(t, tt.want, w.LeadDays)
			assert.Equal(t, DefaultHorizonDays, w.HorizonDays)
			assert.Equal(t, w, engine.Window())
		})
	}
}

func TestEngineBookableAndNextAvailable(t *testing.T) {
	catalog := DefaultCatalog()
	engine := NewEngine(nil, catalog, zaptest.NewLogger(t), WithClock(clock),
		WithWindow(LeadTimeWindow{LeadDays: 3, HorizonDays: 10}))
	item := catalog[0].ID
	engine.Replace(AvailabilityMap{
		"2025-05-05": {item: Booked},
		"2025-05-07": {item: Booked},
	})

	assert.False(t, engine.Bookable("2025-05-04", FilterItem(item)), "inside lead time")
	assert.False(t, engine.Bookable("2025-05-05", FilterItem(item)), "booked")
	assert.True(t, engine.Bookable("2025-05-06", FilterItem(item)))
	assert.False(t, engine.Bookable("2025-05-13", FilterItem(item)), "past horizon")
	assert.False(t, engine.Bookable("not-a-date", FilterAll))

	got := engine.NextAvailable(time.Time{}, FilterItem(item), 3)
	assert.Equal(t, []string{"2025-05-06", "2025-05-08", "2025-05-09"}, got)

	got = engine.NextAvailable(time.Date(2025, time.May, 11, 0, 0, 0, 0, time.UTC), FilterItem(item), 5)
	assert.Equal(t, []string{"2025-05-11", "2025-05-12"}, got)
}

func TestEngineConcurrentReadsDuringReplace(t *testing.T) {
	catalog := DefaultCatalog()
	engine := NewEngine(nil, catalog, zaptest.NewLogger(t), WithClock(clock))
	full := allBooked(catalog, "2025-06-01")

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					engine.IsAvailable("2025-06-01", FilterAll)
					engine.Candidates("2025-06-01", FilterAll)
				}
			}
		}()
	}
	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			engine.Replace(full)
		} else {
			engine.Replace(AvailabilityMap{})
		}
	}
	close(stop)
	wg.Wait()
	assert.True(t, engine.IsAvailable("2025-06-01", FilterAll))
}

func TestEngineDecodesBackendMap(t *testing.T) {
	ctrl := gomock.NewController(t)
	caller := mocks.NewMockCaller(ctrl)
	caller.EXPECT().
		Invoke(gomock.Any(), api.ActionGetCalendarData, nil, api.TimeoutRead).
		Return(json.RawMessage(`{"2025-06-01":{"コンシェルジュのみ（きぐるみ不要）":"✕"}}`), nil)
	backend := &api.Backend{Direct: caller, Retrying: caller, Timeouts: api.DefaultTimeouts()}

	engine := NewEngine(backend, DefaultCatalog(), zaptest.NewLogger(t), WithClock(clock))
	require.NoError(t, engine.Refresh(context.Background()))
	assert.False(t, engine.IsAvailable("2025-06-01", FilterConciergeOnly))
	assert.True(t, engine.IsAvailable("2025-06-01", FilterAll))
}
