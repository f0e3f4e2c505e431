package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	TransportCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kigurumi_transport_calls_total",
		Help: "Total number of completed backend calls by action and outcome.",
	},
		[]string{"action", "outcome"},
	)

	TransportCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kigurumi_transport_call_duration_seconds",
		Help:    "Time from issuing a backend call to its completion.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 15},
	},
		[]string{"action"},
	)

	TransportRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kigurumi_transport_retries_total",
		Help: "Total number of retried read calls.",
	},
		[]string{"action"},
	)

	CalendarRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kigurumi_calendar_refreshes_total",
		Help: "Total number of availability refreshes by source (live or synthetic).",
	},
		[]string{"source"},
	)

	CalendarDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kigurumi_calendar_degraded",
		Help: "1 while the calendar shows synthetic availability.",
	})

	CalendarDates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kigurumi_calendar_dates",
		Help: "Number of dates in the installed availability map.",
	})

	ReservationSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kigurumi_reservation_submissions_total",
		Help: "Total number of reservation submissions by result.",
	},
		[]string{"result"},
	)

	SessionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kigurumi_session_transitions_total",
		Help: "Total number of session gate transitions by resulting state.",
	},
		[]string{"state"},
	)
)

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
