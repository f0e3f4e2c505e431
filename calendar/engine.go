package calendar

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"kigurumi-cli/api"
	"kigurumi-cli/metrics"
)

// Source is the backend side of the engine.
type Source interface {
	AdvanceDays(ctx context.Context) (int, error)
	CalendarData(ctx context.Context) (api.CalendarData, error)
}

// Engine owns the availability map and the lead-time window. The map is only
// ever replaced as a whole, so readers see either the old or the new one.
type Engine struct {
	source  Source
	catalog Catalog
	logger  *zap.Logger
	now     func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	mu        sync.RWMutex
	data      AvailabilityMap
	window    LeadTimeWindow
	degraded  bool
	updatedAt time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithWindow sets the window used until LoadWindow succeeds.
func WithWindow(w LeadTimeWindow) Option {
	return func(e *Engine) { e.window = w }
}

func NewEngine(source Source, catalog Catalog, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		source:  source,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
		window:  DefaultWindow(),
		data:    AvailabilityMap{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(e.now().UnixNano()))
	}
	return e
}

func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// Today is the engine clock truncated to the day.
func (e *Engine) Today() time.Time {
	return Day(e.now())
}

func (e *Engine) Window() LeadTimeWindow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.window
}

// LoadWindow fetches the lead time from the backend. On any failure, or a
// non-positive answer, the current window is kept.
func (e *Engine) LoadWindow(ctx context.Context) LeadTimeWindow {
	days, err := e.source.AdvanceDays(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case err != nil:
		e.logger.Warn("lead time unavailable, using default",
			zap.Int("lead_days", e.window.LeadDays),
			zap.Error(err))
	case days <= 0:
		e.logger.Warn("ignoring non-positive lead time", zap.Int("lead_days", days))
	default:
		e.window.LeadDays = days
	}
	return e.window
}

// Refresh reloads the availability map. When the backend cannot be read the
// engine switches to a synthetic map and reports Degraded. Only context
// cancellation is returned as an error.
func (e *Engine) Refresh(ctx context.Context) error {
	data, err := e.source.CalendarData(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.rngMu.Lock()
		synthetic := SyntheticMap(e.catalog, e.now(), e.rng)
		e.rngMu.Unlock()

		e.install(synthetic, true)
		e.logger.Warn("calendar data unavailable, showing synthetic availability",
			zap.Int("dates", len(synthetic)),
			zap.Error(err))
		metrics.CalendarRefreshesTotal.WithLabelValues("synthetic").Inc()
		return nil
	}

	m := FromCalendarData(data)
	e.install(m, false)
	e.logger.Debug("calendar data installed", zap.Int("dates", len(m)))
	metrics.CalendarRefreshesTotal.WithLabelValues("live").Inc()
	return nil
}

// Replace installs m as live data.
func (e *Engine) Replace(m AvailabilityMap) {
	e.install(m, false)
}

func (e *Engine) install(m AvailabilityMap, degraded bool) {
	e.mu.Lock()
	e.data = m
	e.degraded = degraded
	e.updatedAt = e.now()
	e.mu.Unlock()

	metrics.CalendarDates.Set(float64(len(m)))
	if degraded {
		metrics.CalendarDegraded.Set(1)
	} else {
		metrics.CalendarDegraded.Set(0)
	}
}

// Degraded reports whether the installed map is synthetic.
func (e *Engine) Degraded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.degraded
}

func (e *Engine) UpdatedAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.updatedAt
}

// Len returns the number of dates in the installed map.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.data)
}

func (e *Engine) IsAvailable(date string, f Filter) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return IsAvailable(e.data, e.catalog, date, f)
}

func (e *Engine) Candidates(date string, f Filter) []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Candidates(e.data, e.catalog, date, f)
}

// Bookable reports whether date is inside the window and available under f.
func (e *Engine) Bookable(date string, f Filter) bool {
	d, err := ParseDate(date)
	if err != nil {
		return false
	}
	if !IsWithinBookableWindow(d, e.Today(), e.Window()) {
		return false
	}
	return e.IsAvailable(date, f)
}

// NextAvailable walks the window from its first day and returns up to limit
// dates that are bookable under f.
func (e *Engine) NextAvailable(from time.Time, f Filter, limit int) []string {
	today := e.Today()
	window := e.Window()
	start := window.First(today)
	if d := Day(from); d.After(start) {
		start = d
	}
	last := window.Last(today)

	dates := []string{}
	for d := start; !d.After(last) && len(dates) < limit; d = d.AddDate(0, 0, 1) {
		date := FormatDate(d)
		if e.IsAvailable(date, f) {
			dates = append(dates, date)
		}
	}
	return dates
}
