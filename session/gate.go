package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"kigurumi-cli/metrics"
)

const DefaultMaxAge = 24 * time.Hour

var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrSessionExpired   = errors.New("session expired")
)

type State int

const (
	Unauthenticated State = iota
	Admitted
	Expired
)

func (s State) String() string {
	switch s {
	case Admitted:
		return "admitted"
	case Expired:
		return "expired"
	default:
		return "unauthenticated"
	}
}

// LoginStore exposes the persisted login timestamp.
type LoginStore interface {
	LoginTime() (time.Time, bool, error)
	Clear() error
}

type SignOuter interface {
	SignOut(ctx context.Context) error
}

type Clearer interface {
	Clear() error
}

// Gate decides whether the current login may use the rest of the tool. The
// expiry check runs client-side against the stored login time and is not
// cryptographically enforced.
type Gate struct {
	store    LoginStore
	provider SignOuter
	session  Clearer
	lock     *Lock
	logger   *zap.Logger
	now      func() time.Time
	maxAge   time.Duration

	mu    sync.Mutex
	state State
}

type GateOption func(*Gate)

func WithMaxAge(d time.Duration) GateOption {
	return func(g *Gate) { g.maxAge = d }
}

func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// WithSessionState clears c whenever a session ends.
func WithSessionState(c Clearer) GateOption {
	return func(g *Gate) { g.session = c }
}

func NewGate(store LoginStore, provider SignOuter, logger *zap.Logger, opts ...GateOption) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gate{
		store:    store,
		provider: provider,
		lock:     NewLock(),
		logger:   logger,
		now:      time.Now,
		maxAge:   DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Signal feeds one identity provider signal through the gate. Signals that
// arrive while a transition is running are ignored and return the current state.
func (g *Gate) Signal(ctx context.Context, authenticated bool) State {
	state, _ := g.signal(ctx, authenticated)
	return state
}

// Check signals the gate with the presence of a stored login and converts
// the outcome into an error for commands that need an admitted session.
func (g *Gate) Check(ctx context.Context) error {
	_, present, err := g.store.LoginTime()
	authenticated := present || err != nil
	state, expired := g.signal(ctx, authenticated)
	switch {
	case state == Admitted:
		return nil
	case expired:
		return ErrSessionExpired
	default:
		return ErrNotAuthenticated
	}
}

// Age returns how long ago the stored login happened.
func (g *Gate) Age() (time.Duration, bool) {
	at, ok, err := g.store.LoginTime()
	if err != nil || !ok {
		return 0, false
	}
	return g.now().Sub(at), true
}

// End signs out and clears local session state regardless of expiry.
func (g *Gate) End(ctx context.Context) error {
	if !g.lock.TryAcquire() {
		return errors.New("session transition already in progress")
	}
	defer g.lock.Release()
	err := g.teardown(ctx)
	g.set(Unauthenticated)
	return err
}

func (g *Gate) signal(ctx context.Context, authenticated bool) (State, bool) {
	if !g.lock.TryAcquire() {
		g.logger.Debug("session transition in flight, signal ignored",
			zap.Bool("authenticated", authenticated))
		return g.State(), false
	}
	defer g.lock.Release()

	if !authenticated {
		return g.set(Unauthenticated), false
	}

	at, ok, err := g.store.LoginTime()
	switch {
	case err != nil:
		g.logger.Warn("unreadable login time, ending session", zap.Error(err))
	case !ok:
		g.logger.Warn("no login time recorded, ending session")
	case g.now().Sub(at) > g.maxAge:
		g.logger.Info("session expired",
			zap.Time("logged_in_at", at),
			zap.Duration("max_age", g.maxAge))
	default:
		return g.set(Admitted), false
	}

	g.set(Expired)
	if err := g.teardown(ctx); err != nil {
		g.logger.Warn("session teardown incomplete", zap.Error(err))
	}
	return g.set(Unauthenticated), true
}

func (g *Gate) teardown(ctx context.Context) error {
	var errs []error
	if g.provider != nil {
		if err := g.provider.SignOut(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := g.store.Clear(); err != nil {
		errs = append(errs, err)
	}
	if g.session != nil {
		if err := g.session.Clear(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (g *Gate) set(s State) State {
	g.mu.Lock()
	changed := g.state != s
	g.state = s
	g.mu.Unlock()
	if changed {
		metrics.SessionTransitionsTotal.WithLabelValues(s.String()).Inc()
		g.logger.Debug("session state changed", zap.Stringer("state", s))
	}
	return s
}
