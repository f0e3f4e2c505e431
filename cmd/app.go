package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kigurumi-cli/api"
	"kigurumi-cli/auth"
	"kigurumi-cli/booking"
	"kigurumi-cli/calendar"
	"kigurumi-cli/config"
	"kigurumi-cli/session"
	"kigurumi-cli/storage"
)

// App holds everything one command invocation needs. newApp builds it and
// Close tears it down.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Client   *api.Client
	Backend  *api.Backend
	Engine   *calendar.Engine
	Provider auth.Provider
	Tokens   *session.TokenStore
	Gate     *session.Gate
	Form     *booking.Controller

	journal *sql.DB
}

func newApp(conf *config.Config, logger *zap.Logger) (*App, error) {
	catalog, err := conf.Catalog()
	if err != nil {
		return nil, err
	}
	provider, err := newProvider(conf.Auth)
	if err != nil {
		return nil, err
	}

	app := &App{Config: conf, Logger: logger, Provider: provider}

	app.Client = api.NewClient(conf.Endpoint, logger.Named("transport"))
	if db, err := storage.OpenJournalDB(); err != nil {
		logger.Warn("call journal unavailable", zap.Error(err))
	} else {
		db.SetMaxOpenConns(1)
		app.journal = db
		app.Client.Observer = app.record
	}

	invoker := api.NewInvoker(app.Client, logger.Named("retry"))
	invoker.MaxRetries = conf.Retry.MaxRetries
	invoker.Delay = conf.Retry.Delay
	app.Backend = api.NewBackend(app.Client, invoker, conf.APITimeouts())

	app.Engine = calendar.NewEngine(app.Backend, catalog, logger.Named("calendar"),
		calendar.WithWindow(conf.Window()))

	app.Tokens = session.NewTokenStore()
	app.Gate = session.NewGate(storage.CredentialStore{}, provider, logger.Named("session"),
		session.WithMaxAge(conf.Session.MaxAge),
		session.WithSessionState(app.Tokens))
	app.Form = booking.NewController(app.Backend, app.Engine, app.Tokens, logger.Named("booking"))
	return app, nil
}

func newProvider(conf config.AuthConfig) (auth.Provider, error) {
	switch conf.Provider {
	case config.ProviderLocal:
		return auth.NewLocal(conf.PasswordHash, conf.Email), nil
	case config.ProviderIdentityToolkit, "":
		return auth.NewIdentityToolkit(conf.BaseURL, conf.APIKey, conf.Email), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", conf.Provider)
	}
}

// Bootstrap loads the lead-time window and the availability map concurrently.
func (a *App) Bootstrap(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Engine.LoadWindow(ctx)
		return nil
	})
	g.Go(func() error {
		return a.Engine.Refresh(ctx)
	})
	return g.Wait()
}

// RequireSession runs the session gate for commands that talk to the backend.
func (a *App) RequireSession(ctx context.Context) error {
	if err := a.Gate.Check(ctx); err != nil {
		if errors.Is(err, session.ErrSessionExpired) {
			return fmt.Errorf("%w. Run 'kigurumi auth login' again", err)
		}
		return fmt.Errorf("%w. Run 'kigurumi auth login' first", err)
	}
	return nil
}

func (a *App) record(rec api.CallRecord) {
	_, err := storage.AddCall(a.journal, storage.CallEntry{
		Action:     rec.Action,
		Callback:   rec.Callback,
		Outcome:    rec.Outcome,
		DurationMS: rec.Duration.Milliseconds(),
		StartedAt:  rec.StartedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		a.Logger.Debug("journal write failed", zap.Error(err))
	}
}

// Close waits for background refreshes and releases the journal.
func (a *App) Close() {
	a.Form.Wait()
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.Logger.Debug("close journal", zap.Error(err))
		}
	}
}

func withApp(ctx context.Context, fn func(ctx context.Context, app *App) error) error {
	app, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}
