package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kigurumi-cli/metrics"
)

const (
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
)

// Invoker retries failed calls a bounded number of times with a fixed delay.
// Only read actions should go through it.
type Invoker struct {
	Caller     Caller
	MaxRetries int
	Delay      time.Duration
	Logger     *zap.Logger
	OnRetry    func(action string, attempt int, err error)
}

func NewInvoker(caller Caller, logger *zap.Logger) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{
		Caller:     caller,
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultRetryDelay,
		Logger:     logger,
	}
}

func (i *Invoker) Invoke(ctx context.Context, action string, payload any, timeout time.Duration) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		reply, err := i.Caller.Invoke(ctx, action, payload, timeout)
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if attempt >= i.MaxRetries {
			return nil, fmt.Errorf("%s failed after %d attempts: %w", action, attempt+1, err)
		}

		i.Logger.Warn("retrying backend call",
			zap.String("action", action),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", i.Delay),
			zap.Error(err))
		metrics.TransportRetriesTotal.WithLabelValues(action).Inc()
		if i.OnRetry != nil {
			i.OnRetry(action, attempt+1, err)
		}

		timer := time.NewTimer(i.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
