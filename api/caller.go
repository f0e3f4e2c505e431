package api

//go:generate mockgen -source ./caller.go -destination=./mocks/caller.go -package=mocks

import (
	"context"
	"encoding/json"
	"time"
)

// Caller issues one backend action and waits for its reply.
type Caller interface {
	Invoke(ctx context.Context, action string, payload any, timeout time.Duration) (json.RawMessage, error)
}
