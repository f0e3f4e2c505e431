package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultMaxFailures = 5
	defaultCooldown    = time.Minute
)

// Local checks the secret against a bcrypt hash from configuration. After
// MaxFailures consecutive misses it refuses attempts for Cooldown.
type Local struct {
	Hash        []byte
	Email       string
	MaxFailures int
	Cooldown    time.Duration

	now         func() time.Time
	mu          sync.Mutex
	failures    int
	lockedUntil time.Time
}

func NewLocal(hash, email string) *Local {
	return &Local{
		Hash:        []byte(hash),
		Email:       email,
		MaxFailures: defaultMaxFailures,
		Cooldown:    defaultCooldown,
		now:         time.Now,
	}
}

func (p *Local) Name() string {
	return "local"
}

func (p *Local) SignIn(ctx context.Context, secret string) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Before(p.lockedUntil) {
		return Identity{}, &Error{Kind: KindRateLimited, Code: "LOCKED"}
	}

	err := bcrypt.CompareHashAndPassword(p.Hash, []byte(secret))
	switch {
	case err == nil:
		p.failures = 0
		return Identity{Email: p.Email, IssuedAt: now.UTC()}, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		p.failures++
		if p.failures >= p.MaxFailures {
			p.failures = 0
			p.lockedUntil = now.Add(p.Cooldown)
		}
		return Identity{}, &Error{Kind: KindInvalidCredential, Code: "MISMATCH"}
	default:
		return Identity{}, &Error{Kind: KindUnknown, Err: err}
	}
}

func (p *Local) SignOut(ctx context.Context) error {
	return nil
}
