package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidCredential
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCredential:
		return "invalid_credential"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Error is a classified sign-in failure.
type Error struct {
	Kind ErrorKind
	Code string
	Err  error
}

func (e *Error) Error() string {
	msg := "sign-in failed (" + e.Kind.String()
	if e.Code != "" {
		msg += ": " + e.Code
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, KindUnknown for foreign errors.
func KindOf(err error) ErrorKind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnknown
}

// Message renders err for the person at the desk.
func Message(err error) string {
	switch KindOf(err) {
	case KindInvalidCredential:
		return "Incorrect password."
	case KindRateLimited:
		return "Too many login attempts. Wait a moment and try again."
	default:
		return fmt.Sprintf("Login failed: %v", err)
	}
}

// Identity is what a successful sign-in yields.
type Identity struct {
	Email        string
	IDToken      string
	RefreshToken string
	// IssuedAt is the provider's clock at sign-in when it reports one.
	IssuedAt time.Time
}

// Provider checks a secret against the identity backend.
type Provider interface {
	Name() string
	SignIn(ctx context.Context, secret string) (Identity, error)
	SignOut(ctx context.Context) error
}
