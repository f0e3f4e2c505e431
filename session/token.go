package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"kigurumi-cli/storage"
)

const tokenBytes = 32

// TokenStore hands out the anti-forgery token of the current session. The
// token is generated once and persisted until Clear.
type TokenStore struct {
	mu     sync.Mutex
	token  string
	random io.Reader
	now    func() time.Time
}

func NewTokenStore() *TokenStore {
	return &TokenStore{random: rand.Reader, now: time.Now}
}

func (s *TokenStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if validToken(s.token) {
		return s.token, nil
	}
	if saved, err := storage.LoadSession(); err == nil && saved != nil && validToken(saved.CSRFToken) {
		s.token = saved.CSRFToken
		return s.token, nil
	}

	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("generate anti-forgery token: %w", err)
	}
	token := hex.EncodeToString(buf)
	if err := storage.SaveSession(&storage.SessionFile{
		CSRFToken: token,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	s.token = token
	return token, nil
}

// Clear forgets the token in memory and on disk.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return storage.ClearSession()
}

func validToken(token string) bool {
	if len(token) != 2*tokenBytes {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
