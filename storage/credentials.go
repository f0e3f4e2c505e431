package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Credentials is the durable login record. LoggedInAt drives the rolling
// session expiry.
type Credentials struct {
	Provider     string `json:"provider"`
	Email        string `json:"email"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	LoggedInAt   string `json:"logged_in_at"`
}

func LoadCredentials() (*Credentials, error) {
	path, err := CredentialsPath()
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("credentials path is a directory: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var creds Credentials
	if err := json.NewDecoder(file).Decode(&creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func SaveCredentials(creds *Credentials) error {
	if _, err := ensureConfigDir(); err != nil {
		return err
	}
	path, err := CredentialsPath()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(creds)
}

func ClearCredentials() error {
	path, err := CredentialsPath()
	if err != nil {
		return err
	}
	return removeFile(path)
}

// LoginTime parses LoggedInAt. A missing or malformed value is an error so
// callers treat the session as expired.
func (c *Credentials) LoginTime() (time.Time, error) {
	if c.LoggedInAt == "" {
		return time.Time{}, fmt.Errorf("empty login time")
	}
	return time.Parse(time.RFC3339, c.LoggedInAt)
}

// CredentialStore adapts the credentials file to the session gate.
type CredentialStore struct{}

func (CredentialStore) LoginTime() (time.Time, bool, error) {
	creds, err := LoadCredentials()
	if err != nil {
		return time.Time{}, false, err
	}
	if creds == nil {
		return time.Time{}, false, nil
	}
	at, err := creds.LoginTime()
	if err != nil {
		return time.Time{}, true, err
	}
	return at, true, nil
}

func (CredentialStore) Clear() error {
	return ClearCredentials()
}
