package storage

import (
	"encoding/json"
	"fmt"
	"os"
)

// SessionFile holds per-session client state that must not outlive a logout.
type SessionFile struct {
	CSRFToken string `json:"csrf_token"`
	CreatedAt string `json:"created_at"`
}

func LoadSession() (*SessionFile, error) {
	path, err := SessionPath()
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
		return nil, fmt.Errorf("session path is a directory: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var payload SessionFile
	if err := json.NewDecoder(file).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func SaveSession(session *SessionFile) error {
	if _, err := ensureConfigDir(); err != nil {
		return err
	}

	path, err := SessionPath()
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
	return encoder.Encode(session)
}

func ClearSession() error {
	path, err := SessionPath()
	if err != nil {
		return err
	}
	return removeFile(path)
}
