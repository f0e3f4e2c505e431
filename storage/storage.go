package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	configFile  = "config.yaml"
	sessionFile = "session.json"
	journalFile = "journal.db"
	credsFile   = "credentials.json"
)

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kigurumi"), nil
}

func ConfigPath() (string, error) {
	return configFilePath(configFile)
}

func SessionPath() (string, error) {
	return configFilePath(sessionFile)
}

func JournalPath() (string, error) {
	return configFilePath(journalFile)
}

func CredentialsPath() (string, error) {
	return configFilePath(credsFile)
}

func configFilePath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func ensureConfigDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}
