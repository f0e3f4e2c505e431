package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	creds, err := LoadCredentials()
	require.NoError(t, err)
	assert.Nil(t, creds)

	loggedIn := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, SaveCredentials(&Credentials{
		Provider:   "local",
		Email:      "desk@example.com",
		LoggedInAt: loggedIn.Format(time.RFC3339),
	}))

	creds, err = LoadCredentials()
	require.NoError(t, err)
	require.NotNil(t, creds)
	at, err := creds.LoginTime()
	require.NoError(t, err)
	assert.True(t, at.Equal(loggedIn))

	store := CredentialStore{}
	at, ok, err := store.LoginTime()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(loggedIn))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is fine")
	_, ok, err = store.LoginTime()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentialStoreMalformedTime(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, SaveCredentials(&Credentials{Email: "desk@example.com", LoggedInAt: "yesterday"}))

	_, ok, err := CredentialStore{}.LoginTime()
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestSessionFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	session, err := LoadSession()
	require.NoError(t, err)
	assert.Nil(t, session)

	require.NoError(t, SaveSession(&SessionFile{CSRFToken: "abc", CreatedAt: "2025-06-01T00:00:00Z"}))
	session, err = LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "abc", session.CSRFToken)

	require.NoError(t, ClearSession())
	session, err = LoadSession()
	require.NoError(t, err)
	assert.Nil(t, session)
}
