package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUserDefaults(t *testing.T) {
	user := NewUser("alice", "Alice@Example.com", "", "hash", "Alice", "Smith")

	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, StatusOffline, user.Status)
	assert.False(t, user.IsOnline)
	assert.Equal(t, DefaultPreferences(), user.Preferences)
	assert.False(t, user.ID.IsZero())
}

func TestDisplayName(t *testing.T) {
	user := NewUser("alice", "a@example.com", "", "hash", "Alice", "Smith")
	assert.Equal(t, "Alice Smith", user.DisplayName())

	user.FirstName = ""
	user.LastName = ""
	assert.Equal(t, "alice", user.DisplayName())
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusOnline, StatusAway, StatusBusy, StatusOffline} {
		assert.True(t, ValidStatus(s))
	}
	assert.False(t, ValidStatus("invisible"))
	assert.False(t, ValidStatus(""))
}

func TestPublicOmitsCredentials(t *testing.T) {
	user := NewUser("alice", "a@example.com", "+15550001", "secret-hash", "Alice", "Smith")
	public := user.Public()

	assert.Equal(t, user.ID, public.ID)
	assert.Equal(t, "alice", public.Username)
	assert.Equal(t, user.Status, public.Status)
}
