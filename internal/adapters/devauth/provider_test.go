package devauth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovia/farmdesk/internal/ports"
)

func devConfig() Config {
	return Config{
		UserID:    "dev-user",
		Email:     "dev@example.com",
		FirstName: "Dev",
		LastName:  "User",
		Groups:    []string{"farm-owners"},
	}
}

func TestNewProvider_RequiresUserIDAndEmail(t *testing.T) {
	_, err := NewProvider(Config{Email: "dev@example.com"})
	require.Error(t, err)

	_, err = NewProvider(Config{UserID: "dev-user"})
	require.Error(t, err)
}

func TestBegin_ReturnsLocalCallbackWithState(t *testing.T) {
	provider, err := NewProvider(devConfig())
	require.NoError(t, err)

	authURL, state, nonce, err := provider.Begin(context.Background(), ports.BeginInput{})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(authURL, "/auth/callback?code=dev&state="), "got %q", authURL)
	assert.Contains(t, authURL, state)
	assert.Len(t, state, 24)
	assert.Len(t, nonce, 24)
}

func TestBegin_GeneratesUniqueStatePerCall(t *testing.T) {
	provider, err := NewProvider(devConfig())
	require.NoError(t, err)

	_, state1, nonce1, err := provider.Begin(context.Background(), ports.BeginInput{})
	require.NoError(t, err)
	_, state2, nonce2, err := provider.Begin(context.Background(), ports.BeginInput{})
	require.NoError(t, err)

	assert.NotEqual(t, state1, state2)
	assert.NotEqual(t, nonce1, nonce2)
}

func TestExchange_ReturnsConfiguredIdentity(t *testing.T) {
	provider, err := NewProvider(devConfig())
	require.NoError(t, err)

	identity, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "dev"})

	require.NoError(t, err)
	assert.Equal(t, "dev-user", identity.UserID)
	assert.Equal(t, "dev@example.com", identity.Email)
	assert.Equal(t, []string{"farm-owners"}, identity.Groups)
	assert.True(t, identity.ExpiresAt.After(time.Now()))
}

func TestExchange_RefreshesNearExpiry(t *testing.T) {
	cfg := devConfig()
	cfg.SessionDuration = 8 * time.Hour
	provider, err := NewProvider(cfg)
	require.NoError(t, err)

	// Force the stored identity near expiry; the next exchange extends it.
	provider.identity.ExpiresAt = time.Now().Add(time.Minute)

	identity, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "dev"})

	require.NoError(t, err)
	assert.True(t, identity.ExpiresAt.After(time.Now().Add(7*time.Hour)))
}

func TestNewProvider_CopiesGroups(t *testing.T) {
	groups := []string{"farm-owners"}
	provider, err := NewProvider(Config{UserID: "dev-user", Email: "dev@example.com", Groups: groups})
	require.NoError(t, err)

	groups[0] = "mutated"

	identity, err := provider.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"farm-owners"}, identity.Groups)
}
