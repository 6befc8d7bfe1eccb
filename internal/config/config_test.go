package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/assistant")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OAUTH_STATE_SECRET", "state-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "America/Chicago", cfg.Timezone)
	assert.Equal(t, OutlookModeDelegated, cfg.Microsoft.AuthMode)
	assert.Equal(t, "common", cfg.Microsoft.TenantID)
	assert.Equal(t, "http://localhost:8080/calendar/oauth-callback", cfg.Google.RedirectURI)
	assert.Equal(t, "http://localhost:8080/calendar/outlook-callback", cfg.Microsoft.RedirectURI)
}

func TestLoadMissingRequiredNamesVariable(t *testing.T) {
	setRequired(t)
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadCORSOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, http://localhost:3000 ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoadRejectsInvalidAuthMode(t *testing.T) {
	setRequired(t)
	t.Setenv("MICROSOFT_AUTH_MODE", "both")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MICROSOFT_AUTH_MODE")
}

func TestLoadAppModeRequiresMailbox(t *testing.T) {
	setRequired(t)
	t.Setenv("MICROSOFT_AUTH_MODE", "app")
	t.Setenv("MICROSOFT_CLIENT_ID", "client-id")
	t.Setenv("MICROSOFT_USER_EMAIL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MICROSOFT_USER_EMAIL")
}
