package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// OutlookAuthMode selects which Microsoft OAuth2 grant the deployment
// uses. The two flows are mutually exclusive; mixing them against the
// same mailbox is unsupported.
type OutlookAuthMode string

const (
	// OutlookModeDelegated uses the authorization-code grant with refresh.
	OutlookModeDelegated OutlookAuthMode = "delegated"
	// OutlookModeApplication uses the client-credential grant against a
	// configured mailbox owner, with no user interaction.
	OutlookModeApplication OutlookAuthMode = "app"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Token        string // serialized token blob, production
	TokenFile    string // local-development fallback
}

type MicrosoftConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	RedirectURI  string
	Token        string
	TokenFile    string
	UserEmail    string // mailbox owner, required for the app flow
	AuthMode     OutlookAuthMode
}

type Config struct {
	HTTPAddr             string
	BaseURL              string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	OpenAIAPIKey     string
	OAuthStateSecret string
	Timezone         string

	Google    GoogleConfig
	Microsoft MicrosoftConfig
}

// Load reads .env (when present) and the process environment. Missing
// required variables fail fast with an error naming the variable.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		BaseURL:  getenv("BASE_URL", "http://localhost:8080"),
		Timezone: getenv("TIMEZONE", "America/Chicago"),

		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
	}

	var err error
	if cfg.DatabaseURL, err = requireEnv("DATABASE_URL"); err != nil {
		return Config{}, err
	}
	if cfg.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
		return Config{}, err
	}
	if cfg.OAuthStateSecret, err = requireEnv("OAUTH_STATE_SECRET"); err != nil {
		return Config{}, err
	}

	for _, o := range strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	cfg.Google = GoogleConfig{
		ClientID:     getenv("GOOGLE_CLIENT_ID", ""),
		ClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
		RedirectURI:  getenv("GOOGLE_REDIRECT_URI", cfg.BaseURL+"/calendar/oauth-callback"),
		Token:        os.Getenv("GOOGLE_TOKEN"),
		TokenFile:    getenv("GOOGLE_TOKEN_FILE", "token.json"),
	}

	mode := OutlookAuthMode(getenv("MICROSOFT_AUTH_MODE", string(OutlookModeDelegated)))
	if mode != OutlookModeDelegated && mode != OutlookModeApplication {
		return Config{}, fmt.Errorf("invalid MICROSOFT_AUTH_MODE %q (want %q or %q)",
			mode, OutlookModeDelegated, OutlookModeApplication)
	}
	cfg.Microsoft = MicrosoftConfig{
		ClientID:     getenv("MICROSOFT_CLIENT_ID", ""),
		ClientSecret: getenv("MICROSOFT_CLIENT_SECRET", ""),
		TenantID:     getenv("MICROSOFT_TENANT_ID", "common"),
		RedirectURI:  getenv("MICROSOFT_REDIRECT_URI", cfg.BaseURL+"/calendar/outlook-callback"),
		Token:        os.Getenv("MICROSOFT_TOKEN"),
		TokenFile:    getenv("MICROSOFT_TOKEN_FILE", "outlook-token.json"),
		UserEmail:    getenv("MICROSOFT_USER_EMAIL", ""),
		AuthMode:     mode,
	}
	if cfg.Microsoft.AuthMode == OutlookModeApplication && cfg.Microsoft.ClientID != "" && cfg.Microsoft.UserEmail == "" {
		return Config{}, fmt.Errorf("missing env: MICROSOFT_USER_EMAIL (required when MICROSOFT_AUTH_MODE=app)")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func requireEnv(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("missing env: %s", key)
	}
	return v, nil
}
