package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/Strongman1380/myassistant/internal/apperr"
)

// ErrNoToken means no token is reachable from any configured source.
var ErrNoToken = errors.New("no oauth token found")

// TokenStore loads and persists a serialized OAuth token. Sources are an
// environment blob (production, read-only) with a local-file fallback
// (development, writable). Refreshed tokens are written back only to the
// source the read came from, when writable.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
}

// EnvFileStore implements the env-var-then-file fallback shared by both
// providers.
type EnvFileStore struct {
	EnvBlob string // serialized token from the environment, wins when set
	Path    string // local file fallback
	Logger  *zap.Logger
}

func (s *EnvFileStore) Load() (*oauth2.Token, error) {
	if s.EnvBlob != "" {
		var tok oauth2.Token
		if err := json.Unmarshal([]byte(s.EnvBlob), &tok); err != nil {
			return nil, fmt.Errorf("invalid token blob in environment: %w", err)
		}
		return &tok, nil
	}

	if s.Path == "" {
		return nil, ErrNoToken
	}
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", s.Path, err)
	}
	return &tok, nil
}

func (s *EnvFileStore) Save(tok *oauth2.Token) error {
	if s.EnvBlob != "" {
		// The environment is not writable from here. The operator swaps
		// the variable by hand; log the fresh token's expiry so they know.
		s.Logger.Warn("token refreshed but source is an env var; update it manually",
			zap.Time("expiry", tok.Expiry))
		return nil
	}
	if s.Path == "" {
		return nil
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, raw, 0o600)
}

// tokenManager caches the provider token in memory and guards refresh
// with a per-provider singleflight so simultaneous requests do not
// double-refresh.
type tokenManager struct {
	provider string
	store    TokenStore
	oauth    *oauth2.Config
	logger   *zap.Logger

	mu     sync.Mutex
	cached *oauth2.Token
	group  singleflight.Group
}

func newTokenManager(provider string, store TokenStore, oauth *oauth2.Config, logger *zap.Logger) *tokenManager {
	return &tokenManager{provider: provider, store: store, oauth: oauth, logger: logger}
}

// token returns a valid access token, refreshing through the provider
// when the cached one is expired and a refresh token is present.
func (m *tokenManager) token(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	if m.cached.Valid() {
		tok := m.cached
		m.mu.Unlock()
		return tok, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do(m.provider, func() (any, error) {
		return m.acquire(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

func (m *tokenManager) acquire(ctx context.Context) (*oauth2.Token, error) {
	tok, err := m.store.Load()
	if errors.Is(err, ErrNoToken) {
		return nil, apperr.New(apperr.KindAuthRequired, "Authorization required. Please visit the auth URL to grant calendar access.")
	}
	if err != nil {
		return nil, err
	}
	if tok.Valid() {
		m.setCached(tok)
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, apperr.New(apperr.KindAuthRequired, "Token expired and no refresh token available")
	}

	// TokenSource refreshes in place using the stored refresh token. A
	// failed refresh regresses to needsAuth from the caller's view; the
	// stored refresh token is deliberately left alone. The refresh runs
	// on a detached context: callers piggybacking on the singleflight
	// must not inherit the leader's cancellation.
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), providerTimeout)
	defer cancel()
	fresh, err := m.oauth.TokenSource(refreshCtx, tok).Token()
	if err != nil {
		m.logger.Warn("token refresh failed", zap.String("provider", m.provider), zap.Error(err))
		return nil, apperr.Wrap(apperr.KindAuthRequired, "Failed to refresh token. Please re-authorize.", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	if err := m.store.Save(fresh); err != nil {
		m.logger.Warn("unable to persist refreshed token", zap.String("provider", m.provider), zap.Error(err))
	}
	m.setCached(fresh)
	return fresh, nil
}

// persist stores a freshly exchanged token and primes the cache.
func (m *tokenManager) persist(tok *oauth2.Token) error {
	if err := m.store.Save(tok); err != nil {
		return err
	}
	m.setCached(tok)
	return nil
}

func (m *tokenManager) setCached(tok *oauth2.Token) {
	m.mu.Lock()
	m.cached = tok
	m.mu.Unlock()
}

// authorized reports whether a token is reachable at all. Expired tokens
// with a refresh token still count; the refresh happens lazily.
func (m *tokenManager) authorized() bool {
	m.mu.Lock()
	cached := m.cached
	m.mu.Unlock()
	if cached != nil && (cached.Valid() || cached.RefreshToken != "") {
		return true
	}
	tok, err := m.store.Load()
	return err == nil && (tok.Valid() || tok.RefreshToken != "")
}
