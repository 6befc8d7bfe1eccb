package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/Strongman1380/myassistant/internal/apperr"
	"github.com/Strongman1380/myassistant/internal/config"
)

const (
	googleAPIBase   = "https://www.googleapis.com"
	googleScope     = "https://www.googleapis.com/auth/calendar"
	providerTimeout = 15 * time.Second
)

// GoogleConnector creates events on the user's primary Google calendar.
// Datetimes go out naive with an explicit IANA timezone field.
type GoogleConnector struct {
	oauth    *oauth2.Config
	tokens   *tokenManager
	states   *StateSigner
	http     *http.Client
	apiBase  string
	timezone string
	logger   *zap.Logger
}

func NewGoogleConnector(cfg config.GoogleConfig, timezone string, states *StateSigner, logger *zap.Logger) *GoogleConnector {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{googleScope},
		Endpoint:     endpoints.Google,
	}
	store := &EnvFileStore{EnvBlob: cfg.Token, Path: cfg.TokenFile, Logger: logger}
	return &GoogleConnector{
		oauth:    oc,
		tokens:   newTokenManager("google", store, oc, logger),
		states:   states,
		http:     &http.Client{Timeout: providerTimeout},
		apiBase:  googleAPIBase,
		timezone: timezone,
		logger:   logger,
	}
}

func (g *GoogleConnector) Name() string { return "google" }

func (g *GoogleConnector) configured() error {
	if g.oauth.ClientID == "" || g.oauth.ClientSecret == "" {
		return apperr.New(apperr.KindValidation,
			"Google Calendar credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables.")
	}
	return nil
}

// AuthURL starts the consent flow. Offline access plus forced consent so
// Google hands back a refresh token every time.
func (g *GoogleConnector) AuthURL() (string, error) {
	if err := g.configured(); err != nil {
		return "", err
	}
	state, err := g.states.Sign(g.Name())
	if err != nil {
		return "", err
	}
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// Exchange trades the callback code for tokens and persists them.
func (g *GoogleConnector) Exchange(ctx context.Context, code string) error {
	if err := g.configured(); err != nil {
		return err
	}
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "Failed to exchange authorization code for token", err)
	}
	return g.tokens.persist(tok)
}

func (g *GoogleConnector) Authorized() bool {
	return g.configured() == nil && g.tokens.authorized()
}

type googleEventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type googleEvent struct {
	Summary     string           `json:"summary"`
	Description string           `json:"description,omitempty"`
	Start       googleEventTime  `json:"start"`
	End         googleEventTime  `json:"end"`
	Reminders   *googleReminders `json:"reminders,omitempty"`
}

type googleReminders struct {
	UseDefault bool             `json:"useDefault"`
	Overrides  []googleOverride `json:"overrides"`
}

type googleOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

// CreateEvent inserts the event into the primary calendar. An
// unauthorized connector returns a needsAuth result, never an error.
func (g *GoogleConnector) CreateEvent(ctx context.Context, ev Event) (*CreateResult, error) {
	tok, err := g.tokens.token(ctx)
	if err != nil {
		if apperr.Is(err, apperr.KindAuthRequired) {
			return g.needsAuth(err)
		}
		return nil, err
	}

	body := googleEvent{
		Summary:     ev.Title,
		Description: ev.Notes,
		Start:       googleEventTime{DateTime: ev.Start, TimeZone: g.timezone},
		End:         googleEventTime{DateTime: ev.End, TimeZone: g.timezone},
	}
	if ev.ReminderMinutes > 0 {
		body.Reminders = &googleReminders{
			Overrides: []googleOverride{{Method: "popup", Minutes: ev.ReminderMinutes}},
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := g.apiBase + "/calendar/v3/calendars/primary/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := g.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.KindTimeout, "Google Calendar call timed out", err)
		}
		return nil, apperr.Wrap(apperr.KindUpstream, "Google Calendar API unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg := readProviderError(resp)
		if isAuthFailure(resp.StatusCode, msg) {
			g.logger.Warn("google rejected token", zap.Int("status", resp.StatusCode), zap.String("message", msg))
			return g.needsAuth(nil)
		}
		return nil, apperr.Newf(apperr.KindUpstream, "Failed to create calendar event: %s", msg)
	}

	var created struct {
		ID       string `json:"id"`
		HTMLLink string `json:"htmlLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "Google Calendar response decode failed", err)
	}

	return &CreateResult{
		Success:  true,
		EventID:  created.ID,
		Link:     created.HTMLLink,
		Message:  "Event created successfully!",
		Provider: g.Name(),
	}, nil
}

func (g *GoogleConnector) needsAuth(cause error) (*CreateResult, error) {
	authURL, err := g.AuthURL()
	if err != nil {
		return nil, err
	}
	msg := "Authorization required. Please visit the auth URL to grant calendar access."
	if cause != nil {
		var e *apperr.Error
		if errors.As(cause, &e) {
			msg = e.Message
		}
	}
	return &CreateResult{
		NeedsAuth: true,
		AuthURL:   authURL,
		Message:   msg,
		Provider:  g.Name(),
	}, nil
}

// isAuthFailure is the shared provider heuristic: a 401, or any error
// message mentioning tokens, means the stored grant is no good.
func isAuthFailure(status int, message string) bool {
	return status == http.StatusUnauthorized || strings.Contains(strings.ToLower(message), "token")
}

func readProviderError(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	if len(raw) > 0 {
		return fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return resp.Status
}
