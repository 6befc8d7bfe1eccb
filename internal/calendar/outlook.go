package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/sync/singleflight"

	"github.com/Strongman1380/myassistant/internal/apperr"
	"github.com/Strongman1380/myassistant/internal/config"
)

const (
	graphAPIBase   = "https://graph.microsoft.com/v1.0"
	graphScope     = "https://graph.microsoft.com/.default"
	appTokenSafety = 5 * time.Minute
)

var delegatedScopes = []string{
	"https://graph.microsoft.com/Calendars.ReadWrite",
	"offline_access",
	"https://graph.microsoft.com/User.Read",
}

// OutlookConnector creates events through Microsoft Graph. Exactly one
// of two independent flows is active per deployment: the delegated
// authorization-code grant (per-user consent, refresh token) or the
// application client-credential grant (no user present, writes into a
// configured mailbox). The mode is fixed at construction; mixing them is
// unsupported.
type OutlookConnector struct {
	cfg      config.MicrosoftConfig
	oauth    *oauth2.Config
	appCreds *clientcredentials.Config
	tokens   *tokenManager
	states   *StateSigner
	http     *http.Client
	apiBase  string
	timezone string
	logger   *zap.Logger

	// app-flow token cache; renewed a little before actual expiry.
	// Guarded like the delegated flow's tokenManager: mutex around the
	// cached token, singleflight around the fetch.
	appMu    sync.Mutex
	appToken *oauth2.Token
	appGroup singleflight.Group
}

func NewOutlookConnector(cfg config.MicrosoftConfig, timezone string, states *StateSigner, logger *zap.Logger) *OutlookConnector {
	endpoint := endpoints.AzureAD(cfg.TenantID)
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       delegatedScopes,
		Endpoint:     endpoint,
	}
	store := &EnvFileStore{EnvBlob: cfg.Token, Path: cfg.TokenFile, Logger: logger}
	return &OutlookConnector{
		cfg:   cfg,
		oauth: oc,
		appCreds: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     endpoint.TokenURL,
			Scopes:       []string{graphScope},
		},
		tokens:   newTokenManager("outlook", store, oc, logger),
		states:   states,
		http:     &http.Client{Timeout: providerTimeout},
		apiBase:  graphAPIBase,
		timezone: timezone,
		logger:   logger,
	}
}

func (o *OutlookConnector) Name() string { return "outlook" }

func (o *OutlookConnector) configured() error {
	if o.cfg.ClientID == "" || o.cfg.ClientSecret == "" {
		return apperr.New(apperr.KindValidation,
			"Microsoft Outlook credentials not configured. Set MICROSOFT_CLIENT_ID and MICROSOFT_CLIENT_SECRET environment variables.")
	}
	return nil
}

// AuthURL is only meaningful in delegated mode; the application flow has
// no user to send anywhere.
func (o *OutlookConnector) AuthURL() (string, error) {
	if err := o.configured(); err != nil {
		return "", err
	}
	if o.cfg.AuthMode == config.OutlookModeApplication {
		return "", apperr.New(apperr.KindValidation, "Application-credential flow has no authorization URL")
	}
	state, err := o.states.Sign(o.Name())
	if err != nil {
		return "", err
	}
	return o.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

func (o *OutlookConnector) Exchange(ctx context.Context, code string) error {
	if err := o.configured(); err != nil {
		return err
	}
	if o.cfg.AuthMode == config.OutlookModeApplication {
		return apperr.New(apperr.KindValidation, "Application-credential flow does not accept authorization codes")
	}
	tok, err := o.oauth.Exchange(ctx, code)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "Failed to exchange authorization code for token", err)
	}
	return o.tokens.persist(tok)
}

func (o *OutlookConnector) Authorized() bool {
	if o.configured() != nil {
		return false
	}
	if o.cfg.AuthMode == config.OutlookModeApplication {
		// Credentials are the authorization; no user grant involved.
		return true
	}
	return o.tokens.authorized()
}

// accessToken resolves a token for the active flow.
func (o *OutlookConnector) accessToken(ctx context.Context) (*oauth2.Token, error) {
	if o.cfg.AuthMode == config.OutlookModeApplication {
		return o.appAccessToken(ctx)
	}
	return o.tokens.token(ctx)
}

func (o *OutlookConnector) cachedAppToken() *oauth2.Token {
	o.appMu.Lock()
	defer o.appMu.Unlock()
	if o.appToken != nil && time.Until(o.appToken.Expiry) > appTokenSafety {
		return o.appToken
	}
	return nil
}

// appAccessToken serves the cached client-credential token; concurrent
// cache misses share a single fetch.
func (o *OutlookConnector) appAccessToken(ctx context.Context) (*oauth2.Token, error) {
	if tok := o.cachedAppToken(); tok != nil {
		return tok, nil
	}

	v, err, _ := o.appGroup.Do("token", func() (any, error) {
		if tok := o.cachedAppToken(); tok != nil {
			return tok, nil
		}
		// Detached from the requesting context: a cancelled leader must
		// not fail the callers piggybacking on this fetch.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), providerTimeout)
		defer cancel()
		tok, err := o.appCreds.Token(fetchCtx)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstream, "Failed to authenticate with Microsoft Graph API", err)
		}
		o.appMu.Lock()
		o.appToken = tok
		o.appMu.Unlock()
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphEvent struct {
	Subject                    string        `json:"subject"`
	Body                       *graphBody    `json:"body,omitempty"`
	Start                      graphDateTime `json:"start"`
	End                        graphDateTime `json:"end"`
	IsReminderOn               bool          `json:"isReminderOn,omitempty"`
	ReminderMinutesBeforeStart int           `json:"reminderMinutesBeforeStart,omitempty"`
}

// CreateEvent posts the event into the user's calendar (/me in delegated
// mode, the configured mailbox in application mode). Datetimes stay
// naive with the configured IANA zone; Graph handles the conversion, so
// both connectors produce the same wall-clock time.
func (o *OutlookConnector) CreateEvent(ctx context.Context, ev Event) (*CreateResult, error) {
	if err := o.configured(); err != nil {
		return nil, err
	}
	if o.cfg.AuthMode == config.OutlookModeApplication && o.cfg.UserEmail == "" {
		return nil, apperr.New(apperr.KindValidation,
			"MICROSOFT_USER_EMAIL is required to create calendar events with application credentials")
	}

	tok, err := o.accessToken(ctx)
	if err != nil {
		if apperr.Is(err, apperr.KindAuthRequired) {
			return o.needsAuth(err)
		}
		return nil, err
	}

	body := graphEvent{
		Subject: ev.Title,
		Start:   graphDateTime{DateTime: ev.Start, TimeZone: o.timezone},
		End:     graphDateTime{DateTime: ev.End, TimeZone: o.timezone},
	}
	if ev.Notes != "" {
		body.Body = &graphBody{ContentType: "text", Content: ev.Notes}
	}
	if ev.ReminderMinutes > 0 {
		body.IsReminderOn = true
		body.ReminderMinutesBeforeStart = ev.ReminderMinutes
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := o.apiBase + "/me/calendar/events"
	if o.cfg.AuthMode == config.OutlookModeApplication {
		url = fmt.Sprintf("%s/users/%s/events", o.apiBase, o.cfg.UserEmail)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := o.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.KindTimeout, "Microsoft Graph call timed out", err)
		}
		return nil, apperr.Wrap(apperr.KindUpstream, "Microsoft Graph API unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg := readProviderError(resp)
		if isAuthFailure(resp.StatusCode, msg) {
			if o.cfg.AuthMode == config.OutlookModeApplication {
				// No user flow to fall back on; bad credentials are fatal.
				return nil, apperr.Newf(apperr.KindUpstream,
					"Outlook Calendar authentication failed. Please check your Microsoft credentials: %s", msg)
			}
			o.logger.Warn("graph rejected token", zap.Int("status", resp.StatusCode), zap.String("message", msg))
			return o.needsAuth(nil)
		}
		return nil, apperr.Newf(apperr.KindUpstream, "Failed to create Outlook calendar event: %s", msg)
	}

	var created struct {
		ID      string `json:"id"`
		WebLink string `json:"webLink"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "Microsoft Graph response decode failed", err)
	}

	return &CreateResult{
		Success:  true,
		EventID:  created.ID,
		Link:     created.WebLink,
		Message:  "Event created successfully in Outlook Calendar!",
		Provider: o.Name(),
	}, nil
}

func (o *OutlookConnector) needsAuth(cause error) (*CreateResult, error) {
	authURL, err := o.AuthURL()
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
		Provider:  o.Name(),
	}, nil
}
