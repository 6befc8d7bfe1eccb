package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/calendar"
)

// fakeConnector scripts provider behavior and records calls.
type fakeConnector struct {
	name         string
	createResult *calendar.CreateResult
	createErr    error
	authURL      string
	authURLErr   error
	exchangeErr  error
	authorized   bool

	createdEvent  *calendar.Event
	exchangedCode string
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) CreateEvent(_ context.Context, ev calendar.Event) (*calendar.CreateResult, error) {
	f.createdEvent = &ev
	return f.createResult, f.createErr
}

func (f *fakeConnector) AuthURL() (string, error) { return f.authURL, f.authURLErr }

func (f *fakeConnector) Exchange(_ context.Context, code string) error {
	f.exchangedCode = code
	return f.exchangeErr
}

func (f *fakeConnector) Authorized() bool { return f.authorized }

func testCalendarHandler(google, outlook *fakeConnector) (*CalendarHandler, *calendar.StateSigner) {
	states := calendar.NewStateSigner("test-secret")
	h := &CalendarHandler{
		Connectors: map[string]calendar.Connector{"google": google, "outlook": outlook},
		States:     states,
		Timezone:   time.UTC,
		Logger:     zap.NewNop(),
	}
	return h, states
}

func TestCreateDefaultsToGoogle(t *testing.T) {
	google := &fakeConnector{
		name:         "google",
		createResult: &calendar.CreateResult{Success: true, EventID: "ev-1", Provider: "google"},
	}
	h, _ := testCalendarHandler(google, &fakeConnector{name: "outlook"})

	rec := postJSON(t, h.Create, `{"title":"Standup","start":"2025-03-14T09:00:00","end":"2025-03-14T09:15:00"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "ev-1", out["eventId"])
	require.NotNil(t, google.createdEvent)
	assert.Equal(t, "Standup", google.createdEvent.Title)
}

func TestCreateRejectsUnknownProvider(t *testing.T) {
	h, _ := testCalendarHandler(&fakeConnector{name: "google"}, &fakeConnector{name: "outlook"})

	rec := postJSON(t, h.Create, `{"title":"x","start":"2025-03-14T09:00:00","end":"2025-03-14T10:00:00","provider":"caldav"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "Invalid provider")
}

func TestCreateRejectsEndBeforeStart(t *testing.T) {
	google := &fakeConnector{name: "google"}
	h, _ := testCalendarHandler(google, &fakeConnector{name: "outlook"})

	rec := postJSON(t, h.Create, `{"title":"x","start":"2025-03-14T10:00:00","end":"2025-03-14T09:00:00"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, google.createdEvent)
}

func TestCreatePassesThroughNeedsAuth(t *testing.T) {
	google := &fakeConnector{
		name: "google",
		createResult: &calendar.CreateResult{
			NeedsAuth: true,
			AuthURL:   "https://accounts.example/consent",
			Message:   "Authorization required",
			Provider:  "google",
		},
	}
	h, _ := testCalendarHandler(google, &fakeConnector{name: "outlook"})

	rec := postJSON(t, h.Create, `{"title":"Standup","start":"2025-03-14T09:00:00","end":"2025-03-14T09:15:00"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, true, out["needsAuth"])
	assert.Equal(t, "https://accounts.example/consent", out["authUrl"])
}

func TestAuthStatusVariants(t *testing.T) {
	t.Run("authorized", func(t *testing.T) {
		h, _ := testCalendarHandler(&fakeConnector{name: "google", authorized: true}, &fakeConnector{name: "outlook"})
		rec := httptest.NewRecorder()
		h.AuthStatus(rec, httptest.NewRequest(http.MethodGet, "/calendar/auth-status", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["authorized"])
	})

	t.Run("needs consent", func(t *testing.T) {
		h, _ := testCalendarHandler(&fakeConnector{name: "google", authURL: "https://accounts.example/consent"}, &fakeConnector{name: "outlook"})
		rec := httptest.NewRecorder()
		h.AuthStatus(rec, httptest.NewRequest(http.MethodGet, "/calendar/auth-status?provider=google", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		out := decodeBody(t, rec)
		assert.Equal(t, false, out["authorized"])
		assert.Equal(t, "https://accounts.example/consent", out["authUrl"])
	})

	t.Run("not configured", func(t *testing.T) {
		h, _ := testCalendarHandler(&fakeConnector{name: "google"}, &fakeConnector{
			name:       "outlook",
			authURLErr: errors.New("Microsoft OAuth is not configured"),
		})
		rec := httptest.NewRecorder()
		h.AuthStatus(rec, httptest.NewRequest(http.MethodGet, "/calendar/auth-status?provider=outlook", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		out := decodeBody(t, rec)
		assert.Equal(t, false, out["authorized"])
		assert.Contains(t, out["error"], "not configured")
	})
}

func TestReauthorizeRedirects(t *testing.T) {
	h, _ := testCalendarHandler(&fakeConnector{name: "google", authURL: "https://accounts.example/consent"}, &fakeConnector{name: "outlook"})

	rec := httptest.NewRecorder()
	h.Reauthorize(rec, httptest.NewRequest(http.MethodGet, "/calendar/reauthorize", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://accounts.example/consent", rec.Header().Get("Location"))
}

func TestCallbackExchangesCode(t *testing.T) {
	google := &fakeConnector{name: "google"}
	h, states := testCalendarHandler(google, &fakeConnector{name: "outlook"})

	state, err := states.Sign("google")
	require.NoError(t, err)

	target := "/calendar/oauth-callback?code=auth-code-123&state=" + url.QueryEscape(state)
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "auth-code-123", google.exchangedCode)
	assert.Contains(t, rec.Body.String(), "Authorization Successful")
}

func TestCallbackRejectsMissingCode(t *testing.T) {
	google := &fakeConnector{name: "google"}
	h, _ := testCalendarHandler(google, &fakeConnector{name: "outlook"})

	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, "/calendar/oauth-callback", nil))

	assert.Contains(t, rec.Body.String(), "Missing authorization code")
	assert.Empty(t, google.exchangedCode)
}

func TestCallbackRejectsForeignState(t *testing.T) {
	google := &fakeConnector{name: "google"}
	h, states := testCalendarHandler(google, &fakeConnector{name: "outlook"})

	// A state signed for outlook must not authorize the google callback.
	state, err := states.Sign("outlook")
	require.NoError(t, err)

	target := "/calendar/oauth-callback?code=auth-code-123&state=" + url.QueryEscape(state)
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Contains(t, rec.Body.String(), "Invalid state parameter")
	assert.Empty(t, google.exchangedCode)
}

func TestCallbackReportsExchangeFailure(t *testing.T) {
	google := &fakeConnector{name: "google", exchangeErr: errors.New("exchange blew up")}
	h, states := testCalendarHandler(google, &fakeConnector{name: "outlook"})

	state, err := states.Sign("google")
	require.NoError(t, err)

	target := "/calendar/oauth-callback?code=bad-code&state=" + url.QueryEscape(state)
	rec := httptest.NewRecorder()
	h.GoogleCallback(rec, httptest.NewRequest(http.MethodGet, target, nil))

	body := rec.Body.String()
	assert.Contains(t, body, "Authorization Failed")
	// The provider's raw error never reaches the browser.
	assert.False(t, strings.Contains(body, "exchange blew up"))
}
