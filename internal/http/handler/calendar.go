package handler

import (
	"fmt"
	"html"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/apperr"
	"github.com/Strongman1380/myassistant/internal/calendar"
)

type CalendarHandler struct {
	Connectors map[string]calendar.Connector
	States     *calendar.StateSigner
	Timezone   *time.Location
	Logger     *zap.Logger
}

func (h *CalendarHandler) connector(name string) (calendar.Connector, error) {
	if name == "" {
		name = "google"
	}
	c, ok := h.Connectors[name]
	if !ok {
		return nil, apperr.Validation(`Invalid provider. Must be "google" or "outlook"`)
	}
	return c, nil
}

type createEventReq struct {
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Notes           string `json:"notes"`
	ReminderMinutes int    `json:"reminderMinutes"`
	Provider        string `json:"provider"`
}

// Create routes the event to the selected provider. NeedsAuth comes back
// as a 200 payload the client can act on.
func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEventReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	conn, err := h.connector(req.Provider)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	ev := calendar.Event{
		Title:           req.Title,
		Start:           req.Start,
		End:             req.End,
		Notes:           req.Notes,
		ReminderMinutes: req.ReminderMinutes,
	}
	if err := ev.Validate(h.Timezone); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	res, err := conn.CreateEvent(r.Context(), ev)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CalendarHandler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connector(r.URL.Query().Get("provider"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	if conn.Authorized() {
		writeJSON(w, http.StatusOK, map[string]any{"authorized": true})
		return
	}

	authURL, err := conn.AuthURL()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"authorized": false,
			"error":      err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authorized": false,
		"authUrl":    authURL,
		"message":    "Please visit the auth URL to grant calendar access",
	})
}

// Reauthorize redirects straight into the consent flow, even when a
// token already exists.
func (h *CalendarHandler) Reauthorize(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connector(r.URL.Query().Get("provider"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	authURL, err := conn.AuthURL()
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback is the terminal redirect target for the Google consent
// flow.
func (h *CalendarHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	h.handleCallback(w, r, "google")
}

// OutlookCallback is the terminal redirect target for the Microsoft
// consent flow.
func (h *CalendarHandler) OutlookCallback(w http.ResponseWriter, r *http.Request) {
	h.handleCallback(w, r, "outlook")
}

func (h *CalendarHandler) handleCallback(w http.ResponseWriter, r *http.Request, provider string) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.callbackPage(w, false, "Missing authorization code. Please try again.")
		return
	}

	// The state must be one we signed for this provider, otherwise the
	// code is not ours to exchange.
	stateProvider, err := h.States.Verify(r.URL.Query().Get("state"))
	if err != nil || stateProvider != provider {
		h.callbackPage(w, false, "Invalid state parameter. Please restart the authorization flow.")
		return
	}

	conn, err := h.connector(provider)
	if err != nil {
		h.callbackPage(w, false, err.Error())
		return
	}
	if err := conn.Exchange(r.Context(), code); err != nil {
		h.Logger.Error("oauth code exchange failed", zap.String("provider", provider), zap.Error(err))
		h.callbackPage(w, false, "Failed to exchange authorization code for token.")
		return
	}
	h.callbackPage(w, true, "Your calendar is now connected. You can close this window and return to the app.")
}

func (h *CalendarHandler) callbackPage(w http.ResponseWriter, ok bool, message string) {
	heading, color := "Authorization Successful", "#28a745"
	if !ok {
		heading, color = "Authorization Failed", "#dc3545"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html>
  <body style="font-family: Arial; padding: 40px; text-align: center;">
    <h1 style="color: %s;">%s</h1>
    <p>%s</p>
    <a href="/" style="color: #007bff;">Return to App</a>
  </body>
</html>`, color, heading, html.EscapeString(message))
}
