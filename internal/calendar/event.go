// Package calendar holds the provider connectors. Each connector owns
// its OAuth2 token lifecycle and exposes a single event-creation
// operation behind the Connector interface.
package calendar

import (
	"context"
	"time"

	"github.com/Strongman1380/myassistant/internal/apperr"
)

// Event is transient: built from a request, handed to a provider, never
// persisted locally. Start and End are timezone-naive local datetimes;
// the connector attaches the configured IANA zone so both providers see
// the same wall-clock time.
type Event struct {
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Notes           string `json:"notes,omitempty"`
	ReminderMinutes int    `json:"reminderMinutes,omitempty"`
}

// CreateResult is the outcome of CreateEvent. NeedsAuth is an expected,
// actionable state rather than an error: the caller redirects the user
// to AuthURL and retries after the OAuth callback.
type CreateResult struct {
	Success   bool   `json:"success"`
	EventID   string `json:"eventId,omitempty"`
	Link      string `json:"link,omitempty"`
	NeedsAuth bool   `json:"needsAuth,omitempty"`
	AuthURL   string `json:"authUrl,omitempty"`
	Message   string `json:"message,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// Connector is a provider-specific adapter: OAuth lifecycle plus event
// creation.
type Connector interface {
	Name() string
	CreateEvent(ctx context.Context, ev Event) (*CreateResult, error)
	AuthURL() (string, error)
	Exchange(ctx context.Context, code string) error
	Authorized() bool
}

// naive datetime layouts accepted from the LLM parser and from clients.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseLocal parses a timezone-naive local datetime in the given zone.
func ParseLocal(s string, tz *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, s, tz)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Validate checks required fields, datetime syntax and event ordering.
// End must be strictly after start; nothing upstream enforces that.
func (ev Event) Validate(tz *time.Location) error {
	if ev.Title == "" || ev.Start == "" || ev.End == "" {
		return apperr.Validation("Missing required fields: title, start, end")
	}
	start, err := ParseLocal(ev.Start, tz)
	if err != nil {
		return apperr.Validation("Invalid start datetime, expected naive ISO-8601 local time")
	}
	end, err := ParseLocal(ev.End, tz)
	if err != nil {
		return apperr.Validation("Invalid end datetime, expected naive ISO-8601 local time")
	}
	if !end.After(start) {
		return apperr.Validation("Event end must be after start")
	}
	if ev.ReminderMinutes < 0 {
		return apperr.Validation("reminderMinutes must not be negative")
	}
	return nil
}
