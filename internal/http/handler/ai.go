package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/apperr"
	"github.com/Strongman1380/myassistant/internal/llm"
)

// Gateway is the slice of the LLM client the AI endpoints use.
type Gateway interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
	CompleteJSON(ctx context.Context, systemPrompt, userMessage string, out any) error
}

type AIHandler struct {
	LLM      Gateway
	Timezone *time.Location
	Logger   *zap.Logger

	// now is stubbed in tests; the calendar prompt embeds today's date.
	now func() time.Time
}

func NewAIHandler(gw Gateway, tz *time.Location, logger *zap.Logger) *AIHandler {
	return &AIHandler{LLM: gw, Timezone: tz, Logger: logger, now: time.Now}
}

type textReq struct {
	Message string `json:"message"`
}

// Text rewrites a message in a casual but professional tone.
func (h *AIHandler) Text(w http.ResponseWriter, r *http.Request) {
	var req textReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, h.Logger, apperr.Validation("Missing message"))
		return
	}

	rewritten, err := h.LLM.Complete(r.Context(), llm.TextRewritePrompt, req.Message)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"original":  req.Message,
		"rewritten": strings.TrimSpace(rewritten),
	})
}

type promptReq struct {
	Prompt string `json:"prompt"`
}

type emailDraft struct {
	Type    string `json:"type"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Email drafts a complete email from a rough description.
func (h *AIHandler) Email(w http.ResponseWriter, r *http.Request) {
	var req promptReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, h.Logger, apperr.Validation("Missing prompt"))
		return
	}

	var draft emailDraft
	if err := h.LLM.CompleteJSON(r.Context(), llm.EmailDraftPrompt, req.Prompt, &draft); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

type parsedEvent struct {
	Type                  string  `json:"type,omitempty"`
	Title                 string  `json:"title,omitempty"`
	Notes                 *string `json:"notes"`
	Start                 string  `json:"start,omitempty"`
	End                   string  `json:"end,omitempty"`
	ReminderMinutesBefore *int    `json:"reminderMinutesBefore"`
	Error                 string  `json:"error,omitempty"`
}

// Calendar parses a natural-language event description into structured
// fields. Unparseable prompts come back as a 400 with the model's error.
func (h *AIHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	var req promptReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, h.Logger, apperr.Validation("Missing prompt"))
		return
	}

	var ev parsedEvent
	if err := h.LLM.CompleteJSON(r.Context(), llm.CalendarParsePrompt(h.now(), h.Timezone), req.Prompt, &ev); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if ev.Error != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ev.Error})
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
