// Package llm wraps the OpenAI chat-completion and transcription APIs.
// Two completion modes exist: free text and forced-JSON. Failures map to
// the apperr taxonomy; there is no retry, errors propagate to the caller.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Strongman1380/myassistant/internal/apperr"
)

const (
	defaultBaseURL = "https://api.openai.com"
	chatModel      = "gpt-4o-mini"
	whisperModel   = "whisper-1"

	chatTimeout       = 30 * time.Second
	transcribeTimeout = 60 * time.Second
)

type Config struct {
	APIKey  string
	BaseURL string        // override for tests
	Timeout time.Duration // per chat call, defaults to 30s
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = chatTimeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: transcribeTimeout},
		logger: logger,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float32       `json:"temperature"`
	ResponseFormat *formatSpec   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type formatSpec struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a system prompt and user message and returns the raw
// text of the first choice.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return c.chat(ctx, systemPrompt, userMessage, nil)
}

// CompleteJSON forces a JSON-object response and unmarshals it into out.
// Markdown code fences are stripped defensively before parsing; a parse
// failure after stripping is a MalformedResponse error, logged with the
// raw body for diagnosis.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userMessage string, out any) error {
	raw, err := c.chat(ctx, systemPrompt, userMessage, &formatSpec{Type: "json_object"})
	if err != nil {
		return err
	}
	cleaned := StripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		c.logger.Error("llm returned invalid json", zap.String("raw", raw), zap.Error(err))
		return apperr.Wrap(apperr.KindMalformedResponse, "AI returned invalid JSON format", err)
	}
	return nil
}

func (c *Client) chat(ctx context.Context, systemPrompt, userMessage string, format *formatSpec) (string, error) {
	body := chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature:    0.7,
		ResponseFormat: format,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.Wrap(apperr.KindTimeout, "OpenAI call timed out", err)
		}
		return "", apperr.Wrap(apperr.KindUpstream, "OpenAI API unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", apperr.New(apperr.KindUpstream, "OpenAI API Error: "+readErrorMessage(resp))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "OpenAI response decode failed", err)
	}
	if len(parsed.Choices) == 0 {
		return "", apperr.New(apperr.KindUpstream, "OpenAI response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Transcribe forwards audio to the Whisper endpoint as multipart form
// data with a fixed English language hint.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("copy audio payload: %w", err)
	}
	_ = mw.WriteField("model", whisperModel)
	_ = mw.WriteField("language", "en")
	if err := mw.Close(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.Wrap(apperr.KindTimeout, "Whisper call timed out", err)
		}
		return "", apperr.Wrap(apperr.KindUpstream, "Whisper API unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", apperr.New(apperr.KindUpstream, "Whisper API Error: "+readErrorMessage(resp))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "Whisper response decode failed", err)
	}
	return parsed.Text, nil
}

// StripFences removes markdown code fences the model sometimes wraps
// around JSON output despite the JSON-only instruction.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func readErrorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e apiError
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return resp.Status
}
