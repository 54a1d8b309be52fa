package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/starford/notex/internal/apperr"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3

	jsonOnlyInstruction = "\n\nIMPORTANT: Respond with valid JSON only. No markdown code blocks, no explanations outside the JSON."
)

// Gateway sends a system/user prompt pair to the model and returns its text reply.
type Gateway interface {
	Send(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	SendJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxRetries     int
	TimeoutSeconds int
}

// Client talks to an OpenAI-compatible chat completions endpoint.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	baseDelay  time.Duration
	sleeper    func(time.Duration)
	logger     *slog.Logger
}

var _ Gateway = (*Client)(nil)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryBaseDelay overrides the first backoff interval (defaults to 1s).
func WithRetryBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs an LLM client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		return nil, errors.New("llm: base url required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRetryAttempts
	}
	endpoint, err := url.JoinPath(cfg.BaseURL, "chat", "completions")
	if err != nil {
		return nil, fmt.Errorf("llm: build url: %w", err)
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		baseDelay:  defaultRetryBaseDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Send issues a chat completion and returns the reply text, retrying failed
// attempts with exponential backoff.
func (c *Client) Send(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	return c.completeWithRetry(ctx, payload)
}

// SendJSON is Send with an instruction demanding a bare JSON reply. Callers
// should still run the reply through ExtractJSON.
func (c *Client) SendJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.Send(ctx, systemPrompt+jsonOnlyInstruction, userPrompt)
}

// MaxRetriesError is returned once every attempt has failed.
type MaxRetriesError struct {
	Attempts int
	Err      error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("llm: failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *MaxRetriesError) Unwrap() error { return e.Err }

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, e.Body)
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completeWithRetry(ctx context.Context, payload chatCompletionRequest) (string, error) {
	attempts := c.cfg.MaxRetries
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Debug("llm: request",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("model", c.cfg.Model))

		content, err := c.sendOnce(ctx, payload)
		if err == nil {
			if attempt > 1 {
				c.logger.Debug("llm: succeeded after retry", slog.Int("attempt", attempt))
			}
			return content, nil
		}
		lastErr = err
		c.logger.Warn("llm: attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.String("error", err.Error()))

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt == attempts {
			break
		}
		delay := c.backoffDelay(attempt)
		c.logger.Debug("llm: retrying", slog.Duration("delay", delay))
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", &MaxRetriesError{Attempts: attempts, Err: lastErr}
}

func (c *Client) sendOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("llm request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == nil {
		return "", apperr.ErrNoContent
	}
	content := *completion.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w (finish_reason=%q)", apperr.ErrNoContent, completion.Choices[0].FinishReason)
	}
	return content, nil
}

// backoffDelay returns base·2^(attempt-1): 1s, 2s, 4s, ...
func (c *Client) backoffDelay(attempt int) time.Duration {
	if c.baseDelay <= 0 {
		return 0
	}
	return c.baseDelay << (attempt - 1)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
