package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned when a generator is built without an API key
var ErrNotConfigured = errors.New("ai api key is not configured")

// TextGenerator produces text from a prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig holds Gemini generateContent settings
type GeminiConfig struct {
	APIKey  string
	Model   string
	// BaseURL overrides the Gemini API endpoint, empty uses the SDK default
	BaseURL string
	Timeout time.Duration
}

// GeminiClient calls Gemini generateContent through the genai SDK behind a
// circuit breaker
type GeminiClient struct {
	config  GeminiConfig
	client  *genai.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewGeminiClient fails fast when the API key is absent
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *logrus.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 9 * time.Minute
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	settings := gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Caller mistakes do not count against the upstream
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from":            from.String(),
				"to":              to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &GeminiClient{
		config:  cfg,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}, nil
}

// APIError is a non-2xx response from the model endpoint
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// fromSDKError converts genai API errors so the breaker can classify them
func fromSDKError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message}
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

// Generate sends one prompt and returns the concatenated text of the first candidate
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	temperature := float32(0.7)
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", fromSDKError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("gemini returned empty text")
	}

	c.logger.WithFields(logrus.Fields{
		"model":       c.config.Model,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Gemini generation completed")
	return text, nil
}

var _ TextGenerator = (*GeminiClient)(nil)
