// Package llm adapts hosted language models to the capability interfaces.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ent0n29/aac/internal/capability"
	"github.com/ent0n29/aac/internal/reliability"
)

const (
	DefaultModel      = "gpt-4o-mini"
	defaultRetryBase  = 250 * time.Millisecond
	defaultRetryCap   = 4 * time.Second
	defaultMaxRetries = 2
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	RetryBase  time.Duration
	RetryCap   time.Duration
}

// Client wraps a chat-completions API with retries on transient failures.
type Client struct {
	api       *openai.Client
	model     string
	attempts  uint
	retryBase time.Duration
	retryCap  time.Duration
	logger    *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, fmt.Errorf("openai api key missing: %w", capability.ErrUnavailable)
	}
	oc := openai.DefaultConfig(key)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		oc.BaseURL = strings.TrimRight(base, "/")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		api:       openai.NewClientWithConfig(oc),
		model:     strings.TrimSpace(cfg.Model),
		attempts:  uint(defaultMaxRetries + 1),
		retryBase: cfg.RetryBase,
		retryCap:  cfg.RetryCap,
		logger:    logger,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if cfg.MaxRetries >= 0 {
		c.attempts = uint(cfg.MaxRetries + 1)
	}
	if c.retryBase <= 0 {
		c.retryBase = defaultRetryBase
	}
	if c.retryCap <= 0 {
		c.retryCap = defaultRetryCap
	}
	return c, nil
}

// API exposes the underlying client for other endpoints such as speech.
func (c *Client) API() *openai.Client { return c.api }

type completion struct {
	system      string
	user        string
	temperature float32
	topP        float32
	maxTokens   int
}

// completeJSON runs one JSON-mode chat completion and returns the message content.
func (c *Client) completeJSON(ctx context.Context, op string, req completion) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.system},
			{Role: openai.ChatMessageRoleUser, Content: req.user},
		},
		Temperature:    req.temperature,
		TopP:           req.topP,
		MaxTokens:      req.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	var content string
	err := c.do(ctx, op, func() error {
		resp, err := c.api.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return retry.Unrecoverable(fmt.Errorf("%s: empty choices", op))
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return reliability.ExponentialBackoff(int(n), c.retryBase, c.retryCap)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying model call", zap.String("op", op), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, wrapUnavailable(err))
	}
	return nil
}

func isRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return reliability.IsRetryableHTTPStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reliability.IsRetryableHTTPStatus(reqErr.HTTPStatusCode)
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return reliability.IsRetryableHTTPStatus(statusErr.code)
	}
	return reliability.IsTransientNetworkError(err)
}

// wrapUnavailable marks backend failures so callers can match capability.ErrUnavailable.
func wrapUnavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, capability.ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", capability.ErrUnavailable, err)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("model server status %d: %s", e.code, e.body)
}
