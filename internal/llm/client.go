package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

// Completion is one system+user exchange. An empty Model uses the configured one.
type Completion struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// backend performs one completion against a concrete provider API.
type backend interface {
	complete(ctx context.Context, req Completion) (string, error)
}

// Client is a stateless adapter to one provider endpoint. It is safe for
// concurrent use.
type Client struct {
	config     *Config
	provider   Provider
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	backend    backend
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used by every backend.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBreaker shares a circuit breaker between clients of the same endpoint.
func WithBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// NewClient creates a new LLM client with the given configuration. An
// unknown provider fails here, before any request is made.
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, apperr.New(apperr.KindConfig, "llm config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := *config
	provider, _ := ParseProvider(cfg.Provider)
	cfg.Provider = string(provider)
	endpoint, _ := ResolveEndpoint(cfg.Provider, cfg.APIURL)
	cfg.APIURL = endpoint

	client := &Client{
		config:     &cfg,
		provider:   provider,
		endpoint:   endpoint,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}

	switch {
	case provider == ProviderGemini:
		b, err := newGeminiBackend(&cfg, client.httpClient)
		if err != nil {
			return nil, err
		}
		client.backend = b
	case provider == ProviderAnthropic:
		client.backend = newAnthropicBackend(&cfg, client.httpClient)
	case provider.openAICompatible():
		client.backend = newOpenAIBackend(&cfg, client.httpClient)
	}

	return client, nil
}

func (c *Client) Provider() Provider {
	return c.provider
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Model() string {
	return c.config.Model
}

// Complete sends one exchange and returns the assistant text. Each call
// carries its own timeout and is never retried.
func (c *Client) Complete(ctx context.Context, req Completion) (string, error) {
	if req.Model == "" {
		req.Model = c.config.Model
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
	defer cancel()

	call := func() (string, error) {
		return c.backend.complete(ctx, req)
	}

	var (
		content string
		err     error
	)
	if c.breaker != nil {
		var out interface{}
		out, err = c.breaker.Execute(func() (interface{}, error) {
			return call()
		})
		if s, ok := out.(string); ok {
			content = s
		}
	} else {
		content, err = call()
	}
	if err != nil {
		return "", c.classify(ctx, req.Model, err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.New(apperr.KindProviderRejection, "empty response from %s", c.provider).
			WithContext("provider", string(c.provider))
	}
	return content, nil
}

func (c *Client) classify(ctx context.Context, model string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	kind := apperr.KindProviderTransport
	msg := "request to %s failed"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		msg = "circuit open for %s"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		msg = "request to %s timed out"
	case isRejection(err):
		kind = apperr.KindProviderRejection
		msg = "request rejected by %s"
	}
	return apperr.Wrap(err, kind, msg, c.provider).
		WithContext("provider", string(c.provider)).
		WithContext("model", model)
}
