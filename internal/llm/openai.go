package llm

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// openAIBackend talks to every OpenAI-compatible chat completions endpoint.
type openAIBackend struct {
	config *Config
	client *openai.Client
}

func newOpenAIBackend(config *Config, hc *http.Client) *openAIBackend {
	cfg := openai.DefaultConfig(config.APIKey)
	cfg.BaseURL = config.APIURL
	cfg.HTTPClient = withHeaders(hc, config)
	return &openAIBackend{config: config, client: openai.NewClientWithConfig(cfg)}
}

func (b *openAIBackend) complete(ctx context.Context, req Completion) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   b.config.MaxTokens,
		Temperature: float32(b.config.Temperature),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &providerError{Message: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// headerTransport adds the OpenRouter attribution headers to each request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

func withHeaders(hc *http.Client, config *Config) *http.Client {
	extra := map[string]string{}
	if config.SiteURL != "" {
		extra["HTTP-Referer"] = config.SiteURL
	}
	if config.AppName != "" {
		extra["X-Title"] = config.AppName
	}
	if len(extra) == 0 {
		return hc
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = &headerTransport{base: base, headers: extra}
	return &wrapped
}

// providerError is an explicit error reported by a provider in its response.
type providerError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *providerError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}
