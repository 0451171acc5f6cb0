package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type anthropicBackend struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
}

func newAnthropicBackend(config *Config, hc *http.Client) *anthropicBackend {
	return &anthropicBackend{config: config, httpClient: hc, baseURL: config.APIURL}
}

func (b *anthropicBackend) complete(ctx context.Context, req Completion) (string, error) {
	request := MessagesRequest{
		Model:       req.Model,
		System:      req.SystemPrompt,
		MaxTokens:   b.config.MaxTokens,
		Temperature: b.config.Temperature,
		Messages:    []Message{{Role: "user", Content: req.UserPrompt}},
	}

	var response MessagesResponse
	if err := b.makeRequest(ctx, http.MethodPost, "/v1/messages", request, &response); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// makeRequest makes a raw HTTP request to the configured API
func (b *anthropicBackend) makeRequest(ctx context.Context, method, path string, payload, out interface{}) error {
	url := b.baseURL + path

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range b.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if json.Unmarshal(responseBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return &providerError{StatusCode: resp.StatusCode, Type: apiErr.Error.Type, Message: apiErr.Error.Message}
		}
		return &providerError{StatusCode: resp.StatusCode, Type: "http_error", Message: string(responseBody)}
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
