package llm

import (
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Message represents a chat message
//
// Role: "user" or "assistant"
// Content: Text content of the message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesRequest is the Anthropic messages API request body.
type MessagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

// MessagesResponse is the Anthropic messages API response body.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock is one block of an Anthropic response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Usage represents token usage statistics
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ErrorResponse is the error envelope returned with non-2xx statuses.
type ErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// isRejection reports whether err is an explicit provider answer rather than
// a transport failure. Rate limits and server errors count as transport.
func isRejection(err error) bool {
	status := 0
	var (
		pErr      *providerError
		oaErr     *openai.APIError
		gErr      genai.APIError
		gErrPtr   *genai.APIError
		reqErr    *openai.RequestError
		isAPIKind bool
	)
	switch {
	case errors.As(err, &pErr):
		status, isAPIKind = pErr.StatusCode, true
	case errors.As(err, &oaErr):
		status, isAPIKind = oaErr.HTTPStatusCode, true
	case errors.As(err, &gErrPtr):
		status, isAPIKind = gErrPtr.Code, true
	case errors.As(err, &gErr):
		status, isAPIKind = gErr.Code, true
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		isAPIKind = status >= 400 && status < 500
	}
	if !isAPIKind {
		return false
	}
	return status == 0 || (status < 500 && status != http.StatusTooManyRequests && status != http.StatusRequestTimeout)
}
