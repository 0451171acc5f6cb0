package llm

import (
	"context"
	"net/http"

	"google.golang.org/genai"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

type geminiBackend struct {
	config *Config
	client *genai.Client
}

func newGeminiBackend(config *Config, hc *http.Client) (*geminiBackend, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: config.APIURL + "/",
		},
	})
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindConfig, "failed to create gemini client")
	}
	return &geminiBackend{config: config, client: client}, nil
}

func (b *geminiBackend) complete(ctx context.Context, req Completion) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(b.config.Temperature)),
		MaxOutputTokens: int32(b.config.MaxTokens),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	resp, err := b.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserPrompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
