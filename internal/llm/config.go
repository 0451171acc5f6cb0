package llm

import (
	"github.com/MimeLyc/doc-translator/internal/apperr"
)

const anthropicVersion = "2023-06-01"

// Config holds the configuration for the LLM client.
//
// Environment Variables:
// - LLM_PROVIDER: provider identifier (default: openrouter)
// - LLM_API_KEY: API key for the LLM provider
// - LLM_API_URL: API endpoint URL, overrides the provider default
// - LLM_MODEL: Model name to use
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 4096)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.3)
// - LLM_TIMEOUT: Per-call timeout in seconds (default: 60)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
type Config struct {
	Provider    string  `json:"provider"`
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
	SiteURL     string  `json:"site_url"`
	AppName     string  `json:"app_name"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	provider, err := ParseProvider(c.Provider)
	if err != nil {
		return err
	}
	if _, err := ResolveEndpoint(c.Provider, c.APIURL); err != nil {
		return err
	}
	if c.APIKey == "" && provider.RequiresAPIKey() {
		return apperr.New(apperr.KindConfig, "API key is required for provider %s", provider)
	}
	if c.Model == "" {
		return apperr.New(apperr.KindConfig, "model is required")
	}
	if c.MaxTokens < 1 {
		return apperr.New(apperr.KindConfig, "max tokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return apperr.New(apperr.KindConfig, "temperature must be between 0 and 2")
	}
	if c.Timeout < 1 {
		return apperr.New(apperr.KindConfig, "timeout must be greater than 0")
	}
	return nil
}

// GetHeaders returns the headers for a raw API request
func (c *Config) GetHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	if Provider(c.Provider) == ProviderAnthropic {
		headers["x-api-key"] = c.APIKey
		headers["anthropic-version"] = anthropicVersion
		return headers
	}

	if c.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.APIKey
	}
	if c.SiteURL != "" {
		headers["HTTP-Referer"] = c.SiteURL
	}
	if c.AppName != "" {
		headers["X-Title"] = c.AppName
	}

	return headers
}
