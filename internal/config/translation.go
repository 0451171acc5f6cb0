package config

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/llm"
)

// TranslationConfig is the per-request provider and language selection.
// Zero fields are filled from the process defaults.
type TranslationConfig struct {
	Provider       string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	APIKey         string  `json:"api_key,omitempty" yaml:"-"`
	APIURL         string  `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	Model          string  `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens      int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Timeout        int     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	SiteURL        string  `json:"site_url,omitempty" yaml:"site_url,omitempty"`
	AppName        string  `json:"app_name,omitempty" yaml:"app_name,omitempty"`
	SourceLanguage string  `json:"source_language,omitempty" yaml:"source_language,omitempty"`
	TargetLanguage string  `json:"target_language,omitempty" yaml:"target_language,omitempty"`
	PromptTemplate string  `json:"prompt_template,omitempty" yaml:"prompt_template,omitempty"`
	ChunkSize      int     `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	Concurrency    int     `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

// WithDefaults fills every zero field of c from defaults. The API key is only
// inherited when the provider is unchanged, so a key never leaks to another
// provider.
func (c TranslationConfig) WithDefaults(defaults TranslationConfig) TranslationConfig {
	sameProvider := c.Provider == "" || strings.EqualFold(c.Provider, defaults.Provider)
	if c.Provider == "" {
		c.Provider = defaults.Provider
	}
	if c.APIKey == "" && sameProvider {
		c.APIKey = defaults.APIKey
	}
	if c.APIURL == "" && sameProvider {
		c.APIURL = defaults.APIURL
	}
	if c.Model == "" {
		c.Model = defaults.Model
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaults.MaxTokens
	}
	if c.Temperature == 0 {
		c.Temperature = defaults.Temperature
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.SiteURL == "" {
		c.SiteURL = defaults.SiteURL
	}
	if c.AppName == "" {
		c.AppName = defaults.AppName
	}
	if c.SourceLanguage == "" {
		c.SourceLanguage = defaults.SourceLanguage
	}
	if c.TargetLanguage == "" {
		c.TargetLanguage = defaults.TargetLanguage
	}
	if c.PromptTemplate == "" {
		c.PromptTemplate = defaults.PromptTemplate
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = defaults.ChunkSize
	}
	if c.Concurrency == 0 {
		c.Concurrency = defaults.Concurrency
	}
	return c
}

// Validate rejects a request configuration before any provider call.
func (c TranslationConfig) Validate() error {
	if err := c.LLM().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.TargetLanguage) == "" {
		return apperr.New(apperr.KindValidation, "target_language is required")
	}
	if _, err := language.Parse(c.TargetLanguage); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, "invalid target_language %q", c.TargetLanguage)
	}
	if src := c.SourceLanguage; src != "" && !strings.EqualFold(src, "auto") {
		if _, err := language.Parse(src); err != nil {
			return apperr.Wrap(err, apperr.KindValidation, "invalid source_language %q", src)
		}
	}
	if c.ChunkSize < 1 {
		return apperr.New(apperr.KindValidation, "chunk_size must be greater than 0")
	}
	if c.Concurrency < 1 {
		return apperr.New(apperr.KindValidation, "concurrency must be greater than 0")
	}
	return nil
}

// LLM returns the provider client configuration.
func (c TranslationConfig) LLM() *llm.Config {
	return &llm.Config{
		Provider:    c.Provider,
		APIKey:      c.APIKey,
		APIURL:      c.APIURL,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
		SiteURL:     c.SiteURL,
		AppName:     c.AppName,
	}
}
