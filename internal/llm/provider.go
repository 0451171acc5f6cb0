package llm

import (
	"net/url"
	"sort"
	"strings"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

// Provider identifies an AI translation backend.
type Provider string

const (
	ProviderOpenAI       Provider = "openai"
	ProviderOpenRouter   Provider = "openrouter"
	ProviderGroq         Provider = "groq"
	ProviderDeepSeek     Provider = "deepseek"
	ProviderOllama       Provider = "ollama"
	ProviderGemini       Provider = "gemini"
	ProviderAnthropic    Provider = "anthropic"
	ProviderCustomOpenAI Provider = "custom-openai"
)

var defaultEndpoints = map[Provider]string{
	ProviderOpenAI:     "https://api.openai.com/v1",
	ProviderOpenRouter: "https://openrouter.ai/api/v1",
	ProviderGroq:       "https://api.groq.com/openai/v1",
	ProviderDeepSeek:   "https://api.deepseek.com/v1",
	ProviderOllama:     "http://localhost:11434/v1",
	ProviderGemini:     "https://generativelanguage.googleapis.com",
	ProviderAnthropic:  "https://api.anthropic.com",
	// custom-openai has no default and requires an explicit URL
	ProviderCustomOpenAI: "",
}

// Providers lists the known provider identifiers.
func Providers() []Provider {
	out := make([]Provider, 0, len(defaultEndpoints))
	for p := range defaultEndpoints {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseProvider normalizes a provider identifier. Unknown identifiers are a
// Config error.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := defaultEndpoints[p]; !ok {
		return "", apperr.New(apperr.KindConfig, "unknown provider %q", s).
			WithContext("provider", s)
	}
	return p, nil
}

// ResolveEndpoint returns override when set, otherwise the provider's default
// URL. It never touches the network.
func ResolveEndpoint(provider, override string) (string, error) {
	p, err := ParseProvider(provider)
	if err != nil {
		return "", err
	}
	endpoint := strings.TrimSpace(override)
	if endpoint == "" {
		endpoint = defaultEndpoints[p]
	}
	if endpoint == "" {
		return "", apperr.New(apperr.KindConfig, "provider %s requires an API URL", p).
			WithContext("provider", string(p))
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", apperr.New(apperr.KindConfig, "invalid API URL %q", endpoint).
			WithContext("provider", string(p))
	}
	return strings.TrimRight(endpoint, "/"), nil
}

func (p Provider) openAICompatible() bool {
	return p != ProviderGemini && p != ProviderAnthropic
}

// RequiresAPIKey reports whether calls without a key are pointless.
func (p Provider) RequiresAPIKey() bool {
	return p != ProviderOllama && p != ProviderCustomOpenAI
}
