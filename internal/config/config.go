package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/llm"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// LLM Configuration:
// - LLM_PROVIDER: Provider identifier (default: openrouter)
// - LLM_API_KEY: API key for the LLM provider
// - LLM_API_URL: API endpoint URL, overrides the provider default
// - LLM_MODEL: Model name to use (default: openai/gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 4096)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.3)
// - LLM_TIMEOUT: Per-call timeout in seconds (default: 60)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
//
// Translate Configuration:
// - SOURCE_LANGUAGE: Source language tag or "auto" (default: auto)
// - TARGET_LANGUAGE: Target language tag (default: en)
// - CHUNK_SIZE: Texts per provider call (default: 20)
// - TRANSLATE_CONCURRENCY: Parallel provider calls per request (default: 3)
//
// System Configuration:
// - DATA_DIR: Directory of the SQLite database (default: ./data)
// - HTTP_ADDR: Listen address of the HTTP API (default: :8080)
// - UI_ENABLED: Serve the web UI from UI_STATIC_DIR (default: false)
// - UI_STATIC_DIR: Built web UI directory (default: ./web/dist)
// - JOB_WORKERS: Asynchronous job workers (default: 1)
// - BACKUP_CRON: Cron expression for cache backups (optional)
// - BACKUP_DIR: Backup directory (default: $DATA_DIR/backups)
// - BACKUP_FORMAT: json or yaml (default: json)
// - BACKUP_KEEP: Backups kept in BACKUP_DIR, 0 keeps all (default: 7)
// - LOG_LEVEL: DEBUG, INFO, WARN or ERROR (default: INFO)
// - SETTINGS_FILE: Runtime settings file (default: $DATA_DIR/settings.json)
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Translate TranslateConfig `json:"translate"`
	System    SystemConfig    `json:"system"`
	HTTP      HTTPConfig      `json:"http"`
	Backup    BackupConfig    `json:"backup"`
}

// LLMConfig holds the provider defaults used when a request does not carry its own.
type LLMConfig struct {
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

type TranslateConfig struct {
	SourceLanguage string       `json:"source_language"`
	TargetLanguage language.Tag `json:"target_language"`
	ChunkSize      int          `json:"chunk_size"`
	Concurrency    int          `json:"concurrency"`
}

type SystemConfig struct {
	DataDir      string `json:"data_dir"`
	JobWorkers   int    `json:"job_workers"`
	LogLevel     string `json:"log_level"`
	SettingsFile string `json:"settings_file"`
}

type HTTPConfig struct {
	Addr        string `json:"addr"`
	UIEnabled   bool   `json:"ui_enabled"`
	UIStaticDir string `json:"ui_static_dir"`
}

type BackupConfig struct {
	CronExpr string `json:"cron_expr"`
	Dir      string `json:"dir"`
	Format   string `json:"format"`
	Keep     int    `json:"keep"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is fine.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return apperr.Wrap(err, apperr.KindConfig, "failed to load env file")
	}
	return nil
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	dataDir := getEnvString("DATA_DIR", "./data")
	targetLanguage, err := language.Parse(getEnvString("TARGET_LANGUAGE", "en"))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindConfig, "invalid TARGET_LANGUAGE")
	}

	config := &Config{
		LLM: LLMConfig{
			Provider:    getEnvString("LLM_PROVIDER", string(llm.ProviderOpenRouter)),
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", ""),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 4096),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.3),
			Timeout:     getEnvInt("LLM_TIMEOUT", 60),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		Translate: TranslateConfig{
			SourceLanguage: getEnvString("SOURCE_LANGUAGE", "auto"),
			TargetLanguage: targetLanguage,
			ChunkSize:      getEnvInt("CHUNK_SIZE", 20),
			Concurrency:    getEnvInt("TRANSLATE_CONCURRENCY", 3),
		},
		System: SystemConfig{
			DataDir:      dataDir,
			JobWorkers:   getEnvInt("JOB_WORKERS", 1),
			LogLevel:     getEnvString("LOG_LEVEL", "INFO"),
			SettingsFile: getEnvString("SETTINGS_FILE", filepath.Join(dataDir, "settings.json")),
		},
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":8080"),
			UIEnabled:   getEnvBool("UI_ENABLED", false),
			UIStaticDir: getEnvString("UI_STATIC_DIR", "./web/dist"),
		},
		Backup: BackupConfig{
			CronExpr: getEnvString("BACKUP_CRON", ""),
			Dir:      getEnvString("BACKUP_DIR", filepath.Join(dataDir, "backups")),
			Format:   getEnvString("BACKUP_FORMAT", "json"),
			Keep:     getEnvInt("BACKUP_KEEP", 7),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %s", config)
	return config, nil
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.System.DataDir, "doc-translator.db")
}

// String prints the configuration with the API key masked.
func (c *Config) String() string {
	masked := *c
	masked.LLM.APIKey = maskSecret(c.LLM.APIKey)
	return fmt.Sprintf("%+v", struct {
		LLM       LLMConfig
		Translate TranslateConfig
		System    SystemConfig
		HTTP      HTTPConfig
		Backup    BackupConfig
	}{masked.LLM, masked.Translate, masked.System, masked.HTTP, masked.Backup})
}

// DefaultTranslation returns the request defaults derived from this config.
func (c *Config) DefaultTranslation() TranslationConfig {
	return TranslationConfig{
		Provider:       c.LLM.Provider,
		APIKey:         c.LLM.APIKey,
		APIURL:         c.LLM.APIURL,
		Model:          c.LLM.Model,
		MaxTokens:      c.LLM.MaxTokens,
		Temperature:    c.LLM.Temperature,
		Timeout:        c.LLM.Timeout,
		SiteURL:        c.LLM.SiteURL,
		AppName:        c.LLM.AppName,
		SourceLanguage: c.Translate.SourceLanguage,
		TargetLanguage: c.Translate.TargetLanguage.String(),
		ChunkSize:      c.Translate.ChunkSize,
		Concurrency:    c.Translate.Concurrency,
	}
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if _, err := llm.ResolveEndpoint(c.LLM.Provider, c.LLM.APIURL); err != nil {
		return err
	}
	if c.Translate.ChunkSize < 1 {
		return apperr.New(apperr.KindConfig, "CHUNK_SIZE must be greater than 0")
	}
	if c.Translate.Concurrency < 1 {
		return apperr.New(apperr.KindConfig, "TRANSLATE_CONCURRENCY must be greater than 0")
	}
	if c.System.JobWorkers < 1 {
		return apperr.New(apperr.KindConfig, "JOB_WORKERS must be greater than 0")
	}
	if c.Backup.Keep < 0 {
		return apperr.New(apperr.KindConfig, "BACKUP_KEEP must not be negative")
	}
	switch strings.ToLower(c.Backup.Format) {
	case "json", "yaml":
	default:
		return apperr.New(apperr.KindConfig, "BACKUP_FORMAT must be json or yaml")
	}
	if c.Backup.CronExpr != "" {
		if err := validateCron(c.Backup.CronExpr); err != nil {
			return err
		}
	}
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
