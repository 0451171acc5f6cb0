package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("TARGET_LANGUAGE", "")
	t.Setenv("UI_ENABLED", "")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.LLM.Provider)
	assert.Equal(t, "auto", cfg.Translate.SourceLanguage)
	assert.Equal(t, "en", cfg.Translate.TargetLanguage.String())
	assert.Equal(t, 20, cfg.Translate.ChunkSize)
	assert.Equal(t, 3, cfg.Translate.Concurrency)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.HTTP.UIEnabled)
	assert.Equal(t, filepath.Join("./data", "doc-translator.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join("./data", "backups"), cfg.Backup.Dir)
}

func TestNewFromEnv_DataDirFromEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/doc-data")
	t.Setenv("UI_ENABLED", "true")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/doc-data", cfg.System.DataDir)
	assert.Equal(t, filepath.Join("/tmp/doc-data", "doc-translator.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join("/tmp/doc-data", "settings.json"), cfg.System.SettingsFile)
	assert.True(t, cfg.HTTP.UIEnabled)
}

func TestNewFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown provider", "LLM_PROVIDER", "mystery"},
		{"bad target language", "TARGET_LANGUAGE", "??"},
		{"zero chunk size", "CHUNK_SIZE", "0"},
		{"bad backup cron", "BACKUP_CRON", "every day"},
		{"bad backup format", "BACKUP_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := NewFromEnv()
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindConfig))
		})
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LLM_MODEL=from-file\nCHUNK_SIZE=7\n"), 0o600))

	t.Setenv("LLM_MODEL", "from-env")
	t.Setenv("CHUNK_SIZE", "")
	require.NoError(t, os.Unsetenv("CHUNK_SIZE"))

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	t.Cleanup(func() { _ = os.Unsetenv("CHUNK_SIZE") })

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.Model)
	assert.Equal(t, 7, cfg.Translate.ChunkSize)
}

func TestConfig_StringMasksAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-1234567890abcdef")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.NotContains(t, cfg.String(), "sk-1234567890abcdef")
	assert.Contains(t, cfg.String(), "sk-1****cdef")
}

func TestTranslationConfig_WithDefaults(t *testing.T) {
	defaults := TranslationConfig{
		Provider:       "openai",
		APIKey:         "default-key",
		Model:          "gpt-4o-mini",
		MaxTokens:      4096,
		Timeout:        60,
		SourceLanguage: "auto",
		TargetLanguage: "en",
		ChunkSize:      20,
		Concurrency:    3,
	}

	got := TranslationConfig{TargetLanguage: "fr", ChunkSize: 5}.WithDefaults(defaults)
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, "default-key", got.APIKey)
	assert.Equal(t, "fr", got.TargetLanguage)
	assert.Equal(t, 5, got.ChunkSize)
	assert.Equal(t, 3, got.Concurrency)
	require.NoError(t, got.Validate())

	other := TranslationConfig{Provider: "groq"}.WithDefaults(defaults)
	assert.Empty(t, other.APIKey)
	assert.Error(t, other.Validate())
}

func TestTranslationConfig_Validate(t *testing.T) {
	base := TranslationConfig{
		Provider:       "ollama",
		Model:          "llama3",
		MaxTokens:      1000,
		Timeout:        30,
		TargetLanguage: "de",
		ChunkSize:      10,
		Concurrency:    2,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Provider = "nope"
	assert.True(t, apperr.IsKind(bad.Validate(), apperr.KindConfig))

	bad = base
	bad.SourceLanguage = "!!"
	assert.True(t, apperr.IsKind(bad.Validate(), apperr.KindValidation))

	bad = base
	bad.Concurrency = 0
	assert.True(t, apperr.IsKind(bad.Validate(), apperr.KindValidation))
}
