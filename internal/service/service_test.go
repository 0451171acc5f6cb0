package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/config"
	"github.com/MimeLyc/doc-translator/internal/document"
	"github.com/MimeLyc/doc-translator/internal/jobs"
	"github.com/MimeLyc/doc-translator/internal/persistence"
	"github.com/MimeLyc/doc-translator/internal/translator"
)

func testDefaults() config.TranslationConfig {
	return config.TranslationConfig{
		Provider:       "openai",
		APIKey:         "sk-test",
		Model:          "gpt-4o-mini",
		MaxTokens:      1024,
		Temperature:    0.3,
		Timeout:        30,
		SourceLanguage: "en",
		TargetLanguage: "fr",
		ChunkSize:      2,
		Concurrency:    2,
	}
}

func dictionary(words map[string]string) *funcTranslator {
	return &funcTranslator{fn: func(texts []string) ([]string, error) {
		ret := make([]string, len(texts))
		for i, t := range texts {
			ret[i] = words[t]
		}
		return ret, nil
	}}
}

func newTestService(t *testing.T, tr translator.Translator, opts ...Option) (*Service, *persistence.SQLiteStore) {
	t.Helper()
	store := newStore(t)
	opts = append([]Option{WithTranslatorFactory(func(config.TranslationConfig) (translator.Translator, error) {
		return tr, nil
	})}, opts...)
	return New(store, testDefaults(), opts...), store
}

func TestService_JSONDocumentRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, dictionary(map[string]string{"Hello": "Bonjour", "World": "Monde"}))
	ctx := context.Background()

	content := `{"a":"Hello","b":{"c":"World"}}`
	opts := document.Options{Format: document.FormatJSON}

	units, err := svc.Parse(content, opts)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, document.Path{"a"}, units[0].Path)
	assert.Equal(t, document.Path{"b", "c"}, units[1].Path)

	result, err := svc.TranslateTextArray(ctx, config.TranslationConfig{}, units, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "translated 2 units (0 from cache)", result.Message)

	out, err := svc.ApplyTranslation(content, result.TranslatedUnits, opts)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"Bonjour","b":{"c":"Monde"}}`, out)

	again, err := svc.TranslateTextArray(ctx, config.TranslationConfig{}, units, "")
	require.NoError(t, err)
	assert.Equal(t, "translated 2 units (2 from cache)", again.Message)
}

func TestService_TranslateReportsFailuresPerUnit(t *testing.T) {
	tr := &funcTranslator{fn: func(texts []string) ([]string, error) {
		return nil, apperr.New(apperr.KindProviderRejection, "model not found")
	}}
	svc, _ := newTestService(t, tr)

	result, err := svc.TranslateTextArray(context.Background(), config.TranslationConfig{}, unitsOf("Hello"), "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "translated 0 of 1 units (0 from cache), 1 failed", result.Message)
	require.Len(t, result.TranslatedUnits, 1)
	assert.Equal(t, "Hello", result.TranslatedUnits[0].TranslatedText)
}

func TestService_TranslateRejectsBadRequests(t *testing.T) {
	called := false
	store := newStore(t)
	svc := New(store, testDefaults(), WithTranslatorFactory(func(config.TranslationConfig) (translator.Translator, error) {
		called = true
		return &funcTranslator{fn: upper}, nil
	}))
	ctx := context.Background()

	_, err := svc.TranslateTextArray(ctx, config.TranslationConfig{Provider: "nope"}, unitsOf("x"), "")
	assert.True(t, apperr.IsKind(err, apperr.KindConfig), "%v", err)

	_, err = svc.TranslateTextArray(ctx, config.TranslationConfig{TargetLanguage: "not a language!"}, unitsOf("x"), "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "%v", err)

	dup := []document.TextUnit{
		{Path: document.Path{"a"}, SourceText: "x"},
		{Path: document.Path{"a"}, SourceText: "y"},
	}
	_, err = svc.TranslateTextArray(ctx, config.TranslationConfig{}, dup, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "%v", err)

	assert.False(t, called)
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, persistence.Stats{}, stats)
}

func TestService_OtherProviderDoesNotInheritKey(t *testing.T) {
	var got config.TranslationConfig
	svc := New(newStore(t), testDefaults(), WithTranslatorFactory(func(cfg config.TranslationConfig) (translator.Translator, error) {
		got = cfg
		return &funcTranslator{fn: upper}, nil
	}))

	_, err := svc.TranslateTextArray(context.Background(), config.TranslationConfig{Provider: "ollama"}, unitsOf("x"), "")
	require.NoError(t, err)
	assert.Equal(t, "ollama", got.Provider)
	assert.Empty(t, got.APIKey)
	assert.Equal(t, translator.DefaultPromptTemplate, got.PromptTemplate)
}

func TestService_SourceFileIsRecorded(t *testing.T) {
	svc, store := newTestService(t, &funcTranslator{fn: upper})
	ctx := context.Background()

	_, err := svc.TranslateTextArray(ctx, config.TranslationConfig{}, unitsOf("hello"), "/docs/app.json")
	require.NoError(t, err)

	fileID, err := store.EnsureFileInfo(ctx, "/docs/app.json")
	require.NoError(t, err)
	page, err := svc.GetTranslations(ctx, persistence.Query{FileInfoID: &fileID})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)

	require.NoError(t, svc.DeleteFileInfo(ctx, fileID))
	page, err = svc.GetTranslations(ctx, persistence.Query{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Nil(t, page.Items[0].FileInfoID)
}

func TestService_CacheManagement(t *testing.T) {
	svc, _ := newTestService(t, &funcTranslator{fn: upper})
	ctx := context.Background()

	_, err := svc.TranslateTextArray(ctx, config.TranslationConfig{}, unitsOf("one", "two"), "")
	require.NoError(t, err)

	page, err := svc.GetTranslations(ctx, persistence.Query{Search: "one"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	id := page.Items[0].ID

	entry, err := svc.UpdateTranslation(ctx, id, "UN")
	require.NoError(t, err)
	assert.Equal(t, "UN", entry.Target)

	history, err := svc.GetTranslationHistory(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = svc.DeleteTranslations(ctx, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	n, err := svc.DeleteTranslations(ctx, []int64{id})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.DeleteAllTranslations(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Entries)
}

func TestService_ExportImport(t *testing.T) {
	src, _ := newTestService(t, dictionary(map[string]string{"Hello": "Bonjour"}))
	ctx := context.Background()
	_, err := src.TranslateTextArray(ctx, config.TranslationConfig{}, unitsOf("Hello"), "")
	require.NoError(t, err)

	for _, format := range []string{"json", "yaml", ""} {
		t.Run("format="+format, func(t *testing.T) {
			data, err := src.ExportTranslations(ctx, format)
			require.NoError(t, err)
			assert.Contains(t, string(data), "Bonjour")

			dst, _ := newTestService(t, &mockTranslator{})
			res, err := dst.ImportTranslations(ctx, data, format)
			require.NoError(t, err)
			assert.Equal(t, persistence.ImportResult{Imported: 1}, res)

			page, err := dst.GetTranslations(ctx, persistence.Query{})
			require.NoError(t, err)
			require.Len(t, page.Items, 1)
			assert.Equal(t, "Bonjour", page.Items[0].Target)
		})
	}

	yamlData, err := src.ExportTranslations(ctx, "yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(yamlData), "- source: Hello"), string(yamlData))

	_, err = src.ExportTranslations(ctx, "xml")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = src.ImportTranslations(ctx, []byte("{not json"), "json")
	assert.True(t, apperr.IsKind(err, apperr.KindParse))
	_, err = src.ImportTranslations(ctx, []byte("  "), "json")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestService_EnqueueAndExecuteJob(t *testing.T) {
	svc, _ := newTestService(t, &funcTranslator{fn: upper})
	q := jobs.NewQueue(1, nil)

	payload := jobs.JobPayload{Units: unitsOf("hi"), SourceFilePath: "/docs/a.txt"}
	job, created, err := svc.EnqueueTranslation(q, "api", payload)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := svc.EnqueueTranslation(q, "api", payload)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, job.ID, again.ID)

	_, _, err = svc.EnqueueTranslation(q, "api", jobs.JobPayload{Config: config.TranslationConfig{Provider: "nope"}})
	assert.True(t, apperr.IsKind(err, apperr.KindConfig))

	result, err := svc.ExecuteJob(context.Background(), job)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "HI", result.TranslatedUnits[0].TranslatedText)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.ExecuteJob(ctx, job)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_UpdateSettings(t *testing.T) {
	initial := config.RuntimeSettings{
		LLMProvider:    "openai",
		LLMAPIKey:      "sk-old-secret",
		LLMModel:       "gpt-4o-mini",
		TargetLanguage: "fr",
	}
	settings, err := config.NewRuntimeSettingsStore(filepath.Join(t.TempDir(), "settings.json"), initial)
	require.NoError(t, err)

	var notified config.RuntimeSettings
	svc, _ := newTestService(t, &funcTranslator{fn: upper},
		WithSettingsStore(settings),
		OnSettingsChange(func(rs config.RuntimeSettings) { notified = rs }),
	)

	current, err := svc.GetSettings()
	require.NoError(t, err)
	assert.NotEqual(t, "sk-old-secret", current.LLMAPIKey)

	next := current
	next.LLMModel = "gpt-4o"
	next.TargetLanguage = "de"
	updated, err := svc.UpdateSettings(next)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", updated.LLMModel)
	assert.NotEqual(t, "sk-old-secret", updated.LLMAPIKey)

	assert.Equal(t, "sk-old-secret", notified.LLMAPIKey)
	defaults := svc.Defaults()
	assert.Equal(t, "gpt-4o", defaults.Model)
	assert.Equal(t, "de", defaults.TargetLanguage)
	assert.Equal(t, "sk-old-secret", defaults.APIKey)

	_, err = svc.UpdateSettings(config.RuntimeSettings{LLMProvider: "nope"})
	assert.Error(t, err)
}

func TestService_SettingsNotConfigured(t *testing.T) {
	svc, _ := newTestService(t, &mockTranslator{})
	_, err := svc.GetSettings()
	assert.True(t, apperr.IsKind(err, apperr.KindConfig))
}
