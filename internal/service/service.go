// Package service implements the translation coordinator and the request
// operations exposed by the HTTP API and the CLI.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/config"
	"github.com/MimeLyc/doc-translator/internal/document"
	"github.com/MimeLyc/doc-translator/internal/jobs"
	"github.com/MimeLyc/doc-translator/internal/llm"
	"github.com/MimeLyc/doc-translator/internal/persistence"
	"github.com/MimeLyc/doc-translator/internal/translator"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

// Store is the cache, history and file registry behind the service.
type Store interface {
	CacheStore
	EnsureFileInfo(ctx context.Context, path string) (int64, error)
	Query(ctx context.Context, q persistence.Query) (persistence.Page, error)
	GetTranslation(ctx context.Context, id int64) (*persistence.CacheEntry, error)
	GetHistory(ctx context.Context, translationID int64) ([]persistence.HistoryRecord, error)
	UpdateTranslation(ctx context.Context, id int64, target string) (*persistence.CacheEntry, error)
	Delete(ctx context.Context, ids []int64) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	DeleteFileInfo(ctx context.Context, id int64) error
	Export(ctx context.Context) ([]persistence.ExportEntry, error)
	Import(ctx context.Context, entries []persistence.ExportEntry) (persistence.ImportResult, error)
	Stats(ctx context.Context) (persistence.Stats, error)
}

// TranslatorFactory builds the translator for one resolved request config.
type TranslatorFactory func(cfg config.TranslationConfig) (translator.Translator, error)

type settingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type Service struct {
	store       Store
	coordinator *Coordinator
	breakers    *llm.Breakers
	newTrans    TranslatorFactory
	settings    settingsStore
	onSettings  []func(config.RuntimeSettings)

	mu       sync.RWMutex
	defaults config.TranslationConfig
}

type Option func(*Service)

// WithTranslatorFactory replaces the provider-backed translator.
func WithTranslatorFactory(f TranslatorFactory) Option {
	return func(s *Service) {
		if f != nil {
			s.newTrans = f
		}
	}
}

func WithSettingsStore(store settingsStore) Option {
	return func(s *Service) {
		s.settings = store
	}
}

// OnSettingsChange registers a callback run after settings were updated.
func OnSettingsChange(fn func(config.RuntimeSettings)) Option {
	return func(s *Service) {
		s.onSettings = append(s.onSettings, fn)
	}
}

func New(store Store, defaults config.TranslationConfig, opts ...Option) *Service {
	s := &Service{
		store:       store,
		coordinator: NewCoordinator(store),
		breakers:    llm.NewBreakers(),
		defaults:    defaults,
	}
	s.newTrans = s.llmTranslator
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// llmTranslator shares one circuit breaker per endpoint across requests.
func (s *Service) llmTranslator(cfg config.TranslationConfig) (translator.Translator, error) {
	endpoint, err := llm.ResolveEndpoint(cfg.Provider, cfg.APIURL)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(cfg.LLM(), llm.WithBreaker(s.breakers.For(endpoint)))
	if err != nil {
		return nil, err
	}
	return translator.NewLLMTranslator(client), nil
}

func (s *Service) Defaults() config.TranslationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// Parse extracts the translatable units of content.
func (s *Service) Parse(content string, opts document.Options) ([]document.TextUnit, error) {
	return document.Parse(content, opts)
}

// ApplyTranslation merges translated units back into content.
func (s *Service) ApplyTranslation(content string, units []document.TranslatedUnit, opts document.Options) (string, error) {
	return document.Apply(content, units, opts)
}

// TranslateTextArray translates units through the cache and the provider.
// Only request-level problems are returned as errors; per-unit failures are
// reported in the result.
func (s *Service) TranslateTextArray(
	ctx context.Context,
	cfg config.TranslationConfig,
	units []document.TextUnit,
	sourceFilePath string,
) (*jobs.Result, error) {
	cfg, err := s.resolve(cfg)
	if err != nil {
		return nil, err
	}
	if err := validateUnits(units); err != nil {
		return nil, err
	}

	tr, err := s.newTrans(cfg)
	if err != nil {
		return nil, err
	}

	var fileID *int64
	if path := strings.TrimSpace(sourceFilePath); path != "" {
		id, err := s.store.EnsureFileInfo(ctx, path)
		if err != nil {
			log.Warn("Failed to register source file %s: %v", path, err)
		} else {
			fileID = &id
		}
	}

	res := s.coordinator.Run(ctx, tr, Batch{
		Units:          units,
		SourceLang:     cfg.SourceLanguage,
		TargetLang:     cfg.TargetLanguage,
		PromptTemplate: cfg.PromptTemplate,
		Model:          cfg.Model,
		ChunkSize:      cfg.ChunkSize,
		Concurrency:    cfg.Concurrency,
		FileInfoID:     fileID,
	})

	return &jobs.Result{
		TranslatedUnits: res.Units,
		Success:         res.Failed == 0,
		Message:         summarize(len(units), res),
	}, nil
}

// resolve fills cfg from the service defaults and validates it.
func (s *Service) resolve(cfg config.TranslationConfig) (config.TranslationConfig, error) {
	cfg = cfg.WithDefaults(s.Defaults())
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = translator.DefaultPromptTemplate
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateUnits(units []document.TextUnit) error {
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		key := u.Path.Key()
		if _, dup := seen[key]; dup {
			return apperr.New(apperr.KindValidation, "duplicate unit path %s", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func summarize(total int, res *BatchResult) string {
	if res.Failed == 0 {
		return fmt.Sprintf("translated %d units (%d from cache)", total, res.Hits)
	}
	return fmt.Sprintf("translated %d of %d units (%d from cache), %d failed", total-res.Failed, total, res.Hits, res.Failed)
}

// EnqueueTranslation validates a request and hands it to the job queue.
func (s *Service) EnqueueTranslation(
	q *jobs.Queue,
	source string,
	payload jobs.JobPayload,
) (*jobs.TranslationJob, bool, error) {
	cfg, err := s.resolve(payload.Config)
	if err != nil {
		return nil, false, err
	}
	if err := validateUnits(payload.Units); err != nil {
		return nil, false, err
	}
	dedupeKey := ""
	if path := strings.TrimSpace(payload.SourceFilePath); path != "" {
		dedupeKey = strings.Join([]string{path, cfg.Provider, cfg.Model, cfg.TargetLanguage}, "|")
	}
	job, created := q.Enqueue(jobs.EnqueueRequest{
		Source:    source,
		DedupeKey: dedupeKey,
		Payload:   payload,
	})
	return job, created, nil
}

// ExecuteJob is the job queue executor. A job interrupted by shutdown
// reports the context error so it is retried on the next start.
func (s *Service) ExecuteJob(ctx context.Context, job *jobs.TranslationJob) (*jobs.Result, error) {
	log.Info("Running job %s: %d units", job.ID, len(job.Payload.Units))
	result, err := s.TranslateTextArray(ctx, job.Payload.Config, job.Payload.Units, job.Payload.SourceFilePath)
	if err != nil {
		return nil, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return result, nil
}

func (s *Service) GetTranslations(ctx context.Context, q persistence.Query) (persistence.Page, error) {
	return s.store.Query(ctx, q)
}

func (s *Service) GetTranslationHistory(ctx context.Context, id int64) ([]persistence.HistoryRecord, error) {
	return s.store.GetHistory(ctx, id)
}

func (s *Service) UpdateTranslation(ctx context.Context, id int64, target string) (*persistence.CacheEntry, error) {
	return s.store.UpdateTranslation(ctx, id, target)
}

func (s *Service) DeleteTranslations(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, apperr.New(apperr.KindValidation, "ids are required")
	}
	return s.store.Delete(ctx, ids)
}

func (s *Service) DeleteAllTranslations(ctx context.Context) (int64, error) {
	return s.store.DeleteAll(ctx)
}

func (s *Service) DeleteFileInfo(ctx context.Context, id int64) error {
	return s.store.DeleteFileInfo(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (persistence.Stats, error) {
	return s.store.Stats(ctx)
}

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func exportFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", apperr.New(apperr.KindValidation, "unsupported export format %q", format)
	}
}

// ExportTranslations serializes every successful cache entry.
func (s *Service) ExportTranslations(ctx context.Context, format string) ([]byte, error) {
	f, err := exportFormat(format)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.Export(ctx)
	if err != nil {
		return nil, err
	}
	if f == FormatYAML {
		return yaml.Marshal(entries)
	}
	return json.MarshalIndent(entries, "", "  ")
}

// ImportTranslations loads entries produced by ExportTranslations.
func (s *Service) ImportTranslations(ctx context.Context, data []byte, format string) (persistence.ImportResult, error) {
	f, err := exportFormat(format)
	if err != nil {
		return persistence.ImportResult{}, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return persistence.ImportResult{}, apperr.New(apperr.KindValidation, "import data is empty")
	}

	var entries []persistence.ExportEntry
	if f == FormatYAML {
		err = yaml.Unmarshal(data, &entries)
	} else {
		err = json.Unmarshal(data, &entries)
	}
	if err != nil {
		return persistence.ImportResult{}, apperr.Wrap(err, apperr.KindParse, "invalid %s import data", f)
	}
	return s.store.Import(ctx, entries)
}

// GetSettings returns the runtime settings with the API key masked.
func (s *Service) GetSettings() (config.RuntimeSettings, error) {
	if s.settings == nil {
		return config.RuntimeSettings{}, apperr.New(apperr.KindConfig, "runtime settings are not configured")
	}
	current, err := s.settings.GetRuntimeSettings()
	if err != nil {
		return config.RuntimeSettings{}, err
	}
	return current.Masked(), nil
}

// UpdateSettings persists next and makes it the default for new requests.
func (s *Service) UpdateSettings(next config.RuntimeSettings) (config.RuntimeSettings, error) {
	if s.settings == nil {
		return config.RuntimeSettings{}, apperr.New(apperr.KindConfig, "runtime settings are not configured")
	}
	updated, err := s.settings.UpdateRuntimeSettings(next)
	if err != nil {
		return config.RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.defaults = applySettings(s.defaults, updated)
	s.mu.Unlock()
	for _, fn := range s.onSettings {
		fn(updated)
	}
	log.Info("Runtime settings updated: %+v", updated.Masked())
	return updated.Masked(), nil
}

func applySettings(d config.TranslationConfig, rs config.RuntimeSettings) config.TranslationConfig {
	if !strings.EqualFold(d.Provider, rs.LLMProvider) {
		d.APIURL = ""
	}
	d.Provider = rs.LLMProvider
	d.APIKey = rs.LLMAPIKey
	if rs.LLMAPIURL != "" {
		d.APIURL = rs.LLMAPIURL
	}
	d.Model = rs.LLMModel
	d.TargetLanguage = rs.TargetLanguage
	return d
}
