package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/llm"
	"github.com/MimeLyc/doc-translator/pkg/icron"
)

// RuntimeSettings are the operator-editable settings persisted next to the
// database. They override the environment on start.
type RuntimeSettings struct {
	LLMProvider    string `json:"llm_provider"`
	LLMAPIURL      string `json:"llm_api_url"`
	LLMAPIKey      string `json:"llm_api_key"`
	LLMModel       string `json:"llm_model"`
	TargetLanguage string `json:"target_language"`
	BackupCron     string `json:"backup_cron"`
}

func (s RuntimeSettings) Validate() error {
	provider, err := llm.ParseProvider(s.LLMProvider)
	if err != nil {
		return err
	}
	if _, err := llm.ResolveEndpoint(s.LLMProvider, s.LLMAPIURL); err != nil {
		return err
	}
	if strings.TrimSpace(s.LLMAPIKey) == "" && provider.RequiresAPIKey() {
		return apperr.New(apperr.KindValidation, "llm_api_key is required for provider %s", provider)
	}
	if strings.TrimSpace(s.LLMModel) == "" {
		return apperr.New(apperr.KindValidation, "llm_model is required")
	}
	if strings.TrimSpace(s.TargetLanguage) == "" {
		return apperr.New(apperr.KindValidation, "target_language is required")
	}
	if _, err := language.Parse(s.TargetLanguage); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, "invalid target_language")
	}
	if strings.TrimSpace(s.BackupCron) != "" {
		if err := validateCron(s.BackupCron); err != nil {
			return err
		}
	}
	return nil
}

// Masked returns a copy safe to print or return to clients.
func (s RuntimeSettings) Masked() RuntimeSettings {
	s.LLMAPIKey = maskSecret(s.LLMAPIKey)
	return s
}

func validateCron(expr string) error {
	if _, err := icron.Parse(expr); err != nil {
		return apperr.Wrap(err, apperr.KindConfig, "invalid cron expression %q", expr)
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		LLMProvider:    c.LLM.Provider,
		LLMAPIURL:      c.LLM.APIURL,
		LLMAPIKey:      c.LLM.APIKey,
		LLMModel:       c.LLM.Model,
		TargetLanguage: c.Translate.TargetLanguage.String(),
		BackupCron:     c.Backup.CronExpr,
	}
}

func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		if strings.TrimSpace(settings.LLMProvider) != "" {
			c.LLM.Provider = settings.LLMProvider
		}
		if strings.TrimSpace(settings.LLMAPIURL) != "" {
			c.LLM.APIURL = settings.LLMAPIURL
		}
		if strings.TrimSpace(settings.LLMAPIKey) != "" {
			c.LLM.APIKey = settings.LLMAPIKey
		}
		if strings.TrimSpace(settings.LLMModel) != "" {
			c.LLM.Model = settings.LLMModel
		}
		if strings.TrimSpace(settings.BackupCron) != "" {
			c.Backup.CronExpr = settings.BackupCron
		}
		if tag, err := language.Parse(settings.TargetLanguage); err == nil {
			c.Translate.TargetLanguage = tag
		}
	}
}

// LoadRuntimeSettingsFile reads a settings file. A missing file is reported
// with an error matching os.ErrNotExist.
func LoadRuntimeSettingsFile(path string) (RuntimeSettings, error) {
	f, err := os.Open(path)
	if err != nil {
		return RuntimeSettings{}, err
	}
	defer f.Close()

	var settings RuntimeSettings
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		return RuntimeSettings{}, apperr.Wrap(err, apperr.KindConfig, "invalid settings file %s", path)
	}
	return settings, nil
}

// WriteRuntimeSettingsFile validates settings and replaces path atomically.
// The file holds the API key, so it is only readable by the owner.
func WriteRuntimeSettingsFile(path string, settings RuntimeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	content, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(err, apperr.KindStorage, "create settings directory")
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperr.Wrap(err, apperr.KindStorage, "create settings file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return apperr.Wrap(err, apperr.KindStorage, "write settings file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apperr.Wrap(err, apperr.KindStorage, "sync settings file")
	}
	if err := tmp.Close(); err != nil {
		return apperr.Wrap(err, apperr.KindStorage, "close settings file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperr.Wrap(err, apperr.KindStorage, "replace settings file")
	}
	return nil
}

type RuntimeSettingsStore struct {
	path string

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(path string, initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperr.New(apperr.KindConfig, "settings file path is required")
	}
	return &RuntimeSettingsStore{
		path:    path,
		current: initial,
	}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

// UpdateRuntimeSettings validates and persists next. An empty API key keeps
// the current one so masked values can be sent back unchanged.
func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if next.LLMAPIKey == "" || next.LLMAPIKey == current.Masked().LLMAPIKey {
		next.LLMAPIKey = current.LLMAPIKey
	}

	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if err := WriteRuntimeSettingsFile(s.path, next); err != nil {
		return RuntimeSettings{}, err
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
