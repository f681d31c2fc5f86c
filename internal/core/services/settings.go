package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyWorkers           = "pipeline.workers"
	keyDataDir           = "pipeline.data_dir"
	keyStore             = "pipeline.store"
	keyMetadata          = "pipeline.metadata"
	keyInclude           = "reducer.include"
	keyExclude           = "reducer.exclude"
	keyWindow            = "reducer.window"
	keyMaxLines          = "reducer.max_lines"
	keyOrder             = "extraction.order"
	keyRetries           = "extraction.retries"
	keyTimeoutSeconds    = "extraction.timeout_seconds"
	keyTranslationMode   = "translation.mode"
	keyTranslationURL    = "translation.url"
	keyTranslationAPIKey = "translation.api_key"
	keyLanguages         = "translation.languages"
	keyChunkSize         = "translation.chunk_size"

	backendKeyPrefix = "backends."
)

// backendKey returns the config key of a per-backend field.
func backendKey(name, field string) string {
	return backendKeyPrefix + name + "." + field
}

// SettingsService resolves domain.Settings from a ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current settings. Unset keys take their default.
// Backends are read for every name in the extraction order.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Pipeline: domain.PipelineSettings{
			Workers:  s.getInt(keyWorkers, defaults.Pipeline.Workers),
			DataDir:  s.getString(keyDataDir, defaults.Pipeline.DataDir),
			Store:    domain.StoreKind(s.getString(keyStore, string(defaults.Pipeline.Store))),
			Metadata: s.getString(keyMetadata, defaults.Pipeline.Metadata),
		},
		Reducer: domain.ReducerSettings{
			Include:  s.getStringSlice(keyInclude, defaults.Reducer.Include),
			Exclude:  s.getStringSlice(keyExclude, defaults.Reducer.Exclude),
			Window:   s.getInt(keyWindow, defaults.Reducer.Window),
			MaxLines: s.getInt(keyMaxLines, defaults.Reducer.MaxLines),
		},
		Extraction: domain.ExtractionSettings{
			Order:    s.getStringSlice(keyOrder, defaults.Extraction.Order),
			Retries:  s.getInt(keyRetries, defaults.Extraction.Retries),
			Timeout:  s.getSeconds(keyTimeoutSeconds, defaults.Extraction.Timeout),
			Backends: make(map[string]domain.BackendSettings),
		},
		Translation: domain.TranslationSettings{
			Mode:      domain.TranslationMode(s.getString(keyTranslationMode, string(defaults.Translation.Mode))),
			URL:       s.getString(keyTranslationURL, defaults.Translation.URL),
			APIKey:    s.configStore.GetString(keyTranslationAPIKey),
			Languages: s.getStringSlice(keyLanguages, defaults.Translation.Languages),
			ChunkSize: s.getInt(keyChunkSize, defaults.Translation.ChunkSize),
		},
	}

	for _, name := range settings.Extraction.Order {
		if _, done := settings.Extraction.Backends[name]; done {
			return nil, fmt.Errorf("%w: backend %q listed twice in %s", domain.ErrInvalidInput, name, keyOrder)
		}
		def := defaults.Extraction.Backends[name]
		settings.Extraction.Backends[name] = domain.BackendSettings{
			Name:              name,
			Provider:          domain.AIProvider(s.getString(backendKey(name, "provider"), def.Provider.String())),
			Model:             s.getString(backendKey(name, "model"), def.Model),
			BaseURL:           s.getString(backendKey(name, "base_url"), def.BaseURL),
			APIKey:            s.configStore.GetString(backendKey(name, "api_key")),
			RequestsPerSecond: s.getFloat(backendKey(name, "requests_per_second"), def.RequestsPerSecond),
			Burst:             s.getInt(backendKey(name, "burst"), def.Burst),
		}
	}

	return settings, nil
}

// Save persists settings. API keys are only written when set.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyWorkers, settings.Pipeline.Workers},
		{keyDataDir, settings.Pipeline.DataDir},
		{keyStore, string(settings.Pipeline.Store)},
		{keyMetadata, settings.Pipeline.Metadata},
		{keyInclude, settings.Reducer.Include},
		{keyExclude, settings.Reducer.Exclude},
		{keyWindow, settings.Reducer.Window},
		{keyMaxLines, settings.Reducer.MaxLines},
		{keyOrder, settings.Extraction.Order},
		{keyRetries, settings.Extraction.Retries},
		{keyTimeoutSeconds, int(settings.Extraction.Timeout / time.Second)},
		{keyTranslationMode, string(settings.Translation.Mode)},
		{keyTranslationURL, settings.Translation.URL},
		{keyLanguages, settings.Translation.Languages},
		{keyChunkSize, settings.Translation.ChunkSize},
	}
	if settings.Translation.APIKey != "" {
		values = append(values, struct {
			key   string
			value any
		}{keyTranslationAPIKey, settings.Translation.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	for _, name := range settings.Extraction.Order {
		b, ok := settings.Extraction.Backends[name]
		if !ok {
			continue
		}
		if err := s.saveBackend(name, b); err != nil {
			return err
		}
	}
	return nil
}

// Defaults returns the built-in settings.
func (s *SettingsService) Defaults() domain.Settings {
	return domain.DefaultSettings()
}

func (s *SettingsService) saveBackend(name string, b domain.BackendSettings) error {
	fields := map[string]any{
		"provider":            b.Provider.String(),
		"model":               b.Model,
		"base_url":            b.BaseURL,
		"requests_per_second": b.RequestsPerSecond,
		"burst":               b.Burst,
	}
	if b.APIKey != "" {
		fields["api_key"] = b.APIKey
	}
	for field, value := range fields {
		if err := s.configStore.Set(backendKey(name, field), value); err != nil {
			return fmt.Errorf("save backend %s %s: %w", name, field, err)
		}
	}
	return nil
}

// getString returns the stored value or the default if empty.
func (s *SettingsService) getString(key, defaultVal string) string {
	if val := strings.TrimSpace(s.configStore.GetString(key)); val != "" {
		return val
	}
	return defaultVal
}

// getInt returns the stored value or the default if unset.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if secs := s.getFloat(key, 0); secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultVal
}

// getStringSlice returns the stored list, or the default when unset.
// An explicitly empty list is kept.
func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	if v := s.configStore.GetStringSlice(key); v != nil {
		return v
	}
	return []string{}
}
