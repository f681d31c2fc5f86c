package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider(t *testing.T) {
	assert.True(t, AIProviderOllama.IsValid())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.True(t, AIProviderAnthropic.RequiresAPIKey())
	assert.False(t, AIProvider("gemini").IsValid())
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}

func TestBackendSettings_IsConfigured(t *testing.T) {
	assert.True(t, BackendSettings{Provider: AIProviderOllama}.IsConfigured())
	assert.False(t, BackendSettings{Provider: AIProviderOpenAI}.IsConfigured())
	assert.True(t, BackendSettings{Provider: AIProviderOpenAI, APIKey: "k"}.IsConfigured())
	assert.False(t, BackendSettings{}.IsConfigured())
}

func validSettings() Settings {
	return Settings{
		Pipeline: PipelineSettings{Workers: 4, Store: StoreFilesystem},
		Reducer:  ReducerSettings{Include: []string{"generator"}, Window: 3, MaxLines: 5000},
		Extraction: ExtractionSettings{
			Order:   []string{"local", "cloud"},
			Retries: 1,
			Backends: map[string]BackendSettings{
				"local": {Provider: AIProviderOllama},
				"cloud": {Provider: AIProviderOpenAI, APIKey: "k"},
			},
		},
		Translation: TranslationSettings{Mode: TranslationPassthrough},
	}
}

func TestSettings_Validate(t *testing.T) {
	require.NoError(t, validSettings().Validate())

	mutations := map[string]func(*Settings){
		"no workers":       func(s *Settings) { s.Pipeline.Workers = 0 },
		"zero window":      func(s *Settings) { s.Reducer.Window = 0 },
		"negative cap":     func(s *Settings) { s.Reducer.MaxLines = -1 },
		"no keywords":      func(s *Settings) { s.Reducer.Include = nil },
		"negative retries": func(s *Settings) { s.Extraction.Retries = -1 },
		"empty order":      func(s *Settings) { s.Extraction.Order = nil },
		"unknown backend":  func(s *Settings) { s.Extraction.Order = []string{"remote"} },
		"bad mode":         func(s *Settings) { s.Translation.Mode = "deepl" },
		"bad store":        func(s *Settings) { s.Pipeline.Store = "postgres" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := validSettings()
			mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrUnsupportedType))
		})
	}
}

func TestExtractionSettings_OrderedBackends(t *testing.T) {
	backends, err := validSettings().Extraction.OrderedBackends()
	require.NoError(t, err)
	require.Len(t, backends, 2)
	assert.Equal(t, "local", backends[0].Name)
	assert.Equal(t, AIProviderOpenAI, backends[1].Provider)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	backends, err := s.Extraction.OrderedBackends()
	require.NoError(t, err)
	require.Len(t, backends, 2)
	assert.Equal(t, AIProviderOllama, backends[0].Provider)
	assert.Equal(t, "llama3.1:8b", backends[0].Model)
	assert.Contains(t, s.Reducer.Include, "generator")
	assert.Contains(t, s.Reducer.Exclude, "permit")
	assert.Equal(t, []string{"fr", "nl", "de"}, s.Translation.Languages)
	assert.Equal(t, 1, s.Extraction.Retries)

	// Callers get independent slices.
	s.Reducer.Include[0] = "changed"
	assert.NotEqual(t, "changed", DefaultSettings().Reducer.Include[0])
}
