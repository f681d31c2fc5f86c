package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an extraction backend provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or a compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// BackendSettings configures one named extraction backend.
type BackendSettings struct {
	// Name is the key used in the extraction order.
	Name string

	// Provider selects the adapter.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is required for cloud providers.
	APIKey string

	// RequestsPerSecond limits calls to this backend. Zero disables limiting.
	RequestsPerSecond float64

	// Burst is the token bucket size used with RequestsPerSecond.
	Burst int
}

// IsConfigured returns true if the backend can be built.
func (b BackendSettings) IsConfigured() bool {
	if !b.Provider.IsValid() {
		return false
	}
	if b.Provider.RequiresAPIKey() && b.APIKey == "" {
		return false
	}
	return true
}

// ReducerSettings configures the relevance reducer.
type ReducerSettings struct {
	Include []string
	Exclude []string

	// Window is the number of lines marked per seed, the seed included.
	Window int

	// MaxLines caps the excerpt. Zero means no cap.
	MaxLines int
}

// ExtractionSettings configures backend routing.
type ExtractionSettings struct {
	// Order lists backend names, primary first.
	Order []string

	// Retries is the number of attempts after the first.
	Retries int

	// Timeout bounds each backend call.
	Timeout time.Duration

	Backends map[string]BackendSettings
}

// OrderedBackends returns the configured backends in routing order.
func (e ExtractionSettings) OrderedBackends() ([]BackendSettings, error) {
	out := make([]BackendSettings, 0, len(e.Order))
	for _, name := range e.Order {
		b, ok := e.Backends[name]
		if !ok {
			return nil, fmt.Errorf("%w: backend %q is not configured", ErrInvalidInput, name)
		}
		b.Name = name
		out = append(out, b)
	}
	return out, nil
}

// TranslationMode selects how raw text becomes translated text.
type TranslationMode string

// Translation modes.
const (
	// TranslationPassthrough copies raw text unchanged.
	TranslationPassthrough TranslationMode = "passthrough"

	// TranslationLibreTranslate sends non-English text to a LibreTranslate endpoint.
	TranslationLibreTranslate TranslationMode = "libretranslate"
)

// IsValid returns true if the mode is recognised.
func (m TranslationMode) IsValid() bool {
	return m == TranslationPassthrough || m == TranslationLibreTranslate
}

// TranslationSettings configures the translate step.
type TranslationSettings struct {
	Mode   TranslationMode
	URL    string
	APIKey string

	// Languages are ISO 639-1 codes that get translated. Others pass through.
	Languages []string

	// ChunkSize is the maximum number of characters per translation request.
	ChunkSize int
}

// StoreKind selects the artifact store backend.
type StoreKind string

// Artifact store kinds.
const (
	StoreFilesystem StoreKind = "filesystem"
	StoreSQLite     StoreKind = "sqlite"
)

// PipelineSettings configures the orchestrator.
type PipelineSettings struct {
	// Workers is the number of documents processed concurrently within a stage.
	Workers int

	// DataDir holds artifacts and the run ledger.
	DataDir string

	// Store selects the artifact store backend.
	Store StoreKind

	// Metadata is the path of the site metadata table.
	Metadata string
}

// Settings is the resolved application configuration.
type Settings struct {
	Pipeline    PipelineSettings
	Reducer     ReducerSettings
	Extraction  ExtractionSettings
	Translation TranslationSettings
}

// DefaultAssetKeywords are the inclusion terms used when none are configured.
// They cover power generation, electrical plant, storage, thermal, cooling,
// fuels, mechanical plant and capacity wording.
func DefaultAssetKeywords() []string {
	return []string{
		// Power generation
		"furnace", "generator", "genset", "diesel generator", "gas generator",
		"emergency generator", "backup generator",
		"turbine", "gas turbine", "steam turbine",
		"engine", "internal combustion engine", "combustion engine",

		// Electrical
		"transformer", "power transformer", "distribution transformer",
		"substation", "switchgear", "circuit breaker",
		"electrical panel", "electrical installation",

		// Energy storage
		"battery", "batteries", "battery system", "battery storage",
		"energy storage", "bess", "ups", "uninterruptible power supply",

		// Power units
		"kw", "mw", "kva", "mva", "kwh", "mwh", "vah",

		// Thermal
		"boiler", "steam boiler", "hot water boiler",
		"heater", "kiln", "burner", "oven",
		"glass furnace", "melting furnace",

		// Cooling
		"chiller", "cooling system", "cooling unit", "cooling tower",
		"heat pump", "hvac", "air conditioning",

		// Gases and fuel
		"hydrogen", "h2", "electrolyser", "electrolyzer", "reformer",
		"natural gas", "gas installation", "nm3/h", "m3/h", "diesel",
		"fuel oil", "light fuel oil", "heavy fuel oil",

		// Mechanical
		"compressor", "air compressor", "pump", "industrial pump",
		"motor", "electric motor", "fan",

		// Storage
		"tank", "storage tank", "well", "groundwater", "water well",
		"storage capacity", "storage volume", "container",

		// Grid and demand
		"load shedding", "peak shaving",
		"demand response", "flexibility",
		"energy management", "ems",

		// General capacity terms
		"capacity", "rated power", "nominal power", "maximum power",
		"installed power", "thermal input", "rated thermal",
		"production capacity", "tonnes per day", "tonnes/day",
		"litres", "m3", "nm3",
	}
}

// DefaultExcludeKeywords mark regulatory and emission-limit lines.
func DefaultExcludeKeywords() []string {
	return []string{
		"hydrogen fluoride", "sodium hydroxide", "emission", "limit",
		"concentration", "mg/nm3", "regulation", "decree", "permit",
		"compliance", "monitoring", "sampling", "standard", "requirement",
	}
}

// Default settings values.
const (
	DefaultWorkers        = 4
	DefaultContextWindow  = 3
	DefaultMaxLines       = 5000
	DefaultRetries        = 1
	DefaultCallTimeout    = 120 * time.Second
	DefaultChunkSize      = 3000
	DefaultOllamaModel    = "llama3.1:8b"
	DefaultSecondaryModel = "gpt-4o-mini"
)

// DefaultSettings returns the settings used when nothing is configured:
// a local Ollama primary, an OpenAI secondary and passthrough translation.
func DefaultSettings() Settings {
	return Settings{
		Pipeline: PipelineSettings{
			Workers: DefaultWorkers,
			Store:   StoreFilesystem,
		},
		Reducer: ReducerSettings{
			Include:  DefaultAssetKeywords(),
			Exclude:  DefaultExcludeKeywords(),
			Window:   DefaultContextWindow,
			MaxLines: DefaultMaxLines,
		},
		Extraction: ExtractionSettings{
			Order:   []string{"primary", "secondary"},
			Retries: DefaultRetries,
			Timeout: DefaultCallTimeout,
			Backends: map[string]BackendSettings{
				"primary": {
					Name:     "primary",
					Provider: AIProviderOllama,
					Model:    DefaultOllamaModel,
				},
				"secondary": {
					Name:     "secondary",
					Provider: AIProviderOpenAI,
					Model:    DefaultSecondaryModel,
				},
			},
		},
		Translation: TranslationSettings{
			Mode:      TranslationPassthrough,
			Languages: []string{"fr", "nl", "de"},
			ChunkSize: DefaultChunkSize,
		},
	}
}

// Validate checks that the settings can drive a run.
func (s Settings) Validate() error {
	if s.Pipeline.Workers < 1 {
		return fmt.Errorf("%w: pipeline.workers must be at least 1", ErrInvalidInput)
	}
	if s.Reducer.Window < 1 {
		return fmt.Errorf("%w: reducer.window must be at least 1", ErrInvalidInput)
	}
	if s.Reducer.MaxLines < 0 {
		return fmt.Errorf("%w: reducer.max_lines must not be negative", ErrInvalidInput)
	}
	if len(s.Reducer.Include) == 0 {
		return fmt.Errorf("%w: reducer.include must list at least one keyword", ErrInvalidInput)
	}
	if s.Extraction.Retries < 0 {
		return fmt.Errorf("%w: extraction.retries must not be negative", ErrInvalidInput)
	}
	if len(s.Extraction.Order) == 0 {
		return fmt.Errorf("%w: extraction.order must name at least one backend", ErrInvalidInput)
	}
	if _, err := s.Extraction.OrderedBackends(); err != nil {
		return err
	}
	if !s.Translation.Mode.IsValid() {
		return fmt.Errorf("%w: translation.mode %q", ErrUnsupportedType, s.Translation.Mode)
	}
	if s.Pipeline.Store != StoreFilesystem && s.Pipeline.Store != StoreSQLite {
		return fmt.Errorf("%w: pipeline.store %q", ErrUnsupportedType, s.Pipeline.Store)
	}
	return nil
}
