package driving

import "github.com/custodia-labs/permit-assets/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves settings from configuration, filling unset keys with defaults.
	Get() (*domain.Settings, error)

	// Save persists settings.
	Save(settings *domain.Settings) error

	// Defaults returns the built-in settings.
	Defaults() domain.Settings
}
