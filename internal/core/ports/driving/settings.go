package driving

import "github.com/custodia-labs/certsync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves settings from defaults, the config file and the environment.
	Get() (*domain.AppSettings, error)

	// SetCredentials stores the API username and password.
	SetCredentials(username, password string) error

	// SetPageSize stores the page size used by new full syncs.
	SetPageSize(size int) error

	// UseCredentials applies credentials for this process without saving them.
	UseCredentials(username, password string)
}
