// Package cli provides the cobra commands for certsync.
package cli

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
	"github.com/custodia-labs/certsync/internal/logger"
)

// Services holds the application services the commands drive.
type Services struct {
	Engine          driving.SyncEngine
	Status          driving.StatusReporter
	Export          driving.ExportService
	Mapping         driving.MappingService
	Resetter        driving.Resetter
	Scheduler       driving.Scheduler
	Metrics         driving.MetricsReporter
	SchedulerConfig domain.SchedulerConfig
	ServerAddress   string

	// Close releases the storage handle. May be nil.
	Close func() error
}

var (
	version = "dev"
	verbose bool

	settingsService driving.SettingsService

	serviceFactory func() (*Services, error)
	servicesOnce   sync.Once
	loadedServices *Services
	servicesErr    error
)

var rootCmd = &cobra.Command{
	Use:   "certsync",
	Short: "Resumable certificate inventory sync",
	Long: `certsync mirrors a remote certificate inventory into a local store.

Runs fetch the inventory page by page and checkpoint after every page, so an
interrupted or failed run resumes where it left off instead of starting over.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetSettingsService sets the settings service used by the settings command.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetServiceFactory sets the constructor for the application services.
// It is called at most once, by the first command that needs the services,
// so commands like version never open the store.
func SetServiceFactory(f func() (*Services, error)) {
	serviceFactory = f
	servicesOnce = sync.Once{}
	loadedServices = nil
	servicesErr = nil
}

// loadServices returns the application services, building them on first use.
func loadServices() (*Services, error) {
	servicesOnce.Do(func() {
		if serviceFactory == nil {
			servicesErr = errors.New("services not configured")
			return
		}
		loadedServices, servicesErr = serviceFactory()
		if servicesErr != nil {
			servicesErr = fmt.Errorf("failed to initialise services: %w", servicesErr)
		}
	})
	return loadedServices, servicesErr
}

func closeServices() {
	if loadedServices == nil || loadedServices.Close == nil {
		return
	}
	if err := loadedServices.Close(); err != nil {
		logger.Warn("failed to close store: %v", err)
	}
}
