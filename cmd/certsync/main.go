// Command certsync mirrors a remote certificate inventory into a local store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/certsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/certsync/internal/adapters/driven/spreadsheet"
	"github.com/custodia-labs/certsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/certsync/internal/adapters/driven/telemetry"
	"github.com/custodia-labs/certsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/certsync/internal/connectors/certview"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
	"github.com/custodia-labs/certsync/internal/core/services"
	"github.com/custodia-labs/certsync/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)

	configStore, err := file.NewConfigStore("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open config: %v\n", err)
		os.Exit(1)
	}
	settingsService := services.NewSettingsService(configStore)
	cli.SetSettingsService(settingsService)
	cli.SetServiceFactory(func() (*cli.Services, error) {
		return buildServices(settingsService)
	})

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildServices wires the storage, connector and services.
func buildServices(settingsService *services.SettingsService) (*cli.Services, error) {
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	store, err := sqlite.NewStore(settings.Sync.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("Using database %s", store.Path())

	cfg := certview.ConfigFromSettings(settings.CertView)
	client := certview.NewClient(cfg, certview.NewTokenManager(cfg))

	provider := telemetry.NewProvider()
	var metrics driven.SyncMetrics
	if recorder, err := telemetry.NewRecorder(provider.RecorderOptions()...); err != nil {
		logger.Warn("telemetry disabled: %v", err)
	} else {
		metrics = recorder
	}

	records := store.RecordStore()
	engine := services.NewSyncEngine(records, certview.NewFetcher(client), services.SyncEngineOptions{
		PageSize: settings.CertView.PageSize,
		Metrics:  metrics,
	})

	xlsx := spreadsheet.NewXLSX()
	status := services.NewStatusReporter(engine, records)
	schedulerConfig := settingsService.GetSchedulerConfig()

	return &cli.Services{
		Engine:          engine,
		Status:          status,
		Export:          services.NewExportService(records, xlsx),
		Mapping:         services.NewMappingService(store.MappingStore(), xlsx),
		Resetter:        engine,
		Scheduler:       services.NewScheduler(schedulerConfig, store.SchedulerStore(), engine, status),
		SchedulerConfig: schedulerConfig,
		Metrics:         provider,
		ServerAddress:   settings.Server.Address,
		Close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return errors.Join(provider.Shutdown(ctx), store.Close())
		},
	}, nil
}
