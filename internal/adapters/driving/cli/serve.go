package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/certsync/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/certsync/internal/logger"
)

// shutdownTimeout bounds how long serve waits for requests and the active
// run to stop.
const shutdownTimeout = 30 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run scheduled syncs",
	Long: `Starts the HTTP API for triggering syncs, reading status and exporting data.

When scheduling is enabled in the settings, a sync is also resumed on the
configured interval. On SIGINT or SIGTERM the active run is stopped at a page
boundary before the server exits.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}
	logger.SetTimestamps(true)

	addr := svc.ServerAddress
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Runs started over HTTP live until shutdown, not until their request ends.
	runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRuns()

	handler := httpapi.NewHandler(runCtx, httpapi.Deps{
		Engine:   svc.Engine,
		Status:   svc.Status,
		Export:   svc.Export,
		Mapping:  svc.Mapping,
		Resetter: svc.Resetter,
		Metrics:  svc.Metrics,
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      handler.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // export renders the whole workbook
		IdleTimeout:  60 * time.Second,
	}

	if svc.SchedulerConfig.Enabled && svc.Scheduler != nil {
		go func() {
			if err := svc.Scheduler.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("scheduler stopped: %v", err)
			}
		}()
		defer func() {
			if err := svc.Scheduler.Stop(); err != nil {
				logger.Warn("failed to stop scheduler: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	cmd.Printf("certsync API listening on http://%s\n", ln.Addr())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	cmd.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown: %v", err)
	}
	if err := svc.Engine.Cancel(shutdownCtx); err != nil {
		logger.Warn("failed to stop active run: %v", err)
		cancelRuns()
	}

	cmd.Println("Server stopped")
	return nil
}
