package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/certsync/internal/adapters/driving/tui"
	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
)

var noTUI bool

// pollInterval is how often plain progress output polls the status.
var pollInterval = 500 * time.Millisecond

// stdoutIsTerminal reports whether live progress can use the TUI.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// stdinIsTerminal reports whether missing credentials can be prompted for.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise the certificate inventory",
	Long: `Fetches the remote certificate inventory page by page into the local store.

The checkpoint is saved after every page. Press Ctrl+C once to stop after the
current page; the run can then be continued with "certsync sync resume".
Press Ctrl+C again to abandon the page in flight.`,
}

var syncStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a full sync from the beginning",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSync(cmd, domain.ModeFull)
	},
}

var syncResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume the last sync from its checkpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSync(cmd, domain.ModeResume)
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current sync status",
	RunE:  runSyncStatus,
}

func init() {
	syncCmd.PersistentFlags().BoolVar(&noTUI, "no-tui", false, "print plain progress lines instead of the live view")
	syncCmd.AddCommand(syncStartCmd)
	syncCmd.AddCommand(syncResumeCmd)
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, mode domain.RunMode) error {
	if err := promptCredentials(cmd); err != nil {
		return err
	}

	svc, err := loadServices()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var run *domain.SyncRun
	if mode == domain.ModeFull {
		run, err = svc.Engine.StartFull(ctx)
	} else {
		run, err = svc.Engine.Resume(ctx)
	}
	if err != nil {
		return triggerError(mode, err)
	}

	cmd.Printf("Sync %s started (%s).\n", run.ID, run.Mode)

	if !noTUI && stdoutIsTerminal() {
		err = followWithTUI(ctx, cancel, svc)
	} else {
		err = followPlain(cmd, cancel, svc)
	}
	if err != nil {
		return err
	}

	return reportOutcome(cmd, svc.Status)
}

// promptCredentials asks for a missing username or password on a terminal.
// The answers are used for this run only.
func promptCredentials(cmd *cobra.Command) error {
	if settingsService == nil || !stdinIsTerminal() {
		return nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cv := settings.CertView
	if cv.HasCredentials() {
		return nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	username := cv.Username
	if username == "" {
		cmd.Print("CertView username: ")
		username = readLine(reader)
	}
	cmd.Printf("Password for %s: ", username)
	password := readPassword(reader)
	cmd.Println()

	if username == "" || password == "" {
		return domain.ErrAuthRequired
	}
	settingsService.UseCredentials(username, password)
	return nil
}

func triggerError(mode domain.RunMode, err error) error {
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		return errors.New("a sync is already running")
	case mode == domain.ModeResume && errors.Is(err, domain.ErrInvalidTransition):
		return errors.New(`the last sync completed; use "certsync sync start" for a fresh run`)
	default:
		return fmt.Errorf("failed to start sync: %w", err)
	}
}

// followWithTUI shows the live progress view until the run stops.
func followWithTUI(ctx context.Context, cancel context.CancelFunc, svc *Services) error {
	view, err := tui.NewProgress(tui.NewPorts(svc.Engine, svc.Status))
	if err != nil {
		return err
	}
	if err := view.WithContext(context.WithoutCancel(ctx)).Run(); err != nil {
		cancel()
	}
	if view.Aborted() {
		cancel()
	}
	return svc.Engine.Wait(context.Background())
}

// followPlain prints progress lines and handles interrupts until the run stops.
// The first interrupt requests a stop at the next page boundary, the second
// cancels the run context.
func followPlain(cmd *cobra.Command, cancel context.CancelFunc, svc *Services) error {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	doneCh := make(chan error, 1)
	go func() {
		doneCh <- svc.Engine.Wait(context.Background())
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	interrupted := false
	lastFetched := -1
	for {
		select {
		case err := <-doneCh:
			if lastFetched >= 0 {
				cmd.Println()
			}
			return err

		case <-sigCh:
			if interrupted {
				cmd.Println("\nAborting current page...")
				cancel()
				continue
			}
			interrupted = true
			cmd.Println("\nStopping after the current page (Ctrl+C again to abort)...")
			go func() {
				_ = svc.Engine.Cancel(context.Background())
			}()

		case <-ticker.C:
			// Best effort: a failed poll just skips a progress line.
			status, err := svc.Status.CurrentStatus(context.Background())
			if err == nil && status != nil && status.Fetched != lastFetched {
				cmd.Printf("\rFetched %d records (%d pages)", status.Fetched, status.Pages)
				lastFetched = status.Fetched
			}
		}
	}
}

// reportOutcome prints the final run summary and converts a failed run into
// a command error.
func reportOutcome(cmd *cobra.Command, reporter driving.StatusReporter) error {
	status, err := reporter.CurrentStatus(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read sync status: %w", err)
	}

	cmd.Printf("Sync %s: %d records fetched in %d pages, %d stored.\n",
		status.State, status.Fetched, status.Pages, status.Records)

	switch status.State {
	case domain.RunPaused:
		cmd.Printf("Stopped at checkpoint %s. Continue with \"certsync sync resume\".\n", status.Cursor)
	case domain.RunFailed:
		if status.LastError != nil {
			return fmt.Errorf("sync failed (%s): %s", status.LastError.Kind, status.LastError.Message)
		}
		return errors.New("sync failed")
	}
	return nil
}

func runSyncStatus(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices()
	if err != nil {
		return err
	}

	status, err := svc.Status.CurrentStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read sync status: %w", err)
	}

	printStatus(cmd, status)
	return nil
}

func printStatus(cmd *cobra.Command, status *domain.SyncStatus) {
	cmd.Println("Sync Status")
	cmd.Println("===========")
	cmd.Printf("  State:      %s\n", status.State)
	if status.RunID != "" {
		cmd.Printf("  Run:        %s (%s)\n", status.RunID, status.Mode)
		cmd.Printf("  Started:    %s\n", status.StartedAt.Format(time.RFC3339))
	}
	if status.EndedAt != nil {
		cmd.Printf("  Ended:      %s\n", status.EndedAt.Format(time.RFC3339))
	}
	cmd.Printf("  Fetched:    %d records in %d pages\n", status.Fetched, status.Pages)
	cmd.Printf("  Stored:     %d records\n", status.Records)
	cmd.Printf("  Checkpoint: %s (page size %d)\n", status.Cursor, status.PageSize)
	if status.LastError != nil {
		cmd.Printf("  Last error: %s: %s\n", status.LastError.Kind, status.LastError.Message)
	}
}
