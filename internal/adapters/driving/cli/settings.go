package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the CertView connection and sync options.

Settings are read from ~/.certsync/config.toml. QUALYS_* environment variables
override the file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsCredentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Set the CertView username and password",
	Long:  `Prompts for the CertView username and password and saves them to the config file.`,
	RunE:  runSettingsCredentials,
}

var settingsPageSizeCmd = &cobra.Command{
	Use:   "page-size <n>",
	Short: "Set the number of records requested per page",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsPageSize,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsCredentialsCmd)
	settingsCmd.AddCommand(settingsPageSizeCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cv := settings.CertView
	cmd.Println("[CertView]")
	cmd.Printf("  Base URL: %s\n", cv.BaseURL)
	cmd.Printf("  List Endpoint: %s\n", cv.ListEndpoint)
	cmd.Printf("  Auth URL: %s\n", cv.ResolvedAuthURL())
	if cv.Username != "" {
		cmd.Printf("  Username: %s\n", cv.Username)
	} else {
		cmd.Printf("  Username: (not set)\n")
	}
	if cv.Password != "" {
		cmd.Printf("  Password: %s\n", maskAPIKey(cv.Password))
	} else {
		cmd.Printf("  Password: (not set)\n")
	}
	if cv.AuthPayload != "" {
		cmd.Printf("  Auth Payload: (set)\n")
	}
	cmd.Printf("  Timeout: %s\n", cv.Timeout)
	cmd.Printf("  Page Size: %d\n", cv.PageSize)
	cmd.Printf("  Max Retries: %d\n", cv.MaxRetries)
	cmd.Printf("  Requests/sec: %g\n", cv.RequestsPerSecond)
	status := "configured"
	if err := cv.Validate(); err != nil {
		status = fmt.Sprintf("not configured (%v)", err)
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println("[Sync]")
	if settings.Sync.DataDir != "" {
		cmd.Printf("  Data Dir: %s\n", settings.Sync.DataDir)
	}
	if settings.Sync.ScheduleEnabled {
		cmd.Printf("  Schedule: every %s\n", settings.Sync.ScheduleInterval)
	} else {
		cmd.Printf("  Schedule: disabled\n")
	}
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Address)

	return nil
}

func runSettingsCredentials(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Print("Username: ")
	username := readLine(reader)
	if username == "" {
		return errors.New("username is required")
	}

	cmd.Print("Password: ")
	password := readPassword(reader)
	cmd.Println()
	if password == "" {
		return errors.New("password is required")
	}

	if err := settingsService.SetCredentials(username, password); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	cmd.Println("Credentials saved.")
	return nil
}

func runSettingsPageSize(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	size, err := strconv.Atoi(args[0])
	if err != nil || size <= 0 {
		return fmt.Errorf("page size must be a positive integer, got %q", args[0])
	}

	if err := settingsService.SetPageSize(size); err != nil {
		return fmt.Errorf("failed to save page size: %w", err)
	}

	cmd.Printf("Page size set to %d.\n", size)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readPassword reads without echo when stdin is a terminal and falls back to
// a plain line read otherwise.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
