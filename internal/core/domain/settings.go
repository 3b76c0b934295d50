package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults taken from the CertView deployment the tool was built for.
const (
	DefaultBaseURL           = "https://gateway.qg1.apps.qualys.com"
	DefaultListEndpoint      = "/certview/v2/certificates/list"
	DefaultAuthEndpoint      = "/auth/token"
	DefaultTimeout           = 60 * time.Second
	DefaultPageSize          = 50
	DefaultMaxRetries        = 3
	DefaultRequestsPerSecond = 2.0
	DefaultServerAddress     = "127.0.0.1:5000"
)

// CertViewSettings configures the remote certificate inventory API.
type CertViewSettings struct {
	BaseURL      string
	ListEndpoint string

	// AuthURL is the token endpoint. Empty means BaseURL + DefaultAuthEndpoint.
	AuthURL string

	Username string
	Password string

	// AuthPayload, when set, is sent verbatim as the JSON body of the token
	// request instead of the username and password.
	AuthPayload string

	Timeout           time.Duration
	PageSize          int
	MaxRetries        int
	RequestsPerSecond float64
}

// ResolvedAuthURL returns AuthURL or the default derived from BaseURL.
func (s CertViewSettings) ResolvedAuthURL() string {
	if s.AuthURL != "" {
		return s.AuthURL
	}
	return strings.TrimRight(s.BaseURL, "/") + DefaultAuthEndpoint
}

// ListURL returns the full list endpoint URL.
func (s CertViewSettings) ListURL() string {
	return strings.TrimRight(s.BaseURL, "/") + s.ListEndpoint
}

// HasCredentials reports whether a token request can be built.
func (s CertViewSettings) HasCredentials() bool {
	return s.AuthPayload != "" || (s.Username != "" && s.Password != "")
}

// Validate checks the settings are usable for a sync.
func (s CertViewSettings) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base url %q", ErrInvalidInput, s.BaseURL)
	}
	if !strings.HasPrefix(s.ListEndpoint, "/") {
		return fmt.Errorf("%w: list endpoint must start with /", ErrInvalidInput)
	}
	if s.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be positive", ErrInvalidInput)
	}
	if !s.HasCredentials() {
		return ErrAuthRequired
	}
	return nil
}

// SyncSettings configures local storage and scheduling.
type SyncSettings struct {
	// DataDir holds the SQLite database. Empty means ~/.certsync/data.
	DataDir string

	ScheduleEnabled  bool
	ScheduleInterval time.Duration
}

// ServerSettings configures the HTTP trigger surface.
type ServerSettings struct {
	Address string
}

// AppSettings aggregates all settings.
type AppSettings struct {
	CertView CertViewSettings
	Sync     SyncSettings
	Server   ServerSettings
}

// DefaultAppSettings returns sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		CertView: CertViewSettings{
			BaseURL:           DefaultBaseURL,
			ListEndpoint:      DefaultListEndpoint,
			Timeout:           DefaultTimeout,
			PageSize:          DefaultPageSize,
			MaxRetries:        DefaultMaxRetries,
			RequestsPerSecond: DefaultRequestsPerSecond,
		},
		Sync: SyncSettings{
			ScheduleInterval: DefaultSchedulerConfig().GetTaskConfig(TaskIDCertificateSync).Interval,
		},
		Server: ServerSettings{
			Address: DefaultServerAddress,
		},
	}
}
