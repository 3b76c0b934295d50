package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyBaseURL           = "certview.base_url"
	keyListEndpoint      = "certview.list_endpoint"
	keyAuthURL           = "certview.auth_url"
	keyUsername          = "certview.username"
	keyPassword          = "certview.password"
	keyAuthPayload       = "certview.auth_payload"
	keyTimeout           = "certview.timeout"
	keyPageSize          = "certview.page_size"
	keyMaxRetries        = "certview.max_retries"
	keyRequestsPerSecond = "certview.requests_per_second"
	keyDataDir           = "sync.data_dir"
	keyScheduleEnabled   = "scheduler.enabled"
	keyScheduleInterval  = "scheduler.interval"
	keyServerAddress     = "server.address"
)

// Environment variables that override the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvBaseURL      = "QUALYS_BASE_URL"
	EnvListEndpoint = "QUALYS_CERTVIEW_LIST_ENDPOINT"
	EnvAuthURL      = "QUALYS_AUTH_URL"
	EnvAuthEndpoint = "QUALYS_INTERNAL_AUTH_ENDPOINT"
	EnvUsername     = "QUALYS_USERNAME"
	EnvPassword     = "QUALYS_PASSWORD"
	EnvAuthPayload  = "QUALYS_INTERNAL_AUTH_PAYLOAD"
	EnvTimeoutSecs  = "QUALYS_TIMEOUT_SECS"
	EnvTimeoutAlt   = "REQUEST_TIMEOUT"
	EnvPageSize     = "PAGE_SIZE"
)

// SettingsService resolves settings from defaults, the config file and
// the environment, in increasing order of precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)

	mu      sync.RWMutex
	session *sessionCredentials
}

// sessionCredentials are held in memory only and override every other source.
type sessionCredentials struct {
	username string
	password string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		CertView: domain.CertViewSettings{
			BaseURL:           s.getString(keyBaseURL, defaults.CertView.BaseURL),
			ListEndpoint:      s.getString(keyListEndpoint, defaults.CertView.ListEndpoint),
			AuthURL:           s.configStore.GetString(keyAuthURL), // Empty derives from BaseURL
			Username:          s.configStore.GetString(keyUsername),
			Password:          s.configStore.GetString(keyPassword),
			AuthPayload:       s.configStore.GetString(keyAuthPayload),
			Timeout:           s.getDuration(keyTimeout, defaults.CertView.Timeout),
			PageSize:          s.getInt(keyPageSize, defaults.CertView.PageSize),
			MaxRetries:        s.getInt(keyMaxRetries, defaults.CertView.MaxRetries),
			RequestsPerSecond: s.getFloat(keyRequestsPerSecond, defaults.CertView.RequestsPerSecond),
		},
		Sync: domain.SyncSettings{
			DataDir:          s.configStore.GetString(keyDataDir),
			ScheduleEnabled:  s.getBool(keyScheduleEnabled, defaults.Sync.ScheduleEnabled),
			ScheduleInterval: s.getDuration(keyScheduleInterval, defaults.Sync.ScheduleInterval),
		},
		Server: domain.ServerSettings{
			Address: s.getString(keyServerAddress, defaults.Server.Address),
		},
	}

	if err := s.applyEnv(&settings.CertView); err != nil {
		return nil, err
	}

	s.mu.RLock()
	if s.session != nil {
		if s.session.username != "" {
			settings.CertView.Username = s.session.username
		}
		settings.CertView.Password = s.session.password
	}
	s.mu.RUnlock()

	return settings, nil
}

// UseCredentials applies credentials for the life of the process without
// saving them. An empty username keeps the configured one.
func (s *SettingsService) UseCredentials(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &sessionCredentials{username: strings.TrimSpace(username), password: password}
}

// applyEnv overlays environment variables onto the CertView settings.
func (s *SettingsService) applyEnv(cv *domain.CertViewSettings) error {
	if v, ok := s.env(EnvBaseURL); ok {
		cv.BaseURL = v
	}
	if v, ok := s.env(EnvListEndpoint); ok {
		cv.ListEndpoint = v
	}
	if v, ok := s.env(EnvAuthURL); ok {
		cv.AuthURL = v
	} else if v, ok := s.env(EnvAuthEndpoint); ok {
		cv.AuthURL = strings.TrimRight(cv.BaseURL, "/") + v
	}
	if v, ok := s.env(EnvUsername); ok {
		cv.Username = v
	}
	if v, ok := s.env(EnvPassword); ok {
		cv.Password = v
	}
	if v, ok := s.env(EnvAuthPayload); ok {
		cv.AuthPayload = v
	}

	timeout, ok := s.env(EnvTimeoutSecs)
	if !ok {
		timeout, ok = s.env(EnvTimeoutAlt)
	}
	if ok {
		secs, err := strconv.Atoi(timeout)
		if err != nil || secs <= 0 {
			return fmt.Errorf("%w: %s must be a positive number of seconds", domain.ErrInvalidInput, EnvTimeoutSecs)
		}
		cv.Timeout = time.Duration(secs) * time.Second
	}

	if v, ok := s.env(EnvPageSize); ok {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, EnvPageSize)
		}
		cv.PageSize = size
	}
	return nil
}

// SetCredentials stores the API username and password.
func (s *SettingsService) SetCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(keyUsername, strings.TrimSpace(username)); err != nil {
		return fmt.Errorf("save username: %w", err)
	}
	if err := s.configStore.Set(keyPassword, password); err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	return nil
}

// SetPageSize stores the page size used by new full syncs.
func (s *SettingsService) SetPageSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: page size must be positive", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(keyPageSize, size); err != nil {
		return fmt.Errorf("save page size: %w", err)
	}
	return nil
}

// GetSchedulerConfig returns the scheduler configuration.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = s.getBool(keyScheduleEnabled, cfg.Enabled)

	task := cfg.TaskConfigs[domain.TaskIDCertificateSync]
	task.Interval = s.getDuration(keyScheduleInterval, task.Interval)
	cfg.TaskConfigs[domain.TaskIDCertificateSync] = task
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) env(name string) (string, bool) {
	v, ok := s.lookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}
