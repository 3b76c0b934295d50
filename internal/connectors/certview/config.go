package certview

import (
	"net/http"
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

const (
	// TokenTTL is how long a fetched token is reused. Tokens are valid for
	// four hours; refreshing early avoids mid-sync expiry.
	TokenTTL = 3*time.Hour + 30*time.Minute

	// RequestedWith is sent as X-Requested-With on every call.
	RequestedWith = "certsync"
)

// Config holds the connection parameters for the CertView API.
type Config struct {
	ListURL string
	AuthURL string

	Username string
	Password string

	// AuthPayload replaces the username/password body of the token request.
	AuthPayload string

	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             RetryConfig

	// HTTPClient is the base client. Nil uses a client with Timeout.
	HTTPClient *http.Client
}

// ConfigFromSettings builds a Config from resolved application settings.
func ConfigFromSettings(s domain.CertViewSettings) Config {
	retry := DefaultRetry
	if s.MaxRetries > 0 {
		retry.MaxAttempts = s.MaxRetries + 1
	}
	return Config{
		ListURL:           s.ListURL(),
		AuthURL:           s.ResolvedAuthURL(),
		Username:          s.Username,
		Password:          s.Password,
		AuthPayload:       s.AuthPayload,
		Timeout:           s.Timeout,
		RequestsPerSecond: s.RequestsPerSecond,
		Retry:             retry,
	}
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
