package certview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
	"github.com/custodia-labs/certsync/internal/logger"
)

// Ensure TokenManager implements both token interfaces.
var (
	_ oauth2.TokenSource   = (*TokenManager)(nil)
	_ driven.TokenProvider = (*TokenManager)(nil)
)

// TokenManager fetches and caches the bearer token for the CertView API.
// Tokens are reused for TokenTTL and can be dropped early with Invalidate
// when the API rejects them.
type TokenManager struct {
	cfg    Config
	client *http.Client
	now    func() time.Time

	mu       sync.Mutex
	token    string
	issuedAt time.Time
}

// NewTokenManager creates a token manager for cfg.AuthURL.
func NewTokenManager(cfg Config) *TokenManager {
	return &TokenManager{
		cfg:    cfg,
		client: cfg.httpClient(),
		now:    time.Now,
	}
}

// GetToken returns the cached token or fetches a new one.
func (m *TokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && m.now().Sub(m.issuedAt) < TokenTTL {
		return m.token, nil
	}

	logger.Debug("certview: fetching auth token from %s", m.cfg.AuthURL)
	token, err := m.fetch(ctx)
	if err != nil {
		return "", wrapTokenError(err)
	}
	m.token = token
	m.issuedAt = m.now()
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.issuedAt = time.Time{}
}

// Token implements oauth2.TokenSource. Callers that need cancellation
// should prime the cache with GetToken first.
func (m *TokenManager) Token() (*oauth2.Token, error) {
	token, err := m.GetToken(context.Background())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	expiry := m.issuedAt.Add(TokenTTL)
	m.mu.Unlock()

	return &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: expiry}, nil
}

func (m *TokenManager) requestBody() ([]byte, error) {
	if m.cfg.AuthPayload != "" {
		if !json.Valid([]byte(m.cfg.AuthPayload)) {
			return nil, fmt.Errorf("%w: auth payload is not valid JSON", domain.ErrInvalidInput)
		}
		return []byte(m.cfg.AuthPayload), nil
	}
	if m.cfg.Username == "" || m.cfg.Password == "" {
		return nil, domain.ErrAuthRequired
	}
	return json.Marshal(map[string]string{
		"username": m.cfg.Username,
		"password": m.cfg.Password,
	})
}

// fetch requests a new token, retrying temporary failures (caller holds lock).
func (m *TokenManager) fetch(ctx context.Context) (string, error) {
	body, err := m.requestBody()
	if err != nil {
		return "", err
	}

	var token string
	err = withRetry(ctx, m.cfg.Retry, nil, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.AuthURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Requested-With", RequestedWith)

		resp, err := m.client.Do(req)
		if err != nil {
			return requestError(ctx, "auth", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return requestError(ctx, "auth", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return statusError("auth", resp, data)
		}

		token, err = parseToken(data)
		return err
	})
	return token, err
}

// parseToken accepts {"token": ...}, {"access_token": ...} or a raw body.
func parseToken(body []byte) (string, error) {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		for _, key := range []string{"token", "access_token"} {
			if s, ok := obj[key].(string); ok && s != "" {
				return s, nil
			}
		}
	}

	var quoted string
	if err := json.Unmarshal(body, &quoted); err == nil && quoted != "" {
		return quoted, nil
	}

	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return "", &domain.AuthError{Err: errors.New("token endpoint returned an empty body")}
	}
	return raw, nil
}
