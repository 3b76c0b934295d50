package certview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/certsync/internal/logger"
)

// FilterClause is one condition of a list request.
type FilterClause struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Operator string `json:"operator"`
}

// Filter combines clauses with a boolean operation.
type Filter struct {
	Filters   []FilterClause `json:"filters"`
	Operation string         `json:"operation"`
}

// ListRequest is the body of a certificate list call.
type ListRequest struct {
	Filter     Filter `json:"filter"`
	PageNumber int    `json:"pageNumber"`
	PageSize   int    `json:"pageSize"`
}

// NewListRequest asks for leaf certificates whose validFromDate lies in [start, end].
func NewListRequest(start, end time.Time, page, pageSize int) ListRequest {
	return ListRequest{
		Filter: Filter{
			Filters: []FilterClause{
				{Field: "certificate.type", Value: "Leaf", Operator: "EQUALS"},
				{Field: "certificate.validFromDate", Value: start.UTC().Format(dateLayout), Operator: "GREATER_THAN_EQUAL"},
				{Field: "certificate.validFromDate", Value: end.UTC().Format(dateLayout), Operator: "LESS_THAN_EQUAL"},
			},
			Operation: "AND",
		},
		PageNumber: page,
		PageSize:   pageSize,
	}
}

// Client talks to the CertView list endpoint with rate limiting, retries
// and bearer authentication.
type Client struct {
	cfg         Config
	http        *http.Client
	tokens      *TokenManager
	rateLimiter *RateLimiter
}

// NewClient creates a client. A nil tokens builds a TokenManager from cfg.
func NewClient(cfg Config, tokens *TokenManager) *Client {
	if tokens == nil {
		tokens = NewTokenManager(cfg)
	}

	base := cfg.httpClient()
	authed := *base
	authed.Transport = &oauth2.Transport{Source: tokens, Base: base.Transport}

	return &Client{
		cfg:         cfg,
		http:        &authed,
		tokens:      tokens,
		rateLimiter: NewRateLimiter(cfg.RequestsPerSecond),
	}
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// List posts a list request and returns the raw response body.
// A 401 or 403 drops the cached token and retries once with a fresh one.
func (c *Client) List(ctx context.Context, req ListRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode list request: %w", err)
	}

	body, err := c.post(ctx, payload)
	if isAuthError(err) {
		logger.Warn("certview: token rejected, refreshing: %v", err)
		c.tokens.Invalidate()
		body, err = c.post(ctx, payload)
	}
	return body, err
}

func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	// Fetch the token under ctx so the transport only ever hits the cache.
	if _, err := c.tokens.GetToken(ctx); err != nil {
		return nil, err
	}

	var body []byte
	err := withRetry(ctx, c.cfg.Retry, c.rateLimiter, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ListURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build list request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Requested-With", RequestedWith)

		resp, err := c.http.Do(req)
		if err != nil {
			return requestError(ctx, "list", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return requestError(ctx, "list", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return statusError("list", resp, data)
		}
		body = data
		return nil
	})
	return body, err
}
