package certview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// statusError builds the typed error for a non-2xx response.
// 401 and 403 are auth failures; 429 and 5xx are temporary.
func statusError(op string, resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	cause := errors.New(msg)

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &domain.AuthError{StatusCode: code, Err: cause}
	case code == http.StatusTooManyRequests:
		return &domain.TransportError{
			Op:         op,
			StatusCode: code,
			Temporary:  true,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Err:        cause,
		}
	case code >= 500:
		return &domain.TransportError{Op: op, StatusCode: code, Temporary: true, Err: cause}
	default:
		return &domain.TransportError{Op: op, StatusCode: code, Err: cause}
	}
}

// requestError wraps a failure to get any response at all. Network errors
// and client timeouts are temporary. Cancellation of the caller's context is
// returned as is so the engine can tell a pause from a failure.
func requestError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &domain.TransportError{Op: op, Temporary: true, Err: err}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// isAuthError reports whether err is a rejected-credentials failure.
func isAuthError(err error) bool {
	var authErr *domain.AuthError
	return errors.As(err, &authErr)
}

func wrapTokenError(err error) error {
	if err == nil {
		return nil
	}
	var (
		authErr      *domain.AuthError
		transportErr *domain.TransportError
	)
	if errors.As(err, &authErr) || errors.As(err, &transportErr) {
		return err
	}
	return &domain.AuthError{Err: fmt.Errorf("token: %w", err)}
}
