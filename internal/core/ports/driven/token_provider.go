package driven

import "context"

// TokenProvider provides bearer tokens for authenticated API calls.
// Implementations cache the token and refresh it transparently.
type TokenProvider interface {
	// GetToken returns a valid access token, fetching one if needed.
	GetToken(ctx context.Context) (string, error)

	// Invalidate drops the cached token after the API rejected it.
	Invalidate()
}
