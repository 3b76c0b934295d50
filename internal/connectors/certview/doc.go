// Package certview implements the page fetcher for the Qualys CertView
// certificate inventory API.
//
// # Architecture
//
// The connector follows the driven port pattern defined in [driven.PageFetcher].
// It comprises the following components:
//
//   - Fetcher: maps cursors to list requests and validates each page
//   - Client: posts list requests with rate limiting, retries and auth
//   - TokenManager: fetches and caches the bearer token
//   - Cursor: the resumable position in the inventory
//
// # Cursor
//
// The list API filters by validFromDate, so the inventory is walked in
// calendar-year windows starting at 1900 and paged within each window.
// A cursor is encoded as "<window start RFC3339>[#<page>]":
//
//	1900-01-01T00:00:00Z      first page of 1900
//	2019-01-01T00:00:00Z#3    fourth page of 2019
//
// A page shorter than the page size moves to the next year. The window
// after the current year is exhausted and the sync is done.
//
// # Authentication
//
// TokenManager posts the configured credentials (or a raw JSON payload) to
// the auth URL. The response may be {"token": ...}, {"access_token": ...}
// or the token as plain text. Tokens are cached for three and a half hours.
// A 401 or 403 from the list endpoint invalidates the cache and the request
// is tried once more with a fresh token before failing with [domain.AuthError].
//
// # Rate Limiting and Retries
//
// A token bucket throttles requests proactively. Network errors, timeouts,
// 429 and 5xx responses are retried with exponential backoff and jitter up
// to the configured attempt budget. A Retry-After header pauses all requests
// for the requested time, capped at the maximum backoff. Other 4xx responses
// fail immediately.
package certview
