package driven

import (
	"context"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// PageFetcher requests one page of records from the remote API.
//
// FetchPage must be free of side effects beyond the remote call itself:
// calling it twice with the same cursor is safe. Transient transport
// failures are retried internally; anything returned is final for the page.
type PageFetcher interface {
	// FetchPage returns the page starting at cursor. An empty cursor is
	// treated as domain.EpochFloor.
	FetchPage(ctx context.Context, cursor string, pageSize int) (*domain.Page, error)
}

