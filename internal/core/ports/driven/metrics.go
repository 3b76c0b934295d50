package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// SyncMetrics records telemetry for the sync engine.
// Implementations must be safe for concurrent use.
type SyncMetrics interface {
	// StartRun opens a run-level span and returns a context carrying it.
	StartRun(ctx context.Context, run *domain.SyncRun) context.Context

	// EndRun closes the run span and records the outcome.
	EndRun(ctx context.Context, run *domain.SyncRun)

	// StartPage opens a page-level span.
	StartPage(ctx context.Context, cursor string) context.Context

	// EndPage closes the page span, recording records written or the error.
	EndPage(ctx context.Context, result domain.UpsertResult, duration time.Duration, err error)
}
