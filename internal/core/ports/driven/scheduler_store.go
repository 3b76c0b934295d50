package driven

import (
	"context"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// SchedulerStore keeps scheduled task state and run history so serve can
// honour intervals across restarts.
type SchedulerStore interface {
	// GetTask returns the task with taskID, or nil and no error if unknown.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask inserts or replaces the task with the same ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// RecordResult appends one execution to the task history.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// GetTaskHistory returns up to limit results for taskID, newest first.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory drops all but the newest keep results of every task.
	PruneHistory(ctx context.Context, keep int) error
}
