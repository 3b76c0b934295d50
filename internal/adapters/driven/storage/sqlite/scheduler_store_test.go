package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// ==================== SchedulerStore Tests ====================

func TestSchedulerStore_SaveAndGetTask(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Now().UTC().Truncate(time.Second)
	task := &domain.ScheduledTask{
		ID:          domain.TaskIDCertificateSync,
		Name:        "Certificate Sync",
		Interval:    6 * time.Hour,
		LastRun:     now.Add(-time.Hour),
		NextRun:     now.Add(5 * time.Hour),
		LastSuccess: now.Add(-time.Hour),
		Enabled:     true,
	}
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, domain.TaskIDCertificateSync)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, task.ID, retrieved.ID)
	assert.Equal(t, task.Name, retrieved.Name)
	assert.Equal(t, task.Interval, retrieved.Interval)
	assert.True(t, retrieved.Enabled)
	assert.WithinDuration(t, task.LastRun, retrieved.LastRun, time.Second)
	assert.WithinDuration(t, task.NextRun, retrieved.NextRun, time.Second)
	assert.WithinDuration(t, task.LastSuccess, retrieved.LastSuccess, time.Second)
}

func TestSchedulerStore_GetTask_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	task, err := store.SchedulerStore().GetTask(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestSchedulerStore_SaveTask_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	task := &domain.ScheduledTask{ID: "t1", Name: "Sync", Interval: time.Hour, Enabled: true}
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	task.LastError = "transport: list: status 503: unavailable"
	task.Enabled = false
	require.NoError(t, schedulerStore.SaveTask(ctx, task))

	retrieved, err := schedulerStore.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.LastError, retrieved.LastError)
	assert.False(t, retrieved.Enabled)
}

func TestSchedulerStore_NilArguments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	assert.ErrorIs(t, store.SchedulerStore().SaveTask(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SchedulerStore().RecordResult(ctx, nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_ListTasks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	tasks, err := schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	for _, id := range []string{"b", "a"} {
		require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: id, Name: id, Interval: time.Minute}))
	}

	tasks, err = schedulerStore.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "b", tasks[1].ID)
}

func TestSchedulerStore_RecordResultAndHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
			TaskID:         domain.TaskIDCertificateSync,
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			EndedAt:        base.Add(time.Duration(i)*time.Minute + time.Second),
			Success:        i%2 == 0,
			Error:          fmt.Sprintf("err-%d", i),
			RunID:          fmt.Sprintf("run-%d", i),
			RecordsFetched: i * 10,
		}))
	}

	history, err := schedulerStore.GetTaskHistory(ctx, domain.TaskIDCertificateSync, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 40, history[0].RecordsFetched)
	assert.Equal(t, "run-4", history[0].RunID)
	assert.True(t, history[0].Success)
	assert.Equal(t, "err-3", history[1].Error)
	assert.WithinDuration(t, base.Add(4*time.Minute), history[0].StartedAt, time.Second)

	empty, err := schedulerStore.GetTaskHistory(ctx, "other", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSchedulerStore_PruneHistory(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	base := time.Now().UTC()
	for _, taskID := range []string{"a", "b"} {
		for i := 0; i < 4; i++ {
			require.NoError(t, schedulerStore.RecordResult(ctx, &domain.TaskResult{
				TaskID:    taskID,
				StartedAt: base.Add(time.Duration(i) * time.Second),
				EndedAt:   base.Add(time.Duration(i) * time.Second),
				Success:   true,
			}))
		}
	}

	require.NoError(t, schedulerStore.PruneHistory(ctx, 2))

	for _, taskID := range []string{"a", "b"} {
		history, err := schedulerStore.GetTaskHistory(ctx, taskID, 10)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	}
}

func TestSchedulerStore_TaskWithZeroTimes(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	require.NoError(t, schedulerStore.SaveTask(ctx, &domain.ScheduledTask{ID: "new", Name: "New", Interval: time.Hour}))

	retrieved, err := schedulerStore.GetTask(ctx, "new")
	require.NoError(t, err)
	assert.True(t, retrieved.LastRun.IsZero())
	assert.True(t, retrieved.NextRun.IsZero())
	assert.True(t, retrieved.LastSuccess.IsZero())
	assert.False(t, retrieved.IsDue(time.Now()))
}

// ==================== Helper Tests ====================

func TestFormatAndParseNullableTime(t *testing.T) {
	assert.Nil(t, formatNullableTime(time.Time{}))

	ts := time.Date(2024, 2, 29, 13, 4, 5, 123, time.FixedZone("X", 3600))
	formatted, ok := formatNullableTime(ts).(string)
	require.True(t, ok)
	assert.Equal(t, "2024-02-29T12:04:05.000000123Z", formatted)

	parsed := parseNullableTime(sql.NullString{String: formatted, Valid: true})
	assert.True(t, ts.Equal(parsed))

	legacy := parseNullableTime(sql.NullString{String: "2024-01-01T00:00:00Z", Valid: true})
	assert.Equal(t, 2024, legacy.Year())

	assert.True(t, parseNullableTime(sql.NullString{}).IsZero())
	assert.True(t, parseNullableTime(sql.NullString{String: "garbage", Valid: true}).IsZero())
}

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", nullString("x"))
}
