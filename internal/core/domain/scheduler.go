package domain

import "time"

// TaskIDCertificateSync is the periodic certificate sync task.
const TaskIDCertificateSync = "certificate-sync"

// DefaultSyncInterval is how often serve resumes the sync when scheduling
// is enabled and no interval is configured.
const DefaultSyncInterval = 6 * time.Hour

// ScheduledTask is the persisted state of a recurring task.
// It survives restarts so serve picks up where it left off.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is the failure message of the last run, empty after a success.
	LastError string
}

// IsDue reports whether the task should run at now.
// A task that never ran is due immediately.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	return t.NextRun.IsZero() || !t.NextRun.After(now)
}

// TaskResult is one entry of a task's execution history.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// RunID is the sync run the task triggered, empty when it was skipped
	// because another run was active.
	RunID string

	// RecordsFetched is the number of records the triggered run fetched.
	RecordsFetched int
}

// SchedulerConfig switches the scheduler and its tasks on and off.
type SchedulerConfig struct {
	Enabled     bool
	TaskConfigs map[string]TaskConfig
}

// TaskConfig configures one task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns the configuration for taskID, or a disabled zero
// value when the task is not configured.
func (c SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig returns the scheduler defaults.
// Scheduling is opt-in; serve enables it from settings.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TaskConfigs: map[string]TaskConfig{
			TaskIDCertificateSync: {
				Enabled:  true,
				Interval: DefaultSyncInterval,
			},
		},
	}
}
