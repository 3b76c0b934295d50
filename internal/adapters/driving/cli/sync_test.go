package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync", syncCmd.Use)
	assert.Contains(t, syncCmd.Long, "Ctrl+C")
}

func TestSyncCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0, len(syncCmd.Commands()))
	for _, c := range syncCmd.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"start", "resume", "status"}, names)
}

func TestSyncStart_RunsToCompletion(t *testing.T) {
	store, buf := setupServices(t, &scriptedRemote{pages: 3})

	err := runCommand("sync", "start", "--no-tui")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "(full)")
	assert.Contains(t, buf.String(), "Sync completed: 3 records fetched in 3 pages, 3 stored.")

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSyncResume_ContinuesAfterFailure(t *testing.T) {
	remote := &scriptedRemote{pages: 4, failAt: 2}
	store, buf := setupServices(t, remote)

	err := runCommand("sync", "start", "--no-tui")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed (transport)")

	cp, err := store.LoadCheckpoint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p2", cp.Cursor)

	remote.failAt = 0
	buf.Reset()
	err = runCommand("sync", "resume", "--no-tui")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "(resume)")
	assert.Contains(t, buf.String(), "Sync completed: 2 records fetched in 2 pages, 4 stored.")
}

func TestSyncResume_AfterCompletion(t *testing.T) {
	setupServices(t, &scriptedRemote{pages: 1})
	require.NoError(t, runCommand("sync", "start", "--no-tui"))

	err := runCommand("sync", "resume", "--no-tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "certsync sync start")
}

func TestSyncStatus(t *testing.T) {
	_, buf := setupServices(t, &scriptedRemote{pages: 2})

	require.NoError(t, runCommand("sync", "status"))
	assert.Contains(t, buf.String(), "State:      idle")
	assert.Contains(t, buf.String(), "Checkpoint: "+domain.EpochFloor)

	require.NoError(t, runCommand("sync", "start", "--no-tui"))
	buf.Reset()

	require.NoError(t, runCommand("sync", "status"))
	assert.Contains(t, buf.String(), "State:      completed")
	assert.Contains(t, buf.String(), "Stored:     2 records")
	assert.Contains(t, buf.String(), "Checkpoint: p2")
}

func TestTriggerError(t *testing.T) {
	tests := []struct {
		name string
		mode domain.RunMode
		err  error
		want string
	}{
		{"running", domain.ModeFull, domain.ErrSyncInProgress, "a sync is already running"},
		{"completed", domain.ModeResume, domain.ErrInvalidTransition, "certsync sync start"},
		{"other", domain.ModeFull, domain.ErrNotFound, "failed to start sync: not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, triggerError(tt.mode, tt.err).Error(), tt.want)
		})
	}
}

func TestLoadServices_NotConfigured(t *testing.T) {
	SetServiceFactory(nil)

	err := runCommand("sync", "status")

	assert.ErrorContains(t, err, "services not configured")
}

func TestPromptCredentials(t *testing.T) {
	oldTerminal := stdinIsTerminal
	defer func() { stdinIsTerminal = oldTerminal }()

	t.Run("not a terminal", func(t *testing.T) {
		stdinIsTerminal = func() bool { return false }
		svc := newFakeSettingsService()
		setupSettingsTest(t, svc)

		require.NoError(t, promptCredentials(syncStartCmd))
		assert.Empty(t, svc.settings.CertView.Password)
	})

	t.Run("prompts for missing values", func(t *testing.T) {
		stdinIsTerminal = func() bool { return true }
		svc := newFakeSettingsService()
		buf := setupSettingsTest(t, svc)
		rootCmd.SetIn(strings.NewReader("analyst\nhunter2\n"))

		require.NoError(t, promptCredentials(syncStartCmd))
		assert.Equal(t, "analyst", svc.settings.CertView.Username)
		assert.Equal(t, "hunter2", svc.settings.CertView.Password)
		assert.Contains(t, buf.String(), "Password for analyst")
	})

	t.Run("empty answer", func(t *testing.T) {
		stdinIsTerminal = func() bool { return true }
		setupSettingsTest(t, newFakeSettingsService())
		rootCmd.SetIn(strings.NewReader("\n\n"))

		assert.ErrorIs(t, promptCredentials(syncStartCmd), domain.ErrAuthRequired)
	})

	t.Run("already configured", func(t *testing.T) {
		stdinIsTerminal = func() bool { return true }
		svc := newFakeSettingsService()
		svc.settings.CertView.Username = "u"
		svc.settings.CertView.Password = "p"
		setupSettingsTest(t, svc)

		require.NoError(t, promptCredentials(syncStartCmd))
		assert.Equal(t, "p", svc.settings.CertView.Password)
	})
}
