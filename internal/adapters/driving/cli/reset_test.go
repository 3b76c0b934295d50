package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReset_WithYes(t *testing.T) {
	store, buf := setupServices(t, &scriptedRemote{pages: 2})
	require.NoError(t, runCommand("sync", "start", "--no-tui"))

	require.NoError(t, runCommand("reset", "--yes"))

	assert.Contains(t, buf.String(), "Local data cleared.")
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReset_PromptDeclined(t *testing.T) {
	store, buf := setupServices(t, &scriptedRemote{pages: 1})
	require.NoError(t, runCommand("sync", "start", "--no-tui"))

	rootCmd.SetIn(strings.NewReader("n\n"))
	require.NoError(t, runCommand("reset", "--yes=false"))

	assert.Contains(t, buf.String(), "Aborted.")
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReset_PromptAccepted(t *testing.T) {
	store, _ := setupServices(t, &scriptedRemote{pages: 1})
	require.NoError(t, runCommand("sync", "start", "--no-tui"))

	rootCmd.SetIn(strings.NewReader("yes\n"))
	require.NoError(t, runCommand("reset", "--yes=false"))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
