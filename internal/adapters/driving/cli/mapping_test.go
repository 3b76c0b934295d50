package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/certsync/internal/adapters/driven/spreadsheet"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
)

func writeInventory(t *testing.T, rows [][]any) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "inventory.xlsx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, spreadsheet.NewXLSX().Write(f, driven.Sheet{
		Name:    "Inventory",
		Columns: []string{"Certificate Serial Number", "Certificate Name", "Certificate Status"},
		Rows:    rows,
	}))
	return path
}

func TestMappingImport_AppliesToStoredRecords(t *testing.T) {
	store, buf := setupServices(t, &scriptedRemote{pages: 3})
	require.NoError(t, runCommand("sync", "start", "--no-tui"))
	buf.Reset()

	path := writeInventory(t, [][]any{
		{"SN-0", "a.example.com", "Active"},
		{"SN-2", "c.example.com", "Expired"},
	})
	require.NoError(t, runCommand("mapping", "import", path))

	assert.Contains(t, buf.String(), "Imported 2 inventory rows.")
	assert.Contains(t, buf.String(), "Marked 2 certificates as mapped.")

	records, err := store.AllRecords(context.Background())
	require.NoError(t, err)
	mapped := map[string]string{}
	for _, rec := range records {
		if rec.MappedToMIP {
			mapped[rec.ID] = rec.MIPStatus
		}
	}
	assert.Equal(t, map[string]string{"c0": "Active", "c2": "Expired"}, mapped)
}

func TestMappingApply_SkipsAlreadyMapped(t *testing.T) {
	_, buf := setupServices(t, &scriptedRemote{pages: 2})
	require.NoError(t, runCommand("sync", "start", "--no-tui"))
	require.NoError(t, runCommand("mapping", "import", writeInventory(t, [][]any{{"SN-1", "b", "Active"}})))
	buf.Reset()

	require.NoError(t, runCommand("mapping", "apply"))

	assert.Contains(t, buf.String(), "Marked 0 certificates as mapped.")
}

func TestMappingImport_MissingFile(t *testing.T) {
	setupServices(t, &scriptedRemote{pages: 1})

	err := runCommand("mapping", "import", filepath.Join(t.TempDir(), "nope.xlsx"))

	assert.ErrorContains(t, err, "failed to open")
}

func TestMappingImport_RequiresArg(t *testing.T) {
	setupServices(t, &scriptedRemote{pages: 1})

	err := runCommand("mapping", "import")

	assert.Error(t, err)
}
