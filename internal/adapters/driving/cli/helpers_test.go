package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/certsync/internal/adapters/driven/spreadsheet"
	"github.com/custodia-labs/certsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
	"github.com/custodia-labs/certsync/internal/core/services"
)

// scriptedRemote serves one record per page and fails at failAt when set.
type scriptedRemote struct {
	pages  int
	failAt int
}

func (f *scriptedRemote) FetchPage(_ context.Context, cursor string, _ int) (*domain.Page, error) {
	index := 0
	if cursor != domain.EpochFloor && cursor != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(cursor, "p"))
		if err != nil {
			return nil, err
		}
		index = n
	}
	if f.failAt > 0 && index == f.failAt {
		return nil, &domain.TransportError{Op: "list", StatusCode: 500, Err: errors.New("upstream down")}
	}

	id := fmt.Sprintf("c%d", index)
	rec := domain.NewRecord(id, map[string]any{
		"id":           id,
		"serialNumber": fmt.Sprintf("SN-%d", index),
	}, time.Now())
	return &domain.Page{
		Records:    []domain.Record{rec},
		Cursor:     cursor,
		NextCursor: fmt.Sprintf("p%d", index+1),
		Done:       index+1 >= f.pages,
	}, nil
}

var _ driven.PageFetcher = (*scriptedRemote)(nil)

// setupServices wires real services over a memory store and installs them
// as the command services. It returns the store and the command output.
func setupServices(t *testing.T, remote driven.PageFetcher) (*memory.RecordStore, *bytes.Buffer) {
	t.Helper()

	store := memory.NewRecordStore()
	engine := services.NewSyncEngine(store, remote, services.SyncEngineOptions{PageSize: 1})
	xlsx := spreadsheet.NewXLSX()

	svc := &Services{
		Engine:   engine,
		Status:   services.NewStatusReporter(engine, store),
		Export:   services.NewExportService(store, xlsx),
		Mapping:  services.NewMappingService(store, xlsx),
		Resetter: engine,
	}
	SetServiceFactory(func() (*Services, error) { return svc, nil })

	oldPoll := pollInterval
	pollInterval = 5 * time.Millisecond

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)

	t.Cleanup(func() {
		_ = engine.Wait(context.Background())
		SetServiceFactory(nil)
		pollInterval = oldPoll
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})
	return store, buf
}

// runCommand executes the root command with args.
func runCommand(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}
