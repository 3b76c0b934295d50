package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/certsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
)

// captureWriter records the sheets it was asked to write.
type captureWriter struct {
	sheets []driven.Sheet
	err    error
}

func (w *captureWriter) Write(out io.Writer, sheets ...driven.Sheet) error {
	if w.err != nil {
		return w.err
	}
	w.sheets = append(w.sheets, sheets...)
	_, err := out.Write([]byte("xlsx"))
	return err
}

func seedRecords(t *testing.T, store *memory.RecordStore, payloads ...map[string]any) {
	t.Helper()
	records := make([]domain.Record, 0, len(payloads))
	for _, p := range payloads {
		records = append(records, domain.NewRecord(p["id"].(string), p, time.Now()))
	}
	_, err := store.Upsert(context.Background(), records)
	require.NoError(t, err)
}

func TestExportService_EmptyStore(t *testing.T) {
	svc := NewExportService(memory.NewRecordStore(), &captureWriter{})

	n, err := svc.Export(context.Background(), &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, n)
}

func TestExportService_Export(t *testing.T) {
	store := memory.NewRecordStore()
	seedRecords(t, store,
		map[string]any{
			"id":           "2",
			"certhash":     "abc",
			"keySize":      json.Number("2048"),
			"issuer":       map[string]any{"name": "CA", "organization": "Org"},
			"sources":      []any{"scan"},
			"unlistedKey":  "dropped",
			"serialNumber": "0A",
		},
		map[string]any{"id": "1", "selfSigned": true},
	)

	writer := &captureWriter{}
	svc := NewExportService(store, writer)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "xlsx", buf.String())

	require.Len(t, writer.sheets, 1)
	sheet := writer.sheets[0]
	assert.Equal(t, ExportSheetName, sheet.Name)
	assert.Equal(t, []string{"id", "certhash", "issuer.name", "keySize", "serialNumber", "selfSigned", "issuer.organization", "sources"}, sheet.Columns)

	// Rows follow ID order; missing values are empty cells.
	assert.Equal(t, []any{"1", nil, nil, nil, nil, true, nil, nil}, sheet.Rows[0])
	assert.Equal(t, []any{"2", "abc", "CA", int64(2048), "0A", nil, "Org", `["scan"]`}, sheet.Rows[1])
}

func TestExportService_WriterError(t *testing.T) {
	store := memory.NewRecordStore()
	seedRecords(t, store, map[string]any{"id": "1"})
	svc := NewExportService(store, &captureWriter{err: errors.New("boom")})

	_, err := svc.Export(context.Background(), &bytes.Buffer{})
	assert.ErrorContains(t, err, "write spreadsheet")
}

func TestExportService_NoWriter(t *testing.T) {
	svc := NewExportService(memory.NewRecordStore(), nil)

	_, err := svc.Export(context.Background(), &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExportService_AllRecordsIsReadOnly(t *testing.T) {
	store := memory.NewRecordStore()
	seedRecords(t, store, map[string]any{"id": "b"}, map[string]any{"id": "a"})
	svc := NewExportService(store, nil)

	records, err := svc.AllRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)

	records[0].Payload["id"] = "mutated"
	again, err := svc.AllRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Payload["id"])
}

func TestFlattenRecord(t *testing.T) {
	rec := domain.Record{
		ID: "7",
		Payload: map[string]any{
			"id":      json.Number("7"),
			"subject": map[string]any{"name": "host", "alt": map[string]any{"dns": "x"}},
			"empty":   map[string]any{},
		},
		MappedToMIP: true,
		MIPStatus:   "Active",
	}

	flat := FlattenRecord(rec)

	assert.Equal(t, "7", flat["id"])
	assert.Equal(t, "host", flat["subject.name"])
	assert.Equal(t, "x", flat["subject.alt.dns"])
	assert.Equal(t, map[string]any{}, flat["empty"])
	assert.Equal(t, true, flat["mapped_to_mip"])
	assert.Equal(t, "Active", flat["mip_status"])
	assert.NotContains(t, flat, "subject")
}

func TestCellValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"string", "s", "s"},
		{"integer number", json.Number("12"), int64(12)},
		{"float number", json.Number("1.5"), 1.5},
		{"float", 2.0, 2.0},
		{"bool", false, false},
		{"list", []any{"a", 1.0}, `["a",1]`},
		{"object", map[string]any{}, `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cellValue(tt.in))
		})
	}
}
