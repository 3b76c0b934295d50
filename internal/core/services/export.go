package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
)

// Ensure ExportService implements the interface.
var _ driving.ExportService = (*ExportService)(nil)

// ExportSheetName is the name of the single exported sheet.
const ExportSheetName = "Certificates"

// ExportColumns is the exported column set, in order. Columns no record
// carries are left out.
var ExportColumns = []string{
	"id", "certhash", "validFromDate", "validToDate", "issuer.name", "subject.name",
	"keySize", "serialNumber", "signatureAlgorithm", "extendedValidation", "selfSigned",
	"issuer.organization", "subject.organization", "assetCount", "instanceCount",
	"sources", "assets",
}

// Local fields merged into every exported row.
const (
	columnMappedToMIP = "mapped_to_mip"
	columnMIPStatus   = "mip_status"
)

// ExportService gives read-only access to the synced dataset.
type ExportService struct {
	store  driven.RecordStore
	writer driven.SpreadsheetWriter
}

// NewExportService creates an export service. writer may be nil when only
// AllRecords is needed.
func NewExportService(store driven.RecordStore, writer driven.SpreadsheetWriter) *ExportService {
	return &ExportService{store: store, writer: writer}
}

// AllRecords returns every stored record ordered by ID.
func (s *ExportService) AllRecords(ctx context.Context) ([]domain.Record, error) {
	records, err := s.store.AllRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// Export renders all records as a single sheet into w.
func (s *ExportService) Export(ctx context.Context, w io.Writer) (int, error) {
	if s.writer == nil {
		return 0, fmt.Errorf("%w: no spreadsheet writer configured", domain.ErrInvalidInput)
	}

	records, err := s.AllRecords(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("%w: no data to export", domain.ErrNotFound)
	}

	sheet := BuildSheet(records)
	if err := s.writer.Write(w, sheet); err != nil {
		return 0, fmt.Errorf("write spreadsheet: %w", err)
	}
	return len(sheet.Rows), nil
}

// BuildSheet flattens records into the export sheet.
func BuildSheet(records []domain.Record) driven.Sheet {
	flat := make([]map[string]any, 0, len(records))
	present := make(map[string]bool)
	for i := range records {
		row := FlattenRecord(records[i])
		for k := range row {
			present[k] = true
		}
		flat = append(flat, row)
	}

	columns := slices.DeleteFunc(slices.Clone(ExportColumns), func(c string) bool {
		return !present[c]
	})

	rows := make([][]any, 0, len(flat))
	for _, row := range flat {
		cells := make([]any, len(columns))
		for i, c := range columns {
			cells[i] = cellValue(row[c])
		}
		rows = append(rows, cells)
	}

	return driven.Sheet{Name: ExportSheetName, Columns: columns, Rows: rows}
}

// FlattenRecord flattens nested objects in the payload into dot-separated
// keys and merges the local fields. Arrays are kept as values.
func FlattenRecord(rec domain.Record) map[string]any {
	out := make(map[string]any, len(rec.Payload)+3)
	flattenInto(out, "", rec.Payload)
	out[domain.FieldID] = rec.ID
	out[columnMappedToMIP] = rec.MappedToMIP
	out[columnMIPStatus] = rec.MIPStatus
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = v
	}
}

// cellValue converts a payload value into something a spreadsheet cell holds.
func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case string, bool, float64, int, int64:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
