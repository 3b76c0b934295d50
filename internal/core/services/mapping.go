package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
	"github.com/custodia-labs/certsync/internal/logger"
)

// Ensure MappingService implements the interface.
var _ driving.MappingService = (*MappingService)(nil)

// Required inventory sheet columns, compared after trimming and lowercasing.
const (
	ColumnSerialNumber      = "certificate serial number"
	ColumnCertificateName   = "certificate name"
	ColumnCertificateStatus = "certificate status"
)

var requiredColumns = []string{ColumnSerialNumber, ColumnCertificateName, ColumnCertificateStatus}

// MappingService imports inventory spreadsheets and marks matching records.
type MappingService struct {
	store  driven.MappingStore
	reader driven.SpreadsheetReader

	mu     sync.Mutex
	status driving.MappingStatus
}

// NewMappingService creates a mapping service.
func NewMappingService(store driven.MappingStore, reader driven.SpreadsheetReader) *MappingService {
	return &MappingService{store: store, reader: reader}
}

// Import replaces the stored mappings with the rows of a spreadsheet.
func (s *MappingService) Import(ctx context.Context, r io.Reader) (int, error) {
	rows, err := s.reader.ReadRows(r)
	if err != nil {
		return 0, fmt.Errorf("%w: read spreadsheet: %w", domain.ErrInvalidInput, err)
	}
	mappings, err := ParseMappings(rows)
	if err != nil {
		return 0, err
	}

	if err := s.store.ReplaceMappings(ctx, mappings); err != nil {
		return 0, fmt.Errorf("replace mappings: %w", err)
	}

	s.mu.Lock()
	s.status.Imported = len(mappings)
	s.mu.Unlock()

	logger.Info("Imported %d inventory mappings", len(mappings))
	return len(mappings), nil
}

// Apply marks unmapped records whose serial number has a mapping.
// Returns domain.ErrSyncInProgress while another Apply is running.
func (s *MappingService) Apply(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.status.Running {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: mapping process is already running", domain.ErrSyncInProgress)
	}
	s.status.Running = true
	s.status.LastError = ""
	s.mu.Unlock()

	changed, err := s.apply(ctx)

	s.mu.Lock()
	s.status.Running = false
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastApplied = changed
	}
	s.mu.Unlock()

	return changed, err
}

func (s *MappingService) apply(ctx context.Context) (int, error) {
	mappings, err := s.store.ListMappings(ctx)
	if err != nil {
		return 0, fmt.Errorf("list mappings: %w", err)
	}
	changed, err := s.store.ApplyMappings(ctx, mappings)
	if err != nil {
		return 0, fmt.Errorf("apply mappings: %w", err)
	}
	logger.Info("Inventory mapping marked %d records", changed)
	return changed, nil
}

// Status returns the current mapping status.
func (s *MappingService) Status() driving.MappingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ParseMappings converts spreadsheet rows into mappings. The first row is
// the header; blank rows are skipped.
func ParseMappings(rows [][]string) ([]domain.InventoryMapping, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: spreadsheet is empty", domain.ErrInvalidInput)
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		i := index[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	mappings := make([]domain.InventoryMapping, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := domain.InventoryMapping{
			SerialNumber:      cell(row, ColumnSerialNumber),
			CertificateName:   cell(row, ColumnCertificateName),
			CertificateStatus: cell(row, ColumnCertificateStatus),
		}.Normalise()
		if m == (domain.InventoryMapping{}) {
			continue
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}
