package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
)

// Ensure RecordStore implements the interfaces.
var (
	_ driven.RecordStore  = (*RecordStore)(nil)
	_ driven.MappingStore = (*RecordStore)(nil)
)

var errEmptyID = errors.New("record id must not be empty")

// RecordStore is an in-memory implementation of driven.RecordStore and
// driven.MappingStore. Writes are all-or-nothing per call.
type RecordStore struct {
	mu         sync.RWMutex
	records    map[string]domain.Record
	checkpoint *domain.Checkpoint
	runs       []domain.SyncRun
	mappings   []domain.InventoryMapping
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string]domain.Record),
	}
}

// CommitPage upserts records and saves the checkpoint atomically.
func (s *RecordStore) CommitPage(
	_ context.Context, records []domain.Record, cp domain.Checkpoint,
) (domain.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.upsert(records)
	if err != nil {
		return domain.UpsertResult{}, domain.NewStorageError("commit page", err)
	}
	s.setCheckpoint(cp)
	return result, nil
}

// Upsert inserts or overwrites records by ID.
func (s *RecordStore) Upsert(_ context.Context, records []domain.Record) (domain.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.upsert(records)
	if err != nil {
		return domain.UpsertResult{}, domain.NewStorageError("upsert", err)
	}
	return result, nil
}

// upsert validates the whole batch before writing (caller must hold lock).
func (s *RecordStore) upsert(records []domain.Record) (domain.UpsertResult, error) {
	for _, rec := range records {
		if rec.ID == "" {
			return domain.UpsertResult{}, errEmptyID
		}
	}

	var result domain.UpsertResult
	for _, rec := range records {
		existing, ok := s.records[rec.ID]
		if ok {
			result.Updated++
			// Mapping state survives re-syncs.
			rec.MappedToMIP = existing.MappedToMIP
			rec.MIPStatus = existing.MIPStatus
		} else {
			result.Inserted++
			rec.MappedToMIP = false
			rec.MIPStatus = ""
		}
		if rec.SyncedAt.IsZero() {
			rec.SyncedAt = time.Now()
		}
		rec.Payload = maps.Clone(rec.Payload)
		s.records[rec.ID] = rec
	}
	return result, nil
}

func (s *RecordStore) setCheckpoint(cp domain.Checkpoint) {
	if cp.Cursor == "" {
		cp.Cursor = domain.EpochFloor
	}
	s.checkpoint = &cp
}

// LoadCheckpoint returns the stored checkpoint or the epoch floor.
func (s *RecordStore) LoadCheckpoint(_ context.Context) (domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.checkpoint == nil {
		return domain.NewCheckpoint(), nil
	}
	return *s.checkpoint, nil
}

// SaveCheckpoint overwrites the checkpoint.
func (s *RecordStore) SaveCheckpoint(_ context.Context, cp domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCheckpoint(cp)
	return nil
}

// Count returns the number of stored records.
func (s *RecordStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// AllRecords returns a copy of every record ordered by ID.
func (s *RecordStore) AllRecords(_ context.Context) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.Sorted(maps.Keys(s.records))
	out := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		rec := s.records[id]
		rec.Payload = maps.Clone(rec.Payload)
		out = append(out, rec)
	}
	return out, nil
}

// SaveRun creates or updates a run.
func (s *RecordStore) SaveRun(_ context.Context, run *domain.SyncRun) error {
	if run == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := run.Clone()
	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = c
			return nil
		}
	}
	s.runs = append(s.runs, c)
	return nil
}

// LatestRun returns the most recently created run.
func (s *RecordStore) LatestRun(_ context.Context) (*domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return nil, domain.ErrNotFound
	}
	run := s.runs[len(s.runs)-1].Clone()
	return &run, nil
}

// Runs returns every saved run in creation order.
func (s *RecordStore) Runs() []domain.SyncRun {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SyncRun, 0, len(s.runs))
	for i := range s.runs {
		out = append(out, s.runs[i].Clone())
	}
	return out
}

// Reset deletes records, the checkpoint and run history.
func (s *RecordStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]domain.Record)
	s.checkpoint = nil
	s.runs = nil
	return nil
}

// ReplaceMappings replaces the stored mappings.
func (s *RecordStore) ReplaceMappings(_ context.Context, mappings []domain.InventoryMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = slices.Clone(mappings)
	return nil
}

// ListMappings returns the stored mappings in import order.
func (s *RecordStore) ListMappings(_ context.Context) ([]domain.InventoryMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.mappings), nil
}

// ApplyMappings marks unmapped records by serial number.
func (s *RecordStore) ApplyMappings(_ context.Context, mappings []domain.InventoryMapping) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, m := range mappings {
		if m.SerialNumber == "" {
			continue
		}
		for id, rec := range s.records {
			if rec.MappedToMIP || rec.SerialNumber != m.SerialNumber {
				continue
			}
			rec.MappedToMIP = true
			rec.MIPStatus = m.CertificateStatus
			s.records[id] = rec
			changed++
		}
	}
	return changed, nil
}
