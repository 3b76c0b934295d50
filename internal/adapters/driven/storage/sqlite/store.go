package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/certsync/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driven"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// checkpointRowID is the single row of the sync_checkpoint table.
const checkpointRowID = 1

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.certsync/data/certsync.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".certsync", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "certsync.db")

	// WAL lets the status endpoint read while a page commits. Write
	// transactions take the lock at BEGIN so a concurrent writer waits on
	// busy_timeout instead of failing the upgrade from read to write.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// MappingStore returns a MappingStore interface backed by this store.
func (s *Store) MappingStore() driven.MappingStore {
	return &mappingStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck // rollback after failed exec
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck // rollback after failed exec
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

const upsertRecordSQL = `
	INSERT INTO records (id, payload, serial_number, valid_from_date, synced_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		payload = excluded.payload,
		serial_number = excluded.serial_number,
		valid_from_date = excluded.valid_from_date,
		synced_at = excluded.synced_at
`

// CommitPage upserts the page and moves the checkpoint in one transaction.
func (s *recordStore) CommitPage(
	ctx context.Context, records []domain.Record, cp domain.Checkpoint,
) (domain.UpsertResult, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UpsertResult{}, domain.NewStorageError("begin commit", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	result, err := upsertRecords(ctx, tx, records)
	if err != nil {
		return domain.UpsertResult{}, err
	}
	if err := saveCheckpoint(ctx, tx, cp); err != nil {
		return domain.UpsertResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.UpsertResult{}, domain.NewStorageError("commit page", err)
	}
	return result, nil
}

// Upsert writes records without touching the checkpoint.
func (s *recordStore) Upsert(ctx context.Context, records []domain.Record) (domain.UpsertResult, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UpsertResult{}, domain.NewStorageError("begin upsert", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	result, err := upsertRecords(ctx, tx, records)
	if err != nil {
		return domain.UpsertResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.UpsertResult{}, domain.NewStorageError("commit upsert", err)
	}
	return result, nil
}

// LoadCheckpoint returns the stored checkpoint or the epoch floor.
func (s *recordStore) LoadCheckpoint(ctx context.Context) (domain.Checkpoint, error) {
	var (
		cp        domain.Checkpoint
		updatedAt sql.NullString
	)
	err := s.store.db.QueryRowContext(ctx, `
		SELECT cursor, page_size, total, updated_at FROM sync_checkpoint WHERE id = ?
	`, checkpointRowID).Scan(&cp.Cursor, &cp.PageSize, &cp.Total, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewCheckpoint(), nil
	}
	if err != nil {
		return domain.Checkpoint{}, domain.NewStorageError("load checkpoint", err)
	}
	cp.UpdatedAt = parseNullableTime(updatedAt)
	if cp.Cursor == "" {
		cp.Cursor = domain.EpochFloor
	}
	return cp, nil
}

// SaveCheckpoint overwrites the checkpoint.
func (s *recordStore) SaveCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	return saveCheckpoint(ctx, s.store.db, cp)
}

// Count returns the number of stored records.
func (s *recordStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return 0, domain.NewStorageError("count records", err)
	}
	return n, nil
}

// AllRecords returns every record ordered by ID.
func (s *recordStore) AllRecords(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, payload, serial_number, valid_from_date, synced_at, mapped_to_mip, mip_status
		FROM records ORDER BY id
	`)
	if err != nil {
		return nil, domain.NewStorageError("list records", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan record", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list records", err)
	}
	return records, nil
}

// SaveRun creates or updates a run.
func (s *recordStore) SaveRun(ctx context.Context, run *domain.SyncRun) error {
	var errKind, errMsg any
	if run.Error != nil {
		errKind = nullString(string(run.Error.Kind))
		errMsg = nullString(run.Error.Message)
	}

	var endedAt any
	if run.EndedAt != nil {
		endedAt = formatNullableTime(*run.EndedAt)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, mode, state, started_at, ended_at, error_kind, error_message,
			cursor, pages, fetched, inserted, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			ended_at = excluded.ended_at,
			error_kind = excluded.error_kind,
			error_message = excluded.error_message,
			cursor = excluded.cursor,
			pages = excluded.pages,
			fetched = excluded.fetched,
			inserted = excluded.inserted,
			updated = excluded.updated
	`, run.ID, string(run.Mode), string(run.State), run.StartedAt.UTC().Format(timeLayout),
		endedAt, errKind, errMsg, run.Cursor, run.Pages, run.Fetched, run.Inserted, run.Updated)
	if err != nil {
		return domain.NewStorageError("save run", err)
	}
	return nil
}

// LatestRun returns the most recently created run.
func (s *recordStore) LatestRun(ctx context.Context) (*domain.SyncRun, error) {
	var (
		run                      domain.SyncRun
		mode, state, startedAt   string
		endedAt, errKind, errMsg sql.NullString
		cursor                   sql.NullString
	)
	err := s.store.db.QueryRowContext(ctx, `
		SELECT id, mode, state, started_at, ended_at, error_kind, error_message,
			cursor, pages, fetched, inserted, updated
		FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT 1
	`).Scan(&run.ID, &mode, &state, &startedAt, &endedAt, &errKind, &errMsg,
		&cursor, &run.Pages, &run.Fetched, &run.Inserted, &run.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("latest run", err)
	}

	run.Mode = domain.RunMode(mode)
	run.State = domain.RunState(state)
	run.Cursor = cursor.String
	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		run.StartedAt = t
	}
	if endedAt.Valid {
		t := parseNullableTime(endedAt)
		run.EndedAt = &t
	}
	if errKind.Valid || errMsg.Valid {
		run.Error = &domain.RunError{Kind: domain.ErrorKind(errKind.String), Message: errMsg.String}
	}
	return &run, nil
}

// Reset deletes records, the checkpoint and run history.
// Imported inventory mappings are kept.
func (s *recordStore) Reset(ctx context.Context) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin reset", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	for _, table := range []string{"records", "sync_checkpoint", "sync_runs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return domain.NewStorageError("reset "+table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit reset", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveCheckpoint(ctx context.Context, db execer, cp domain.Checkpoint) error {
	if cp.Cursor == "" {
		cp.Cursor = domain.EpochFloor
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_checkpoint (id, cursor, page_size, total, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			cursor = excluded.cursor,
			page_size = excluded.page_size,
			total = excluded.total,
			updated_at = excluded.updated_at
	`, checkpointRowID, cp.Cursor, cp.PageSize, cp.Total, formatNullableTime(cp.UpdatedAt))
	if err != nil {
		return domain.NewStorageError("save checkpoint", err)
	}
	return nil
}

// upsertRecords writes records inside tx, counting inserts and overwrites.
// A repeated ID within the batch counts as an overwrite.
func upsertRecords(ctx context.Context, tx *sql.Tx, records []domain.Record) (domain.UpsertResult, error) {
	var result domain.UpsertResult
	if len(records) == 0 {
		return result, nil
	}

	exists, err := tx.PrepareContext(ctx, "SELECT 1 FROM records WHERE id = ?")
	if err != nil {
		return result, domain.NewStorageError("prepare lookup", err)
	}
	defer exists.Close()

	upsert, err := tx.PrepareContext(ctx, upsertRecordSQL)
	if err != nil {
		return result, domain.NewStorageError("prepare upsert", err)
	}
	defer upsert.Close()

	for i := range records {
		rec := &records[i]

		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			return domain.UpsertResult{}, domain.NewStorageError("marshal payload "+rec.ID, err)
		}

		var one int
		err = exists.QueryRowContext(ctx, rec.ID).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			result.Inserted++
		case err != nil:
			return domain.UpsertResult{}, domain.NewStorageError("lookup record "+rec.ID, err)
		default:
			result.Updated++
		}

		syncedAt := rec.SyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now()
		}
		if _, err := upsert.ExecContext(ctx, rec.ID, string(payload),
			nullString(rec.SerialNumber), nullString(rec.ValidFromDate),
			syncedAt.UTC().Format(timeLayout)); err != nil {
			return domain.UpsertResult{}, domain.NewStorageError("upsert record "+rec.ID, err)
		}
	}
	return result, nil
}

func scanRecord(rows *sql.Rows) (*domain.Record, error) {
	var (
		rec                      domain.Record
		payload, syncedAt        string
		serial, validFrom, mipSt sql.NullString
		mapped                   int
	)
	if err := rows.Scan(&rec.ID, &payload, &serial, &validFrom, &syncedAt, &mapped, &mipSt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return nil, fmt.Errorf("unmarshalling payload of %s: %w", rec.ID, err)
	}
	rec.SerialNumber = serial.String
	rec.ValidFromDate = validFrom.String
	rec.MappedToMIP = mapped != 0
	rec.MIPStatus = mipSt.String
	if t, err := time.Parse(timeLayout, syncedAt); err == nil {
		rec.SyncedAt = t
	}
	return &rec, nil
}

// ==================== Mapping Store ====================

// mappingStore implements driven.MappingStore.
type mappingStore struct {
	store *Store
}

var _ driven.MappingStore = (*mappingStore)(nil)

// ReplaceMappings truncates the mapping table and stores the given rows.
func (s *mappingStore) ReplaceMappings(ctx context.Context, mappings []domain.InventoryMapping) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin replace mappings", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM inventory_mappings"); err != nil {
		return domain.NewStorageError("clear mappings", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inventory_mappings (serial_number, certificate_name, certificate_status)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return domain.NewStorageError("prepare mapping insert", err)
	}
	defer stmt.Close()

	for _, m := range mappings {
		if _, err := stmt.ExecContext(ctx, m.SerialNumber,
			nullString(m.CertificateName), nullString(m.CertificateStatus)); err != nil {
			return domain.NewStorageError("insert mapping", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit mappings", err)
	}
	return nil
}

// ListMappings returns all mappings in import order.
func (s *mappingStore) ListMappings(ctx context.Context) ([]domain.InventoryMapping, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT serial_number, certificate_name, certificate_status
		FROM inventory_mappings ORDER BY id
	`)
	if err != nil {
		return nil, domain.NewStorageError("list mappings", err)
	}
	defer rows.Close()

	var mappings []domain.InventoryMapping
	for rows.Next() {
		var (
			m            domain.InventoryMapping
			name, status sql.NullString
		)
		if err := rows.Scan(&m.SerialNumber, &name, &status); err != nil {
			return nil, domain.NewStorageError("scan mapping", err)
		}
		m.CertificateName = name.String
		m.CertificateStatus = status.String
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list mappings", err)
	}
	return mappings, nil
}

// ApplyMappings marks unmapped records by serial number. A record that is
// already mapped keeps its first status.
func (s *mappingStore) ApplyMappings(ctx context.Context, mappings []domain.InventoryMapping) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.NewStorageError("begin apply mappings", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE records SET mapped_to_mip = 1, mip_status = ?
		WHERE serial_number = ? AND mapped_to_mip = 0
	`)
	if err != nil {
		return 0, domain.NewStorageError("prepare apply", err)
	}
	defer stmt.Close()

	changed := 0
	for _, m := range mappings {
		if m.SerialNumber == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, nullString(m.CertificateStatus), m.SerialNumber)
		if err != nil {
			return 0, domain.NewStorageError("apply mapping", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, domain.NewStorageError("apply mapping", err)
		}
		changed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, domain.NewStorageError("commit apply mappings", err)
	}
	return changed, nil
}
