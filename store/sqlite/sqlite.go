/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists uploaded attendance datasets and the manager-edit ledger so a
  ledger can be recomputed at any time from its raw rows plus the edits
  recorded against it.

INTERFACES IMPLEMENTED:
  generic.Store:        Edit persistence (append-only)
  generic.DatasetStore: Dataset lifecycle

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the edits table
  - Edits are only removed together with their dataset (full reset)
  - Replay order is insertion order (seq column)

KEY TABLES:
  datasets: Raw rows and column mapping as JSON
  edits:    Manager edits, FK to datasets with ON DELETE CASCADE

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := generic.NewLedger(store)

SEE ALSO:
  - generic/ledger.go: Higher-level ledger using Store
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/generic"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.DatasetStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second pooled connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS datasets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rows_json TEXT NOT NULL,
		mapping_json TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Edits (append-only ledger)
	CREATE TABLE IF NOT EXISTS edits (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
		shift_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edits_dataset
		ON edits(dataset_id, seq);
	CREATE INDEX IF NOT EXISTS idx_edits_shift
		ON edits(dataset_id, shift_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EDIT STORE (generic.Store interface)
// =============================================================================

// Append adds an edit to the ledger.
func (s *Store) Append(ctx context.Context, edit generic.Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendEdit(ctx, s.db, edit)
}

func (s *Store) appendEdit(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, edit generic.Edit) error {
	createdAt := edit.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO edits
		(id, dataset_id, shift_id, kind, amount, reason, idempotency_key, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		edit.ID,
		edit.DatasetID,
		edit.ShiftID,
		edit.Kind,
		edit.Amount.String(),
		nullString(edit.Reason),
		nullString(edit.IdempotencyKey),
		nullString(edit.CreatedBy),
		createdAt.UTC().Format(time.RFC3339Nano),
	)

	if err != nil {
		if isForeignKeyError(err) {
			return generic.ErrDatasetNotFound
		}
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append edit: %w", err)
	}

	return nil
}

// AppendBatch adds multiple edits atomically.
func (s *Store) AppendBatch(ctx context.Context, edits []generic.Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicate idempotency keys within the batch first
	idempotencyKeys := make(map[string]bool)
	for _, edit := range edits {
		if edit.IdempotencyKey != "" {
			if idempotencyKeys[edit.IdempotencyKey] {
				return generic.ErrDuplicateIdempotencyKey
			}
			idempotencyKeys[edit.IdempotencyKey] = true
		}
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, edit := range edits {
		if err := s.appendEdit(ctx, sqlTx, edit); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// Load returns all edits of a dataset in the order they were recorded.
func (s *Store) Load(ctx context.Context, datasetID generic.DatasetID) ([]generic.Edit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, dataset_id, shift_id, kind, amount, reason, idempotency_key, created_by, created_at
		FROM edits
		WHERE dataset_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edits: %w", err)
	}
	defer rows.Close()

	edits := []generic.Edit{}
	for rows.Next() {
		edit, err := scanEdit(rows)
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit)
	}

	return edits, rows.Err()
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM edits WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

func scanEdit(rows *sql.Rows) (generic.Edit, error) {
	var (
		edit           generic.Edit
		amount         string
		reason         sql.NullString
		idempotencyKey sql.NullString
		createdBy      sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&edit.ID, &edit.DatasetID, &edit.ShiftID, &edit.Kind,
		&amount, &reason, &idempotencyKey, &createdBy, &createdAt,
	)
	if err != nil {
		return edit, fmt.Errorf("failed to scan edit: %w", err)
	}

	edit.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return edit, fmt.Errorf("edit %s has a corrupt amount %q: %w", edit.ID, amount, err)
	}
	edit.Reason = reason.String
	edit.IdempotencyKey = idempotencyKey.String
	edit.CreatedBy = createdBy.String
	edit.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	return edit, nil
}

// =============================================================================
// DATASET STORE
// =============================================================================

func (s *Store) SaveDataset(ctx context.Context, ds generic.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := ds.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO datasets (id, name, rows_json, mapping_json, row_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			rows_json = excluded.rows_json,
			mapping_json = excluded.mapping_json,
			row_count = excluded.row_count
	`
	_, err := s.db.ExecContext(ctx, query,
		ds.ID, ds.Name, ds.RowsJSON, ds.MappingJSON, ds.RowCount,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

func (s *Store) GetDataset(ctx context.Context, id generic.DatasetID) (*generic.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, rows_json, mapping_json, row_count, created_at
		FROM datasets WHERE id = ?
	`, id)

	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrDatasetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// ListDatasets returns dataset metadata ordered by creation. Rows are not loaded.
func (s *Store) ListDatasets(ctx context.Context) ([]generic.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, '', mapping_json, row_count, created_at
		FROM datasets
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasets: %w", err)
	}
	defer rows.Close()

	datasets := []generic.Dataset{}
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, rows.Err()
}

// DeleteDataset removes the dataset; its edits go with it through the cascade.
func (s *Store) DeleteDataset(ctx context.Context, id generic.DatasetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM datasets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrDatasetNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(row scanner) (generic.Dataset, error) {
	var (
		ds        generic.Dataset
		createdAt string
	)
	if err := row.Scan(&ds.ID, &ds.Name, &ds.RowsJSON, &ds.MappingJSON, &ds.RowCount, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ds, err
		}
		return ds, fmt.Errorf("failed to scan dataset: %w", err)
	}
	ds.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return ds, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"edits", "datasets"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
