/*
store.go - Persistence interface for manager edits and datasets

PURPOSE:
  Defines the interface between the ledger engine and the database.
  Edits are append-only; datasets are written once and removed only by
  a full reset, which also drops their edits.

KEY INTERFACES:
  Store:        Edit persistence (append, load, exists)
  DatasetStore: Raw rows + column mapping per dataset

APPEND-ONLY CONTRACT:
  - Append(): Single edit write
  - AppendBatch(): Atomic multi-edit write
  - NO Update() exists; a waiver is reverted by appending another toggle

IDEMPOTENCY:
  An edit may carry an idempotency key. If the key already exists the
  write is rejected, so a double-clicked "waive" does not toggle twice.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing and the CLI

SEE ALSO:
  - ledger.go: Higher-level interface using Store
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Interface for edit persistence (append-only)
// =============================================================================

// Store handles persistence of manager edits.
// IMPORTANT: Store is APPEND-ONLY for edits. No Update.
type Store interface {
	// Append persists an edit. Returns ErrDuplicateIdempotencyKey if the key exists.
	Append(ctx context.Context, edit Edit) error

	// AppendBatch persists multiple edits atomically.
	AppendBatch(ctx context.Context, edits []Edit) error

	// Load returns all edits of a dataset in the order they were recorded.
	Load(ctx context.Context, datasetID DatasetID) ([]Edit, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// =============================================================================
// DATASET STORE - Raw input kept for recomputation
// =============================================================================

// Dataset is one uploaded attendance export and the mapping used to read it.
// Rows and mapping are stored as opaque JSON so the generic layer stays
// independent of the attendance package.
type Dataset struct {
	ID          DatasetID
	Name        string
	RowsJSON    string
	MappingJSON string
	RowCount    int
	CreatedAt   time.Time
}

// DatasetStore extends Store with dataset lifecycle operations.
type DatasetStore interface {
	Store

	SaveDataset(ctx context.Context, ds Dataset) error

	// GetDataset returns ErrDatasetNotFound when the id is unknown.
	GetDataset(ctx context.Context, id DatasetID) (*Dataset, error)

	ListDatasets(ctx context.Context) ([]Dataset, error)

	// DeleteDataset removes the dataset and every edit recorded against it.
	DeleteDataset(ctx context.Context, id DatasetID) error
}
