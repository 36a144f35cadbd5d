/*
ledger.go - Append-only log of manager edits

PURPOSE:
  The Ledger is the source of truth for every manager action taken on a
  computed payroll. Shift values are never stored; they are recomputed
  from the raw rows and then the edits are replayed in order. There is no
  separate "net pay" column that can drift from the rows.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete (except a full dataset reset)
  2. ORDERED: Load returns edits in the order they were appended
  3. IDEMPOTENT: Same idempotency key = same edit (no duplicates)

EXAMPLE FLOW:
  1. Manager waives Ana's 5.00 penalty on Mar 3:   waiver_toggle
  2. Manager changes their mind:                    waiver_toggle
  3. Manager deducts 2.00 for a lost badge:         adjustment +2 "lost badge"

  Replay: waiver 5 -> waiver 0 -> adjustment 2. Net pay is back to the
  pre-waiver value minus 2.

SEE ALSO:
  - store.go: Low-level persistence interface
  - payroll/actions.go: ApplyEdits replays the log
*/
package generic

import (
	"context"
	"fmt"
)

// =============================================================================
// LEDGER - Append-only edit log
// =============================================================================

// Ledger records manager edits.
//
// INVARIANTS:
//   - Append-only
//   - Edits are replayed in the order they were appended
type Ledger interface {
	// Append adds an edit. Fails if the idempotency key exists.
	Append(ctx context.Context, edit Edit) error

	// AppendBatch adds multiple edits atomically.
	AppendBatch(ctx context.Context, edits []Edit) error

	// Edits returns all edits for a dataset, in append order.
	Edits(ctx context.Context, datasetID DatasetID) ([]Edit, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) Append(ctx context.Context, edit Edit) error {
	if err := validateEdit(edit); err != nil {
		return err
	}
	if edit.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, edit.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, edit)
}

func (l *DefaultLedger) AppendBatch(ctx context.Context, edits []Edit) error {
	// Check all edits first
	for _, edit := range edits {
		if err := validateEdit(edit); err != nil {
			return err
		}
		if edit.IdempotencyKey != "" {
			exists, err := l.Store.Exists(ctx, edit.IdempotencyKey)
			if err != nil {
				return err
			}
			if exists {
				return ErrDuplicateIdempotencyKey
			}
		}
	}
	return l.Store.AppendBatch(ctx, edits)
}

func (l *DefaultLedger) Edits(ctx context.Context, datasetID DatasetID) ([]Edit, error) {
	return l.Store.Load(ctx, datasetID)
}

func validateEdit(edit Edit) error {
	if !edit.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEdit, edit.Kind)
	}
	if edit.ShiftID == "" {
		return fmt.Errorf("%w: shift id is required", ErrInvalidEdit)
	}
	if edit.DatasetID == "" {
		return fmt.Errorf("%w: dataset id is required", ErrInvalidEdit)
	}
	return nil
}
