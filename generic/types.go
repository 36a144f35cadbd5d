/*
Package generic provides the domain-agnostic pieces of the payroll ledger engine.

PURPOSE:
  Calendar primitives, error taxonomy and the append-only log of manager
  edits. The attendance and payroll packages build on these; nothing in
  here knows about shifts, penalties or overtime rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - DatasetID / ShiftID / EditID: Type-safe identifiers
  - Edit: An immutable record of one manager action on one shift

DESIGN PRINCIPLES:
  1. Immutability: Edits are never modified; a waiver is undone by a second toggle
  2. Precision: Amounts use decimal.Decimal to avoid floating-point drift
  3. Replay: A ledger is recomputed from raw rows plus the ordered edit log,
     so the same inputs always give the same numbers
  4. Auditability: Every edit has a reason, an actor and an idempotency key

USAGE:
  edit := generic.Edit{
      DatasetID: "ds-1",
      ShiftID:   shift.ID,
      Kind:      generic.EditAdjustment,
      Amount:    decimal.NewFromInt(2),
      Reason:    "uniform deduction",
  }

SEE ALSO:
  - ledger.go: Edit persistence interface
  - payroll/actions.go: How edits change a shift
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DatasetID string
type ShiftID string
type EditID string

// =============================================================================
// EDIT - One manager action, replayed on every recomputation
// =============================================================================

type EditKind string

const (
	EditWaiverToggle  EditKind = "waiver_toggle"  // Waive or un-waive the attendance penalty
	EditAdjustment    EditKind = "adjustment"     // Free-form deduction (positive) or credit (negative)
	EditManualPenalty EditKind = "manual_penalty" // Penalty independent of lateness
)

// Valid reports whether k is a known edit kind.
func (k EditKind) Valid() bool {
	switch k {
	case EditWaiverToggle, EditAdjustment, EditManualPenalty:
		return true
	}
	return false
}

type Edit struct {
	ID             EditID          `json:"id"`
	DatasetID      DatasetID       `json:"dataset_id"`
	ShiftID        ShiftID         `json:"shift_id"`
	Kind           EditKind        `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`

	// Audit fields
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
