/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages (attendance, payroll) wrap these errors with context.

ERROR CATEGORIES:
  1. Batch errors - The whole computation cannot produce a ledger
  2. Edit ledger errors - Manager action persistence failures
  3. Store errors - Database-level failures

ROW AND FIELD LEVEL PROBLEMS ARE NOT ERRORS:
  A bad date, a stray header row or an unparseable amount never surfaces
  here. They are absorbed by the normalizer and recorded in the cleansing
  log carried by the result (or by NoUsableRecordsError when nothing
  survived).

USAGE:
    res, err := payroll.Compute(rows, mapping, edits, opts)
    var nu *generic.NoUsableRecordsError
    if errors.As(err, &nu) {
        show(nu.Log.First(20))
    }

SEE ALSO:
  - ledger.go: Uses these errors
  - store.go: Uses these errors
  - payroll/compute.go: Raises the batch errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmptyDataset is returned when a computation receives no rows at all.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrNoUsableRecords is returned when every row was dropped during cleansing.
	ErrNoUsableRecords = errors.New("no usable records")

	// ErrInvalidMapping is returned when the column mapping lacks a required field.
	ErrInvalidMapping = errors.New("invalid column mapping")

	// ErrDuplicateIdempotencyKey is returned when an edit with the same
	// idempotency key already exists. This is expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrShiftNotFound is returned when a manager action targets an unknown shift.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrDatasetNotFound is returned when a referenced dataset doesn't exist.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidEdit is returned when an edit cannot be recorded (unknown kind, missing shift).
	ErrInvalidEdit = errors.New("invalid edit")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CleansingEntry records one row dropped or degraded during normalization.
type CleansingEntry struct {
	Row    int    `json:"row"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func (e CleansingEntry) String() string {
	return fmt.Sprintf("row %d: %s (%s)", e.Row, e.Kind, e.Detail)
}

// CleansingLog is the ordered list of skip and parse-failure reasons.
type CleansingLog []CleansingEntry

// First returns at most n entries, for display next to a fatal message.
func (l CleansingLog) First(n int) CleansingLog {
	if n < 0 || len(l) <= n {
		return l
	}
	return l[:n]
}

// Count returns how many entries have the given kind.
func (l CleansingLog) Count(kind string) int {
	n := 0
	for _, e := range l {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// NoUsableRecordsError is returned when cleansing dropped every row.
// It carries the log so the caller can explain which rows failed and why.
type NoUsableRecordsError struct {
	Rows int
	Log  CleansingLog
}

func (e *NoUsableRecordsError) Error() string {
	return fmt.Sprintf("no usable records: all %d rows were dropped (%d cleansing entries)", e.Rows, len(e.Log))
}

func (e *NoUsableRecordsError) Unwrap() error {
	return ErrNoUsableRecords
}

// MappingError names the logical field the column mapping is missing.
type MappingError struct {
	Field string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("invalid column mapping: %s column is required", e.Field)
}

func (e *MappingError) Unwrap() error {
	return ErrInvalidMapping
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrNoUsableRecords) ||
		errors.Is(err, ErrInvalidMapping) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidEdit) ||
		errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrDatasetNotFound)
}
