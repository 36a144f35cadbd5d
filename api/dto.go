/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Computed ledgers are
  returned as payroll.Result directly; the types here cover everything
  that is not a Result: dataset metadata, manager action inputs and
  outcomes, and errors.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - payroll/result.go: Result JSON shape
*/
package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/generic"
	"github.com/warp/attendance-ledger/narrative"
	"github.com/warp/attendance-ledger/payroll"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DatasetDTO represents an uploaded dataset in API responses.
type DatasetDTO struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	RowCount  int                      `json:"row_count"`
	Mapping   attendance.ColumnMapping `json:"mapping"`
	CreatedAt string                   `json:"created_at"`
}

// CreateDatasetRequest is the JSON form of a dataset upload.
type CreateDatasetRequest struct {
	Name    string                    `json:"name"`
	Rows    []attendance.RawRow       `json:"rows"`
	Mapping *attendance.ColumnMapping `json:"mapping,omitempty"`
}

// CreateDatasetResponse returns the stored dataset and the first computation.
type CreateDatasetResponse struct {
	Dataset      DatasetDTO           `json:"dataset"`
	Totals       payroll.Totals       `json:"totals"`
	ShiftCount   int                  `json:"shift_count"`
	CleansingLog generic.CleansingLog `json:"cleansing_log"`
}

// AdjustmentRequestDTO is the body of a manual adjustment or manual penalty.
type AdjustmentRequestDTO struct {
	Amount decimal.Decimal  `json:"amount"`
	Reason string           `json:"reason"`
	Kind   generic.EditKind `json:"kind,omitempty"` // adjustment (default) or manual_penalty
}

// ActionResponse reports the outcome of a manager action. Applied is false
// when the action was a no-op; nothing is recorded in that case.
type ActionResponse struct {
	Applied bool          `json:"applied"`
	Edit    *generic.Edit `json:"edit,omitempty"`
	Shift   payroll.Shift `json:"shift"`
}

// NarrativeResponse carries the generated text, or the error, next to the
// aggregates it was generated from.
type NarrativeResponse struct {
	Narrative string                  `json:"narrative,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Context   narrative.PromptContext `json:"context"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toDatasetDTO(ds generic.Dataset) DatasetDTO {
	var mapping attendance.ColumnMapping
	_ = json.Unmarshal([]byte(ds.MappingJSON), &mapping)
	return DatasetDTO{
		ID:        string(ds.ID),
		Name:      ds.Name,
		RowCount:  ds.RowCount,
		Mapping:   mapping,
		CreatedAt: ds.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toDatasetDTOs(datasets []generic.Dataset) []DatasetDTO {
	dtos := make([]DatasetDTO, len(datasets))
	for i, ds := range datasets {
		dtos[i] = toDatasetDTO(ds)
	}
	return dtos
}
