/*
handlers.go - HTTP API handlers for the attendance payroll ledger

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the payroll pipeline.

ENDPOINTS:
  Datasets:
    GET    /api/datasets                     List uploaded datasets
    POST   /api/datasets                     Upload rows (JSON or multipart CSV/XLSX)
    GET    /api/datasets/{id}                Dataset metadata
    DELETE /api/datasets/{id}                Drop the dataset and its edits

  Ledger:
    GET    /api/datasets/{id}/ledger         Computed ledger (?employee=&from=&to=)
    GET    /api/datasets/{id}/edits          Manager edit history
    GET    /api/datasets/{id}/export.csv     CSV export
    GET    /api/datasets/{id}/export.xlsx    XLSX export
    POST   /api/datasets/{id}/narrative      Written summary of the aggregates

  Manager actions:
    POST   /api/datasets/{id}/shifts/{shiftID}/waiver       Toggle penalty waiver
    POST   /api/datasets/{id}/shifts/{shiftID}/adjustments  Adjustment or manual penalty

  Scenarios:
    GET    /api/scenarios                    List demo scenarios
    POST   /api/scenarios/load               Load a demo scenario
    POST   /api/reset                        Clear everything

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: datasets and the edit log
  - Ledger: append-only edit recording with idempotency
  - Rules / Mapping: payroll constants and the default column mapping
  - Narrator: narrative generator (disabled without an API key)

REQUEST FLOW (manager action):
  1. Lock the dataset
  2. Recompute the ledger from rows + edits
  3. Apply the action to the target shift
  4. Record the edit only if it changed something
  5. Return the replacement shift

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Dataset or shift not found
  - 409: Conflict (idempotency)
  - 422: Rows could not be turned into a ledger (with the cleansing log)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/generic"
	"github.com/warp/attendance-ledger/ingest"
	"github.com/warp/attendance-ledger/narrative"
	"github.com/warp/attendance-ledger/payroll"
)

// cleansingPreview is how many cleansing entries accompany a 422.
const cleansingPreview = 20

// Store is the persistence the handlers need.
type Store interface {
	generic.DatasetStore
	Reset(ctx context.Context) error
}

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    Store
	Ledger   generic.Ledger
	Rules    payroll.Rules
	Mapping  attendance.ColumnMapping
	Narrator narrative.Generator
	Logger   *slog.Logger
	Now      func() time.Time

	MaxUploadBytes int64

	// One writer per dataset: a manager action is read-modify-write of a
	// whole shift record.
	mu    sync.Mutex
	locks map[generic.DatasetID]*sync.Mutex

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with default rules and no narrator.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:          store,
		Ledger:         generic.NewLedger(store),
		Rules:          payroll.DefaultRules(),
		Narrator:       narrative.Disabled{},
		Logger:         logger,
		Now:            time.Now,
		MaxUploadBytes: 10 << 20,
		locks:          make(map[generic.DatasetID]*sync.Mutex),
	}
}

func (h *Handler) lock(id generic.DatasetID) func() {
	h.mu.Lock()
	l, ok := h.locks[id]
	if !ok {
		l = &sync.Mutex{}
		h.locks[id] = l
	}
	h.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// forget drops the mutex of a dataset that no longer exists. The caller holds it.
func (h *Handler) forget(id generic.DatasetID) {
	h.mu.Lock()
	delete(h.locks, id)
	h.mu.Unlock()
}

func (h *Handler) clearLocks() {
	h.mu.Lock()
	h.locks = make(map[generic.DatasetID]*sync.Mutex)
	h.mu.Unlock()
}

// =============================================================================
// DATASET HANDLERS
// =============================================================================

// ListDatasets returns all datasets.
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.Store.ListDatasets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list datasets", err)
		return
	}
	writeJSON(w, http.StatusOK, toDatasetDTOs(datasets))
}

// CreateDataset stores an upload after checking it yields a ledger.
func (h *Handler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var (
		req CreateDatasetRequest
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		req, err = h.readMultipartDataset(r)
	} else {
		err = json.NewDecoder(r.Body).Decode(&req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dataset upload", err)
		return
	}

	mapping := h.Mapping
	if req.Mapping != nil {
		mapping = *req.Mapping
	}
	if err := mapping.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid column mapping", err)
		return
	}

	res, err := payroll.Compute(req.Rows, mapping, nil, h.options(payroll.Filter{}))
	if err != nil {
		h.writeComputeError(w, err)
		return
	}

	ds, err := newDataset(req.Name, req.Rows, mapping, h.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode dataset", err)
		return
	}
	if err := h.Store.SaveDataset(r.Context(), ds); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save dataset", err)
		return
	}

	h.Logger.Info("dataset created",
		slog.String("dataset_id", string(ds.ID)),
		slog.Int("rows", ds.RowCount),
		slog.Int("shifts", len(res.Shifts)),
		slog.Int("cleansing_entries", len(res.CleansingLog)),
	)
	writeJSON(w, http.StatusCreated, CreateDatasetResponse{
		Dataset:      toDatasetDTO(ds),
		Totals:       res.Totals,
		ShiftCount:   len(res.Shifts),
		CleansingLog: res.CleansingLog,
	})
}

// readMultipartDataset reads a "file" part plus optional "name" and
// "mapping" (JSON) fields. Without a mapping, one is suggested from the
// file's headers.
func (h *Handler) readMultipartDataset(r *http.Request) (CreateDatasetRequest, error) {
	var req CreateDatasetRequest
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		return req, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return req, fmt.Errorf("file part: %w", err)
	}
	defer file.Close()

	table, err := ingest.Read(header.Filename, file)
	if err != nil {
		return req, err
	}
	req.Rows = table.Rows
	req.Name = r.FormValue("name")
	if req.Name == "" {
		req.Name = header.Filename
	}

	if raw := r.FormValue("mapping"); raw != "" {
		var m attendance.ColumnMapping
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return req, fmt.Errorf("mapping field: %w", err)
		}
		req.Mapping = &m
	} else if h.Mapping.Validate() != nil {
		m := ingest.SuggestMapping(table.Headers)
		req.Mapping = &m
	}
	return req, nil
}

func newDataset(name string, rows []attendance.RawRow, mapping attendance.ColumnMapping, now time.Time) (generic.Dataset, error) {
	rowsJSON, err := json.Marshal(rows)
	if err != nil {
		return generic.Dataset{}, err
	}
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return generic.Dataset{}, err
	}
	if name == "" {
		name = "Attendance " + now.Format(generic.DateLayout)
	}
	return generic.Dataset{
		ID:          generic.DatasetID(uuid.NewString()),
		Name:        name,
		RowsJSON:    string(rowsJSON),
		MappingJSON: string(mappingJSON),
		RowCount:    len(rows),
		CreatedAt:   now,
	}, nil
}

// GetDataset returns dataset metadata.
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Store.GetDataset(r.Context(), datasetID(r))
	if err != nil {
		h.writeStoreError(w, "Failed to get dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, toDatasetDTO(*ds))
}

// DeleteDataset is the full reset of one dataset: rows and edits.
func (h *Handler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := datasetID(r)
	unlock := h.lock(id)
	defer unlock()

	err := h.Store.DeleteDataset(r.Context(), id)
	if err == nil || generic.IsNotFound(err) {
		h.forget(id)
	}
	if err != nil {
		h.writeStoreError(w, "Failed to delete dataset", err)
		return
	}
	h.Logger.Info("dataset deleted", slog.String("dataset_id", string(id)))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// LEDGER HANDLERS
// =============================================================================

// GetLedger recomputes and returns the ledger.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	res, err := h.compute(r.Context(), datasetID(r), filter)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListEdits returns the edit history in replay order.
func (h *Handler) ListEdits(w http.ResponseWriter, r *http.Request) {
	id := datasetID(r)
	if _, err := h.Store.GetDataset(r.Context(), id); err != nil {
		h.writeStoreError(w, "Failed to get dataset", err)
		return
	}
	edits, err := h.Ledger.Edits(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load edits", err)
		return
	}
	if edits == nil {
		edits = []generic.Edit{}
	}
	writeJSON(w, http.StatusOK, edits)
}

// ExportCSV streams the ledger as CSV with a TOTAL row.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "text/csv", "csv", payroll.WriteCSV)
}

// ExportXLSX streams the ledger as a workbook.
func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", payroll.WriteXLSX)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, contentType, ext string, write func(io.Writer, *payroll.Result) error) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	id := datasetID(r)
	res, err := h.compute(r.Context(), id, filter)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ledger-%s.%s"`, id, ext))
	if err := write(w, res); err != nil {
		h.Logger.Error("export failed", slog.String("dataset_id", string(id)), slog.Any("error", err))
	}
}

// Narrative asks the generator for a summary of the aggregates. A generator
// failure still returns the aggregates it was given.
func (h *Handler) Narrative(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	res, err := h.compute(r.Context(), datasetID(r), filter)
	if err != nil {
		h.writeComputeError(w, err)
		return
	}

	pc := narrative.NewPromptContext(res)
	text, err := h.Narrator.Generate(r.Context(), pc)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, narrative.ErrNotConfigured) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, NarrativeResponse{Error: err.Error(), Context: pc})
		return
	}
	writeJSON(w, http.StatusOK, NarrativeResponse{Narrative: text, Context: pc})
}

// =============================================================================
// MANAGER ACTIONS
// =============================================================================

// ToggleWaiver waives the shift's attendance penalty or restores it.
func (h *Handler) ToggleWaiver(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, generic.Edit{Kind: generic.EditWaiverToggle})
}

// CreateAdjustment records a manual adjustment or a manual penalty.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	kind := req.Kind
	if kind == "" {
		kind = generic.EditAdjustment
	}
	if kind != generic.EditAdjustment && kind != generic.EditManualPenalty {
		writeError(w, http.StatusBadRequest, "kind must be adjustment or manual_penalty", nil)
		return
	}
	h.act(w, r, generic.Edit{Kind: kind, Amount: req.Amount, Reason: strings.TrimSpace(req.Reason)})
}

func (h *Handler) act(w http.ResponseWriter, r *http.Request, edit generic.Edit) {
	ctx := r.Context()
	id := datasetID(r)
	shiftID := generic.ShiftID(chi.URLParam(r, "shiftID"))

	unlock := h.lock(id)
	defer unlock()

	res, err := h.compute(ctx, id, payroll.Filter{})
	if err != nil {
		if errors.Is(err, generic.ErrDatasetNotFound) {
			h.forget(id)
		}
		h.writeComputeError(w, err)
		return
	}
	shift, ok := res.Shift(shiftID)
	if !ok {
		writeError(w, http.StatusNotFound, "Shift not found", generic.ErrShiftNotFound)
		return
	}

	edit.ID = generic.EditID(uuid.NewString())
	edit.DatasetID = id
	edit.ShiftID = shiftID
	edit.IdempotencyKey = r.Header.Get("Idempotency-Key")
	edit.CreatedBy = r.Header.Get("X-Actor")
	edit.CreatedAt = h.Now()

	next, applied := payroll.Apply(shift, edit)
	if !applied {
		writeJSON(w, http.StatusOK, ActionResponse{Applied: false, Shift: shift})
		return
	}

	if err := h.Ledger.Append(ctx, edit); err != nil {
		h.writeStoreError(w, "Failed to record edit", err)
		return
	}

	h.Logger.Info("manager edit recorded",
		slog.String("dataset_id", string(id)),
		slog.String("shift_id", string(shiftID)),
		slog.String("kind", string(edit.Kind)),
		slog.String("amount", edit.Amount.String()),
		slog.String("net_pay", next.NetPay.StringFixed(2)),
	)
	writeJSON(w, http.StatusCreated, ActionResponse{Applied: true, Edit: &edit, Shift: next})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.clearLocks()
	h.setCurrentScenario("")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// COMPUTATION
// =============================================================================

func (h *Handler) options(filter payroll.Filter) payroll.Options {
	rules := h.Rules
	return payroll.Options{Rules: &rules, Filter: filter, Now: h.Now, Logger: h.Logger}
}

// compute rebuilds a dataset's ledger from its rows and edit log.
func (h *Handler) compute(ctx context.Context, id generic.DatasetID, filter payroll.Filter) (*payroll.Result, error) {
	ds, err := h.Store.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	var rows []attendance.RawRow
	if err := json.Unmarshal([]byte(ds.RowsJSON), &rows); err != nil {
		return nil, fmt.Errorf("decode rows of dataset %s: %w", id, err)
	}
	var mapping attendance.ColumnMapping
	if err := json.Unmarshal([]byte(ds.MappingJSON), &mapping); err != nil {
		return nil, fmt.Errorf("decode mapping of dataset %s: %w", id, err)
	}
	edits, err := h.Ledger.Edits(ctx, id)
	if err != nil {
		return nil, err
	}
	return payroll.Compute(rows, mapping, edits, h.options(filter))
}

func parseFilter(r *http.Request) (payroll.Filter, error) {
	q := r.URL.Query()
	f := payroll.Filter{Employee: strings.TrimSpace(q.Get("employee"))}
	if v := q.Get("from"); v != "" {
		tp, err := generic.ParseDay(v)
		if err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
		f.Period.Start = tp
	}
	if v := q.Get("to"); v != "" {
		tp, err := generic.ParseDay(v)
		if err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
		f.Period.End = tp
	}
	return f, f.Validate()
}

func datasetID(r *http.Request) generic.DatasetID {
	return generic.DatasetID(chi.URLParam(r, "id"))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// writeComputeError maps pipeline failures; batch-level failures are 422
// with the head of the cleansing log.
func (h *Handler) writeComputeError(w http.ResponseWriter, err error) {
	var noRecords *generic.NoUsableRecordsError
	switch {
	case errors.As(err, &noRecords):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   err.Error(),
			Code:    "no_usable_records",
			Details: noRecords.Log.First(cleansingPreview),
		})
	case errors.Is(err, generic.ErrEmptyDataset):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "empty_dataset"})
	case errors.Is(err, generic.ErrInvalidMapping):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Code: "invalid_mapping"})
	case errors.Is(err, generic.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
	default:
		h.writeStoreError(w, "Failed to compute ledger", err)
	}
}
