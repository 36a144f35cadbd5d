/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built attendance exports that exercise specific payroll
	rules. Each scenario stores one dataset (and, where relevant, a few
	manager edits) so the ledger endpoints have something to show.

AVAILABLE SCENARIOS:

	c-shift-overtime:  Arrival 10:40, departure 20:00 (type C, on time, OT)
	eve-late-b-shift:  Thursday arrival 15:10 (type B eve start, 10 min late)
	missing-checkout:  Arrival 11:05 with no departure (fallback 9h shift)
	bad-date-row:      A row dated "N/A" next to a valid one
	waiver-roundtrip:  A 5.00 penalty waived then restored
	month-of-march:    Three employees over a month, mixed punctuality

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Build raw rows with the demo column headers
 3. Store them as a dataset
 4. Optionally record manager edits

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "waiver-roundtrip"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a loader to 'scenarioLoaders'

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Dataset and ledger handlers
  - payroll/compute.go: The pipeline every scenario feeds
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/generic"
	"github.com/warp/attendance-ledger/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "c-shift-overtime",
		Name:        "C Shift With Overtime",
		Description: "Arrival 10:40 is type C (start 11:00), on time, 9.33h worked with overtime",
	},
	{
		ID:          "eve-late-b-shift",
		Name:        "Late On A Weekend Eve",
		Description: "Thursday arrival 15:10 is type B with the 15:00 eve start, 10 minutes late",
	},
	{
		ID:          "missing-checkout",
		Name:        "Missing Check-Out",
		Description: "Arrival 11:05 with no departure falls back to a 9 hour shift",
	},
	{
		ID:          "bad-date-row",
		Name:        "Unparseable Date",
		Description: "A row dated N/A is dropped and logged; the valid row is priced",
	},
	{
		ID:          "waiver-roundtrip",
		Name:        "Waiver Round Trip",
		Description: "A 5.00 lateness penalty is waived and then restored",
	},
	{
		ID:          "month-of-march",
		Name:        "Month Of March",
		Description: "Three employees over March 2025 with lateness, overtime and payments",
	},
}

// DemoMapping is the column mapping every scenario dataset uses.
var DemoMapping = attendance.ColumnMapping{
	Name:          "Employee Name",
	Date:          "Date",
	CheckIn:       "Check In",
	CheckOut:      "Check Out",
	AmountPaid:    "Amount Paid",
	ManualPenalty: "Manual Penalty",
}

type scenarioLoader func(h *Handler, ctx context.Context) error

var scenarioLoaders = map[string]scenarioLoader{
	"c-shift-overtime": (*Handler).loadCShiftOvertimeScenario,
	"eve-late-b-shift": (*Handler).loadEveLateScenario,
	"missing-checkout": (*Handler).loadMissingCheckoutScenario,
	"bad-date-row":     (*Handler).loadBadDateScenario,
	"waiver-roundtrip": (*Handler).loadWaiverRoundTripScenario,
	"month-of-march":   (*Handler).loadMonthOfMarchScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.clearLocks()
	h.setCurrentScenario("")

	if err := load(h, ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.setCurrentScenario(req.ScenarioID)

	datasets, err := h.Store.ListDatasets(ctx)
	if err != nil || len(datasets) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "loaded",
		"scenario":   req.ScenarioID,
		"dataset_id": string(datasets[0].ID),
	})
}

func (h *Handler) setCurrentScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func demoRow(name, date, in, out, paid string) attendance.RawRow {
	return attendance.RawRow{
		"Employee Name":  name,
		"Date":           date,
		"Check In":       in,
		"Check Out":      out,
		"Amount Paid":    paid,
		"Manual Penalty": "",
	}
}

func (h *Handler) saveScenarioDataset(ctx context.Context, name string, rows []attendance.RawRow) (generic.DatasetID, error) {
	ds, err := newDataset(name, rows, DemoMapping, h.Now())
	if err != nil {
		return "", err
	}
	if err := h.Store.SaveDataset(ctx, ds); err != nil {
		return "", err
	}
	return ds.ID, nil
}

func (h *Handler) loadCShiftOvertimeScenario(ctx context.Context) error {
	_, err := h.saveScenarioDataset(ctx, "C shift with overtime", []attendance.RawRow{
		demoRow("Ana Lima", "2025-03-03", "10:40", "20:00", ""),
	})
	return err
}

func (h *Handler) loadEveLateScenario(ctx context.Context) error {
	_, err := h.saveScenarioDataset(ctx, "Late on a weekend eve", []attendance.RawRow{
		demoRow("Ben Okafor", "2025-03-06", "15:10", "23:00", ""),
	})
	return err
}

func (h *Handler) loadMissingCheckoutScenario(ctx context.Context) error {
	_, err := h.saveScenarioDataset(ctx, "Missing check-out", []attendance.RawRow{
		demoRow("Chris Dane", "2025-03-04", "11:05", "", ""),
	})
	return err
}

func (h *Handler) loadBadDateScenario(ctx context.Context) error {
	_, err := h.saveScenarioDataset(ctx, "Unparseable date", []attendance.RawRow{
		demoRow("Ana Lima", "N/A", "10:00", "19:00", ""),
		demoRow("Ana Lima", "2025-03-05", "10:00", "19:00", ""),
	})
	return err
}

func (h *Handler) loadWaiverRoundTripScenario(ctx context.Context) error {
	const employee = "Dana Cruz"
	id, err := h.saveScenarioDataset(ctx, "Waiver round trip", []attendance.RawRow{
		demoRow(employee, "2025-03-10", "11:25", "20:00", "5"),
	})
	if err != nil {
		return err
	}

	shiftID := payroll.ShiftIDFor(employee, generic.NewTimePoint(2025, time.March, 10))
	now := h.Now()
	edits := []generic.Edit{
		{
			ID:             generic.EditID(uuid.NewString()),
			DatasetID:      id,
			ShiftID:        shiftID,
			Kind:           generic.EditWaiverToggle,
			IdempotencyKey: "scenario-waiver-on",
			CreatedBy:      "demo",
			CreatedAt:      now,
		},
		{
			ID:             generic.EditID(uuid.NewString()),
			DatasetID:      id,
			ShiftID:        shiftID,
			Kind:           generic.EditWaiverToggle,
			IdempotencyKey: "scenario-waiver-off",
			CreatedBy:      "demo",
			CreatedAt:      now.Add(time.Second),
		},
	}
	return h.Ledger.AppendBatch(ctx, edits)
}

func (h *Handler) loadMonthOfMarchScenario(ctx context.Context) error {
	type punch struct{ in, out string }
	patterns := map[string][]punch{
		"Ana Lima":   {{"09:55", "19:10"}, {"10:05", "19:00"}, {"10:20", "20:30"}},
		"Ben Okafor": {{"14:05", "23:00"}, {"15:25", "23:30"}, {"14:00", "22:00"}},
		"Chris Dane": {{"11:15", "20:00"}, {"12:10", "21:45"}, {"10:45", ""}},
	}
	names := []string{"Ana Lima", "Ben Okafor", "Chris Dane"}

	var rows []attendance.RawRow
	start := generic.NewTimePoint(2025, time.March, 3)
	for week := 0; week < 4; week++ {
		for day := 0; day < 5; day++ {
			date := start.AddDays(week*7 + day)
			for i, name := range names {
				p := patterns[name][(week+day+i)%3]
				paid := ""
				if day == 4 {
					paid = "40.00"
				}
				rows = append(rows, demoRow(name, date.String(), p.in, p.out, paid))
			}
		}
	}

	id, err := h.saveScenarioDataset(ctx, "March 2025", rows)
	if err != nil {
		return err
	}

	return h.Ledger.Append(ctx, generic.Edit{
		ID:             generic.EditID(uuid.NewString()),
		DatasetID:      id,
		ShiftID:        payroll.ShiftIDFor("Chris Dane", start.AddDays(1)),
		Kind:           generic.EditAdjustment,
		Amount:         decimal.New(250, -2),
		Reason:         "uniform replacement",
		IdempotencyKey: "scenario-march-uniform",
		CreatedBy:      "demo",
		CreatedAt:      h.Now(),
	})
}
