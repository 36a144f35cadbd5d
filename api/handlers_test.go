package api_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-ledger/api"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/generic"
	"github.com/warp/attendance-ledger/generic/store"
	"github.com/warp/attendance-ledger/payroll"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	h := api.NewHandler(store.NewMemory(), nil)
	h.Now = func() time.Time { return time.Date(2025, time.March, 31, 18, 0, 0, 0, time.UTC) }
	return &testServer{t: t, router: api.NewRouter(h, api.RouterOptions{})}
}

func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var mapping = attendance.ColumnMapping{Name: "Name", Date: "Date", CheckIn: "In", CheckOut: "Out", AmountPaid: "Paid"}

func rows() []attendance.RawRow {
	return []attendance.RawRow{
		{"Name": "Ana Lima", "Date": "2025-03-03", "In": "10:40", "Out": "20:00", "Paid": "10"},
		{"Name": "Ana Lima", "Date": "2025-03-04", "In": "11:25", "Out": "20:00", "Paid": ""},
		{"Name": "Ben Okafor", "Date": "2025-03-06", "In": "15:10", "Out": "23:00", "Paid": ""},
		{"Name": "Ben Okafor", "Date": "N/A", "In": "10:00", "Out": "19:00", "Paid": ""},
	}
}

// createDataset uploads rows() and returns the dataset id.
func (s *testServer) createDataset() string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/datasets", api.CreateDatasetRequest{Name: "March", Rows: rows(), Mapping: &mapping})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[api.CreateDatasetResponse](s.t, rec).Dataset.ID
}

func anaLate() generic.ShiftID {
	return payroll.ShiftIDFor("Ana Lima", generic.NewTimePoint(2025, time.March, 4))
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}

// =============================================================================
// DATASETS
// =============================================================================

func TestCreateDataset_JSON(t *testing.T) {
	s := newTestServer(t)

	// WHEN: Uploading three valid rows and one with a bad date
	rec := s.do(http.MethodPost, "/api/datasets", api.CreateDatasetRequest{Name: "March", Rows: rows(), Mapping: &mapping})

	// THEN: The dataset is stored and the first computation reported
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[api.CreateDatasetResponse](t, rec)
	assert.NotEmpty(t, resp.Dataset.ID)
	assert.Equal(t, "March", resp.Dataset.Name)
	assert.Equal(t, 4, resp.Dataset.RowCount)
	assert.Equal(t, 3, resp.ShiftCount)
	assert.Len(t, resp.CleansingLog, 1)
	assertDecimal(t, "22.52", resp.Totals.NetOwed, "net owed")

	list := decode[[]api.DatasetDTO](t, s.do(http.MethodGet, "/api/datasets", nil))
	require.Len(t, list, 1)
	assert.Equal(t, resp.Dataset.ID, list[0].ID)
	assert.Equal(t, mapping, list[0].Mapping)
}

func TestCreateDataset_Multipart(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: A CSV upload with recognisable headers and no mapping field
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "march.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Employee Name,Date,Check In,Check Out,Amount Paid\nAna Lima,2025-03-03,10:40,20:00,10\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	// THEN: The mapping is suggested from the headers
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[api.CreateDatasetResponse](t, rec)
	assert.Equal(t, "march.csv", resp.Dataset.Name)
	assert.Equal(t, "Check In", resp.Dataset.Mapping.CheckIn)
	assert.Equal(t, 1, resp.ShiftCount)
}

func TestCreateDataset_Rejections(t *testing.T) {
	s := newTestServer(t)

	t.Run("no usable rows is 422 and nothing is saved", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/datasets", api.CreateDatasetRequest{
			Rows:    []attendance.RawRow{{"Name": "Ana", "Date": "N/A"}, {"Name": "", "Date": "2025-03-03"}},
			Mapping: &mapping,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decode[api.ErrorResponse](t, rec)
		assert.Equal(t, "no_usable_records", resp.Code)
		assert.Len(t, resp.Details, 2)

		list := decode[[]api.DatasetDTO](t, s.do(http.MethodGet, "/api/datasets", nil))
		assert.Empty(t, list)
	})

	t.Run("mapping without a date column is 400", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/datasets", api.CreateDatasetRequest{
			Rows:    rows(),
			Mapping: &attendance.ColumnMapping{Name: "Name"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/datasets", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDataset_NotFound(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/datasets/missing", "/api/datasets/missing/ledger", "/api/datasets/missing/edits"} {
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, nil).Code, path)
	}
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/datasets/missing", nil).Code)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestGetLedger_WithFilter(t *testing.T) {
	s := newTestServer(t)
	id := s.createDataset()

	full := decode[payroll.Result](t, s.do(http.MethodGet, "/api/datasets/"+id+"/ledger", nil))
	assert.Len(t, full.Shifts, 3)
	assert.Len(t, full.Employees, 2)
	assert.Len(t, full.CleansingLog, 1)

	rec := s.do(http.MethodGet, "/api/datasets/"+id+"/ledger?employee=ana%20lima&from=2025-03-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	filtered := decode[payroll.Result](t, rec)
	require.Len(t, filtered.Shifts, 1)
	assert.Equal(t, anaLate(), filtered.Shifts[0].ID)

	rec = s.do(http.MethodGet, "/api/datasets/"+id+"/ledger?from=2025-04-01&to=2025-03-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodGet, "/api/datasets/"+id+"/ledger?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	id := s.createDataset()

	rec := s.do(http.MethodGet, "/api/datasets/"+id+"/export.csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "ledger-"+id+".csv")
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+3+1)
	assert.Equal(t, "TOTAL", records[4][0])
}

func TestNarrative_NotConfigured(t *testing.T) {
	s := newTestServer(t)
	id := s.createDataset()

	rec := s.do(http.MethodPost, "/api/datasets/"+id+"/narrative", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[api.NarrativeResponse](t, rec)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, "22.52", resp.Context.NetOwed, "aggregates are still returned")
}

// =============================================================================
// MANAGER ACTIONS
// =============================================================================

func TestToggleWaiver_RoundTrip(t *testing.T) {
	s := newTestServer(t)
	id := s.createDataset()
	path := "/api/datasets/" + id + "/shifts/" + string(anaLate()) + "/waiver"

	// WHEN: Waiving the 5.00 penalty
	rec := s.do(http.MethodPost, path, nil, "X-Actor", "dana@example.com")

	// THEN: The replacement shift is returned and the edit recorded
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[api.ActionResponse](t, rec)
	assert.True(t, resp.Applied)
	require.NotNil(t, resp.Edit)
	assert.Equal(t, "dana@example.com", resp.Edit.CreatedBy)
	assertDecimal(t, "5", resp.Shift.PenaltyWaiver, "waiver")
	assertDecimal(t, "10", resp.Shift.NetPay, "net")

	ledger := decode[payroll.Result](t, s.do(http.MethodGet, "/api/datasets/"+id+"/ledger", nil))
	assertDecimal(t, "27.52", ledger.Totals.NetOwed, "net owed after waiver")

	// WHEN: Toggling again
	rec = s.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp = decode[api.ActionResponse](t, rec)
	assertDecimal(t, "0", resp.Shift.PenaltyWaiver, "waiver restored")
	assertDecimal(t, "5", resp.Shift.NetPay, "net restored")

	edits := decode[[]generic.Edit](t, s.do(http.MethodGet, "/api/datasets/"+id+"/edits", nil))
	assert.Len(t, edits, 2)
}

func TestToggleWaiver_NoPenaltyIsNoOp(t *testing.T) {
	s := newTestServer(t)
	id := s.createDataset()
	onTime := payroll.ShiftIDFor("Ana Lima", generic.NewTimePoint(2025, time.March, 3))

	rec := s.do(http.MethodPost, "/api/datasets/"+id+"/shifts/"+string(onTime)+"/waiver", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[api.ActionResponse](t, rec)
	assert.False(t, resp.Applied)
	assert.Nil(t, resp.Edit)

	edits := decode[[]generic.Edit](t, s.do(http.MethodGet, "/api/datasets/"+id+"/edits", nil))
	assert.Empty(t, edits)
}

func TestCreateAdjustment(t *testing.T) {
	s := newTestServer(t)
	id := s.createDataset()
	path := "/api/datasets/" + id + "/shifts/" + string(anaLate()) + "/adjustments"

	// WHEN: Deducting 1.50 under an idempotency key
	body := api.AdjustmentRequestDTO{Amount: decimal.RequireFromString("1.50"), Reason: " uniform "}
	rec := s.do(http.MethodPost, path, body, "Idempotency-Key", "adj-1")

	// THEN: The shift carries the adjustment
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[api.ActionResponse](t, rec)
	assertDecimal(t, "1.5", resp.Shift.ManualAdjustment, "adjustment")
	assertDecimal(t, "3.5", resp.Shift.NetPay, "net")
	assert.Equal(t, "uniform", resp.Shift.Notes)
	assert.Equal(t, generic.EditAdjustment, resp.Edit.Kind)

	// WHEN: Replaying the same key
	rec = s.do(http.MethodPost, path, body, "Idempotency-Key", "adj-1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// WHEN: A manual penalty
	rec = s.do(http.MethodPost, path, api.AdjustmentRequestDTO{
		Amount: decimal.RequireFromString("2"), Reason: "late report", Kind: generic.EditManualPenalty,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assertDecimal(t, "1.5", decode[api.ActionResponse](t, rec).Shift.NetPay, "net after manual penalty")

	edits := decode[[]generic.Edit](t, s.do(http.MethodGet, "/api/datasets/"+id+"/edits", nil))
	assert.Len(t, edits, 2)
}

func TestCreateAdjustment_BadKind(t *testing.T) {
	s := newTestServer(t)
	id := s.createDataset()

	rec := s.do(http.MethodPost, "/api/datasets/"+id+"/shifts/"+string(anaLate())+"/adjustments",
		map[string]string{"amount": "1", "reason": "x", "kind": "waiver_toggle"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAction_UnknownShift(t *testing.T) {
	s := newTestServer(t)
	id := s.createDataset()

	rec := s.do(http.MethodPost, "/api/datasets/"+id+"/shifts/not-a-shift/waiver", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDataset_DropsEdits(t *testing.T) {
	s := newTestServer(t)
	id := s.createDataset()
	require.Equal(t, http.StatusCreated,
		s.do(http.MethodPost, "/api/datasets/"+id+"/shifts/"+string(anaLate())+"/waiver", nil).Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/datasets/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/datasets/"+id+"/ledger", nil).Code)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios_LoadWaiverRoundTrip(t *testing.T) {
	s := newTestServer(t)
	s.createDataset()

	list := decode[[]api.ScenarioDTO](t, s.do(http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, 6)

	// WHEN: Loading the waiver scenario
	rec := s.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "waiver-roundtrip"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decode[map[string]string](t, rec)

	// THEN: The previous dataset is gone and the restored penalty stands
	datasets := decode[[]api.DatasetDTO](t, s.do(http.MethodGet, "/api/datasets", nil))
	require.Len(t, datasets, 1)
	assert.Equal(t, loaded["dataset_id"], datasets[0].ID)

	ledger := decode[payroll.Result](t, s.do(http.MethodGet, "/api/datasets/"+loaded["dataset_id"]+"/ledger", nil))
	require.Len(t, ledger.Shifts, 1)
	shift := ledger.Shifts[0]
	assertDecimal(t, "5", shift.AttendancePenalty, "penalty")
	assertDecimal(t, "0", shift.PenaltyWaiver, "waiver")
	assertDecimal(t, "5", shift.NetPay, "net")
	assertDecimal(t, "0", shift.BalanceRemaining, "balance")

	current := decode[api.ScenarioDTO](t, s.do(http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "waiver-roundtrip", current.ID)
}

func TestScenarios_AllLoad(t *testing.T) {
	s := newTestServer(t)

	for _, id := range []string{"c-shift-overtime", "eve-late-b-shift", "missing-checkout", "bad-date-row", "month-of-march"} {
		rec := s.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": id})
		require.Equal(t, http.StatusOK, rec.Code, id)
		datasetID := decode[map[string]string](t, rec)["dataset_id"]
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/datasets/"+datasetID+"/ledger", nil).Code, id)
	}

	rec := s.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReset(t *testing.T) {
	s := newTestServer(t)
	s.createDataset()

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/reset", nil).Code)

	list := decode[[]api.DatasetDTO](t, s.do(http.MethodGet, "/api/datasets", nil))
	assert.Empty(t, list)
}
