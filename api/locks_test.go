package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-ledger/attendance"
	"github.com/warp/attendance-ledger/generic"
	"github.com/warp/attendance-ledger/generic/store"
)

func serve(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createLockedDataset(t *testing.T, h *Handler, router http.Handler) string {
	t.Helper()
	rec := serve(t, router, http.MethodPost, "/api/datasets", CreateDatasetRequest{
		Name: "March",
		Rows: []attendance.RawRow{{"Name": "Ana Lima", "Date": "2025-03-03", "In": "10:40", "Out": "20:00", "Paid": ""}},
		Mapping: &attendance.ColumnMapping{
			Name: "Name", Date: "Date", CheckIn: "In", CheckOut: "Out", AmountPaid: "Paid",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp CreateDatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// Any action takes the dataset lock, even on an unknown shift
	serve(t, router, http.MethodPost, "/api/datasets/"+resp.Dataset.ID+"/shifts/unknown/waiver", nil)
	h.mu.Lock()
	_, ok := h.locks[generic.DatasetID(resp.Dataset.ID)]
	h.mu.Unlock()
	require.True(t, ok)
	return resp.Dataset.ID
}

func lockCount(h *Handler) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.locks)
}

func TestDeleteDataset_ForgetsLock(t *testing.T) {
	// GIVEN: Two datasets that have both been acted on
	h := NewHandler(store.NewMemory(), nil)
	router := NewRouter(h, RouterOptions{})
	first := createLockedDataset(t, h, router)
	second := createLockedDataset(t, h, router)
	require.Equal(t, 2, lockCount(h))

	// WHEN: Deleting one of them
	require.Equal(t, http.StatusOK, serve(t, router, http.MethodDelete, "/api/datasets/"+first, nil).Code)

	// THEN: Only the survivor keeps a lock
	assert.Equal(t, 1, lockCount(h))
	_, ok := h.locks[generic.DatasetID(second)]
	assert.True(t, ok)
}

func TestDeleteDataset_MissingKeepsNoLock(t *testing.T) {
	h := NewHandler(store.NewMemory(), nil)
	router := NewRouter(h, RouterOptions{})
	createLockedDataset(t, h, router)

	rec := serve(t, router, http.MethodDelete, "/api/datasets/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, lockCount(h))
}

func TestAction_MissingDatasetKeepsNoLock(t *testing.T) {
	h := NewHandler(store.NewMemory(), nil)
	router := NewRouter(h, RouterOptions{})

	rec := serve(t, router, http.MethodPost, "/api/datasets/does-not-exist/shifts/unknown/waiver", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, lockCount(h))
}

func TestReset_ClearsLocks(t *testing.T) {
	h := NewHandler(store.NewMemory(), nil)
	router := NewRouter(h, RouterOptions{})
	createLockedDataset(t, h, router)
	createLockedDataset(t, h, router)

	require.Equal(t, http.StatusOK, serve(t, router, http.MethodPost, "/api/reset", nil).Code)
	assert.Zero(t, lockCount(h))

	createLockedDataset(t, h, router)
	rec := serve(t, router, http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "month-of-march"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, lockCount(h))
}
