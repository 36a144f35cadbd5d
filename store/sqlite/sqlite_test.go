package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-ledger/generic"
	"github.com/warp/attendance-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func saveDataset(t *testing.T, store *sqlite.Store, id string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, store.SaveDataset(context.Background(), generic.Dataset{
		ID:          generic.DatasetID(id),
		Name:        "March " + id,
		RowsJSON:    `[{"Name":"Ana","Date":"2025-03-03"}]`,
		MappingJSON: `{"name":"Name","date":"Date"}`,
		RowCount:    1,
		CreatedAt:   createdAt,
	}))
}

func edit(id, dataset, key string, kind generic.EditKind, amount string) generic.Edit {
	return generic.Edit{
		ID:             generic.EditID(id),
		DatasetID:      generic.DatasetID(dataset),
		ShiftID:        "shift-1",
		Kind:           kind,
		Amount:         decimal.RequireFromString(amount),
		Reason:         "reason " + id,
		IdempotencyKey: key,
		CreatedBy:      "manager@example.com",
		CreatedAt:      time.Date(2025, time.March, 31, 17, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// DATASETS
// =============================================================================

func TestStore_DatasetLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)

	// GIVEN: Two datasets saved out of creation order
	saveDataset(t, store, "ds-b", base.Add(time.Minute))
	saveDataset(t, store, "ds-a", base)

	// WHEN: Reading back
	got, err := store.GetDataset(ctx, "ds-a")
	require.NoError(t, err)
	list, err := store.ListDatasets(ctx)
	require.NoError(t, err)

	// THEN: The full record and a rows-free listing in creation order
	assert.Equal(t, "March ds-a", got.Name)
	assert.Equal(t, 1, got.RowCount)
	assert.Contains(t, got.RowsJSON, "Ana")
	assert.True(t, base.Equal(got.CreatedAt))

	require.Len(t, list, 2)
	assert.Equal(t, generic.DatasetID("ds-a"), list[0].ID)
	assert.Empty(t, list[0].RowsJSON)
	assert.NotEmpty(t, list[0].MappingJSON)
}

func TestStore_GetDataset_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDataset(context.Background(), "missing")
	assert.ErrorIs(t, err, generic.ErrDatasetNotFound)
	assert.ErrorIs(t, store.DeleteDataset(context.Background(), "missing"), generic.ErrDatasetNotFound)
}

// =============================================================================
// EDITS
// =============================================================================

func TestStore_Edits_ReplayOrderAndFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveDataset(t, store, "ds-1", time.Now())

	// GIVEN: Edits appended singly and in a batch
	require.NoError(t, store.Append(ctx, edit("e-1", "ds-1", "k-1", generic.EditWaiverToggle, "0")))
	require.NoError(t, store.AppendBatch(ctx, []generic.Edit{
		edit("e-2", "ds-1", "k-2", generic.EditAdjustment, "-2.50"),
		edit("e-3", "ds-1", "", generic.EditManualPenalty, "1.25"),
	}))

	// WHEN: Loading
	edits, err := store.Load(ctx, "ds-1")
	require.NoError(t, err)

	// THEN: Append order and every field survive
	require.Len(t, edits, 3)
	assert.Equal(t, generic.EditID("e-1"), edits[0].ID)
	assert.Equal(t, generic.EditID("e-3"), edits[2].ID)

	e := edits[1]
	assert.Equal(t, generic.EditAdjustment, e.Kind)
	assert.True(t, decimal.RequireFromString("-2.5").Equal(e.Amount))
	assert.Equal(t, "reason e-2", e.Reason)
	assert.Equal(t, "k-2", e.IdempotencyKey)
	assert.Equal(t, "manager@example.com", e.CreatedBy)
	assert.True(t, time.Date(2025, time.March, 31, 17, 0, 0, 0, time.UTC).Equal(e.CreatedAt))
	assert.Equal(t, "", edits[2].IdempotencyKey)
}

func TestStore_Load_EmptyIsNotNil(t *testing.T) {
	store := newTestStore(t)

	edits, err := store.Load(context.Background(), "ds-none")
	require.NoError(t, err)
	assert.NotNil(t, edits)
	assert.Empty(t, edits)
}

func TestStore_Idempotency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveDataset(t, store, "ds-1", time.Now())

	require.NoError(t, store.Append(ctx, edit("e-1", "ds-1", "k-1", generic.EditWaiverToggle, "0")))

	exists, err := store.Exists(ctx, "k-1")
	require.NoError(t, err)
	assert.True(t, exists)

	err = store.Append(ctx, edit("e-2", "ds-1", "k-1", generic.EditWaiverToggle, "0"))
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	// Duplicate inside one batch: nothing is written
	err = store.AppendBatch(ctx, []generic.Edit{
		edit("e-3", "ds-1", "k-3", generic.EditWaiverToggle, "0"),
		edit("e-4", "ds-1", "k-3", generic.EditWaiverToggle, "0"),
	})
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	// Duplicate against stored data: the batch rolls back
	err = store.AppendBatch(ctx, []generic.Edit{
		edit("e-5", "ds-1", "k-5", generic.EditWaiverToggle, "0"),
		edit("e-6", "ds-1", "k-1", generic.EditWaiverToggle, "0"),
	})
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	edits, _ := store.Load(ctx, "ds-1")
	assert.Len(t, edits, 1)
}

func TestStore_Append_UnknownDataset(t *testing.T) {
	store := newTestStore(t)

	err := store.Append(context.Background(), edit("e-1", "ghost", "", generic.EditWaiverToggle, "0"))
	assert.ErrorIs(t, err, generic.ErrDatasetNotFound)
}

func TestStore_DeleteDataset_CascadesEdits(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveDataset(t, store, "ds-1", time.Now())
	require.NoError(t, store.Append(ctx, edit("e-1", "ds-1", "k-1", generic.EditWaiverToggle, "0")))

	require.NoError(t, store.DeleteDataset(ctx, "ds-1"))

	edits, err := store.Load(ctx, "ds-1")
	require.NoError(t, err)
	assert.Empty(t, edits)
	exists, _ := store.Exists(ctx, "k-1")
	assert.False(t, exists, "key is free again once its dataset is gone")
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveDataset(t, store, "ds-1", time.Now())
	require.NoError(t, store.Append(ctx, edit("e-1", "ds-1", "k-1", generic.EditWaiverToggle, "0")))

	require.NoError(t, store.Reset(ctx))

	list, err := store.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	exists, _ := store.Exists(ctx, "k-1")
	assert.False(t, exists)
}

func TestStore_WorksWithLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveDataset(t, store, "ds-1", time.Now())
	ledger := generic.NewLedger(store)

	require.NoError(t, ledger.Append(ctx, edit("e-1", "ds-1", "k-1", generic.EditWaiverToggle, "0")))
	err := ledger.Append(ctx, edit("e-2", "ds-1", "k-1", generic.EditWaiverToggle, "0"))
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	edits, err := ledger.Edits(ctx, "ds-1")
	require.NoError(t, err)
	assert.Len(t, edits, 1)
}
