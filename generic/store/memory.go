// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/attendance-ledger/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/CLI)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	edits       map[generic.DatasetID][]generic.Edit
	datasets    map[generic.DatasetID]generic.Dataset
	idempotency map[string]bool
}

var _ generic.DatasetStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		edits:       make(map[generic.DatasetID][]generic.Edit),
		datasets:    make(map[generic.DatasetID]generic.Dataset),
		idempotency: make(map[string]bool),
	}
}

// Append adds a single edit. Append-only.
func (m *Memory) Append(_ context.Context, edit generic.Edit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if edit.IdempotencyKey != "" && m.idempotency[edit.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	m.appendLocked(edit)
	return nil
}

// AppendBatch adds multiple edits atomically.
func (m *Memory) AppendBatch(_ context.Context, edits []generic.Edit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all idempotency keys first (atomic check)
	seen := make(map[string]bool)
	for _, edit := range edits {
		if edit.IdempotencyKey == "" {
			continue
		}
		if m.idempotency[edit.IdempotencyKey] || seen[edit.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		seen[edit.IdempotencyKey] = true
	}

	for _, edit := range edits {
		m.appendLocked(edit)
	}
	return nil
}

func (m *Memory) appendLocked(edit generic.Edit) {
	m.edits[edit.DatasetID] = append(m.edits[edit.DatasetID], edit)
	if edit.IdempotencyKey != "" {
		m.idempotency[edit.IdempotencyKey] = true
	}
}

func (m *Memory) Load(_ context.Context, datasetID generic.DatasetID) ([]generic.Edit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Edit, len(m.edits[datasetID]))
	copy(result, m.edits[datasetID])
	return result, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

// =============================================================================
// DATASETS
// =============================================================================

func (m *Memory) SaveDataset(_ context.Context, ds generic.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[ds.ID] = ds
	return nil
}

func (m *Memory) GetDataset(_ context.Context, id generic.DatasetID) (*generic.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.datasets[id]
	if !ok {
		return nil, generic.ErrDatasetNotFound
	}
	return &ds, nil
}

func (m *Memory) ListDatasets(_ context.Context) ([]generic.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]generic.Dataset, 0, len(m.datasets))
	for _, ds := range m.datasets {
		result = append(result, ds)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) DeleteDataset(_ context.Context, id generic.DatasetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[id]; !ok {
		return generic.ErrDatasetNotFound
	}
	for _, edit := range m.edits[id] {
		if edit.IdempotencyKey != "" {
			delete(m.idempotency, edit.IdempotencyKey)
		}
	}
	delete(m.edits, id)
	delete(m.datasets, id)
	return nil
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = make(map[generic.DatasetID][]generic.Edit)
	m.datasets = make(map[generic.DatasetID]generic.Dataset)
	m.idempotency = make(map[string]bool)
	return nil
}
