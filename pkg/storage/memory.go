package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kpoppel/go-eforsyning/pkg/types"
)

// Memory keeps snapshots in process memory. Everything is lost on restart.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string]types.Snapshot
}

var _ Database = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{snaps: make(map[string]types.Snapshot)}
}

func (m *Memory) GetSnapshot(ctx context.Context, key string) (types.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[key]
	if !ok {
		return types.Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, key)
	}
	return snap, nil
}

func (m *Memory) SaveSnapshot(ctx context.Context, snap types.Snapshot) error {
	if snap.Key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Key] = snap
	return nil
}

// ListSnapshots returns every snapshot, most recently fetched first.
func (m *Memory) ListSnapshots(ctx context.Context) ([]types.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := make([]types.Snapshot, 0, len(m.snaps))
	for _, s := range m.snaps {
		snaps = append(snaps, s)
	}
	slices.SortFunc(snaps, func(a, b types.Snapshot) int {
		return b.FetchedAt.Compare(a.FetchedAt)
	})
	return snaps, nil
}

func (m *Memory) Close() error {
	return nil
}
