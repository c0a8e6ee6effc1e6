package tablestore

import (
	"context"
	"sort"
	"sync"
	"time"

	"HoldemSync/internal/game/table"
)

type memRepo struct {
	mu     sync.Mutex
	tables map[string]*table.Table
}

// NewMemoryRepo 单节点使用，或用于测试
func NewMemoryRepo() Repo {
	return &memRepo{tables: make(map[string]*table.Table)}
}

func (m *memRepo) Get(ctx context.Context, id string) (*table.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *memRepo) Create(ctx context.Context, t *table.Table) (*table.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[t.ID]; ok {
		return nil, ErrAlreadyExists
	}
	c := stamp(t, 1)
	m.tables[t.ID] = c
	return c.Clone(), nil
}

func (m *memRepo) CompareAndSwap(ctx context.Context, t *table.Table, expectedVersion int64) (*table.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tables[t.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if cur.Version != expectedVersion {
		return nil, ErrConcurrencyConflict
	}
	c := stamp(t, expectedVersion+1)
	c.UpdatedAt = time.Now()
	m.tables[t.ID] = c
	return c.Clone(), nil
}

func (m *memRepo) Delete(ctx context.Context, id string, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tables[id]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrConcurrencyConflict
	}
	delete(m.tables, id)
	return nil
}

func (m *memRepo) List(ctx context.Context) ([]*table.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*table.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
