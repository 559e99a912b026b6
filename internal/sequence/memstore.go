package sequence

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// MemoryStore is a mutex-guarded Store used by tests and by packages that need
// sequence semantics without a database. It honours the same contract as the
// SQL repository: issued values are unique per name and step by increment_by.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]*Sequence
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*Sequence)}
}

func (m *MemoryStore) GetNext(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[name]
	if !ok {
		return 0, ErrSequenceNotFound
	}
	row.Current += row.IncrementBy
	return row.Current, nil
}

// NextInTx ignores the transaction; memory state has no connection affinity.
func (m *MemoryStore) NextInTx(ctx context.Context, _ pgx.Tx, name string) (int64, error) {
	return m.GetNext(ctx, name)
}

func (m *MemoryStore) GetCurrent(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[name]
	if !ok {
		return 0, ErrSequenceNotFound
	}
	return row.Current, nil
}

func (m *MemoryStore) Reset(ctx context.Context, name string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[name]
	if !ok {
		return ErrSequenceNotFound
	}
	row.Current = value
	return nil
}

func (m *MemoryStore) Initialize(ctx context.Context, names ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		if _, ok := m.rows[name]; !ok {
			m.rows[name] = &Sequence{Name: name, Current: 0, IncrementBy: 1}
		}
	}
	return nil
}
