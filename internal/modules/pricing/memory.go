package pricing

import (
	"context"
	"sync"

	"masar/internal/modules/tariff"
)

// MemoryStore holds settings and tariffs in process. It serves tests and
// single-node development runs without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	settings Settings
	rules    []tariff.Rule
	nextID   int64
}

func NewMemoryStore(st Settings, rules []tariff.Rule) *MemoryStore {
	m := &MemoryStore{settings: st}
	_ = m.Replace(context.Background(), rules)
	return m
}

func (m *MemoryStore) GetSettings(ctx context.Context) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *MemoryStore) SaveSettings(ctx context.Context, st Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = st
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]tariff.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]tariff.Rule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

func (m *MemoryStore) Replace(ctx context.Context, rules []tariff.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = make([]tariff.Rule, 0, len(rules))
	for _, r := range rules {
		m.nextID++
		r.ID = m.nextID
		m.rules = append(m.rules, r)
	}
	return nil
}
