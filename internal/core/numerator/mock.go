package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGenerator is an in-memory Generator for tests. Without
// GetNextNumberFunc it counts per prefix and year: DEV-2026-00001,
// DEV-2026-00002 and so on.
type MockGenerator struct {
	GetNextNumberFunc func(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	mu       sync.Mutex
	counters map[string]int64
}

var _ Generator = (*MockGenerator)(nil)

func (m *MockGenerator) GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	if m.GetNextNumberFunc != nil {
		return m.GetNextNumberFunc(ctx, cfg, opts, period)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.key(cfg, period)
	m.counters[key]++
	return fmt.Sprintf("%s-%d-%05d", cfg.Prefix, period.Year(), m.counters[key]), nil
}

func (m *MockGenerator) SetNextNumber(_ context.Context, cfg Config, period time.Time, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[m.key(cfg, period)] = value
	return nil
}

func (m *MockGenerator) key(cfg Config, period time.Time) string {
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	return fmt.Sprintf("%s_%d", cfg.Prefix, period.Year())
}
