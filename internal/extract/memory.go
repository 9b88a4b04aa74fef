package extract

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/nao1215/repocrawl/internal/model"
)

// MemoryStore keeps file statistics in memory. It backs crawls run without
// a database and is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	stats map[string]*model.FileStats
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stats: make(map[string]*model.FileStats)}
}

// SaveFileStats stores stats, replacing any entry with the same address.
func (m *MemoryStore) SaveFileStats(_ context.Context, stats *model.FileStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[stats.Address] = stats
	return nil
}

// ListFileStats returns the entries whose address starts with prefix,
// ordered by address.
func (m *MemoryStore) ListFileStats(_ context.Context, prefix string) ([]*model.FileStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*model.FileStats, 0, len(m.stats))
	for addr, s := range m.stats {
		if strings.HasPrefix(addr, prefix) {
			results = append(results, s)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Address < results[j].Address })

	return results, nil
}

// Len returns the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stats)
}
