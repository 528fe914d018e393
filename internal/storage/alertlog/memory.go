// internal/storage/alertlog/memory.go
package alertlog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/polydash/internal/core"
)

// MemoryStore is an in-memory alert store bounded to maxSize records.
type MemoryStore struct {
	records []Record
	maxSize int
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &MemoryStore{
		records: make([]Record, 0, maxSize),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Save adds a record to the store.
func (m *MemoryStore) Save(ctx context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = uuid.NewString()
	if rec.SentAt.IsZero() {
		rec.SentAt = m.now().UTC()
	}

	m.records = append(m.records, rec)

	// Trim if over capacity (remove oldest)
	if len(m.records) > m.maxSize {
		m.records = m.records[len(m.records)-m.maxSize:]
	}

	return rec, nil
}

// GetByID retrieves a record by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, core.WrapError(core.ErrNoData, fmt.Errorf("alert %s not found", id))
}

// List returns records matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []Record{}
	for i := len(m.records) - 1; i >= 0; i-- {
		if matches(m.records[i], filter) {
			result = append(result, m.records[i])
		}
	}

	// Apply offset and limit
	if filter.Offset >= len(result) {
		return []Record{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Count returns the count of matching records.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, rec := range m.records {
		if matches(rec, filter) {
			count++
		}
	}
	return count, nil
}

func matches(rec Record, filter ListFilter) bool {
	if filter.Market != "" && rec.Alert.Market != filter.Market {
		return false
	}
	if filter.Direction != "" && filter.Direction != core.DirectionAll && rec.Alert.Direction != filter.Direction {
		return false
	}
	if !filter.From.IsZero() && rec.SentAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && rec.SentAt.After(filter.To) {
		return false
	}
	return true
}
