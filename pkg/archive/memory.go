package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"oblige-hq/warden/pkg/model"
)

// MemoryStorage implements Storage in memory. Useful for tests and for
// deployments that only want the ledger on disk.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]model.Violation
}

// NewMemoryStorage creates an empty in-memory archive.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]model.Violation),
	}
}

// Store implements Storage.
func (s *MemoryStorage) Store(ctx context.Context, v model.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[v.ID]; exists {
		return nil
	}
	s.records[v.ID] = v
	return nil
}

// Query implements Storage.
func (s *MemoryStorage) Query(ctx context.Context, q Query) ([]model.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Violation
	for _, v := range s.records {
		if matches(v, q) {
			out = append(out, v)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectedAt != out[j].DetectedAt {
			return out[i].DetectedAt < out[j].DetectedAt
		}
		return out[i].ID < out[j].ID
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

// Count implements Storage.
func (s *MemoryStorage) Count(ctx context.Context, q Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, v := range s.records {
		if matches(v, q) {
			count++
		}
	}
	return count, nil
}

// Delete implements Storage.
func (s *MemoryStorage) Delete(ctx context.Context, q Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, v := range s.records {
		if matches(v, q) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close implements Storage.
func (s *MemoryStorage) Close() error {
	return nil
}

func matches(v model.Violation, q Query) bool {
	if q.ID != "" && v.ID != q.ID {
		return false
	}
	if q.RuleID != "" && v.RuleID != q.RuleID {
		return false
	}
	if q.Subject != "" && v.Subject != q.Subject {
		return false
	}
	if q.EventType != "" && v.EventType != q.EventType {
		return false
	}
	if q.Severity != "" && v.Severity != q.Severity {
		return false
	}
	if q.Since != nil || q.Until != nil {
		t, err := time.Parse(time.RFC3339, v.DetectedAt)
		if err != nil {
			return false
		}
		if q.Since != nil && t.Before(*q.Since) {
			return false
		}
		if q.Until != nil && t.After(*q.Until) {
			return false
		}
	}
	return true
}
